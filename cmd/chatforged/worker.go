package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kallsen-dev/chatforge/internal/gambleworker"
	"github.com/kallsen-dev/chatforge/internal/logging"
	"github.com/kallsen-dev/chatforge/internal/musicworker"
	"github.com/kallsen-dev/chatforge/internal/routerconfig"
	"github.com/kallsen-dev/chatforge/internal/worker"
	"github.com/kallsen-dev/chatforge/internal/workerlock"
)

const (
	defaultWorkerLockTTLSec   = 30
	defaultWorkerHeartbeatSec = 10

	// secondaryAcquireDelay staggers a secondary instance's first leader
	// election attempt so the primary wins the initial race deterministically
	// (spec.md §4.6: "secondary instances delay initial acquisition by ~0.6s
	// so the primary wins races").
	secondaryAcquireDelay = 600 * time.Millisecond
)

func workerCmd() *cobra.Command {
	var configPath, busDir, stateDir, botID string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "run one bot worker: poll its inbox, execute tasks, reply+ack",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			bot, ok := findBot(cfg, botID)
			if !ok {
				return fmt.Errorf("worker: no bot %q configured", botID)
			}
			if _, err := logging.Init("worker."+botID, cfg.Logging); err != nil {
				return err
			}
			paths := busStatePaths{busDir: busDir, stateDir: stateDir}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWorker(ctx, bot, paths)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.json", "router configuration file")
	cmd.Flags().StringVar(&busDir, "bus-dir", "ChatManager/bus", "bus directory")
	cmd.Flags().StringVar(&stateDir, "state-dir", "ChatManager/state", "state directory")
	cmd.Flags().StringVar(&botID, "bot", "", "bot id to run (must match config.json's bots[].id)")
	cmd.MarkFlagRequired("bot")
	return cmd
}

func findBot(cfg *routerconfig.Config, id string) (routerconfig.Bot, bool) {
	for _, b := range cfg.Bots {
		if b.ID == id {
			return b, true
		}
	}
	return routerconfig.Bot{}, false
}

func handlerFor(bot routerconfig.Bot) worker.Handler {
	if bot.ID == "gamble" {
		return gambleworker.NewSpinner(time.Now().UnixNano()).Handle
	}
	return musicworker.NewHandler(musicworker.NewStubClient())
}

// runWorker wraps the generic worker.Worker with the appropriate lock
// shape (spec.md §4.6): single-instance for a bot with no ha declared,
// active/standby leader election for ha = "active_standby".
func runWorker(ctx context.Context, bot routerconfig.Bot, paths busStatePaths) error {
	inbox := envOr("BUS_INBOX", bot.Inbox)
	outbox := envOr("BUS_OUTBOX", bot.Outbox)
	ack := envOr("BUS_ACK", bot.Ack)

	w, err := worker.Open(inbox, outbox, ack, paths.workerOffsets(bot.ID), handlerFor(bot))
	if err != nil {
		return err
	}

	if bot.HA != "active_standby" {
		lock, err := workerlock.AcquireSingleInstance(paths.state(bot.ID + ".lock.json"))
		if err != nil {
			return err
		}
		defer lock.Release()
		return runWorkerLoop(ctx, w, nil, "primary")
	}

	role := envOr("WORKER_ROLE", "primary")
	instance := envOr("CHAT_SUPERVISOR_INSTANCE", "0")
	ttlSec := envOrInt("WORKER_LOCK_TTL_SEC", defaultWorkerLockTTLSec)
	lock := workerlock.NewLeaderLock(
		paths.state(bot.ID+".leader.lock.json"),
		paths.state(bot.ID+".leader_heartbeat.json"),
		time.Duration(ttlSec)*time.Second,
		role, instance,
	)
	defer lock.Release()
	return runWorkerLoop(ctx, w, lock, role)
}

func runWorkerLoop(ctx context.Context, w *worker.Worker, lock *workerlock.LeaderLock, role string) error {
	heartbeatEvery := time.Duration(envOrInt("WORKER_HEARTBEAT_SEC", defaultWorkerHeartbeatSec)) * time.Second
	idlePoll, activePoll := worker.IdlePollInterval, worker.ActivePollInterval
	if overrideSec := os.Getenv("WORKER_POLL_SEC"); overrideSec != "" {
		if n, err := strconv.ParseFloat(overrideSec, 64); err == nil && n > 0 {
			idlePoll = time.Duration(n * float64(time.Second))
			activePoll = idlePoll
		}
	}
	lastHeartbeat := time.Time{}
	interval := idlePoll

	if lock != nil && role == "secondary" {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(secondaryAcquireDelay):
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}

		if lock != nil {
			if _, err := lock.TryAcquire(); err != nil {
				logging.Error("worker: leader election failed", "error", err)
			}
			if !lock.IsLeader() || !lock.StillMine() {
				interval = idlePoll
				continue
			}
			if time.Since(lastHeartbeat) >= heartbeatEvery {
				if err := lock.Heartbeat(); err != nil {
					logging.Error("worker: heartbeat failed", "error", err)
				}
				lastHeartbeat = time.Now()
			}
		}

		progressed, err := w.Tick(time.Now().UnixMilli())
		if err != nil {
			logging.Error("worker: tick failed", "error", err)
		}
		if progressed {
			interval = activePoll
		} else {
			interval = idlePoll
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
