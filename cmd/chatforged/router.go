package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kallsen-dev/chatforge/internal/logging"
	"github.com/kallsen-dev/chatforge/internal/procwatch"
	"github.com/kallsen-dev/chatforge/internal/router"
	"github.com/kallsen-dev/chatforge/internal/routerconfig"
)

func routerCmd() *cobra.Command {
	var configPath, busDir, stateDir string

	cmd := &cobra.Command{
		Use:   "router",
		Short: "run the Router/Bank: dispatch commands, track points, run the gamble FIFO",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := logging.Init("router", cfg.Logging); err != nil {
				return err
			}
			paths := busStatePaths{busDir: busDir, stateDir: stateDir}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runRouter(ctx, cfg, paths)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.json", "router configuration file")
	cmd.Flags().StringVar(&busDir, "bus-dir", "ChatManager/bus", "bus directory")
	cmd.Flags().StringVar(&stateDir, "state-dir", "ChatManager/state", "state directory")
	return cmd
}

func runRouter(ctx context.Context, cfg *routerconfig.Config, paths busStatePaths) error {
	rp := router.Paths{
		EventsInbox:       paths.eventsInbox(),
		UserState:         paths.userState(),
		UserStateMirror:   cfg.OverlayFallback.UserStateMirrorFile,
		Inflight:          paths.inflight(),
		GambleQueue:       paths.gambleQueue(),
		PointsLedger:      paths.pointsLedger(),
		RepliesOutbox:     paths.repliesOutbox(),
		OverlayOutbox:     paths.overlayOutbox(),
		SlotsConfig:       "slots_config.json",
		Offsets:           paths.offsetsRouter(),
		DeadLetterPattern: paths.bus("deadletter.%s.jsonl"),
	}

	r, err := router.Open(cfg, rp)
	if err != nil {
		return err
	}

	watcher, err := procwatch.Watch(paths.busDir)
	if err != nil {
		logging.Warn("router: falling back to plain polling", "error", err)
	}
	if watcher != nil {
		defer watcher.Close()
	}

	ticker := time.NewTicker(router.EarningTickIntervalSec * time.Second / 5)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-watchEvents(watcher):
		}

		if err := r.Tick(time.Now().Unix()); err != nil {
			logging.Error("router: tick failed", "error", err)
		}
	}
}
