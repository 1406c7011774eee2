package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kallsen-dev/chatforge/internal/busfile"
	"github.com/kallsen-dev/chatforge/internal/ingestor"
	"github.com/kallsen-dev/chatforge/internal/logging"
	"github.com/kallsen-dev/chatforge/internal/procwatch"
	"github.com/kallsen-dev/chatforge/internal/routerconfig"
)

func ingestorCmd() *cobra.Command {
	var configPath, busDir, stateDir string

	cmd := &cobra.Command{
		Use:   "ingestor",
		Short: "tail the platform chat feed and emit normalised events onto the bus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := logging.Init("ingestor", cfg.Logging); err != nil {
				return err
			}
			paths := busStatePaths{busDir: busDir, stateDir: stateDir}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIngestor(ctx, cfg, paths)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.json", "router configuration file")
	cmd.Flags().StringVar(&busDir, "bus-dir", "ChatManager/bus", "bus directory")
	cmd.Flags().StringVar(&stateDir, "state-dir", "ChatManager/state", "state directory")
	return cmd
}

// runIngestor is the ingestor's main loop (spec.md §4.2): poll the chat
// file on a cadence driven by cfg.PollMS, normalise whatever surfaces, and
// append the surviving events to events.inbox.jsonl.
func runIngestor(ctx context.Context, cfg *routerconfig.Config, paths busStatePaths) error {
	var persisted ingestor.FeedOffsets
	offsetsPath := paths.offsetsIngestor()
	if err := busfile.LoadJSON(offsetsPath, &persisted); err != nil {
		return err
	}

	tailer, err := ingestor.NewTailer(cfg.ChatFile, persisted, !cfg.ProcessExistingOnStart)
	if err != nil {
		return err
	}

	watcher, err := procwatch.Watch(filepath.Dir(cfg.ChatFile))
	if err != nil {
		logging.Warn("ingestor: falling back to plain polling", "error", err)
	}
	if watcher != nil {
		defer watcher.Close()
	}

	pollInterval := time.Duration(cfg.PollMS) * time.Millisecond
	if pollInterval <= 0 {
		pollInterval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-watchEvents(watcher):
		}

		msgs, err := tailer.Poll()
		if err != nil {
			logging.Error("ingestor: poll failed", "error", err)
			continue
		}
		if len(msgs) == 0 {
			continue
		}
		n, err := ingestor.NormalizeAndEmit(paths.eventsInbox(), msgs, time.Now().UnixMilli())
		if err != nil {
			logging.Error("ingestor: emit failed", "error", err)
			continue
		}
		if n > 0 {
			if err := busfile.AtomicWriteJSON(offsetsPath, tailer.Offsets()); err != nil {
				logging.Error("ingestor: persist offsets failed", "error", err)
			}
		}
	}
}

// watchEvents returns w.Events, or a nil channel (which blocks forever in
// a select) when w is nil, so ticker-only polling still works without a
// directory watcher.
func watchEvents(w *procwatch.DirWatcher) <-chan struct{} {
	if w == nil {
		return nil
	}
	return w.Events
}
