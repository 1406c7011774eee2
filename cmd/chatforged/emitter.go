package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kallsen-dev/chatforge/internal/busfile"
	"github.com/kallsen-dev/chatforge/internal/emitter"
	"github.com/kallsen-dev/chatforge/internal/logging"
	"github.com/kallsen-dev/chatforge/internal/procwatch"
	"github.com/kallsen-dev/chatforge/internal/routerconfig"
)

type emitterOffsets struct {
	RepliesOffsetBytes int64 `json:"replies_offset_bytes"`
	OverlayOffsetBytes int64 `json:"overlay_offset_bytes"`
}

func emitterCmd() *cobra.Command {
	var configPath, busDir, stateDir string

	cmd := &cobra.Command{
		Use:   "emitter",
		Short: "drain reply/overlay outboxes and deliver them out of the bus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := logging.Init("emitter", cfg.Logging); err != nil {
				return err
			}
			paths := busStatePaths{busDir: busDir, stateDir: stateDir}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runEmitter(ctx, cfg, paths)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.json", "router configuration file")
	cmd.Flags().StringVar(&busDir, "bus-dir", "ChatManager/bus", "bus directory")
	cmd.Flags().StringVar(&stateDir, "state-dir", "ChatManager/state", "state directory")
	return cmd
}

func runEmitter(ctx context.Context, cfg *routerconfig.Config, paths busStatePaths) error {
	var persisted emitterOffsets
	offsetsPath := paths.offsetsEmitter()
	if err := busfile.LoadJSON(offsetsPath, &persisted); err != nil {
		return err
	}

	ep := emitter.Paths{
		RepliesOutbox:     paths.repliesOutbox(),
		OverlayOutbox:     paths.overlayOutbox(),
		OverlayChatFile:   cfg.OverlayFallback.ChatFile,
		OverlayEventsFile: cfg.OverlayFallback.OverlayEventsFile,
	}
	em := emitter.Open(cfg, ep, persisted.RepliesOffsetBytes, persisted.OverlayOffsetBytes)

	watcher, err := procwatch.Watch(paths.busDir)
	if err != nil {
		logging.Warn("emitter: falling back to plain polling", "error", err)
	}
	if watcher != nil {
		defer watcher.Close()
	}

	ticker := time.NewTicker(150 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-watchEvents(watcher):
		}

		if err := em.Tick(ctx, time.Now().UnixMilli()); err != nil {
			logging.Error("emitter: tick failed", "error", err)
			continue
		}
		if err := busfile.AtomicWriteJSON(offsetsPath, emitterOffsets{
			RepliesOffsetBytes: em.RepliesOffset(),
			OverlayOffsetBytes: em.OverlayOffset(),
		}); err != nil {
			logging.Error("emitter: persist offsets failed", "error", err)
		}
	}
}
