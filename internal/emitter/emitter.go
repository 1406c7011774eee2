// Package emitter drains the router's two outboxes (reply intents, overlay
// events) and delivers them to the outside world: reply intents go to the
// SocialStream Ninja chat injector when allowed, falling back to an overlay
// append-file otherwise; overlay events go straight to their append-file
// when the overlay fallback is enabled and that file is configured, and are
// otherwise consumed without being written (spec.md §4.5, SPEC_FULL.md §5.4).
package emitter

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kallsen-dev/chatforge/internal/busfile"
	"github.com/kallsen-dev/chatforge/internal/record"
	"github.com/kallsen-dev/chatforge/internal/routerconfig"
)

// Paths gathers the files the emitter reads from and writes to.
type Paths struct {
	RepliesOutbox     string
	OverlayOutbox     string
	OverlayChatFile   string // "" disables the chat fallback file
	OverlayEventsFile string // "" disables the overlay-events file
}

// Emitter owns the outbox cursors, the injector client, and the overlay
// fallback paths. One Tick drains both outboxes concurrently.
type Emitter struct {
	cfg   *routerconfig.Config
	paths Paths
	ssn   *ssnClient

	repliesCursor *busfile.Cursor
	overlayCursor *busfile.Cursor
}

// Open constructs an Emitter, normalizing the overlay chat path away from
// any ".json" target and seeding the two outbox cursors at repliesOffset and
// overlayOffset. Cursor offsets are persisted by the caller the same way the
// router's are.
func Open(cfg *routerconfig.Config, paths Paths, repliesOffset, overlayOffset int64) *Emitter {
	if paths.OverlayChatFile != "" {
		paths.OverlayChatFile = normalizeOverlayChatPath(paths.OverlayChatFile)
	}
	return &Emitter{
		cfg:           cfg,
		paths:         paths,
		ssn:           newSSNClient(cfg.SSN, cfg.Reply.RatePerSec),
		repliesCursor: busfile.NewCursor(paths.RepliesOutbox, repliesOffset),
		overlayCursor: busfile.NewCursor(paths.OverlayOutbox, overlayOffset),
	}
}

// RepliesOffset and OverlayOffset expose the current cursor offsets so the
// caller can persist offsets.emitter.json after a Tick.
func (e *Emitter) RepliesOffset() int64 { return e.repliesCursor.Offset }
func (e *Emitter) OverlayOffset() int64 { return e.overlayCursor.Offset }

// Tick drains both outboxes. The two drains share no mutable state besides
// the injector's own internal locking, so they run concurrently under one
// errgroup (spec.md §4.5, SPEC_FULL.md §5.4) rather than serialized.
func (e *Emitter) Tick(ctx context.Context, now int64) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.drainOverlayEvents(gctx, now) })
	g.Go(func() error { return e.drainReplies(gctx, now) })
	return g.Wait()
}

// drainOverlayEvents forwards every new overlay.outbox record to the
// overlay events append-file (spec.md §4.5 step 1). When the overlay
// fallback is disabled or no events file is configured, the records are
// consumed (the cursor still advances) and nothing is written.
func (e *Emitter) drainOverlayEvents(_ context.Context, now int64) error {
	events, err := busfile.Poll(e.overlayCursor, record.DecodeOverlayEvent)
	if err != nil {
		return fmt.Errorf("emitter: poll overlay outbox: %w", err)
	}
	if len(events) == 0 || e.paths.OverlayEventsFile == "" {
		return nil
	}
	overlayCfg := e.cfg.OverlayFallback
	if !overlayCfg.Enabled {
		return nil
	}
	maxLines := overlayCfg.MaxEvents
	if maxLines <= 0 {
		maxLines = overlayCfg.MaxMessages
	}
	for _, ev := range events {
		ts := ev.TS
		if ts == 0 {
			ts = now
		}
		if err := appendOverlayEvent(e.paths.OverlayEventsFile, ts, ev.Overlay, ev.Event, ev.EventID, ev.Payload, maxLines); err != nil {
			return fmt.Errorf("emitter: write overlay event: %w", err)
		}
	}
	return nil
}

// drainReplies forwards every new replies.outbox record to the injector
// (or the overlay fallback file) per spec.md §4.5 steps 2-4.
func (e *Emitter) drainReplies(ctx context.Context, now int64) error {
	replies, err := busfile.Poll(e.repliesCursor, record.DecodeReplyIntent)
	if err != nil {
		return fmt.Errorf("emitter: poll replies outbox: %w", err)
	}
	for _, r := range replies {
		if r.Type != "reply_intent" {
			continue
		}
		if err := e.deliverReply(ctx, r, now); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) deliverReply(ctx context.Context, r record.ReplyIntent, now int64) error {
	platform := r.Platform
	if platform == "" {
		platform = "unknown"
	}
	msg := formatReply(r.ReplyName, r.Text, r.Bot, e.cfg.Reply.Prefix, e.cfg.Reply.MaxLen)

	overlayCfg := e.cfg.OverlayFallback
	fallback := func() error {
		if !overlayCfg.Enabled || e.paths.OverlayChatFile == "" {
			return nil
		}
		return appendOverlayChat(e.paths.OverlayChatFile, now, platform, msg, overlayCfg.MaxMessages)
	}

	if isOverlayOnly(platform, e.cfg.ReplyPolicy.OverlayOnlyPlatformPrefixes) {
		return fallback()
	}

	if e.ssn.send(ctx, platform, msg) {
		return nil
	}
	return fallback()
}
