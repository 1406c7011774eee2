// Package router implements the Router/Bank main loop (spec.md §4.3): it
// merges inbound events, worker replies, and worker acks while mutating the
// points ledger under at-most-one-writer discipline, dispatches commands to
// worker inboxes, and runs the gamble FIFO (spec.md §4.4).
package router

import (
	"fmt"

	"github.com/kallsen-dev/chatforge/internal/busfile"
	"github.com/kallsen-dev/chatforge/internal/commandindex"
	"github.com/kallsen-dev/chatforge/internal/dedup"
	"github.com/kallsen-dev/chatforge/internal/gamble"
	"github.com/kallsen-dev/chatforge/internal/inflight"
	"github.com/kallsen-dev/chatforge/internal/record"
	"github.com/kallsen-dev/chatforge/internal/routerconfig"
	"github.com/kallsen-dev/chatforge/internal/slotsconfig"
	"github.com/kallsen-dev/chatforge/internal/userstate"
)

// EarningTickIntervalSec is spec.md §4.3's fixed earning-tick cadence
// ("Every 5 s, scan users").
const EarningTickIntervalSec = 5

// Paths gathers every file the router touches, resolved by the caller from
// routerconfig.Config and the fixed state-directory layout (spec.md §6).
type Paths struct {
	EventsInbox       string
	UserState         string
	UserStateMirror   string
	Inflight          string
	GambleQueue       string
	PointsLedger      string
	RepliesOutbox     string
	OverlayOutbox     string
	SlotsConfig       string
	Offsets           string // offsets.router.json (spec.md §6)
	DeadLetterPattern string // fmt with one %s verb for the bot id
}

// botOffsets is one bot's persisted outbox/ack cursor positions.
type botOffsets struct {
	OutboxOffsetBytes int64 `json:"outbox_offset_bytes"`
	AckOffsetBytes    int64 `json:"ack_offset_bytes"`
}

// offsets is the offsets.router.json document: the router's cursor into
// events.inbox.jsonl plus every enabled bot's outbox/ack cursors (spec.md
// §4.1, §6: "write the cursor immediately after each inbox poll that
// advanced it" applies to the router exactly like ingestor/emitter/worker).
type offsets struct {
	EventsOffsetBytes int64                 `json:"events_offset_bytes"`
	Bots              map[string]botOffsets `json:"bots"`
}

// Router owns every piece of router-side state and implements one tick of
// the main loop.
type Router struct {
	cfg   *routerconfig.Config
	idx   *commandindex.Index
	paths Paths

	users   *userstate.Store
	inflt   *inflight.Table
	gambleQ *gamble.Queue
	slots   *slotsconfig.Reloader
	dedup   *dedup.Guard

	eventsCursor *busfile.Cursor
	botOutboxes  map[string]*busfile.Cursor
	botAcks      map[string]*busfile.Cursor

	lastEarningTick int64
}

// Open constructs a Router, loading every piece of persisted state,
// including offsets.router.json's byte cursors into events.inbox.jsonl and
// every enabled bot's outbox/ack files, so a restart resumes instead of
// replaying (spec.md §4.1, §6).
func Open(cfg *routerconfig.Config, paths Paths) (*Router, error) {
	users, err := userstate.Open(paths.UserState, paths.PointsLedger, paths.UserStateMirror)
	if err != nil {
		return nil, fmt.Errorf("router: open user state: %w", err)
	}
	inflt, err := inflight.Open(paths.Inflight)
	if err != nil {
		return nil, fmt.Errorf("router: open inflight: %w", err)
	}
	gambleQ, err := gamble.Open(paths.GambleQueue)
	if err != nil {
		return nil, fmt.Errorf("router: open gamble queue: %w", err)
	}
	slots, err := slotsconfig.NewReloader(paths.SlotsConfig)
	if err != nil {
		return nil, fmt.Errorf("router: open slots config: %w", err)
	}

	var persisted offsets
	if err := busfile.LoadJSON(paths.Offsets, &persisted); err != nil {
		return nil, fmt.Errorf("router: load offsets %s: %w", paths.Offsets, err)
	}
	if persisted.Bots == nil {
		persisted.Bots = map[string]botOffsets{}
	}

	botOutboxes := map[string]*busfile.Cursor{}
	botAcks := map[string]*busfile.Cursor{}
	for _, b := range cfg.Bots {
		if !b.Enabled {
			continue
		}
		bo := persisted.Bots[b.ID]
		botOutboxes[b.ID] = busfile.NewCursor(b.Outbox, bo.OutboxOffsetBytes)
		botAcks[b.ID] = busfile.NewCursor(b.Ack, bo.AckOffsetBytes)
	}

	return &Router{
		cfg:          cfg,
		idx:          commandindex.New(cfg),
		paths:        paths,
		users:        users,
		inflt:        inflt,
		gambleQ:      gambleQ,
		slots:        slots,
		dedup:        dedup.New(),
		eventsCursor: busfile.NewCursor(paths.EventsInbox, persisted.EventsOffsetBytes),
		botOutboxes:  botOutboxes,
		botAcks:      botAcks,
	}, nil
}

// Tick runs exactly one iteration of the router main loop in spec.md
// §4.3's declared order: earning tick, poll events, poll worker outboxes
// (and acks), gamble dispatch, flush dirty state.
func (r *Router) Tick(now int64) error {
	if now-r.lastEarningTick >= EarningTickIntervalSec {
		if _, err := r.users.EarningTick(now, userstate.Earning{
			ActiveWindowSeconds: r.cfg.Earning.ActiveWindowSeconds,
			PointsPerMinute:     r.cfg.Earning.PointsPerMinuteActive,
		}, ""); err != nil {
			return fmt.Errorf("router: earning tick: %w", err)
		}
		r.lastEarningTick = now
	}

	events, err := busfile.Poll(r.eventsCursor, record.DecodeEvent)
	if err != nil {
		return fmt.Errorf("router: poll events: %w", err)
	}
	for _, ev := range events {
		if err := r.processEvent(ev, now); err != nil {
			return err
		}
	}

	for _, b := range r.cfg.Bots {
		if !b.Enabled {
			continue
		}
		if err := r.pollBotOutbox(b, now); err != nil {
			return err
		}
		if cur, ok := r.botAcks[b.ID]; ok {
			if _, err := busfile.Poll(cur, record.DecodeWorkerAck); err != nil {
				return fmt.Errorf("router: poll acks %s: %w", b.ID, err)
			}
		}
	}

	if err := r.maybeDispatchGamble(now); err != nil {
		return err
	}

	return r.flush()
}

func (r *Router) flush() error {
	if err := r.users.Flush(); err != nil {
		return fmt.Errorf("router: flush user state: %w", err)
	}
	if err := r.inflt.Flush(); err != nil {
		return fmt.Errorf("router: flush inflight: %w", err)
	}
	if err := r.gambleQ.Save(); err != nil {
		return fmt.Errorf("router: flush gamble queue: %w", err)
	}
	return r.flushOffsets()
}

// flushOffsets persists offsets.router.json iff any cursor advanced this
// tick, mirroring internal/worker.Worker.Tick's dirty-cursor discipline.
func (r *Router) flushOffsets() error {
	dirty := r.eventsCursor.Dirty()
	for _, c := range r.botOutboxes {
		dirty = dirty || c.Dirty()
	}
	for _, c := range r.botAcks {
		dirty = dirty || c.Dirty()
	}
	if !dirty {
		return nil
	}

	bots := make(map[string]botOffsets, len(r.botOutboxes))
	for id, outCur := range r.botOutboxes {
		bots[id] = botOffsets{
			OutboxOffsetBytes: outCur.Offset,
			AckOffsetBytes:    r.botAcks[id].Offset,
		}
	}
	doc := offsets{EventsOffsetBytes: r.eventsCursor.Offset, Bots: bots}
	if err := busfile.AtomicWriteJSON(r.paths.Offsets, doc); err != nil {
		return fmt.Errorf("router: persist offsets: %w", err)
	}

	r.eventsCursor.Clean()
	for _, c := range r.botOutboxes {
		c.Clean()
	}
	for _, c := range r.botAcks {
		c.Clean()
	}
	return nil
}

// emitReply appends one reply-intent record to the outbox (spec.md §4.5).
func (r *Router) emitReply(platform, replyName, text, bot string, ts int64) error {
	return busfile.Append(r.paths.RepliesOutbox, record.ReplyIntent{
		Type: "reply_intent", TS: ts, Platform: platform, ReplyName: replyName, Text: text, Bot: bot,
	})
}

func (r *Router) botByID(id string) (routerconfig.Bot, bool) {
	for _, b := range r.cfg.Bots {
		if b.ID == id {
			return b, true
		}
	}
	return routerconfig.Bot{}, false
}
