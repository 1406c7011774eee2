package router

import (
	"fmt"

	"github.com/kallsen-dev/chatforge/internal/busfile"
	"github.com/kallsen-dev/chatforge/internal/gamble"
	"github.com/kallsen-dev/chatforge/internal/record"
	"github.com/kallsen-dev/chatforge/internal/routerconfig"
)

// maybeDispatchGamble evaluates the gamble dispatch predicate and, if it
// holds, pops the queue head into the active slot and dispatches it
// (spec.md §4.4).
func (r *Router) maybeDispatchGamble(now int64) error {
	bot, ok := r.botByID("gamble")
	if !ok || !bot.Enabled {
		return nil
	}
	if !r.gambleQ.CanDispatch(now) {
		return nil
	}
	task := r.gambleQ.PopForDispatch()
	if err := busfile.Append(bot.Inbox, task); err != nil {
		return fmt.Errorf("router: dispatch gamble task: %w", err)
	}
	return nil
}

// pollBotOutbox drains one bot's outbox, matching each reply to its
// inflight entry (spec.md §4.3 "Worker reply intake").
func (r *Router) pollBotOutbox(b routerconfig.Bot, now int64) error {
	cur, ok := r.botOutboxes[b.ID]
	if !ok {
		return nil
	}
	replies, err := busfile.Poll(cur, record.DecodeWorkerReply)
	if err != nil {
		return fmt.Errorf("router: poll outbox %s: %w", b.ID, err)
	}
	for _, reply := range replies {
		if b.ID == "gamble" && r.gambleQ.IsActive(reply.TaskID) {
			if err := r.completeGamble(reply, now); err != nil {
				return err
			}
			continue
		}
		if err := r.deliverWorkerReply(b.ID, reply, now); err != nil {
			return err
		}
	}
	return nil
}

// deliverWorkerReply matches a non-gamble reply to its inflight entry,
// emitting up to 3 reply-intent messages attributed to the inflight
// reply_name, then drops the inflight entry (spec.md §4.3). Replies with no
// matching inflight entry are dead-lettered as orphan_reply.
func (r *Router) deliverWorkerReply(botID string, reply record.WorkerReply, now int64) error {
	entry, ok := r.inflt.Lookup(reply.TaskID)
	if !ok {
		return r.deadLetter(botID, reply, "orphan_reply", now)
	}

	messages := reply.Messages
	if len(messages) > 3 {
		messages = messages[:3]
	}
	for _, msg := range messages {
		if err := r.emitReply(entry.Platform, entry.ReplyName, msg, botID, now); err != nil {
			return err
		}
	}
	for _, ov := range reply.OverlayEvents {
		if err := r.forwardOverlayEvent(ov, reply.TaskID, now); err != nil {
			return err
		}
	}
	r.inflt.Resolve(reply.TaskID)
	return nil
}

// deadLetter appends a reply with no matching inflight entry to
// deadletter.<bot>.jsonl (spec.md §4.3, §7).
func (r *Router) deadLetter(botID string, reply record.WorkerReply, reason string, now int64) error {
	path := fmt.Sprintf(r.paths.DeadLetterPattern, botID)
	return busfile.Append(path, record.DeadLetter{Type: "deadletter", TS: now, Bot: botID, Reason: reason, Reply: reply})
}

// forwardOverlayEvent appends one overlay event to overlay.outbox with a
// synthesized event_id (spec.md §4.4 step 5).
func (r *Router) forwardOverlayEvent(ov record.OverlayBlob, taskID string, now int64) error {
	return busfile.Append(r.paths.OverlayOutbox, record.OverlayEvent{
		Type: "overlay_event", TS: now, Overlay: ov.Overlay, Event: ov.Event,
		EventID: "evt_" + taskID, Payload: ov.Payload,
	})
}

// completeGamble implements spec.md §4.4's completion steps 1-6 once the
// gamble worker's reply for the active task arrives.
func (r *Router) completeGamble(reply record.WorkerReply, now int64) error {
	active := r.gambleQ.Active()
	if active == nil {
		return nil
	}

	cfg, err := r.slots.Current()
	if err != nil {
		return fmt.Errorf("router: reload slots config: %w", err)
	}

	var explicitMult *int
	var resultCode string
	var symbols []string
	if reply.Game != nil {
		if v, ok := reply.Game["multiplier"].(float64); ok {
			m := int(v)
			explicitMult = &m
		}
		if v, ok := reply.Game["result_code"].(string); ok {
			resultCode = v
		}
		if raw, ok := reply.Game["symbols"].([]any); ok {
			for _, s := range raw {
				if str, ok := s.(string); ok {
					symbols = append(symbols, str)
				}
			}
		}
	}

	mult := gamble.ResolveMultiplier(explicitMult, symbols, resultCode, cfg)

	var explicitPayout *int
	if reply.Game != nil {
		if v, ok := reply.Game["payout"].(float64); ok {
			p := int(v)
			explicitPayout = &p
		}
	}
	payout, net := gamble.ResolvePayout(explicitPayout, active.Bet, mult)

	note := fmt.Sprintf("slots; result_code=%s; mult=%d; bet=%d; payout=%d; net=%d", resultCode, mult, active.Bet, payout, net)
	if err := r.users.ApplyNet(active.UserKey, active.Platform, now, net, active.Command, "gamble", note); err != nil {
		return err
	}
	ptsAfter := r.users.Points(active.UserKey)

	var resultLine string
	if mult > 0 && payout > 0 {
		resultLine = fmt.Sprintf("WIN x%d! Won %d pts (net +%d pts). Total: %d pts.", mult, payout, net, ptsAfter)
	} else {
		resultLine = fmt.Sprintf("You lose. Lost %d pts. Total: %d pts.", active.Bet, ptsAfter)
	}
	resultLine += fmt.Sprintf(" Receipt: !%s cost %d pts. New total: %d pts.", active.Command, active.Bet, ptsAfter)
	if err := r.emitReply(active.Platform, active.ReplyName, resultLine, "gamble", now); err != nil {
		return err
	}

	for _, ov := range reply.OverlayEvents {
		if err := r.forwardOverlayEvent(ov, active.TaskID, now); err != nil {
			return err
		}
	}

	r.gambleQ.MarkDone(now, reply.BlockingMS)
	return nil
}
