package router

import (
	"encoding/json"
	"fmt"

	"github.com/kallsen-dev/chatforge/internal/busfile"
	"github.com/kallsen-dev/chatforge/internal/commandindex"
	"github.com/kallsen-dev/chatforge/internal/gamble"
	"github.com/kallsen-dev/chatforge/internal/inflight"
	"github.com/kallsen-dev/chatforge/internal/record"
	"github.com/kallsen-dev/chatforge/internal/routerconfig"
	"github.com/kallsen-dev/chatforge/internal/slotsconfig"
)

// processEvent awards event-driven points, marks the user active, and if
// the event's text is a command, runs it through the gate chain (spec.md
// §4.3).
func (r *Router) processEvent(ev record.Event, now int64) error {
	var award int
	switch record.EventType(ev.Type) {
	case record.EventChat:
		award = r.cfg.Earning.PointsPerMessage
	case record.EventLike:
		award = r.cfg.Earning.PointsPerLike
	case record.EventShare:
		award = r.cfg.Earning.PointsPerShare
	}
	if err := r.users.Touch(ev.UserKey, ev.Platform, ev.TS, award, "_"+ev.Type, ev.Type+" event"); err != nil {
		return fmt.Errorf("router: touch user %s: %w", ev.UserKey, err)
	}

	inv, ok := commandindex.Parse(ev.Text)
	if !ok {
		return nil
	}

	if r.dedup.Seen(ev.Platform, ev.UserKey, ev.ReplyName, inv.Name, inv.Args, ev.TS) {
		return nil
	}

	cmd, isManager, found := r.idx.Resolve(inv.Name)
	if !found {
		return nil
	}

	userTier := record.ParseTier(ev.Tier)
	if !commandindex.TierAllows(cmd, userTier) {
		return nil
	}

	if isManager {
		return r.runManagerCommand(cmd, ev, userTier, inv.Args, now)
	}
	return r.runBotCommand(cmd, ev, userTier, inv.Args, now)
}

// cooldownGate checks and, on success, stamps the per-user cooldown clock;
// on rejection it emits the two-line cooldown reply (spec.md §4.3).
func (r *Router) cooldownGate(cmd *routerconfig.Command, ev record.Event, userTier record.Tier, cost int, bot string, now int64) (bool, error) {
	lastExec := r.users.LastExec(ev.UserKey, cmd.Command)
	result := commandindex.CheckCooldown(cmd, userTier, lastExec, now)
	if !result.Allowed {
		if err := r.emitReply(ev.Platform, ev.ReplyName, fmt.Sprintf("!%s is on cooldown for %ds.", cmd.Command, result.RemainingSec), bot, now); err != nil {
			return false, err
		}
		pts := r.users.Points(ev.UserKey)
		note := fmt.Sprintf("Receipt: !%s cost %d pts (not charged - cooldown). Total: %d pts.", cmd.Command, cost, pts)
		if err := r.emitReply(ev.Platform, ev.ReplyName, note, bot, now); err != nil {
			return false, err
		}
		return false, nil
	}
	r.users.StampExec(ev.UserKey, cmd.Command, now)
	return true, nil
}

// runManagerCommand executes points/spothelp in-process (spec.md §4.3).
func (r *Router) runManagerCommand(cmd *routerconfig.Command, ev record.Event, userTier record.Tier, args string, now int64) error {
	ok, err := r.cooldownGate(cmd, ev, userTier, 0, "manager", now)
	if err != nil || !ok {
		return err
	}

	pts := r.users.Points(ev.UserKey)

	switch cmd.Command {
	case "points":
		msg := fmt.Sprintf("You have %d points. Receipt: !%s cost %d pts. New total: %d pts.", pts, cmd.Command, cmd.CostPoints, pts)
		return r.emitReply(ev.Platform, ev.ReplyName, msg, "manager", now)
	case "spothelp":
		chunks := commandindex.VisibleHelp(r.cfg.Help.HeaderLines, r.idx.Bots.All(), userTier, pts)
		for _, chunk := range chunks {
			if err := r.emitReply(ev.Platform, ev.ReplyName, chunk, "manager", now); err != nil {
				return err
			}
		}
		return nil
	default:
		return r.emitReply(ev.Platform, ev.ReplyName, fmt.Sprintf("Receipt: !%s cost %d pts. Total: %d pts.", cmd.Command, cmd.CostPoints, pts), "manager", now)
	}
}

// runBotCommand handles bot-routed commands, splitting off gamble's
// dynamic-wager path before the static cost_points deduction (spec.md
// §4.3, §4.4).
func (r *Router) runBotCommand(cmd *routerconfig.Command, ev record.Event, userTier record.Tier, args string, now int64) error {
	botID := cmd.Bot
	if botID == "" {
		botID = "manager"
	}

	isGamble := botID == "gamble"
	cost := cmd.CostPoints
	if isGamble {
		cost = 0 // gamble shows cost 0 on cooldown rejection; wager is dynamic
	}

	ok, err := r.cooldownGate(cmd, ev, userTier, cost, botID, now)
	if err != nil || !ok {
		return err
	}

	if isGamble {
		return r.enqueueGamble(cmd, ev, now)
	}

	bot, known := r.botByID(botID)
	if !known || !bot.Enabled {
		return nil
	}

	ptsBefore := r.users.Points(ev.UserKey)
	if cmd.CostPoints > 0 && ptsBefore < cmd.CostPoints {
		msg := fmt.Sprintf("You need %d points for that command. You have %d. Receipt: !%s cost %d pts (not charged). Total: %d pts.",
			cmd.CostPoints, ptsBefore, cmd.Command, cmd.CostPoints, ptsBefore)
		return r.emitReply(ev.Platform, ev.ReplyName, msg, botID, now)
	}

	ptsAfter := ptsBefore
	if cmd.CostPoints > 0 {
		ok, err := r.users.Spend(ev.UserKey, ev.Platform, now, cmd.CostPoints, cmd.Command, botID, "command_cost")
		if err != nil {
			return err
		}
		if !ok {
			return nil // raced with another deduction between the balance check and here
		}
		ptsAfter = r.users.Points(ev.UserKey)
	}

	if err := r.emitReply(ev.Platform, ev.ReplyName,
		fmt.Sprintf("Receipt: !%s cost %d pts. New total: %d pts.", cmd.Command, cmd.CostPoints, ptsAfter), botID, now); err != nil {
		return err
	}

	taskID := newTaskID("t_", 12)
	task := record.Task{
		Type: "task", TaskID: taskID, TS: now, Bot: botID, Action: cmd.Action, Command: cmd.Command,
		Args: args, Platform: ev.Platform, ReplyName: ev.ReplyName, UserKey: ev.UserKey, UserTier: userTier.String(),
	}
	if err := busfile.Append(bot.Inbox, task); err != nil {
		return fmt.Errorf("router: dispatch to %s: %w", botID, err)
	}
	r.inflt.Register(taskID, inflight.Entry{Bot: botID, Platform: ev.Platform, ReplyName: ev.ReplyName, UserKey: ev.UserKey, Command: cmd.Command, TS: now})
	return nil
}

// enqueueGamble implements spec.md §4.4 steps 1-4.
func (r *Router) enqueueGamble(cmd *routerconfig.Command, ev record.Event, now int64) error {
	points := r.users.Points(ev.UserKey)
	reserved := r.gambleQ.ReservedForUser(ev.UserKey)
	spendable := points - reserved
	if spendable < 0 {
		spendable = 0
	}

	inv, _ := commandindex.Parse(ev.Text)
	bet := gamble.ParseBet(inv.Args, spendable)

	if bet <= 0 {
		if err := r.emitReply(ev.Platform, ev.ReplyName, fmt.Sprintf("You have %d points available to wager.", spendable), "gamble", now); err != nil {
			return err
		}
		return r.emitReply(ev.Platform, ev.ReplyName,
			fmt.Sprintf("Receipt: !%s cost 0 pts. New total: %d pts. Available to wager: %d pts.", cmd.Command, points, spendable), "gamble", now)
	}
	if bet > spendable {
		if err := r.emitReply(ev.Platform, ev.ReplyName, fmt.Sprintf("Max wager is %d.", spendable), "gamble", now); err != nil {
			return err
		}
		return r.emitReply(ev.Platform, ev.ReplyName,
			fmt.Sprintf("Receipt: !%s cost 0 pts. New total: %d pts. Available to wager: %d pts.", cmd.Command, points, spendable), "gamble", now)
	}

	cfg, err := r.slots.Current()
	if err != nil {
		return fmt.Errorf("router: load slots config: %w", err)
	}
	cfgMap, err := slotsConfigToMap(cfg)
	if err != nil {
		return fmt.Errorf("router: snapshot slots config: %w", err)
	}
	task := record.Task{
		Type: "task", TaskID: newTaskID("g_", 10), TS: now, Bot: "gamble", Action: cmd.Action, Command: cmd.Command,
		Args: inv.Args, Platform: ev.Platform, ReplyName: ev.ReplyName, UserKey: ev.UserKey, UserTier: ev.Tier,
		Bet: bet, AvailablePoints: spendable, SlotsConfig: cfgMap,
	}
	pos := r.gambleQ.Enqueue(task)
	availableAfter := spendable - bet
	if availableAfter < 0 {
		availableAfter = 0
	}

	if err := r.emitReply(ev.Platform, ev.ReplyName, fmt.Sprintf("You're queued (#%d). Wager: %d.", pos, bet), "gamble", now); err != nil {
		return err
	}
	if err := r.emitReply(ev.Platform, ev.ReplyName,
		fmt.Sprintf("Receipt: !%s cost %d pts (reserved wager). New total: %d pts. Available to wager: %d pts.", cmd.Command, bet, points, availableAfter),
		"gamble", now); err != nil {
		return err
	}
	return r.users.Touch(ev.UserKey, ev.Platform, now, 0, cmd.Command, fmt.Sprintf("wager_reserved=%d; available_after=%d", bet, availableAfter))
}

// slotsConfigToMap snapshots a slots config into the task's slots_config
// field (spec.md §3 Task: "slots-config snapshot"), so a worker that picks
// up the task later sees the config as it was at enqueue time even if the
// file is hot-reloaded in between.
func slotsConfigToMap(cfg *slotsconfig.Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
