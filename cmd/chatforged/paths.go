package main

import (
	"path/filepath"

	"github.com/kallsen-dev/chatforge/internal/routerconfig"
)

// busStatePaths derives the fixed bus/state directory layout (spec.md §6:
// "under ChatManager/bus/", "under ChatManager/state/") from the two root
// directories every subcommand accepts via --bus-dir/--state-dir.
type busStatePaths struct {
	busDir   string
	stateDir string
}

func (p busStatePaths) bus(name string) string   { return filepath.Join(p.busDir, name) }
func (p busStatePaths) state(name string) string { return filepath.Join(p.stateDir, name) }

func (p busStatePaths) eventsInbox() string   { return p.bus("events.inbox.jsonl") }
func (p busStatePaths) repliesOutbox() string { return p.bus("replies.outbox.jsonl") }
func (p busStatePaths) overlayOutbox() string { return p.bus("overlay.outbox.jsonl") }

func (p busStatePaths) botInbox(id string) string      { return p.bus(id + ".inbox.jsonl") }
func (p busStatePaths) botOutbox(id string) string      { return p.bus(id + ".outbox.jsonl") }
func (p busStatePaths) botAck(id string) string         { return p.bus(id + ".ack.jsonl") }
func (p busStatePaths) botDeadLetter(id string) string   { return p.bus("deadletter." + id + ".jsonl") }

func (p busStatePaths) userState() string       { return p.state("user_state.json") }
func (p busStatePaths) inflight() string        { return p.state("inflight.json") }
func (p busStatePaths) gambleQueue() string     { return p.state("gamble_queue.json") }
func (p busStatePaths) pointsLedger() string    { return p.state("points_ledger.jsonl") }
func (p busStatePaths) offsetsIngestor() string { return p.state("offsets.ingestor.json") }
func (p busStatePaths) offsetsRouter() string   { return p.state("offsets.router.json") }
func (p busStatePaths) offsetsEmitter() string  { return p.state("offsets.emitter.json") }
func (p busStatePaths) supervisorStatus() string { return p.state("supervisor_status.json") }

func (p busStatePaths) workerOffsets(id string) string {
	return p.state("offsets." + id + ".json")
}

func loadConfig(path string) (*routerconfig.Config, error) {
	return routerconfig.Load(path)
}
