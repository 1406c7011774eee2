package supervisor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kallsen-dev/chatforge/internal/busfile"
	"github.com/kallsen-dev/chatforge/internal/logging"
	"github.com/kallsen-dev/chatforge/internal/svctopology"
)

// checkInterval is how often the supervisor polls process state and
// witness-file mtimes for staleness. It is fixed; no option or flag
// overrides it.
const checkInterval = 3 * time.Second

// instance is one running (or crashed/stopped) copy of a declared
// service, keyed by "<name>#<index>".
type instance struct {
	key      string
	svc      svctopology.Service
	index    int
	spec     Spec
	proc     *Process
	budget   *restartBudget
	stale    time.Duration
	witness  []string
	botPaths BotPaths
	isWorker bool
}

// Options configures one Supervisor run beyond what the topology file
// carries (spec.md §6 "Supervisor CLI flags").
type Options struct {
	AllowDuplicateInbox bool
	NoWorkers           bool
	NoServers           bool

	// StatusPath, when set, is rewritten atomically with every instance's
	// Snapshot on each check tick (spec.md §6 supervisor_status.json).
	StatusPath string
}

// Supervisor launches and watches every instance declared by a
// svctopology.Topology (spec.md §4.7).
type Supervisor struct {
	topo    *svctopology.Topology
	layout  BusLayout
	opts    Options
	workdir string

	instances []*instance
}

// New builds a Supervisor ready to Run. workdir is the project root used
// as the default working directory for microservices; worker instances
// get their own WorkDir from the topology entry when set.
func New(topo *svctopology.Topology, layout BusLayout, workdir string, opts Options) *Supervisor {
	s := &Supervisor{topo: topo, layout: layout, opts: opts, workdir: workdir}
	s.buildInstances()
	return s
}

func (s *Supervisor) buildInstances() {
	for _, svc := range s.topo.Services {
		if s.opts.NoWorkers && svc.Role == "worker" {
			continue
		}
		if s.opts.NoServers && svc.Role == "service" {
			continue
		}
		n := svc.EffectiveInstances(s.opts.AllowDuplicateInbox)
		for i := 0; i < n; i++ {
			s.instances = append(s.instances, s.buildInstance(svc, i, n))
		}
	}
}

func (s *Supervisor) buildInstance(svc svctopology.Service, index, total int) *instance {
	key := svc.Name
	if total > 1 {
		key = fmt.Sprintf("%s#%d", svc.Name, index)
	}

	env := map[string]string{}
	for k, v := range svc.Env {
		env[k] = v
	}
	if svc.HA == "active_standby" {
		role := "secondary"
		if index == 0 {
			role = "primary"
		}
		env["WORKER_ROLE"] = role
		env["CHAT_SUPERVISOR_INSTANCE"] = strconv.Itoa(index)
	}

	workdir := svc.WorkDir
	if workdir == "" {
		workdir = s.workdir
	}

	botPaths, isWorker := botPathsFor(svc.Name, s.layout)
	spec := Spec{Name: key, Cmd: svc.Cmd, Args: svc.Args, WorkDir: workdir, Env: env}

	return &instance{
		key:      key,
		svc:      svc,
		index:    index,
		spec:     spec,
		proc:     NewProcess(spec),
		budget:   newRestartBudget(s.topo.Restart.Max, s.topo.Restart.WindowSec),
		stale:    time.Duration(svc.StaleThresholdSec) * time.Second,
		witness:  witnessFiles(svc.Name, s.layout),
		botPaths: botPaths,
		isWorker: isWorker,
	}
}

// Run launches every instance and watches them until ctx is cancelled,
// at which point every instance is torn down (spec.md §4.7 Teardown).
func (s *Supervisor) Run(ctx context.Context) error {
	for _, inst := range s.instances {
		if err := inst.proc.Start(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.stopAll()
			return nil
		case <-ticker.C:
			s.checkAll(ctx)
		}
	}
}

func (s *Supervisor) stopAll() {
	for _, inst := range s.instances {
		inst.proc.Stop()
	}
}

func (s *Supervisor) checkAll(ctx context.Context) {
	now := time.Now()
	for _, inst := range s.instances {
		if inst.proc.Crashed() {
			s.restart(ctx, inst, now, "crashed")
			continue
		}
		if isStale(inst.witness, now, inst.stale) {
			s.restart(ctx, inst, now, "stale")
			continue
		}
		if inst.isWorker && hasBacklog(inst.botPaths.Inbox, inst.botPaths.Ack, inst.stale) {
			s.restart(ctx, inst, now, "backlog")
		}
	}
	if s.opts.StatusPath != "" {
		if err := busfile.AtomicWriteJSON(s.opts.StatusPath, s.statusDoc(now)); err != nil {
			logging.Error("write supervisor status failed", "error", err)
		}
	}
}

// statusEntry is one instance's row in supervisor_status.json.
type statusEntry struct {
	Name      string `json:"name"`
	PID       int    `json:"pid"`
	State     string `json:"state"`
	StartedAt int64  `json:"started_at_ms"`
}

func (s *Supervisor) statusDoc(now time.Time) map[string]any {
	entries := make([]statusEntry, 0, len(s.instances))
	for _, inst := range s.instances {
		snap := inst.proc.Snapshot()
		entries = append(entries, statusEntry{
			Name:      snap.Name,
			PID:       snap.PID,
			State:     string(snap.State),
			StartedAt: snap.StartedAt.UnixMilli(),
		})
	}
	return map[string]any{"updated_at_ms": now.UnixMilli(), "instances": entries}
}

func (s *Supervisor) restart(ctx context.Context, inst *instance, now time.Time, reason string) {
	if !inst.budget.Allow(now) {
		logging.Warn("restart budget exhausted, leaving instance down", "instance", inst.key, "reason", reason)
		return
	}
	logging.Warn("restarting instance", "instance", inst.key, "reason", reason)
	inst.proc.Stop()
	inst.proc = NewProcess(inst.spec)
	if err := inst.proc.Start(ctx); err != nil {
		logging.Error("restart failed", "instance", inst.key, "error", err)
	}
}

// Snapshots returns a point-in-time view of every managed instance, for
// supervisor_status.json (spec.md §6).
func (s *Supervisor) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(s.instances))
	for _, inst := range s.instances {
		out = append(out, inst.proc.Snapshot())
	}
	return out
}
