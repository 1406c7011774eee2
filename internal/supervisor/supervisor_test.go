package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kallsen-dev/chatforge/internal/svctopology"
)

func testTopology() *svctopology.Topology {
	return &svctopology.Topology{
		OS: "auto",
		Restart: svctopology.Restart{
			Max:       30,
			WindowSec: 300,
		},
		Services: []svctopology.Service{
			{Name: "router", Role: "service", Cmd: "chatforged", Args: []string{"router"}, Instances: 1, StaleThresholdSec: 120},
			{Name: "spotify", Role: "worker", Cmd: "chatforged", Args: []string{"worker", "--bot", "spotify"}, HA: "active_standby", Instances: 2, StaleThresholdSec: 60},
			{Name: "gamble", Role: "worker", Cmd: "chatforged", Args: []string{"worker", "--bot", "gamble"}, Instances: 3, StaleThresholdSec: 60},
		},
	}
}

func testLayout() BusLayout {
	return BusLayout{
		EventsInbox:   "/bus/events.inbox.jsonl",
		RepliesOutbox: "/bus/replies.outbox.jsonl",
		OverlayOutbox: "/bus/overlay.outbox.jsonl",
		Bots: []BotPaths{
			{ID: "spotify", Inbox: "/bus/spotify.inbox.jsonl", Outbox: "/bus/spotify.outbox.jsonl", Ack: "/bus/spotify.ack.jsonl"},
			{ID: "gamble", Inbox: "/bus/gamble.inbox.jsonl", Outbox: "/bus/gamble.outbox.jsonl", Ack: "/bus/gamble.ack.jsonl"},
		},
	}
}

func TestBuildInstancesHonorsActiveStandbyRoleEnv(t *testing.T) {
	s := New(testTopology(), testLayout(), "/project", Options{})

	var primary, secondary *instance
	for _, inst := range s.instances {
		switch inst.key {
		case "spotify#0":
			primary = inst
		case "spotify#1":
			secondary = inst
		}
	}
	if primary == nil || secondary == nil {
		t.Fatalf("want two spotify instances, got keys: %v", keysOf(s.instances))
	}
	if primary.spec.Env["WORKER_ROLE"] != "primary" || primary.spec.Env["CHAT_SUPERVISOR_INSTANCE"] != "0" {
		t.Fatalf("unexpected primary env: %+v", primary.spec.Env)
	}
	if secondary.spec.Env["WORKER_ROLE"] != "secondary" || secondary.spec.Env["CHAT_SUPERVISOR_INSTANCE"] != "1" {
		t.Fatalf("unexpected secondary env: %+v", secondary.spec.Env)
	}
}

func TestBuildInstancesRefusesDuplicateWorkerWithoutHA(t *testing.T) {
	s := New(testTopology(), testLayout(), "/project", Options{})

	count := 0
	for _, inst := range s.instances {
		if inst.svc.Name == "gamble" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("want exactly 1 gamble instance without ha, got %d", count)
	}
}

func TestBuildInstancesAllowDuplicateOverrideHonorsInstances(t *testing.T) {
	s := New(testTopology(), testLayout(), "/project", Options{AllowDuplicateInbox: true})

	count := 0
	for _, inst := range s.instances {
		if inst.svc.Name == "gamble" {
			count++
		}
	}
	if count != 3 {
		t.Fatalf("want 3 gamble instances with the override, got %d", count)
	}
}

func TestBuildInstancesWiresWitnessFilesPerComponent(t *testing.T) {
	s := New(testTopology(), testLayout(), "/project", Options{})

	var router *instance
	for _, inst := range s.instances {
		if inst.svc.Name == "router" {
			router = inst
		}
	}
	if router == nil {
		t.Fatal("expected a router instance")
	}
	want := map[string]bool{
		"/bus/replies.outbox.jsonl": true,
		"/bus/overlay.outbox.jsonl": true,
		"/bus/spotify.inbox.jsonl":  true,
		"/bus/gamble.inbox.jsonl":   true,
	}
	if len(router.witness) != len(want) {
		t.Fatalf("unexpected witness set: %v", router.witness)
	}
	for _, p := range router.witness {
		if !want[p] {
			t.Fatalf("unexpected witness file %s", p)
		}
	}
}

func TestNoWorkersOptionSkipsWorkerInstances(t *testing.T) {
	s := New(testTopology(), testLayout(), "/project", Options{NoWorkers: true})
	for _, inst := range s.instances {
		if inst.svc.Role == "worker" {
			t.Fatalf("expected no worker instances, found %s", inst.key)
		}
	}
}

func TestCheckAllWritesStatusFileWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	statusPath := filepath.Join(dir, "supervisor_status.json")

	topo := &svctopology.Topology{
		Restart: svctopology.Restart{Max: 30, WindowSec: 300},
		Services: []svctopology.Service{
			{Name: "router", Role: "service", Cmd: "sh", Args: []string{"-c", "sleep 5"}, Instances: 1, StaleThresholdSec: 120},
		},
	}
	s := New(topo, BusLayout{}, dir, Options{StatusPath: statusPath})
	defer s.stopAll()

	ctx := context.Background()
	for _, inst := range s.instances {
		if err := inst.proc.Start(ctx); err != nil {
			t.Fatalf("start: %v", err)
		}
	}
	s.checkAll(ctx)

	data, err := os.ReadFile(statusPath)
	if err != nil {
		t.Fatalf("read status file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected a non-empty status file")
	}
}

func TestStatusDocIncludesEveryInstance(t *testing.T) {
	s := New(testTopology(), testLayout(), "/project", Options{})
	doc := s.statusDoc(time.Now())
	entries, ok := doc["instances"].([]statusEntry)
	if !ok {
		t.Fatalf("unexpected instances type: %T", doc["instances"])
	}
	if len(entries) != len(s.instances) {
		t.Fatalf("want %d entries, got %d", len(s.instances), len(entries))
	}
}

func keysOf(instances []*instance) []string {
	out := make([]string, 0, len(instances))
	for _, inst := range instances {
		out = append(out, inst.key)
	}
	return out
}
