// Package svctopology loads the supervisor's process-topology config
// (SPEC_FULL.md §6): a YAML file naming every component to launch, its
// command, and its HA/restart policy, generalizing the original
// ChatSupervisor's hardcoded component list into data (grounded on
// original_source/ChatSupervisor/supervisor_inspector.py's ProcSpec).
package svctopology

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Restart bounds how many times the supervisor will relaunch a crashed or
// stale component within a sliding window (spec.md §4.7).
type Restart struct {
	Max      int `yaml:"max"`
	WindowSec int `yaml:"window_sec"`
}

// Service is one component the supervisor manages: a ChatManager
// microservice (ingestor/router/emitter) or a bot worker.
type Service struct {
	Name              string            `yaml:"name"`
	Role              string            `yaml:"role"` // "service" | "worker"
	Cmd               string            `yaml:"cmd"`
	Args              []string          `yaml:"args"`
	WorkDir           string            `yaml:"workdir"`
	Env               map[string]string `yaml:"env"`
	HA                string            `yaml:"ha"` // "" | "active_standby"
	Instances         int               `yaml:"instances"`
	StaleThresholdSec int               `yaml:"stale_threshold_sec"`
}

// Topology is the full supervisor config file.
type Topology struct {
	Services []Service `yaml:"services"`
	OS       string    `yaml:"os"` // "auto" | "windows" | "mac"
	Restart  Restart   `yaml:"restart"`
}

// Load reads and parses path, applying the same defaults the supervisor
// would use for an absent or partially specified field.
func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("svctopology: read %s: %w", path, err)
	}
	var t Topology
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("svctopology: parse %s: %w", path, err)
	}
	applyDefaults(&t)
	return &t, nil
}

func applyDefaults(t *Topology) {
	if t.OS == "" {
		t.OS = "auto"
	}
	if t.Restart.Max <= 0 {
		t.Restart.Max = 30
	}
	if t.Restart.WindowSec <= 0 {
		t.Restart.WindowSec = 300
	}
	for i := range t.Services {
		s := &t.Services[i]
		if s.Role == "" {
			s.Role = "service"
		}
		if s.Instances <= 0 {
			s.Instances = 1
		}
		if s.StaleThresholdSec <= 0 {
			s.StaleThresholdSec = 120
		}
	}
}

// EffectiveInstances returns how many processes to launch for s, refusing
// to exceed 1 unless s declares active_standby HA (spec.md §4.7: "without
// ha, refuses to launch >1 instance of the same worker"). allowDuplicate
// mirrors the supervisor's --allow-duplicate-inbox override flag.
func (s Service) EffectiveInstances(allowDuplicate bool) int {
	if s.HA == "active_standby" || allowDuplicate {
		return s.Instances
	}
	if s.Instances > 1 {
		return 1
	}
	return s.Instances
}
