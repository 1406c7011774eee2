package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

type check struct {
	name string
	ok   bool
	note string
}

func doctorCmd() *cobra.Command {
	var busDir, stateDir, configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "sanity-check a chatforge deployment's bus/state directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			checks := runChecks(busDir, stateDir, configPath)
			failed := 0
			for _, c := range checks {
				status := "ok"
				if !c.ok {
					status = "FAIL"
					failed++
				}
				fmt.Printf("[%s] %-28s %s\n", status, c.name, c.note)
			}
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&busDir, "bus-dir", "ChatManager/bus", "bus directory")
	cmd.Flags().StringVar(&stateDir, "state-dir", "ChatManager/state", "state directory")
	cmd.Flags().StringVar(&configPath, "config", "config.json", "router configuration file")
	return cmd
}

func runChecks(busDir, stateDir, configPath string) []check {
	var out []check

	out = append(out, dirCheck("config file", configPath, false))
	out = append(out, dirCheck("bus directory", busDir, true))
	out = append(out, dirCheck("state directory", stateDir, true))
	out = append(out, fileCheck("events inbox", filepath.Join(busDir, "events.inbox.jsonl")))
	out = append(out, staleLockCheck(stateDir))

	return out
}

func dirCheck(name, path string, wantDir bool) check {
	info, err := os.Stat(path)
	if err != nil {
		return check{name: name, ok: false, note: err.Error()}
	}
	if wantDir && !info.IsDir() {
		return check{name: name, ok: false, note: path + " is not a directory"}
	}
	return check{name: name, ok: true, note: path}
}

func fileCheck(name, path string) check {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return check{name: name, ok: true, note: path + " (not yet created)"}
		}
		return check{name: name, ok: false, note: err.Error()}
	}
	return check{name: name, ok: true, note: path}
}

// staleLockCheck flags any .json file in the state directory whose name
// contains "lock" and whose mtime is more than 10 minutes old. It looks at
// file age only; it does not check whether the recorded process is still
// running.
func staleLockCheck(stateDir string) check {
	entries, err := os.ReadDir(stateDir)
	if err != nil {
		return check{name: "lock files", ok: true, note: "state directory not readable yet"}
	}
	var stale []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if (containsLock(name)) && time.Since(info.ModTime()) > 10*time.Minute {
			stale = append(stale, name)
		}
	}
	if len(stale) > 0 {
		return check{name: "lock files", ok: false, note: fmt.Sprintf("stale: %v", stale)}
	}
	return check{name: "lock files", ok: true, note: "none stale"}
}

func containsLock(name string) bool {
	for i := 0; i+4 <= len(name); i++ {
		if name[i:i+4] == "lock" {
			return true
		}
	}
	return false
}
