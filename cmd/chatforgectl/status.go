package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

type statusDoc struct {
	UpdatedAtMS int64 `json:"updated_at_ms"`
	Instances   []struct {
		Name        string `json:"name"`
		PID         int    `json:"pid"`
		State       string `json:"state"`
		StartedAtMS int64  `json:"started_at_ms"`
	} `json:"instances"`
}

func statusCmd() *cobra.Command {
	var stateDir string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "print the supervisor's last-reported process status",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(stateDir, "supervisor_status.json")
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			var doc statusDoc
			if err := json.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}

			updated := time.UnixMilli(doc.UpdatedAtMS)
			fmt.Printf("updated %s (%s ago)\n", updated.Format(time.RFC3339), time.Since(updated).Round(time.Second))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPID\tSTATE\tSTARTED")
			for _, inst := range doc.Instances {
				started := "-"
				if inst.StartedAtMS > 0 {
					started = time.UnixMilli(inst.StartedAtMS).Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", inst.Name, inst.PID, inst.State, started)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&stateDir, "state-dir", "ChatManager/state", "state directory")
	return cmd
}
