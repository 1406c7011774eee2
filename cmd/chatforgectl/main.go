// Command chatforgectl is the operator's inspection CLI for a running
// chatforge deployment: supervisor status, tailing bus files, and a quick
// doctor check over the bus/state directories (spec.md §6), mirroring the
// teacher's read-only inspection subcommands
// (_examples/ehrlich-b-wingthing/cmd/wt/main.go's statusCmd/logCmd).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "chatforgectl",
		Short: "inspect a running chatforge deployment",
	}

	root.AddCommand(
		statusCmd(),
		tailCmd(),
		doctorCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
