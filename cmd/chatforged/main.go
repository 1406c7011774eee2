// Command chatforged is the chatforge process family: ingestor, router,
// emitter, worker and supervisor each run as a subcommand of the same
// binary (spec.md §2), matching the teacher's single-binary-many-
// subcommands layout (_examples/ehrlich-b-wingthing/cmd/wt/main.go).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "chatforged",
		Short: "chatforge component processes (ingestor, router, emitter, worker, supervisor)",
	}

	root.AddCommand(
		ingestorCmd(),
		routerCmd(),
		emitterCmd(),
		workerCmd(),
		supervisorCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
