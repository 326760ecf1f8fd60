package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "taskfan",
		Short: "Dependency-aware parallel task runner",
		Long: `taskfan decomposes tasks into dependency graphs and executes the
subtasks in parallel, bounded by a worker limit. A subtask runs as soon as
everything it depends on has completed; failures skip the downstream chain
instead of aborting independent work.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newHistoryCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
