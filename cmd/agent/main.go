// Command agent is the UE Worker Pool daemon and its per-frame entrypoints:
// `service` runs the persistent pool, `run-task` submits a task to an
// already-running pool and waits for it, `run-one-shot-plan` launches UE
// synchronously with no pool involved at all.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agent",
	Short: "UE Worker Pool daemon and frame entrypoints",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
