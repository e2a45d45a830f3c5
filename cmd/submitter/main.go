// Command submitter writes a job spec into the outer OpenCue-style job
// scheduler and checks connectivity to it. It never opens a real Cuebot
// connection itself (see internal/submitjob): its job is glue, validating
// and echoing the submit spec, or dialing the configured host/port.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "submitter",
	Short: "Submit UE render jobs to the outer job scheduler",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
