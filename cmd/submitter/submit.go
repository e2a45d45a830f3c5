package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencueforunreal/ue-worker-pool/internal/submitjob"
)

var submitSpecPath string

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Validate a submit_spec.json and submit it to the outer scheduler",
	RunE:  runSubmit,
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().StringVar(&submitSpecPath, "spec", "", "path to submit_spec.json (required)")
	submitCmd.MarkFlagRequired("spec")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(submitSpecPath)
	if err != nil {
		return writeResultAndExit(submitjob.Result{OK: false, Error: fmt.Sprintf("failed to read spec: %v", err)})
	}

	var spec submitjob.Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return writeResultAndExit(submitjob.Result{OK: false, Error: fmt.Sprintf("failed to parse spec: %v", err)})
	}

	return writeResultAndExit(submitjob.Submit(&spec))
}

// writeResultAndExit writes a single JSON line to stdout and exits 0 on
// result.OK, 1 otherwise, per the CLI surface's documented contract.
func writeResultAndExit(result submitjob.Result) error {
	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(result); err != nil {
		return err
	}
	if !result.OK {
		os.Exit(1)
	}
	os.Exit(0)
	return nil
}
