package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/opencueforunreal/ue-worker-pool/internal/config"
	"github.com/opencueforunreal/ue-worker-pool/internal/submitjob"
)

var (
	testHost string
	testPort int
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Check connectivity to the configured Cuebot host",
	RunE:  runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)
	testCmd.Flags().StringVar(&testHost, "host", "", "Cuebot host (overrides CUEBOT_HOST)")
	testCmd.Flags().IntVar(&testPort, "port", 0, "Cuebot port (overrides CUEBOT_PORT)")
}

func runTest(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	host := testHost
	if host == "" {
		host = cfg.Cuebot.Host
	}
	port := testPort
	if port == 0 {
		port = cfg.Cuebot.Port
	}

	return writeResultAndExit(submitjob.TestConnection(host, port, 5*time.Second))
}
