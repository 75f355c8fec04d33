package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gymbook/internal/config"
	"gymbook/internal/setup"
)

// setupCmd prepares the environment for booking runs
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Prepare the environment (browser check, .env scaffold, engine install)",
	Long: `Runs the setup routine:
  1. Verify a browser runtime is installed (fatal when absent)
  2. Create the data directory and scaffold .env from .env.example
  3. Download the managed browser engine (best-effort)
  4. Print usage instructions

Safe to re-run; an existing .env is never overwritten.`,
	RunE: runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	doctor := setup.New(setup.Params{
		Logger:     logger,
		Out:        cmd.OutOrStdout(),
		DataDir:    cfg.DataDir,
		BrowserBin: cfg.BrowserBin,
	})
	return doctor.Run(ctx)
}
