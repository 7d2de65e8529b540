package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicworks/projectwatch/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "projectwatch",
	Short: "Public infrastructure project monitoring pipeline",
	Long:  "Ingests differently-trusted feeds about public infrastructure projects, normalizes them into canonical records, and scores each project for stalled likelihood.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
