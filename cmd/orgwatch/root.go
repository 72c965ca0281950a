package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/okian/orgwatch/internal/config"
	"github.com/okian/orgwatch/pkg/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "orgwatch",
	Short:        "Offline organization risk pipeline",
	Long:         "Extracts organizations from reddit reports, merges and scores them, and decides which profiles may be published.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		// stdout carries command output, so logs go to stderr
		if err := logger.InitWithFormat(logger.Format(cfg.LogFormat), cmd.ErrOrStderr()); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return logger.SetLevelString(cfg.LogLevel)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
