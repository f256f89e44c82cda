package main

import (
	"fmt"
	"os"

	"aiswo-backend/internal/config"
	"aiswo-backend/internal/helpers"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg     *config.Config
	logger  *zap.Logger
	backend *helpers.Backend
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "aiswo-admin",
	Short: "Administrative tasks for the AISWO bin monitoring backend",
	Long: `aiswo-admin manages admin accounts, inspects bins and migrates data
using the same configuration as the server (.env, CONFIG_FILE, environment).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		// The CLI never seeds; it works on whatever the backend holds.
		cfg.SeedDemo = false
		if err := cfg.Validate(); err != nil {
			return err
		}

		level := "warn"
		if verbose {
			level = "debug"
		}
		logger, err = helpers.NewLogger(level)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		backend, err = helpers.OpenStore(cmd.Context(), cfg, logger)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if backend != nil {
			_ = backend.Store.Close()
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(createAdminCmd, resetPasswordCmd, checkBinsCmd, listOperatorsCmd, migrateBinsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
