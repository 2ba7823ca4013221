package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gridcast/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "gridcast",
	Short: "Hex-grid demand signal and short-horizon forecast service",
	Long:  "Converts anonymized point traces into a privacy-suppressed hexagonal demand heatmap and extrapolates it minutes ahead with a single-snapshot heuristic.",
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
