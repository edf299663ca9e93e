// Package cli implements the mnemod command tree.
package cli

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/objones25/mnemo/internal/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "mnemod",
	Short: "Context storage and retrieval engine for AI-assistant pipelines",
	Long: "mnemod stores short context entries with metadata, serves ranked retrieval\n" +
		"over them, and compresses embeddings into a compact ternary form for\n" +
		"semantic similarity.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(cleanupCmd)
}

// loadConfig reads the configuration named by --config (or defaults) and
// applies its log section globally.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	return cfg, nil
}
