package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/objones25/mnemo/internal/memory"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [id]",
	Short: "Report store statistics and index consistency, or dump one entry",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if len(args) == 1 {
		entry, err := store.Get(ctx, memory.ID(args[0]))
		if err != nil {
			return err
		}
		return enc.Encode(entry)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	verify, err := store.Verify(ctx)
	if err != nil {
		return err
	}

	return enc.Encode(map[string]any{
		"stats":  stats,
		"verify": verify,
	})
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired entries and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		removed, err := store.CleanupExpired(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("removed %d expired entries\n", removed)
		return nil
	},
}
