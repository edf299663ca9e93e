package cli

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/objones25/mnemo/internal/rag"
	"github.com/objones25/mnemo/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	gen, err := buildGenerator(cfg)
	if err != nil {
		return err
	}
	if gen == nil {
		log.Info().Msg("semantic scoring disabled")
	}

	processor, err := rag.NewProcessor(store, gen, cfg.Retrieval.RagConfig())
	if err != nil {
		return err
	}

	srv := server.New(store, processor, VersionString())
	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	return srv.Serve(ctx, cfg.Server.Listen, shutdownTimeout)
}
