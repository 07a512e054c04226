package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/pawlabs/breedai-go/internal/enrich"
	"github.com/pawlabs/breedai-go/internal/logging"
	"github.com/pawlabs/breedai-go/internal/server"
	"github.com/pawlabs/breedai-go/internal/store"
	"github.com/pawlabs/breedai-go/internal/tracing"
)

// NewServeCmd constructs the `breedai serve` command, which starts the HTTP
// server exposing the query, enrich, stats, and history API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the BreedAI HTTP server",
		Long: `Start the BreedAI HTTP server on localhost.

The server exposes a JSON API for grounded breed Q&A (POST /api/query),
breed enrichment (POST /api/enrich), collection statistics (GET /api/stats),
query history (GET /api/history), plus health, readiness, and Prometheus
metrics endpoints.

Set BREEDAI_API_KEY to require Bearer authentication on the /api routes.

Examples:
  breedai serve
  breedai serve --port 9090
  MODEL_PROVIDER=azure breedai serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			deps, closeDeps, err := buildService(ctx, log, true)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer closeDeps()

			composer, err := enrich.NewComposer(deps.Service, 0)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			// Open the query history store. BREEDAI_HISTORY_DB overrides the
			// default path (~/.breedai/history.db). Set to "disabled" to disable.
			var historyStore store.HistoryStore
			dbPath := os.Getenv("BREEDAI_HISTORY_DB")
			if dbPath != "disabled" {
				if dbPath == "" {
					dbPath, err = store.DefaultDBPath()
					if err != nil {
						log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
					}
				}
				if dbPath != "" {
					hs, hsErr := store.Open(dbPath)
					if hsErr != nil {
						log.Warn("history: failed to open store, disabling", slog.Any("error", hsErr))
					} else {
						historyStore = hs
						defer func() { _ = hs.Close() }()
						log.Info("history: store opened", slog.String("path", dbPath))
					}
				}
			} else {
				log.Info("history: disabled via BREEDAI_HISTORY_DB=disabled")
			}

			pingers := buildPingers(deps)

			if host == "" {
				host = getEnvOrDefault("SERVER_HOST", "127.0.0.1")
			}
			if port == 0 {
				port = getEnvInt("SERVER_PORT", 8080)
			}

			srv, err := server.New(deps.Service, composer, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("BREEDAI_API_KEY"),
				History: historyStore,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host address to bind to (default: SERVER_HOST or 127.0.0.1)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "TCP port to listen on (default: SERVER_PORT or 8080)")

	return cmd
}
