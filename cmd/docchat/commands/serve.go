package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/54b3r/docchat-go/internal/logging"
	"github.com/54b3r/docchat-go/internal/server"
	"github.com/54b3r/docchat-go/internal/tracing"
)

// NewServeCmd constructs the `docchat serve` command, which answers
// questions over HTTP with Server-Sent Events.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the docchat HTTP server",
		Long: `Start the docchat HTTP server.

Endpoints:
  POST /api/chat     {"message": "...", "session_id": "<uuid>"} answered as
                     an SSE stream; session_id is optional and defaults to
                     the request id
  GET  /api/health   liveness
  GET  /api/ready    dependency probes (model provider, Qdrant)
  GET  /metrics      Prometheus metrics

Set DOCCHAT_API_KEY to require "Authorization: Bearer <key>" on /api/chat.
DOCCHAT_DEBUG prints each retrieved context to the server's stdout; it is
never sent to clients.

Examples:
  docchat serve
  docchat serve --port 9090
  MODEL_PROVIDER=azure docchat serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			flush := tracing.Setup(log)
			defer flush()

			s, err := buildSession(ctx, log, sessionOptions{
				out:     cmd.OutOrStdout(),
				history: true,
				metrics: prometheus.DefaultRegisterer,
			})
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer s.close()
			log.Info("provider initialised",
				slog.String("provider", string(s.providerCfg.Backend)),
				slog.String("model", s.providerCfg.ModelName()),
			)

			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("DOCCHAT_SERVER_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("DOCCHAT_SERVER_PORT", port)
			}

			srv, err := server.New(s.assistant, &server.Config{
				Host:   host,
				Port:   port,
				Logger: log,
				Pingers: []server.Pinger{
					server.NewLLMPinger(s.chatModel, string(s.providerCfg.Backend)),
					server.NewQdrantPinger(s.index),
				},
				APIKey:      os.Getenv("DOCCHAT_API_KEY"),
				ChatTimeout: getEnvDuration("DOCCHAT_CHAT_TIMEOUT", 0),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx) //nolint:wrapcheck // CLI entry point; error goes directly to cobra
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
