package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/docchat-go/internal/embedder"
	"github.com/54b3r/docchat-go/internal/ingestion"
	"github.com/54b3r/docchat-go/internal/logging"
	"github.com/54b3r/docchat-go/internal/rag"
)

// NewIngestCmd constructs the `docchat ingest` command, which runs the
// ingestion pipeline to populate the vector index.
func NewIngestCmd() *cobra.Command {
	var urls []string
	var files []string
	var collection string
	var chunkSize int
	var chunkOverlap int
	var metadata map[string]string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest documentation into the vector index",
		Long: `Fetch, chunk, embed and index documentation into Qdrant.

Sources are web pages (--url) or local files (--file). HTML is reduced to its
visible text, PDF text is extracted page by page, anything else is read as
plain text. Chunk ids are derived from the source and position, so
re-ingesting a source overwrites its previous chunks.

Environment variables:
  QDRANT_HOST          Qdrant deployment hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: starburst)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  EMBEDDING_PROVIDER   Embedding backend: openai, azure, ollama (default: MODEL_PROVIDER)
  EMBEDDING_*          Provider-specific overrides

Examples:
  docchat ingest --url https://trino.io/docs/current/overview.html
  docchat ingest --file ./docs/admin-guide.pdf --meta product=galaxy
  docchat ingest --collection scratch --file notes.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			if len(urls) == 0 && len(files) == 0 {
				return fmt.Errorf("ingest: at least one --url or --file is required")
			}

			if err := embedder.Validate(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}
			log.Info("embedder initialised", slog.String("provider", embedder.Backend()))

			qcfg := qdrantConfigFromEnv(collection, true)
			vs, err := rag.NewQdrantStore(ctx, qcfg)
			if err != nil {
				return fmt.Errorf("ingest: failed to connect to Qdrant at %s:%d: %w", qcfg.Host, qcfg.Port, err)
			}
			defer vs.Close()
			log.Info("qdrant store ready",
				slog.String("host", qcfg.Host),
				slog.Int("port", qcfg.Port),
				slog.String("collection", vs.Collection()),
			)

			pipeline, err := ingestion.NewPipeline(emb, vs, &ingestion.Config{
				ChunkSize:    chunkSize,
				ChunkOverlap: chunkOverlap,
			})
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			sources := make([]ingestion.Source, 0, len(urls)+len(files))
			for _, u := range urls {
				sources = append(sources, ingestion.Source{URL: u, Metadata: metadata})
			}
			for _, f := range files {
				sources = append(sources, ingestion.Source{Path: f, Metadata: metadata})
			}

			log.Info("starting ingestion", slog.Int("sources", len(sources)))

			n, err := pipeline.Ingest(ctx, sources, func(msg string) {
				log.Info(msg)
			})
			if err != nil {
				return fmt.Errorf("ingest: pipeline failed after %d chunks: %w", n, err)
			}

			log.Info("ingestion complete", slog.Int("sources", len(sources)), slog.Int("chunks", n))
			fmt.Fprintf(cmd.OutOrStdout(), "ingested %d chunks from %d sources into %q\n", n, len(sources), vs.Collection())
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&urls, "url", "u", nil, "Documentation URL to ingest (repeatable)")
	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "Local file to ingest: .txt, .md, .html or .pdf (repeatable)")
	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Collection to write to (default: QDRANT_COLLECTION or starburst)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 1000, "Maximum characters per chunk")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 100, "Characters shared by consecutive chunks")
	cmd.Flags().StringToStringVar(&metadata, "meta", nil, "Metadata attached to every chunk, key=value (repeatable)")

	return cmd
}
