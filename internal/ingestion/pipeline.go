// Package ingestion implements the documentation ingestion pipeline. It
// fetches pages or reads local files, chunks the text, embeds each chunk and
// upserts the results into the vector store the chatbot searches. It backs
// the `docchat ingest` command.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/54b3r/docchat-go/internal/rag"
)

// defaultMaxDocumentBytes caps a single fetched or read document.
const defaultMaxDocumentBytes = 20 << 20

// ErrTooLarge is returned for documents over Config.MaxDocumentBytes.
var ErrTooLarge = errors.New("document too large")

// Source describes one document to ingest. Exactly one of URL or Path is set.
type Source struct {
	// URL is an HTTP(S) documentation page.
	URL string
	// Path is a local file (.txt, .md, .html or .pdf).
	Path string
	// Metadata is attached to every chunk of this source.
	Metadata map[string]string
}

// Name returns the URL or path identifying the source.
func (s Source) Name() string {
	if s.URL != "" {
		return s.URL
	}
	return s.Path
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per chunk. Defaults to 1000.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by consecutive chunks.
	// Defaults to 100.
	ChunkOverlap int

	// BatchSize is the number of chunks embedded per request. Defaults to 64.
	BatchSize int

	// HTTPTimeout is the timeout for each fetch. Defaults to 30s.
	HTTPTimeout time.Duration

	// UserAgent is the HTTP User-Agent header sent with fetch requests.
	UserAgent string

	// MaxDocumentBytes rejects larger documents. Defaults to 20 MiB.
	MaxDocumentBytes int64
}

// Pipeline orchestrates the fetch → chunk → embed → upsert flow.
type Pipeline struct {
	embedder   rag.Embedder
	store      rag.VectorStore
	cfg        *Config
	httpClient *http.Client
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = 100
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 10
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "docchat-go/1.0 (documentation ingestion)"
	}
	if cfg.MaxDocumentBytes <= 0 {
		cfg.MaxDocumentBytes = defaultMaxDocumentBytes
	}

	return &Pipeline{
		embedder: embedder,
		store:    store,
		cfg:      cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}, nil
}

// Ingest loads, chunks, embeds, and stores all provided sources. Sources are
// processed sequentially and the first error stops the run. Once a source is
// fully written, its chunks left over from a longer earlier version are
// removed. Progress is reported via the optional progress callback. It
// returns the number of chunks written.
func (p *Pipeline) Ingest(ctx context.Context, sources []Source, progress func(msg string)) (int, error) {
	if progress == nil {
		progress = func(string) {}
	}

	total := 0
	for _, src := range sources {
		name := src.Name()
		if name == "" {
			return total, fmt.Errorf("ingestion: source has neither URL nor path")
		}
		progress(fmt.Sprintf("loading %s", name))

		text, err := p.load(ctx, src)
		if err != nil {
			return total, fmt.Errorf("ingestion: load failed for %s: %w", name, err)
		}

		chunks := Chunk(text, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
		if len(chunks) == 0 {
			progress(fmt.Sprintf("skipping %s: no text", name))
			continue
		}
		progress(fmt.Sprintf("chunked %s into %d chunks", name, len(chunks)))

		for start := 0; start < len(chunks); start += p.cfg.BatchSize {
			end := min(start+p.cfg.BatchSize, len(chunks))
			if err := p.writeBatch(ctx, src, chunks[start:end], start); err != nil {
				return total, fmt.Errorf("ingestion: %s: %w", name, err)
			}
		}

		keep := make([]string, len(chunks))
		for i := range chunks {
			keep[i] = ChunkID(name, i)
		}
		if err := p.store.PruneSource(ctx, name, keep); err != nil {
			return total, fmt.Errorf("ingestion: %s: removing stale chunks: %w", name, err)
		}

		total += len(chunks)
		progress(fmt.Sprintf("ingested %d chunks from %s", len(chunks), name))
	}

	return total, nil
}

// writeBatch embeds and upserts chunks whose first index is offset.
func (p *Pipeline) writeBatch(ctx context.Context, src Source, chunks []string, offset int) error {
	embeddings, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}

	docs := make([]rag.Document, 0, len(chunks))
	for i, chunk := range chunks {
		idx := offset + i
		meta := make(map[string]string, len(src.Metadata)+1)
		for k, v := range src.Metadata {
			meta[k] = v
		}
		meta["chunk_index"] = strconv.Itoa(idx)

		docs = append(docs, rag.Document{
			ID:       ChunkID(src.Name(), idx),
			Content:  chunk,
			Source:   src.Name(),
			Metadata: meta,
		})
	}

	if err := p.store.Upsert(ctx, docs, embeddings); err != nil {
		return fmt.Errorf("upsert failed: %w", err)
	}
	return nil
}

// load returns the plain text of a source.
func (p *Pipeline) load(ctx context.Context, src Source) (string, error) {
	if src.URL != "" {
		return p.fetch(ctx, src.URL)
	}
	f, err := os.Open(src.Path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	body, err := p.readDocument(f)
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	return extractText(src.Path, "", body)
}

// fetch retrieves a URL and extracts its text.
func (p *Pipeline) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	req.Header.Set("Accept", "text/html, text/plain, application/pdf")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := p.readDocument(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}

	return extractText(url, resp.Header.Get("Content-Type"), body)
}

// readDocument reads r whole, failing with ErrTooLarge past the size cap.
func (p *Pipeline) readDocument(r io.Reader) ([]byte, error) {
	limit := p.cfg.MaxDocumentBytes
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, limit)
	}
	return body, nil
}

// Chunk splits text into chunks of at most size runes, each sharing overlap
// runes with its predecessor. Cuts never split a UTF-8 sequence.
func Chunk(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" || size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	if utf8.RuneCountInString(text) <= size {
		return []string{text}
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += size - overlap {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// ChunkID returns a deterministic UUIDv5 for a chunk, so re-ingesting a
// source overwrites its points instead of duplicating them. Qdrant only
// accepts UUIDs or integers as point IDs.
func ChunkID(source string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(source+"#"+strconv.Itoa(index))).String()
}
