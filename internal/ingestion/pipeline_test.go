package ingestion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/54b3r/docchat-go/internal/rag"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

// recordingStore keeps every upserted document in order and behaves like an
// index keyed by ID for PruneSource.
type recordingStore struct {
	mu   sync.Mutex
	docs []rag.Document
}

func (s *recordingStore) Upsert(_ context.Context, docs []rag.Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return errors.New("length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		replaced := false
		for i := range s.docs {
			if s.docs[i].ID == d.ID {
				s.docs[i] = d
				replaced = true
			}
		}
		if !replaced {
			s.docs = append(s.docs, d)
		}
	}
	return nil
}

func (s *recordingStore) PruneSource(_ context.Context, source string, keep []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.docs[:0]
	for _, d := range s.docs {
		if d.Source != source || slices.Contains(keep, d.ID) {
			kept = append(kept, d)
		}
	}
	s.docs = kept
	return nil
}

func (s *recordingStore) Search(context.Context, []float32, int) ([]rag.Document, error) {
	return nil, nil
}
func (s *recordingStore) Close() error { return nil }

func TestChunk(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
		want    []string
	}{
		{name: "empty", text: "   ", size: 10, want: nil},
		{name: "fits in one", text: "hello", size: 10, want: []string{"hello"}},
		{name: "overlapping", text: "abcdefghij", size: 4, overlap: 1, want: []string{"abcd", "defg", "ghij"}},
		{name: "no overlap", text: "abcdef", size: 3, want: []string{"abc", "def"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Chunk(tc.text, tc.size, tc.overlap)
			if strings.Join(got, "|") != strings.Join(tc.want, "|") || len(got) != len(tc.want) {
				t.Errorf("Chunk() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestChunk_RuneSafe(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("日本語テキスト", 50)
	for _, c := range Chunk(text, 7, 2) {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk is not valid UTF-8: %q", c)
		}
		if n := utf8.RuneCountInString(c); n > 7 {
			t.Fatalf("chunk has %d runes, want <= 7", n)
		}
	}
}

func TestChunkID_Deterministic(t *testing.T) {
	t.Parallel()
	a := ChunkID("https://docs.starburst.io/latest/", 3)
	b := ChunkID("https://docs.starburst.io/latest/", 3)
	c := ChunkID("https://docs.starburst.io/latest/", 4)
	if a != b {
		t.Errorf("same input produced different IDs: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different chunk indexes produced the same ID")
	}
	if len(a) != 36 {
		t.Errorf("ID %q is not a canonical UUID", a)
	}
}

func TestExtractHTML_SkipsScriptsAndNav(t *testing.T) {
	t.Parallel()
	page := `<html><head><style>body{}</style><script>var x=1;</script></head>
<body><nav>Home | Docs</nav><h1>Trino   connectors</h1><p>Starburst ships <b>many</b> connectors.</p></body></html>`

	got, err := extractHTML(strings.NewReader(page))
	if err != nil {
		t.Fatalf("extractHTML: %v", err)
	}
	for _, banned := range []string{"var x", "body{}", "Home | Docs"} {
		if strings.Contains(got, banned) {
			t.Errorf("extracted text contains %q: %q", banned, got)
		}
	}
	for _, want := range []string{"Trino connectors", "Starburst ships", "many", "connectors."} {
		if !strings.Contains(got, want) {
			t.Errorf("extracted text missing %q: %q", want, got)
		}
	}
}

func TestIngest_URLAndFile(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<p>" + strings.Repeat("a", 250) + "</p>"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(path, []byte("Starburst Galaxy is a managed Trino service."), 0o600); err != nil {
		t.Fatal(err)
	}

	st := &recordingStore{}
	p, err := NewPipeline(&fakeEmbedder{}, st, &Config{ChunkSize: 100, ChunkOverlap: 10, BatchSize: 2})
	if err != nil {
		t.Fatal(err)
	}

	var msgs []string
	n, err := p.Ingest(context.Background(), []Source{
		{URL: srv.URL + "/docs", Metadata: map[string]string{"product": "starburst"}},
		{Path: path},
	}, func(m string) { msgs = append(msgs, m) })
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	// 250 runes at size 100 / overlap 10 → 3 chunks, plus 1 for the file.
	if n != 4 || len(st.docs) != 4 {
		t.Fatalf("wrote %d chunks (%d stored), want 4", n, len(st.docs))
	}
	if st.docs[0].Metadata["product"] != "starburst" || st.docs[0].Metadata["chunk_index"] != "0" {
		t.Errorf("unexpected metadata %v", st.docs[0].Metadata)
	}
	if st.docs[2].Metadata["chunk_index"] != "2" {
		t.Errorf("chunk index across batches = %q, want 2", st.docs[2].Metadata["chunk_index"])
	}
	if st.docs[3].Source != path || !strings.Contains(st.docs[3].Content, "Galaxy") {
		t.Errorf("unexpected file doc %+v", st.docs[3])
	}
	if len(msgs) == 0 {
		t.Error("expected progress messages")
	}
}

func TestIngest_ReingestDropsStaleChunks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "guide.txt")
	other := filepath.Join(dir, "other.txt")
	if err := os.WriteFile(path, []byte(strings.Repeat("a", 250)), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(other, []byte("unrelated page"), 0o600); err != nil {
		t.Fatal(err)
	}

	st := &recordingStore{}
	p, err := NewPipeline(&fakeEmbedder{}, st, &Config{ChunkSize: 100, ChunkOverlap: 10})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Ingest(context.Background(), []Source{{Path: path}, {Path: other}}, nil); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if len(st.docs) != 4 {
		t.Fatalf("first ingest stored %d chunks, want 4", len(st.docs))
	}

	if err := os.WriteFile(path, []byte("short now"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Ingest(context.Background(), []Source{{Path: path}}, nil); err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	var fromPath []rag.Document
	for _, d := range st.docs {
		if d.Source == path {
			fromPath = append(fromPath, d)
		}
	}
	if len(fromPath) != 1 || fromPath[0].Content != "short now" {
		t.Errorf("chunks for %s after re-ingest = %+v, want only the new one", path, fromPath)
	}
	if len(st.docs) != 2 {
		t.Errorf("store holds %d chunks, want 2 (other source untouched)", len(st.docs))
	}
}

func TestIngest_OversizedDocumentRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("x", 65)))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "big.txt")
	if err := os.WriteFile(path, []byte(strings.Repeat("y", 65)), 0o600); err != nil {
		t.Fatal(err)
	}

	st := &recordingStore{}
	p, _ := NewPipeline(&fakeEmbedder{}, st, &Config{MaxDocumentBytes: 64})

	for _, src := range []Source{{URL: srv.URL}, {Path: path}} {
		if _, err := p.Ingest(context.Background(), []Source{src}, nil); !errors.Is(err, ErrTooLarge) {
			t.Errorf("%s: expected ErrTooLarge, got %v", src.Name(), err)
		}
	}
	if len(st.docs) != 0 {
		t.Errorf("oversized documents must not be stored, got %d chunks", len(st.docs))
	}

	exact, _ := NewPipeline(&fakeEmbedder{}, st, &Config{MaxDocumentBytes: 65})
	if _, err := exact.Ingest(context.Background(), []Source{{Path: path}}, nil); err != nil {
		t.Errorf("document at the cap must be accepted: %v", err)
	}
}

func TestIngest_EmbedErrorStops(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a.txt")
	if err := os.WriteFile(path, []byte("text"), 0o600); err != nil {
		t.Fatal(err)
	}

	st := &recordingStore{}
	p, _ := NewPipeline(&fakeEmbedder{err: errors.New("quota exceeded")}, st, nil)
	_, err := p.Ingest(context.Background(), []Source{{Path: path}}, nil)
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected embed error, got %v", err)
	}
	if len(st.docs) != 0 {
		t.Errorf("nothing should be stored after an embed failure, got %d", len(st.docs))
	}
}

func TestIngest_BadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p, _ := NewPipeline(&fakeEmbedder{}, &recordingStore{}, nil)
	if _, err := p.Ingest(context.Background(), []Source{{URL: srv.URL}}, nil); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestNewPipeline_Defaults(t *testing.T) {
	t.Parallel()
	p, err := NewPipeline(&fakeEmbedder{}, &recordingStore{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.cfg.ChunkSize != 1000 || p.cfg.ChunkOverlap != 100 {
		t.Errorf("defaults = %d/%d, want 1000/100", p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	}
	if _, err := NewPipeline(nil, &recordingStore{}, nil); err == nil {
		t.Error("expected error for nil embedder")
	}
}
