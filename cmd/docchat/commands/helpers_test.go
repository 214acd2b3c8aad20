package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/54b3r/docchat-go/internal/logging"
	"github.com/54b3r/docchat-go/internal/store"
)

func TestQdrantConfigFromEnv(t *testing.T) {
	t.Setenv("QDRANT_HOST", "docs.qdrant.internal")
	t.Setenv("QDRANT_PORT", "7334")
	t.Setenv("QDRANT_COLLECTION", "")
	t.Setenv("QDRANT_TLS", "true")
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	t.Setenv("EMBEDDING_DIMENSIONS", "")

	cfg := qdrantConfigFromEnv("", false)
	if cfg.Host != "docs.qdrant.internal" || cfg.Port != 7334 {
		t.Errorf("host:port = %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.Collection != defaultCollection {
		t.Errorf("Collection = %q, want %q", cfg.Collection, defaultCollection)
	}
	if !cfg.UseTLS {
		t.Error("UseTLS = false, want true")
	}
	if cfg.VectorSize != 768 {
		t.Errorf("VectorSize = %d, want 768 for ollama", cfg.VectorSize)
	}
	if cfg.CreateIfMissing {
		t.Error("query path must not create collections")
	}

	if got := qdrantConfigFromEnv("scratch", true); got.Collection != "scratch" || !got.CreateIfMissing {
		t.Errorf("explicit collection: %+v", got)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("DOCCHAT_TEST_INT", "7")
	t.Setenv("DOCCHAT_TEST_BAD_INT", "seven")
	t.Setenv("DOCCHAT_TEST_BOOL", "1")
	t.Setenv("DOCCHAT_TEST_DURATION", "90s")

	if got := getEnvInt("DOCCHAT_TEST_INT", 5); got != 7 {
		t.Errorf("getEnvInt = %d", got)
	}
	if got := getEnvInt("DOCCHAT_TEST_BAD_INT", 5); got != 5 {
		t.Errorf("getEnvInt(bad) = %d, want fallback", got)
	}
	if !getEnvBool("DOCCHAT_TEST_BOOL", false) {
		t.Error("getEnvBool = false")
	}
	if getEnvBool("DOCCHAT_TEST_UNSET_BOOL", false) {
		t.Error("unset bool must fall back")
	}
	if got := getEnvDuration("DOCCHAT_TEST_DURATION", 0); got != 90*time.Second {
		t.Errorf("getEnvDuration = %v", got)
	}
	if got := getEnvOrDefault("DOCCHAT_TEST_UNSET", "x"); got != "x" {
		t.Errorf("getEnvOrDefault = %q", got)
	}
}

func TestOpenHistory_Disabled(t *testing.T) {
	t.Setenv("DOCCHAT_HISTORY_DB", "disabled")
	hs, closeFn := openHistory(logging.Discard())
	defer closeFn()
	if hs != nil {
		t.Error("store opened despite DOCCHAT_HISTORY_DB=disabled")
	}
}

func TestOpenHistory_Path(t *testing.T) {
	t.Setenv("DOCCHAT_HISTORY_DB", t.TempDir()+"/history.db")
	hs, closeFn := openHistory(logging.Discard())
	defer closeFn()
	if hs == nil {
		t.Fatal("store not opened")
	}
	if err := hs.Append(t.Context(), "s1", store.RoleUser, "hello"); err != nil {
		t.Errorf("Append: %v", err)
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	t.Parallel()
	root := NewRootCmd()
	for _, name := range []string{"chat", "ask", "ingest", "history", "serve", "version"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), "docchat dev (commit: unknown") {
		t.Errorf("output = %q", out.String())
	}
}
