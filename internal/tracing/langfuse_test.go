package tracing

import (
	"io"
	"log/slog"
	"testing"
)

func TestSettingsFromEnv(t *testing.T) {
	t.Setenv("LANGFUSE_HOST", "")
	t.Setenv("LANGFUSE_PUBLIC_KEY", "pk-lf-1")
	t.Setenv("LANGFUSE_SECRET_KEY", "")

	s := SettingsFromEnv()
	if s.Host != defaultHost {
		t.Errorf("Host = %q, want %q", s.Host, defaultHost)
	}
	if s.Enabled() {
		t.Error("tracing must stay disabled without a secret key")
	}

	t.Setenv("LANGFUSE_SECRET_KEY", "sk-lf-1")
	if !SettingsFromEnv().Enabled() {
		t.Error("tracing should be enabled with both keys")
	}
}

func TestSetup_DisabledReturnsNoopFlush(t *testing.T) {
	t.Setenv("LANGFUSE_PUBLIC_KEY", "")
	t.Setenv("LANGFUSE_SECRET_KEY", "")

	flush := Setup(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if flush == nil {
		t.Fatal("flush must never be nil")
	}
	flush()
}
