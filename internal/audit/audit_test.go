package audit

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestSanitiseKey_Secret(t *testing.T) {
	t.Parallel()
	if got := SanitiseKey("OPENAI_API_KEY", "sk-abc123"); got != "set" {
		t.Errorf("expected 'set', got %q", got)
	}
	if got := SanitiseKey("QDRANT_API_KEY", ""); got != "unset" {
		t.Errorf("expected 'unset', got %q", got)
	}
	if got := SanitiseKey("AWS_SESSION_TOKEN", "tok"); got != "set" {
		t.Errorf("expected 'set', got %q", got)
	}
}

func TestSanitiseKey_NonSecret(t *testing.T) {
	t.Parallel()
	if got := SanitiseKey("QDRANT_COLLECTION", "starburst"); got != "starburst" {
		t.Errorf("expected 'starburst', got %q", got)
	}
	if got := SanitiseKey("MODEL_PROVIDER", ""); got != "unset" {
		t.Errorf("expected 'unset', got %q", got)
	}
}

func TestSanitiseConfigPath(t *testing.T) {
	t.Parallel()
	if got := sanitiseConfigPath(""); got != "none" {
		t.Errorf("expected 'none', got %q", got)
	}
	if got := sanitiseConfigPath("/tmp/docchat.yaml"); got != "/tmp/docchat.yaml" {
		t.Errorf("expected '/tmp/docchat.yaml', got %q", got)
	}
	home, err := os.UserHomeDir()
	if err == nil {
		p := home + "/.docchat/config.yaml"
		if got := sanitiseConfigPath(p); got != "~/.docchat/config.yaml" {
			t.Errorf("expected '~/.docchat/config.yaml', got %q", got)
		}
	}
}

func TestLogCommandStart_RedactsSecrets(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-very-secret")
	t.Setenv("QDRANT_COLLECTION", "starburst")

	var buf bytes.Buffer
	LogCommandStart(slog.New(slog.NewTextHandler(&buf, nil)), "chat", "")

	out := buf.String()
	if strings.Contains(out, "sk-very-secret") {
		t.Fatalf("secret value leaked into audit log: %s", out)
	}
	if !strings.Contains(out, "OPENAI_API_KEY=set") {
		t.Errorf("expected OPENAI_API_KEY=set in %s", out)
	}
	if !strings.Contains(out, "QDRANT_COLLECTION=starburst") {
		t.Errorf("expected QDRANT_COLLECTION=starburst in %s", out)
	}
}
