// Package tracing wires optional Langfuse tracing into eino's global callback
// chain so every chat model call made through a compiled chain is traced.
package tracing

import (
	"log/slog"
	"os"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

// defaultHost is used when LANGFUSE_HOST is unset.
const defaultHost = "https://cloud.langfuse.com"

// Settings are the Langfuse credentials resolved from the environment.
type Settings struct {
	Host      string
	PublicKey string
	SecretKey string
}

// Enabled reports whether both keys are present.
func (s Settings) Enabled() bool {
	return s.PublicKey != "" && s.SecretKey != ""
}

// SettingsFromEnv reads LANGFUSE_HOST, LANGFUSE_PUBLIC_KEY and
// LANGFUSE_SECRET_KEY.
func SettingsFromEnv() Settings {
	s := Settings{
		Host:      os.Getenv("LANGFUSE_HOST"),
		PublicKey: os.Getenv("LANGFUSE_PUBLIC_KEY"),
		SecretKey: os.Getenv("LANGFUSE_SECRET_KEY"),
	}
	if s.Host == "" {
		s.Host = defaultHost
	}
	return s
}

// Setup registers a Langfuse handler as a global eino callback when keys are
// configured. The returned flush function must run before process exit so
// buffered traces are sent; it is a no-op when tracing is disabled.
func Setup(log *slog.Logger) func() {
	s := SettingsFromEnv()
	if !s.Enabled() {
		log.Debug("tracing disabled: LANGFUSE_PUBLIC_KEY / LANGFUSE_SECRET_KEY not set")
		return func() {}
	}

	handler, flusher := langfuse.NewLangfuseHandler(&langfuse.Config{
		Host:      s.Host,
		PublicKey: s.PublicKey,
		SecretKey: s.SecretKey,
	})
	callbacks.AppendGlobalHandlers(handler)
	log.Info("langfuse tracing enabled", slog.String("host", s.Host))

	return flusher
}
