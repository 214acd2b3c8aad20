// Package version holds build-time version information for the docchat
// binary, populated via -ldflags:
//
//	go build -ldflags="-X github.com/54b3r/docchat-go/internal/version.Version=v0.3.0 \
//	                    -X github.com/54b3r/docchat-go/internal/version.Commit=abc1234"
package version

// Version is the semantic version of the binary. "dev" for local builds.
var Version = "dev"

// Commit is the short git SHA the binary was built from.
var Commit = "unknown"

// BuildDate is the UTC build date (RFC3339).
var BuildDate = "unknown"
