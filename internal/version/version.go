// Package version holds ragdex build metadata injected via ldflags:
//
//	-X github.com/kailas-cloud/ragdex/internal/version.Version=...
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build metadata as a single log-friendly value.
func String() string {
	return Version + " (" + Commit + ", " + Date + ")"
}
