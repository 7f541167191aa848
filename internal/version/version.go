// Package version holds build metadata injected via ldflags.
package version

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build metadata as a single token for startup logs.
func String() string {
	return Version + " (" + Commit + ", " + Date + ")"
}
