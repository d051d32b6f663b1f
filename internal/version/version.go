// Package version carries build metadata injected with -ldflags -X.
package version

import "fmt"

var (
	// Version is the current toolkit version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the metadata for a tool's -version flag.
func String(tool string) string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", tool, Version, GitSHA, BuildTime)
}
