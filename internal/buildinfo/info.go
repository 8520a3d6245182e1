// Package buildinfo carries version metadata stamped at build time.
package buildinfo

import "fmt"

var (
	// Version is set via ldflags during build.
	Version = "dev"
	// Commit is set via ldflags during build.
	Commit = "none"
	// Date is set via ldflags during build.
	Date = "unknown"
)

// String renders the version line shown by --version.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
