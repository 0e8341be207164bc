// Package version holds build metadata, populated via ldflags at release
// time.
package version

import "fmt"

var (
	// Version is the semantic version of the build.
	Version = "dev"
	// Commit is the git commit the binary was built from.
	Commit = "unknown"
	// Date is the build timestamp.
	Date = "unknown"
)

// String returns a one-line version description.
func String() string {
	return fmt.Sprintf("keyforge %s (commit %s, built %s)", Version, Commit, Date)
}

// Short returns just the version number.
func Short() string {
	return Version
}
