// SPDX-License-Identifier: MIT

// Package version holds build information set via -ldflags -X.
package version

import "fmt"

var (
	// Version is the release version of the binary.
	Version = "v0.1.0"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String formats the build information for --version.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
