// Package buildinfo exposes the version stamped into the binary.
//
// Release builds set the values with -ldflags:
//
//	-X 'github.com/m3rciful/schedbot/core/buildinfo.Version=v1.0.0'
//	-X 'github.com/m3rciful/schedbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/schedbot/core/buildinfo.Date=2026-01-01T00:00:00Z'
//
// Unstamped local builds report "dev".
package buildinfo

var (
	// Version is the semantic version or tag of the build.
	Version = "dev"
	// Commit is the source revision the binary was built from.
	Commit = "local"
	// Date is the build timestamp in RFC3339 format.
	Date = ""
)
