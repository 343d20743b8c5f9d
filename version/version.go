// Package version holds build-time version information.
// These variables are set via -ldflags at build time.
package version

var (
	// GitRelease is the release tag or version string.
	GitRelease = "dev"

	// GitCommit is the git commit hash.
	GitCommit = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)
