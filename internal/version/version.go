package version

import "fmt"

// Set at build time via -ldflags "-X github.com/itsmostafa/gotale/internal/version.Version=..."
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// String returns the version line shown by `gotale --version`.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Short returns just the version, or "dev" for local builds.
func Short() string {
	if Version == "" {
		return "dev"
	}
	return Version
}
