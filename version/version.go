package version

import "fmt"

// Version information (set via ldflags during build)
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func GetVersion() string {
	if Version == "" {
		return "dev"
	}
	return Version
}

// GetFullVersion returns the version with commit and build date.
func GetFullVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", GetVersion(), Commit, Date)
}
