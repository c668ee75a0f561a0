package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the semantic version of the dropship build. Overridden at
// link time via -ldflags for release builds.
var Version = "0.0.0-dev"

// Revision is the VCS revision the binary was built from, read from the
// embedded build info. "unknown" when built outside a checkout.
var Revision = findRevision()

func findRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	revision := "unknown"
	dirty := false

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}

	if len(revision) > 12 {
		revision = revision[:12]
	}

	if dirty {
		revision += "-dirty"
	}

	return revision
}

// GetVersionString returns the full human-readable version string.
func GetVersionString() string {
	return fmt.Sprintf("%s (%s) %s/%s %s",
		Version, Revision, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	)
}
