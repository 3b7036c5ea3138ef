// Package version reports the gh-gate build version.
package version

import (
	"runtime/debug"
	"strings"
)

// Version is set at build time via:
// -ldflags "-X github.com/xdg/gh-gate/internal/version.Version=v1.0.0"
var Version = "dev"

// String returns Version, with the VCS revision appended for dev builds
// when the binary carries build info.
func String() string {
	if !strings.Contains(Version, "dev") {
		return Version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Version
	}
	return withRevision(Version, info.Settings)
}

func withRevision(v string, settings []debug.BuildSetting) string {
	var rev string
	var dirty bool
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev == "" {
		return v
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if dirty {
		rev += "-dirty"
	}
	return v + " (" + rev + ")"
}
