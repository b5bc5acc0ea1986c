// Package version holds build metadata injected via ldflags.
package version

import (
	"regexp"
	"strings"
)

var (
	// Version is the semantic version or git describe output.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "none"
	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// describe matches `git describe --tags --dirty` output such as
// v0.3.1-20-ga961617-dirty.
var describe = regexp.MustCompile(`^(v?\d+\.\d+\.\d+)-(\d+)-g[0-9a-f]+(-dirty)?$`)

// Short returns a compact version. Builds ahead of a tag render as
// "<tag>-<commit>-<distance>"; anything else is returned unchanged.
func Short() string {
	m := describe.FindStringSubmatch(Version)
	if m == nil {
		return Version
	}
	return strings.Join([]string{m[1], Commit, m[2]}, "-")
}

// String returns formatted version information.
func String() string {
	return Short() + " (commit: " + Commit + ", built: " + BuildDate + ")"
}
