// Package version exposes the build metadata stamped into release binaries.
package version

import "runtime/debug"

// Stamped at release time via
// -ldflags "-X github.com/orwatch/orwatch/internal/version.Version=v1.2.3"
// (and likewise for CommitHash and BuildDate). Plain `go build` binaries keep
// the zero values and fall back to the embedded VCS revision.
var (
	Version    = "dev"
	CommitHash = ""
	BuildDate  = ""
)

// String renders the version plus whatever build metadata is available.
func String() string {
	out := Version
	if c := commit(); c != "" {
		out += " (" + shortHash(c) + ")"
	}
	if BuildDate != "" {
		out += " built " + BuildDate
	}
	return out
}

func commit() string {
	if CommitHash != "" {
		return CommitHash
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

func shortHash(c string) string {
	if len(c) > 12 {
		return c[:12]
	}
	return c
}
