package version

import (
	"strings"
	"testing"
)

func TestStringStartsWithVersion(t *testing.T) {
	if got := String(); !strings.HasPrefix(got, Version) {
		t.Fatalf("String() = %q, want prefix %q", got, Version)
	}
}

func TestStringIncludesStampedMetadata(t *testing.T) {
	origHash, origDate := CommitHash, BuildDate
	t.Cleanup(func() { CommitHash, BuildDate = origHash, origDate })

	CommitHash = "0123456789abcdef0123"
	BuildDate = "2026-08-29"

	got := String()
	if !strings.Contains(got, "(0123456789ab)") {
		t.Fatalf("String() = %q, want truncated commit hash", got)
	}
	if !strings.Contains(got, "built 2026-08-29") {
		t.Fatalf("String() = %q, want build date", got)
	}
}

func TestShortHashKeepsShortValues(t *testing.T) {
	if got := shortHash("abc123"); got != "abc123" {
		t.Fatalf("shortHash(abc123) = %q", got)
	}
}
