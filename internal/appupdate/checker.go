// Package appupdate checks the project's release feed for newer versions.
package appupdate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	defaultLatestReleaseURL = "https://api.github.com/repos/orwatch/orwatch/releases/latest"
	defaultRequestTimeout   = 2 * time.Second
)

type CheckOptions struct {
	CurrentVersion   string
	LatestReleaseURL string
	Timeout          time.Duration
	HTTPClient       *http.Client
}

type Result struct {
	UpdateAvailable bool
	CurrentVersion  string
	LatestVersion   string
}

// Check compares the running version against the latest published release.
// Non-semver builds (dev, commit hashes) skip the remote lookup.
func Check(ctx context.Context, opts CheckOptions) (Result, error) {
	current := normalizeVersion(opts.CurrentVersion)
	result := Result{CurrentVersion: current}

	if current == "" {
		return result, nil
	}

	latest, err := fetchLatestVersion(ctx, opts)
	if err != nil {
		return result, err
	}

	result.LatestVersion = latest
	result.UpdateAvailable = semver.Compare(latest, current) > 0
	return result, nil
}

func fetchLatestVersion(ctx context.Context, opts CheckOptions) (string, error) {
	url := strings.TrimSpace(opts.LatestReleaseURL)
	if url == "" {
		url = defaultLatestReleaseURL
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	requestCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build latest release request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch latest release: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read latest release: %w", err)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.Unmarshal(body, &release); err != nil {
		return "", fmt.Errorf("parse latest release: %w", err)
	}

	latest := normalizeVersion(release.TagName)
	if latest == "" {
		return "", fmt.Errorf("latest release tag %q is not semver", release.TagName)
	}
	return latest, nil
}

// normalizeVersion returns a canonical vX.Y.Z string, or "" when the input
// is not a stable semver release.
func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) || semver.Prerelease(v) != "" || semver.Build(v) != "" {
		return ""
	}
	return v
}
