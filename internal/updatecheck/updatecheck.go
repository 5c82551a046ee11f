// Package updatecheck reports whether a newer sentry-cli release exists and
// how to install it.
package updatecheck

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"
)

// InstallMethod is how the running binary was installed.
type InstallMethod int

const (
	Script InstallMethod = iota
	Homebrew
	Npm
	Docker
)

func (m InstallMethod) String() string {
	switch m {
	case Homebrew:
		return "homebrew"
	case Npm:
		return "npm"
	case Docker:
		return "docker"
	default:
		return "script"
	}
}

// DetectInstallMethod guesses the install method from the executable path.
func DetectInstallMethod(execPath string) InstallMethod {
	p := strings.ReplaceAll(execPath, "\\", "/")
	switch {
	case strings.Contains(p, "/Cellar/") || strings.Contains(p, "/homebrew/"):
		return Homebrew
	case strings.Contains(p, "/node_modules/"):
		return Npm
	case strings.HasPrefix(p, "/usr/bin/sentry-cli") && fileExists("/.dockerenv"):
		return Docker
	default:
		return Script
	}
}

// UpgradeCommand returns the command that installs version with method.
func UpgradeCommand(method InstallMethod, version string) string {
	switch method {
	case Homebrew:
		return "brew upgrade getsentry/tools/sentry-cli"
	case Npm:
		return "npm install @sentry/cli@" + version
	case Docker:
		return "docker pull getsentry/sentry-cli:" + version
	default:
		return "curl -sL https://sentry.io/get-cli/ | SENTRY_CLI_VERSION=" + version + " bash"
	}
}

// Result is the outcome of an update check.
type Result struct {
	CurrentVersion  string `json:"current_version" yaml:"current_version"`
	LatestVersion   string `json:"latest_version,omitempty" yaml:"latest_version,omitempty"`
	ReleaseURL      string `json:"release_url,omitempty" yaml:"release_url,omitempty"`
	UpdateAvailable bool   `json:"update_available" yaml:"update_available"`
	UpgradeCommand  string `json:"upgrade_command,omitempty" yaml:"upgrade_command,omitempty"`
	FromCache       bool   `json:"from_cache" yaml:"from_cache"`
	// Err is set when the lookup failed. Stale cached data may still be present.
	Err error `json:"-" yaml:"-"`
}

// Checker looks up the latest release, caching the answer for TTL.
type Checker struct {
	Releases  *ReleaseClient
	CachePath string
	TTL       time.Duration
	Install   InstallMethod
	Logger    *zap.Logger

	// now is replaced in tests.
	now func() time.Time
}

// NewChecker returns a checker against baseURL with a one day cache.
func NewChecker(baseURL string, install InstallMethod, logger *zap.Logger) *Checker {
	return &Checker{
		Releases:  NewReleaseClient(baseURL, DefaultTimeout),
		CachePath: DefaultCachePath(),
		TTL:       24 * time.Hour,
		Install:   install,
		Logger:    logger,
	}
}

// Check compares current against the latest release. A fresh cache entry
// avoids the network; a failed lookup falls back to a stale entry.
func (c *Checker) Check(ctx context.Context, current string) *Result {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	res := &Result{CurrentVersion: current}

	cached, cacheErr := readCache(c.CachePath)
	switch {
	case cacheErr == nil && cached.fresh(now(), c.TTL):
		res.LatestVersion, res.ReleaseURL, res.FromCache = cached.LatestVersion, cached.ReleaseURL, true
	default:
		rel, err := c.Releases.Latest(ctx)
		if err != nil {
			logger.Debug("release lookup failed", zap.Error(err))
			res.Err = err
			if cacheErr != nil {
				return res
			}
			res.LatestVersion, res.ReleaseURL, res.FromCache = cached.LatestVersion, cached.ReleaseURL, true
			break
		}
		res.LatestVersion = strings.TrimPrefix(rel.TagName, "v")
		res.ReleaseURL = rel.HTMLURL

		entry := &cacheEntry{LatestVersion: res.LatestVersion, ReleaseURL: res.ReleaseURL, CheckedAt: now().UTC()}
		if err := writeCache(c.CachePath, entry); err != nil {
			logger.Debug("cannot write update cache", zap.String("path", c.CachePath), zap.Error(err))
		}
	}

	res.UpdateAvailable = IsNewer(current, res.LatestVersion)
	if res.UpdateAvailable {
		res.UpgradeCommand = UpgradeCommand(c.Install, res.LatestVersion)
	}
	return res
}

// IsNewer reports whether latest is a higher semantic version than current.
// Invalid versions, such as development builds, never compare as newer.
func IsNewer(current, latest string) bool {
	cur, lat := canonical(current), canonical(latest)
	if !semver.IsValid(cur) || !semver.IsValid(lat) {
		return false
	}
	return semver.Compare(cur, lat) < 0
}

func canonical(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
