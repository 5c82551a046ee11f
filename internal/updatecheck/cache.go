package updatecheck

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// cacheEntry is the last successful release lookup.
type cacheEntry struct {
	LatestVersion string    `json:"latest_version"`
	ReleaseURL    string    `json:"release_url"`
	CheckedAt     time.Time `json:"checked_at"`
}

func (e *cacheEntry) fresh(now time.Time, ttl time.Duration) bool {
	return e != nil && now.Sub(e.CheckedAt) < ttl
}

func readCache(path string) (*cacheEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func writeCache(path string, entry *cacheEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultCachePath returns <user cache dir>/sentry-cli/update-check.json.
func DefaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "sentry-cli", "update-check.json")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
