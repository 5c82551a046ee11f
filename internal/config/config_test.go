package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every SENTRY_* variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range env {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	t.Setenv("SENTRY_LOAD_DOTENV", "0")
}

func writeRC(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0600))
}

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("url", "", "")
	fs.String("auth-token", "", "")
	fs.String("log-level", "", "")
	fs.String("org", "", "")
	fs.StringP("project", "p", "", "")
	fs.StringArray("header", nil, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	// Cannot run in parallel - modifies environment
	clearEnv(t)

	cfg, err := Load(nil, Options{HomeDir: t.TempDir(), WorkDir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, DefaultURL, cfg.Defaults.URL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, DefaultUpdateURL, cfg.Update.URL)
	assert.Empty(t, cfg.Auth.Token)
}

func TestLoad_ConfigFilePrecedence(t *testing.T) {
	// Cannot run in parallel - modifies environment
	clearEnv(t)
	home, work := t.TempDir(), t.TempDir()

	writeRC(t, home, "[defaults]\nurl = https://home.example.com/\norg = home-org\n\n[auth]\ntoken = home-token\n")
	writeRC(t, work, "[defaults]\norg = work-org\nproject = work-project\n\n[http]\ntimeout = 5s\n")

	cfg, err := Load(nil, Options{HomeDir: home, WorkDir: work})
	require.NoError(t, err)

	assert.Equal(t, "https://home.example.com/", cfg.Defaults.URL)
	assert.Equal(t, "work-org", cfg.Defaults.Org, "working directory file overrides home")
	assert.Equal(t, "work-project", cfg.Defaults.Project)
	assert.Equal(t, "home-token", cfg.Auth.Token)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	// Cannot run in parallel - modifies environment
	clearEnv(t)
	home := t.TempDir()
	writeRC(t, home, "[auth]\ntoken = file-token\n")

	t.Setenv("SENTRY_AUTH_TOKEN", "env-token")
	t.Setenv("SENTRY_ORG", "env-org")

	cfg, err := Load(nil, Options{HomeDir: home, WorkDir: home})
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Auth.Token)
	assert.Equal(t, "env-org", cfg.Defaults.Org)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	// Cannot run in parallel - modifies environment
	clearEnv(t)
	t.Setenv("SENTRY_URL", "https://env.example.com/")

	fs := newFlags()
	require.NoError(t, fs.Parse([]string{
		"--url", "http://127.0.0.1:9000",
		"--project", "flag-project",
		"--header", "X-Trace: abc",
		"--header", "X-Env: ci",
	}))

	cfg, err := Load(fs, Options{HomeDir: t.TempDir(), WorkDir: t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9000", cfg.Defaults.URL)
	assert.Equal(t, "flag-project", cfg.Defaults.Project)
	assert.Equal(t, map[string]string{"X-Trace": "abc", "X-Env": "ci"}, cfg.HTTP.HeaderMap())
}

func TestLoad_UnchangedFlagDoesNotOverride(t *testing.T) {
	// Cannot run in parallel - modifies environment
	clearEnv(t)
	t.Setenv("SENTRY_URL", "https://env.example.com/")

	fs := newFlags()
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load(fs, Options{HomeDir: t.TempDir(), WorkDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/", cfg.Defaults.URL)
}

func TestLoad_Dotenv(t *testing.T) {
	// Cannot run in parallel - modifies environment
	clearEnv(t)
	t.Setenv("SENTRY_LOAD_DOTENV", "1")
	work := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(work, ".env"), []byte("SENTRY_PROJECT=dotenv-project\n"), 0600))

	cfg, err := Load(nil, Options{HomeDir: t.TempDir(), WorkDir: work})
	require.NoError(t, err)
	assert.Equal(t, "dotenv-project", cfg.Defaults.Project)
}

func TestLoad_DotenvDisabled(t *testing.T) {
	// Cannot run in parallel - modifies environment
	clearEnv(t)
	work := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(work, ".env"), []byte("SENTRY_PROJECT=dotenv-project\n"), 0600))

	cfg, err := Load(nil, Options{HomeDir: t.TempDir(), WorkDir: work})
	require.NoError(t, err)
	assert.Empty(t, cfg.Defaults.Project)
}

func TestLoad_InvalidValues(t *testing.T) {
	// Cannot run in parallel - modifies environment
	clearEnv(t)
	home := t.TempDir()
	writeRC(t, home, "[defaults]\nurl = not a url\n\n[log]\nlevel = loud\n")

	_, err := Load(nil, Options{HomeDir: home, WorkDir: home})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Defaults.URL (url)")
	assert.Contains(t, err.Error(), "Log.Level (oneof)")
}

func TestLoad_MalformedFile(t *testing.T) {
	// Cannot run in parallel - modifies environment
	clearEnv(t)
	home := t.TempDir()
	writeRC(t, home, "[defaults\nurl")

	_, err := Load(nil, Options{HomeDir: home, WorkDir: home})
	require.Error(t, err)
	assert.Contains(t, err.Error(), FileName)
}

func TestRequireProject(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	err := cfg.RequireProject()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "org")
	assert.Contains(t, err.Error(), "project")

	cfg.Defaults.Org = "acme"
	err = cfg.RequireProject()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "org (")

	cfg.Defaults.Project = "web"
	assert.NoError(t, cfg.RequireProject())
}

func TestHeaderMap_SkipsMalformed(t *testing.T) {
	t.Parallel()
	h := HTTP{Headers: []string{"A: 1", "broken", "B:2"}}
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, h.HeaderMap())
}
