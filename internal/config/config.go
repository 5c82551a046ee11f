// Package config loads sentry-cli settings from .sentryclirc files, .env
// files, the environment, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the name of the INI configuration file looked up in the home
// and working directories.
const FileName = ".sentryclirc"

// DefaultURL is the Sentry server used when nothing else is configured.
const DefaultURL = "https://sentry.io/"

// DefaultUpdateURL is the API queried for the latest sentry-cli release.
const DefaultUpdateURL = "https://api.github.com"

// Config is the resolved sentry-cli configuration.
type Config struct {
	Defaults Defaults `mapstructure:"defaults"`
	Auth     Auth     `mapstructure:"auth"`
	Log      Log      `mapstructure:"log"`
	HTTP     HTTP     `mapstructure:"http"`
	Update   Update   `mapstructure:"update"`
}

// Defaults holds the server and project selection.
type Defaults struct {
	URL     string `mapstructure:"url" validate:"required,url"`
	Org     string `mapstructure:"org"`
	Project string `mapstructure:"project"`
}

// Auth holds credentials.
type Auth struct {
	Token string `mapstructure:"token"`
}

// Log holds logging settings.
type Log struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error"`
}

// HTTP holds transport settings.
type HTTP struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Headers []string      `mapstructure:"headers" validate:"dive,contains=:"`
}

// Update holds the release lookup used by "version --check".
type Update struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// Options controls where Load looks for configuration files.
// Empty fields fall back to the user's home and the current directory.
type Options struct {
	HomeDir string
	WorkDir string
}

// env maps configuration keys to the environment variables that set them.
var env = map[string]string{
	"defaults.url":     "SENTRY_URL",
	"defaults.org":     "SENTRY_ORG",
	"defaults.project": "SENTRY_PROJECT",
	"auth.token":       "SENTRY_AUTH_TOKEN",
	"log.level":        "SENTRY_LOG_LEVEL",
	"http.timeout":     "SENTRY_HTTP_TIMEOUT",
	"update.url":       "SENTRY_UPDATE_URL",
}

// flags maps configuration keys to the command-line flags that set them.
var flags = map[string]string{
	"defaults.url":     "url",
	"defaults.org":     "org",
	"defaults.project": "project",
	"auth.token":       "auth-token",
	"log.level":        "log-level",
	"http.headers":     "header",
}

var validate = validator.New()

// Load resolves the configuration. Later sources override earlier ones:
// defaults, ~/.sentryclirc, ./.sentryclirc, .env, environment, flags.
func Load(fs *pflag.FlagSet, opts Options) (*Config, error) {
	v := viper.New()
	v.SetDefault("defaults.url", DefaultURL)
	v.SetDefault("log.level", "info")
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("update.url", DefaultUpdateURL)

	for _, dir := range searchDirs(opts) {
		if err := mergeFile(v, filepath.Join(dir, FileName)); err != nil {
			return nil, err
		}
	}

	if os.Getenv("SENTRY_LOAD_DOTENV") != "0" {
		if err := loadDotenv(workDir(opts)); err != nil {
			return nil, err
		}
	}

	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", name, err)
		}
	}

	if fs != nil {
		for key, name := range flags {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and reports every invalid field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
}

// RequireProject returns an error unless both org and project are set.
func (c *Config) RequireProject() error {
	var missing []string
	if c.Defaults.Org == "" {
		missing = append(missing, "org (--org or SENTRY_ORG)")
	}
	if c.Defaults.Project == "" {
		missing = append(missing, "project (--project or SENTRY_PROJECT)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, " and "))
	}
	return nil
}

// HeaderMap returns the custom headers as name/value pairs.
func (h HTTP) HeaderMap() map[string]string {
	out := make(map[string]string, len(h.Headers))
	for _, kv := range h.Headers {
		k, val, ok := strings.Cut(kv, ":")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(val)
	}
	return out
}

func searchDirs(opts Options) []string {
	home := opts.HomeDir
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	dirs := make([]string, 0, 2)
	if home != "" {
		dirs = append(dirs, home)
	}
	if wd := workDir(opts); wd != "" && wd != home {
		dirs = append(dirs, wd)
	}
	return dirs
}

func workDir(opts Options) string {
	if opts.WorkDir != "" {
		return opts.WorkDir
	}
	wd, _ := os.Getwd()
	return wd
}

func mergeFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// loadDotenv loads dir/.env without overriding variables already set.
func loadDotenv(dir string) error {
	if dir == "" {
		return nil
	}
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
