// config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default settings. Anything absent from the settings file falls back to
// these values.
const (
	DefaultLogDir      = "/var/log/advsync"
	DefaultLogFile     = "advsync.log"
	DefaultStagingDir  = "/var/lib/advsync/feed"
	DefaultCredential  = "/etc/advsync/access.key"
	DefaultStoreName   = "advisories.db"
	DefaultMarkerName  = ".last_sync"
	DefaultVersionFile = "timestamp"
	DefaultPrivateDir  = "private"

	DefaultFeedName   = "Security Advisory Feed"
	DefaultFeedVendor = "Gewnthar"
	DefaultFeedHome   = "https://feed.gewnthar.example/advisories"

	lockName = ".advsync.lock"
)

type LogConfig struct {
	Dir        string `yaml:"dir"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type FeedConfig struct {
	Name        string `yaml:"name"`
	Vendor      string `yaml:"vendor"`
	Home        string `yaml:"home"`
	VersionFile string `yaml:"version_file"` // upstream marker file inside staging
}

type PathsConfig struct {
	Staging    string `yaml:"staging"`
	Store      string `yaml:"store"`
	Private    string `yaml:"private"` // staging-relative subtree never touched by the mirror
	Marker     string `yaml:"marker"`
	Credential string `yaml:"credential"`
}

type MirrorConfig struct {
	Delete       bool   `yaml:"-"` // see rawMirror; default true
	Proxy        string `yaml:"proxy"`
	OutgoingPort int    `yaml:"outgoing_port"`
}

// SelectorsConfig holds the CSS selectors used to pull advisory fields out of
// staged documents. Kept configurable because upstream markup changes more
// often than the engine does.
type SelectorsConfig struct {
	Item     string `yaml:"item"`
	Title    string `yaml:"title"`
	Severity string `yaml:"severity"`
	Summary  string `yaml:"summary"`
}

// Config is built once at startup and passed to every component. It is never
// mutated after Load returns.
type Config struct {
	Enabled   bool
	Log       LogConfig
	Feed      FeedConfig
	Paths     PathsConfig
	Mirror    MirrorConfig
	Selectors SelectorsConfig
}

// rawConfig mirrors the settings file. Booleans that default to true are
// pointers so "absent" and "false" can be told apart.
type rawConfig struct {
	Enabled *bool           `yaml:"enabled"`
	Log     LogConfig       `yaml:"log"`
	Feed    FeedConfig      `yaml:"feed"`
	Paths   PathsConfig     `yaml:"paths"`
	Mirror  rawMirror       `yaml:"mirror"`
	Select  SelectorsConfig `yaml:"selectors"`
}

type rawMirror struct {
	Delete       *bool  `yaml:"delete"`
	Proxy        string `yaml:"proxy"`
	OutgoingPort int    `yaml:"outgoing_port"`
}

// Defaults returns the fully defaulted configuration, used when no settings
// file exists at any of the standard locations.
func Defaults() *Config {
	cfg := &Config{
		Enabled: true,
		Log: LogConfig{
			Dir:        DefaultLogDir,
			File:       DefaultLogFile,
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
		Feed: FeedConfig{
			Name:        DefaultFeedName,
			Vendor:      DefaultFeedVendor,
			Home:        DefaultFeedHome,
			VersionFile: DefaultVersionFile,
		},
		Paths: PathsConfig{
			Staging:    DefaultStagingDir,
			Private:    DefaultPrivateDir,
			Credential: DefaultCredential,
		},
		Mirror: MirrorConfig{Delete: true},
		Selectors: SelectorsConfig{
			Item:     "article.advisory",
			Title:    "h1",
			Severity: ".severity",
			Summary:  ".summary",
		},
	}
	cfg.fillDerived()
	return cfg
}

// Load reads the settings file at path. With an empty path the standard
// locations are probed; if none exists the documented defaults are used
// rather than failing. An explicitly named file that is missing or
// unparsable is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		for _, p := range []string{"/etc/advsync/advsync.yaml", "advsync.yaml"} {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
		if path == "" {
			return Defaults(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings file %s: %w", path, err)
	}

	cfg := Defaults()
	if raw.Enabled != nil {
		cfg.Enabled = *raw.Enabled
	}
	overrideString(&cfg.Log.Dir, raw.Log.Dir)
	overrideString(&cfg.Log.File, raw.Log.File)
	if raw.Log.MaxSizeMB > 0 {
		cfg.Log.MaxSizeMB = raw.Log.MaxSizeMB
	}
	if raw.Log.MaxBackups > 0 {
		cfg.Log.MaxBackups = raw.Log.MaxBackups
	}
	overrideString(&cfg.Feed.Name, raw.Feed.Name)
	overrideString(&cfg.Feed.Vendor, raw.Feed.Vendor)
	overrideString(&cfg.Feed.Home, raw.Feed.Home)
	overrideString(&cfg.Feed.VersionFile, raw.Feed.VersionFile)
	overrideString(&cfg.Paths.Staging, raw.Paths.Staging)
	overrideString(&cfg.Paths.Store, raw.Paths.Store)
	overrideString(&cfg.Paths.Private, raw.Paths.Private)
	overrideString(&cfg.Paths.Marker, raw.Paths.Marker)
	overrideString(&cfg.Paths.Credential, raw.Paths.Credential)
	if raw.Mirror.Delete != nil {
		cfg.Mirror.Delete = *raw.Mirror.Delete
	}
	cfg.Mirror.Proxy = raw.Mirror.Proxy
	if raw.Mirror.OutgoingPort > 0 {
		cfg.Mirror.OutgoingPort = raw.Mirror.OutgoingPort
	}
	overrideString(&cfg.Selectors.Item, raw.Select.Item)
	overrideString(&cfg.Selectors.Title, raw.Select.Title)
	overrideString(&cfg.Selectors.Severity, raw.Select.Severity)
	overrideString(&cfg.Selectors.Summary, raw.Select.Summary)

	cfg.fillDerived()
	return cfg, nil
}

// fillDerived resolves paths that default relative to the staging tree.
func (c *Config) fillDerived() {
	if c.Paths.Store == "" {
		c.Paths.Store = filepath.Join(c.Paths.Staging, DefaultStoreName)
	}
	if c.Paths.Marker == "" {
		c.Paths.Marker = filepath.Join(c.Paths.Staging, DefaultMarkerName)
	}
}

// LockPath is the run-exclusivity lock file, always inside the staging tree.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.Staging, lockName)
}

// PrivateDir is the absolute path of the mirror-protected private subtree.
func (c *Config) PrivateDir() string {
	return filepath.Join(c.Paths.Staging, c.Paths.Private)
}

// VersionFilePath is the absolute path of the upstream feed version marker.
func (c *Config) VersionFilePath() string {
	return filepath.Join(c.Paths.Staging, c.Feed.VersionFile)
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
