// Package config loads daybook settings: built-in defaults, then an optional
// TOML file, then DAYBOOK_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dukerupert/daybook/internal/archive"
	"github.com/pelletier/go-toml/v2"
)

const envPrefix = "DAYBOOK_"

type Archive struct {
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

type Config struct {
	Port      string `toml:"port"`
	DBPath    string `toml:"db_path"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	// Timezone is an IANA name; empty means the host's local zone.
	Timezone string `toml:"timezone"`
	User     string `toml:"user"`
	// RolloverSchedule is the HH:MM local time of the nightly daily check.
	RolloverSchedule string  `toml:"rollover_schedule"`
	ServerURL        string  `toml:"server_url"`
	StateFile        string  `toml:"state_file"`
	ExportLimit      int     `toml:"export_limit"`
	Archive          Archive `toml:"archive"`
}

func Default() *Config {
	return &Config{
		Port:             "8080",
		DBPath:           "daybook.db",
		LogLevel:         "info",
		LogFormat:        "text",
		User:             "default-user",
		RolloverSchedule: "00:00",
		ServerURL:        "http://localhost:8080",
		StateFile:        defaultStateFile(),
		ExportLimit:      5,
		Archive: Archive{
			Region: "auto",
		},
	}
}

func defaultStateFile() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "daybook-state.toml"
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "daybook", "state.toml")
}

// Load builds the config. An empty path or a missing file leaves the
// defaults in place; unknown keys in the file are an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			dec := toml.NewDecoder(bytes.NewReader(data))
			dec.DisallowUnknownFields()
			if err := dec.Decode(cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"PORT":               &c.Port,
		"DB_PATH":            &c.DBPath,
		"LOG_LEVEL":          &c.LogLevel,
		"LOG_FORMAT":         &c.LogFormat,
		"TIMEZONE":           &c.Timezone,
		"USER":               &c.User,
		"ROLLOVER_SCHEDULE":  &c.RolloverSchedule,
		"SERVER_URL":         &c.ServerURL,
		"STATE_FILE":         &c.StateFile,
		"ARCHIVE_ENDPOINT":   &c.Archive.Endpoint,
		"ARCHIVE_BUCKET":     &c.Archive.Bucket,
		"ARCHIVE_REGION":     &c.Archive.Region,
		"ARCHIVE_ACCESS_KEY": &c.Archive.AccessKey,
		"ARCHIVE_SECRET_KEY": &c.Archive.SecretKey,
	}
	for name, dst := range strs {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup(envPrefix + "EXPORT_LIMIT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %sEXPORT_LIMIT: %w", envPrefix, err)
		}
		c.ExportLimit = n
	}
	return nil
}

func (c *Config) Validate() error {
	if c.User == "" {
		return errors.New("user must not be empty")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := time.Parse("15:04", c.RolloverSchedule); err != nil {
		return fmt.Errorf("invalid rollover_schedule %q: want HH:MM", c.RolloverSchedule)
	}
	if c.ExportLimit < 0 {
		return fmt.Errorf("export_limit must not be negative, got %d", c.ExportLimit)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q: want text or json", c.LogFormat)
	}
	return nil
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) ArchiveS3() archive.S3Config {
	return archive.S3Config{
		Endpoint:  c.Archive.Endpoint,
		Bucket:    c.Archive.Bucket,
		Region:    c.Archive.Region,
		AccessKey: c.Archive.AccessKey,
		SecretKey: c.Archive.SecretKey,
	}
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
