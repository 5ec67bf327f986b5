package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"PORT", "DB_PATH", "LOG_LEVEL", "LOG_FORMAT", "TIMEZONE", "USER",
		"ROLLOVER_SCHEDULE", "SERVER_URL", "STATE_FILE", "EXPORT_LIMIT",
		"ARCHIVE_ENDPOINT", "ARCHIVE_BUCKET", "ARCHIVE_REGION",
		"ARCHIVE_ACCESS_KEY", "ARCHIVE_SECRET_KEY",
	} {
		t.Setenv(envPrefix+name, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "daybook.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "default-user", cfg.User)
	assert.Equal(t, "00:00", cfg.RolloverSchedule)
	assert.Equal(t, 5, cfg.ExportLimit)
	assert.Equal(t, ":8080", cfg.Addr())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Same(t, time.Local, loc)
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "daybook.db", cfg.DBPath)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
port = "9090"
timezone = "America/Denver"
user = "alice"
rollover_schedule = "04:30"

[archive]
bucket = "boards"
access_key = "ak"
secret_key = "sk"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "alice", cfg.User)
	assert.Equal(t, "04:30", cfg.RolloverSchedule)
	assert.Equal(t, "daybook.db", cfg.DBPath, "unset keys keep defaults")

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Denver", loc.String())

	s3 := cfg.ArchiveS3()
	assert.Equal(t, "boards", s3.Bucket)
	assert.Equal(t, "auto", s3.Region)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `port = "9090"`+"\n"+`user = "alice"`)
	t.Setenv("DAYBOOK_PORT", "7070")
	t.Setenv("DAYBOOK_EXPORT_LIMIT", "2")
	t.Setenv("DAYBOOK_ARCHIVE_BUCKET", "env-bucket")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "alice", cfg.User)
	assert.Equal(t, 2, cfg.ExportLimit)
	assert.Equal(t, "env-bucket", cfg.Archive.Bucket)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "unknown key", file: `colour = "blue"`},
		{name: "malformed toml", file: `port = `},
		{name: "bad timezone", file: `timezone = "Mars/Olympus"`},
		{name: "bad schedule", file: `rollover_schedule = "midnight"`},
		{name: "bad log format", file: `log_format = "xml"`},
		{name: "negative export limit", file: `export_limit = -1`},
		{name: "bad export limit env", env: map[string]string{"DAYBOOK_EXPORT_LIMIT": "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
