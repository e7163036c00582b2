package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateGlobalDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig := GetGlobalConfigDir
	GetGlobalConfigDir = func() (string, error) { return dir, nil }
	t.Cleanup(func() { GetGlobalConfigDir = orig })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolateGlobalDir(t)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultMaxAttempts, cfg.Submission.MaxAttempts)
	assert.Equal(t, DefaultRetryInterval, cfg.Submission.RetryInterval)
	assert.Equal(t, DefaultDebounce, cfg.Submission.Debounce)
	assert.Equal(t, DefaultListingLag, cfg.Storage.ListingLag)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := isolateGlobalDir(t)
	path := filepath.Join(dir, ".concierge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: 0.0.0.0:9000
  allowedOrigins: [http://localhost:5173]
submission:
  maxAttempts: 4
  retryInterval: 250ms
catalog:
  path: /etc/concierge/categories.yaml
`), 0o600))

	t.Setenv("CONCIERGE_SUBMISSION_MAXATTEMPTS", "6")
	t.Setenv("CONCIERGE_LOG_LEVEL", "debug")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 6, cfg.Submission.MaxAttempts, "env wins over file")
	assert.Equal(t, 250*time.Millisecond, cfg.Submission.RetryInterval)
	assert.Equal(t, "/etc/concierge/categories.yaml", cfg.Catalog.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	isolateGlobalDir(t)
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	isolateGlobalDir(t)
	t.Setenv("CONCIERGE_SUBMISSION_MAXATTEMPTS", "0")
	t.Setenv("CONCIERGE_LOG_FORMAT", "xml")

	_, err := Load(viper.New(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Submission.MaxAttempts")
	assert.Contains(t, err.Error(), "Log.Format")
}

func TestDataDir(t *testing.T) {
	global := isolateGlobalDir(t)

	assert.Equal(t, "/srv/concierge", DataDir("/srv/concierge"))

	t.Setenv("XDG_DATA_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "concierge"), DataDir(""))

	t.Setenv("XDG_DATA_HOME", "")
	assert.Equal(t, global, DataDir(""))
}
