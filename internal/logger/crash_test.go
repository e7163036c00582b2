package logger

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrashContext(t *testing.T) {
	globalContext = &crashContext{}

	SetBasePath("/tmp/concierge-test")
	SetVersion("1.0.0-test")
	SetCommand("request")
	SetScreen("form_overlay", "avia")

	log := newCrashLog("boom")
	assert.Equal(t, "1.0.0-test", log.Version)
	assert.Equal(t, "request", log.Command)
	assert.Equal(t, "form_overlay avia", log.Screen)
	assert.Equal(t, "boom", log.PanicValue)
	assert.NotEmpty(t, log.StackTrace)
	assert.Equal(t, filepath.Join("/tmp/concierge-test", CrashLogDir), crashLogDir())
}

func TestWriteCrashLog(t *testing.T) {
	globalContext = &crashContext{}
	SetBasePath(t.TempDir())
	SetCommand("serve")

	path, err := writeCrashLog(newCrashLog(fmt.Errorf("nil map")))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "CONCIERGE CRASH LOG")
	assert.Contains(t, string(data), "Command:   serve")
	assert.Contains(t, string(data), "nil map")

	logs, err := ListCrashLogs()
	require.NoError(t, err)
	assert.Equal(t, []string{path}, logs)
}

func TestWriteCrashLog_KeepsMax(t *testing.T) {
	globalContext = &crashContext{}
	base := t.TempDir()
	SetBasePath(base)
	dir := filepath.Join(base, CrashLogDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < MaxCrashLogs+3; i++ {
		name := crashLogName(start.Add(time.Duration(i) * time.Minute))
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644))

	log := newCrashLog("again")
	log.Timestamp = start.Add(time.Hour)
	_, err := writeCrashLog(log)
	require.NoError(t, err)

	logs, err := ListCrashLogs()
	require.NoError(t, err)
	assert.Len(t, logs, MaxCrashLogs)
	assert.True(t, strings.HasSuffix(logs[len(logs)-1], crashLogName(log.Timestamp)))
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
}

func TestListCrashLogs_NoDir(t *testing.T) {
	globalContext = &crashContext{}
	SetBasePath(filepath.Join(t.TempDir(), "missing"))
	logs, err := ListCrashLogs()
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, Options{Level: "warn", Format: "json"})
	require.NoError(t, err)
	l.Info("hidden")
	l.Warn("shown", "task_id", 7)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"task_id":7`)

	_, err = New(&buf, Options{Level: "loud"})
	assert.Error(t, err)
	_, err = New(&buf, Options{Format: "xml"})
	assert.Error(t, err)
}
