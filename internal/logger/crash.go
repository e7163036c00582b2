package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// CrashLogDir is created under the data directory.
	CrashLogDir = "crash_logs"

	// MaxCrashLogs is the maximum number of crash logs to keep
	MaxCrashLogs = 10
)

// crashContext is what a crash log records beyond the panic itself.
type crashContext struct {
	mu       sync.RWMutex
	basePath string
	version  string
	command  string
	// screen state at the time of the panic, e.g. "form_overlay avia"
	screen string
}

var globalContext = &crashContext{}

// SetBasePath sets the data directory crash logs are written under.
func SetBasePath(path string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.basePath = path
}

func SetVersion(version string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.version = version
}

// SetCommand records the command being executed.
func SetCommand(cmd string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.command = cmd
}

// SetScreen records the request screen's mode and category. Form contents
// are never recorded.
func SetScreen(mode, categoryID string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.screen = strings.TrimSpace(mode + " " + categoryID)
}

// CrashLog is one recovered panic.
type CrashLog struct {
	Timestamp  time.Time
	Version    string
	Command    string
	Screen     string
	PanicValue string
	StackTrace string
	GoVersion  string
	OS         string
	Arch       string
}

// HandlePanic recovers a panic, writes a crash log and exits with status 1.
// Usage: defer logger.HandlePanic()
func HandlePanic() {
	r := recover()
	if r == nil {
		return
	}
	log := newCrashLog(r)
	path, err := writeCrashLog(log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\n[CRASH] Failed to write crash log: %v\n", err)
		fmt.Fprintf(os.Stderr, "[CRASH] Panic: %v\n%s\n", r, log.StackTrace)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "\nconcierge hit an unexpected error.\n")
	fmt.Fprintf(os.Stderr, "A crash log has been saved to:\n  %s\n\n", path)
	os.Exit(1)
}

func newCrashLog(panicValue any) CrashLog {
	globalContext.mu.RLock()
	defer globalContext.mu.RUnlock()

	return CrashLog{
		Timestamp:  time.Now(),
		Version:    globalContext.version,
		Command:    globalContext.command,
		Screen:     globalContext.screen,
		PanicValue: fmt.Sprintf("%v", panicValue),
		StackTrace: string(debug.Stack()),
		GoVersion:  runtime.Version(),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
	}
}

// writeCrashLog prunes old logs first so the directory never exceeds
// MaxCrashLogs after the write.
func writeCrashLog(log CrashLog) (string, error) {
	dir := crashLogDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create crash log dir: %w", err)
	}
	if err := pruneCrashLogs(dir, MaxCrashLogs-1); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to clean old crash logs: %v\n", err)
	}

	path := filepath.Join(dir, crashLogName(log.Timestamp))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("write crash log: %w", err)
	}
	defer f.Close()
	if err := formatCrashLog(f, log); err != nil {
		return "", fmt.Errorf("write crash log: %w", err)
	}
	return path, nil
}

func crashLogDir() string {
	globalContext.mu.RLock()
	basePath := globalContext.basePath
	globalContext.mu.RUnlock()

	if basePath == "" {
		basePath = ".concierge"
	}
	return filepath.Join(basePath, CrashLogDir)
}

func crashLogName(t time.Time) string {
	return fmt.Sprintf("crash_%s.log", t.Format("20060102_150405.000"))
}

func formatCrashLog(w io.Writer, log CrashLog) error {
	rule := strings.Repeat("-", 80)
	_, err := fmt.Fprintf(w,
		"CONCIERGE CRASH LOG\n%s\n"+
			"Timestamp: %s\nVersion:   %s\nCommand:   %s\nScreen:    %s\nGo:        %s\nOS/Arch:   %s/%s\n"+
			"%s\nPANIC\n%s\n%s\n%s\nSTACK\n%s\n%s",
		rule,
		log.Timestamp.Format(time.RFC3339), log.Version, log.Command, log.Screen, log.GoVersion, log.OS, log.Arch,
		rule, rule, log.PanicValue,
		rule, rule, log.StackTrace)
	return err
}

func isCrashLog(name string) bool {
	return strings.HasPrefix(name, "crash_") && strings.HasSuffix(name, ".log")
}

// pruneCrashLogs removes the oldest crash logs until at most keep remain.
func pruneCrashLogs(dir string, keep int) error {
	logs, err := listCrashLogs(dir)
	if err != nil || len(logs) <= keep {
		return err
	}
	for _, path := range logs[:len(logs)-keep] {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove old crash log %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func listCrashLogs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var logs []string
	for _, e := range entries {
		if !e.IsDir() && isCrashLog(e.Name()) {
			logs = append(logs, filepath.Join(dir, e.Name()))
		}
	}
	// names embed the timestamp, so lexical order is chronological
	sort.Strings(logs)
	return logs, nil
}

// ListCrashLogs returns crash log paths, oldest first.
func ListCrashLogs() ([]string, error) {
	return listCrashLogs(crashLogDir())
}
