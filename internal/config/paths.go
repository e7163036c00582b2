package config

import (
	"os"
	"path/filepath"
)

// GetGlobalConfigDir returns ~/.concierge. It is a variable so tests can
// point it elsewhere.
var GetGlobalConfigDir = func() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".concierge"), nil
}

// DataDir resolves where the task database and crash logs live.
// Resolution order (first match wins):
//  1. storage.path from config, env or flag
//  2. $XDG_DATA_HOME/concierge
//  3. ~/.concierge
func DataDir(configured string) string {
	if configured != "" {
		return configured
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "concierge")
	}
	dir, err := GetGlobalConfigDir()
	if err != nil {
		return ".concierge"
	}
	return dir
}
