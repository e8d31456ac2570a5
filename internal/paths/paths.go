// Package paths provides path resolution utilities.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// AppName names the per-user config directory.
const AppName = "tokenwatt"

// ConfigDir returns ~/.config/tokenwatt, or ".tokenwatt" when the home
// directory is unavailable.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// InConfigDir joins name onto ConfigDir.
func InConfigDir(name ...string) string {
	return filepath.Join(append([]string{ConfigDir()}, name...)...)
}

// Expand resolves a user-supplied path: a leading "~" becomes the home
// directory and $VAR references are expanded.
//
//   - "~/logs/a.log" -> "/home/me/logs/a.log"
//   - "$XDG_STATE_HOME/tw.db" -> "/home/me/.local/state/tw.db"
//   - "" -> ""
func Expand(path string) string {
	if path == "" {
		return ""
	}
	path = os.ExpandEnv(path)

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Clean(path)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Clean(path)
}
