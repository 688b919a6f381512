// Package pathutil resolves operator-supplied file paths.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Expand resolves environment variables and a leading "~" in path.
// An empty path stays empty.
func Expand(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}

	expanded := os.ExpandEnv(trimmed)
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := homeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir for %q: %w", path, err)
		}
		expanded = filepath.Join(home, strings.TrimPrefix(expanded, "~"))
	}

	return filepath.Clean(expanded), nil
}

// ConfigDir is where the console keeps its global config.
func ConfigDir() (string, error) {
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cortex"), nil
}

func homeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	home = strings.TrimSpace(home)
	if home == "" || strings.HasPrefix(home, "~") {
		return "", fmt.Errorf("home directory %q is not usable", home)
	}
	return home, nil
}
