package config

import (
	"os"
	"path/filepath"
)

// Dir returns the castty config directory, preferring
// $XDG_CONFIG_HOME/castty and falling back to ~/.config/castty.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "castty"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "castty"), nil
}

// Path returns the config file's full path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
