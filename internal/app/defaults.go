package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment variables that relocate fh's own files. The monitored tree and
// its index are chosen per command, never here.
const (
	EnvConfigPath = "FH_CONFIG_PATH"
	EnvHome       = "FH_HOME"
)

// GetDefaults returns the locations fh uses outside any repository:
//
//	config_path  $FH_CONFIG_PATH, else ~/.config/fh.toml
//	base_dir     $FH_HOME, else ~/.local/share/fh (journal and logs live here)
//	log_dir      <base_dir>/log
func GetDefaults() (map[string]string, error) {
	configPath, err := fromEnvOrHome(EnvConfigPath, ".config", "fh.toml")
	if err != nil {
		return nil, err
	}
	baseDir, err := fromEnvOrHome(EnvHome, ".local", "share", "fh")
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

func fromEnvOrHome(env string, elem ...string) (string, error) {
	if v := os.Getenv(env); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for %s default: %w", env, err)
	}
	return filepath.Join(append([]string{home}, elem...)...), nil
}
