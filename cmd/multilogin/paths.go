package main

import (
	"os"
	"path/filepath"
)

// configPath returns --config or the first config file found.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	wd, err := os.Getwd()
	if err != nil {
		return defaultConfigFile
	}
	return findConfigIn(wd)
}

// findConfigIn looks in dir, then in ~/.config/multilogin.
// It returns the bare default name when neither exists.
func findConfigIn(dir string) string {
	candidates := []string{filepath.Join(dir, defaultConfigFile)}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		candidates = append(candidates, filepath.Join(home, ".config", "multilogin", defaultConfigFile))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return defaultConfigFile
}
