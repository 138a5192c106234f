package config

import (
	"os"
	"path/filepath"
)

// LocalConfigName is the base name of project config files
const LocalConfigName = ".autobuild"

// GlobalConfigName is the base name of the config file in GlobalConfigDir
const GlobalConfigName = "config"

// ConfigExts are the config formats probed, in order of preference
var ConfigExts = []string{"yml", "yaml", "json", "toml"}

// configIn returns the first name.<ext> regular file in dir
func configIn(dir, name string) string {
	for _, ext := range ConfigExts {
		path := filepath.Join(dir, name+"."+ext)

		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path
		}
	}

	return ""
}

// FindLocalConfig returns the project config nearest to dir, searching dir
// and then each parent. It returns "" when there is none.
func FindLocalConfig(dir string) string {
	for {
		if path := configIn(dir, LocalConfigName); path != "" {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}

		dir = parent
	}
}
