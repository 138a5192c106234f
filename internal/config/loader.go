package config

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ConfigDirEnv overrides the directory holding the global config
const ConfigDirEnv = "AUTOBUILD_CONFIG_DIR"

// flagKeys maps command flags onto configuration keys
var flagKeys = map[string]string{
	"compiler":     "compiler",
	"build-folder": "build_folder",
	"mode":         "mode",
	"args":         "args",
	"include-dirs": "include_dirs",
	"libs":         "libs",
	"shared":       "shared",
	"parallel":     "parallel",
	"jobs":         "jobs",
	"pch":          "pch",
	"pch-jobs":     "pch_jobs",
	"recursive":    "recursive",
	"run":          "run",
	"run-args":     "run_args",
	"verbose":      "verbose",
}

// Loader handles configuration loading from various sources
type Loader struct{}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadForBuild loads configuration specifically for build operations
func (l *Loader) LoadForBuild(cmd *cobra.Command, args []string) (*Config, error) {
	l.setupViperDefaults()
	l.loadGlobalConfig()
	l.loadLocalConfig(args)
	l.bindCommandFlags(cmd)

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("compiler", DefaultCompiler)
	viper.SetDefault("build_folder", DefaultBuildFolder)
	viper.SetDefault("dependencies_dir", DefaultDependenciesDir)
	viper.SetDefault("libs_dir", DefaultLibsDir)
	viper.SetDefault("pch_jobs", DefaultPCHJobs)
	viper.SetDefault("history", DefaultHistory)
	viper.SetDefault("verbose", DefaultVerbose)
}

// GlobalConfigDir returns the directory of the global config file
func GlobalConfigDir() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, "autobuild")
}

// loadGlobalConfig loads global configuration from the user config directory
func (l *Loader) loadGlobalConfig() {
	globalDir := GlobalConfigDir()
	if globalDir == "" {
		return
	}

	globalPath := configIn(globalDir, GlobalConfigName)
	if globalPath == "" {
		return
	}

	viper.SetConfigFile(globalPath)
	if err := viper.ReadInConfig(); err != nil {
		log.Warn("ignoring invalid global config", "path", globalPath, "err", err)
	}
}

// loadLocalConfig merges local configuration from the project directory over the global one
func (l *Loader) loadLocalConfig(args []string) {
	if len(args) > 0 {
		absFirst, err := filepath.Abs(args[0])
		if err != nil {
			return // silently ignore, config.Load() will handle validation
		}

		dir := absFirst
		if info, err := os.Stat(absFirst); err != nil || !info.IsDir() {
			dir = filepath.Dir(absFirst)
		}

		localPath := FindLocalConfig(dir)
		if localPath != "" {
			viper.SetConfigFile(localPath)
			if err := viper.MergeInConfig(); err != nil {
				log.Warn("ignoring invalid local config", "path", localPath, "err", err)
			}
		}
	}
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}

	if f := cmd.Flags().Lookup("no-history"); f != nil && f.Changed {
		viper.Set("history", false)
	}
}
