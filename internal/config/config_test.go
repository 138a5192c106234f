package config

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name        string
		setupViper  func()
		check       func(t *testing.T, cfg *Config)
		wantErr     bool
		errContains string
	}{
		{
			name: "load with all defaults",
			setupViper: func() {
				viper.Reset()
				viper.Set("base_dir", base)
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultCompiler, cfg.Compiler)
				assert.Equal(t, base, cfg.BaseDir)
				assert.Equal(t, filepath.Join(base, DefaultBuildFolder), cfg.BuildFolder)
				assert.Equal(t, filepath.Join(base, DefaultDependenciesDir), cfg.DependenciesDir)
				assert.Equal(t, filepath.Join(base, DefaultLibsDir), cfg.LibsDir)
				assert.Equal(t, DefaultPCHJobs, cfg.PCHJobs)
				assert.Empty(t, cfg.Modes)
				assert.True(t, cfg.Strict())
				assert.Equal(t, "", cfg.OutputExt())
			},
		},
		{
			name: "load with custom values",
			setupViper: func() {
				viper.Reset()
				viper.Set("base_dir", base)
				viper.Set("compiler", "clang++")
				viper.Set("build_folder", "/tmp/out")
				viper.Set("mode", []string{"fast,debug"})
				viper.Set("args", "-O1  -DX=1")
				viper.Set("include_dirs", []string{"include", "/abs/include"})
				viper.Set("libs", []string{"m", "pthread"})
				viper.Set("shared", true)
				viper.Set("parallel", true)
				viper.Set("jobs", 3)
				viper.Set("run_args", "--flag")
				viper.Set("verbose", true)
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "clang++", cfg.Compiler)
				assert.Equal(t, "/tmp/out", cfg.BuildFolder)
				assert.Equal(t, []string{"debug", "fast"}, cfg.Modes, "modes are sorted")
				assert.Equal(t, []string{"-O1", "-DX=1"}, cfg.Args)
				assert.Equal(t, []string{filepath.Join(base, "include"), "/abs/include"}, cfg.IncludeDirs)
				assert.Equal(t, []string{"m", "pthread"}, cfg.Libs)
				assert.True(t, cfg.Shared)
				assert.True(t, cfg.Parallel)
				assert.Equal(t, 3, cfg.Jobs)
				assert.True(t, cfg.Run, "run args imply run")
				assert.True(t, cfg.Verbose)
				assert.False(t, cfg.Strict())
				assert.Equal(t, ".so", cfg.OutputExt())
				assert.Equal(t, "/tmp/out-debug-fast", cfg.BuildPath())
			},
		},
		{
			name: "unknown mode",
			setupViper: func() {
				viper.Reset()
				viper.Set("mode", []string{"turbo"})
			},
			wantErr:     true,
			errContains: "turbo",
		},
		{
			name: "negative jobs",
			setupViper: func() {
				viper.Reset()
				viper.Set("jobs", -1)
			},
			wantErr:     true,
			errContains: "invalid job count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupViper()

			cfg, err := Load()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestConfig_CompileFlags(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{
			name: "no modes",
			cfg:  Config{},
			want: []string{"--std=c++20"},
		},
		{
			name: "shared debug with args",
			cfg:  Config{Shared: true, Modes: []string{"debug"}, Args: []string{"-DX"}},
			want: []string{"--std=c++20", "-fPIC", "-shared", "-g", "-DDEBUG", "-fno-omit-frame-pointer", "-DX"},
		},
		{
			name: "overlapping modes are deduped",
			cfg:  Config{Modes: []string{"fast", "strict"}},
			want: []string{
				"--std=c++20",
				"-pedantic-errors", "-Werror", "-Wall", "-Wextra", "-Wunused", "-fno-elide-constructors",
				"-Ofast", "-fno-fast-math",
			},
		},
		{
			name: "safe thread",
			cfg:  Config{Modes: []string{"safe_thread"}},
			want: []string{
				"--std=c++20",
				"-pedantic-errors", "-Werror", "-Wall", "-Wextra", "-Wunused", "-fno-elide-constructors",
				"-fsanitize-address-use-after-scope", "-fsanitize=undefined", "-fstack-protector",
				"-fsanitize=thread",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.CompileFlags()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModeFlags(t *testing.T) {
	assert.Equal(t, []string{"coverage", "debug", "fast", "safe_memory", "safe_thread", "strict", "test"}, Modes())

	flags, err := ModeFlags(ModeSafeMemory)
	require.NoError(t, err)
	assert.Contains(t, flags, "-fsanitize=address")
	assert.Contains(t, flags, "-fsanitize=leak")
	assert.Contains(t, flags, "-Werror")

	_, err = ModeFlags("")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestConfig_BuildPath(t *testing.T) {
	cfg := &Config{BuildFolder: "/p/.build", Modes: []string{"test", "debug"}}
	assert.Equal(t, "/p/.build-debug-test", cfg.BuildPath())
	assert.Equal(t, []string{"test", "debug"}, cfg.Modes, "BuildPath does not reorder the config")

	cfg = &Config{BuildFolder: "/p/.build"}
	assert.Equal(t, "/p/.build", cfg.BuildPath())
}

func TestExpandLibs(t *testing.T) {
	libs, deps := ExpandLibs([]string{"m", "fltk", "pthread"})
	assert.Equal(t, []string{"-lm", "-lfltk", "-lfltk_images", "-lpthread"}, libs)
	assert.Equal(t, []string{"fltk/fltk"}, deps)

	libs, deps = ExpandLibs(nil)
	assert.Empty(t, libs)
	assert.Empty(t, deps)
}
