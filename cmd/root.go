package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/autobuild/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "autobuild [inputs...]",
	Short: "Incremental C/C++ builds without build files",
	Long: `Build C and C++ programs straight from their sources.

Includes are followed to find the implementation files to link and the
external dependencies to install, and only outdated outputs are rebuilt.`,
	RunE:          runBuild,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.ArbitraryArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		setupLogging(verbose)
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)
	addBuildFlags(rootCmd)

	depsCmd.Flags().Bool("dump", false, "Dump the raw dependency record")
	depsCmd.Flags().Bool("plugins", false, "List compiled-in dependency plugins")
	historyCmd.Flags().Bool("clear", false, "Clear the build history")
	historyCmd.Flags().Bool("show-output", false, "Show compiler diagnostics of each entry")

	rootCmd.AddCommand(buildCmd, depsCmd, historyCmd)
}

// addBuildFlags defines the flags shared by every command on cmd and its children
func addBuildFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringSliceP("mode", "m", []string{}, "Build modes (debug, fast, test, strict, safe_memory, safe_thread, coverage)")
	flags.StringSliceP("libs", "l", []string{}, "Libraries to link")
	flags.StringP("build-folder", "o", "", "Build folder (default \".build\")")
	flags.StringSliceP("include-dirs", "I", []string{}, "Include directories")
	flags.StringP("args", "a", "", "Extra compiler arguments")
	flags.BoolP("run", "x", false, "Run the outputs after building")
	flags.String("run-args", "", "Arguments for the outputs; implies --run")
	flags.BoolP("shared", "s", false, "Build shared objects")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.BoolP("parallel", "p", false, "Build inputs in parallel")
	flags.IntP("jobs", "j", 0, "Parallel workers (default: logical cores)")
	flags.BoolP("recursive", "r", false, "Search input directories recursively")
	flags.Bool("pch", false, "Precompile included headers")
	flags.Int("pch-jobs", 0, "Concurrent header precompiles (default 4)")
	flags.String("compiler", "", "Compiler executable (default \"g++\")")
	flags.Bool("no-history", false, "Do not record compiles in the build history")
}

func setupLogging(verbose bool) {
	if verbose {
		log.SetLevel(log.DebugLevel)
		return
	}

	log.SetLevel(log.InfoLevel)
}
