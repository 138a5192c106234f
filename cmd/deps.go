package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/autobuild/internal/config"
	"github.com/Norgate-AV/autobuild/internal/depcache"
	"github.com/Norgate-AV/autobuild/internal/plugin"
	"github.com/Norgate-AV/autobuild/internal/scanner"
)

var depsCmd = &cobra.Command{
	Use:   "deps <file>",
	Short: "Show the dependency record of a source file",
	Long: `Scan a source file and print the headers it includes, the implementation
files it links and the external dependencies it declares.

With --plugins, list the compiled-in dependency plugins instead.`,
	Args:          cobra.MaximumNArgs(1),
	RunE:          runDeps,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func runDeps(cmd *cobra.Command, args []string) error {
	if plugins, _ := cmd.Flags().GetBool("plugins"); plugins {
		for _, id := range plugin.Registered() {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}

		return nil
	}

	if len(args) != 1 {
		return fmt.Errorf("requires exactly one source file")
	}

	cfg, err := config.NewLoader().LoadForBuild(cmd, args)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	file, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	tree, err := newTree(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s := scanner.New(depcache.NewStore(tree), scanner.Options{Strict: cfg.Strict()})
	rec, err := s.Scan(ctx, file, cfg.IncludeDirs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if dump, _ := cmd.Flags().GetBool("dump"); dump {
		spew.Fdump(out, rec)
		return nil
	}

	printRecord(out, file, rec)
	return nil
}

func printRecord(w io.Writer, file string, rec *depcache.Record) {
	fmt.Fprintln(w, file)

	sections := []struct {
		title string
		items []string
	}{
		{"Includes", rec.Includes},
		{"Implementations", rec.Implementations},
		{"Dependencies", rec.Dependencies},
	}

	for _, s := range sections {
		fmt.Fprintf(w, "%s (%d):\n", s.title, len(s.items))
		for _, item := range s.items {
			fmt.Fprintf(w, "  %s\n", item)
		}
	}

	if !rec.Watermark.IsZero() {
		fmt.Fprintf(w, "Newest input: %s\n", rec.Watermark.Format(time.RFC3339))
	}
}
