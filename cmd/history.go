package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/autobuild/internal/config"
	"github.com/Norgate-AV/autobuild/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [output]",
	Short: "Show the compile history of the build folder",
	Long: `List the latest compile of every output in the build folder, or show the
full entry of one output given relative to the build folder.`,
	Args:          cobra.MaximumNArgs(1),
	RunE:          runHistory,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForBuild(cmd, []string{"."})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	h, err := history.Open(cfg.BuildPath())
	if err != nil {
		return err
	}
	defer h.Close()

	out := cmd.OutOrStdout()

	if clearAll, _ := cmd.Flags().GetBool("clear"); clearAll {
		if err := h.Clear(); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}

		fmt.Fprintln(out, "History cleared")
		return nil
	}

	if len(args) == 1 {
		return showEntry(out, h, cfg.BuildPath(), args[0])
	}

	entries, err := h.List()
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	showOutput, _ := cmd.Flags().GetBool("show-output")
	for _, e := range entries {
		if err := printEntry(out, cfg.BuildPath(), e, showOutput); err != nil {
			return err
		}
	}

	count, size, err := h.Stats()
	if err != nil {
		return fmt.Errorf("failed to read history stats: %w", err)
	}

	fmt.Fprintf(out, "%d entries, build folder %s\n", count, humanize.IBytes(uint64(size)))
	return nil
}

// showEntry prints everything recorded for one output
func showEntry(w io.Writer, h *history.History, root, output string) error {
	if !filepath.IsAbs(output) {
		output = filepath.Join(root, output)
	}

	e, err := h.Get(output)
	if err != nil {
		return err
	}

	if e == nil {
		return fmt.Errorf("no history for %s", output)
	}

	fmt.Fprintf(w, "Output:  %s\n", e.Output)
	fmt.Fprintf(w, "Source:  %s\n", e.Source)
	fmt.Fprintf(w, "SHA256:  %s\n", e.SourceHash)
	fmt.Fprintf(w, "Command: %s\n", e.Command)
	fmt.Fprintf(w, "Run:     %s\n", e.RunID)

	return printEntry(w, root, e, true)
}

func printEntry(w io.Writer, root string, e *history.Entry, showOutput bool) error {
	status := "ok"
	if !e.Success {
		status = fmt.Sprintf("FAILED (exit %d)", e.ExitCode)
	}

	name := e.Output
	if rel, err := filepath.Rel(root, e.Output); err == nil {
		name = rel
	}

	fmt.Fprintf(w, "%-40s %s  %s  %s\n", name, e.Started.Format(time.DateTime), e.Duration.Round(time.Millisecond), status)

	if !showOutput {
		return nil
	}

	text, err := e.DiagnosticsText()
	if err != nil {
		return fmt.Errorf("failed to read diagnostics of %s: %w", e.Output, err)
	}

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if line != "" {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}

	return nil
}
