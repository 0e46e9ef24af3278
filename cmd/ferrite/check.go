package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ferrite/internal/diagfmt"
	"ferrite/internal/driver"
	"ferrite/internal/observ"
	"ferrite/internal/project"
	"ferrite/internal/safety"
	"ferrite/internal/ui"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <file.ir.json|directory> [...]",
	Short: "Check serialized C++ programs for ownership and lifetime violations",
	Long: `Check runs the ownership, borrow, lifetime, and safety analyses over
serialized programs (*.ir.json). A sibling <name>.cpp, when present, is
scanned for // @safe and // @unsafe comments that decide which functions
get analyzed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	checkCmd.Flags().String("signatures", "", "path to a function-signature TOML file")
	checkCmd.Flags().String("annotations", "", "C++ source whose safety comments gate every input")
	checkCmd.Flags().String("safety-default", "default", "treatment of unannotated functions (safe|unsafe|default)")
	checkCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	checkCmd.Flags().String("ui", "off", "interactive progress (auto|on|off)")
	checkCmd.Flags().Bool("no-cache", false, "disable the on-disk result cache")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	checkCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	checkCmd.Flags().Bool("no-quote", false, "do not quote source lines in pretty output")
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	signatures, err := cmd.Flags().GetString("signatures")
	if err != nil {
		return fmt.Errorf("failed to get signatures flag: %w", err)
	}
	annotations, err := cmd.Flags().GetString("annotations")
	if err != nil {
		return fmt.Errorf("failed to get annotations flag: %w", err)
	}
	safetyDefaultStr, err := cmd.Flags().GetString("safety-default")
	if err != nil {
		return fmt.Errorf("failed to get safety-default flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	noQuote, err := cmd.Flags().GetBool("no-quote")
	if err != nil {
		return fmt.Errorf("failed to get no-quote flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}

	// ferrite.toml fills in whatever the command line left at its default.
	if manifestPath, ok, err := project.FindManifest("."); err == nil && ok {
		cfg, err := project.LoadConfig(manifestPath)
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("signatures") && cfg.Check.Signatures != "" {
			signatures = cfg.Check.Signatures
		}
		if !cmd.Flags().Changed("safety-default") && cfg.Check.SafetyDefault != "" {
			safetyDefaultStr = cfg.Check.SafetyDefault
		}
		if !cmd.Flags().Changed("jobs") && cfg.Check.Jobs > 0 {
			jobs = cfg.Check.Jobs
		}
		if !cmd.Flags().Changed("format") && cfg.Check.Format != "" {
			format = cfg.Check.Format
		}
		if !cmd.Root().PersistentFlags().Changed("max-diagnostics") && cfg.Check.MaxDiagnostics > 0 {
			maxDiagnostics = cfg.Check.MaxDiagnostics
		}
		if !cmd.Flags().Changed("no-cache") && cfg.Check.NoCache {
			noCache = true
		}
	}

	var safetyDefault safety.Mode
	switch safetyDefaultStr {
	case "safe":
		safetyDefault = safety.ModeSafe
	case "unsafe":
		safetyDefault = safety.ModeUnsafe
	case "", "default":
		safetyDefault = safety.ModeDefault
	default:
		return fmt.Errorf("unknown safety-default value: %s", safetyDefaultStr)
	}

	switch format {
	case "pretty", "json":
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	mode, err := parseUIMode(uiFlag)
	if err != nil {
		return err
	}

	var cache *driver.DiskCache
	if !noCache {
		// A broken cache dir degrades to a cold run, never a failed one.
		cache, _ = driver.OpenDiskCache("ferrite")
	}

	var timer *observ.Timer
	if showTimings {
		timer = observ.NewTimer()
	}

	opts := driver.Options{
		Signatures:     signatures,
		Annotations:    annotations,
		SafetyDefault:  safetyDefault,
		Jobs:           jobs,
		MaxDiagnostics: maxDiagnostics,
		Cache:          cache,
		Timer:          timer,
	}

	useColor := colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stdout))

	var res *driver.Result
	if mode.wantProgressUI() && format == "pretty" {
		res, err = checkWithTUI(cmd, args, opts)
	} else {
		res, err = driver.CheckPaths(cmd.Context(), args, opts)
	}
	if err != nil {
		return err
	}

	res.Merged.Sort()
	res.Merged.Dedup()

	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}

	switch format {
	case "pretty":
		if res.Merged.Len() > 0 && !quiet {
			fmt.Fprintln(os.Stdout, paint(color.New(color.FgRed), useColor).Sprintf("✗ Found %d violation(s):", res.Merged.Len()))
		}
		prettyOpts := diagfmt.PrettyOpts{
			Color:     useColor,
			PathMode:  pathMode,
			ShowNotes: withNotes,
			Quote:     !noQuote,
			Max:       maxDiagnostics,
		}
		if err := diagfmt.Pretty(os.Stdout, res.Merged, res.FileSet, prettyOpts); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
		if res.Merged.Len() == 0 && !quiet {
			fmt.Fprintln(os.Stdout, paint(color.New(color.FgGreen), useColor).Sprint("✓ No borrow checking violations found!"))
		}
	case "json":
		jsonOpts := diagfmt.JSONOpts{
			PathMode:     pathMode,
			Max:          maxDiagnostics,
			IncludeNotes: withNotes,
		}
		if err := diagfmt.JSON(os.Stdout, res.Merged, res.FileSet, jsonOpts); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	}

	if timer != nil {
		fmt.Fprint(os.Stderr, timer.Summary())
	}

	if res.Merged.HasErrors() {
		// Diagnostics are already printed; suppress cobra's usage dump.
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("")
	}
	return nil
}

// checkWithTUI runs the driver behind a Bubble Tea progress view.
func checkWithTUI(cmd *cobra.Command, paths []string, opts driver.Options) (*driver.Result, error) {
	files, err := driver.ListInputs(paths)
	if err != nil {
		return nil, err
	}

	events := make(chan driver.Event, 256)
	opts.Events = events

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	type outcome struct {
		res *driver.Result
		err error
	}
	outcomeCh := make(chan outcome, 1)

	go func() {
		res, err := driver.CheckPaths(ctx, paths, opts)
		outcomeCh <- outcome{res: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("ferrite check", files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// Quitting the view early cancels the run; workers blocked on a full
	// events channel unblock through the context.
	cancel()
	out := <-outcomeCh
	if uiErr != nil {
		return out.res, uiErr
	}
	return out.res, out.err
}

// paint pins a color on or off regardless of the global TTY detection.
func paint(c *color.Color, enabled bool) *color.Color {
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}
