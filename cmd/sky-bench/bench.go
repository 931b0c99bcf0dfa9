package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/skylandlabs/sky"
)

var labelStyle = lipgloss.NewStyle().Bold(true)

type options struct {
	objectType string
	iterations int
	configPath string
	verbose    bool
	progress   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "sky-bench [flags] PATH",
		Short: "Benchmark full scans of a Sky database",
		Long: `sky-bench iterates over every path and event of one object type and
reports how many events were read and how long it took.

Examples:
  sky-bench -o users /var/lib/sky          # One pass over "users"
  sky-bench -o users -i 10 /var/lib/sky    # Ten passes, total reported`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.objectType, "object-type", "o", "", "Object type to scan (required)")
	cmd.Flags().IntVarP(&opts.iterations, "iterations", "i", 1, "Number of full scans")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "YAML engine config file")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log engine activity to stderr")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "Show a progress bar across iterations")
	cmd.MarkFlagRequired("object-type")
	return cmd
}

func run(cmd *cobra.Command, path string, opts *options) error {
	var cfg sky.Config
	if opts.configPath != "" {
		var err error
		if cfg, err = sky.LoadConfig(opts.configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	cfg.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	iterations := opts.iterations
	if iterations <= 0 {
		iterations = 1
	}

	progress := io.Discard
	if opts.progress {
		progress = cmd.ErrOrStderr()
	}

	start := time.Now()
	total, err := benchmark(sky.NewDatabase(path, cfg), opts.objectType, iterations, progress)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %d\n", labelStyle.Render("Total events processed:"), total)
	fmt.Fprintf(out, "%s %.3f seconds\n", labelStyle.Render("Elapsed Time:"), elapsed.Seconds())
	return nil
}

// benchmark scans the object file iterations times and returns the number
// of events read across all passes.
func benchmark(db *sky.Database, objectType string, iterations int, progress io.Writer) (total uint64, err error) {
	if _, err := os.Stat(filepath.Join(db.Path(), objectType)); err != nil {
		return 0, fmt.Errorf("object type %q: %w", objectType, err)
	}

	of, err := db.ObjectFile(objectType)
	if err != nil {
		return 0, err
	}
	if err := of.Open(); err != nil {
		return 0, fmt.Errorf("unable to open object file: %w", err)
	}
	defer func() {
		if cerr := of.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("unable to close object file: %w", cerr))
		}
	}()

	bar := progressbar.NewOptions(iterations,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("scanning"),
		progressbar.OptionShowCount(),
	)
	for range iterations {
		n, err := scan(of)
		if err != nil {
			return total, err
		}
		total += n
		bar.Add(1)
	}
	bar.Finish()
	fmt.Fprintln(progress)
	return total, nil
}

// scan drains every cursor of one pass.
func scan(of *sky.ObjectFile) (uint64, error) {
	var count uint64
	it := sky.NewPathIterator(of)
	c := sky.NewCursor(nil)
	if err := it.Next(c); err != nil {
		return count, fmt.Errorf("unable to find next path: %w", err)
	}
	for !it.EOF() {
		for !c.EOF() {
			count++
			if err := c.NextEvent(); err != nil {
				return count, fmt.Errorf("unable to find next event: %w", err)
			}
		}
		if err := it.Next(c); err != nil {
			return count, fmt.Errorf("unable to find next path: %w", err)
		}
	}
	return count, nil
}
