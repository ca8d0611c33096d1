// Package cli implements the mediascan command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/hbomb79/mediascan/internal/batch"
	"github.com/hbomb79/mediascan/internal/config"
	"github.com/hbomb79/mediascan/internal/discover"
	"github.com/hbomb79/mediascan/internal/event"
	"github.com/hbomb79/mediascan/internal/extract"
	"github.com/hbomb79/mediascan/internal/report"
	"github.com/hbomb79/mediascan/internal/settings"
	"github.com/hbomb79/mediascan/pkg/logger"
	"github.com/spf13/cobra"
)

var log = logger.Get("CLI")

// Version is the version reported by 'mediascan version', set at
// build time using -ldflags.
var Version = "dev"

var (
	ErrInterrupted = errors.New("scan interrupted before completion")
	ErrNoDirectory = errors.New("no directory provided and no previously scanned directory is remembered")
)

// options holds the values of the flags shared by the scanning commands.
type options struct {
	configPath    string
	output        string
	jsonOutput    string
	groupByFolder bool
	adapters      []string
	logLevel      string
	keepPartial   bool
}

// Execute runs the mediascan CLI with the process arguments, returning
// the exit code for the process. SIGINT and SIGTERM cancel the command's
// context.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "mediascan failed: %v\n", err)
		return 1
	}

	return 0
}

// NewRootCommand constructs the 'mediascan' command and its sub-commands.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "mediascan [directory]",
		Short: "Extract metadata from a media library in to a spreadsheet",
		Long: `mediascan walks a directory tree, extracts metadata (duration, resolution,
frame rate, codec, audio tags, size and modification time) from every media
file it finds, and writes the records to an .xlsx workbook and/or a JSON
document.

If the directory is omitted, the directory scanned most recently is used.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, opts, args)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "configuration file (default "+config.DefaultConfigPath+")")
	flags.StringVarP(&opts.output, "output", "o", "", "spreadsheet output path (default media_metadata.xlsx)")
	flags.StringVar(&opts.jsonOutput, "json", "", "also write the records as JSON to this path")
	flags.BoolVar(&opts.groupByFolder, "group-by-folder", false, "write one worksheet per folder")
	flags.StringSliceVar(&opts.adapters, "adapters", nil, "ordered metadata adapters to use, later adapters take precedence (container, tags, mediainfo, exif)")
	flags.StringVar(&opts.logLevel, "log-level", "", "minimum log level (verbose, debug, info, success, warning, error)")
	root.Flags().BoolVar(&opts.keepPartial, "keep-partial", false, "write the records processed so far if the scan is interrupted")

	root.AddCommand(newConvertCommand(), newWatchCommand(opts), newVersionCommand())
	return root
}

func runScan(cmd *cobra.Command, opts *options, args []string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	dir, err := resolveDirectory(cfg, args)
	if err != nil {
		return err
	}

	chain, err := extract.Build(cfg.Adapters, cfg.AdapterOptions())
	if err != nil {
		return err
	}
	defer chain.Close()

	bus := event.New()
	var troubled atomic.Int32
	bus.RegisterHandlerFunction(event.FILE_TROUBLED, func(event.Event, event.Payload) { troubled.Add(1) })

	runner := batch.NewRunner(discover.New(cfg.DiscoveryExtensions()...), chain, bus, cfg.ProgressInterval)
	result, err := runner.Run(cmd.Context(), dir)
	if err != nil {
		return err
	}

	if result.Cancelled() && !opts.keepPartial {
		return fmt.Errorf("%w after %d of %d files (use --keep-partial to write partial results)", ErrInterrupted, result.Processed(), result.Discovered)
	}

	if err := writeReports(cfg, result); err != nil {
		return err
	}

	if err := settings.Save(cfg.SettingsPath, settings.Settings{LastDirectory: dir}); err != nil {
		log.Emit(logger.WARNING, "Unable to remember directory %s: %v\n", dir, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, report.Summary(result.Processed(), result.TotalBytes))
	if n := troubled.Load(); n > 0 {
		fmt.Fprintf(out, "%d file(s) could not be read, see the error column for details\n", n)
	}
	if result.Cancelled() {
		fmt.Fprintf(out, "Scan was interrupted, partial results (%d of %d files) were saved\n", result.Processed(), result.Discovered)
	}
	printOutputs(out, cfg)

	return nil
}

// loadConfig loads the configuration, applying any flags explicitly set on
// the command line over the values from the file and environment.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.Path = opts.output
	}
	if flags.Changed("json") {
		cfg.Output.JSONPath = opts.jsonOutput
	}
	if flags.Changed("group-by-folder") {
		cfg.Output.GroupByFolder = opts.groupByFolder
	}
	if flags.Changed("adapters") {
		cfg.Adapters = opts.adapters
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}

	logger.SetMinLoggingLevel(cfg.MinLogLevel().Level())
	return cfg, nil
}

// resolveDirectory returns the directory to scan: the argument if one was
// given, otherwise the remembered directory from the settings file.
func resolveDirectory(cfg *config.Config, args []string) (string, error) {
	if len(args) > 0 {
		dir, err := filepath.Abs(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", args[0], err)
		}

		return dir, discover.ValidateRoot(dir)
	}

	stored, err := settings.Load(cfg.SettingsPath)
	if err != nil {
		return "", err
	}
	if stored.LastDirectory == "" {
		return "", ErrNoDirectory
	}

	log.Emit(logger.INFO, "Using previously scanned directory %s\n", stored.LastDirectory)
	return stored.LastDirectory, nil
}

// writeReports writes the result to the spreadsheet and, if configured,
// the JSON document. Neither is written unless both succeed.
func writeReports(cfg *config.Config, result *batch.Result) error {
	dest := report.Destinations{
		XLSXPath: cfg.Output.Path,
		JSONPath: cfg.Output.JSONPath,
		Options:  report.Options{GroupByFolder: cfg.Output.GroupByFolder},
	}

	return report.Write(dest, result.Schema, result.Records)
}

func printOutputs(out io.Writer, cfg *config.Config) {
	fmt.Fprintf(out, "Metadata saved to %s\n", cfg.Output.Path)
	if cfg.Output.JSONPath != "" {
		fmt.Fprintf(out, "JSON saved to %s\n", cfg.Output.JSONPath)
	}
}
