package cli

import (
	"fmt"

	"github.com/hbomb79/mediascan/internal/batch"
	"github.com/hbomb79/mediascan/internal/discover"
	"github.com/hbomb79/mediascan/internal/event"
	"github.com/hbomb79/mediascan/internal/extract"
	"github.com/hbomb79/mediascan/internal/report"
	"github.com/hbomb79/mediascan/internal/settings"
	"github.com/hbomb79/mediascan/internal/watch"
	"github.com/hbomb79/mediascan/pkg/logger"
	"github.com/spf13/cobra"
)

func newConvertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <input.json> <output.xlsx>",
		Short: "Convert a JSON metadata document in to a workbook with one worksheet per folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := report.Convert(args[0], args[1]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Excel file saved to %s\n", args[1])
			return nil
		},
	}
}

func newWatchCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [directory]",
		Short: "Re-scan a directory and rewrite the reports whenever its media changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			bus.RegisterHandlerFunction(event.WATCH_TRIGGERED, func(_ event.Event, payload event.Payload) {
				log.Emit(logger.INFO, "Change detected (%v), re-scanning %s\n", payload, dir)
			})

			discoverer := discover.New(cfg.DiscoveryExtensions()...)
			runner := batch.NewRunner(discoverer, chain, bus, cfg.ProgressInterval)
			reportFn := func(result *batch.Result) error {
				if err := writeReports(cfg, result); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), report.Summary(result.Processed(), result.TotalBytes))
				printOutputs(cmd.OutOrStdout(), cfg)
				return nil
			}

			service, err := watch.New(watch.Config{Root: dir, Debounce: cfg.WatchDebounce}, runner, discoverer, reportFn, bus)
			if err != nil {
				return err
			}

			if err := settings.Save(cfg.SettingsPath, settings.Settings{LastDirectory: dir}); err != nil {
				log.Emit(logger.WARNING, "Unable to remember directory %s: %v\n", dir, err)
			}

			return service.Run(cmd.Context())
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}
