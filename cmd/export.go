package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/theirongolddev/copilot-usage/internal/config"
	"github.com/theirongolddev/copilot-usage/internal/export"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var flagExportFormat string

var exportCmd = &cobra.Command{
	Use:     "export",
	Aliases: []string{"waybar"},
	Short:   "Print usage as one JSON line for waybar",
	RunE:    runExport,
}

func init() {
	exportCmd.Flags().BoolVarP(&flagRefresh, "refresh", "r", false, "Fetch fresh data even if the cache is valid")
	exportCmd.Flags().StringVar(&flagExportFormat, "format", "", "Text template ({percentage}, {used}, {limit}, {remaining})")
	rootCmd.AddCommand(exportCmd)
}

var errConfigMissing = errors.New("Configuration missing. Run `copilot-usage setup` first.")

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !configExists() && config.Token(cfg) == "" {
		return errConfigMissing
	}

	log, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}

	format := cfg.Export.Format
	if flagExportFormat != "" {
		format = flagExportFormat
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	err = export.Run(ctx, export.Options{
		Store:        st,
		Fetcher:      newFetcher(cfg),
		TTL:          cfg.TTL(),
		Force:        flagRefresh,
		Format:       format,
		OveragePrice: config.ResolvePlan(cfg).OveragePrice,
		Logger:       log.Named("export"),
	}, os.Stdout)
	if err != nil {
		log.Error("export failed", zap.Error(err))
		return err
	}
	return nil
}
