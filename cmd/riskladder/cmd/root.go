package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/songzhibin97/riskladder/internal/configs"
	"github.com/songzhibin97/riskladder/internal/data/storage"
	"github.com/songzhibin97/riskladder/internal/journal"
	"github.com/songzhibin97/riskladder/internal/risk"
)

// rootOptions is shared by every subcommand; cfg and logger are set in PersistentPreRunE
type rootOptions struct {
	configPath string

	cfg    *configs.Config
	logger *slog.Logger
}

// NewRootCommand builds a fresh command tree
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "riskladder",
		Short: "Adaptive risk-level controller for futures trading",
		Long: `Riskladder walks a six-rung risk ladder from trade outcomes and the
market regime, and derives position sizes and exit plans from the current rung.

Examples:
  riskladder status
  riskladder record --win --pnl 12.5
  riskladder size --capital 1000 --entry 65000 --stop 64000
  riskladder plan --symbol BTCUSDT --direction long
  riskladder regime detect --apply
  riskladder positions --balance 2000
  riskladder run -c config.yaml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configs.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = newLogger(cfg.Log, cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to YAML or JSON config file")

	cmd.AddCommand(
		newStatusCmd(opts),
		newRecordCmd(opts),
		newSizeCmd(opts),
		newPlanCmd(opts),
		newCoinCmd(opts),
		newRegimeCmd(opts),
		newHistoryCmd(opts),
		newPositionsCmd(opts),
		newRunCmd(opts),
	)
	return cmd
}

// Execute runs the root command with os.Args
func Execute() error {
	return NewRootCommand().Execute()
}

func newLogger(c configs.LogConfig, w io.Writer) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{
		AddSource: c.AddSource,
		Level:     c.SlogLevel(),
	}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// openController opens the configured store and journal. The returned
// cleanup must be called once the controller is no longer used.
func (o *rootOptions) openController(ctx context.Context, extra ...risk.Option) (*risk.Controller, func(), error) {
	store, err := storage.Open(ctx, o.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open state store: %w", err)
	}

	options := []risk.Option{risk.WithLogger(o.logger)}
	closers := []func() error{store.Close}

	if o.cfg.Journal.Enabled {
		j, err := journal.NewSQLite(o.cfg.Journal.DBPath)
		if err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("failed to open journal: %w", err)
		}
		options = append(options, risk.WithJournal(j))
		closers = append(closers, j.Close)
	}
	options = append(options, extra...)

	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				o.logger.Warn("failed to close resource", "err", err)
			}
		}
	}
	return risk.NewController(ctx, store, options...), cleanup, nil
}
