package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/brewlog/internal/catalog"
	"github.com/roach88/brewlog/internal/config"
	"github.com/roach88/brewlog/internal/events"
	"github.com/roach88/brewlog/internal/journal"
	"github.com/roach88/brewlog/internal/logging"
	"github.com/roach88/brewlog/internal/metrics"
	"github.com/roach88/brewlog/internal/store"
)

// app is everything a command needs, built from config and global flags.
type app struct {
	cfg     *config.Config
	svc     *journal.Service
	store   *store.Store
	metrics *metrics.Metrics
	events  *events.Subscription
	logger  *slog.Logger
	now     func() time.Time

	metricsOut string
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// loadConfig reads config and applies global flag overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Database != "" {
		cfg.Store.Path = opts.Database
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog.Path != "" {
		return catalog.LoadFile(cfg.Catalog.Path)
	}
	return catalog.Default()
}

func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.Log)

	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	storeOpts := []store.Option{
		store.WithSyncEnabled(cfg.Store.SyncEnabled),
		store.WithLogger(logger),
		store.WithMetrics(m),
	}
	if opts.IDs != nil {
		storeOpts = append(storeOpts, store.WithIDGenerator(opts.IDs))
	}
	if opts.Now != nil {
		storeOpts = append(storeOpts, store.WithClock(clockFunc(opts.Now)))
	}

	logger.Debug("opening database", "path", cfg.Store.Path)
	st, err := store.Open(cfg.Store.Path, storeOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	bus := events.NewBus()
	svc := journal.New(st, cat,
		journal.WithLocation(cfg.Stats.Location()),
		journal.WithTopN(cfg.Stats.TopN),
		journal.WithTrendWindow(cfg.Stats.TrendMonths),
		journal.WithInsightWindows(cfg.Insights.WeeklyWindow, cfg.Insights.MonthlyWindow),
		journal.WithClock(now),
		journal.WithLogger(logger),
		journal.WithMetrics(m),
		journal.WithBus(bus),
	)

	metricsOut := opts.MetricsOut
	if metricsOut == "" {
		metricsOut = cfg.Metrics.TextfilePath
	}

	return &app{
		cfg:        cfg,
		svc:        svc,
		store:      st,
		metrics:    m,
		events:     bus.Subscribe(),
		logger:     logger,
		now:        now,
		metricsOut: metricsOut,
	}, nil
}

// close drains pending events into the verbose log, writes the metrics
// textfile if one is configured, and closes the store.
func (a *app) close(f *OutputFormatter) {
	for {
		ev, ok := a.events.TryNext()
		if !ok {
			break
		}
		switch ev.Kind {
		case events.KindAchievementUnlocked:
			f.VerboseLog("event: %s %s", ev.Kind, ev.Achievement.ID)
		case events.KindInsightsGenerated:
			f.VerboseLog("event: %s %s (%d insights)", ev.Kind, ev.Insights.Period, len(ev.Insights.RuleIDs))
		}
	}
	a.events.Close()

	if a.metricsOut != "" {
		a.metrics.SetStoreVersion(a.store.Version())
		if err := a.metrics.WriteTextfile(a.metricsOut); err != nil {
			a.logger.Error("failed to write metrics", "path", a.metricsOut, "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}

// withApp opens the journal, runs fn, and always closes it. Errors from
// fn are reported through the formatter and mapped to exit codes.
func withApp(opts *RootOptions, cmd *cobra.Command, message string, fn func(ctx context.Context, a *app, f *OutputFormatter) error) error {
	f := newFormatter(opts, cmd)
	a, err := openApp(opts, cmd)
	if err != nil {
		return f.Fail("failed to open journal", err)
	}
	defer a.close(f)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := fn(ctx, a, f); err != nil {
		return f.Fail(message, err)
	}
	return nil
}

type clockFunc func() time.Time

func (c clockFunc) Now() time.Time { return c() }
