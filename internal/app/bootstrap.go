package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/domain"
	"github.com/singhaidotnish/minimalgotronifylicious/internal/execution"
	"github.com/singhaidotnish/minimalgotronifylicious/internal/gateway"
	"github.com/singhaidotnish/minimalgotronifylicious/internal/infra"
	"github.com/singhaidotnish/minimalgotronifylicious/internal/markethours"
	"github.com/singhaidotnish/minimalgotronifylicious/internal/storage"
	"github.com/singhaidotnish/minimalgotronifylicious/internal/symbols"
)

// Options controls how the application is assembled.
type Options struct {
	// ConfigPath overrides infra.ResolveConfigPath.
	ConfigPath string
	// DryRun swaps both live brokers for scripted adapters that never
	// leave the process. Paper stays real.
	DryRun bool
	// Banner receives the startup banner (nil: no banner).
	Banner io.Writer
}

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	opts Options

	Config    *infra.Config
	Session   *markethours.Session
	Catalog   *symbols.Catalog
	Factory   *execution.Factory
	Resolver  *execution.Resolver
	Journal   *storage.Journal
	Snapshots *storage.SnapshotManager
	Gateway   *gateway.Gateway
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap(opts Options) *Bootstrap {
	return &Bootstrap{opts: opts}
}

// Initialize loads configuration and wires the gateway.
func (b *Bootstrap) Initialize() error {
	// 1. Load Config (Dynamic Path Resolution)
	path := b.opts.ConfigPath
	if path == "" {
		path = infra.ResolveConfigPath()
	}
	cfg, err := infra.LoadConfig(path)
	if err != nil {
		return err
	}
	b.Config = cfg

	// 2. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("🚀 Bootstrapping execution gateway...", slog.String("config", path))

	// 3. Market clock for auto mode
	session, err := markethours.NSEIn(cfg.Gateway.MarketTimezone)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	b.Session = session

	// 4. Symbol catalog (also the SmartAPI token source)
	catalog, err := symbols.New(symbols.Config{
		NSEPath:     cfg.Symbols.NSEPath,
		BinancePath: cfg.Symbols.BinancePath,
		TTL:         cfg.Symbols.CacheTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create symbol catalog: %w", err)
	}
	b.Catalog = catalog

	// 5. Adapter registry
	b.Factory = execution.NewExecutionFactory(cfg, execution.FactoryOptions{Tokens: catalog})
	if b.opts.DryRun {
		for _, name := range []domain.BrokerName{domain.BrokerLiveA, domain.BrokerLiveB} {
			scripted := execution.NewScriptedAdapter(name)
			b.Factory.Register(name, func(ctx context.Context) (execution.Adapter, error) {
				return scripted, nil
			})
		}
		slog.Warn("🧪 DRY RUN: live brokers replaced by scripted adapters")
	}

	b.Resolver = execution.NewResolver(execution.ResolverConfig{
		EnvDefault:      cfg.Broker.Default,
		PaperKillSwitch: cfg.Broker.PaperKillSwitch,
		TrustedLive:     cfg.TrustedLiveBrokers(),
		WhenOpen:        domain.ParseBrokerName(cfg.Broker.WhenAutoOpen),
		WhenClosed:      domain.ParseBrokerName(cfg.Broker.WhenAutoClosed),
		MarketOpen:      session.Clock(nil),
	}, b.Factory)

	// 6. Order journal (optional, WAL-mode SQLite)
	gwOpts := []gateway.Option{gateway.WithSymbols(catalog)}
	if cfg.Journal.Enabled {
		dbPath := infra.ResolveJournalPath(cfg.Journal.Path)
		if err := infra.EnsureDir(filepath.Dir(dbPath)); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}
		journal, err := storage.OpenJournal(dbPath)
		if err != nil {
			return err
		}
		b.Journal = journal
		gwOpts = append(gwOpts, gateway.WithJournal(journal))
		slog.Info("✅ Order journal initialized (WAL-mode)", slog.String("path", dbPath))
	}

	b.Snapshots = storage.NewSnapshotManager(infra.SnapshotDir())

	// 7. Gateway
	b.Gateway = gateway.New(gateway.Config{
		FailureThreshold: cfg.Circuit.FailureThreshold,
		ResetWindow:      cfg.Circuit.ResetWindow,
		CallTimeout:      cfg.Gateway.CallTimeout,
		DefaultExchange:  cfg.Gateway.DefaultExchange,
	}, b.Resolver, b.Factory, gwOpts...)

	mode := b.Gateway.Mode()
	if b.Journal != nil {
		now := time.Now().UnixMilli()
		if err := b.Journal.UpsertMetadata(context.Background(), "last_start_mode", mode, now); err != nil {
			slog.Warn("Failed to write journal metadata", slog.String("error", err.Error()))
		}
	}
	if b.opts.Banner != nil {
		infra.PrintBanner(b.opts.Banner, cfg, mode)
	}

	slog.Info("✨ Execution gateway ready",
		slog.String("mode", mode),
		slog.Bool("dry_run", b.opts.DryRun),
		slog.Bool("market_open", session.IsOpen(time.Now())))
	return nil
}

// Close logs out of live brokers and releases local resources.
func (b *Bootstrap) Close(ctx context.Context) error {
	var errs []error
	if b.Factory != nil {
		errs = append(errs, b.Factory.Close(ctx))
	}
	if b.Journal != nil {
		errs = append(errs, b.Journal.Close())
	}
	if b.Catalog != nil {
		b.Catalog.Close()
	}
	return errors.Join(errs...)
}
