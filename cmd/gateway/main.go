/*
Command gateway routes one request through the execution gateway and prints
the JSON result.

Usage:

	gateway price     -symbol NSE:SBIN-EQ [-broker paper] [-market-open 1]
	gateway order     -id r1 -symbol NSE:SBIN-EQ -side BUY -qty 1 [-type LIMIT -price 601.5]
	gateway positions [-broker live_a] [-save]
	gateway symbols   [-broker live_b]
	gateway journal   [-n 20]
	gateway health

Every subcommand accepts -config and -dry-run. With -dry-run the live
brokers are replaced by scripted adapters and nothing leaves the process.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"

	"github.com/singhaidotnish/minimalgotronifylicious/internal/app"
	"github.com/singhaidotnish/minimalgotronifylicious/internal/domain"
	"github.com/singhaidotnish/minimalgotronifylicious/internal/gateway"
	"github.com/singhaidotnish/minimalgotronifylicious/internal/markethours"
	"github.com/singhaidotnish/minimalgotronifylicious/internal/storage"
)

// keepSnapshots is how many portfolio snapshots per broker survive -save.
const keepSnapshots = 20

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type commonFlags struct {
	config     string
	dryRun     bool
	broker     string
	marketOpen string
	banner     bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "Path to config.yaml (default: CONFIG_PATH, ./configs, OS config dir)")
	fs.BoolVar(&c.dryRun, "dry-run", false, "Replace live brokers with scripted adapters")
	fs.StringVar(&c.broker, "broker", "", "Broker override: paper, live_a, live_b or auto")
	fs.StringVar(&c.marketOpen, "market-open", "", "Market signal for auto mode (1/true/yes/on = open)")
	fs.BoolVar(&c.banner, "banner", false, "Print the startup banner to stderr")
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: gateway <price|order|positions|symbols|journal|health> [flags]")
}

// run executes one subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	cmd, rest := args[0], args[1:]

	var common commonFlags
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	common.register(fs)

	var (
		symbolArg = fs.String("symbol", "", "Instrument, e.g. NSE:SBIN-EQ or BINANCE:BTCUSDT")
		requestID = fs.String("id", "", "Idempotency key (order)")
		side      = fs.String("side", "", "BUY or SELL (order)")
		qty       = fs.Float64("qty", 0, "Quantity (order)")
		orderType = fs.String("type", "MARKET", "MARKET or LIMIT (order)")
		limitPx   = fs.Float64("price", 0, "Limit price (order)")
		save      = fs.Bool("save", false, "Store a portfolio snapshot (positions)")
		limit     = fs.Int("n", 20, "Number of journal entries (journal)")
	)

	switch cmd {
	case "price", "order", "positions", "symbols", "journal", "health":
	default:
		usage(stderr)
		return 2
	}
	if err := fs.Parse(rest); err != nil {
		return 2
	}

	opts := app.Options{ConfigPath: common.config, DryRun: common.dryRun}
	if common.banner {
		opts.Banner = stderr
	}
	boot := app.NewBootstrap(opts)
	if err := boot.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := boot.Close(closeCtx); err != nil {
			slog.Warn("Shutdown incomplete", slog.Any("error", err))
		}
	}()

	gw := boot.Gateway
	mkt := markethours.ParseSignal(common.marketOpen)
	sel := gateway.Selector{Broker: common.broker, MarketOpen: mkt}

	var (
		out any
		err error
	)
	switch cmd {
	case "price":
		out, err = gw.GetPrice(ctx, gateway.PriceRequest{Symbol: *symbolArg, Broker: common.broker, MarketOpen: mkt})

	case "order":
		oc := gateway.OrderCommand{
			RequestID:  *requestID,
			Symbol:     *symbolArg,
			Side:       *side,
			Qty:        *qty,
			Type:       *orderType,
			Broker:     common.broker,
			MarketOpen: mkt,
		}
		if isSet(fs, "price") {
			oc.Price = limitPx
		}
		out, err = gw.PlaceOrder(ctx, oc)

	case "positions":
		var p domain.Portfolio
		p, err = gw.GetPositions(ctx, sel)
		if err == nil && *save {
			err = saveSnapshot(boot, sel, p)
		}
		out = p

	case "symbols":
		out, err = gw.ListSymbols(ctx, sel)

	case "journal":
		if boot.Journal == nil {
			err = fmt.Errorf("%w: journal is disabled (set JOURNAL_ENABLED=true)", domain.ErrConfiguration)
			break
		}
		var entries []storage.OrderEntry
		entries, err = boot.Journal.Recent(ctx, *limit)
		if entries == nil {
			entries = []storage.OrderEntry{}
		}
		out = entries

	case "health":
		out = gw.Health()
	}

	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		if gateway.IsRetryable(err) {
			fmt.Fprintln(stderr, "hint: transient failure, retry later with the same -id")
		}
		return exitCode(err)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func saveSnapshot(boot *app.Bootstrap, sel gateway.Selector, p domain.Portfolio) error {
	name, err := boot.Resolver.Resolve(sel.Broker, sel.MarketOpen)
	if err != nil {
		return err
	}
	snap := storage.NewPortfolioSnapshot(name, time.Now().UnixMilli(), p)
	if _, err := boot.Snapshots.Save(snap); err != nil {
		return err
	}
	return boot.Snapshots.Cleanup(name, keepSnapshots)
}

func isSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// exitCode separates request mistakes (2) from broker and setup failures (1).
func exitCode(err error) int {
	if domain.IsClientError(err) {
		return 2
	}
	if errors.Is(err, domain.ErrCircuitOpen) {
		return 3
	}
	return 1
}
