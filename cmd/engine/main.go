// Command engine is the scenario runner: it loads a bar CSV fixture for one
// instrument, wires a single strategy against one SimBroker, runs the
// engine to completion, and prints a JSON run summary to stdout.
//
// Grounded in the teacher's cmd/trader/main.go for flag parsing, structured
// startup logging, and signal-driven graceful shutdown, reworked from an
// always-on HTTP orchestration service into a one-shot batch runner around
// internal/engine.Engine.Run.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"jax-eventengine/internal/api"
	"jax-eventengine/internal/api/auth"
	"jax-eventengine/internal/broker/sim"
	"jax-eventengine/internal/clock"
	"jax-eventengine/internal/config"
	"jax-eventengine/internal/domain"
	"jax-eventengine/internal/engine"
	"jax-eventengine/internal/eventfeed"
	"jax-eventengine/internal/journal"
	"jax-eventengine/internal/observability"
	"jax-eventengine/internal/scenario"
	"jax-eventengine/internal/strategy"
)

func main() {
	var (
		barsPath       = flag.String("bars", "", "path to a bar CSV fixture (required, spec.md §6 bar CSV import)")
		instrumentName = flag.String("instrument", "AAPL", "instrument name")
		exchange       = flag.String("exchange", "XNAS", "instrument exchange code")
		quoteCurrency  = flag.String("currency", "USD", "instrument quote currency code")
		engineConfig   = flag.String("engine-config", "", "path to engine config JSON (optional, defaults applied)")
		brokerConfig   = flag.String("broker-config", "", "path to sim broker config JSON (optional, defaults applied)")
		journalDSN     = flag.String("journal-dsn", "", "optional Postgres DSN for trade journal persistence")
		apiAddr        = flag.String("api-addr", "", "optional address to serve the read-only status API on, e.g. :8090")
	)
	flag.Parse()

	if *barsPath == "" {
		log.Fatal("engine: -bars is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, runArgs{
		barsPath:       *barsPath,
		instrumentName: *instrumentName,
		exchange:       *exchange,
		quoteCurrency:  *quoteCurrency,
		engineConfig:   *engineConfig,
		brokerConfig:   *brokerConfig,
		journalDSN:     *journalDSN,
		apiAddr:        *apiAddr,
	}); err != nil {
		log.Fatalf("engine: %v", err)
	}
}

type runArgs struct {
	barsPath       string
	instrumentName string
	exchange       string
	quoteCurrency  string
	engineConfig   string
	brokerConfig   string
	journalDSN     string
	apiAddr        string
}

func run(ctx context.Context, args runArgs) error {
	engCfg, err := config.LoadEngineConfig(args.engineConfig)
	if err != nil {
		return fmt.Errorf("load engine config: %w", err)
	}
	brokerCfg, err := config.LoadSimBrokerConfig(args.brokerConfig)
	if err != nil {
		return fmt.Errorf("load broker config: %w", err)
	}

	instrument, barType, err := buildInstrument(args.instrumentName, args.exchange, args.quoteCurrency)
	if err != nil {
		return fmt.Errorf("build instrument: %w", err)
	}

	bars, err := scenario.LoadBarFile(args.barsPath, barType)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}
	observability.LogEvent(ctx, "info", "bars_loaded", map[string]any{
		"path":  args.barsPath,
		"count": len(bars),
	})

	broker, err := buildSimBroker(brokerCfg)
	if err != nil {
		return fmt.Errorf("build sim broker: %w", err)
	}

	eng := engine.New()
	eng.HaltOnStrategyError = engCfg.HaltOnStrategyError
	if err := eng.AddBroker("sim", broker); err != nil {
		return fmt.Errorf("add broker: %w", err)
	}

	strat := &buyAndHoldStrategy{instrument: instrument, brokerKey: "sim"}
	rt, err := eng.AddStrategy("buy-and-hold", strat)
	if err != nil {
		return fmt.Errorf("add strategy: %w", err)
	}

	barEvents := make([]domain.Event, 0, len(bars))
	for _, bar := range bars {
		barEvents = append(barEvents, domain.NewBarEvent(bar, bar.EndDt))
	}
	feed := eventfeed.NewListFeed("bars", barEvents, nil, nil)
	if err := rt.AddEventFeed("bars", feed, true); err != nil {
		return fmt.Errorf("attach bar feed: %w", err)
	}

	var sink *journal.Journal
	if args.journalDSN != "" {
		sink, err = journal.Connect(ctx, journal.DefaultConfig(args.journalDSN))
		if err != nil {
			return fmt.Errorf("connect journal: %w", err)
		}
		defer sink.Close()
		if err := sink.RunStarted(ctx, eng.RunID, clock.FromContext(ctx).Now().UTC()); err != nil {
			observability.LogEvent(ctx, "error", "journal_run_started_failed", map[string]any{"error": err.Error()})
		}
		eng.Sink = sink
	}

	var apiServer *http.Server
	if args.apiAddr != "" {
		apiServer, err = startStatusAPI(args.apiAddr, eng.RunID.String())
		if err != nil {
			return fmt.Errorf("start status api: %w", err)
		}
		defer apiServer.Close()
	}

	observability.LogEvent(ctx, "info", "run_started", map[string]any{
		"run_id":     eng.RunID.String(),
		"instrument": instrument.Key(),
	})

	if err := eng.Run(ctx); err != nil {
		return fmt.Errorf("engine run: %w", err)
	}

	observability.LogEvent(ctx, "info", "run_finished", map[string]any{
		"run_id": eng.RunID.String(),
	})

	return printSummary(eng.RunID.String(), broker)
}

// buildInstrument constructs the single instrument this scenario trades,
// along with the 1-minute LAST-price BarType its CSV fixture is parsed as.
func buildInstrument(name, exchange, currencyCode string) (domain.Instrument, domain.BarType, error) {
	currency, ok := domain.LookupCurrency(currencyCode)
	if !ok {
		return domain.Instrument{}, domain.BarType{}, fmt.Errorf("unknown currency code %q", currencyCode)
	}
	instrument, err := domain.NewInstrument(
		name, exchange, domain.AssetEquity,
		decimal.NewFromFloat(0.01), decimal.NewFromInt(1), decimal.NewFromInt(1),
		"share", currency,
	)
	if err != nil {
		return domain.Instrument{}, domain.BarType{}, err
	}
	barType := domain.BarType{
		Instrument:  instrument,
		PeriodValue: 1,
		PeriodUnit:  domain.PeriodMinute,
		PriceType:   domain.PriceLast,
	}
	return instrument, barType, nil
}

func buildSimBroker(cfg config.SimBrokerConfig) (*sim.SimBroker, error) {
	startingCash, err := decimal.NewFromString(cfg.StartingCash)
	if err != nil {
		return nil, fmt.Errorf("starting cash %q: %w", cfg.StartingCash, err)
	}
	accountCurrency, ok := domain.LookupCurrency(cfg.AccountCurrency)
	if !ok {
		return nil, fmt.Errorf("unknown account currency code %q", cfg.AccountCurrency)
	}
	feeRate, err := decimal.NewFromString(cfg.FeeRatePerUnit)
	if err != nil {
		return nil, fmt.Errorf("fee rate %q: %w", cfg.FeeRatePerUnit, err)
	}
	marginRatio, err := decimal.NewFromString(cfg.MarginRatio)
	if err != nil {
		return nil, fmt.Errorf("margin ratio %q: %w", cfg.MarginRatio, err)
	}

	fee := sim.FixedPerUnitFeeModel{RatePerUnit: feeRate, Currency: accountCurrency}
	margin := sim.FixedRatioMarginModel{Ratio: marginRatio}
	return sim.NewSimBroker("sim", startingCash, accountCurrency, sim.ZeroSpreadDepthModel{}, fee, margin, sim.IdentityFillModel{}, nil), nil
}

// buyAndHoldStrategy submits a single BUY market order on its first bar and
// never trades again, a minimal illustration of the Strategy contract
// wired end to end through the scenario runner.
type buyAndHoldStrategy struct {
	instrument domain.Instrument
	brokerKey  string
	rt         *strategy.Runtime
	submitted  bool
}

func (s *buyAndHoldStrategy) OnStart(ctx context.Context, rt *strategy.Runtime) error {
	s.rt = rt
	return nil
}

func (s *buyAndHoldStrategy) OnEvent(ctx context.Context, evt domain.Event) error {
	if s.submitted || evt.Kind != domain.EventBar {
		return nil
	}
	order := domain.NewOrder(s.instrument, domain.Buy, decimal.NewFromInt(1), domain.OrderMarket, domain.TIFGTC, domain.DirectionEntry)
	s.submitted = true
	return s.rt.SubmitOrder(ctx, &order, s.brokerKey)
}

func (s *buyAndHoldStrategy) OnExecution(ctx context.Context, exec domain.Execution) error {
	observability.LogEvent(ctx, "info", "demo_strategy_execution", map[string]any{
		"order_id": exec.Order.ID.String(),
		"quantity": exec.Fill.Quantity.String(),
		"price":    exec.Fill.Price.String(),
	})
	return nil
}

func (s *buyAndHoldStrategy) OnStop(ctx context.Context) error {
	return nil
}

var _ strategy.Strategy = (*buyAndHoldStrategy)(nil)

func startStatusAPI(addr, runID string) (*http.Server, error) {
	authMgr, err := auth.NewManager(auth.Config{Secret: []byte(addr + runID)})
	if err != nil {
		return nil, fmt.Errorf("new auth manager: %w", err)
	}
	store := &staticSnapshotStore{runID: runID}
	srv := api.NewServer(store, authMgr)

	httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("engine: status api stopped: %v", err)
		}
	}()
	return httpServer, nil
}

type staticSnapshotStore struct {
	runID string
}

func (s *staticSnapshotStore) RunSnapshot(runID string) (api.RunSnapshot, bool) {
	if runID != s.runID {
		return api.RunSnapshot{}, false
	}
	return api.RunSnapshot{RunID: s.runID}, true
}

func printSummary(runID string, broker *sim.SimBroker) error {
	account := broker.Account()
	cash := make(map[string]string, len(account.Cash))
	for code, money := range account.Cash {
		cash[code] = money.Amount.String()
	}
	positions := make(map[string]string, len(account.Positions))
	for key, qty := range account.Positions {
		positions[key] = qty.String()
	}
	summary := map[string]any{
		"run_id":    runID,
		"cash":      cash,
		"positions": positions,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
