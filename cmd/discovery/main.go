// Command discovery wires the market data client, orchestrator, job runner,
// HTTP facade, and scheduler into a single process.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mikedmote52/amc-discovery/internal/cache"
	"github.com/mikedmote52/amc-discovery/internal/config"
	"github.com/mikedmote52/amc-discovery/internal/domain"
	"github.com/mikedmote52/amc-discovery/internal/infrastructure/db"
	discoveryhttp "github.com/mikedmote52/amc-discovery/internal/interfaces/http"
	"github.com/mikedmote52/amc-discovery/internal/infrastructure/providers"
	"github.com/mikedmote52/amc-discovery/internal/jobs"
	"github.com/mikedmote52/amc-discovery/internal/marketdata"
	"github.com/mikedmote52/amc-discovery/internal/net/ratelimit"
	"github.com/mikedmote52/amc-discovery/internal/orchestrator"
	"github.com/mikedmote52/amc-discovery/internal/persistence"
	"github.com/mikedmote52/amc-discovery/internal/regime"
	"github.com/mikedmote52/amc-discovery/internal/scheduler"
	"github.com/mikedmote52/amc-discovery/internal/universe"
)

const version = "v1.0.0"

// Exit codes per §6.
const (
	exitInvalidConfig = 2
	exitProviderDown  = 3
	exitTimeout       = 4
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	var strategyPath, providerURL, providerKey, schedulePath string

	rootCmd := &cobra.Command{
		Use:     "discovery",
		Short:   "AMC-TRADER stock discovery pipeline",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVar(&strategyPath, "strategy", "", "path to a strategy config file (defaults to the AlphaStack 4.1 built-in)")
	rootCmd.PersistentFlags().StringVar(&providerURL, "provider-url", os.Getenv("MARKETDATA_URL"), "upstream market data base URL")
	rootCmd.PersistentFlags().StringVar(&providerKey, "provider-key", os.Getenv("MARKETDATA_KEY"), "upstream market data API key")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP facade, job runner, and scheduler together",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(strategyPath, providerURL, providerKey, schedulePath)
		},
	}
	serveCmd.Flags().StringVar(&schedulePath, "schedule", "", "optional scheduler config path (scheduling disabled if empty)")

	var scanStrategyID string
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a single discovery pass synchronously and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(strategyPath, providerURL, providerKey, scanStrategyID)
		},
	}
	scanCmd.Flags().StringVar(&scanStrategyID, "strategy-id", "default", "strategy id to scan")

	rootCmd.AddCommand(serveCmd, scanCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(exitForError(err))
	}
}

func exitForError(err error) int {
	var derr *domain.Error
	if errors.As(err, &derr) {
		switch derr.Kind() {
		case domain.KindInvalidConfig:
			return exitInvalidConfig
		case domain.KindProviderUnavailable:
			return exitProviderDown
		case domain.KindRunTimeout:
			return exitTimeout
		}
	}
	return exitInvalidConfig
}

// stack is every long-lived component the serve/scan commands share.
type stack struct {
	orch       *orchestrator.Orchestrator
	runner     *jobs.JobRunner
	store      cache.Store
	breakers   *providers.Manager
	db         *db.Manager
	resolveCfg jobs.ConfigResolver
}

func buildStack(strategyPath, providerURL, providerKey string) (*stack, domain.StrategyConfig, error) {
	discoveryhttp.InitializeMetrics()

	defaultCfg := config.DefaultStrategy()
	strategies := map[string]domain.StrategyConfig{defaultCfg.ID: defaultCfg}
	if strategyPath != "" {
		loaded, err := config.LoadStrategy(strategyPath)
		if err != nil {
			return nil, domain.StrategyConfig{}, err
		}
		strategies[loaded.ID] = loaded
	}

	breakers := providers.NewManager()
	breakers.Register(providers.DefaultMarketDataBreakerConfig())

	dbCfg := db.DefaultConfig()
	dbCfg.Enabled = os.Getenv("PG_ENABLED") == "true"
	dbCfg.DSN = os.Getenv("PG_DSN")
	dbManager, err := db.NewManager(dbCfg)
	if err != nil {
		return nil, domain.StrategyConfig{}, domain.NewInvalidConfig("connect to postgres", err)
	}
	var volumeRepo persistence.VolumeAverageRepo
	if dbManager.IsEnabled() {
		volumeRepo = dbManager.Repository().VolumeAverages
	}

	provider := marketdata.NewHTTPProvider(providerURL, providerKey)
	limiter := ratelimit.NewLimiter(5, 10)
	volumeCache := marketdata.NewVolumeAverageCache(volumeRepo)
	client := marketdata.NewClient(provider, limiter, breakers, volumeCache)

	store := cache.NewAuto()
	calendar := universe.NewWeekdayCalendar()
	filter := universe.New(defaultCfg.Guards, calendar)

	regimeSource := regime.NewMarketSource("SPY", func(ctx context.Context) (regime.DailyBars, error) {
		details, _ := client.EnrichSymbol(ctx, "SPY")
		return regime.DailyBars{Highs: details.DailyHighs, Lows: details.DailyLows, Closes: details.DailyCloses}, nil
	})

	orch := orchestrator.New(client, store, orchestrator.SystemClock, filter, regimeSource)

	resolveCfg := func(id string) (domain.StrategyConfig, error) {
		cfg, ok := strategies[id]
		if !ok {
			return domain.StrategyConfig{}, domain.NewInvalidConfig("unknown strategy: "+id, nil)
		}
		return cfg, nil
	}
	runner := jobs.NewJobRunner(orch, resolveCfg, 300*time.Second)

	return &stack{orch: orch, runner: runner, store: store, breakers: breakers, db: dbManager, resolveCfg: resolveCfg}, defaultCfg, nil
}

func runServe(strategyPath, providerURL, providerKey, schedulePath string) error {
	st, _, err := buildStack(strategyPath, providerURL, providerKey)
	if err != nil {
		return err
	}
	defer st.db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go st.runner.Start(ctx)

	if schedulePath != "" {
		schedCfg, err := scheduler.LoadConfig(schedulePath)
		if err != nil {
			return err
		}
		sched := scheduler.New(schedCfg, st.runner)
		go func() {
			if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("scheduler stopped")
			}
		}()
	}

	httpCfg := discoveryhttp.DefaultServerConfig()
	srv, err := discoveryhttp.NewServer(httpCfg, discoveryhttp.Deps{
		Runner:     st.runner,
		Cache:      st.store,
		Breakers:   st.breakers,
		DB:         st.db,
		ResolveCfg: st.resolveCfg,
	})
	if err != nil {
		return err
	}

	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("http server stopped")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func runScan(strategyPath, providerURL, providerKey, strategyID string) error {
	st, _, err := buildStack(strategyPath, providerURL, providerKey)
	if err != nil {
		return err
	}
	defer st.db.Close()

	cfg, err := st.resolveCfg(strategyID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Second)
	defer cancel()

	runID := "manual-" + time.Now().UTC().Format("20060102T150405")
	record, err := st.orch.Run(ctx, runID, cfg)
	if err != nil {
		return err
	}
	log.Info().Str("run_id", record.RunID).Str("state", string(record.State)).Str("system_state", record.SystemState).Msg("scan complete")
	return nil
}
