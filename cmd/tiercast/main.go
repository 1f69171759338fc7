package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/optispark/tiercast/internal/config"
	"github.com/optispark/tiercast/internal/data/cache"
	"github.com/optispark/tiercast/internal/domain"
	httpapi "github.com/optispark/tiercast/internal/interfaces/http"
	"github.com/optispark/tiercast/internal/metrics"
	"github.com/optispark/tiercast/internal/persistence"
	"github.com/optispark/tiercast/internal/persistence/postgres"
	"github.com/optispark/tiercast/internal/pipeline"
	"github.com/optispark/tiercast/internal/scheduler"
)

const (
	appName = "tiercast"
	version = "v1.2.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	var configPath string

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Daily LONG/SHORT ensemble tier scoring engine",
		Version: version,
		Long: `tiercast scores a fixed set of forecasting models into a daily LONG and
SHORT tier, replaying each model's history to weight it by demonstrated
skill and ranking today's score against a reconstructed distribution.`,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config (defaults apply when omitted)")

	computeCmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute tiers for one date and print the explanation",
		Long:  "Runs the full pipeline for the given date (or the latest observation date) and prints the explanation JSON to stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			asOf, _ := cmd.Flags().GetString("as-of")
			return runCompute(cmd.Context(), configPath, asOf)
		},
	}
	computeCmd.Flags().String("as-of", "", "Target date YYYY-MM-DD (default: latest observation date)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tier API over HTTP",
		Long:  "Starts the HTTP server with /v1/tiers, /v1/compute, /healthz, and /metrics endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the daily computation scheduler",
		Long:  "Runs the pipeline on the wall-clock schedule from the jobs file until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobs, _ := cmd.Flags().GetString("jobs")
			return runSchedule(cmd.Context(), configPath, jobs)
		},
	}
	scheduleCmd.Flags().String("jobs", "config/jobs.yaml", "Path to the scheduler jobs file")

	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load forecast artifacts and a price bar into the database",
		Long:  "Reads one <model>.json artifact per configured model from the artifact directory, plus an optional price.json daily bar, and upserts them for the given date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			date, _ := cmd.Flags().GetString("date")
			dir, _ := cmd.Flags().GetString("dir")
			return runIngest(cmd.Context(), configPath, date, dir)
		},
	}
	ingestCmd.Flags().String("date", "", "Artifact date YYYY-MM-DD (required)")
	ingestCmd.Flags().String("dir", ".", "Directory holding <model>.json artifacts and optional price.json")
	_ = ingestCmd.MarkFlagRequired("date")

	rootCmd.AddCommand(computeCmd, serveCmd, scheduleCmd, ingestCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// app is everything a subcommand needs, wired once.
type app struct {
	cfg    config.Config
	db     *sqlx.DB
	obs    persistence.ObservationStore
	prices persistence.PriceStore
	runner *pipeline.Runner
	server *httpapi.Server
}

func (a *app) Close() {
	a.db.Close()
}

func buildApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	db, err := sqlx.Connect("postgres", cfg.Storage.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	obs := postgres.NewObservationStore(db, cfg.Storage.QueryTimeout.Std())
	tiers := postgres.NewTierStore(db, cfg.Storage.QueryTimeout.Std())
	prices := postgres.NewPriceStore(db, cfg.Storage.QueryTimeout.Std())
	dist := cache.NewAuto(cfg.Storage.RedisAddr, log.Logger)

	reg := metrics.NewRegistry()
	prom := prometheus.NewRegistry()
	if err := reg.Register(prom); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	runner := pipeline.NewRunner(cfg, obs, tiers, prices, dist, reg, log.Logger)
	server := httpapi.NewServer(cfg, runner, tiers, prices, reg, prom, log.Logger)

	return &app{cfg: cfg, db: db, obs: obs, prices: prices, runner: runner, server: server}, nil
}

func runCompute(ctx context.Context, configPath, asOf string) error {
	a, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	date, err := a.runner.ResolveDate(ctx, asOf)
	if err != nil {
		return err
	}

	res, err := a.runner.Run(ctx, date)
	if err != nil {
		return err
	}
	if !res.Durable {
		log.Warn().Msg("result was not durably persisted")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Explanation)
}

func runServe(ctx context.Context, configPath string) error {
	a, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	}
}

func runIngest(ctx context.Context, configPath, dateStr, dir string) error {
	a, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", dateStr, err)
	}

	var batch []domain.ModelObservation
	for _, model := range a.cfg.Models {
		path := filepath.Join(dir, model+".json")
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				log.Warn().Str("model", model).Str("path", path).Msg("artifact missing, skipping")
				continue
			}
			return fmt.Errorf("failed to read artifact %s: %w", path, err)
		}
		obs, err := domain.ParseObservation(date, model, data)
		if err != nil {
			return err
		}
		batch = append(batch, obs)
	}
	if len(batch) == 0 {
		return fmt.Errorf("no artifacts found in %s", dir)
	}
	if err := a.obs.UpsertBatch(ctx, batch); err != nil {
		return err
	}
	log.Info().Int("models", len(batch)).Str("date", dateStr).Msg("observations ingested")

	bar, ok, err := readPriceBar(filepath.Join(dir, "price.json"), a.cfg.Price.Ticker, date)
	if err != nil {
		return err
	}
	if ok {
		if err := a.prices.Upsert(ctx, bar); err != nil {
			return err
		}
		log.Info().Str("ticker", bar.Ticker).Str("date", dateStr).Msg("price bar ingested")
	}
	return nil
}

// readPriceBar loads an optional OHLC bar. A missing file is not an error;
// price history can lag the forecast artifacts by a day.
func readPriceBar(path, ticker string, date time.Time) (domain.PriceBar, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.PriceBar{}, false, nil
		}
		return domain.PriceBar{}, false, fmt.Errorf("failed to read price bar: %w", err)
	}

	var bar domain.PriceBar
	if err := json.Unmarshal(data, &bar); err != nil {
		return domain.PriceBar{}, false, fmt.Errorf("failed to parse price bar: %w", err)
	}
	if bar.Ticker == "" {
		bar.Ticker = ticker
	}
	bar.Date = domain.DateOnly(date)
	return bar, true, nil
}

func runSchedule(ctx context.Context, configPath, jobsPath string) error {
	a, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := scheduler.New(jobsPath, a.runner, log.Logger)
	if err != nil {
		return err
	}

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
