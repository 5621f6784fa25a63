// Command server runs the elective recommendation API.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/SiddhiSinghal/elective-recommender/api"
	"github.com/SiddhiSinghal/elective-recommender/catalog"
	"github.com/SiddhiSinghal/elective-recommender/config"
	"github.com/SiddhiSinghal/elective-recommender/market"
	"github.com/SiddhiSinghal/elective-recommender/recommend"
	"github.com/SiddhiSinghal/elective-recommender/records"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml (optional)")
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}
	log = log.Level(level)

	// Catalog and taxonomy are loaded once and shared read-only; a broken
	// catalog is a startup error, never a per-request condition.
	tax, err := catalog.LoadTaxonomy(cfg.Catalog.TaxonomyPath)
	if err != nil {
		log.Fatal().Err(err).Msg("taxonomy load failed")
	}
	cat, err := catalog.Load(cfg.Catalog.SubjectsPath, tax)
	if err != nil {
		log.Fatal().Err(err).Msg("catalog load failed")
	}
	log.Info().Int("subjects", cat.Len()).Int("skills", tax.Len()).Msg("catalog loaded")

	store, err := records.Open(cfg.Records.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("grade record store open failed")
	}
	defer store.Close()

	cache, err := market.OpenCache(cfg.Market.CacheDir)
	if err != nil {
		log.Fatal().Err(err).Msg("market cache open failed")
	}
	defer cache.Close()

	source := market.NewHTTPSignalSource(
		cfg.Market.SignalBaseURL,
		cfg.Market.LookupTimeout,
		cfg.Market.LookupsPerSecond,
	)
	provider := market.NewProvider(cache, source,
		market.WithFallbackScore(cfg.Market.FallbackScore),
		market.WithLogger(log),
	)

	svc := recommend.NewService(cat, provider, cfg.Resolver.SimilarityThreshold, log)
	apiServer := api.NewServer(cat, store, provider, svc, cfg.Resolver.SimilarityThreshold, log)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      apiServer.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting elective recommender API")
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}
