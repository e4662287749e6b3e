package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/latticefi/matching-engine/internal/config"
	"github.com/latticefi/matching-engine/internal/engine"
	"github.com/latticefi/matching-engine/internal/events"
	httptransport "github.com/latticefi/matching-engine/internal/transport/http"
	"github.com/latticefi/matching-engine/internal/metrics"
	"github.com/latticefi/matching-engine/internal/model"
	"github.com/latticefi/matching-engine/internal/validate"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	symbols := make([]model.Symbol, 0, len(cfg.Engine.Symbols))
	for _, s := range cfg.Engine.Symbols {
		symbols = append(symbols, model.Symbol(s))
	}

	publisher := events.NewPublisher()
	defer publisher.Close()

	m := metrics.New()

	eng := engine.New(symbols, publisher, m, cfg.Engine.CommandBufferSize, cfg.Engine.MaxOrdersPerSymbol)
	eng.Start(ctx)

	val := validate.New(cfg.Engine.RatePerUserPerSecond, cfg.Engine.RateBurstPerUser)

	apiServer := httptransport.New(eng, val, cfg.Engine.SubmitTimeout)
	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Host + ":" + strconv.Itoa(cfg.HTTP.Port),
		Handler: apiServer.Handler(),
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:    cfg.HTTP.Host + ":" + strconv.Itoa(cfg.Metrics.Port),
		Handler: metricsMux,
	}

	go func() {
		log.Info().Str("addr", httpSrv.Addr).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server failed")
		}
	}()

	go func() {
		log.Info().Str("addr", metricsSrv.Addr).Msg("metrics server listening")
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	_ = eng.Stop()
}
