package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/joho/godotenv"

	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/infra/geoip"
	"server/internal/orchestrator"
	"server/internal/providers/geocode"
	"server/internal/providers/image"
	"server/internal/providers/prompt"
	"server/internal/providers/weather"
	"server/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open geoip database")
	}

	geocoder := geocode.NewClient(cfg.GeocoderBaseURL, nil)
	weatherSvc := weather.NewClient(cfg.WeatherBaseURL, nil)
	composer := prompt.NewComposer()
	enhancer := prompt.NewHTTPEnhancer(prompt.HTTPEnhancerOptions{
		BaseURL: cfg.EnhancerBaseURL,
		APIKey:  cfg.EnhancerAPIKey,
	})
	jobs := image.NewClient(image.Options{
		BaseURL: cfg.ImageAPIBaseURL,
		Token:   cfg.ImageAPIToken,
	})

	sessions := session.New(
		cfg.SessionTTL,
		func() *orchestrator.Controller {
			return orchestrator.NewController(orchestrator.Options{
				Logger:       logger,
				Geocoder:     geocoder,
				Weather:      weatherSvc,
				Composer:     composer,
				Enhancer:     enhancer,
				Jobs:         jobs,
				PollInterval: cfg.PollInterval,
			})
		},
		func(c *orchestrator.Controller) { c.Close() },
	)

	scheduler := gocron.NewScheduler(time.UTC)
	if _, err := scheduler.Every(1).Minute().Do(sessions.Cleanup); err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule session sweep")
	}
	scheduler.StartAsync()

	app := handlers.NewApp(cfg, logger, sessions, resolver)
	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	scheduler.Stop()
	sessions.Shutdown()
	if closer, ok := resolver.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	logger.Info().Msg("server stopped")
}
