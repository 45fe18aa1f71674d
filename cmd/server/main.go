package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/anyauth/gateway/anyauth"
	"github.com/anyauth/gateway/credstore"
	"github.com/anyauth/gateway/google"
	"github.com/anyauth/gateway/internal/config"
	"github.com/anyauth/gateway/internal/metrics"
	"github.com/anyauth/gateway/registration"
	"github.com/anyauth/gateway/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("error running server")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	// Missing .env is fine, real deployments configure the environment directly.
	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		return err
	}

	setupLogger(cfg)
	displayAppname(cfg.GetAppName())
	log.Info().Str("environment", cfg.GetEnv()).Msg("runtime environment")

	ctx := context.Background()
	gatewayMetrics := metrics.New(prometheus.DefaultRegisterer)

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	service := anyauth.NewServiceClient(
		cfg.GetAnyAuthBaseURL(),
		cfg.GetServiceUsername(),
		cfg.GetServicePassword(),
		anyauth.WithLogger(log.Logger),
		anyauth.WithMetrics(gatewayMetrics),
	)
	// The server cannot safely start without a working service identity.
	if err := service.Authenticate(ctx); err != nil {
		return fmt.Errorf("service authentication: %w", err)
	}
	log.Info().Msg("service client authenticated")

	users := anyauth.NewUserClient(
		cfg.GetAnyAuthBaseURL(),
		store,
		anyauth.WithUserLogger(log.Logger),
		anyauth.WithUserMetrics(gatewayMetrics),
	)

	bridge, err := registration.New(service, store, registration.WithLogger(log.Logger))
	if err != nil {
		return err
	}

	oauth := google.New(cfg.GetGoogleClientID(), cfg.GetGoogleClientSecret(), cfg.GetOAuthRedirectURL())

	gateway, err := server.New(cfg, service, users, bridge, oauth, promhttp.Handler(), log.Logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: cfg.GetPort(), Handler: gateway}
	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

func newStore(ctx context.Context, cfg config.Config) (anyauth.TokenStore, func(), error) {
	if addr := cfg.GetRedisAddr(); addr != "" {
		store, err := credstore.NewRedisStore(ctx, addr, credstore.WithRedisStoreLogger(log.Logger))
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("addr", addr).Msg("using redis credential store")
		return store, func() { _ = store.Close() }, nil
	}

	store, err := credstore.NewFileStore(cfg.GetCacheDir(), credstore.WithFileStoreLogger(log.Logger))
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("dir", cfg.GetCacheDir()).Msg("using file credential store")
	return store, func() {}, nil
}

func setupLogger(cfg config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func listenAndServe(httpServer *http.Server) {
	log.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
