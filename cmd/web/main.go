package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"postcreator/internal/http/handlers"
	httpapi "postcreator/internal/http/httpapi"
	"postcreator/internal/infra"
	"postcreator/internal/poller"
	"postcreator/internal/providers/postapi"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "web").Logger()

	client, err := postapi.NewClient(postapi.Options{
		BaseURL:        cfg.APIBaseURL,
		Logger:         &logger,
		RequestTimeout: cfg.APITimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build api client")
	}

	app, err := handlers.NewApp(handlers.Options{
		API:         client,
		Policy:      poller.PolicyFromConfig(cfg),
		Logger:      &logger,
		SessionIdle: cfg.SessionIdle,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build web form")
	}
	defer app.Close()

	router := httpapi.NewRouter(app, logger, cfg.RateLimitPerMin)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Str("api", client.BaseURL()).Msg("web form listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	logger.Info().Msg("server stopped")
}
