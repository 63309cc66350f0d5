package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gramsetu/gramsetu-go/internal/api"
	"github.com/gramsetu/gramsetu-go/internal/config"
	"github.com/gramsetu/gramsetu-go/internal/media"
	"github.com/gramsetu/gramsetu-go/internal/session"
)

// app bundles the wired coordination layer for one command invocation:
// session store, invalidator, API client, and media URL cache.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	sessions *session.Store
	client   *api.Client
	cache    *media.Cache
	urlStore *media.URLStore // nil when persistence is disabled
}

// newApp builds the coordination layer from the resolved config. Commands
// that reach the backend must call config.RequireAPI first.
func newApp(logger *slog.Logger) (*app, error) {
	cfg := cfgHolder.Config()

	sessions, err := session.NewStore(config.DefaultSessionPath(), logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()

	invalidator := session.NewInvalidator(sessions, func(reason string) {
		// The CLI's "unauthenticated entry point" is a message; the web
		// shell substitutes a navigation here.
		if reason != "logout" {
			os.Stderr.WriteString("Session expired, please log in again (gramsetu-go login)\n")
		}
	}, logger)

	httpClient := &http.Client{Timeout: cfg.API.ParsedRequestTimeout()}

	client := api.NewClient(
		cfg.API.BaseURL,
		cfg.API.Tenant,
		httpClient,
		sessions,
		invalidator,
		logger,
		api.NewMetrics(registry),
	)

	client.Coordinator().SetTimeout(cfg.API.ParsedRefreshTimeout())

	var urlStore *media.URLStore

	cachePath := cfg.Media.CachePath
	if cachePath == "" {
		cachePath = config.DefaultURLCachePath()
	}

	urlStore, err = media.OpenURLStore(cachePath, logger)
	if err != nil {
		// Persistence is advisory; fall back to memory-only.
		logger.Warn("opening URL cache database failed, continuing without persistence",
			slog.String("error", err.Error()))

		urlStore = nil
	}

	var cacheStore media.Store
	if urlStore != nil {
		cacheStore = urlStore
	}

	cache := media.NewCache(
		client.GetSignedURL,
		cfg.Media.ParsedRefreshMargin(),
		cacheStore,
		logger,
		media.NewMetrics(registry),
	)

	invalidator.Register(cache)

	return &app{
		cfg:      cfg,
		logger:   logger,
		sessions: sessions,
		client:   client,
		cache:    cache,
		urlStore: urlStore,
	}, nil
}

// close releases the app's resources.
func (a *app) close() {
	if a.urlStore != nil {
		if err := a.urlStore.Close(); err != nil {
			a.logger.Warn("closing URL cache database", slog.String("error", err.Error()))
		}
	}
}
