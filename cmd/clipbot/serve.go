package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/clipbotio/clipbot/internal/classify"
	"github.com/clipbotio/clipbot/internal/config"
	"github.com/clipbotio/clipbot/internal/fetch"
	"github.com/clipbotio/clipbot/internal/gemini"
	"github.com/clipbotio/clipbot/internal/handlers"
	"github.com/clipbotio/clipbot/internal/healthcheck"
	"github.com/clipbotio/clipbot/internal/logger"
	"github.com/clipbotio/clipbot/internal/router"
	"github.com/clipbotio/clipbot/internal/server"
	"github.com/clipbotio/clipbot/internal/sweep"
	"github.com/clipbotio/clipbot/internal/transport"
	"github.com/clipbotio/clipbot/internal/transport/adapters/discord"
	"github.com/clipbotio/clipbot/internal/transport/adapters/telegram"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideFetchService,
			provideGeminiClient,
			provideClassifier,
			provideRouter,
			provideAdapters,
			provideRegistry,
			provideSweeper,
			provideServer,
		),
		fx.Invoke(
			startTransports,
			startSweeper,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideFetchService(log *slog.Logger, cfg config.Config) (*fetch.Service, error) {
	if err := os.MkdirAll(cfg.Fetch.DownloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}
	if err := os.MkdirAll(cfg.Fetch.TempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return fetch.NewService(log, fetch.Config{
		Binary:      cfg.Fetch.Binary,
		DownloadDir: cfg.Fetch.DownloadDir,
		Timeout:     cfg.Fetch.Timeout(),
	}), nil
}

func provideGeminiClient(log *slog.Logger, cfg config.Config) *gemini.Client {
	return gemini.NewClient(log, gemini.Config{
		APIKey:        cfg.Gemini.APIKey,
		Model:         cfg.Gemini.Model,
		BaseURL:       cfg.Gemini.BaseURL,
		Timeout:       cfg.Gemini.Timeout(),
		ReplyLanguage: cfg.Gemini.ReplyLanguage,
	})
}

func provideClassifier(log *slog.Logger) *classify.Classifier {
	return classify.New(log, nil)
}

func provideRouter(log *slog.Logger, fetcher *fetch.Service, ai *gemini.Client, classifier *classify.Classifier, cfg config.Config) *router.Router {
	return router.New(log, fetcher, ai, classifier, router.Config{
		MaxAudioSendBytes: cfg.Limits.MaxAudioSendBytes,
		MaxVideoSendBytes: cfg.Limits.MaxVideoSendBytes,
		DefaultQuality:    cfg.Router.DefaultQuality,
		SendGrace:         cfg.Router.SendGrace(),
	})
}

func provideAdapters(log *slog.Logger, cfg config.Config) []transport.Adapter {
	var adapters []transport.Adapter
	if cfg.Telegram.Enabled {
		adapters = append(adapters, telegram.New(log, cfg.Telegram.BotToken))
	}
	if cfg.Discord.Enabled {
		adapters = append(adapters, discord.New(log, cfg.Discord.BotToken))
	}
	return adapters
}

func provideRegistry(log *slog.Logger) *transport.Registry {
	return transport.NewRegistry(log)
}

func provideSweeper(log *slog.Logger, cfg config.Config) *sweep.Sweeper {
	dirs := []string{cfg.Fetch.DownloadDir, cfg.Fetch.TempDir}
	return sweep.New(log, dirs, cfg.Sweep.Retention(), cfg.Sweep.Spec)
}

func provideServer(log *slog.Logger, cfg config.Config, fetcher *fetch.Service, registry *transport.Registry) *server.Server {
	pingHandler := handlers.NewPingHandler(log)
	healthHandler := handlers.NewHealthHandler(log,
		healthcheck.NewToolChecker(cfg.Fetch.Binary, fetcher.ToolAvailable),
		healthcheck.NewTransportChecker(registry),
	)
	return server.NewServer(cfg.Server.Addr, pingHandler, healthHandler)
}

func startTransports(lc fx.Lifecycle, registry *transport.Registry, adapters []transport.Adapter, bot *router.Router) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return registry.StartAll(ctx, adapters, bot.Handle)
		},
		OnStop: func(stopCtx context.Context) error {
			registry.StopAll(stopCtx)
			cancel()
			return nil
		},
	})
}

func startSweeper(lc fx.Lifecycle, sweeper *sweep.Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error { return sweeper.Start() },
		OnStop:  func(_ context.Context) error { sweeper.Stop(); return nil },
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
