package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/room4-2/OpenOrder/config"
	"github.com/room4-2/OpenOrder/dialogue"
	"github.com/room4-2/OpenOrder/fuzzy"
	"github.com/room4-2/OpenOrder/gemini"
	"github.com/room4-2/OpenOrder/intent"
	"github.com/room4-2/OpenOrder/logging"
	"github.com/room4-2/OpenOrder/menu"
	"github.com/room4-2/OpenOrder/order"
	"github.com/room4-2/OpenOrder/server"
	"github.com/room4-2/OpenOrder/session"
	"github.com/room4-2/OpenOrder/store"
)

const shutdownTimeout = 10 * time.Second

type runner interface {
	Start() error
	Shutdown(ctx context.Context) error
}

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := connectRedis(ctx, cfg, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	tickets, err := openStore(ctx, cfg, rdb)
	if err != nil {
		return err
	}
	defer tickets.Close()

	provider, err := menuProvider(cfg, rdb)
	if err != nil {
		return err
	}
	holder := menu.NewHolder(provider, logger)
	if _, err := holder.Reload(ctx); err != nil {
		return err
	}

	engineCfg := dialogue.Config{
		Matcher: fuzzy.New(),
		Resolver: order.ResolverConfig{
			MinConfidence: cfg.ClassifierMinConfidence,
			FuzzyCutoff:   cfg.FuzzyCutoff,
		},
		Sentiment:   intent.KeywordSentiment{},
		TurnTimeout: cfg.TurnTimeout,
		Production:  cfg.Production(),
		Logger:      logger,
	}
	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			return err
		}
		engineCfg.Classifier = gemini.NewClassifier(client)
		if cfg.EnableOCR {
			engineCfg.OCR = gemini.NewOCR(client)
		}
		if cfg.EnableIntentModel {
			engineCfg.IntentModel = gemini.NewIntentModel(client)
		}
	} else {
		logger.Warn("GEMINI_API_KEY not set, running without semantic classifier and ocr")
	}

	var states session.StateStore = session.NewMemoryStates()
	var bookkeeping redis.UniversalClient
	if rdb != nil {
		states = session.NewRedisStates(rdb, cfg.SessionTimeout)
		bookkeeping = rdb
	}

	engine := dialogue.NewEngine(holder, tickets, states, engineCfg)
	sessionManager := session.NewManager(cfg, engine, states, bookkeeping, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sessionManager.StartCleanupRoutine(gctx)
		return nil
	})

	var nc *nats.Conn
	if cfg.NatsURL != "" {
		nc, err = nats.Connect(cfg.NatsURL, nats.Name("openorder"))
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer nc.Close()
		g.Go(func() error {
			return menu.Watch(gctx, nc, cfg.MenuSubject, holder, shutdownTimeout)
		})
	}

	api := func() runner {
		deps := server.APIDeps{Turns: engine, Tickets: tickets, Menu: holder}
		if nc != nil {
			deps.OnMenuReload = func() error { return menu.NotifyChanged(nc, cfg.MenuSubject) }
		}
		return server.NewAPIServer(cfg, deps, logger)
	}

	var servers []runner
	switch cfg.ServerType {
	case config.ServerWebsocket:
		servers = append(servers, server.NewServerWebsocket(cfg, sessionManager, logger))
	case config.ServerHTTP:
		servers = append(servers, api())
	case config.ServerBoth:
		servers = append(servers, server.NewServerWebsocket(cfg, sessionManager, logger), api())
	default:
		return fmt.Errorf("unknown SERVER_TYPE: %s", cfg.ServerType)
	}

	for _, srv := range servers {
		g.Go(srv.Start)
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown error", "error", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// connectRedis returns nil when Redis is unreachable; components that need
// it fail on their own.
func connectRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable", "addr", cfg.RedisURL, "error", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func openStore(ctx context.Context, cfg *config.Config, rdb *redis.Client) (store.Store, error) {
	switch cfg.StoreBackend {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("STORE_BACKEND=redis but redis at %s is unavailable", cfg.RedisURL)
		}
		return store.NewRedis(rdb, cfg.ArchiveTTL), nil
	case "sqlite":
		return store.NewSQLite(ctx, cfg.SQLitePath)
	case "memory":
		return store.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND: %s", cfg.StoreBackend)
}

func menuProvider(cfg *config.Config, rdb *redis.Client) (menu.Provider, error) {
	if cfg.MenuSource == "redis" {
		if rdb == nil {
			return nil, fmt.Errorf("MENU_SOURCE=redis but redis at %s is unavailable", cfg.RedisURL)
		}
		return menu.NewRedisProvider(rdb), nil
	}
	return menu.FileProvider{Path: cfg.MenuFile}, nil
}
