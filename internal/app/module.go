// Package app composes the client: config, logger, bus, gateway, stores,
// engine, and the TUI shell.
package app

import (
	"context"

	"github.com/ltavares/courier/internal/bus"
	"github.com/ltavares/courier/internal/config"
	"github.com/ltavares/courier/internal/gateway"
	"github.com/ltavares/courier/internal/lock"
	"github.com/ltavares/courier/internal/logging"
	"github.com/ltavares/courier/internal/store"
	intsync "github.com/ltavares/courier/internal/sync"
	"github.com/ltavares/courier/internal/tui"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved invocation options passed to the fx module.
type Params struct {
	ConfigPath string
	Username   string // optional override of the configured identity
}

// Module returns the fx module composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("courier",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideGateway,
			provideInbox,
			provideMessages,
			provideUser,
			provideEngine,
			provideTUI,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	cfg, err := config.Load(p.ConfigPath)
	if err != nil {
		return nil, err
	}
	if p.Username != "" {
		cfg.Username = p.Username
	}
	return cfg, nil
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(config.LogPath(), cfg.Username)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideGateway(cfg *config.Config, logger *zap.Logger) *gateway.Client {
	return gateway.New(cfg.APIBaseURL, cfg.AuthToken, cfg.RequestTimeout(), logger)
}

func provideInbox(gw *gateway.Client, b *bus.Bus, logger *zap.Logger) *store.Inbox {
	return store.NewInbox(gw, b, logger)
}

func provideMessages(gw *gateway.Client, b *bus.Bus, logger *zap.Logger) *store.Messages {
	return store.NewMessages(gw, b, logger)
}

func provideUser(cfg *config.Config, gw *gateway.Client, b *bus.Bus, logger *zap.Logger) *store.User {
	return store.NewUser(gw, b, logger, cfg.Username)
}

func provideEngine(inbox *store.Inbox, messages *store.Messages, user *store.User, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(inbox, messages, user, b, logger, cfg.SearchDebounce(), cfg.UnreadClearDelay())
}

func provideTUI(b *bus.Bus, inbox *store.Inbox, messages *store.Messages, user *store.User) *tui.App {
	return tui.NewApp(b, inbox, messages, user)
}

func registerLifecycle(lc fx.Lifecycle, shutdowner fx.Shutdowner, engine *intsync.Engine, ui *tui.App, logger *zap.Logger) {
	var instanceLock *lock.Lock
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			l, err := lock.Acquire(config.StateDir())
			if err != nil {
				return err
			}
			instanceLock = l
			engine.Start(context.Background())
			go func() {
				if err := ui.Run(); err != nil {
					logger.Error("tui exited", zap.Error(err))
				}
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
		OnStop: func(_ context.Context) error {
			engine.Stop()
			ui.Stop()
			_ = instanceLock.Release()
			logger.Info("client stopped")
			return nil
		},
	})
}
