// Package app assembles the sticker bot: storage, search, the teaching
// conversation, and their Telegram bindings.
package app

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jmoiron/sqlx"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/stickerbot/core/config"
	"github.com/m3rciful/stickerbot/core/conversation"
	"github.com/m3rciful/stickerbot/core/kvstore"
	"github.com/m3rciful/stickerbot/core/search"
	"github.com/m3rciful/stickerbot/core/session"
	"github.com/m3rciful/stickerbot/core/sticker"
	"github.com/m3rciful/stickerbot/core/telegram"
)

// App owns the assembled components of one bot.
type App struct {
	cfg *config.Config

	store    kvstore.Store
	search   *search.Engine
	engine   *conversation.Engine
	notifier *botNotifier
	packs    *botPackFetcher
	registry *telegram.Registry

	// bot is the authenticated handle, bound at startup like the
	// notifier's.
	bot atomic.Pointer[tele.Bot]

	botID   int64
	ownerID int64
}

// New wires the application on top of an open database handle.
func New(cfg *config.Config, db *sqlx.DB) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	botID, err := cfg.Telegram.BotID()
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	store := kvstore.NewSQL(db)
	notifier := &botNotifier{}
	packs := &botPackFetcher{}

	a := &App{
		cfg:      cfg,
		store:    store,
		search:   search.New(store, botID),
		notifier: notifier,
		packs:    packs,
		botID:    botID,
		ownerID:  cfg.Telegram.OwnerID,
	}
	a.engine = conversation.New(
		session.NewStore(store, a.ownerID),
		sticker.NewRepository(store, botID),
		packs,
		notifier,
	)
	a.registry = a.buildRegistry()
	return a, nil
}

// CoreConfig exposes the loaded configuration to the runner.
func (a *App) CoreConfig() *config.Config {
	return a.cfg
}

// TelegramRunOptions builds the bot runtime description consumed by
// telegram.RunTelegram.
func (a *App) TelegramRunOptions() (telegram.RunOptions, error) {
	opts := telegram.RunOptions{
		Config:        a.cfg,
		Registry:      a.registry,
		Middlewares:   telegram.DefaultMiddlewares(a.cfg, nil),
		Routes:        a.routes(),
		OwnerID:       a.ownerID,
		OnOwnerReject: a.rejectNonOwner,
		OnStart: func(_ context.Context, rt telegram.Runtime) error {
			a.bot.Store(rt.Bot)
			a.notifier.Bind(rt.Bot, rt.Dispatcher)
			a.packs.Bind(rt.Bot)
			return nil
		},
	}
	return opts, nil
}
