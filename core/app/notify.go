package app

import (
	"context"
	"sync/atomic"

	"log/slog"

	"github.com/m3rciful/stickerbot/core/logger"
	"github.com/m3rciful/stickerbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// botNotifier delivers conversation replies through the outbound
// dispatcher. The bot handle is bound at startup, after telebot has
// authenticated the token.
type botNotifier struct {
	bot        atomic.Pointer[tele.Bot]
	dispatcher atomic.Pointer[sender.Dispatcher]
}

func (n *botNotifier) Bind(bot *tele.Bot, d *sender.Dispatcher) {
	n.bot.Store(bot)
	n.dispatcher.Store(d)
}

func (n *botNotifier) Text(ctx context.Context, chatID int64, text string) {
	n.deliver(ctx, "send.text", "sendMessage", func(bot *tele.Bot) error {
		_, err := bot.Send(tele.ChatID(chatID), text, &tele.SendOptions{ParseMode: tele.ModeHTML})
		return err
	})
}

func (n *botNotifier) Sticker(ctx context.Context, chatID int64, fileID string) {
	n.deliver(ctx, "send.sticker", "sendSticker", func(bot *tele.Bot) error {
		_, err := bot.Send(tele.ChatID(chatID), &tele.Sticker{File: tele.File{FileID: fileID}})
		return err
	})
}

func (n *botNotifier) deliver(ctx context.Context, action, endpoint string, send func(*tele.Bot) error) {
	bot := n.bot.Load()
	if bot == nil {
		logger.Warn(ctx, "app", "notify.unbound",
			slog.String("action", action),
		)
		return
	}
	run := func() error { return send(bot) }

	if d := n.dispatcher.Load(); d != nil {
		err := d.Enqueue(ctx, action, endpoint, run)
		if err == nil {
			return
		}
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("endpoint", endpoint),
			slog.String("err", err.Error()),
		)
	}
	if err := run(); err != nil {
		logger.Error(ctx, "tg.sender", "send.fail",
			slog.String("action", action),
			slog.String("endpoint", endpoint),
			slog.String("err", err.Error()),
		)
	}
}
