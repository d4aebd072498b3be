package app

import (
	"context"
	"fmt"
	"strconv"

	"log/slog"

	"github.com/google/uuid"

	"github.com/m3rciful/stickerbot/core/logger"
	"github.com/m3rciful/stickerbot/core/sticker"
	"github.com/m3rciful/stickerbot/core/telegram"
	"github.com/m3rciful/stickerbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/stickerbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// inlinePageSize is the Bot API cap on inline results per answer.
const inlinePageSize = 50

func (a *App) buildRegistry() *telegram.Registry {
	reg := telegram.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Say hello",
	})
	reg.RegisterCommand("/learn_sticker", commands.Command{
		Handler:     a.ownerCommand("learn_sticker", a.engine.LearnSticker),
		Description: "Teach terms for the current sticker",
		OwnerOnly:   true,
	})
	reg.RegisterCommand("/learn_pack", commands.Command{
		Handler:     a.ownerCommand("learn_pack", a.engine.LearnPack),
		Description: "Teach unknown stickers from the current pack",
		OwnerOnly:   true,
	})
	reg.RegisterCommand("/relearn_pack", commands.Command{
		Handler:     a.ownerCommand("relearn_pack", a.engine.RelearnPack),
		Description: "Teach every sticker from the current pack",
		OwnerOnly:   true,
	})
	reg.RegisterCommand("/skip", commands.Command{
		Handler:     a.ownerCommand("skip", a.engine.Skip),
		Description: "Skip the current sticker in a pack walk",
		OwnerOnly:   true,
	})
	reg.RegisterCommand("/forget_sticker", commands.Command{
		Handler:     a.ownerCommand("forget_sticker", a.engine.ForgetSticker),
		Description: "Remove the current sticker from results",
		OwnerOnly:   true,
	})
	reg.RegisterCommand("/forget_pack", commands.Command{
		Handler:     a.ownerCommand("forget_pack", a.engine.ForgetPack),
		Description: "Remove every sticker of the current pack",
		OwnerOnly:   true,
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     a.ownerCommand("cancel", a.engine.Cancel),
		Description: "Reset the conversation",
		OwnerOnly:   true,
	})
	return reg
}

func (a *App) routes() []telegram.Route {
	return []telegram.Route{
		{Endpoint: tele.OnSticker, Handler: a.handleSticker},
		{Endpoint: tele.OnText, Handler: a.handleText},
		{Endpoint: tele.OnQuery, Handler: a.handleInlineQuery},
	}
}

func (a *App) handleStart(c tele.Context) error {
	tghelpers.WithHandler(c, "start")
	return tghelpers.SendText(c, "Hello there!")
}

// ownerCommand adapts a conversation transition into a bot handler.
// Access is already enforced by the owner-only wrapper.
func (a *App) ownerCommand(name string, fn func(ctx context.Context, chatID int64) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.WithHandler(c, name)
		if err := fn(ctx, c.Chat().ID); err != nil {
			logger.Error(ctx, "app", "command.failed",
				slog.String("trigger", name),
				slog.String("err", err.Error()),
			)
		}
		return nil
	}
}

func (a *App) handleSticker(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "sticker")
	sender := c.Sender()
	if sender == nil || sender.ID != a.ownerID {
		// Strangers' stickers are ignored, same as any non-text noise.
		return nil
	}
	msg := c.Message()
	if msg == nil || msg.Sticker == nil {
		return nil
	}
	incoming := sticker.FromTelegram(msg.Sticker)
	if err := a.engine.OnSticker(ctx, c.Chat().ID, incoming); err != nil {
		logger.Error(ctx, "app", "sticker.failed",
			slog.String("sticker_id", incoming.ID),
			slog.String("err", err.Error()),
		)
	}
	return nil
}

func (a *App) handleText(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "text")
	sender := c.Sender()
	if sender == nil || sender.ID != a.ownerID {
		return a.rejectNonOwner(c)
	}
	if err := a.engine.OnText(ctx, c.Chat().ID, c.Text()); err != nil {
		logger.Error(ctx, "app", "text.failed",
			slog.String("err", err.Error()),
		)
	}
	return nil
}

// rejectNonOwner explains inline usage to everyone who is not the owner.
func (a *App) rejectNonOwner(c tele.Context) error {
	tghelpers.WithHandler(c, "reject")
	username := ""
	if bot := a.bot.Load(); bot != nil && bot.Me != nil {
		username = bot.Me.Username
	}
	text := fmt.Sprintf(
		"I only respond direct messages from my owner. The correct way to use this bot is to type my username (@%s) in a chat with someone else and then select the stickers which show up in a menu that loads. You may also use search terms to filter the results.",
		username,
	)
	return tghelpers.SendText(c, text)
}

func (a *App) handleInlineQuery(c tele.Context) error {
	ctx := tghelpers.WithHandler(c, "inline_query")
	query := c.Query()
	if query == nil {
		return nil
	}

	found, err := a.search.Search(ctx, query.Text)
	if err != nil {
		logger.Error(ctx, "app", "search.failed",
			slog.String("query", logger.SanitizeLimit(query.Text, 256)),
			slog.String("err", err.Error()),
		)
		return c.Answer(&tele.QueryResponse{Results: tele.Results{}})
	}

	offset := 0
	if query.Offset != "" {
		offset, err = strconv.Atoi(query.Offset)
		if err != nil || offset < 0 {
			offset = 0
		}
	}
	if offset > len(found) {
		offset = len(found)
	}
	page := found[offset:min(offset+inlinePageSize, len(found))]

	results := make(tele.Results, 0, len(page))
	for _, r := range page {
		result := &tele.StickerResult{Cache: r.FileID}
		result.SetResultID(uuid.NewString())
		results = append(results, result)
	}

	resp := &tele.QueryResponse{Results: results}
	// A full page means more may follow; Telegram re-queries with the
	// offset we hand back.
	if len(page) == inlinePageSize {
		resp.NextOffset = strconv.Itoa(offset + inlinePageSize)
	}

	logger.Debug(ctx, "app", "search.answered",
		slog.Int("results", len(results)),
		slog.Int("offset", offset),
	)
	return c.Answer(resp)
}
