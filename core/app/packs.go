package app

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/m3rciful/stickerbot/core/sticker"

	tele "gopkg.in/telebot.v4"
)

// botPackFetcher resolves sticker sets through the Telegram API.
type botPackFetcher struct {
	bot atomic.Pointer[tele.Bot]
}

func (p *botPackFetcher) Bind(bot *tele.Bot) {
	p.bot.Store(bot)
}

func (p *botPackFetcher) Fetch(_ context.Context, name string) (sticker.Pack, error) {
	bot := p.bot.Load()
	if bot == nil {
		return sticker.Pack{}, fmt.Errorf("pack fetcher: bot not bound")
	}
	set, err := bot.StickerSet(name)
	if err != nil {
		return sticker.Pack{}, fmt.Errorf("get sticker set %s: %w", name, err)
	}
	pack := sticker.Pack{Name: name, Stickers: make([]sticker.Sticker, 0, len(set.Stickers))}
	for i := range set.Stickers {
		pack.Stickers = append(pack.Stickers, sticker.FromTelegram(&set.Stickers[i]))
	}
	return pack, nil
}
