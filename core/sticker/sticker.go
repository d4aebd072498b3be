// Package sticker defines the taught sticker record and its persistence.
package sticker

import (
	"fmt"

	tele "gopkg.in/telebot.v4"
)

// Sticker is one taught sticker. ID is Telegram's stable unique file id;
// FileID is the transient handle used to send the sticker back.
type Sticker struct {
	ID         string   `json:"id"`
	FileID     string   `json:"file_id"`
	FileSize   int64    `json:"file_size,omitempty"`
	Width      int      `json:"width,omitempty"`
	Height     int      `json:"height,omitempty"`
	PackName   string   `json:"pack_name,omitempty"`
	IsAnimated bool     `json:"is_animated,omitempty"`
	IsVideo    bool     `json:"is_video,omitempty"`
	Variant    string   `json:"variant,omitempty"`
	Tokens     []string `json:"tokens"`
}

// Pack is an ordered sticker set as Telegram reports it.
type Pack struct {
	Name     string
	Stickers []Sticker
}

// FromTelegram converts an incoming Telegram sticker into a record. Tokens
// start empty; teaching fills them in.
func FromTelegram(ts *tele.Sticker) Sticker {
	return Sticker{
		ID:         ts.UniqueID,
		FileID:     ts.FileID,
		FileSize:   ts.FileSize,
		Width:      ts.Width,
		Height:     ts.Height,
		PackName:   ts.SetName,
		IsAnimated: ts.Animated,
		IsVideo:    ts.Video,
		Variant:    string(ts.Type),
	}
}

// Key is the storage key of a sticker record. Records are namespaced per
// bot so multiple bots can share one store.
func Key(botID int64, stickerID string) string {
	return fmt.Sprintf("sticker/%d/%s", botID, stickerID)
}

// KeyPrefix covers every sticker record of one bot.
func KeyPrefix(botID int64) string {
	return fmt.Sprintf("sticker/%d/", botID)
}
