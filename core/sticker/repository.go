package sticker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/m3rciful/stickerbot/core/kvstore"
)

// Repository persists sticker records for one bot.
type Repository struct {
	store kvstore.Store
	botID int64
}

// NewRepository binds a repository to the bot's key namespace.
func NewRepository(store kvstore.Store, botID int64) *Repository {
	return &Repository{store: store, botID: botID}
}

// Find loads a record by sticker id. An untaught sticker yields (nil, nil);
// only storage failures return an error.
func (r *Repository) Find(ctx context.Context, stickerID string) (*Sticker, error) {
	value, err := r.store.Get(ctx, Key(r.botID, stickerID))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find sticker %s: %w", stickerID, err)
	}
	var s Sticker
	if err := json.Unmarshal(value, &s); err != nil {
		return nil, fmt.Errorf("decode sticker %s: %w", stickerID, err)
	}
	return &s, nil
}

// Save writes the record together with its search metadata in one put, so
// a scan never observes a value whose tokens lag behind.
func (r *Repository) Save(ctx context.Context, s *Sticker) error {
	value, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode sticker %s: %w", s.ID, err)
	}
	meta := &kvstore.Metadata{FileID: s.FileID, Tokens: s.Tokens}
	if err := r.store.Put(ctx, Key(r.botID, s.ID), value, meta); err != nil {
		return fmt.Errorf("save sticker %s: %w", s.ID, err)
	}
	return nil
}

// Delete forgets the record. Deleting an untaught sticker is a no-op.
func (r *Repository) Delete(ctx context.Context, stickerID string) error {
	if err := r.store.Delete(ctx, Key(r.botID, stickerID)); err != nil {
		return fmt.Errorf("delete sticker %s: %w", stickerID, err)
	}
	return nil
}
