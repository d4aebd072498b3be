// Package conversation drives the owner's teaching dialogue. Every
// handler loads the persisted session state, applies one transition, and
// saves the result before replying.
package conversation

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"github.com/m3rciful/stickerbot/core/logger"
	"github.com/m3rciful/stickerbot/core/session"
	"github.com/m3rciful/stickerbot/core/sticker"
	"github.com/m3rciful/stickerbot/core/tokens"
)

// PackFetcher loads a sticker set from Telegram by name.
type PackFetcher interface {
	Fetch(ctx context.Context, name string) (sticker.Pack, error)
}

// Notifier delivers replies to the owner. Delivery is fire-and-forget;
// a dropped reply must never roll back a state transition that already
// happened.
type Notifier interface {
	Text(ctx context.Context, chatID int64, text string)
	Sticker(ctx context.Context, chatID int64, fileID string)
}

// Engine is the conversation state machine.
type Engine struct {
	sessions *session.Store
	stickers *sticker.Repository
	packs    PackFetcher
	notify   Notifier
}

// New wires the engine to its collaborators.
func New(sessions *session.Store, stickers *sticker.Repository, packs PackFetcher, notify Notifier) *Engine {
	return &Engine{sessions: sessions, stickers: stickers, packs: packs, notify: notify}
}

// OnSticker handles the owner sending a sticker. From the idle state or
// the sticker menu it (re)presents the menu for the new sticker; during a
// pack walk it refuses, the walk must be cancelled first.
func (e *Engine) OnSticker(ctx context.Context, chatID int64, incoming sticker.Sticker) error {
	state, err := e.sessions.Load(ctx)
	if err != nil {
		return err
	}

	switch state.(type) {
	case session.None, session.SingleSticker:
	default:
		e.notify.Text(ctx, chatID, textConfusedCancelOut)
		return nil
	}

	// A previously taught sticker is shown with its current terms.
	record, err := e.stickers.Find(ctx, incoming.ID)
	if err != nil {
		return err
	}
	if record == nil {
		record = &incoming
	}

	if err := e.transition(ctx, state, session.SingleSticker{Sticker: *record}); err != nil {
		return err
	}
	text := textStickerMenu
	if len(record.Tokens) > 0 {
		text += fmt.Sprintf("\nThis sticker may be searched with the following terms: <code>%s</code>", strings.Join(record.Tokens, " "))
	}
	e.notify.Text(ctx, chatID, text)
	return nil
}

// OnText handles a plain text message. In the teaching states the text
// becomes the sticker's search terms; anywhere else the bot is confused.
func (e *Engine) OnText(ctx context.Context, chatID int64, text string) error {
	state, err := e.sessions.Load(ctx)
	if err != nil {
		return err
	}

	switch s := state.(type) {
	case session.LearnSingleSticker:
		s.Sticker.Tokens = tokens.Extract(text)
		if err := e.stickers.Save(ctx, &s.Sticker); err != nil {
			return err
		}
		if err := e.transition(ctx, state, session.None{}); err != nil {
			return err
		}
		e.notify.Text(ctx, chatID, textLearnSaved)
		return nil

	case session.LearnStickerPack:
		s.Sticker.Tokens = tokens.Extract(text)
		if err := e.stickers.Save(ctx, &s.Sticker); err != nil {
			return err
		}
		return e.advanceLearn(ctx, chatID, state, s.Pack, s.Index+1, textPackEveryLearned)

	case session.RelearnStickerPack:
		s.Sticker.Tokens = tokens.Extract(text)
		if err := e.stickers.Save(ctx, &s.Sticker); err != nil {
			return err
		}
		return e.advanceRelearn(ctx, chatID, state, s.Pack, s.Index+1, textPackEveryLearned)

	default:
		e.notify.Text(ctx, chatID, textConfused)
		return nil
	}
}

// LearnSticker moves from the sticker menu into teaching that one sticker.
func (e *Engine) LearnSticker(ctx context.Context, chatID int64) error {
	state, err := e.sessions.Load(ctx)
	if err != nil {
		return err
	}
	s, ok := state.(session.SingleSticker)
	if !ok {
		e.notify.Text(ctx, chatID, textConfused)
		return nil
	}
	if err := e.transition(ctx, state, session.LearnSingleSticker{Sticker: s.Sticker}); err != nil {
		return err
	}
	e.notify.Text(ctx, chatID, textLearnPrompt)
	return nil
}

// ForgetSticker deletes the current sticker's record. During a pack walk
// it also advances to the next sticker.
func (e *Engine) ForgetSticker(ctx context.Context, chatID int64) error {
	state, err := e.sessions.Load(ctx)
	if err != nil {
		return err
	}
	switch s := state.(type) {
	case session.SingleSticker:
		if err := e.transition(ctx, state, session.None{}); err != nil {
			return err
		}
		if err := e.stickers.Delete(ctx, s.Sticker.ID); err != nil {
			return err
		}
		e.notify.Text(ctx, chatID, textForgetOne)
		return nil

	case session.LearnStickerPack:
		if err := e.stickers.Delete(ctx, s.Sticker.ID); err != nil {
			return err
		}
		e.notify.Text(ctx, chatID, textForgetOne)
		return e.advanceLearn(ctx, chatID, state, s.Pack, s.Index+1, textPackAllDone)

	case session.RelearnStickerPack:
		if err := e.stickers.Delete(ctx, s.Sticker.ID); err != nil {
			return err
		}
		e.notify.Text(ctx, chatID, textForgetOne)
		return e.advanceRelearn(ctx, chatID, state, s.Pack, s.Index+1, textPackAllDone)

	default:
		e.notify.Text(ctx, chatID, textConfused)
		return nil
	}
}

// Skip advances a pack walk without saving anything for the current
// sticker.
func (e *Engine) Skip(ctx context.Context, chatID int64) error {
	state, err := e.sessions.Load(ctx)
	if err != nil {
		return err
	}
	switch s := state.(type) {
	case session.LearnStickerPack:
		return e.advanceLearn(ctx, chatID, state, s.Pack, s.Index+1, textPackAllDone)
	case session.RelearnStickerPack:
		return e.advanceRelearn(ctx, chatID, state, s.Pack, s.Index+1, textPackAllDone)
	default:
		e.notify.Text(ctx, chatID, textConfused)
		return nil
	}
}

// LearnPack starts walking the current sticker's pack, presenting only
// stickers not yet taught.
func (e *Engine) LearnPack(ctx context.Context, chatID int64) error {
	state, err := e.sessions.Load(ctx)
	if err != nil {
		return err
	}
	s, ok := state.(session.SingleSticker)
	if !ok {
		e.notify.Text(ctx, chatID, textConfusedCancelHint)
		return nil
	}
	pack, ok, err := e.fetchPack(ctx, chatID, s.Sticker)
	if err != nil || !ok {
		return err
	}
	return e.advanceLearn(ctx, chatID, state, pack, 0, textPackAlready)
}

// RelearnPack walks the whole pack in order, taught or not.
func (e *Engine) RelearnPack(ctx context.Context, chatID int64) error {
	state, err := e.sessions.Load(ctx)
	if err != nil {
		return err
	}
	s, ok := state.(session.SingleSticker)
	if !ok {
		e.notify.Text(ctx, chatID, textConfusedCancelHint)
		return nil
	}
	pack, ok, err := e.fetchPack(ctx, chatID, s.Sticker)
	if err != nil || !ok {
		return err
	}
	return e.advanceRelearn(ctx, chatID, state, pack, 0, textPackEmpty)
}

// ForgetPack deletes every taught sticker of the current sticker's pack
// and reports how many were removed.
func (e *Engine) ForgetPack(ctx context.Context, chatID int64) error {
	state, err := e.sessions.Load(ctx)
	if err != nil {
		return err
	}
	s, ok := state.(session.SingleSticker)
	if !ok {
		e.notify.Text(ctx, chatID, textConfusedCancelOut)
		return nil
	}
	pack, ok, err := e.fetchPack(ctx, chatID, s.Sticker)
	if err != nil || !ok {
		return err
	}

	deletions := 0
	for _, ps := range pack.Stickers {
		record, err := e.stickers.Find(ctx, ps.ID)
		if err != nil {
			return err
		}
		if record == nil {
			continue
		}
		if err := e.stickers.Delete(ctx, record.ID); err != nil {
			return err
		}
		deletions++
	}
	logger.Info(ctx, "conv", "pack.forgotten",
		slog.String("pack", pack.Name),
		slog.Int("deletions", deletions),
	)
	e.notify.Text(ctx, chatID, fmt.Sprintf("Forget pack successful: %d stickers were forgotten. Send a new sticker when ever you are ready.", deletions))
	return e.transition(ctx, state, session.None{})
}

// Cancel resets the conversation from any state.
func (e *Engine) Cancel(ctx context.Context, chatID int64) error {
	state, err := e.sessions.Load(ctx)
	if err != nil {
		return err
	}
	if err := e.transition(ctx, state, session.None{}); err != nil {
		return err
	}
	e.notify.Text(ctx, chatID, textCancel)
	return nil
}

// fetchPack resolves the pack behind a sticker, replying and reporting
// ok=false when the sticker has no pack or the fetch fails. The session
// state is left untouched in both cases.
func (e *Engine) fetchPack(ctx context.Context, chatID int64, s sticker.Sticker) (sticker.Pack, bool, error) {
	if s.PackName == "" {
		e.notify.Text(ctx, chatID, textNoPack)
		return sticker.Pack{}, false, nil
	}
	pack, err := e.packs.Fetch(ctx, s.PackName)
	if err != nil {
		logger.Warn(ctx, "conv", "pack.fetch_failed",
			slog.String("pack", s.PackName),
			slog.String("err", err.Error()),
		)
		e.notify.Text(ctx, chatID, textPackLoadFailed)
		return sticker.Pack{}, false, nil
	}
	return pack, true, nil
}

// advanceLearn presents the first sticker at or after index that has no
// record yet. When none remains the walk ends with doneText.
func (e *Engine) advanceLearn(ctx context.Context, chatID int64, from session.State, pack sticker.Pack, index int, doneText string) error {
	for ; index < len(pack.Stickers); index++ {
		record, err := e.stickers.Find(ctx, pack.Stickers[index].ID)
		if err != nil {
			return err
		}
		if record != nil {
			continue
		}
		next := pack.Stickers[index]
		if err := e.transition(ctx, from, session.LearnStickerPack{Sticker: next, Pack: pack, Index: index}); err != nil {
			return err
		}
		e.presentSticker(ctx, chatID, next)
		return nil
	}
	if err := e.transition(ctx, from, session.None{}); err != nil {
		return err
	}
	e.notify.Text(ctx, chatID, doneText)
	return nil
}

// advanceRelearn presents the sticker at index regardless of whether it
// is taught, preferring the stored record so existing terms show up.
func (e *Engine) advanceRelearn(ctx context.Context, chatID int64, from session.State, pack sticker.Pack, index int, doneText string) error {
	if index < len(pack.Stickers) {
		next := pack.Stickers[index]
		record, err := e.stickers.Find(ctx, next.ID)
		if err != nil {
			return err
		}
		if record != nil {
			next = *record
		}
		if err := e.transition(ctx, from, session.RelearnStickerPack{Sticker: next, Pack: pack, Index: index}); err != nil {
			return err
		}
		e.presentSticker(ctx, chatID, next)
		return nil
	}
	if err := e.transition(ctx, from, session.None{}); err != nil {
		return err
	}
	e.notify.Text(ctx, chatID, doneText)
	return nil
}

func (e *Engine) presentSticker(ctx context.Context, chatID int64, s sticker.Sticker) {
	e.notify.Sticker(ctx, chatID, s.FileID)
	text := textPresentSticker
	if len(s.Tokens) > 0 {
		text += fmt.Sprintf("\nThis sticker may be searched with the following terms: <code>%s</code>\nYour next message will replace all search terms.", strings.Join(s.Tokens, " "))
	}
	e.notify.Text(ctx, chatID, text)
}

func (e *Engine) transition(ctx context.Context, from, to session.State) error {
	if err := e.sessions.Save(ctx, to); err != nil {
		return err
	}
	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, "conv", "state.transition",
			slog.String("state", session.Name(from)),
			slog.String("next_state", session.Name(to)),
		)
	}
	return nil
}
