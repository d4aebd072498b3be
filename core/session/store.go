package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"log/slog"

	"github.com/m3rciful/stickerbot/core/kvstore"
	"github.com/m3rciful/stickerbot/core/logger"
	"github.com/m3rciful/stickerbot/core/sticker"
)

// Store persists one owner's conversation state.
type Store struct {
	kv      kvstore.Store
	ownerID int64
}

// NewStore binds the session store to the owner's state key.
func NewStore(kv kvstore.Store, ownerID int64) *Store {
	return &Store{kv: kv, ownerID: ownerID}
}

func (s *Store) key() string {
	return fmt.Sprintf("state/%d", s.ownerID)
}

// Load returns the persisted state. An absent or undecodable record is
// treated as None so the conversation can always restart cleanly.
func (s *Store) Load(ctx context.Context) (State, error) {
	value, err := s.kv.Get(ctx, s.key())
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return None{}, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	state, err := decode(value)
	if err != nil {
		logger.Warn(ctx, "session", "session.corrupt",
			slog.String("key", s.key()),
			slog.String("err", err.Error()),
		)
		return None{}, nil
	}
	return state, nil
}

// Save overwrites the state unconditionally; the conversation is single
// threaded per owner so last write wins is the intended semantics.
func (s *Store) Save(ctx context.Context, state State) error {
	value, err := encode(state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.kv.Put(ctx, s.key(), value, nil); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

type packWire struct {
	Name     string            `json:"name"`
	Stickers []sticker.Sticker `json:"stickers"`
}

type envelope struct {
	State        string           `json:"state"`
	Sticker      *sticker.Sticker `json:"sticker,omitempty"`
	Set          *packWire        `json:"set,omitempty"`
	StickerIndex int              `json:"sticker_index,omitempty"`
}

func encode(state State) ([]byte, error) {
	env := envelope{State: state.stateName()}
	switch s := state.(type) {
	case None:
	case SingleSticker:
		env.Sticker = &s.Sticker
	case LearnSingleSticker:
		env.Sticker = &s.Sticker
	case LearnStickerPack:
		env.Sticker = &s.Sticker
		env.Set = &packWire{Name: s.Pack.Name, Stickers: s.Pack.Stickers}
		env.StickerIndex = s.Index
	case RelearnStickerPack:
		env.Sticker = &s.Sticker
		env.Set = &packWire{Name: s.Pack.Name, Stickers: s.Pack.Stickers}
		env.StickerIndex = s.Index
	default:
		return nil, fmt.Errorf("unknown session state %T", state)
	}
	return json.Marshal(env)
}

func decode(value []byte) (State, error) {
	var env envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return nil, err
	}
	switch env.State {
	case stateNone:
		return None{}, nil
	case stateSingleSticker:
		if env.Sticker == nil {
			return nil, fmt.Errorf("state %s without sticker", env.State)
		}
		return SingleSticker{Sticker: *env.Sticker}, nil
	case stateLearnSingleSticker:
		if env.Sticker == nil {
			return nil, fmt.Errorf("state %s without sticker", env.State)
		}
		return LearnSingleSticker{Sticker: *env.Sticker}, nil
	case stateLearnStickerPack, stateRelearnStickerPack:
		if env.Sticker == nil || env.Set == nil {
			return nil, fmt.Errorf("state %s without sticker or set", env.State)
		}
		pack := sticker.Pack{Name: env.Set.Name, Stickers: env.Set.Stickers}
		if env.State == stateLearnStickerPack {
			return LearnStickerPack{Sticker: *env.Sticker, Pack: pack, Index: env.StickerIndex}, nil
		}
		return RelearnStickerPack{Sticker: *env.Sticker, Pack: pack, Index: env.StickerIndex}, nil
	default:
		return nil, fmt.Errorf("unknown session state %q", env.State)
	}
}
