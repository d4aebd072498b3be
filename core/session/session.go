// Package session persists the owner's teaching conversation state.
//
// The state is a tagged union stored as one JSON document per owner.
// Surviving restarts matters more than in-memory speed here: the owner
// teaches over minutes, and the process may be redeployed in between.
package session

import (
	"github.com/m3rciful/stickerbot/core/sticker"
)

// State is the closed set of conversation states. Exactly the types in
// this package implement it.
type State interface {
	stateName() string
}

// None is the idle state; any sticker the owner sends moves out of it.
type None struct{}

// SingleSticker means a sticker was just presented and the bot is waiting
// for a command choosing what to do with it.
type SingleSticker struct {
	Sticker sticker.Sticker
}

// LearnSingleSticker waits for the text message whose tokens will be
// attached to the sticker.
type LearnSingleSticker struct {
	Sticker sticker.Sticker
}

// LearnStickerPack walks the sticker's pack, teaching only stickers not
// yet known. Index points at the sticker currently being taught.
type LearnStickerPack struct {
	Sticker sticker.Sticker
	Pack    sticker.Pack
	Index   int
}

// RelearnStickerPack walks the whole pack in order, re-teaching every
// sticker whether known or not.
type RelearnStickerPack struct {
	Sticker sticker.Sticker
	Pack    sticker.Pack
	Index   int
}

func (None) stateName() string               { return stateNone }
func (SingleSticker) stateName() string      { return stateSingleSticker }
func (LearnSingleSticker) stateName() string { return stateLearnSingleSticker }
func (LearnStickerPack) stateName() string   { return stateLearnStickerPack }
func (RelearnStickerPack) stateName() string { return stateRelearnStickerPack }

// Name reports the wire name of a state, for logging.
func Name(s State) string {
	if s == nil {
		return ""
	}
	return s.stateName()
}

const (
	stateNone               = "none"
	stateSingleSticker      = "single_sticker"
	stateLearnSingleSticker = "learn_single_sticker"
	stateLearnStickerPack   = "learn_sticker_pack"
	stateRelearnStickerPack = "relearn_sticker_pack"
)
