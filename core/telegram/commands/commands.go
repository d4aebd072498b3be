package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
// OwnerOnly commands are rejected for everyone but the configured owner.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	OwnerOnly   bool
	Hidden      bool
}
