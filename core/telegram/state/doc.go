// Package state provides a lightweight FSM router for Telegram bots.
// It stays domain-agnostic: the bot owns its sessions and injects a
// state lookup function; the router only maps states to handlers.
package state
