package state

import (
	"sync"

	"github.com/m3rciful/trendbot/core/logger"
	tghelpers "github.com/m3rciful/trendbot/core/telegram/helpers"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// StateFunc reports the current conversation state for a user. The state
// itself lives wherever the bot keeps its sessions; the router only knows
// how to look it up.
type StateFunc func(userID int64) State

// Router dispatches incoming text updates to the handler registered for
// the user's current conversation state.
type Router struct {
	current StateFunc

	mu       sync.RWMutex
	handlers map[State]tele.HandlerFunc
}

// NewRouter constructs a Router resolving states through the given function.
func NewRouter(current StateFunc) *Router {
	return &Router{
		current:  current,
		handlers: make(map[State]tele.HandlerFunc),
	}
}

// Handle associates a state with its handler.
func (r *Router) Handle(st State, h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[st] = h
}

// StateOf returns the current state for a user, or StateIdle when the
// resolver is not wired.
func (r *Router) StateOf(userID int64) State {
	if r.current == nil {
		return StateIdle
	}
	return r.current(userID)
}

// InProgress reports whether the user currently has an active conversation.
func (r *Router) InProgress(userID int64) bool {
	return r.StateOf(userID) != StateIdle
}

// ManagerHandler executes the handler registered for the user's current
// state. Updates arriving in a state without a handler are dropped.
func (r *Router) ManagerHandler(c tele.Context) error {
	userID := c.Sender().ID
	current := r.StateOf(userID)
	ctx := tghelpers.BuildContext(c)
	logger.Debug(ctx, "tg", "fsm.route",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("state", string(current)),
	)

	r.mu.RLock()
	handler, ok := r.handlers[current]
	r.mu.RUnlock()
	if ok {
		return handler(c)
	}
	return nil
}
