// Package router dispatches inbound chat events: it multicasts them to the
// addressed user or group channel and, for direct messages whose recipient
// has no live connection, triggers push-notification fallback.
package router

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"chat-relay/internal/models"
)

// Broadcaster multicasts a named event to every session in a channel.
// Emitting to a channel with no members is a no-op.
type Broadcaster interface {
	EmitToUser(userID, event string, data json.RawMessage)
	EmitToGroup(groupID, event string, data json.RawMessage)
}

// Session is the slice of a live connection the router needs for
// membership-changing events.
type Session interface {
	JoinGroup(groupID string)
}

// Presence answers whether a user holds at least one live connection.
type Presence interface {
	IsOnline(userID string) bool
}

// TokenResolver returns the push-delivery tokens registered for a user.
// Failures collapse to an empty result inside the resolver.
type TokenResolver interface {
	Resolve(ctx context.Context, userID string) []string
}

// PushSender delivers one best-effort push notification. It never reports
// an outcome.
type PushSender interface {
	Send(ctx context.Context, token, body string)
}

// HandlerFunc handles one inbound event. Payloads with a missing routing key
// are dropped without a response; nothing is ever surfaced back to the
// originating session.
type HandlerFunc func(ctx context.Context, sess Session, data json.RawMessage)

type Router struct {
	presence    Presence
	broadcaster Broadcaster
	tokens      TokenResolver
	push        PushSender
	logger      zerolog.Logger

	// Tracks in-flight push fallbacks so shutdown can join them. They are
	// joined to avoid leaking goroutines, never for their results.
	wg sync.WaitGroup
}

func New(p Presence, b Broadcaster, t TokenResolver, s PushSender, logger zerolog.Logger) *Router {
	return &Router{
		presence:    p,
		broadcaster: b,
		tokens:      t,
		push:        s,
		logger:      logger.With().Str("component", "Router").Logger(),
	}
}

// Handlers returns the dispatch table mapping inbound event names to their
// handlers.
func (r *Router) Handlers() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		models.EventSendDirectMessage: r.handleSendDirectMessage,
		models.EventSendGroupMessage:  r.handleSendGroupMessage,
		models.EventDirectMessageRead: r.handleDirectMessageRead,
		models.EventJoinGroup:         r.handleJoinGroup,
	}
}

// Wait blocks until all in-flight push fallbacks have finished.
func (r *Router) Wait() {
	r.wg.Wait()
}

func (r *Router) handleSendDirectMessage(ctx context.Context, _ Session, data json.RawMessage) {
	var msg models.DirectMessagePayload
	if err := json.Unmarshal(data, &msg); err != nil {
		r.logger.Debug().Err(err).Msg("dropping malformed direct message")
		return
	}
	if msg.RecipientID == "" {
		r.logger.Debug().Msg("dropping direct message without recipient")
		return
	}

	// Live recipients must see the message immediately, with no dependency
	// on the push path. The multicast always comes first.
	r.broadcaster.EmitToUser(msg.RecipientID, models.EventNewDirectMessage, data)

	if r.presence.IsOnline(msg.RecipientID) {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.deliverPushFallback(ctx, msg.RecipientID, msg.MessageContent)
	}()
}

// deliverPushFallback resolves the recipient's push tokens and fans out one
// independent send per token. A failed send for one token has no effect on
// the others, and no aggregate result is collected.
func (r *Router) deliverPushFallback(ctx context.Context, userID, body string) {
	tokens := r.tokens.Resolve(ctx, userID)
	if len(tokens) == 0 {
		r.logger.Debug().Str("user", userID).Msg("no push tokens registered")
		return
	}

	var wg sync.WaitGroup
	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			r.push.Send(ctx, token, body)
		}(token)
	}
	wg.Wait()
}

func (r *Router) handleSendGroupMessage(_ context.Context, _ Session, data json.RawMessage) {
	var msg models.GroupMessagePayload
	if err := json.Unmarshal(data, &msg); err != nil {
		r.logger.Debug().Err(err).Msg("dropping malformed group message")
		return
	}
	if msg.GroupChatID == "" {
		r.logger.Debug().Msg("dropping group message without group id")
		return
	}

	// Groups have no push fallback and no presence check.
	r.broadcaster.EmitToGroup(msg.GroupChatID, models.EventNewGroupMessage, data)
}

func (r *Router) handleDirectMessageRead(_ context.Context, _ Session, data json.RawMessage) {
	var receipt models.ReadReceiptPayload
	if err := json.Unmarshal(data, &receipt); err != nil {
		r.logger.Debug().Err(err).Msg("dropping malformed read receipt")
		return
	}
	if receipt.SenderID == "" {
		r.logger.Debug().Msg("dropping read receipt without sender")
		return
	}

	// Relay to the original sender's channel under the inbound event name.
	r.broadcaster.EmitToUser(receipt.SenderID, models.EventDirectMessageRead, data)
}

func (r *Router) handleJoinGroup(_ context.Context, sess Session, data json.RawMessage) {
	var join models.JoinGroupPayload
	if err := json.Unmarshal(data, &join); err != nil {
		r.logger.Debug().Err(err).Msg("dropping malformed join request")
		return
	}
	if join.GroupChatID == "" {
		return
	}
	sess.JoinGroup(join.GroupChatID)
}
