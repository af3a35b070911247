package router_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-relay/internal/models"
	"chat-relay/internal/router"
)

type emit struct {
	target string
	event  string
	data   string
}

type fakeBroadcaster struct {
	mu         sync.Mutex
	userEmits  []emit
	groupEmits []emit
}

func (f *fakeBroadcaster) EmitToUser(userID, event string, data json.RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userEmits = append(f.userEmits, emit{target: userID, event: event, data: string(data)})
}

func (f *fakeBroadcaster) EmitToGroup(groupID, event string, data json.RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groupEmits = append(f.groupEmits, emit{target: groupID, event: event, data: string(data)})
}

type fakePresence struct {
	online map[string]bool
}

func (f *fakePresence) IsOnline(userID string) bool { return f.online[userID] }

type fakeResolver struct {
	mu     sync.Mutex
	calls  []string
	tokens []string
}

func (f *fakeResolver) Resolve(_ context.Context, userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userID)
	return f.tokens
}

type sentPush struct {
	token string
	body  string
}

type fakeSender struct {
	mu    sync.Mutex
	sends []sentPush
}

func (f *fakeSender) Send(_ context.Context, token, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, sentPush{token: token, body: body})
}

type fakeSession struct {
	joined []string
}

func (f *fakeSession) JoinGroup(groupID string) { f.joined = append(f.joined, groupID) }

type fixture struct {
	router      *router.Router
	broadcaster *fakeBroadcaster
	presence    *fakePresence
	resolver    *fakeResolver
	sender      *fakeSender
	handlers    map[string]router.HandlerFunc
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		broadcaster: &fakeBroadcaster{},
		presence:    &fakePresence{online: make(map[string]bool)},
		resolver:    &fakeResolver{},
		sender:      &fakeSender{},
	}
	f.router = router.New(f.presence, f.broadcaster, f.resolver, f.sender, zerolog.Nop())
	f.handlers = f.router.Handlers()
	return f
}

func (f *fixture) dispatch(t *testing.T, event string, payload string) {
	t.Helper()
	handler, ok := f.handlers[event]
	require.True(t, ok, "no handler registered for %s", event)
	handler(context.Background(), &fakeSession{}, json.RawMessage(payload))
	f.router.Wait()
}

func TestSendDirectMessage(t *testing.T) {
	t.Run("online recipient gets the multicast and no push", func(t *testing.T) {
		f := newFixture(t)
		f.presence.online["B"] = true
		payload := `{"senderId":"A","recipientId":"B","messageContent":"hi"}`

		f.dispatch(t, models.EventSendDirectMessage, payload)

		require.Len(t, f.broadcaster.userEmits, 1)
		assert.Equal(t, emit{target: "B", event: models.EventNewDirectMessage, data: payload}, f.broadcaster.userEmits[0])
		assert.Empty(t, f.resolver.calls)
		assert.Empty(t, f.sender.sends)
	})

	t.Run("offline recipient gets one push per resolved token", func(t *testing.T) {
		f := newFixture(t)
		f.resolver.tokens = []string{"ExponentPushToken[one]", "ExponentPushToken[two]"}
		payload := `{"senderId":"A","recipientId":"B","messageContent":"hi"}`

		f.dispatch(t, models.EventSendDirectMessage, payload)

		// The multicast still happens, even with nobody in the channel.
		require.Len(t, f.broadcaster.userEmits, 1)
		assert.Equal(t, "B", f.broadcaster.userEmits[0].target)

		assert.Equal(t, []string{"B"}, f.resolver.calls)
		assert.ElementsMatch(t, []sentPush{
			{token: "ExponentPushToken[one]", body: "hi"},
			{token: "ExponentPushToken[two]", body: "hi"},
		}, f.sender.sends)
	})

	t.Run("offline recipient with no tokens sends nothing", func(t *testing.T) {
		f := newFixture(t)

		f.dispatch(t, models.EventSendDirectMessage, `{"senderId":"A","recipientId":"B","messageContent":"hi"}`)

		assert.Equal(t, []string{"B"}, f.resolver.calls)
		assert.Empty(t, f.sender.sends)
	})

	t.Run("missing recipient is dropped silently", func(t *testing.T) {
		f := newFixture(t)

		f.dispatch(t, models.EventSendDirectMessage, `{"senderId":"A","messageContent":"hi"}`)

		assert.Empty(t, f.broadcaster.userEmits)
		assert.Empty(t, f.resolver.calls)
	})

	t.Run("passthrough fields survive the relay verbatim", func(t *testing.T) {
		f := newFixture(t)
		f.presence.online["B"] = true
		payload := `{"recipientId":"B","messageContent":"hi","clientRef":"abc-123","meta":{"x":1}}`

		f.dispatch(t, models.EventSendDirectMessage, payload)

		require.Len(t, f.broadcaster.userEmits, 1)
		assert.JSONEq(t, payload, f.broadcaster.userEmits[0].data)
	})

	t.Run("malformed payload is dropped", func(t *testing.T) {
		f := newFixture(t)

		f.dispatch(t, models.EventSendDirectMessage, `{"recipientId":`)

		assert.Empty(t, f.broadcaster.userEmits)
	})
}

func TestSendGroupMessage(t *testing.T) {
	t.Run("multicasts to the group channel", func(t *testing.T) {
		f := newFixture(t)
		payload := `{"groupChatId":"g1","messageContent":"hello all"}`

		f.dispatch(t, models.EventSendGroupMessage, payload)

		require.Len(t, f.broadcaster.groupEmits, 1)
		assert.Equal(t, emit{target: "g1", event: models.EventNewGroupMessage, data: payload}, f.broadcaster.groupEmits[0])
	})

	t.Run("never touches the push path", func(t *testing.T) {
		f := newFixture(t)

		f.dispatch(t, models.EventSendGroupMessage, `{"groupChatId":"g1","messageContent":"hello"}`)

		assert.Empty(t, f.resolver.calls)
		assert.Empty(t, f.sender.sends)
	})

	t.Run("missing group id is dropped", func(t *testing.T) {
		f := newFixture(t)

		f.dispatch(t, models.EventSendGroupMessage, `{"messageContent":"hello"}`)

		assert.Empty(t, f.broadcaster.groupEmits)
	})
}

func TestDirectMessageRead(t *testing.T) {
	t.Run("relays to the original sender's channel", func(t *testing.T) {
		f := newFixture(t)
		payload := `{"messageId":"m1","senderId":"A","readerId":"B"}`

		f.dispatch(t, models.EventDirectMessageRead, payload)

		require.Len(t, f.broadcaster.userEmits, 1)
		assert.Equal(t, emit{target: "A", event: models.EventDirectMessageRead, data: payload}, f.broadcaster.userEmits[0])
		assert.Empty(t, f.resolver.calls)
	})

	t.Run("missing sender is dropped", func(t *testing.T) {
		f := newFixture(t)

		f.dispatch(t, models.EventDirectMessageRead, `{"messageId":"m1","readerId":"B"}`)

		assert.Empty(t, f.broadcaster.userEmits)
	})
}

func TestJoinGroup(t *testing.T) {
	t.Run("joins the session to the group", func(t *testing.T) {
		f := newFixture(t)
		sess := &fakeSession{}

		f.handlers[models.EventJoinGroup](context.Background(), sess, json.RawMessage(`{"groupChatId":"g1"}`))

		assert.Equal(t, []string{"g1"}, sess.joined)
	})

	t.Run("empty group id is a no-op", func(t *testing.T) {
		f := newFixture(t)
		sess := &fakeSession{}

		f.handlers[models.EventJoinGroup](context.Background(), sess, json.RawMessage(`{"groupChatId":""}`))

		assert.Empty(t, sess.joined)
	})
}
