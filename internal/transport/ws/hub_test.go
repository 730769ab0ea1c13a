package ws

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insider/internal/domain"
)

func bareClient() *Client {
	return &Client{send: make(chan []byte, 4), done: make(chan struct{}), logger: zerolog.Nop()}
}

func TestHubRebindAndUnregister(t *testing.T) {
	h := NewHub(zerolog.Nop())

	old, fresh := bareClient(), bareClient()
	h.Register("alice", old)
	h.Register("tmp", fresh)
	assert.Equal(t, 2, h.Count())

	// fresh takes over alice; the old connection is handed back
	assert.Same(t, old, h.Rebind("tmp", "alice", fresh))
	assert.Equal(t, 1, h.Count())
	assert.Nil(t, h.Rebind("alice", "alice", fresh))

	assert.False(t, h.Unregister("alice", old), "stale client must not unbind the live one")
	assert.Equal(t, 1, h.Count())
	assert.True(t, h.Unregister("alice", fresh))
	assert.Equal(t, 0, h.Count())
}

func TestHubNotify(t *testing.T) {
	h := NewHub(zerolog.Nop())
	c := bareClient()
	h.Register("alice", c)

	h.Notify("alice", domain.NewEvent(domain.EventTimerTick, "ABCD", &domain.TimerTickPayload{Remaining: 7}))
	h.Notify("bob", domain.NewEvent(domain.EventTimerTick, "ABCD", nil))

	require.Len(t, c.send, 1)
	msg := string(<-c.send)
	assert.Contains(t, msg, `"type":"timer_tick"`)
	assert.Contains(t, msg, `"sessionCode":"ABCD"`)
}

func TestClientEnqueueDropsWhenFull(t *testing.T) {
	c := bareClient()
	for i := 0; i < cap(c.send)+3; i++ {
		c.enqueue([]byte("x"))
	}
	assert.Len(t, c.send, cap(c.send))

	c.closed = true
	<-c.send
	c.enqueue([]byte("y"))
	assert.Len(t, c.send, cap(c.send)-1)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeRoomFull, errorCode(domain.ErrRoomFull))
	assert.Equal(t, ErrCodeWrongPhase, errorCode(fmt.Errorf("ask: %w", domain.ErrWrongPhase)))
	assert.Equal(t, ErrCodeInvalidMessage, errorCode(domain.ErrEmptyText))
	assert.Equal(t, ErrCodeInternalError, errorCode(errors.New("disk on fire")))
}

func TestCleanName(t *testing.T) {
	name, err := cleanName("  Ada  ")
	require.NoError(t, err)
	assert.Equal(t, "Ada", name)

	_, err = cleanName("   ")
	assert.ErrorIs(t, err, domain.ErrEmptyText)

	name, err = cleanName(strings.Repeat("é", maxNameLength+10))
	require.NoError(t, err)
	assert.Equal(t, maxNameLength, len([]rune(name)))
}
