package handlers

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanpelt/catnip-pty/internal/models"
)

func TestStreamHubBuffersUntilConsumed(t *testing.T) {
	hub := newStreamHub("term-1", 2)

	require.NoError(t, hub.Send(models.OutputChunk{SessionID: "term-1", Seq: 1, Data: "a"}))
	require.NoError(t, hub.Send(models.OutputChunk{SessionID: "term-1", Seq: 2, Data: "b"}))

	blocked := make(chan error, 1)
	go func() {
		blocked <- hub.Send(models.OutputChunk{SessionID: "term-1", Seq: 3, Data: "c"})
	}()

	select {
	case <-blocked:
		t.Fatal("Send must block while the buffer is full")
	case <-time.After(20 * time.Millisecond):
	}

	msg := <-hub.messages
	assert.Equal(t, models.StreamOutput, msg.Type)
	assert.Equal(t, uint64(1), msg.Seq)
	assert.Equal(t, "a", msg.Data)

	select {
	case err := <-blocked:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Send did not resume after the consumer read")
	}
}

func TestStreamHubAbandonUnblocksSend(t *testing.T) {
	hub := newStreamHub("term-1", 1)
	require.NoError(t, hub.Send(models.OutputChunk{Seq: 1}))

	blocked := make(chan error, 1)
	go func() { blocked <- hub.Send(models.OutputChunk{Seq: 2}) }()

	hub.abandon()
	hub.abandon()

	select {
	case err := <-blocked:
		assert.ErrorIs(t, err, errStreamAbandoned)
	case <-time.After(time.Second):
		t.Fatal("abandon did not release the blocked Send")
	}
	assert.ErrorIs(t, hub.Send(models.OutputChunk{Seq: 3}), errStreamAbandoned)
}

func TestStreamHubFinish(t *testing.T) {
	hub := newStreamHub("term-1", 4)
	hub.Finish(errors.New("read failed"))

	msg, ok := <-hub.messages
	require.True(t, ok)
	assert.Equal(t, models.StreamError, msg.Type)
	assert.Equal(t, "read failed", msg.Error)

	_, ok = <-hub.messages
	assert.False(t, ok)
}

func TestStreamHubSingleConsumer(t *testing.T) {
	hub := newStreamHub("term-1", 1)

	assert.True(t, hub.attach())
	assert.False(t, hub.attach())
	hub.detach()
	assert.True(t, hub.attach())
}
