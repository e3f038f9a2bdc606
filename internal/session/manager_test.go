package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftcode/agentserver/internal/provider"
	"github.com/driftcode/agentserver/internal/storage"
	"github.com/driftcode/agentserver/internal/tool"
	"github.com/driftcode/agentserver/pkg/types"
)

func newTestManager(t *testing.T, adapter *fakeAdapter) *Manager {
	t.Helper()
	store, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	orch := NewOrchestrator(adapter, tool.DefaultRegistry())
	return NewManager(store, orch)
}

func TestCreateSession_PersistsIdleAndCachesBus(t *testing.T) {
	mgr := newTestManager(t, &fakeAdapter{})

	sess, err := mgr.CreateSession(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, types.SessionIdle, sess.Status)
	assert.NotNil(t, mgr.Bus(sess.ID))
}

func TestGetSession_RehydratesCacheOnMiss(t *testing.T) {
	mgr := newTestManager(t, &fakeAdapter{})

	sess, err := mgr.CreateSession(context.Background(), t.TempDir())
	require.NoError(t, err)

	mgr.mu.Lock()
	delete(mgr.cache, sess.ID)
	mgr.mu.Unlock()
	assert.Nil(t, mgr.Bus(sess.ID))

	got, err := mgr.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.NotNil(t, mgr.Bus(sess.ID))
}

func TestStartTurn_RunsToCompletionAndPersistsMessages(t *testing.T) {
	mgr := newTestManager(t, &fakeAdapter{turns: scriptedTextOnly("hi there")})
	sess, err := mgr.CreateSession(context.Background(), t.TempDir())
	require.NoError(t, err)

	bus := mgr.Bus(sess.ID)
	events := make(chan types.Event, 32)
	sub := bus.Subscribe()
	go func() {
		for e := range sub.Events() {
			events <- e
			if e.Type == types.EventDone {
				close(events)
				return
			}
		}
	}()

	require.NoError(t, mgr.StartTurn(sess.ID, "hello", "", 0))

	var sawDone bool
	timeout := time.After(2 * time.Second)
loop:
	for {
		select {
		case e, ok := <-events:
			if !ok {
				break loop
			}
			if e.Type == types.EventDone {
				sawDone = true
			}
		case <-timeout:
			t.Fatal("timed out waiting for turn to complete")
		}
	}
	assert.True(t, sawDone)

	msgs, err := mgr.ListMessages(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, msgs)

	updated, err := mgr.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SessionCompleted, updated.Status)
}

func TestStartTurn_FailsWhenAlreadyRunning(t *testing.T) {
	mgr := newTestManager(t, &fakeAdapter{turns: scriptedTextOnly("ok")})
	sess, err := mgr.CreateSession(context.Background(), t.TempDir())
	require.NoError(t, err)

	mgr.mu.Lock()
	mgr.cache[sess.ID].running = true
	mgr.mu.Unlock()

	err = mgr.StartTurn(sess.ID, "hello", "", 0)
	assert.ErrorIs(t, err, ErrSessionRunning)
}

func TestCancel_ReturnsFalseWhenNotRunning(t *testing.T) {
	mgr := newTestManager(t, &fakeAdapter{})
	sess, err := mgr.CreateSession(context.Background(), t.TempDir())
	require.NoError(t, err)

	assert.False(t, mgr.Cancel(sess.ID))
}

func TestDeleteSession_RemovesFromCacheAndStore(t *testing.T) {
	mgr := newTestManager(t, &fakeAdapter{})
	sess, err := mgr.CreateSession(context.Background(), t.TempDir())
	require.NoError(t, err)

	ok, err := mgr.DeleteSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, mgr.Bus(sess.ID))

	_, err = mgr.GetSession(context.Background(), sess.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func scriptedTextOnly(text string) []*provider.TurnResult {
	return []*provider.TurnResult{
		{TextContent: text, Done: true, MessagesToAppend: []types.Message{assistantText(text)}},
	}
}
