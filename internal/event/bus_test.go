package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftcode/agentserver/pkg/types"
)

func drain(t *testing.T, sub *Subscription) []types.Event {
	t.Helper()
	var out []types.Event
	for e := range sub.Events() {
		out = append(out, e)
	}
	return out
}

func TestBus_SingleSubscriberOrdering(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe()

	b.Push(types.TextDelta("Hello "))
	b.Push(types.TextDelta("world"))
	b.Push(types.Done())
	b.Close()

	events := drain(t, sub)
	require.Len(t, events, 3)
	assert.Equal(t, types.EventTextDelta, events[0].Type)
	assert.Equal(t, types.EventTextDelta, events[1].Type)
	assert.Equal(t, types.EventDone, events[2].Type)
}

func TestBus_MultipleSubscribersEachGetFullStream(t *testing.T) {
	b := NewBus()
	sub1 := b.Subscribe()
	sub2 := b.Subscribe()

	b.Push(types.TextDelta("a"))
	b.Push(types.Done())
	b.Close()

	e1 := drain(t, sub1)
	e2 := drain(t, sub2)
	assert.Len(t, e1, 2)
	assert.Len(t, e2, 2)
}

func TestBus_PushAfterCloseIsDropped(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe()
	b.Close()
	b.Push(types.Done()) // must not panic, must not be delivered

	events := drain(t, sub)
	assert.Empty(t, events)
}

func TestBus_SubscribeAfterCloseDrainsImmediately(t *testing.T) {
	b := NewBus()
	b.Close()
	sub := b.Subscribe()
	events := drain(t, sub)
	assert.Empty(t, events)
}

func TestBus_UnsubscribeStopsFutureDelivery(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe()
	sub.Unsubscribe()

	b.Push(types.TextDelta("x"))
	b.Close()

	events := drain(t, sub)
	assert.Empty(t, events)
}
