package event

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBus_SubscribeAndPublishSync(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var got []Event
	unsub := b.Subscribe(TurnCompleted, func(e Event) {
		got = append(got, e)
	})
	defer unsub()

	b.PublishSync(Event{Type: TurnCompleted, Data: TurnCompletedData{SessionID: "s1", Fragments: 3}})
	b.PublishSync(Event{Type: TurnErrored, Data: TurnErroredData{SessionID: "s1"}})

	assert.Len(t, got, 1)
	assert.Equal(t, TurnCompleted, got[0].Type)
}

func TestBus_SubscribeAll(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var count int
	unsub := b.SubscribeAll(func(e Event) { count++ })
	defer unsub()

	b.PublishSync(Event{Type: SessionCreated})
	b.PublishSync(Event{Type: TurnStarted})

	assert.Equal(t, 2, count)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var count int
	unsub := b.Subscribe(SessionDeleted, func(e Event) { count++ })

	b.PublishSync(Event{Type: SessionDeleted})
	unsub()
	b.PublishSync(Event{Type: SessionDeleted})

	assert.Equal(t, 1, count)
}

func TestBus_PublishAsync(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var mu sync.Mutex
	done := make(chan struct{})
	unsub := b.Subscribe(TurnStarted, func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		close(done)
	})
	defer unsub()

	b.Publish(Event{Type: TurnStarted, Data: TurnStartedData{SessionID: "s1"}})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async subscriber not invoked")
	}
}

func TestBus_ClosedBusDropsEvents(t *testing.T) {
	b := NewBus()

	var count int
	b.Subscribe(TurnStarted, func(e Event) { count++ })

	assert.NoError(t, b.Close())
	b.PublishSync(Event{Type: TurnStarted})

	assert.Equal(t, 0, count)
}
