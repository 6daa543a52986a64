package ws

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	seen []entity.OrderEvent
}

func (r *recorder) Forward(evt entity.OrderEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, evt)
}

func (r *recorder) events() []entity.OrderEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.OrderEvent(nil), r.seen...)
}

func runHub(t *testing.T, buffer int, fw ...Forwarder) *OrderHub {
	t.Helper()
	h := NewOrderHub(buffer, fw...)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func next(t *testing.T, sub *Subscription) (entity.OrderEvent, bool) {
	t.Helper()
	select {
	case evt, ok := <-sub.Events():
		return evt, ok
	case <-time.After(time.Second):
		t.Fatal("no event")
		return entity.OrderEvent{}, false
	}
}

func TestOrderHub_DeliversInPublishOrderPerTenant(t *testing.T) {
	h := runHub(t, 16)
	a := h.Subscribe(1)
	b := h.Subscribe(2)

	for v := int64(1); v <= 5; v++ {
		h.Publish(1, entity.OrderUpdated, 7, entity.EventHint{Version: v, Status: entity.OrderPending})
	}
	h.Publish(2, entity.OrderCreated, 8, entity.EventHint{Version: 1})

	for v := int64(1); v <= 5; v++ {
		evt, ok := next(t, a)
		require.True(t, ok)
		assert.Equal(t, v, evt.Version)
		assert.Equal(t, uint(7), evt.OrderID)
		assert.Equal(t, h.Origin, evt.Origin)
		assert.NotEmpty(t, evt.ID)
	}
	evt, ok := next(t, b)
	require.True(t, ok)
	assert.Equal(t, uint(8), evt.OrderID)
	assert.Equal(t, uint(2), evt.TenantID)
}

func TestOrderHub_SkipsStaleVersions(t *testing.T) {
	h := runHub(t, 16)
	sub := h.Subscribe(1)

	h.Publish(1, entity.OrderUpdated, 7, entity.EventHint{Version: 3})
	h.Publish(1, entity.OrderUpdated, 7, entity.EventHint{Version: 2})
	h.Publish(1, entity.OrderUpdated, 7, entity.EventHint{Version: 3})
	h.Publish(1, entity.OrderDeleted, 7, entity.EventHint{})

	var got []entity.OrderEvent
	for i := 0; i < 3; i++ {
		evt, ok := next(t, sub)
		require.True(t, ok)
		got = append(got, evt)
	}
	assert.Equal(t, int64(3), got[0].Version)
	assert.Equal(t, int64(3), got[1].Version, "duplicates pass, the client refetch absorbs them")
	assert.Equal(t, entity.OrderDeleted, got[2].Type)
}

func TestOrderHub_ForgetsQuietOrders(t *testing.T) {
	h := NewOrderHub(4)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return clock }

	h.dispatch(envelope{evt: entity.OrderEvent{TenantID: 1, OrderID: 7, Version: 4, Status: entity.OrderServed}})
	clock = clock.Add(50 * time.Minute)
	h.dispatch(envelope{evt: entity.OrderEvent{TenantID: 1, OrderID: 8, Version: 2, Status: entity.OrderPending}})
	require.Len(t, h.lastVersion, 2)

	clock = clock.Add(20 * time.Minute)
	h.prune()
	assert.NotContains(t, h.lastVersion, uint(7))
	assert.Contains(t, h.lastVersion, uint(8))

	clock = clock.Add(time.Hour)
	h.prune()
	assert.Empty(t, h.lastVersion)
}

func TestOrderHub_DropsSlowSubscriber(t *testing.T) {
	h := runHub(t, 2)
	slow := h.Subscribe(1)
	fast := h.Subscribe(1)

	done := make(chan struct{})
	var fastSeen int
	go func() {
		defer close(done)
		for range fast.Events() {
			fastSeen++
			if fastSeen == 5 {
				return
			}
		}
	}()

	for i := 1; i <= 5; i++ {
		h.Publish(1, entity.OrderUpdated, uint(i), entity.EventHint{Version: 1})
		time.Sleep(5 * time.Millisecond)
	}
	<-done
	assert.Equal(t, 5, fastSeen)

	var n int
	for range slow.Events() {
		n++
	}
	assert.Equal(t, 2, n, "queue size, then closed")
}

func TestOrderHub_ForwardsLocalEventsOnly(t *testing.T) {
	rec := &recorder{}
	h := runHub(t, 8, rec)
	sub := h.Subscribe(1)

	h.Publish(1, entity.OrderCreated, 1, entity.EventHint{Version: 1})
	h.Dispatch(entity.OrderEvent{ID: "remote", Type: entity.OrderUpdated, TenantID: 1, OrderID: 2, Version: 4, Origin: "other"})

	first, _ := next(t, sub)
	second, _ := next(t, sub)
	assert.Equal(t, uint(1), first.OrderID)
	assert.Equal(t, "remote", second.ID)

	fw := rec.events()
	require.Len(t, fw, 1)
	assert.Equal(t, uint(1), fw[0].OrderID)
}

func TestOrderHub_CloseAndShutdown(t *testing.T) {
	h := NewOrderHub(4)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	a := h.Subscribe(1)
	a.Close()
	a.Close()
	_, ok := next(t, a)
	assert.False(t, ok)

	b := h.Subscribe(1)
	cancel()
	<-stopped
	_, ok = next(t, b)
	assert.False(t, ok)

	late := h.Subscribe(1)
	_, ok = next(t, late)
	assert.False(t, ok, "subscribing to a stopped hub yields a closed stream")
	h.Publish(1, entity.OrderCreated, 1, entity.EventHint{})
}
