package ws

import (
	"context"
	"time"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/metrics"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Forwarder receives every locally published event, e.g. to relay it to other
// instances. Forward is called from the hub goroutine and must not block.
type Forwarder interface {
	Forward(evt entity.OrderEvent)
}

// Subscription is one consumer of a tenant's order stream. Events arrive in
// the order the hub accepted them; the channel is closed when the
// subscription ends, including when the consumer fell too far behind.
type Subscription struct {
	TenantID uint
	events   chan entity.OrderEvent
	hub      *OrderHub
}

func (s *Subscription) Events() <-chan entity.OrderEvent { return s.events }

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	select {
	case s.hub.unregister <- s:
	case <-s.hub.done:
	}
}

const (
	// versions of orders with no event for this long are forgotten
	versionTTL    = time.Hour
	pruneInterval = time.Minute
)

type seenVersion struct {
	version int64
	at      time.Time
}

type envelope struct {
	evt     entity.OrderEvent
	forward bool
}

// OrderHub fans order events out to the subscribers of each tenant. A single
// goroutine (Run) owns the subscriber sets, so every subscriber sees events in
// the same order they were accepted.
type OrderHub struct {
	// Origin tags events published by this process.
	Origin string

	subs       map[uint]map[*Subscription]bool // tenantID -> subscribers
	broadcast  chan envelope
	register   chan *Subscription
	unregister chan *Subscription
	done       chan struct{}

	forwarders []Forwarder
	bufferSize int

	// highest version dispatched per order, to keep each order's events non-decreasing
	lastVersion map[uint]seenVersion
	now         func() time.Time
}

func NewOrderHub(bufferSize int, forwarders ...Forwarder) *OrderHub {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &OrderHub{
		Origin:      uuid.NewString(),
		subs:        make(map[uint]map[*Subscription]bool),
		broadcast:   make(chan envelope, 1024),
		register:    make(chan *Subscription),
		unregister:  make(chan *Subscription),
		done:        make(chan struct{}),
		forwarders:  forwarders,
		bufferSize:  bufferSize,
		lastVersion: make(map[uint]seenVersion),
		now:         time.Now,
	}
}

// AddForwarder must be called before Run.
func (h *OrderHub) AddForwarder(f Forwarder) {
	h.forwarders = append(h.forwarders, f)
}

// Run serves register/unregister/broadcast until ctx is done, then closes
// every subscription.
func (h *OrderHub) Run(ctx context.Context) error {
	defer close(h.done)
	sweep := time.NewTicker(pruneInterval)
	defer sweep.Stop()
	for {
		select {
		case <-sweep.C:
			h.prune()

		case <-ctx.Done():
			for _, set := range h.subs {
				for sub := range set {
					close(sub.events)
				}
			}
			h.subs = map[uint]map[*Subscription]bool{}
			metrics.Subscribers.Set(0)
			return nil

		case sub := <-h.register:
			if h.subs[sub.TenantID] == nil {
				h.subs[sub.TenantID] = make(map[*Subscription]bool)
			}
			h.subs[sub.TenantID][sub] = true
			metrics.Subscribers.Inc()

		case sub := <-h.unregister:
			h.remove(sub)

		case env := <-h.broadcast:
			h.dispatch(env)
		}
	}
}

// Publish builds an event and enqueues it. It blocks only while the hub's
// queue is full, never on delivery to subscribers.
func (h *OrderHub) Publish(tenantID uint, eventType entity.OrderEventType, orderID uint, hint entity.EventHint) {
	evt := entity.OrderEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		TenantID:   tenantID,
		OrderID:    orderID,
		Version:    hint.Version,
		Status:     hint.Status,
		OccurredAt: time.Now().UTC(),
		Origin:     h.Origin,
	}
	metrics.EventsPublished.WithLabelValues(string(eventType), "local").Inc()
	h.enqueue(envelope{evt: evt, forward: true})
}

// Dispatch delivers an event received from another instance to local
// subscribers without forwarding it again.
func (h *OrderHub) Dispatch(evt entity.OrderEvent) {
	metrics.EventsPublished.WithLabelValues(string(evt.Type), "relay").Inc()
	h.enqueue(envelope{evt: evt})
}

// Subscribe opens a stream of the tenant's events.
func (h *OrderHub) Subscribe(tenantID uint) *Subscription {
	sub := &Subscription{
		TenantID: tenantID,
		events:   make(chan entity.OrderEvent, h.bufferSize),
		hub:      h,
	}
	select {
	case h.register <- sub:
	case <-h.done:
		close(sub.events)
	}
	return sub
}

func (h *OrderHub) enqueue(env envelope) {
	select {
	case h.broadcast <- env:
	case <-h.done:
		log.WithField("order_id", env.evt.OrderID).Warn("order hub stopped, event dropped")
	}
}

func (h *OrderHub) dispatch(env envelope) {
	evt := env.evt
	if evt.Version > 0 {
		if evt.Version < h.lastVersion[evt.OrderID].version {
			// a newer event for this order already went out; its refetch covers this one
			return
		}
		h.lastVersion[evt.OrderID] = seenVersion{version: evt.Version, at: h.now()}
	}
	if evt.Type == entity.OrderDeleted || evt.Status.IsTerminal() {
		delete(h.lastVersion, evt.OrderID)
	}

	for sub := range h.subs[evt.TenantID] {
		select {
		case sub.events <- evt:
		default:
			log.WithFields(log.Fields{
				"tenant_id": sub.TenantID,
				"order_id":  evt.OrderID,
			}).Warn("subscriber queue full, dropping subscriber")
			metrics.SubscribersDropped.Inc()
			h.remove(sub)
		}
	}

	if env.forward {
		for _, f := range h.forwarders {
			f.Forward(evt)
		}
	}
}

// prune forgets orders that went quiet, e.g. ones left at Served.
func (h *OrderHub) prune() {
	cutoff := h.now().Add(-versionTTL)
	for id, v := range h.lastVersion {
		if v.at.Before(cutoff) {
			delete(h.lastVersion, id)
		}
	}
}

func (h *OrderHub) remove(sub *Subscription) {
	set := h.subs[sub.TenantID]
	if !set[sub] {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.TenantID)
	}
	close(sub.events)
	metrics.Subscribers.Dec()
}
