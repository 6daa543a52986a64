// Package broker relays order events between service instances through a
// RabbitMQ fanout exchange, so a subscriber connected to one instance still
// hears about writes committed through another.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

const exchange = "order_events"

// Dispatcher is the local side of the relay (the order hub).
type Dispatcher interface {
	Dispatch(evt entity.OrderEvent)
}

type Relay struct {
	url    string
	origin string
	local  Dispatcher

	out            chan entity.OrderEvent
	reconnectDelay time.Duration
}

// NewRelay relays events between the local hub and the exchange at url.
// origin is the hub's Origin; deliveries carrying it are our own and skipped.
func NewRelay(url, origin string, local Dispatcher) *Relay {
	return &Relay{
		url:            url,
		origin:         origin,
		local:          local,
		out:            make(chan entity.OrderEvent, 1024),
		reconnectDelay: 3 * time.Second,
	}
}

// Forward queues a locally published event for the exchange. When the queue
// is full the event is dropped: subscribers on other instances converge on
// their next event or reconnect.
func (r *Relay) Forward(evt entity.OrderEvent) {
	select {
	case r.out <- evt:
	default:
		log.WithField("order_id", evt.OrderID).Error("relay queue full, event not relayed")
	}
}

// Run keeps a connection open until ctx is done, reconnecting after failures.
func (r *Relay) Run(ctx context.Context) error {
	for {
		err := r.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		log.WithError(err).Error("rabbitmq relay session ended, reconnecting")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(r.reconnectDelay):
		}
	}
}

func (r *Relay) session(ctx context.Context) error {
	conn, err := amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	log.WithField("queue", q.Name).Info("rabbitmq relay connected")
	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr := <-closed:
			return fmt.Errorf("connection closed: %v", amqpErr)
		case evt := <-r.out:
			if err := r.publish(ctx, ch, evt); err != nil {
				// the event is lost for remote subscribers only; local delivery already happened
				log.WithError(err).WithField("order_id", evt.OrderID).Error("relay publish failed")
				return err
			}
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			r.receive(d.Body)
		}
	}
}

func (r *Relay) publish(ctx context.Context, ch *amqp.Channel, evt entity.OrderEvent) error {
	if evt.Origin == "" {
		evt.Origin = r.origin
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return ch.PublishWithContext(pubCtx, exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    evt.ID,
		Timestamp:    evt.OccurredAt,
		DeliveryMode: amqp.Transient,
		Body:         body,
	})
}

// receive hands a foreign event to the local hub. Malformed bodies and our
// own events are ignored.
func (r *Relay) receive(body []byte) bool {
	var evt entity.OrderEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		log.WithError(err).Warn("relay: malformed event")
		return false
	}
	if evt.Origin == r.origin || evt.OrderID == 0 || evt.TenantID == 0 {
		return false
	}
	r.local.Dispatch(evt)
	return true
}
