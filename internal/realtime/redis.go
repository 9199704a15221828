package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// Publisher fans change events out to whoever is listening. Publishing is
// best-effort: a failed publish never fails the write that caused it.
type Publisher interface {
	Publish(ctx context.Context, event ChangeEvent)
}

// Subscriber delivers change events for one entity stream.
type Subscriber interface {
	// Subscribe returns a channel of events for the given entity/id pair
	// and a cancel function that releases the subscription.
	Subscribe(ctx context.Context, entity EntityType, id string) (<-chan ChangeEvent, func(), error)
}

// Broker is a Publisher and Subscriber backed by Redis pub/sub.
type Broker struct {
	client *redis.Client
}

// NewBroker connects to Redis and verifies the connection with a ping.
func NewBroker(addr string) (*Broker, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &Broker{client: client}, nil
}

// Close releases the underlying Redis client.
func (b *Broker) Close() error {
	return b.client.Close()
}

func channelFor(entity EntityType, id string) string {
	return fmt.Sprintf("changes:%s:%s", entity, id)
}

// Publish sends the event to its entity/id channel. Errors are logged and
// swallowed; the state change already committed.
func (b *Broker) Publish(ctx context.Context, event ChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("WARN: failed to marshal change event: %v", err)
		return
	}
	if err := b.client.Publish(ctx, channelFor(event.Entity, event.ID), payload).Err(); err != nil {
		log.Printf("WARN: failed to publish change event for %s/%s: %v", event.Entity, event.ID, err)
	}
}

// Subscribe opens a Redis subscription on the entity/id channel and
// decodes incoming payloads. The returned cancel function must be called
// to stop the pump goroutine.
func (b *Broker) Subscribe(ctx context.Context, entity EntityType, id string) (<-chan ChangeEvent, func(), error) {
	sub := b.client.Subscribe(ctx, channelFor(entity, id))
	// Waits for the subscription to be confirmed by the server.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	events := make(chan ChangeEvent)
	go func() {
		defer close(events)
		for msg := range sub.Channel() {
			var event ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("WARN: dropping malformed change event: %v", err)
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() { _ = sub.Close() }
	return events, cancel, nil
}

// NopPublisher discards all events. Used when Redis is not configured and
// in service tests that do not care about the change feed.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ChangeEvent) {}
