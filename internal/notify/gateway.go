// Package notify delivers push notifications through an external gateway.
package notify

import (
	"context"
	"log"
)

// Message is one push notification addressed to a single device token.
// Data carries the notification kind and plan id for client-side routing.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Gateway is the delivery contract. Send either delivers the message or
// returns an error; it never retries.
type Gateway interface {
	Send(ctx context.Context, msg Message) error
}

// LogGateway logs messages instead of delivering them. Used when no FCM
// credentials are configured.
type LogGateway struct{}

func (LogGateway) Send(_ context.Context, msg Message) error {
	log.Printf("push (dry-run) to %s: %s / %s", msg.Token, msg.Title, msg.Body)
	return nil
}
