package notify

import (
	"context"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// fcmGateway implements Gateway using Firebase Cloud Messaging.
type fcmGateway struct {
	client *messaging.Client
}

// NewFCMGateway initializes the Firebase app from a service-account
// credentials file and returns a messaging gateway.
func NewFCMGateway(ctx context.Context, credentialsFile string) (Gateway, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, err
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, err
	}

	log.Println("FCM gateway initialized")
	return &fcmGateway{client: client}, nil
}

// Send delivers one push message to one device token.
func (g *fcmGateway) Send(ctx context.Context, msg Message) error {
	_, err := g.client.Send(ctx, &messaging.Message{
		Token: msg.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	})
	return err
}
