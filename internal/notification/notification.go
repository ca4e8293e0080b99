package notification

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog/log"
)

// Notifier is notify(recipient, eventType, payload). Callers treat it as
// fire-and-forget: an error is logged, never rolled back into their work.
type Notifier interface {
	Notify(ctx context.Context, recipient Recipient, eventType string, payload map[string]string) error
}

type NotificationService struct {
	firestore *firestore.Client
	messaging *messaging.Client
}

func NewNotificationService(ctx context.Context, firebaseApp *firebase.App) (*NotificationService, error) {
	firestoreClient, err := firebaseApp.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	messagingClient, err := firebaseApp.Messaging(ctx)
	if err != nil {
		firestoreClient.Close()
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}

	return &NotificationService{
		firestore: firestoreClient,
		messaging: messagingClient,
	}, nil
}

var _ Notifier = (*NotificationService)(nil)

func (s *NotificationService) Notify(ctx context.Context, recipient Recipient, eventType string, payload map[string]string) error {
	return s.SendNotification(ctx, Build(recipient, eventType, payload))
}

// SendNotification stores the in-app notification and pushes it to the recipient topic.
// The Firestore document is the source of truth, so a failed push is only logged.
func (s *NotificationService) SendNotification(ctx context.Context, notification *Notification) error {
	_, _, err := s.firestore.Collection("notifications").Add(ctx, map[string]interface{}{
		"recipientKind": string(notification.Recipient.Kind),
		"recipientID":   notification.Recipient.ID,
		"title":         notification.Title,
		"message":       notification.Message,
		"type":          notification.Type,
		"referenceID":   notification.ReferenceID,
		"data":          notification.Data,
		"isRead":        notification.IsRead,
		"createdAt":     notification.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	messageID, err := s.messaging.Send(ctx, &messaging.Message{
		Topic: notification.Recipient.Topic(),
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Message,
		},
		Data: notification.Data,
	})
	if err != nil {
		log.Warn().Err(err).Str("topic", notification.Recipient.Topic()).Msg("failed to push notification")
		return nil
	}

	log.Info().Str("recipient", notification.Recipient.String()).Str("type", notification.Type).
		Str("message_id", messageID).Msg("notification sent successfully")
	return nil
}

func (s *NotificationService) Close() error {
	return s.firestore.Close()
}

// LogNotifier only logs. Used when Firebase is not configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, recipient Recipient, eventType string, payload map[string]string) error {
	n := Build(recipient, eventType, payload)
	log.Info().Str("recipient", recipient.String()).Str("type", eventType).Str("title", n.Title).
		Str("message", n.Message).Msg("notification")
	return nil
}
