package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/pharmago/dispatch/internal/notification"
	"github.com/rs/zerolog/log"
)

// PayloadSendNotification contains all data of the task that we want to store in Redis.
type PayloadSendNotification struct {
	Recipient notification.Recipient `json:"recipient"`
	EventType string                 `json:"event_type"`
	Payload   map[string]string      `json:"payload"`
}

func (distributor *RedisTaskDistributor) DistributeTaskSendNotification(
	ctx context.Context,
	payload *PayloadSendNotification,
	opts ...asynq.Option,
) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := asynq.NewTask(TaskSendNotification, jsonPayload, opts...)
	info, err := distributor.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Info().Str("type", task.Type()).Bytes("payload", task.Payload()).Str("queue", info.Queue).Int("max_retry", info.MaxRetry).Msg("task enqueued")

	return nil
}

func (processor *RedisTaskProcessor) ProcessTaskSendNotification(
	ctx context.Context,
	task *asynq.Task,
) error {
	var payload PayloadSendNotification
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	if err := processor.sender.Notify(ctx, payload.Recipient, payload.EventType, payload.Payload); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	log.Info().Str("type", task.Type()).Str("recipient", payload.Recipient.String()).
		Str("event_type", payload.EventType).Msg("task processed")

	return nil
}

// Notifier hands notifications to the queue so the caller never waits on Firestore or FCM.
type Notifier struct {
	distributor TaskDistributor
}

var _ notification.Notifier = (*Notifier)(nil)

func NewNotifier(distributor TaskDistributor) *Notifier {
	return &Notifier{distributor: distributor}
}

func (n *Notifier) Notify(ctx context.Context, recipient notification.Recipient, eventType string, payload map[string]string) error {
	return n.distributor.DistributeTaskSendNotification(ctx, &PayloadSendNotification{
		Recipient: recipient,
		EventType: eventType,
		Payload:   payload,
	}, asynq.MaxRetry(3), asynq.Queue(QueueDefault))
}
