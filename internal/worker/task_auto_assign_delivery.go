package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/dispatch"
	"github.com/rs/zerolog/log"
)

type PayloadAutoAssignDelivery struct {
	OrderID int64 `json:"order_id"`
}

// DistributeTaskAutoAssignDelivery queues automatic assignment for an order. One task per order
// can be queued at a time.
func (distributor *RedisTaskDistributor) DistributeTaskAutoAssignDelivery(
	ctx context.Context,
	payload *PayloadAutoAssignDelivery,
	opts ...asynq.Option,
) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	taskID := fmt.Sprintf("delivery:auto_assign:%d", payload.OrderID)
	task := asynq.NewTask(TaskAutoAssignDelivery, jsonPayload, append(opts, asynq.TaskID(taskID))...)
	info, err := distributor.client.EnqueueContext(ctx, task)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			log.Info().Str("task_id", taskID).Msg("auto-assign task already queued")
			return nil
		}
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Info().
		Str("type", task.Type()).
		Str("task_id", taskID).
		Int64("order_id", payload.OrderID).
		Str("queue", info.Queue).
		Int("max_retry", info.MaxRetry).
		Msg("auto-assign task enqueued")

	return nil
}

func (processor *RedisTaskProcessor) ProcessTaskAutoAssignDelivery(
	ctx context.Context,
	task *asynq.Task,
) error {
	var payload PayloadAutoAssignDelivery
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	delivery, err := processor.assigner.AssignOrAlert(ctx, payload.OrderID)
	switch {
	case errors.Is(err, dispatch.ErrMissingCoordinates),
		errors.Is(err, dispatch.ErrAlreadyAssigned),
		errors.Is(err, dispatch.ErrOrderClosed),
		errors.Is(err, db.ErrRecordNotFound):
		log.Warn().Err(err).Int64("order_id", payload.OrderID).Msg("auto-assign skipped")
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	case err != nil:
		return err
	}

	if delivery == nil {
		// The periodic batch assigner picks the order up again.
		log.Info().Int64("order_id", payload.OrderID).Msg("auto-assign found no courier")
		return nil
	}

	log.Info().Int64("order_id", payload.OrderID).Int64("delivery_id", delivery.ID).Msg("task processed")
	return nil
}
