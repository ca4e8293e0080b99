package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/pharmago/dispatch/internal/commission"
	"github.com/rs/zerolog/log"
)

type PayloadDistributeCommission struct {
	OrderID int64 `json:"order_id"`
}

// DistributeTaskDistributeCommission queues a commission settlement, used when the
// synchronous attempt after delivery failed.
func (distributor *RedisTaskDistributor) DistributeTaskDistributeCommission(
	ctx context.Context,
	payload *PayloadDistributeCommission,
	opts ...asynq.Option,
) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := asynq.NewTask(TaskDistributeCommission, jsonPayload, opts...)
	info, err := distributor.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Info().Str("type", task.Type()).Int64("order_id", payload.OrderID).Str("queue", info.Queue).
		Int("max_retry", info.MaxRetry).Msg("task enqueued")

	return nil
}

func (processor *RedisTaskProcessor) ProcessTaskDistributeCommission(
	ctx context.Context,
	task *asynq.Task,
) error {
	var payload PayloadDistributeCommission
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	result, err := processor.commission.CalculateAndDistribute(ctx, payload.OrderID)
	if err != nil {
		if isPermanentCommissionError(err) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	log.Info().Int64("order_id", payload.OrderID).Int64("commission_id", result.Commission.ID).
		Bool("created", result.Created).Msg("task processed")
	return nil
}

// RetryingCommission runs the commission synchronously and queues a retry when that fails,
// so a delivered order is always settled eventually.
type RetryingCommission struct {
	engine      CommissionDistributor
	distributor TaskDistributor
}

func NewRetryingCommission(engine CommissionDistributor, distributor TaskDistributor) *RetryingCommission {
	return &RetryingCommission{engine: engine, distributor: distributor}
}

func (r *RetryingCommission) CalculateAndDistribute(ctx context.Context, orderID int64) (commission.Result, error) {
	result, err := r.engine.CalculateAndDistribute(ctx, orderID)
	if err == nil || isPermanentCommissionError(err) {
		return result, err
	}

	enqueueErr := r.distributor.DistributeTaskDistributeCommission(ctx, &PayloadDistributeCommission{OrderID: orderID},
		asynq.MaxRetry(10), asynq.Queue(QueueCritical), asynq.ProcessIn(30*time.Second))
	if enqueueErr != nil {
		log.Error().Err(enqueueErr).Int64("order_id", orderID).Msg("failed to queue commission retry")
	}
	return result, err
}

// isPermanentCommissionError reports errors that no retry can fix.
func isPermanentCommissionError(err error) bool {
	return errors.Is(err, commission.ErrOrderNotFound) || errors.Is(err, commission.ErrOrderNotDelivered)
}
