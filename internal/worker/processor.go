package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/pharmago/dispatch/internal/commission"
	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/notification"
	"github.com/rs/zerolog/log"
)

/*
 This file contains the code that picks up tasks from the Redis queue and processes them.
*/

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

// Assigner runs automatic courier assignment for an order.
type Assigner interface {
	AssignOrAlert(ctx context.Context, orderID int64) (*db.Delivery, error)
}

// CommissionDistributor settles an order.
type CommissionDistributor interface {
	CalculateAndDistribute(ctx context.Context, orderID int64) (commission.Result, error)
}

type RedisTaskProcessor struct {
	server     *asynq.Server
	sender     notification.Notifier
	assigner   Assigner
	commission CommissionDistributor
}

// NewRedisTaskProcessor wires the task handlers. sender delivers notifications for real,
// usually a *notification.NotificationService.
func NewRedisTaskProcessor(
	redisOpt asynq.RedisClientOpt,
	sender notification.Notifier,
	assigner Assigner,
	commissionDistributor CommissionDistributor,
) *RedisTaskProcessor {
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Queues: map[string]int{
				QueueCritical: 10,
				QueueDefault:  5,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error().Err(err).Str("type", task.Type()).
					Bytes("payload", task.Payload()).Msg("process task failed")
			}),
			Logger: NewLogger(),
		},
	)

	return &RedisTaskProcessor{
		server:     server,
		sender:     sender,
		assigner:   assigner,
		commission: commissionDistributor,
	}
}

// Start registers the task handlers for the mux, attaches the mux to the asynq server, and starts the server.
func (processor *RedisTaskProcessor) Start() error {
	mux := asynq.NewServeMux()

	mux.HandleFunc(TaskSendNotification, processor.ProcessTaskSendNotification)
	mux.HandleFunc(TaskAutoAssignDelivery, processor.ProcessTaskAutoAssignDelivery)
	mux.HandleFunc(TaskDistributeCommission, processor.ProcessTaskDistributeCommission)

	return processor.server.Start(mux)
}

func (processor *RedisTaskProcessor) Shutdown() {
	processor.server.Shutdown()
}
