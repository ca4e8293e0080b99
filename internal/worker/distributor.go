package worker

import (
	"context"

	"github.com/hibiken/asynq"
)

const (
	TaskSendNotification     = "notification:send"
	TaskAutoAssignDelivery   = "delivery:auto_assign"
	TaskDistributeCommission = "commission:distribute"
)

/*
This file contains the code that creates tasks and pushes them to the Redis queue.
*/

type TaskDistributor interface {
	DistributeTaskSendNotification(ctx context.Context, payload *PayloadSendNotification, opts ...asynq.Option) error
	DistributeTaskAutoAssignDelivery(ctx context.Context, payload *PayloadAutoAssignDelivery, opts ...asynq.Option) error
	DistributeTaskDistributeCommission(ctx context.Context, payload *PayloadDistributeCommission, opts ...asynq.Option) error
}

type RedisTaskDistributor struct {
	client *asynq.Client // client sends tasks to redis queue.
}

func NewTaskDistributor(redisOpt asynq.RedisClientOpt) TaskDistributor {
	client := asynq.NewClient(redisOpt)

	return &RedisTaskDistributor{
		client: client,
	}
}

func (distributor *RedisTaskDistributor) Close() error {
	return distributor.client.Close()
}
