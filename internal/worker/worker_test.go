package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/pharmago/dispatch/internal/commission"
	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/dispatch"
	"github.com/pharmago/dispatch/internal/notification"
	"github.com/pharmago/dispatch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDistributor struct {
	notifications []*PayloadSendNotification
}

func (d *recordingDistributor) DistributeTaskSendNotification(ctx context.Context, payload *PayloadSendNotification, opts ...asynq.Option) error {
	d.notifications = append(d.notifications, payload)
	return nil
}

func (d *recordingDistributor) DistributeTaskAutoAssignDelivery(ctx context.Context, payload *PayloadAutoAssignDelivery, opts ...asynq.Option) error {
	return nil
}

func (d *recordingDistributor) DistributeTaskDistributeCommission(ctx context.Context, payload *PayloadDistributeCommission, opts ...asynq.Option) error {
	return nil
}

type stubAssigner struct {
	delivery *db.Delivery
	err      error
	calls    []int64
}

func (a *stubAssigner) AssignOrAlert(ctx context.Context, orderID int64) (*db.Delivery, error) {
	a.calls = append(a.calls, orderID)
	return a.delivery, a.err
}

type stubCommission struct {
	err   error
	calls []int64
}

func (c *stubCommission) CalculateAndDistribute(ctx context.Context, orderID int64) (commission.Result, error) {
	c.calls = append(c.calls, orderID)
	return commission.Result{Commission: db.Commission{ID: 9, OrderID: orderID}, Created: true}, c.err
}

func newTask(t *testing.T, taskType string, payload any) *asynq.Task {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(taskType, body)
}

func TestNotifierEnqueuesNotification(t *testing.T) {
	distributor := &recordingDistributor{}
	notifier := NewNotifier(distributor)

	err := notifier.Notify(context.Background(), notification.Courier(12), notification.TypeDeliveryAssigned, map[string]string{"delivery_id": "4"})
	require.NoError(t, err)

	require.Len(t, distributor.notifications, 1)
	sent := distributor.notifications[0]
	assert.Equal(t, notification.Courier(12), sent.Recipient)
	assert.Equal(t, notification.TypeDeliveryAssigned, sent.EventType)
	assert.Equal(t, "4", sent.Payload["delivery_id"])
}

func TestProcessTaskSendNotification(t *testing.T) {
	sender := &testutil.Notifier{}
	processor := &RedisTaskProcessor{sender: sender}

	task := newTask(t, TaskSendNotification, PayloadSendNotification{
		Recipient: notification.Customer(3),
		EventType: notification.TypeDeliveryDelivered,
		Payload:   map[string]string{"order_id": "8"},
	})
	require.NoError(t, processor.ProcessTaskSendNotification(context.Background(), task))

	sent := sender.To(notification.Customer(3))
	require.Len(t, sent, 1)
	assert.Equal(t, notification.TypeDeliveryDelivered, sent[0].EventType)

	sender.Err = errors.New("firestore unavailable")
	err := processor.ProcessTaskSendNotification(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)

	bad := asynq.NewTask(TaskSendNotification, []byte("{"))
	require.ErrorIs(t, processor.ProcessTaskSendNotification(context.Background(), bad), asynq.SkipRetry)
}

func TestProcessTaskAutoAssignDelivery(t *testing.T) {
	testCases := []struct {
		name      string
		assigner  *stubAssigner
		wantErr   bool
		skipRetry bool
	}{
		{
			name:     "assigned",
			assigner: &stubAssigner{delivery: &db.Delivery{ID: 1}},
		},
		{
			name:     "no courier",
			assigner: &stubAssigner{},
		},
		{
			name:      "missing coordinates",
			assigner:  &stubAssigner{err: dispatch.ErrMissingCoordinates},
			wantErr:   true,
			skipRetry: true,
		},
		{
			name:      "already assigned",
			assigner:  &stubAssigner{err: dispatch.ErrAlreadyAssigned},
			wantErr:   true,
			skipRetry: true,
		},
		{
			name:     "store failure",
			assigner: &stubAssigner{err: errors.New("connection refused")},
			wantErr:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			processor := &RedisTaskProcessor{assigner: tc.assigner}
			task := newTask(t, TaskAutoAssignDelivery, PayloadAutoAssignDelivery{OrderID: 42})

			err := processor.ProcessTaskAutoAssignDelivery(context.Background(), task)
			assert.Equal(t, []int64{42}, tc.assigner.calls)
			if !tc.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestProcessTaskDistributeCommission(t *testing.T) {
	engine := &stubCommission{}
	processor := &RedisTaskProcessor{commission: engine}
	task := newTask(t, TaskDistributeCommission, PayloadDistributeCommission{OrderID: 7})

	require.NoError(t, processor.ProcessTaskDistributeCommission(context.Background(), task))
	assert.Equal(t, []int64{7}, engine.calls)

	engine.err = commission.ErrOrderNotFound
	require.ErrorIs(t, processor.ProcessTaskDistributeCommission(context.Background(), task), asynq.SkipRetry)

	engine.err = fmt.Errorf("%w: order 7 is cancelled", commission.ErrOrderNotDelivered)
	err := processor.ProcessTaskDistributeCommission(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.ErrorIs(t, err, commission.ErrOrderNotDelivered)

	engine.err = errors.New("connection reset")
	assert.False(t, errors.Is(processor.ProcessTaskDistributeCommission(context.Background(), task), asynq.SkipRetry))
}

type commissionRecorder struct {
	recordingDistributor
	commissions []*PayloadDistributeCommission
}

func (d *commissionRecorder) DistributeTaskDistributeCommission(ctx context.Context, payload *PayloadDistributeCommission, opts ...asynq.Option) error {
	d.commissions = append(d.commissions, payload)
	return nil
}

func TestRetryingCommissionQueuesOnFailure(t *testing.T) {
	engine := &stubCommission{}
	distributor := &commissionRecorder{}
	retrying := NewRetryingCommission(engine, distributor)

	_, err := retrying.CalculateAndDistribute(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, distributor.commissions)

	engine.err = errors.New("deadlock detected")
	_, err = retrying.CalculateAndDistribute(context.Background(), 5)
	require.Error(t, err)
	require.Len(t, distributor.commissions, 1)
	assert.EqualValues(t, 5, distributor.commissions[0].OrderID)

	engine.err = commission.ErrOrderNotFound
	_, err = retrying.CalculateAndDistribute(context.Background(), 6)
	require.ErrorIs(t, err, commission.ErrOrderNotFound)
	assert.Len(t, distributor.commissions, 1)

	engine.err = commission.ErrOrderNotDelivered
	_, err = retrying.CalculateAndDistribute(context.Background(), 7)
	require.ErrorIs(t, err, commission.ErrOrderNotDelivered)
	assert.Len(t, distributor.commissions, 1)
}
