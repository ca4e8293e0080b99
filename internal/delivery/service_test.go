package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/pharmago/dispatch/internal/commission"
	"github.com/pharmago/dispatch/internal/db/memstore"
	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/dispatch"
	"github.com/pharmago/dispatch/internal/event"
	"github.com/pharmago/dispatch/internal/notification"
	"github.com/pharmago/dispatch/internal/settings"
	"github.com/pharmago/dispatch/internal/testutil"
	"github.com/pharmago/dispatch/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	store      *memstore.Store
	service    *Service
	dispatcher *dispatch.Engine
	notifier   *testutil.Notifier
	publisher  *testutil.Publisher
	tunables   settings.Tunables
	now        time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		store:     memstore.New(),
		notifier:  &testutil.Notifier{},
		publisher: &testutil.Publisher{},
		tunables:  settings.DefaultTunables(),
		now:       time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
	provider := settings.Static(f.tunables)
	clock := func() time.Time { return f.now }

	f.dispatcher = dispatch.NewEngine(f.store, provider, f.notifier, f.publisher, &testutil.Alerter{})
	f.dispatcher.Now = clock
	commissions := commission.NewEngine(f.store, provider, wallet.NewLedger("XOF"), f.notifier, f.publisher, "XOF")
	f.service = NewService(f.store, provider, f.dispatcher, commissions, f.notifier, f.publisher, "XOF")
	f.service.Now = clock
	return f
}

// assigned seeds an order and assigns it to a fresh courier.
func (f *serviceFixture) assigned(t *testing.T) (db.Delivery, db.Courier) {
	t.Helper()
	courier := testutil.CreateCourier(t, f.store, f.now, testutil.CourierParams{DistanceKm: 1, Rating: 5})
	pharmacy := testutil.CreatePharmacy(t, f.store, nil)
	order := testutil.CreateOrder(t, f.store, pharmacy.ID, db.OrderStatusConfirmed, 10000)

	_, err := f.service.MarkReady(context.Background(), order.ID)
	require.NoError(t, err)
	delivery, err := f.dispatcher.AssignCourier(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, delivery)
	require.Equal(t, courier.ID, *delivery.CourierID)
	return *delivery, courier
}

func (f *serviceFixture) inTransit(t *testing.T) (db.Delivery, db.Courier) {
	t.Helper()
	ctx := context.Background()
	delivery, courier := f.assigned(t)

	_, err := f.service.Accept(ctx, delivery.ID, courier.ID)
	require.NoError(t, err)
	_, err = f.service.PickUp(ctx, delivery.ID, courier.ID)
	require.NoError(t, err)
	delivery, err = f.service.StartTransit(ctx, delivery.ID, courier.ID)
	require.NoError(t, err)
	return delivery, courier
}

func (f *serviceFixture) reload(t *testing.T, id int64) (db.Delivery, db.Order) {
	t.Helper()
	delivery, err := f.store.GetDelivery(context.Background(), id)
	require.NoError(t, err)
	order, err := f.store.GetOrder(context.Background(), delivery.OrderID)
	require.NoError(t, err)
	return delivery, order
}

func (f *serviceFixture) courierStatus(t *testing.T, id int64) db.CourierStatus {
	t.Helper()
	courier, err := f.store.GetCourier(context.Background(), id)
	require.NoError(t, err)
	return courier.Status
}

func TestMarkReadyOpensPendingDelivery(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	pharmacy := testutil.CreatePharmacy(t, f.store, nil)
	order := testutil.CreateOrder(t, f.store, pharmacy.ID, db.OrderStatusConfirmed, 5000)

	delivery, err := f.service.MarkReady(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, db.DeliveryStatusPending, delivery.Status)
	assert.Nil(t, delivery.CourierID)
	assert.Equal(t, pharmacy.Latitude, delivery.PickupLatitude)

	again, err := f.service.MarkReady(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, delivery.ID, again.ID)

	cancelled := testutil.CreateOrder(t, f.store, pharmacy.ID, db.OrderStatusCancelled, 5000)
	_, err = f.service.MarkReady(ctx, cancelled.ID)
	require.ErrorIs(t, err, ErrOrderNotReady)
}

func TestFullLifecycle(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	delivery, courier := f.inTransit(t)
	_, order := f.reload(t, delivery.ID)
	assert.Equal(t, db.OrderStatusInDelivery, order.Status)

	f.now = f.now.Add(time.Minute)
	arrived, err := f.service.MarkArrived(ctx, delivery.ID, courier.ID)
	require.NoError(t, err)
	require.NotNil(t, arrived.WaitingStartedAt)
	startedAt := *arrived.WaitingStartedAt

	f.now = f.now.Add(3 * time.Minute)
	again, err := f.service.MarkArrived(ctx, delivery.ID, courier.ID)
	require.NoError(t, err)
	assert.True(t, again.WaitingStartedAt.Equal(startedAt))

	f.now = startedAt.Add(8 * time.Minute)
	delivered, err := f.service.Deliver(ctx, delivery.ID, courier.ID)
	require.NoError(t, err)
	assert.Equal(t, db.DeliveryStatusDelivered, delivered.Status)
	require.NotNil(t, delivered.WaitingEndedAt)
	assert.EqualValues(t, (8-f.tunables.WaitingFreeMinutes)*f.tunables.WaitingFeePerMinute, delivered.WaitingFee)

	_, order = f.reload(t, delivery.ID)
	assert.Equal(t, db.OrderStatusDelivered, order.Status)

	reloaded, err := f.store.GetCourier(ctx, courier.ID)
	require.NoError(t, err)
	assert.Equal(t, db.CourierStatusAvailable, reloaded.Status)
	assert.EqualValues(t, courier.CompletedDeliveries+1, reloaded.CompletedDeliveries)

	_, err = f.store.GetCommissionByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, f.publisher.OfType(event.EventTypeCommissionDistributed), 1)
	assert.Len(t, f.notifier.To(notification.Customer(order.CustomerID)), 1)

	changes := f.publisher.OfType(event.EventTypeDeliveryStatusChanged)
	var path []db.DeliveryStatus
	for _, e := range changes {
		path = append(path, e.Data.(event.DeliveryStatusChanged).To)
	}
	assert.Equal(t, []db.DeliveryStatus{
		db.DeliveryStatusAssigned,
		db.DeliveryStatusAccepted,
		db.DeliveryStatusPickedUp,
		db.DeliveryStatusInTransit,
		db.DeliveryStatusDelivered,
	}, path)

	_, err = f.service.Cancel(ctx, delivery.ID, "too late")
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRejectReassignsToNextCourier(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	delivery, a := f.assigned(t)
	b := testutil.CreateCourier(t, f.store, f.now, testutil.CourierParams{DistanceKm: 5, Rating: 3})

	next, err := f.service.Reject(ctx, delivery.ID, a.ID, "vehicle breakdown")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, b.ID, next.ID)

	reloaded, order := f.reload(t, delivery.ID)
	require.NotNil(t, reloaded.CourierID)
	assert.Equal(t, b.ID, *reloaded.CourierID)
	assert.Equal(t, db.DeliveryStatusAssigned, reloaded.Status)
	assert.Equal(t, db.OrderStatusAssigned, order.Status)
	assert.Equal(t, db.CourierStatusAvailable, f.courierStatus(t, a.ID))
	assert.Equal(t, db.CourierStatusBusy, f.courierStatus(t, b.ID))
	assert.Len(t, f.notifier.To(notification.Courier(b.ID)), 1)
}

func TestRejectWithoutAlternativeLeavesPending(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	delivery, a := f.assigned(t)

	next, err := f.service.Reject(ctx, delivery.ID, a.ID, "")
	require.NoError(t, err)
	require.Nil(t, next)

	reloaded, order := f.reload(t, delivery.ID)
	assert.Equal(t, db.DeliveryStatusPending, reloaded.Status)
	assert.Nil(t, reloaded.CourierID)
	assert.Equal(t, db.OrderStatusReady, order.Status)
	assert.Equal(t, db.CourierStatusAvailable, f.courierStatus(t, a.ID))
}

func TestTransitionGuards(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	delivery, courier := f.assigned(t)

	_, err := f.service.Accept(ctx, delivery.ID, courier.ID+100)
	require.ErrorIs(t, err, ErrNotAssignedCourier)

	_, err = f.service.Deliver(ctx, delivery.ID, courier.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.service.PickUp(ctx, delivery.ID, courier.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.service.MarkArrived(ctx, delivery.ID, courier.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	reloaded, _ := f.reload(t, delivery.ID)
	assert.Equal(t, db.DeliveryStatusAssigned, reloaded.Status)
}

func TestCancelReleasesCourier(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	delivery, courier := f.assigned(t)
	_, err := f.service.Accept(ctx, delivery.ID, courier.ID)
	require.NoError(t, err)

	cancelled, err := f.service.Cancel(ctx, delivery.ID, "customer changed their mind")
	require.NoError(t, err)
	assert.Equal(t, db.DeliveryStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Nil(t, cancelled.AutoCancelledAt)

	_, order := f.reload(t, delivery.ID)
	assert.Equal(t, db.OrderStatusCancelled, order.Status)
	assert.Equal(t, db.CourierStatusAvailable, f.courierStatus(t, courier.ID))

	sent := f.notifier.To(notification.Courier(courier.ID))
	require.Len(t, sent, 2)
	assert.Equal(t, notification.TypeDeliveryCancelled, sent[1].EventType)

	_, err = f.service.Accept(ctx, delivery.ID, courier.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelForWaitingTimeout(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	tunables := settings.Tunables{
		WaitingTimeoutMinutes: 10,
		WaitingFreeMinutes:    2,
		WaitingFeePerMinute:   100,
	}

	delivery, courier := f.inTransit(t)
	_, err := f.service.MarkArrived(ctx, delivery.ID, courier.ID)
	require.NoError(t, err)

	_, ok, err := f.service.CancelForWaitingTimeout(ctx, delivery.ID, f.now.Add(9*time.Minute), tunables)
	require.NoError(t, err)
	require.False(t, ok)

	tc, ok, err := f.service.CancelForWaitingTimeout(ctx, delivery.ID, f.now.Add(15*time.Minute), tunables)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 1300, tc.Delivery.WaitingFee)
	assert.Equal(t, db.DeliveryStatusCancelled, tc.Delivery.Status)
	require.NotNil(t, tc.Delivery.AutoCancelledAt)
	require.NotNil(t, tc.Delivery.WaitingEndedAt)
	assert.Equal(t, db.OrderStatusCancelled, tc.Order.Status)
	require.NotNil(t, tc.CourierID)
	assert.Equal(t, courier.ID, *tc.CourierID)
	assert.Equal(t, db.CourierStatusAvailable, f.courierStatus(t, courier.ID))

	_, ok, err = f.service.CancelForWaitingTimeout(ctx, delivery.ID, f.now.Add(20*time.Minute), tunables)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefreshWaitingFeeIsMonotonic(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	tunables := f.tunables

	delivery, courier := f.inTransit(t)
	_, err := f.service.RefreshWaitingFee(ctx, delivery.ID, f.now, tunables)
	require.ErrorIs(t, err, ErrNotWaiting)

	_, err = f.service.MarkArrived(ctx, delivery.ID, courier.ID)
	require.NoError(t, err)
	start := f.now

	var last int64
	for _, offset := range []time.Duration{1, 6, 7, 4, 9, 2} {
		fee, err := f.service.RefreshWaitingFee(ctx, delivery.ID, start.Add(offset*time.Minute), tunables)
		require.NoError(t, err)
		stored, _ := f.reload(t, delivery.ID)
		assert.GreaterOrEqual(t, stored.WaitingFee, last)
		assert.GreaterOrEqual(t, fee, last)
		last = stored.WaitingFee
	}
	assert.EqualValues(t, (9-tunables.WaitingFreeMinutes)*tunables.WaitingFeePerMinute, last)
	assert.NotEmpty(t, f.publisher.OfType(event.EventTypeWaitingFeeUpdated))
}
