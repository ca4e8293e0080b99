package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pharmago/dispatch/internal/commission"
	"github.com/pharmago/dispatch/internal/db/memstore"
	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/delivery"
	"github.com/pharmago/dispatch/internal/dispatch"
	"github.com/pharmago/dispatch/internal/notification"
	"github.com/pharmago/dispatch/internal/payment"
	"github.com/pharmago/dispatch/internal/settings"
	"github.com/pharmago/dispatch/internal/testutil"
	"github.com/pharmago/dispatch/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStatusProvider struct {
	results map[string]payment.StatusResult
	errs    map[string]error
}

func (s *stubStatusProvider) CheckStatus(ctx context.Context, reference string) (payment.StatusResult, error) {
	if err, ok := s.errs[reference]; ok {
		return payment.StatusResult{}, err
	}
	if result, ok := s.results[reference]; ok {
		return result, nil
	}
	return payment.StatusResult{Status: db.PaymentStatusPending, Raw: []byte(`{"status":"pending"}`)}, nil
}

type jobsFixture struct {
	store      *memstore.Store
	jobs       *Jobs
	dispatcher *dispatch.Engine
	deliveries *delivery.Service
	notifier   *testutil.Notifier
	provider   *stubStatusProvider
	now        time.Time
}

func newJobsFixture(t *testing.T, tunables settings.Tunables) *jobsFixture {
	t.Helper()
	f := &jobsFixture{
		store:    memstore.New(),
		notifier: &testutil.Notifier{},
		provider: &stubStatusProvider{results: map[string]payment.StatusResult{}, errs: map[string]error{}},
		now:      time.Now().UTC().Truncate(time.Second),
	}
	publisher := &testutil.Publisher{}
	provider := settings.Static(tunables)

	f.dispatcher = dispatch.NewEngine(f.store, provider, f.notifier, publisher, &testutil.Alerter{})
	f.dispatcher.Now = func() time.Time { return f.now }
	commissions := commission.NewEngine(f.store, provider, wallet.NewLedger("XOF"), f.notifier, publisher, "XOF")
	f.deliveries = delivery.NewService(f.store, provider, f.dispatcher, commissions, f.notifier, publisher, "XOF")
	f.deliveries.Now = func() time.Time { return f.now }

	payments := payment.NewService(f.store, publisher)
	f.jobs = NewJobs(f.store, provider, f.deliveries, f.dispatcher, payments, f.provider)
	f.jobs.Now = func() time.Time { return f.now }
	return f
}

// arrived drives a fresh order to the point where the courier waits at the door.
func (f *jobsFixture) arrived(t *testing.T) (db.Delivery, db.Courier, db.Order) {
	t.Helper()
	ctx := context.Background()
	courier := testutil.CreateCourier(t, f.store, f.now, testutil.CourierParams{DistanceKm: 1, Rating: 5})
	pharmacy := testutil.CreatePharmacy(t, f.store, nil)
	order := testutil.CreateOrder(t, f.store, pharmacy.ID, db.OrderStatusConfirmed, 10000)

	_, err := f.deliveries.MarkReady(ctx, order.ID)
	require.NoError(t, err)
	assigned, err := f.dispatcher.AssignCourier(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned)

	_, err = f.deliveries.Accept(ctx, assigned.ID, courier.ID)
	require.NoError(t, err)
	_, err = f.deliveries.PickUp(ctx, assigned.ID, courier.ID)
	require.NoError(t, err)
	_, err = f.deliveries.StartTransit(ctx, assigned.ID, courier.ID)
	require.NoError(t, err)
	d, err := f.deliveries.MarkArrived(ctx, assigned.ID, courier.ID)
	require.NoError(t, err)
	return d, courier, order
}

func TestCheckWaitingTimeoutsCancelsExpiredDelivery(t *testing.T) {
	tunables := settings.DefaultTunables()
	tunables.WaitingTimeoutMinutes = 10
	tunables.WaitingFreeMinutes = 2
	tunables.WaitingFeePerMinute = 100
	f := newJobsFixture(t, tunables)
	ctx := context.Background()

	d, courier, order := f.arrived(t)
	f.now = f.now.Add(15 * time.Minute)

	result, err := f.jobs.CheckWaitingTimeouts(ctx)
	require.NoError(t, err)
	assert.Equal(t, TimeoutSweepResult{Cancelled: 1}, result)

	stored, err := f.store.GetDelivery(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, db.DeliveryStatusCancelled, stored.Status)
	assert.EqualValues(t, 1300, stored.WaitingFee)
	require.NotNil(t, stored.AutoCancelledAt)
	require.NotNil(t, stored.CancellationReason)
	assert.Contains(t, *stored.CancellationReason, "10 minutes")

	storedOrder, err := f.store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, db.OrderStatusCancelled, storedOrder.Status)

	storedCourier, err := f.store.GetCourier(ctx, courier.ID)
	require.NoError(t, err)
	assert.Equal(t, db.CourierStatusAvailable, storedCourier.Status)

	for _, recipient := range []notification.Recipient{
		notification.Customer(order.CustomerID),
		notification.Courier(courier.ID),
		notification.Pharmacy(order.PharmacyID),
	} {
		var autoCancelled int
		for _, sent := range f.notifier.To(recipient) {
			if sent.EventType == notification.TypeDeliveryAutoCancelled {
				autoCancelled++
			}
		}
		assert.Equal(t, 1, autoCancelled, recipient.String())
	}

	// A second sweep finds nothing left to do.
	result, err = f.jobs.CheckWaitingTimeouts(ctx)
	require.NoError(t, err)
	assert.Equal(t, TimeoutSweepResult{}, result)
}

func TestCheckWaitingTimeoutsRefreshesRunningFee(t *testing.T) {
	tunables := settings.DefaultTunables()
	f := newJobsFixture(t, tunables)
	ctx := context.Background()

	d, _, _ := f.arrived(t)
	f.now = f.now.Add(8 * time.Minute)

	result, err := f.jobs.CheckWaitingTimeouts(ctx)
	require.NoError(t, err)
	assert.Equal(t, TimeoutSweepResult{Refreshed: 1}, result)

	stored, err := f.store.GetDelivery(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, db.DeliveryStatusInTransit, stored.Status)
	assert.EqualValues(t, (8-tunables.WaitingFreeMinutes)*tunables.WaitingFeePerMinute, stored.WaitingFee)
	assert.Nil(t, stored.WaitingEndedAt)
}

func TestCheckPendingPaymentsContinuesPastFailures(t *testing.T) {
	tunables := settings.DefaultTunables()
	f := newJobsFixture(t, tunables)
	ctx := context.Background()

	pharmacy := testutil.CreatePharmacy(t, f.store, nil)
	create := func(reference string) db.Order {
		order := testutil.CreateOrder(t, f.store, pharmacy.ID, db.OrderStatusPending, 5000)
		_, err := f.store.CreatePayment(ctx, db.CreatePaymentParams{
			OrderID:   order.ID,
			Reference: reference,
			Provider:  "jeko",
			Amount:    order.TotalAmount,
			Status:    db.PaymentStatusPending,
		})
		require.NoError(t, err)
		return order
	}

	paid := create("PAY-OK")
	create("PAY-DOWN")
	create("PAY-STUCK")
	create("PAY-FAILED")

	f.provider.results["PAY-OK"] = payment.StatusResult{Status: db.PaymentStatusSuccess, Raw: []byte(`{"status":"success"}`)}
	f.provider.results["PAY-FAILED"] = payment.StatusResult{Status: db.PaymentStatusFailed, Raw: []byte(`{"status":"error"}`)}
	f.provider.errs["PAY-DOWN"] = errors.New("connection reset")

	f.jobs.Now = func() time.Time { return time.Now().Add(tunables.PaymentPendingTimeout() + time.Minute) }

	result, err := f.jobs.CheckPendingPayments(ctx)
	require.NoError(t, err)
	assert.Equal(t, PaymentSweepResult{Resolved: 2, Expired: 1, Failed: 1}, result)

	statuses := map[string]db.PaymentStatus{
		"PAY-OK":     db.PaymentStatusSuccess,
		"PAY-DOWN":   db.PaymentStatusPending,
		"PAY-STUCK":  db.PaymentStatusExpired,
		"PAY-FAILED": db.PaymentStatusFailed,
	}
	for reference, want := range statuses {
		p, err := f.store.GetPaymentByReference(ctx, reference)
		require.NoError(t, err)
		assert.Equal(t, want, p.Status, reference)
	}

	order, err := f.store.GetOrder(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, db.OrderStatusConfirmed, order.Status)
}

func TestCheckPendingPaymentsIgnoresFreshPayments(t *testing.T) {
	f := newJobsFixture(t, settings.DefaultTunables())
	ctx := context.Background()

	pharmacy := testutil.CreatePharmacy(t, f.store, nil)
	order := testutil.CreateOrder(t, f.store, pharmacy.ID, db.OrderStatusPending, 5000)
	_, err := f.store.CreatePayment(ctx, db.CreatePaymentParams{
		OrderID:   order.ID,
		Reference: "PAY-FRESH",
		Provider:  "jeko",
		Amount:    order.TotalAmount,
		Status:    db.PaymentStatusPending,
	})
	require.NoError(t, err)

	f.jobs.Now = time.Now
	result, err := f.jobs.CheckPendingPayments(ctx)
	require.NoError(t, err)
	assert.Equal(t, PaymentSweepResult{}, result)
}

func TestAssignPendingDeliveries(t *testing.T) {
	f := newJobsFixture(t, settings.DefaultTunables())
	ctx := context.Background()

	pharmacy := testutil.CreatePharmacy(t, f.store, nil)
	for range 2 {
		order := testutil.CreateOrder(t, f.store, pharmacy.ID, db.OrderStatusConfirmed, 8000)
		_, err := f.deliveries.MarkReady(ctx, order.ID)
		require.NoError(t, err)
	}
	testutil.CreateCourier(t, f.store, f.now, testutil.CourierParams{DistanceKm: 2, Rating: 4})

	result, err := f.jobs.AssignPendingDeliveries(ctx)
	require.NoError(t, err)
	assert.Equal(t, dispatch.BatchResult{Assigned: 1, Failed: 1}, result)
}
