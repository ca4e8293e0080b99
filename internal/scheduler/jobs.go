package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/pharmago/dispatch/internal/delivery"
	"github.com/pharmago/dispatch/internal/dispatch"
	"github.com/pharmago/dispatch/internal/payment"
	"github.com/pharmago/dispatch/internal/settings"
	"github.com/rs/zerolog/log"
)

// BatchAssigner retries assignment for every open delivery.
type BatchAssigner interface {
	AssignAllPendingDeliveries(ctx context.Context) (dispatch.BatchResult, error)
}

// Jobs holds the body of every periodic job. Each call is one sweep; the Tracker decides when.
type Jobs struct {
	store          db.Store
	settings       settings.Provider
	deliveries     *delivery.Service
	assigner       BatchAssigner
	payments       *payment.Service
	statusProvider payment.StatusProvider

	Now func() time.Time
}

func NewJobs(
	store db.Store,
	settingsProvider settings.Provider,
	deliveries *delivery.Service,
	assigner BatchAssigner,
	payments *payment.Service,
	statusProvider payment.StatusProvider,
) *Jobs {
	return &Jobs{
		store:          store,
		settings:       settingsProvider,
		deliveries:     deliveries,
		assigner:       assigner,
		payments:       payments,
		statusProvider: statusProvider,
		Now:            time.Now,
	}
}

type TimeoutSweepResult struct {
	Cancelled int `json:"cancelled"`
	Refreshed int `json:"refreshed"`
	Failed    int `json:"failed"`
}

// CheckWaitingTimeouts cancels deliveries whose customer never showed up, then brings the
// running fee of every other waiting delivery up to date.
func (j *Jobs) CheckWaitingTimeouts(ctx context.Context) (TimeoutSweepResult, error) {
	var result TimeoutSweepResult

	tunables, err := j.settings.Tunables(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to read settings: %w", err)
	}
	now := j.Now()

	expired, err := j.store.ListTimedOutWaitingDeliveries(ctx, now.Add(-tunables.WaitingTimeout()))
	if err != nil {
		return result, fmt.Errorf("failed to list timed out deliveries: %w", err)
	}

	cancelled := make(map[int64]bool, len(expired))
	for _, d := range expired {
		tc, ok, err := j.deliveries.CancelForWaitingTimeout(ctx, d.ID, now, tunables)
		if err != nil {
			result.Failed++
			log.Error().Err(err).Int64("delivery_id", d.ID).Msg("failed to cancel timed out delivery")
			continue
		}
		if !ok {
			continue
		}

		cancelled[d.ID] = true
		result.Cancelled++
		log.Info().
			Int64("delivery_id", d.ID).
			Int64("order_id", tc.Order.ID).
			Int64("waiting_fee", tc.Delivery.WaitingFee).
			Msg("delivery cancelled after waiting timeout")
		j.deliveries.NotifyTimeout(ctx, tc)
	}

	waiting, err := j.store.ListWaitingDeliveries(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list waiting deliveries: %w", err)
	}

	for _, d := range waiting {
		if cancelled[d.ID] {
			continue
		}
		if _, err := j.deliveries.RefreshWaitingFee(ctx, d.ID, now, tunables); err != nil {
			if errors.Is(err, delivery.ErrNotWaiting) {
				continue
			}
			result.Failed++
			log.Error().Err(err).Int64("delivery_id", d.ID).Msg("failed to refresh waiting fee")
			continue
		}
		result.Refreshed++
	}

	return result, nil
}

type PaymentSweepResult struct {
	Resolved int `json:"resolved"`
	Expired  int `json:"expired"`
	Failed   int `json:"failed"`
}

// CheckPendingPayments asks the provider about payments left pending past the timeout.
// Payments the provider still reports as pending are expired.
func (j *Jobs) CheckPendingPayments(ctx context.Context) (PaymentSweepResult, error) {
	var result PaymentSweepResult

	tunables, err := j.settings.Tunables(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to read settings: %w", err)
	}

	stale, err := j.store.ListStalePendingPayments(ctx, j.Now().Add(-tunables.PaymentPendingTimeout()))
	if err != nil {
		return result, fmt.Errorf("failed to list pending payments: %w", err)
	}

	for _, p := range stale {
		status, err := j.statusProvider.CheckStatus(ctx, p.Reference)
		if err != nil {
			result.Failed++
			log.Error().Err(err).Str("reference", p.Reference).Int64("order_id", p.OrderID).Msg("failed to check payment status")
			continue
		}

		resolved, ok, err := j.payments.Resolve(ctx, p.Reference, status)
		if err != nil {
			result.Failed++
			log.Error().Err(err).Str("reference", p.Reference).Msg("failed to record payment status")
			continue
		}
		if ok {
			result.Resolved++
			log.Info().Str("reference", p.Reference).Str("status", string(resolved.Status)).Msg("pending payment resolved")
			continue
		}

		if _, err := j.payments.Expire(ctx, p.Reference, status.Raw); err != nil {
			result.Failed++
			log.Error().Err(err).Str("reference", p.Reference).Msg("failed to expire payment")
			continue
		}
		result.Expired++
	}

	return result, nil
}

// AssignPendingDeliveries gives deliveries left without a courier another try.
func (j *Jobs) AssignPendingDeliveries(ctx context.Context) (dispatch.BatchResult, error) {
	return j.assigner.AssignAllPendingDeliveries(ctx)
}
