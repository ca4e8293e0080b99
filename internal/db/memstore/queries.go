package memstore

import (
	"context"
	"sort"
	"time"

	db "github.com/pharmago/dispatch/internal/db/sqlc"
)

func (t *tables) CreatePharmacy(ctx context.Context, arg db.CreatePharmacyParams) (db.Pharmacy, error) {
	defer t.lock()()
	p := db.Pharmacy{
		ID:                     t.id(),
		Name:                   arg.Name,
		Latitude:               arg.Latitude,
		Longitude:              arg.Longitude,
		CommissionRatePharmacy: arg.CommissionRatePharmacy,
		CreatedAt:              now(),
	}
	t.pharmacies[p.ID] = p
	return p, nil
}

func (t *tables) GetPharmacy(ctx context.Context, id int64) (db.Pharmacy, error) {
	defer t.lock()()
	p, ok := t.pharmacies[id]
	if !ok {
		return db.Pharmacy{}, db.ErrRecordNotFound
	}
	return p, nil
}

func (t *tables) CreateCourier(ctx context.Context, arg db.CreateCourierParams) (db.Courier, error) {
	defer t.lock()()
	for _, c := range t.couriers {
		if c.UserID == arg.UserID {
			return db.Courier{}, uniqueViolation("couriers_user_id_key")
		}
	}
	c := db.Courier{
		ID:                  t.id(),
		UserID:              arg.UserID,
		Name:                arg.Name,
		Phone:               arg.Phone,
		Status:              arg.Status,
		VehicleType:         arg.VehicleType,
		Latitude:            arg.Latitude,
		Longitude:           arg.Longitude,
		Rating:              arg.Rating,
		CompletedDeliveries: arg.CompletedDeliveries,
		LastLocationUpdate:  arg.LastLocationUpdate,
		CreatedAt:           now(),
		UpdatedAt:           now(),
	}
	t.couriers[c.ID] = c
	return c, nil
}

func (t *tables) GetCourier(ctx context.Context, id int64) (db.Courier, error) {
	defer t.lock()()
	c, ok := t.couriers[id]
	if !ok {
		return db.Courier{}, db.ErrRecordNotFound
	}
	return c, nil
}

func (t *tables) ListAvailableCouriers(ctx context.Context, locatedSince time.Time) ([]db.Courier, error) {
	defer t.lock()()
	items := []db.Courier{}
	for _, c := range sortedValues(t.couriers) {
		if c.Status != db.CourierStatusAvailable || c.Latitude == nil || c.Longitude == nil {
			continue
		}
		if c.LastLocationUpdate == nil || c.LastLocationUpdate.Before(locatedSince) {
			continue
		}
		items = append(items, c)
	}
	return items, nil
}

func (t *tables) ClaimCourier(ctx context.Context, id int64) (db.Courier, error) {
	defer t.lock()()
	c, ok := t.couriers[id]
	if !ok || c.Status != db.CourierStatusAvailable {
		return db.Courier{}, db.ErrRecordNotFound
	}
	c.Status = db.CourierStatusBusy
	c.UpdatedAt = now()
	t.couriers[id] = c
	return c, nil
}

func (t *tables) ReleaseCourier(ctx context.Context, id int64) (int64, error) {
	defer t.lock()()
	c, ok := t.couriers[id]
	if !ok || c.Status != db.CourierStatusBusy {
		return 0, nil
	}
	c.Status = db.CourierStatusAvailable
	c.UpdatedAt = now()
	t.couriers[id] = c
	return 1, nil
}

func (t *tables) IncrementCourierDeliveries(ctx context.Context, id int64) error {
	defer t.lock()()
	c, ok := t.couriers[id]
	if !ok {
		return nil
	}
	c.CompletedDeliveries++
	c.UpdatedAt = now()
	t.couriers[id] = c
	return nil
}

func (t *tables) UpdateCourierLocation(ctx context.Context, arg db.UpdateCourierLocationParams) (db.Courier, error) {
	defer t.lock()()
	c, ok := t.couriers[arg.ID]
	if !ok {
		return db.Courier{}, db.ErrRecordNotFound
	}
	lat, lon, at := arg.Latitude, arg.Longitude, arg.ReportedAt
	c.Latitude, c.Longitude, c.LastLocationUpdate = &lat, &lon, &at
	c.UpdatedAt = now()
	t.couriers[c.ID] = c
	return c, nil
}

func (t *tables) UpdateCourierStatus(ctx context.Context, arg db.UpdateCourierStatusParams) (db.Courier, error) {
	defer t.lock()()
	c, ok := t.couriers[arg.ID]
	if !ok {
		return db.Courier{}, db.ErrRecordNotFound
	}
	c.Status = arg.Status
	c.UpdatedAt = now()
	t.couriers[c.ID] = c
	return c, nil
}

func (t *tables) CreateOrder(ctx context.Context, arg db.CreateOrderParams) (db.Order, error) {
	defer t.lock()()
	for _, o := range t.orders {
		if o.Reference == arg.Reference {
			return db.Order{}, uniqueViolation("orders_reference_key")
		}
	}
	o := db.Order{
		ID:                t.id(),
		Reference:         arg.Reference,
		PharmacyID:        arg.PharmacyID,
		CustomerID:        arg.CustomerID,
		Status:            arg.Status,
		Subtotal:          arg.Subtotal,
		DeliveryFee:       arg.DeliveryFee,
		TotalAmount:       arg.TotalAmount,
		DeliveryLatitude:  arg.DeliveryLatitude,
		DeliveryLongitude: arg.DeliveryLongitude,
		PaymentMode:       arg.PaymentMode,
		CreatedAt:         now(),
		UpdatedAt:         now(),
	}
	t.orders[o.ID] = o
	return o, nil
}

func (t *tables) GetOrder(ctx context.Context, id int64) (db.Order, error) {
	defer t.lock()()
	o, ok := t.orders[id]
	if !ok {
		return db.Order{}, db.ErrRecordNotFound
	}
	return o, nil
}

func (t *tables) GetOrderForUpdate(ctx context.Context, id int64) (db.Order, error) {
	return t.GetOrder(ctx, id)
}

func (t *tables) UpdateOrderStatus(ctx context.Context, arg db.UpdateOrderStatusParams) (db.Order, error) {
	defer t.lock()()
	o, ok := t.orders[arg.ID]
	if !ok {
		return db.Order{}, db.ErrRecordNotFound
	}
	o.Status = arg.Status
	o.UpdatedAt = now()
	t.orders[o.ID] = o
	return o, nil
}

func (t *tables) CreateDelivery(ctx context.Context, arg db.CreateDeliveryParams) (db.Delivery, error) {
	defer t.lock()()
	for _, d := range t.deliveries {
		if d.OrderID == arg.OrderID {
			return db.Delivery{}, uniqueViolation("deliveries_order_id_key")
		}
		if d.TrackingCode == arg.TrackingCode {
			return db.Delivery{}, uniqueViolation("deliveries_tracking_code_key")
		}
	}
	d := db.Delivery{
		ID:               t.id(),
		OrderID:          arg.OrderID,
		Status:           arg.Status,
		TrackingCode:     arg.TrackingCode,
		PickupLatitude:   arg.PickupLatitude,
		PickupLongitude:  arg.PickupLongitude,
		DropoffLatitude:  arg.DropoffLatitude,
		DropoffLongitude: arg.DropoffLongitude,
		CreatedAt:        now(),
		UpdatedAt:        now(),
	}
	t.deliveries[d.ID] = d
	return d, nil
}

func (t *tables) GetDelivery(ctx context.Context, id int64) (db.Delivery, error) {
	defer t.lock()()
	d, ok := t.deliveries[id]
	if !ok {
		return db.Delivery{}, db.ErrRecordNotFound
	}
	return d, nil
}

func (t *tables) GetDeliveryForUpdate(ctx context.Context, id int64) (db.Delivery, error) {
	return t.GetDelivery(ctx, id)
}

func (t *tables) GetDeliveryByOrderID(ctx context.Context, orderID int64) (db.Delivery, error) {
	defer t.lock()()
	for _, d := range t.deliveries {
		if d.OrderID == orderID {
			return d, nil
		}
	}
	return db.Delivery{}, db.ErrRecordNotFound
}

func (t *tables) UpdateDelivery(ctx context.Context, arg db.UpdateDeliveryParams) (db.Delivery, error) {
	defer t.lock()()
	d, ok := t.deliveries[arg.ID]
	if !ok {
		return db.Delivery{}, db.ErrRecordNotFound
	}
	d.CourierID = arg.CourierID
	d.Status = arg.Status
	d.AssignedAt = arg.AssignedAt
	d.AcceptedAt = arg.AcceptedAt
	d.PickedUpAt = arg.PickedUpAt
	d.DeliveredAt = arg.DeliveredAt
	d.CancelledAt = arg.CancelledAt
	d.WaitingStartedAt = arg.WaitingStartedAt
	d.WaitingEndedAt = arg.WaitingEndedAt
	d.WaitingFee = arg.WaitingFee
	d.AutoCancelledAt = arg.AutoCancelledAt
	d.CancellationReason = arg.CancellationReason
	d.UpdatedAt = now()
	t.deliveries[d.ID] = d
	return d, nil
}

func (t *tables) filterDeliveries(keep func(db.Delivery) bool) []db.Delivery {
	items := []db.Delivery{}
	for _, d := range sortedValues(t.deliveries) {
		if keep(d) {
			items = append(items, d)
		}
	}
	return items
}

func (t *tables) ListPendingUnassignedDeliveries(ctx context.Context) ([]db.Delivery, error) {
	defer t.lock()()
	return t.filterDeliveries(func(d db.Delivery) bool {
		return d.Status == db.DeliveryStatusPending && d.CourierID == nil
	}), nil
}

func isWaiting(d db.Delivery) bool {
	return d.Status == db.DeliveryStatusInTransit && d.IsWaiting() && d.AutoCancelledAt == nil
}

func (t *tables) ListWaitingDeliveries(ctx context.Context) ([]db.Delivery, error) {
	defer t.lock()()
	return t.filterDeliveries(isWaiting), nil
}

func (t *tables) ListTimedOutWaitingDeliveries(ctx context.Context, startedBefore time.Time) ([]db.Delivery, error) {
	defer t.lock()()
	return t.filterDeliveries(func(d db.Delivery) bool {
		return isWaiting(d) && !d.WaitingStartedAt.After(startedBefore)
	}), nil
}

func (t *tables) RaiseWaitingFee(ctx context.Context, arg db.RaiseWaitingFeeParams) (int64, error) {
	defer t.lock()()
	d, ok := t.deliveries[arg.ID]
	if !ok || d.WaitingEndedAt != nil || d.WaitingFee >= arg.Fee {
		return 0, nil
	}
	d.WaitingFee = arg.Fee
	d.UpdatedAt = now()
	t.deliveries[d.ID] = d
	return 1, nil
}

func (t *tables) GetCommissionByOrderID(ctx context.Context, orderID int64) (db.Commission, error) {
	defer t.lock()()
	for _, c := range t.commissions {
		if c.OrderID == orderID {
			return c, nil
		}
	}
	return db.Commission{}, db.ErrRecordNotFound
}

func (t *tables) CreateCommission(ctx context.Context, arg db.CreateCommissionParams) (db.Commission, error) {
	defer t.lock()()
	for _, c := range t.commissions {
		if c.OrderID == arg.OrderID {
			return db.Commission{}, uniqueViolation(db.UniqueCommissionOrderConstraint)
		}
	}
	c := db.Commission{
		ID:           t.id(),
		OrderID:      arg.OrderID,
		TotalAmount:  arg.TotalAmount,
		CalculatedAt: now(),
	}
	t.commissions[c.ID] = c
	return c, nil
}

func (t *tables) CreateCommissionLine(ctx context.Context, arg db.CreateCommissionLineParams) (db.CommissionLine, error) {
	defer t.lock()()
	l := db.CommissionLine{
		ID:           t.id(),
		CommissionID: arg.CommissionID,
		ActorType:    arg.ActorType,
		ActorID:      arg.ActorID,
		Rate:         arg.Rate,
		Amount:       arg.Amount,
		CreatedAt:    now(),
	}
	t.commissionLines[l.ID] = l
	return l, nil
}

func (t *tables) ListCommissionLines(ctx context.Context, commissionID int64) ([]db.CommissionLine, error) {
	defer t.lock()()
	items := []db.CommissionLine{}
	for _, l := range sortedValues(t.commissionLines) {
		if l.CommissionID == commissionID {
			items = append(items, l)
		}
	}
	return items, nil
}

func (t *tables) findWallet(owner db.ActorRef) (db.Wallet, bool) {
	for _, w := range t.wallets {
		if w.OwnerType != owner.Type {
			continue
		}
		if owner.Type == db.ActorTypePlatform || (w.OwnerID != nil && *w.OwnerID == owner.ID) {
			return w, true
		}
	}
	return db.Wallet{}, false
}

func (t *tables) GetWalletByOwner(ctx context.Context, owner db.ActorRef) (db.Wallet, error) {
	defer t.lock()()
	w, ok := t.findWallet(owner)
	if !ok {
		return db.Wallet{}, db.ErrRecordNotFound
	}
	return w, nil
}

func (t *tables) GetWalletByOwnerForUpdate(ctx context.Context, owner db.ActorRef) (db.Wallet, error) {
	return t.GetWalletByOwner(ctx, owner)
}

func (t *tables) CreateWallet(ctx context.Context, arg db.CreateWalletParams) (db.Wallet, error) {
	defer t.lock()()
	if _, ok := t.findWallet(arg.Owner); ok {
		return db.Wallet{}, db.ErrRecordNotFound
	}
	w := db.Wallet{
		ID:        t.id(),
		OwnerType: arg.Owner.Type,
		OwnerID:   arg.Owner.OwnerID(),
		Currency:  arg.Currency,
		CreatedAt: now(),
		UpdatedAt: now(),
	}
	t.wallets[w.ID] = w
	return w, nil
}

func (t *tables) AddWalletBalance(ctx context.Context, arg db.AddWalletBalanceParams) (db.Wallet, error) {
	defer t.lock()()
	w, ok := t.wallets[arg.ID]
	if !ok {
		return db.Wallet{}, db.ErrRecordNotFound
	}
	w.Balance += arg.Amount
	w.UpdatedAt = now()
	t.wallets[w.ID] = w
	return w, nil
}

func (t *tables) CreateWalletTransaction(ctx context.Context, arg db.CreateWalletTransactionParams) (db.WalletTransaction, error) {
	defer t.lock()()
	key := walletTxKey{walletID: arg.WalletID, reference: arg.Reference, txType: arg.Type}
	if _, ok := t.walletTxKeys[key]; ok {
		return db.WalletTransaction{}, uniqueViolation(db.UniqueWalletTransactionConstraint)
	}
	wt := db.WalletTransaction{
		ID:          t.id(),
		WalletID:    arg.WalletID,
		Amount:      arg.Amount,
		Type:        arg.Type,
		Reference:   arg.Reference,
		Description: arg.Description,
		Metadata:    arg.Metadata,
		CreatedAt:   now(),
	}
	t.walletTransactions[wt.ID] = wt
	t.walletTxKeys[key] = struct{}{}
	return wt, nil
}

func (t *tables) ListWalletTransactions(ctx context.Context, walletID int64) ([]db.WalletTransaction, error) {
	defer t.lock()()
	all := sortedValues(t.walletTransactions)
	items := []db.WalletTransaction{}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].WalletID == walletID {
			items = append(items, all[i])
		}
	}
	return items, nil
}

func (t *tables) GetSetting(ctx context.Context, key string) (db.Setting, error) {
	defer t.lock()()
	s, ok := t.settings[key]
	if !ok {
		return db.Setting{}, db.ErrRecordNotFound
	}
	return s, nil
}

func (t *tables) UpsertSetting(ctx context.Context, arg db.UpsertSettingParams) (db.Setting, error) {
	defer t.lock()()
	s := db.Setting{
		Key:       arg.Key,
		Value:     arg.Value,
		Type:      arg.Type,
		UpdatedAt: now(),
	}
	t.settings[s.Key] = s
	return s, nil
}

func (t *tables) ListSettings(ctx context.Context) ([]db.Setting, error) {
	defer t.lock()()
	items := make([]db.Setting, 0, len(t.settings))
	for _, s := range t.settings {
		items = append(items, s)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items, nil
}

func (t *tables) CreatePayment(ctx context.Context, arg db.CreatePaymentParams) (db.Payment, error) {
	defer t.lock()()
	for _, p := range t.payments {
		if p.Reference == arg.Reference {
			return db.Payment{}, uniqueViolation("payments_reference_key")
		}
	}
	p := db.Payment{
		ID:        t.id(),
		OrderID:   arg.OrderID,
		Reference: arg.Reference,
		Provider:  arg.Provider,
		Amount:    arg.Amount,
		Status:    arg.Status,
		CreatedAt: now(),
	}
	t.payments[p.ID] = p
	return p, nil
}

func (t *tables) GetPaymentByReference(ctx context.Context, reference string) (db.Payment, error) {
	defer t.lock()()
	for _, p := range t.payments {
		if p.Reference == reference {
			return p, nil
		}
	}
	return db.Payment{}, db.ErrRecordNotFound
}

func (t *tables) GetPaymentByReferenceForUpdate(ctx context.Context, reference string) (db.Payment, error) {
	return t.GetPaymentByReference(ctx, reference)
}

func (t *tables) ListStalePendingPayments(ctx context.Context, createdBefore time.Time) ([]db.Payment, error) {
	defer t.lock()()
	items := []db.Payment{}
	for _, p := range sortedValues(t.payments) {
		if p.Status == db.PaymentStatusPending && !p.CreatedAt.After(createdBefore) {
			items = append(items, p)
		}
	}
	return items, nil
}

func (t *tables) UpdatePaymentStatus(ctx context.Context, arg db.UpdatePaymentStatusParams) (db.Payment, error) {
	defer t.lock()()
	p, ok := t.payments[arg.ID]
	if !ok {
		return db.Payment{}, db.ErrRecordNotFound
	}
	p.Status = arg.Status
	if arg.Raw != nil {
		p.Raw = arg.Raw
	}
	p.ResolvedAt = arg.ResolvedAt
	t.payments[p.ID] = p
	return p, nil
}
