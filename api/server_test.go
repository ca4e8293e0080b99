package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/pharmago/dispatch/internal/commission"
	"github.com/pharmago/dispatch/internal/db/memstore"
	"github.com/pharmago/dispatch/internal/delivery"
	"github.com/pharmago/dispatch/internal/dispatch"
	"github.com/pharmago/dispatch/internal/event"
	"github.com/pharmago/dispatch/internal/payment"
	"github.com/pharmago/dispatch/internal/settings"
	"github.com/pharmago/dispatch/internal/testutil"
	"github.com/pharmago/dispatch/internal/util"
	"github.com/pharmago/dispatch/internal/wallet"
	"github.com/pharmago/dispatch/internal/worker"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

type fakeDistributor struct {
	autoAssign []int64
}

func (d *fakeDistributor) DistributeTaskSendNotification(ctx context.Context, payload *worker.PayloadSendNotification, opts ...asynq.Option) error {
	return nil
}

func (d *fakeDistributor) DistributeTaskAutoAssignDelivery(ctx context.Context, payload *worker.PayloadAutoAssignDelivery, opts ...asynq.Option) error {
	d.autoAssign = append(d.autoAssign, payload.OrderID)
	return nil
}

func (d *fakeDistributor) DistributeTaskDistributeCommission(ctx context.Context, payload *worker.PayloadDistributeCommission, opts ...asynq.Option) error {
	return nil
}

type testServer struct {
	server      *Server
	store       *memstore.Store
	distributor *fakeDistributor
	notifier    *testutil.Notifier
	alerter     *testutil.Alerter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memstore.New()
	config := &util.Config{
		AllowedOrigins:    []string{"http://localhost:3000"},
		Currency:          "XOF",
		JekoWebhookSecret: testWebhookSecret,
	}
	ts := &testServer{
		store:       store,
		distributor: &fakeDistributor{},
		notifier:    &testutil.Notifier{},
		alerter:     &testutil.Alerter{},
	}

	settingsService := settings.NewService(store)
	bus := event.NewBus()
	dispatcher := dispatch.NewEngine(store, settingsService, ts.notifier, bus, ts.alerter)
	commissions := commission.NewEngine(store, settingsService, wallet.NewLedger(config.Currency), ts.notifier, bus, config.Currency)
	deliveries := delivery.NewService(store, settingsService, dispatcher, commissions, ts.notifier, bus, config.Currency)
	payments := payment.NewService(store, bus)

	ts.server = NewServer(config, store, dispatcher, deliveries, commissions, payments, settingsService, ts.distributor, event.NewSSEServer())
	return ts
}

// do sends a request and decodes the JSON response into out when out is not nil.
func (ts *testServer) do(t *testing.T, method, url string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	request, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	request.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	ts.server.router.ServeHTTP(recorder, request)

	if out != nil && recorder.Code < 300 {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), out), recorder.Body.String())
	}
	return recorder
}
