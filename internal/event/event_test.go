package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()
	var got []string

	bus.Subscribe("first", func(ctx context.Context, e Event) error {
		got = append(got, "first:"+e.Type)
		return errors.New("ignored")
	})
	bus.Subscribe("second", func(ctx context.Context, e Event) error {
		got = append(got, "second:"+e.Type)
		return nil
	})

	bus.Publish(context.Background(), New(DeliveryTopic(1), EventTypeCourierAssigned, nil))

	require.Equal(t, []string{"first:courier.assigned", "second:courier.assigned"}, got)
}

func TestSSEServerFansOutByTopic(t *testing.T) {
	server := NewSSEServer()
	go server.Run()

	mine := make(chan Event, 1)
	other := make(chan Event, 1)
	server.Register(DeliveryTopic(7), mine)
	server.Register(DeliveryTopic(8), other)

	server.Broadcast(New(DeliveryTopic(7), EventTypeDeliveryStatusChanged, DeliveryStatusChanged{DeliveryID: 7}))

	select {
	case e := <-mine:
		require.Equal(t, EventTypeDeliveryStatusChanged, e.Type)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	select {
	case <-other:
		t.Fatal("event leaked to another topic")
	case <-time.After(50 * time.Millisecond):
	}

	server.Unregister(DeliveryTopic(7), mine)
	_, open := <-mine
	require.False(t, open)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaSinkWritesJSON(t *testing.T) {
	writer := &fakeWriter{}
	sink := NewKafkaSinkWithWriter(writer)

	e := New(DeliveryTopic(3), EventTypePaymentConfirmed, PaymentConfirmed{OrderID: 3, Reference: "PAY-1"})
	require.NoError(t, sink.Handle(context.Background(), e))
	require.Len(t, writer.msgs, 1)
	require.Equal(t, "delivery:3", string(writer.msgs[0].Key))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(writer.msgs[0].Value, &decoded))
	require.Equal(t, EventTypePaymentConfirmed, decoded["type"])
	require.Equal(t, e.ID, decoded["id"])

	writer.err = errors.New("broker down")
	require.Error(t, sink.Handle(context.Background(), e))
}
