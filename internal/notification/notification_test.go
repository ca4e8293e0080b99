package notification

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecipientTopic(t *testing.T) {
	require.Equal(t, "courier_12", Courier(12).Topic())
	require.Equal(t, "customer_3", Customer(3).Topic())
	require.Equal(t, "pharmacy:9", Pharmacy(9).String())
}

func TestBuild(t *testing.T) {
	payload := map[string]string{
		"delivery_id":     "42",
		"order_reference": "ORD-ABC",
		"waiting_fee":     "1 300 XOF",
	}

	n := Build(Courier(1), TypeDeliveryAutoCancelled, payload)
	require.Equal(t, "42", n.ReferenceID)
	require.Contains(t, n.Message, "did not show up")
	require.Contains(t, n.Message, "1 300 XOF")

	n = Build(Customer(5), TypeDeliveryAutoCancelled, payload)
	require.Contains(t, n.Message, "waiting time ran out")

	n = Build(Courier(1), "something.else", payload)
	require.Equal(t, "something.else", n.Title)
}

func TestBuildTruncatesReason(t *testing.T) {
	payload := map[string]string{
		"order_reference": "ORD-ABC",
		"reason":          strings.Repeat("x", 300),
	}

	n := Build(Customer(5), TypeDeliveryCancelled, payload)
	require.True(t, strings.HasSuffix(n.Message, "..."))
	require.Less(t, len(n.Message), 200)
}
