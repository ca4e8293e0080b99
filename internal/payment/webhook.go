package payment

import (
	"crypto/subtle"
	"encoding/json"

	"github.com/zpmep/hmacutil"
)

// WebhookPayload is the body Jeko posts when a payment request changes state.
type WebhookPayload struct {
	ID        string          `json:"id"`
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Amount    int64           `json:"amount"`
	Raw       json.RawMessage `json:"-"`
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	return hmacutil.HexStringEncode(hmacutil.SHA256, secret, string(body))
}

// VerifyWebhookSignature checks the signature header sent with a webhook body.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(secret, body)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// ParseWebhook decodes a verified webhook body.
func ParseWebhook(body []byte) (WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return WebhookPayload{}, err
	}
	payload.Raw = body
	return payload, nil
}
