package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const EventPaymentCaptured = "payment.captured"

// Notes keys understood by the reconciler.
const (
	NoteOrderNumber     = "order_number"
	NoteCustomerName    = "customer_name"
	NoteCustomerEmail   = "customer_email"
	NoteCustomerPhone   = "customer_phone"
	NoteCustomerAddress = "customer_address"
	NoteCustomerCity    = "customer_city"
	NoteCustomerState   = "customer_state"
	NoteCustomerPincode = "customer_pincode"
	NoteItems           = "items"
	NoteQuantity        = "quantity"
	NoteAmount          = "amount"
)

type WebhookEvent struct {
	// DeliveryID comes from the X-Razorpay-Event-Id header, not the body.
	DeliveryID string `json:"-"`

	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity Payment `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type Payment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	Method           string `json:"method"`
	Email            string `json:"email"`
	Contact          string `json:"contact"`
	ErrorDescription string `json:"error_description"`
	Notes            Notes  `json:"notes"`
}

func (e *WebhookEvent) Payment() Payment {
	return e.Payload.Payment.Entity
}

// Notes is the gateway's free-form key/value bag. The gateway sends an empty
// array instead of an empty object and does not guarantee string values, so
// both are normalised here.
type Notes map[string]string

func (n *Notes) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*n = Notes{}
		return nil
	case trimmed[0] == '[':
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("notes: %w", err)
		}
		if len(list) > 0 {
			return fmt.Errorf("notes: unexpected non-empty array")
		}
		*n = Notes{}
		return nil
	}

	var raw map[string]any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("notes: %w", err)
	}
	out := make(Notes, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = strings.TrimSpace(val)
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			encoded, _ := json.Marshal(val)
			out[k] = string(encoded)
		}
	}
	*n = out
	return nil
}

func (n Notes) Get(key string) string {
	return n[key]
}
