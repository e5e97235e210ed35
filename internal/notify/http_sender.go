package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPSender posts templated order messages to SMS and WhatsApp provider endpoints.
type HTTPSender struct {
	client      *resty.Client
	smsURL      string
	whatsAppURL string
}

type message struct {
	To          string  `json:"to"`
	Template    string  `json:"template"`
	OrderNumber string  `json:"order_number"`
	Amount      float64 `json:"amount"`
	Text        string  `json:"text"`
}

func NewHTTPSender(smsURL string, whatsAppURL string, apiKey string, timeout time.Duration) *HTTPSender {
	c := resty.New().
		SetTimeout(timeout).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")
	return &HTTPSender{client: c, smsURL: smsURL, whatsAppURL: whatsAppURL}
}

func (s *HTTPSender) SendOrderSMS(ctx context.Context, phone string, orderNumber string, amount float64) error {
	return s.post(ctx, s.smsURL, "order_confirmation_sms", phone, orderNumber, amount)
}

func (s *HTTPSender) SendOrderWhatsApp(ctx context.Context, phone string, orderNumber string, amount float64) error {
	return s.post(ctx, s.whatsAppURL, "order_confirmation_whatsapp", phone, orderNumber, amount)
}

func (s *HTTPSender) post(ctx context.Context, url string, template string, phone string, orderNumber string, amount float64) error {
	if url == "" {
		return fmt.Errorf("%s endpoint not configured", template)
	}
	body := message{
		To:          phone,
		Template:    template,
		OrderNumber: orderNumber,
		Amount:      amount,
		Text:        fmt.Sprintf("Thank you! Your order %s for Rs. %.2f is confirmed.", orderNumber, amount),
	}
	response, err := s.client.R().SetContext(ctx).SetBody(body).Post(url)
	if err != nil {
		return fmt.Errorf("provider request failed %w", err)
	}
	if response.IsError() {
		return fmt.Errorf("provider returned status %d", response.StatusCode())
	}
	return nil
}
