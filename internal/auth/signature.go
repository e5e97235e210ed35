package auth

import (
	"bytes"
	"io"
	"net/http"

	"github.com/dhstore/checkout/internal/gateway"
	logger "github.com/sirupsen/logrus"
)

const (
	SignatureHeader = "X-Razorpay-Signature"
	maxWebhookBody  = 1 << 20
)

// SignatureMiddleware rejects webhook deliveries whose body was not signed
// with Secret. An empty Secret turns verification off.
type SignatureMiddleware struct {
	Secret string
}

func (m *SignatureMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Secret == "" {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "Could not read body", http.StatusBadRequest)
			return
		}
		r.Body.Close()

		signature := r.Header.Get(SignatureHeader)
		if signature == "" || !gateway.VerifySignature(body, signature, m.Secret) {
			logger.WithField("remote", r.RemoteAddr).Warn("Webhook signature mismatch")
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}
