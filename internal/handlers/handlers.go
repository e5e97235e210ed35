package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dhstore/checkout/internal/checkout"
	"github.com/dhstore/checkout/internal/db"
	"github.com/dhstore/checkout/internal/ledger"
	"github.com/dhstore/checkout/internal/reconcile"
	"github.com/dhstore/checkout/internal/types"
	"github.com/dhstore/checkout/internal/validate"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
)

const (
	EventIDHeader = "X-Razorpay-Event-Id"
	maxBodyBytes  = 1 << 20
)

type Reconciler interface {
	Handle(ctx context.Context, event *reconcile.WebhookEvent) (reconcile.Result, error)
}

type Checkout interface {
	StartOnline(ctx context.Context, req checkout.Request) (*checkout.Session, error)
	PlaceCOD(ctx context.Context, req checkout.Request) (*types.Order, error)
	CreatePendingOrder(ctx context.Context, order *types.PendingOrder) (int, error)
	UpdatePendingOrderRazorpayID(ctx context.Context, orderNumber string, gatewayOrderID string) bool
	UpdatePaymentDetails(ctx context.Context, orderNumber string, details checkout.PaymentDetails) bool
	ClientDismissed(ctx context.Context, orderNumber string)
	ClientCancel(ctx context.Context, orderNumber string) bool
}

type HandlerSet struct {
	reconciler  Reconciler
	checkout    Checkout
	orderPrefix string
}

func NewHandlerSet(reconciler Reconciler, c Checkout, orderPrefix string) *HandlerSet {
	return &HandlerSet{
		reconciler:  reconciler,
		checkout:    c,
		orderPrefix: orderPrefix,
	}
}

func readBody(w http.ResponseWriter, req *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Body too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	response, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		logger.Errorf("Failed writing response: %s", err.Error())
	}
}

func (h *HandlerSet) orderNumber(w http.ResponseWriter, req *http.Request) (string, bool) {
	orderNumber := chi.URLParam(req, "orderNumber")
	if !validate.ValidateOrderNumber(h.orderPrefix, orderNumber) {
		http.Error(w, "Invalid order number", http.StatusUnprocessableEntity)
		return "", false
	}
	return orderNumber, true
}

func handleValidationError(w http.ResponseWriter, err error) bool {
	var validationErr *ledger.ValidationError
	if errors.As(err, &validationErr) {
		http.Error(w, validationErr.Error(), http.StatusBadRequest)
		return true
	}
	return false
}

// HandleRazorpayWebhook acknowledges every delivery it could decide on. Only a
// storage failure answers 500 so that the gateway redelivers.
func (h *HandlerSet) HandleRazorpayWebhook(w http.ResponseWriter, req *http.Request) {
	eventID := req.Header.Get(EventIDHeader)
	if eventID == "" {
		eventID = uuid.NewString()
	}
	log := logger.WithField("event_id", eventID)

	body, ok := readBody(w, req)
	if !ok {
		return
	}

	var event reconcile.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Warnf("Unparseable webhook body: %s", err.Error())
		http.Error(w, "Could not parse body", http.StatusBadRequest)
		return
	}
	event.DeliveryID = eventID

	// a client hanging up must not abort a write halfway through reconciliation
	result, err := h.reconciler.Handle(context.WithoutCancel(req.Context()), &event)
	if err != nil {
		log.Errorf("Webhook not reconciled, gateway will retry: %s", err.Error())
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	log.WithField("outcome", result.Outcome).Info("Webhook handled")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "outcome": string(result.Outcome)})
}

func (h *HandlerSet) parseCheckout(w http.ResponseWriter, req *http.Request) (checkout.Request, bool) {
	var data checkout.Request

	body, ok := readBody(w, req)
	if !ok {
		return data, false
	}
	if err := json.Unmarshal(body, &data); err != nil {
		http.Error(w, "Could not parse body", http.StatusBadRequest)
		return data, false
	}
	return data, true
}

func (h *HandlerSet) HandleStartCheckout(w http.ResponseWriter, req *http.Request) {
	data, ok := h.parseCheckout(w, req)
	if !ok {
		return
	}

	session, err := h.checkout.StartOnline(req.Context(), data)
	if err != nil {
		if handleValidationError(w, err) {
			return
		}
		if errors.Is(err, checkout.ErrGatewayOrder) {
			http.Error(w, "Payment gateway unavailable", http.StatusBadGateway)
			return
		}
		logger.Error(err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *HandlerSet) HandlePlaceCOD(w http.ResponseWriter, req *http.Request) {
	data, ok := h.parseCheckout(w, req)
	if !ok {
		return
	}

	order, err := h.checkout.PlaceCOD(req.Context(), data)
	if err != nil {
		if handleValidationError(w, err) {
			return
		}
		logger.Error(err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *HandlerSet) HandleCreatePendingOrder(w http.ResponseWriter, req *http.Request) {
	body, ok := readBody(w, req)
	if !ok {
		return
	}

	var order types.PendingOrder
	if err := json.Unmarshal(body, &order); err != nil {
		http.Error(w, "Could not parse body", http.StatusBadRequest)
		return
	}

	id, err := h.checkout.CreatePendingOrder(req.Context(), &order)
	if err != nil {
		if handleValidationError(w, err) {
			return
		}
		var dup *db.DuplicatePendingOrderError
		if errors.As(err, &dup) {
			http.Error(w, "Order number already in use", http.StatusConflict)
			return
		}
		logger.Error(err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "orderNumber": order.OrderNumber})
}

func (h *HandlerSet) HandleUpdateRazorpayID(w http.ResponseWriter, req *http.Request) {
	orderNumber, ok := h.orderNumber(w, req)
	if !ok {
		return
	}
	body, ok := readBody(w, req)
	if !ok {
		return
	}

	var data struct {
		RazorpayOrderID string `json:"razorpayOrderId"`
	}
	if err := json.Unmarshal(body, &data); err != nil || data.RazorpayOrderID == "" {
		http.Error(w, "Could not parse body", http.StatusBadRequest)
		return
	}

	updated := h.checkout.UpdatePendingOrderRazorpayID(req.Context(), orderNumber, data.RazorpayOrderID)
	writeJSON(w, http.StatusOK, map[string]bool{"updated": updated})
}

func (h *HandlerSet) HandleUpdatePaymentDetails(w http.ResponseWriter, req *http.Request) {
	orderNumber, ok := h.orderNumber(w, req)
	if !ok {
		return
	}
	body, ok := readBody(w, req)
	if !ok {
		return
	}

	var details checkout.PaymentDetails
	if err := json.Unmarshal(body, &details); err != nil {
		http.Error(w, "Could not parse body", http.StatusBadRequest)
		return
	}

	updated := h.checkout.UpdatePaymentDetails(req.Context(), orderNumber, details)
	writeJSON(w, http.StatusOK, map[string]bool{"updated": updated})
}

func (h *HandlerSet) HandleDismissed(w http.ResponseWriter, req *http.Request) {
	orderNumber, ok := h.orderNumber(w, req)
	if !ok {
		return
	}
	h.checkout.ClientDismissed(req.Context(), orderNumber)
	w.WriteHeader(http.StatusNoContent)
}

func (h *HandlerSet) HandleCancel(w http.ResponseWriter, req *http.Request) {
	orderNumber, ok := h.orderNumber(w, req)
	if !ok {
		return
	}
	updated := h.checkout.ClientCancel(req.Context(), orderNumber)
	writeJSON(w, http.StatusOK, map[string]bool{"updated": updated})
}
