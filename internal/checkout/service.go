// Package checkout is the server side of the payment flow: it records checkout
// intent, opens a gateway order and turns client callbacks into ledger hints.
// It never creates finalized orders for online payments.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dhstore/checkout/internal/db"
	"github.com/dhstore/checkout/internal/gateway"
	"github.com/dhstore/checkout/internal/ledger"
	"github.com/dhstore/checkout/internal/reconcile"
	"github.com/dhstore/checkout/internal/types"
	logger "github.com/sirupsen/logrus"
)

const allocationAttempts = 3

var ErrGatewayOrder = errors.New("could not open gateway order")

type GatewayClient interface {
	CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error)
}

type OrderNumbers interface {
	NextOrderNumber(ctx context.Context) string
}

type Ledger interface {
	Create(ctx context.Context, order *types.PendingOrder) (int, error)
	UpdateStatus(ctx context.Context, orderNumber string, upd ledger.StatusUpdate) bool
	UpdateGatewayCorrelation(ctx context.Context, orderNumber string, gatewayOrderID string) bool
}

type Finalizer interface {
	ForCOD(orderNumber string, items []types.Item, customer types.CustomerInfo) *types.Order
	Finalize(ctx context.Context, order *types.Order) error
	Notify(order *types.Order)
	ShippingFor(state string) float64
}

type Request struct {
	Items    []types.Item       `json:"items"`
	Customer types.CustomerInfo `json:"customerInfo"`
}

// Session is what the payment widget needs to open.
type Session struct {
	OrderNumber     string            `json:"orderNumber"`
	PendingOrderID  int               `json:"pendingOrderId"`
	GatewayOrderID  string            `json:"razorpayOrderId"`
	KeyID           string            `json:"keyId"`
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	Subtotal        float64           `json:"subtotal"`
	ShippingCharges float64           `json:"shippingCharges"`
	Total           float64           `json:"total"`
	Notes           map[string]string `json:"notes"`
}

// PaymentDetails is the generic client update; empty fields are left alone.
type PaymentDetails struct {
	GatewayOrderID string       `json:"razorpayOrderId"`
	PaymentID      string       `json:"paymentId"`
	Status         types.Status `json:"status"`
	Reason         string       `json:"reason"`
}

type Service struct {
	numbers   OrderNumbers
	ledger    Ledger
	gateway   GatewayClient
	finalizer Finalizer
	keyID     string
	currency  string
}

func NewService(numbers OrderNumbers, l Ledger, gw GatewayClient, finalizer Finalizer, keyID string) *Service {
	return &Service{
		numbers:   numbers,
		ledger:    l,
		gateway:   gw,
		finalizer: finalizer,
		keyID:     keyID,
		currency:  "INR",
	}
}

func validateRequest(req *Request) error {
	if len(req.Items) == 0 {
		return &ledger.ValidationError{Field: "items"}
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return &ledger.ValidationError{Field: "items.quantity"}
		}
		if item.UnitPrice < 0 {
			return &ledger.ValidationError{Field: "items.unitPrice"}
		}
	}
	if strings.TrimSpace(req.Customer.Email) == "" {
		return &ledger.ValidationError{Field: "customerInfo.email"}
	}
	if strings.TrimSpace(req.Customer.Phone) == "" {
		return &ledger.ValidationError{Field: "customerInfo.phone"}
	}
	return nil
}

func subtotal(items []types.Item) float64 {
	sum := 0.0
	for _, item := range items {
		sum += item.UnitPrice * float64(item.Quantity)
	}
	return math.Round(sum*100) / 100
}

// StartOnline records the checkout intent and opens a gateway order for it.
func (s *Service) StartOnline(ctx context.Context, req Request) (*Session, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	sub := subtotal(req.Items)
	shippingCharge := s.finalizer.ShippingFor(req.Customer.State)
	total := math.Round((sub+shippingCharge)*100) / 100

	pending := &types.PendingOrder{
		Items:           req.Items,
		Total:           sub,
		ShippingCharges: shippingCharge,
		Customer:        req.Customer,
		PaymentMethod:   types.OnlinePayment,
	}
	id, err := s.createWithNewNumber(ctx, pending)
	if err != nil {
		return nil, err
	}
	orderNumber := pending.OrderNumber

	log := logger.WithField("order_number", orderNumber)

	// invoice numbers are allocated at finalization, only the order number travels in notes
	notes := map[string]string{
		reconcile.NoteOrderNumber:   orderNumber,
		reconcile.NoteCustomerName:  req.Customer.Name,
		reconcile.NoteCustomerEmail: req.Customer.Email,
		reconcile.NoteCustomerPhone: req.Customer.Phone,
	}
	order, err := s.gateway.CreateOrder(ctx, gateway.OrderRequest{
		Amount:   gateway.ToMinorUnits(total),
		Currency: s.currency,
		Receipt:  orderNumber,
		Notes:    notes,
	})
	if err != nil {
		log.Errorf("Gateway order creation failed: %s", err.Error())
		s.ledger.UpdateStatus(ctx, orderNumber, ledger.StatusUpdate{
			Status:        types.FailedStatus,
			FailureReason: "gateway order creation failed",
			Source:        ledger.SourceClient,
		})
		return nil, fmt.Errorf("%w: %w", ErrGatewayOrder, err)
	}

	if !s.ledger.UpdateGatewayCorrelation(ctx, orderNumber, order.ID) {
		log.Warnf("Could not store gateway order id %s, webhook will correlate by notes", order.ID)
	}

	return &Session{
		OrderNumber:     orderNumber,
		PendingOrderID:  id,
		GatewayOrderID:  order.ID,
		KeyID:           s.keyID,
		Amount:          order.Amount,
		Currency:        s.currency,
		Subtotal:        sub,
		ShippingCharges: shippingCharge,
		Total:           total,
		Notes:           notes,
	}, nil
}

// PlaceCOD writes a cash-on-delivery order straight away; there is no payment to wait for.
func (s *Service) PlaceCOD(ctx context.Context, req Request) (*types.Order, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	order := s.finalizer.ForCOD(s.numbers.NextOrderNumber(ctx), req.Items, req.Customer)
	if err := s.finalizer.Finalize(ctx, order); err != nil {
		return nil, fmt.Errorf("failed placing COD order %w", err)
	}
	s.finalizer.Notify(order)
	return order, nil
}

// createWithNewNumber allocates a number and stores order, allocating again
// when a concurrent checkout took the same number first.
func (s *Service) createWithNewNumber(ctx context.Context, order *types.PendingOrder) (int, error) {
	var err error
	for attempt := 1; attempt <= allocationAttempts; attempt++ {
		order.OrderNumber = s.numbers.NextOrderNumber(ctx)

		var id int
		id, err = s.ledger.Create(ctx, order)
		if err == nil {
			return id, nil
		}
		var dup *db.DuplicatePendingOrderError
		if !errors.As(err, &dup) {
			return 0, err
		}
		logger.Warnf("Order number %s taken concurrently, attempt %d", dup.OrderNumber, attempt)
	}
	return 0, err
}

// CreatePendingOrder stores a ledger entry built by the client. A number is
// allocated when the client did not bring one; a number the client brought
// is never replaced.
func (s *Service) CreatePendingOrder(ctx context.Context, order *types.PendingOrder) (int, error) {
	if order.OrderNumber == "" {
		return s.createWithNewNumber(ctx, order)
	}
	return s.ledger.Create(ctx, order)
}

func (s *Service) UpdatePendingOrderRazorpayID(ctx context.Context, orderNumber string, gatewayOrderID string) bool {
	return s.ledger.UpdateGatewayCorrelation(ctx, orderNumber, gatewayOrderID)
}

// ClientSuccess marks the order as awaiting webhook confirmation. The client
// cannot prove a capture so the order is not completed here.
func (s *Service) ClientSuccess(ctx context.Context, orderNumber string, paymentID string, gatewayOrderID string) bool {
	return s.ledger.UpdateStatus(ctx, orderNumber, ledger.StatusUpdate{
		Status:         types.ProcessingStatus,
		GatewayOrderID: gatewayOrderID,
		PaymentID:      paymentID,
		Source:         ledger.SourceClient,
	})
}

func (s *Service) ClientFailure(ctx context.Context, orderNumber string, paymentID string, reason string) bool {
	if reason == "" {
		reason = "payment failed"
	}
	return s.ledger.UpdateStatus(ctx, orderNumber, ledger.StatusUpdate{
		Status:        types.FailedStatus,
		PaymentID:     paymentID,
		FailureReason: reason,
		Source:        ledger.SourceClient,
	})
}

// ClientDismissed leaves the ledger as is, the payment may still be captured.
func (s *Service) ClientDismissed(ctx context.Context, orderNumber string) {
	logger.WithField("order_number", orderNumber).Info("Payment widget dismissed")
}

func (s *Service) ClientCancel(ctx context.Context, orderNumber string) bool {
	return s.ledger.UpdateStatus(ctx, orderNumber, ledger.StatusUpdate{
		Status:        types.CancelledStatus,
		FailureReason: "cancelled by customer",
		Source:        ledger.SourceClient,
	})
}

// UpdatePaymentDetails maps a generic client update onto the hints above.
func (s *Service) UpdatePaymentDetails(ctx context.Context, orderNumber string, details PaymentDetails) bool {
	switch details.Status {
	case "", types.PendingStatus:
		if details.GatewayOrderID == "" {
			return false
		}
		return s.ledger.UpdateGatewayCorrelation(ctx, orderNumber, details.GatewayOrderID)
	case types.ProcessingStatus, types.CompletedStatus:
		return s.ClientSuccess(ctx, orderNumber, details.PaymentID, details.GatewayOrderID)
	case types.FailedStatus:
		return s.ClientFailure(ctx, orderNumber, details.PaymentID, details.Reason)
	case types.CancelledStatus:
		return s.ClientCancel(ctx, orderNumber)
	}
	logger.WithField("order_number", orderNumber).Warnf("Unknown payment status %q", details.Status)
	return false
}
