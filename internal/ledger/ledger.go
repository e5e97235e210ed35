// Package ledger keeps the pending order records created before payment.
// Statuses only move forward: pending -> processing -> completed | failed | cancelled,
// and pending may go straight to failed or cancelled.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dhstore/checkout/internal/db"
	"github.com/dhstore/checkout/internal/shipping"
	"github.com/dhstore/checkout/internal/types"
	logger "github.com/sirupsen/logrus"
)

const maxUpdateAttempts = 3

type Store interface {
	CreatePendingOrder(ctx context.Context, order *types.PendingOrder) (int, error)
	FindPendingOrdersByNumber(ctx context.Context, orderNumber string) ([]types.PendingOrder, error)
	UpdatePendingOrder(ctx context.Context, id int, expected types.Status, upd types.PendingOrderUpdate) error
}

type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("pending order field %s is required", e.Field)
}

var ErrNotFound = errors.New("pending order not found")

type StatusUpdate struct {
	Status         types.Status
	GatewayOrderID string
	PaymentID      string
	FailureReason  string
	Source         Source
}

type Ledger struct {
	store Store
	now   func() time.Time
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// Create validates order and stores it with status pending. Validation happens
// before any storage call.
func (l *Ledger) Create(ctx context.Context, order *types.PendingOrder) (int, error) {
	if err := validate(order); err != nil {
		return 0, err
	}
	order.Status = types.PendingStatus
	order.OrderType = shipping.OrderTypeFor(order.Customer.State)
	if order.PaymentMethod == "" {
		order.PaymentMethod = types.OnlinePayment
	}

	id, err := l.store.CreatePendingOrder(ctx, order)
	if err != nil {
		return 0, fmt.Errorf("failed creating pending order %s: %w", order.OrderNumber, err)
	}
	logger.WithField("order_number", order.OrderNumber).Info("Pending order created")
	return id, nil
}

func validate(order *types.PendingOrder) error {
	if strings.TrimSpace(order.OrderNumber) == "" {
		return &ValidationError{Field: "orderNumber"}
	}
	if strings.TrimSpace(order.Customer.Email) == "" {
		return &ValidationError{Field: "customerInfo.email"}
	}
	if len(order.Items) == 0 {
		return &ValidationError{Field: "items"}
	}
	for _, item := range order.Items {
		if item.Quantity < 1 {
			return &ValidationError{Field: "items.quantity"}
		}
	}
	return nil
}

// Latest returns the most recently created record whose number equals orderNumber exactly.
func (l *Ledger) Latest(ctx context.Context, orderNumber string) (*types.PendingOrder, error) {
	records, err := l.store.FindPendingOrdersByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	// the store sorts newest first, but the filter may be looser than an exact match
	for i := range records {
		if records[i].OrderNumber == orderNumber {
			return &records[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, orderNumber)
}

// UpdateStatus merges upd into the latest record for orderNumber.
// It reports whether the record now reflects upd; errors are logged, not returned,
// so request handlers can carry on.
func (l *Ledger) UpdateStatus(ctx context.Context, orderNumber string, upd StatusUpdate) bool {
	log := logger.WithFields(logger.Fields{
		"order_number": orderNumber,
		"status":       upd.Status,
		"source":       upd.Source,
	})

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := l.Latest(ctx, orderNumber)
		if err != nil {
			log.Warnf("Could not load pending order: %s", err.Error())
			return false
		}

		if current.Status == upd.Status && current.Status.IsTerminal() {
			return true
		}
		if err := CheckTransition(current.Status, upd.Status, upd.Source); err != nil {
			log.Warnf("Rejected ledger write from %s: %s", current.Status, err.Error())
			return false
		}

		err = l.store.UpdatePendingOrder(ctx, current.ID, current.Status, l.buildUpdate(upd))
		if err == nil {
			log.Infof("Pending order moved %s -> %s", current.Status, upd.Status)
			return true
		}
		if !errors.Is(err, db.ErrStatusChanged) {
			log.Errorf("Failed updating pending order: %s", err.Error())
			return false
		}
		// someone else wrote first, re-check the rules against the new state
	}
	log.Warn("Pending order kept changing, giving up")
	return false
}

// UpdateGatewayCorrelation stores the gateway order id without touching the status.
func (l *Ledger) UpdateGatewayCorrelation(ctx context.Context, orderNumber string, gatewayOrderID string) bool {
	log := logger.WithFields(logger.Fields{"order_number": orderNumber, "razorpay_order_id": gatewayOrderID})

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		current, err := l.Latest(ctx, orderNumber)
		if err != nil {
			log.Warnf("Could not load pending order: %s", err.Error())
			return false
		}
		err = l.store.UpdatePendingOrder(ctx, current.ID, current.Status, types.PendingOrderUpdate{
			Status:          current.Status,
			RazorpayOrderID: &gatewayOrderID,
		})
		if err == nil {
			return true
		}
		if !errors.Is(err, db.ErrStatusChanged) {
			log.Errorf("Failed storing gateway order id: %s", err.Error())
			return false
		}
	}
	return false
}

func (l *Ledger) buildUpdate(upd StatusUpdate) types.PendingOrderUpdate {
	out := types.PendingOrderUpdate{Status: upd.Status}
	if upd.GatewayOrderID != "" {
		out.RazorpayOrderID = &upd.GatewayOrderID
	}
	if upd.PaymentID != "" {
		out.PaymentID = &upd.PaymentID
	}
	if upd.FailureReason != "" {
		out.FailureReason = &upd.FailureReason
	}
	if upd.Status == types.CompletedStatus {
		now := l.now()
		out.CompletedAt = &now
	}
	return out
}
