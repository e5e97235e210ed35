// Package reconcile turns captured-payment webhooks into finalized orders.
// It is the only writer of finalized orders for online payments and is safe
// under duplicate, concurrent and out-of-order delivery.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/dhstore/checkout/internal/db"
	"github.com/dhstore/checkout/internal/ledger"
	"github.com/dhstore/checkout/internal/types"
	logger "github.com/sirupsen/logrus"
)

type Outcome string

const (
	OutcomeProcessed       Outcome = "processed"
	OutcomeDuplicate       Outcome = "already_processed"
	OutcomeIgnored         Outcome = "ignored"
	OutcomeUncorrelated    Outcome = "uncorrelated"
	OutcomeIncompleteNotes Outcome = "incomplete_notes"
	OutcomePaymentConflict Outcome = "payment_conflict"
)

type Result struct {
	Outcome Outcome
	Order   *types.Order
}

type PendingOrderStore interface {
	FindPendingOrderByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*types.PendingOrder, error)
	FindPendingOrderByPaymentID(ctx context.Context, paymentID string) (*types.PendingOrder, error)
}

type Ledger interface {
	Latest(ctx context.Context, orderNumber string) (*types.PendingOrder, error)
	UpdateStatus(ctx context.Context, orderNumber string, upd ledger.StatusUpdate) bool
}

type action int

const (
	actionFromLedger action = iota + 1
	actionFromNotes
	actionSkip
)

// decide maps the correlation outcome to what the reconciler does.
func decide(hasLedgerEntry bool, notesComplete bool) action {
	switch {
	case hasLedgerEntry:
		return actionFromLedger
	case notesComplete:
		return actionFromNotes
	default:
		return actionSkip
	}
}

type Reconciler struct {
	orders    OrderStore
	pending   PendingOrderStore
	ledger    Ledger
	finalizer *Finalizer
	locks     *KeyedMutex
}

func NewReconciler(orders OrderStore, pending PendingOrderStore, l Ledger, finalizer *Finalizer) *Reconciler {
	return &Reconciler{
		orders:    orders,
		pending:   pending,
		ledger:    l,
		finalizer: finalizer,
		locks:     NewKeyedMutex(),
	}
}

// Handle processes one webhook delivery. A non-nil error means no safe decision
// could be made (storage failure) and the gateway should redeliver.
func (r *Reconciler) Handle(ctx context.Context, event *WebhookEvent) (Result, error) {
	if event.Event != EventPaymentCaptured {
		return Result{Outcome: OutcomeIgnored}, nil
	}

	payment := event.Payment()
	orderNumber := payment.Notes.Get(NoteOrderNumber)
	log := logger.WithFields(logger.Fields{
		"event_id":          event.DeliveryID,
		"payment_id":        payment.ID,
		"razorpay_order_id": payment.OrderID,
		"order_number":      orderNumber,
	})

	if orderNumber == "" {
		log.Warn("Captured payment without order_number in notes, needs manual review")
		return Result{Outcome: OutcomeUncorrelated}, nil
	}

	unlock := r.locks.Lock(orderNumber)
	defer unlock()

	existing, err := r.findFinalized(ctx, orderNumber, payment.ID)
	if err != nil {
		return Result{}, err
	}
	if existing != nil {
		return r.alreadyFinalized(ctx, log, existing, payment)
	}

	pending, err := r.correlate(ctx, log, orderNumber, payment)
	if err != nil {
		return Result{}, err
	}

	if pending != nil && pending.OrderNumber != orderNumber {
		// the finalized order must carry the ledger's number, check that one too
		existing, err := r.findFinalized(ctx, pending.OrderNumber, "")
		if err != nil {
			return Result{}, err
		}
		if existing != nil {
			return r.alreadyFinalized(ctx, log, existing, payment)
		}
	}

	var order *types.Order
	switch decide(pending != nil, NotesComplete(payment.Notes, payment)) {
	case actionFromLedger:
		order = r.finalizer.FromPending(pending, payment)
	case actionFromNotes:
		order = r.finalizer.FromNotes(orderNumber, payment.Notes, payment)
	default:
		log.Warn("No pending order and incomplete notes, needs manual reconciliation")
		return Result{Outcome: OutcomeIncompleteNotes}, nil
	}

	if err := r.finalizer.Finalize(ctx, order); err != nil {
		var dup *db.DuplicateOrderError
		if !errors.As(err, &dup) {
			return Result{}, fmt.Errorf("finalizing %s: %w", orderNumber, err)
		}
		log.Info("Order finalized by a concurrent delivery")
		existing, err := r.findFinalized(ctx, order.OrderNum, "")
		if err != nil {
			return Result{}, err
		}
		if existing == nil {
			return Result{Outcome: OutcomeDuplicate}, nil
		}
		return r.alreadyFinalized(ctx, log, existing, payment)
	}

	var ledgerErr error
	if pending != nil {
		ledgerErr = r.completeLedger(ctx, log, pending.OrderNumber, payment)
	}
	r.finalizer.Notify(order)
	if ledgerErr != nil {
		return Result{}, ledgerErr
	}

	return Result{Outcome: OutcomeProcessed, Order: order}, nil
}

// alreadyFinalized classifies an order found before writing. An order for the
// same payment is a duplicate delivery and its ledger entry is completed if an
// earlier delivery failed before doing so. Any other order means two payments
// were made against one order number.
func (r *Reconciler) alreadyFinalized(ctx context.Context, log *logger.Entry, existing *types.Order, payment Payment) (Result, error) {
	if !existing.HasPayment(payment.ID) {
		log.WithFields(logger.Fields{
			"finalized_order": existing.OrderNum,
			"invoice_number":  existing.InvoiceNum,
		}).Error("Order number already finalized for another payment, needs manual review")
		return Result{Outcome: OutcomePaymentConflict, Order: existing}, nil
	}

	log.Infof("Payment already processed as %s", existing.InvoiceNum)
	if err := r.completeLedger(ctx, log, existing.OrderNum, payment); err != nil {
		return Result{}, err
	}
	return Result{Outcome: OutcomeDuplicate, Order: existing}, nil
}

// completeLedger moves the ledger entry for a finalized order to completed.
// It fails only when a non-terminal entry could not be written, so the
// delivery is retried.
func (r *Reconciler) completeLedger(ctx context.Context, log *logger.Entry, orderNumber string, payment Payment) error {
	current, err := r.ledger.Latest(ctx, orderNumber)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pending order lookup: %w", err)
	}
	if current.Status.IsTerminal() {
		if current.Status != types.CompletedStatus {
			log.Warnf("Order finalized but pending order is %s", current.Status)
		}
		return nil
	}

	ok := r.ledger.UpdateStatus(ctx, orderNumber, ledger.StatusUpdate{
		Status:         types.CompletedStatus,
		GatewayOrderID: payment.OrderID,
		PaymentID:      payment.ID,
		Source:         ledger.SourceWebhook,
	})
	if !ok {
		return fmt.Errorf("completing pending order %s did not apply", orderNumber)
	}
	return nil
}

func (r *Reconciler) findFinalized(ctx context.Context, orderNumber string, paymentID string) (*types.Order, error) {
	existing, err := r.orders.FindOrderByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("duplicate check by order number: %w", err)
	}
	if existing != nil || paymentID == "" {
		return existing, nil
	}
	existing, err = r.orders.FindOrderByPaymentRemarks(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("duplicate check by payment id: %w", err)
	}
	return existing, nil
}

// correlate finds the ledger entry by order number, then by gateway order id,
// then by payment id.
func (r *Reconciler) correlate(ctx context.Context, log *logger.Entry, orderNumber string, payment Payment) (*types.PendingOrder, error) {
	pending, err := r.ledger.Latest(ctx, orderNumber)
	if err == nil {
		return pending, nil
	}
	if !errors.Is(err, ledger.ErrNotFound) {
		return nil, fmt.Errorf("pending order lookup: %w", err)
	}

	lookups := []struct {
		key  string
		find func(context.Context, string) (*types.PendingOrder, error)
	}{
		{payment.OrderID, r.pending.FindPendingOrderByGatewayOrderID},
		{payment.ID, r.pending.FindPendingOrderByPaymentID},
	}
	for _, lookup := range lookups {
		if lookup.key == "" {
			continue
		}
		pending, err := lookup.find(ctx, lookup.key)
		if err != nil {
			return nil, fmt.Errorf("pending order lookup by %s: %w", lookup.key, err)
		}
		if pending == nil {
			continue
		}
		if pending.OrderNumber != orderNumber {
			log.WithFields(logger.Fields{
				"ledger_number":  pending.OrderNumber,
				"correlation_id": lookup.key,
			}).Warn("Pending order matched by gateway id carries another order number")
		}
		return pending, nil
	}
	return nil, nil
}
