package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/dhstore/checkout/internal/db"
	"github.com/dhstore/checkout/internal/gateway"
	"github.com/dhstore/checkout/internal/shipping"
	"github.com/dhstore/checkout/internal/types"
	logger "github.com/sirupsen/logrus"
)

const invoiceAttempts = 3

type OrderStore interface {
	FindOrderByOrderNumber(ctx context.Context, orderNum string) (*types.Order, error)
	FindOrderByPaymentRemarks(ctx context.Context, paymentID string) (*types.Order, error)
	CreateOrder(ctx context.Context, order *types.Order) (int, error)
}

type InvoiceAllocator interface {
	NextInvoiceNumber(ctx context.Context) string
}

// Notifier is told about every new order. Implementations must not block.
type Notifier interface {
	NotifyOrderFinalized(order types.Order)
}

type Finalizer struct {
	orders   OrderStore
	invoices InvoiceAllocator
	rates    shipping.Rates
	notifier Notifier
}

func NewFinalizer(orders OrderStore, invoices InvoiceAllocator, rates shipping.Rates, notifier Notifier) *Finalizer {
	return &Finalizer{orders: orders, invoices: invoices, rates: rates, notifier: notifier}
}

// Finalize assigns an invoice number and writes order. A *db.DuplicateOrderError
// is returned untouched when the order number is already finalized.
func (f *Finalizer) Finalize(ctx context.Context, order *types.Order) error {
	for attempt := 1; attempt <= invoiceAttempts; attempt++ {
		order.InvoiceNum = f.invoices.NextInvoiceNumber(ctx)

		_, err := f.orders.CreateOrder(ctx, order)
		if err == nil {
			logger.WithFields(logger.Fields{
				"order_number":   order.OrderNum,
				"invoice_number": order.InvoiceNum,
				"total":          order.Total,
			}).Info("Order finalized")
			return nil
		}

		var dupInvoice *db.DuplicateInvoiceError
		if errors.As(err, &dupInvoice) {
			logger.Warnf("Invoice %s taken concurrently, attempt %d", dupInvoice.InvoiceNum, attempt)
			continue
		}
		return err
	}
	return fmt.Errorf("could not allocate a free invoice number for %s", order.OrderNum)
}

// Notify hands a finalized order to the notifier. Callers invoke it once the
// ledger reflects the order.
func (f *Finalizer) Notify(order *types.Order) {
	if f.notifier == nil || order == nil {
		return
	}
	f.notifier.NotifyOrderFinalized(*order)
}

// FromPending copies the ledger snapshot into a finalized order.
func (f *Finalizer) FromPending(p *types.PendingOrder, payment Payment) *types.Order {
	return &types.Order{
		OrderNum:        p.OrderNumber,
		Items:           append([]types.Item(nil), p.Items...),
		Customer:        p.Customer,
		Subtotal:        p.Total,
		ShippingCharges: p.ShippingCharges,
		Total:           round2(p.Total + p.ShippingCharges),
		PaymentMethod:   types.OnlinePayment,
		OrderType:       shipping.OrderTypeFor(p.Customer.State),
		Communication:   types.WebsiteCommunication,
		Remarks:         types.PaymentRemarks(payment.ID, payment.OrderID),
	}
}

// NotesComplete reports whether notes and the captured amount are enough to
// build an order without any other lookup.
func NotesComplete(notes Notes, payment Payment) bool {
	return notes.Get(NoteCustomerName) != "" &&
		notes.Get(NoteCustomerEmail) != "" &&
		notes.Get(NoteCustomerPhone) != "" &&
		capturedAmount(notes, payment) > 0
}

func capturedAmount(notes Notes, payment Payment) int64 {
	if payment.Amount > 0 {
		return payment.Amount
	}
	n, err := strconv.ParseInt(notes.Get(NoteAmount), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// FromNotes builds an order purely from the inline snapshot the mobile app puts
// into the gateway notes. The captured amount is the total; shipping is split
// out of it for the record.
func (f *Finalizer) FromNotes(orderNumber string, notes Notes, payment Payment) *types.Order {
	customer := types.CustomerInfo{
		Name:    notes.Get(NoteCustomerName),
		Email:   notes.Get(NoteCustomerEmail),
		Phone:   notes.Get(NoteCustomerPhone),
		Address: notes.Get(NoteCustomerAddress),
		City:    notes.Get(NoteCustomerCity),
		State:   notes.Get(NoteCustomerState),
		Pincode: notes.Get(NoteCustomerPincode),
	}
	total := gateway.FromMinorUnits(capturedAmount(notes, payment))
	shippingCharge := 0.0
	if customer.State != "" {
		shippingCharge = math.Min(f.rates.For(customer.State), total)
	}
	subtotal := round2(total - shippingCharge)

	quantity, err := strconv.Atoi(notes.Get(NoteQuantity))
	if err != nil || quantity < 1 {
		quantity = 1
	}
	name := notes.Get(NoteItems)
	if name == "" {
		name = "Mobile app order"
	}

	return &types.Order{
		OrderNum: orderNumber,
		Items: []types.Item{{
			Name:      name,
			Quantity:  quantity,
			UnitPrice: round2(subtotal / float64(quantity)),
		}},
		Customer:        customer,
		Subtotal:        subtotal,
		ShippingCharges: shippingCharge,
		Total:           total,
		PaymentMethod:   types.OnlinePayment,
		OrderType:       shipping.OrderTypeFor(customer.State),
		Communication:   types.MobileAppCommunication,
		Remarks:         types.PaymentRemarks(payment.ID, payment.OrderID),
	}
}

// ForCOD builds a cash-on-delivery order; it has no payment to reference.
func (f *Finalizer) ForCOD(orderNumber string, items []types.Item, customer types.CustomerInfo) *types.Order {
	subtotal := 0.0
	for _, item := range items {
		subtotal += item.UnitPrice * float64(item.Quantity)
	}
	subtotal = round2(subtotal)
	shippingCharge := f.rates.For(customer.State)

	return &types.Order{
		OrderNum:        orderNumber,
		Items:           append([]types.Item(nil), items...),
		Customer:        customer,
		Subtotal:        subtotal,
		ShippingCharges: shippingCharge,
		Total:           round2(subtotal + shippingCharge),
		PaymentMethod:   types.CODPayment,
		OrderType:       shipping.OrderTypeFor(customer.State),
		Communication:   types.WebsiteCommunication,
		Remarks:         "Cash on delivery",
	}
}

// ShippingFor exposes the configured rate for checkout quotes.
func (f *Finalizer) ShippingFor(state string) float64 {
	return f.rates.For(state)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
