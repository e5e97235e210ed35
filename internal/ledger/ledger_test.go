package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dhstore/checkout/internal/db"
	"github.com/dhstore/checkout/internal/memstore"
	"github.com/dhstore/checkout/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(number string) *types.PendingOrder {
	return &types.PendingOrder{
		OrderNumber: number,
		Items:       []types.Item{{ID: "1", Name: "Soap", UnitPrice: 499, Quantity: 1, SKU: "SOAP-1"}},
		Total:       499,
		Customer:    types.CustomerInfo{Name: "Anu", Email: "anu@example.com", Phone: "9000000000", State: "Tamil Nadu"},
	}
}

// looseStore answers by prefix, the way a sloppy filter would, and also
// returns legacy rows that share a number with a newer record.
type looseStore struct {
	*memstore.Store
	legacy     []types.PendingOrder
	updatedIDs []int
}

func (s *looseStore) FindPendingOrdersByNumber(ctx context.Context, orderNumber string) ([]types.PendingOrder, error) {
	all, err := s.Store.FindPendingOrdersByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	for _, p := range s.Store.PendingOrders() {
		if p.OrderNumber != orderNumber && len(p.OrderNumber) > 8 && p.OrderNumber[:8] == orderNumber[:8] {
			all = append([]types.PendingOrder{p}, all...)
		}
	}
	return append(all, s.legacy...), nil
}

func (s *looseStore) UpdatePendingOrder(ctx context.Context, id int, expected types.Status, upd types.PendingOrderUpdate) error {
	s.updatedIDs = append(s.updatedIDs, id)
	return s.Store.UpdatePendingOrder(ctx, id, expected, upd)
}

func TestCreateValidation(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*types.PendingOrder)
		field  string
	}{
		{"missing order number", func(o *types.PendingOrder) { o.OrderNumber = " " }, "orderNumber"},
		{"missing email", func(o *types.PendingOrder) { o.Customer.Email = "" }, "customerInfo.email"},
		{"no items", func(o *types.PendingOrder) { o.Items = nil }, "items"},
		{"zero quantity", func(o *types.PendingOrder) { o.Items[0].Quantity = 0 }, "items.quantity"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := memstore.New()
			l := NewLedger(store)
			order := newOrder("DH-ECOM-0751")
			tc.mutate(order)

			_, err := l.Create(context.Background(), order)
			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tc.field, validationErr.Field)
			assert.Empty(t, store.PendingOrders(), "nothing may be stored on validation failure")
		})
	}
}

func TestCreateDerivesOrderType(t *testing.T) {
	store := memstore.New()
	l := NewLedger(store)

	_, err := l.Create(context.Background(), newOrder("DH-ECOM-0751"))
	require.NoError(t, err)

	other := newOrder("DH-ECOM-0752")
	other.Customer.State = "Kerala"
	_, err = l.Create(context.Background(), other)
	require.NoError(t, err)

	records := store.PendingOrders()
	assert.Equal(t, types.TamilNaduOrder, records[0].OrderType)
	assert.Equal(t, types.OtherStateOrder, records[1].OrderType)
	assert.Equal(t, types.PendingStatus, records[1].Status)
	assert.Equal(t, types.OnlinePayment, records[1].PaymentMethod)
}

func TestUpdateStatusExactLatestMatch(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	store := &looseStore{Store: memstore.New()}
	l := NewLedger(store)

	older := newOrder("DH-ECOM-0751")
	older.ID = 99
	older.Status = types.PendingStatus
	older.CreatedAt = base
	store.legacy = append(store.legacy, *older)

	newer := newOrder("DH-ECOM-0751")
	newer.CreatedAt = base.Add(time.Minute)
	_, err := store.CreatePendingOrder(ctx, newer)
	require.NoError(t, err)

	lookalike := newOrder("DH-ECOM-07510")
	lookalike.CreatedAt = base.Add(time.Hour)
	_, err = store.CreatePendingOrder(ctx, lookalike)
	require.NoError(t, err)

	ok := l.UpdateStatus(ctx, "DH-ECOM-0751", StatusUpdate{Status: types.ProcessingStatus, PaymentID: "pay_1", Source: SourceClient})
	require.True(t, ok)
	assert.Equal(t, []int{newer.ID}, store.updatedIDs)

	records := store.PendingOrders()
	assert.Equal(t, types.ProcessingStatus, records[0].Status)
	assert.Equal(t, "pay_1", *records[0].PaymentID)
	assert.Equal(t, types.PendingStatus, records[1].Status)
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	l := NewLedger(memstore.New())
	assert.False(t, l.UpdateStatus(context.Background(), "DH-ECOM-9999", StatusUpdate{Status: types.FailedStatus, Source: SourceClient}))
}

func TestTerminalStateProtection(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	l := NewLedger(store)
	_, err := l.Create(ctx, newOrder("DH-ECOM-0751"))
	require.NoError(t, err)

	require.True(t, l.UpdateStatus(ctx, "DH-ECOM-0751", StatusUpdate{Status: types.CompletedStatus, PaymentID: "pay_1", Source: SourceWebhook}))

	assert.False(t, l.UpdateStatus(ctx, "DH-ECOM-0751", StatusUpdate{Status: types.CancelledStatus, Source: SourceClient}))
	assert.False(t, l.UpdateStatus(ctx, "DH-ECOM-0751", StatusUpdate{Status: types.ProcessingStatus, Source: SourceClient}))
	assert.False(t, l.UpdateStatus(ctx, "DH-ECOM-0751", StatusUpdate{Status: types.FailedStatus, FailureReason: "order expired", Source: SourceSweeper}))
	// repeating the terminal state is a no-op success
	assert.True(t, l.UpdateStatus(ctx, "DH-ECOM-0751", StatusUpdate{Status: types.CompletedStatus, Source: SourceWebhook}))

	record := store.PendingOrders()[0]
	assert.Equal(t, types.CompletedStatus, record.Status)
	assert.NotNil(t, record.CompletedAt)
	assert.Nil(t, record.FailureReason)
}

func TestCheckTransition(t *testing.T) {
	testCases := []struct {
		from, to types.Status
		source   Source
		wantErr  error
	}{
		{types.PendingStatus, types.ProcessingStatus, SourceClient, nil},
		{types.PendingStatus, types.CompletedStatus, SourceWebhook, nil},
		{types.ProcessingStatus, types.CompletedStatus, SourceWebhook, nil},
		{types.PendingStatus, types.FailedStatus, SourceClient, nil},
		{types.PendingStatus, types.CancelledStatus, SourceClient, nil},
		{types.ProcessingStatus, types.CancelledStatus, SourceClient, nil},
		{types.PendingStatus, types.FailedStatus, SourceSweeper, nil},
		{types.PendingStatus, types.PendingStatus, SourceClient, nil},
		{types.PendingStatus, types.CompletedStatus, SourceClient, ErrSourceNotAllowed},
		{types.ProcessingStatus, types.FailedStatus, SourceSweeper, ErrSourceNotAllowed},
		{types.PendingStatus, types.CancelledStatus, SourceWebhook, ErrSourceNotAllowed},
		{types.ProcessingStatus, types.PendingStatus, SourceWebhook, ErrInvalidTransition},
		{types.PendingStatus, types.Status("refunded"), SourceWebhook, ErrInvalidTransition},
		{types.CompletedStatus, types.CancelledStatus, SourceClient, ErrTerminal},
		{types.FailedStatus, types.CompletedStatus, SourceWebhook, ErrTerminal},
		{types.CancelledStatus, types.ProcessingStatus, SourceClient, ErrTerminal},
	}
	for _, tc := range testCases {
		t.Run(string(tc.from)+"->"+string(tc.to)+"/"+string(tc.source), func(t *testing.T) {
			err := CheckTransition(tc.from, tc.to, tc.source)
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

// racingStore flips the record to completed right before the first write lands.
type racingStore struct {
	*memstore.Store
	raced bool
}

func (s *racingStore) UpdatePendingOrder(ctx context.Context, id int, expected types.Status, upd types.PendingOrderUpdate) error {
	if !s.raced {
		s.raced = true
		if err := s.Store.UpdatePendingOrder(ctx, id, expected, types.PendingOrderUpdate{Status: types.CompletedStatus}); err != nil {
			return err
		}
	}
	return s.Store.UpdatePendingOrder(ctx, id, expected, upd)
}

func TestUpdateStatusRechecksAfterConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	store := &racingStore{Store: memstore.New()}
	l := NewLedger(store)
	_, err := l.Create(ctx, newOrder("DH-ECOM-0751"))
	require.NoError(t, err)

	assert.False(t, l.UpdateStatus(ctx, "DH-ECOM-0751", StatusUpdate{Status: types.CancelledStatus, Source: SourceClient}))
	assert.Equal(t, types.CompletedStatus, store.PendingOrders()[0].Status)
}

func TestUpdateGatewayCorrelation(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	l := NewLedger(store)
	_, err := l.Create(ctx, newOrder("DH-ECOM-0751"))
	require.NoError(t, err)

	assert.True(t, l.UpdateGatewayCorrelation(ctx, "DH-ECOM-0751", "order_abc"))
	assert.False(t, l.UpdateGatewayCorrelation(ctx, "DH-ECOM-0999", "order_abc"))

	record := store.PendingOrders()[0]
	assert.Equal(t, "order_abc", *record.RazorpayOrderID)
	assert.Equal(t, types.PendingStatus, record.Status)
}

type failingStore struct {
	*memstore.Store
}

func (s *failingStore) UpdatePendingOrder(ctx context.Context, id int, expected types.Status, upd types.PendingOrderUpdate) error {
	return &db.PendingOrderNotFoundError{ID: id}
}

func TestUpdateStatusStoreFailureReturnsFalse(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: memstore.New()}
	l := NewLedger(store)
	_, err := l.Create(ctx, newOrder("DH-ECOM-0751"))
	require.NoError(t, err)

	assert.False(t, l.UpdateStatus(ctx, "DH-ECOM-0751", StatusUpdate{Status: types.FailedStatus, Source: SourceClient}))
	assert.False(t, l.UpdateGatewayCorrelation(ctx, "DH-ECOM-0751", "order_abc"))
}
