// Package memstore is an in-process implementation of the storage used by
// the ledger, the reconciler and the sweeper. It enforces the same unique
// constraints as the postgres schema and is used for tests and local runs.
package memstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dhstore/checkout/internal/db"
	"github.com/dhstore/checkout/internal/types"
)

type Store struct {
	mu      sync.Mutex
	pending []types.PendingOrder
	orders  []types.Order
	now     func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

// SetClock replaces the clock used for created_at / updated_at.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) CreatePendingOrder(ctx context.Context, order *types.PendingOrder) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.pending {
		if p.OrderNumber == order.OrderNumber {
			return 0, &db.DuplicatePendingOrderError{OrderNumber: order.OrderNumber}
		}
	}
	order.ID = len(s.pending) + 1
	if order.CreatedAt.IsZero() {
		order.CreatedAt = s.now()
	}
	order.UpdatedAt = order.CreatedAt
	s.pending = append(s.pending, clonePending(*order))
	return order.ID, nil
}

func (s *Store) FindPendingOrdersByNumber(ctx context.Context, orderNumber string) ([]types.PendingOrder, error) {
	return s.filterPending(ctx, func(p *types.PendingOrder) bool { return p.OrderNumber == orderNumber })
}

func (s *Store) FindPendingOrderByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*types.PendingOrder, error) {
	return s.firstPending(ctx, func(p *types.PendingOrder) bool {
		return p.RazorpayOrderID != nil && *p.RazorpayOrderID == gatewayOrderID
	})
}

func (s *Store) FindPendingOrderByPaymentID(ctx context.Context, paymentID string) (*types.PendingOrder, error) {
	return s.firstPending(ctx, func(p *types.PendingOrder) bool {
		return p.PaymentID != nil && *p.PaymentID == paymentID
	})
}

func (s *Store) FindStalePendingOrders(ctx context.Context, before time.Time, startID int, limit int) ([]types.PendingOrder, error) {
	records, err := s.filterPending(ctx, func(p *types.PendingOrder) bool {
		return p.ID > startID && p.Status == types.PendingStatus && p.CreatedAt.Before(before)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *Store) UpdatePendingOrder(ctx context.Context, id int, expected types.Status, upd types.PendingOrderUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if id < 1 || id > len(s.pending) {
		return &db.PendingOrderNotFoundError{ID: id}
	}
	p := &s.pending[id-1]
	if p.Status != expected {
		return db.ErrStatusChanged
	}
	p.Status = upd.Status
	if upd.RazorpayOrderID != nil {
		p.RazorpayOrderID = strPtr(*upd.RazorpayOrderID)
	}
	if upd.PaymentID != nil {
		p.PaymentID = strPtr(*upd.PaymentID)
	}
	if upd.FailureReason != nil {
		p.FailureReason = strPtr(*upd.FailureReason)
	}
	if upd.CompletedAt != nil {
		t := *upd.CompletedAt
		p.CompletedAt = &t
	}
	p.UpdatedAt = s.now()
	return nil
}

func (s *Store) CreateOrder(ctx context.Context, order *types.Order) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.OrderNum == order.OrderNum {
			return 0, &db.DuplicateOrderError{OrderNum: order.OrderNum}
		}
		if o.InvoiceNum == order.InvoiceNum {
			return 0, &db.DuplicateInvoiceError{InvoiceNum: order.InvoiceNum}
		}
	}
	order.ID = len(s.orders) + 1
	order.CreatedAt = s.now()
	stored := *order
	stored.Items = append([]types.Item(nil), order.Items...)
	s.orders = append(s.orders, stored)
	return order.ID, nil
}

func (s *Store) FindOrderByOrderNumber(ctx context.Context, orderNum string) (*types.Order, error) {
	return s.firstOrder(ctx, func(o *types.Order) bool { return o.OrderNum == orderNum })
}

func (s *Store) FindOrderByPaymentRemarks(ctx context.Context, paymentID string) (*types.Order, error) {
	return s.firstOrder(ctx, func(o *types.Order) bool { return o.HasPayment(paymentID) })
}

func (s *Store) MaxOrderSequence(ctx context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	best := 0
	for _, o := range s.orders {
		best = max(best, suffix(prefix, o.OrderNum))
	}
	return best, ctx.Err()
}

func (s *Store) MaxPendingOrderSequence(ctx context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	best := 0
	for _, p := range s.pending {
		best = max(best, suffix(prefix, p.OrderNumber))
	}
	return best, ctx.Err()
}

func (s *Store) MaxInvoiceSequence(ctx context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	best := 0
	for _, o := range s.orders {
		best = max(best, suffix(prefix, o.InvoiceNum))
	}
	return best, ctx.Err()
}

// Orders returns a copy of every finalized order.
func (s *Store) Orders() []types.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Order(nil), s.orders...)
}

// PendingOrders returns a copy of every ledger record in insertion order.
func (s *Store) PendingOrders() []types.PendingOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.PendingOrder, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, clonePending(p))
	}
	return out
}

func (s *Store) filterPending(ctx context.Context, match func(*types.PendingOrder) bool) ([]types.PendingOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.PendingOrder
	for i := range s.pending {
		if match(&s.pending[i]) {
			out = append(out, clonePending(s.pending[i]))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) firstPending(ctx context.Context, match func(*types.PendingOrder) bool) (*types.PendingOrder, error) {
	records, err := s.filterPending(ctx, match)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return &records[0], nil
}

func (s *Store) firstOrder(ctx context.Context, match func(*types.Order) bool) (*types.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if match(&s.orders[i]) {
			o := s.orders[i]
			return &o, nil
		}
	}
	return nil, nil
}

func suffix(prefix string, value string) int {
	if !strings.HasPrefix(value, prefix) {
		return 0
	}
	n, err := strconv.Atoi(value[len(prefix):])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func clonePending(p types.PendingOrder) types.PendingOrder {
	p.Items = append([]types.Item(nil), p.Items...)
	if p.RazorpayOrderID != nil {
		p.RazorpayOrderID = strPtr(*p.RazorpayOrderID)
	}
	if p.PaymentID != nil {
		p.PaymentID = strPtr(*p.PaymentID)
	}
	if p.FailureReason != nil {
		p.FailureReason = strPtr(*p.FailureReason)
	}
	return p
}

func strPtr(s string) *string {
	return &s
}
