package checkout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dhstore/checkout/internal/checkout/mocks"
	"github.com/dhstore/checkout/internal/db"
	"github.com/dhstore/checkout/internal/gateway"
	"github.com/dhstore/checkout/internal/ledger"
	"github.com/dhstore/checkout/internal/memstore"
	"github.com/dhstore/checkout/internal/reconcile"
	"github.com/dhstore/checkout/internal/sequence"
	"github.com/dhstore/checkout/internal/shipping"
	"github.com/dhstore/checkout/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type env struct {
	store   *memstore.Store
	ledger  *ledger.Ledger
	gw      *mocks.GatewayClient
	service *Service
}

func newEnv(t *testing.T) *env {
	store := memstore.New()
	l := ledger.NewLedger(store)
	allocator := sequence.NewAllocator(store, sequence.Config{OrderPrefix: "DH-ECOM-", InvoicePrefix: "DH-INV-", Width: 4})
	finalizer := reconcile.NewFinalizer(store, allocator, shipping.Rates{TamilNadu: 50, OtherState: 100}, nil)
	gw := mocks.NewGatewayClient(t)
	return &env{
		store:   store,
		ledger:  l,
		gw:      gw,
		service: NewService(allocator, l, gw, finalizer, "rzp_test_key"),
	}
}

func request(state string) Request {
	return Request{
		Items: []types.Item{{ID: "1", Name: "Herbal soap", UnitPrice: 249.5, Quantity: 2}},
		Customer: types.CustomerInfo{Name: "Anu", Email: "anu@example.com", Phone: "9000000000",
			Address: "1 Main Rd", City: "Chennai", State: state, Pincode: "600001"},
	}
}

func TestStartOnline(t *testing.T) {
	e := newEnv(t)

	e.gw.EXPECT().CreateOrder(mock.Anything, mock.MatchedBy(func(req gateway.OrderRequest) bool {
		return req.Amount == 54900 && req.Receipt == "DH-ECOM-0001" &&
			req.Notes[reconcile.NoteOrderNumber] == "DH-ECOM-0001"
	})).Return(&gateway.Order{ID: "order_1", Amount: 54900, Status: "created"}, nil)

	session, err := e.service.StartOnline(context.Background(), request("Tamil Nadu"))
	require.NoError(t, err)
	assert.Equal(t, "DH-ECOM-0001", session.OrderNumber)
	assert.Equal(t, "order_1", session.GatewayOrderID)
	assert.Equal(t, "rzp_test_key", session.KeyID)
	assert.Equal(t, 499.0, session.Subtotal)
	assert.Equal(t, 50.0, session.ShippingCharges)
	assert.Equal(t, 549.0, session.Total)

	pending := e.store.PendingOrders()
	require.Len(t, pending, 1)
	assert.Equal(t, types.PendingStatus, pending[0].Status)
	require.NotNil(t, pending[0].RazorpayOrderID)
	assert.Equal(t, "order_1", *pending[0].RazorpayOrderID)
	assert.Equal(t, types.TamilNaduOrder, pending[0].OrderType)
	assert.Empty(t, e.store.Orders())
}

func TestStartOnlineGatewayFailure(t *testing.T) {
	e := newEnv(t)
	e.gw.EXPECT().CreateOrder(mock.Anything, mock.Anything).Return(nil, gateway.ErrUnavailable)

	_, err := e.service.StartOnline(context.Background(), request("Kerala"))
	assert.ErrorIs(t, err, ErrGatewayOrder)
	assert.ErrorIs(t, err, gateway.ErrUnavailable)

	pending := e.store.PendingOrders()
	require.Len(t, pending, 1)
	assert.Equal(t, types.FailedStatus, pending[0].Status)
}

func TestStartOnlineValidatesBeforeStorage(t *testing.T) {
	e := newEnv(t)
	req := request("Kerala")
	req.Customer.Email = ""

	_, err := e.service.StartOnline(context.Background(), req)
	var validationErr *ledger.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "customerInfo.email", validationErr.Field)
	assert.Empty(t, e.store.PendingOrders())
}

func TestPlaceCOD(t *testing.T) {
	e := newEnv(t)

	order, err := e.service.PlaceCOD(context.Background(), request("Kerala"))
	require.NoError(t, err)
	assert.Equal(t, "DH-ECOM-0001", order.OrderNum)
	assert.Equal(t, "DH-INV-0001", order.InvoiceNum)
	assert.Equal(t, 599.0, order.Total)
	assert.Equal(t, types.CODPayment, order.PaymentMethod)
	assert.Equal(t, types.WebsiteCommunication, order.Communication)
	assert.Empty(t, e.store.PendingOrders())

	next, err := e.service.PlaceCOD(context.Background(), request("Kerala"))
	require.NoError(t, err)
	assert.Equal(t, "DH-ECOM-0002", next.OrderNum)
	assert.Equal(t, "DH-INV-0002", next.InvoiceNum)
}

func TestClientHints(t *testing.T) {
	ctx := context.Background()

	t.Run("success is only a hint", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.service.CreatePendingOrder(ctx, &types.PendingOrder{
			Items:    request("").Items,
			Customer: request("").Customer,
		})
		require.NoError(t, err)

		assert.True(t, e.service.ClientSuccess(ctx, "DH-ECOM-0001", "pay_1", "order_1"))
		pending := e.store.PendingOrders()[0]
		assert.Equal(t, types.ProcessingStatus, pending.Status)
		assert.Equal(t, "pay_1", *pending.PaymentID)
		assert.Empty(t, e.store.Orders())
	})

	t.Run("failure stores the reason", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.service.CreatePendingOrder(ctx, &types.PendingOrder{Items: request("").Items, Customer: request("").Customer})
		require.NoError(t, err)

		assert.True(t, e.service.ClientFailure(ctx, "DH-ECOM-0001", "pay_1", "card declined"))
		pending := e.store.PendingOrders()[0]
		assert.Equal(t, types.FailedStatus, pending.Status)
		assert.Equal(t, "card declined", *pending.FailureReason)
	})

	t.Run("dismiss leaves status", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.service.CreatePendingOrder(ctx, &types.PendingOrder{Items: request("").Items, Customer: request("").Customer})
		require.NoError(t, err)

		e.service.ClientDismissed(ctx, "DH-ECOM-0001")
		assert.Equal(t, types.PendingStatus, e.store.PendingOrders()[0].Status)

		assert.True(t, e.service.ClientCancel(ctx, "DH-ECOM-0001"))
		assert.Equal(t, types.CancelledStatus, e.store.PendingOrders()[0].Status)
	})

	t.Run("no regression after completion", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.service.CreatePendingOrder(ctx, &types.PendingOrder{Items: request("").Items, Customer: request("").Customer})
		require.NoError(t, err)
		require.True(t, e.ledger.UpdateStatus(ctx, "DH-ECOM-0001",
			ledger.StatusUpdate{Status: types.CompletedStatus, PaymentID: "pay_1", Source: ledger.SourceWebhook}))

		assert.False(t, e.service.ClientCancel(ctx, "DH-ECOM-0001"))
		assert.False(t, e.service.ClientFailure(ctx, "DH-ECOM-0001", "", ""))
		assert.Equal(t, types.CompletedStatus, e.store.PendingOrders()[0].Status)
	})
}

func TestUpdatePaymentDetails(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		details PaymentDetails
		ok      bool
		want    types.Status
	}{
		{"correlation only", PaymentDetails{GatewayOrderID: "order_1"}, true, types.PendingStatus},
		{"nothing to write", PaymentDetails{}, false, types.PendingStatus},
		{"completed becomes processing", PaymentDetails{PaymentID: "pay_1", Status: types.CompletedStatus}, true, types.ProcessingStatus},
		{"failed", PaymentDetails{Status: types.FailedStatus, Reason: "timeout"}, true, types.FailedStatus},
		{"cancelled", PaymentDetails{Status: types.CancelledStatus}, true, types.CancelledStatus},
		{"unknown", PaymentDetails{Status: "refunded"}, false, types.PendingStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			_, err := e.service.CreatePendingOrder(ctx, &types.PendingOrder{
				OrderNumber: "DH-ECOM-0751",
				Items:       request("").Items,
				Customer:    request("").Customer,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.ok, e.service.UpdatePaymentDetails(ctx, "DH-ECOM-0751", tt.details))
			assert.Equal(t, tt.want, e.store.PendingOrders()[0].Status)
		})
	}

	e := newEnv(t)
	assert.False(t, e.service.UpdatePendingOrderRazorpayID(ctx, "DH-ECOM-0404", "order_1"))
}

// lockstepStore lets the first two pending sequence reads both finish before
// either caller can insert, like two requests interleaving on the database.
type lockstepStore struct {
	*memstore.Store
	reads   atomic.Int32
	release chan struct{}
}

func (s *lockstepStore) MaxPendingOrderSequence(ctx context.Context, prefix string) (int, error) {
	last, err := s.Store.MaxPendingOrderSequence(ctx, prefix)
	switch s.reads.Add(1) {
	case 1:
		<-s.release
	case 2:
		close(s.release)
	}
	return last, err
}

func TestConcurrentCheckoutsGetDistinctNumbers(t *testing.T) {
	store := &lockstepStore{Store: memstore.New(), release: make(chan struct{})}
	l := ledger.NewLedger(store)
	allocator := sequence.NewAllocator(store, sequence.Config{OrderPrefix: "DH-ECOM-", InvoicePrefix: "DH-INV-", Width: 4})
	finalizer := reconcile.NewFinalizer(store, allocator, shipping.Rates{TamilNadu: 50, OtherState: 100}, nil)
	gw := mocks.NewGatewayClient(t)
	gw.EXPECT().CreateOrder(mock.Anything, mock.Anything).
		RunAndReturn(func(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
			return &gateway.Order{ID: "order_" + req.Receipt, Amount: req.Amount, Status: "created"}, nil
		})
	service := NewService(allocator, l, gw, finalizer, "rzp_test_key")

	var wg sync.WaitGroup
	sessions := make([]*Session, 2)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session, err := service.StartOnline(context.Background(), request("Kerala"))
			assert.NoError(t, err)
			sessions[i] = session
		}(i)
	}
	wg.Wait()

	require.NotNil(t, sessions[0])
	require.NotNil(t, sessions[1])
	assert.NotEqual(t, sessions[0].OrderNumber, sessions[1].OrderNumber)
	assert.ElementsMatch(t, []string{"DH-ECOM-0001", "DH-ECOM-0002"},
		[]string{sessions[0].OrderNumber, sessions[1].OrderNumber})

	pending := store.PendingOrders()
	require.Len(t, pending, 2)
	for _, p := range pending {
		require.NotNil(t, p.RazorpayOrderID)
		assert.Equal(t, "order_"+p.OrderNumber, *p.RazorpayOrderID)
	}
}

func TestCreatePendingOrderKeepsClientNumber(t *testing.T) {
	e := newEnv(t)
	order := func() *types.PendingOrder {
		return &types.PendingOrder{
			OrderNumber: "DH-ECOM-0751",
			Items:       request("Kerala").Items,
			Total:       499,
			Customer:    request("Kerala").Customer,
		}
	}

	_, err := e.service.CreatePendingOrder(context.Background(), order())
	require.NoError(t, err)

	_, err = e.service.CreatePendingOrder(context.Background(), order())
	var dup *db.DuplicatePendingOrderError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "DH-ECOM-0751", dup.OrderNumber)
	assert.Len(t, e.store.PendingOrders(), 1)

	allocated := order()
	allocated.OrderNumber = ""
	_, err = e.service.CreatePendingOrder(context.Background(), allocated)
	require.NoError(t, err)
	assert.Equal(t, "DH-ECOM-0752", allocated.OrderNumber)
}

type countingNotifier struct {
	mu     sync.Mutex
	orders []types.Order
}

func (n *countingNotifier) NotifyOrderFinalized(order types.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, order)
}

func TestPlaceCODNotifies(t *testing.T) {
	store := memstore.New()
	allocator := sequence.NewAllocator(store, sequence.Config{OrderPrefix: "DH-ECOM-", InvoicePrefix: "DH-INV-", Width: 4})
	notifier := &countingNotifier{}
	finalizer := reconcile.NewFinalizer(store, allocator, shipping.Rates{TamilNadu: 50, OtherState: 100}, notifier)
	service := NewService(allocator, ledger.NewLedger(store), mocks.NewGatewayClient(t), finalizer, "rzp_test_key")

	order, err := service.PlaceCOD(context.Background(), request("Kerala"))
	require.NoError(t, err)
	require.Len(t, notifier.orders, 1)
	assert.Equal(t, order.InvoiceNum, notifier.orders[0].InvoiceNum)
}
