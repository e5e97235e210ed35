package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dhstore/checkout/internal/notify/mocks"
	"github.com/dhstore/checkout/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	orders []string
}

func (p *recordingPublisher) PublishOrderFinalized(ctx context.Context, order types.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, order.OrderNum)
	return errors.New("broker down")
}

func testOrder() types.Order {
	return types.Order{OrderNum: "DH-ECOM-0751", Total: 549, Customer: types.CustomerInfo{Phone: "9000000000"}}
}

func TestDispatcherSendsBothChannelsDespiteFailures(t *testing.T) {
	sender := mocks.NewSender(t)
	publisher := &recordingPublisher{}

	sender.EXPECT().SendOrderSMS(mock.Anything, "9000000000", "DH-ECOM-0751", 549.0).Return(errors.New("sms provider down")).Once()
	sender.EXPECT().SendOrderWhatsApp(mock.Anything, "9000000000", "DH-ECOM-0751", 549.0).Return(nil).Once()

	d := NewDispatcher(sender, Options{QueueSize: 4, Workers: 1, Publisher: publisher})
	d.Start(context.Background())

	d.NotifyOrderFinalized(testOrder())
	d.Close()

	assert.Equal(t, []string{"DH-ECOM-0751"}, publisher.orders)
}

func TestDispatcherDoesNotBlockOnSlowProvider(t *testing.T) {
	sender := mocks.NewSender(t)
	release := make(chan struct{})

	sender.EXPECT().SendOrderSMS(mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		RunAndReturn(func(ctx context.Context, phone string, orderNumber string, amount float64) error {
			<-release
			return nil
		}).Maybe()
	sender.EXPECT().SendOrderWhatsApp(mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	d := NewDispatcher(sender, Options{QueueSize: 1, Workers: 1})
	d.Start(context.Background())

	start := time.Now()
	for i := 0; i < 5; i++ {
		// the worker is stuck and the queue holds one job, the rest is dropped
		d.NotifyOrderFinalized(testOrder())
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(release)
	d.Close()
}

func TestDispatcherSkipsOrdersWithoutPhone(t *testing.T) {
	sender := mocks.NewSender(t)
	publisher := &recordingPublisher{}

	d := NewDispatcher(sender, Options{QueueSize: 1, Workers: 1, Publisher: publisher})
	d.Start(context.Background())

	order := testOrder()
	order.Customer.Phone = ""
	d.NotifyOrderFinalized(order)
	d.Close()

	assert.Len(t, publisher.orders, 1)
	sender.AssertNotCalled(t, "SendOrderSMS", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNotifyAfterCloseIsDropped(t *testing.T) {
	d := NewDispatcher(mocks.NewSender(t), Options{QueueSize: 1, Workers: 1})
	d.Start(context.Background())
	d.Close()

	assert.NotPanics(t, func() { d.NotifyOrderFinalized(testOrder()) })
}

func TestHTTPSender(t *testing.T) {
	var paths []string
	var mu sync.Mutex
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		if r.URL.Path == "/whatsapp" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer svr.Close()

	s := NewHTTPSender(svr.URL+"/sms", svr.URL+"/whatsapp", "key", time.Second)
	require.NoError(t, s.SendOrderSMS(context.Background(), "9000000000", "DH-ECOM-0751", 549))
	assert.Error(t, s.SendOrderWhatsApp(context.Background(), "9000000000", "DH-ECOM-0751", 549))
	assert.Equal(t, []string{"/sms", "/whatsapp"}, paths)

	unconfigured := NewHTTPSender("", "", "key", time.Second)
	assert.Error(t, unconfigured.SendOrderSMS(context.Background(), "9000000000", "DH-ECOM-0751", 549))
}
