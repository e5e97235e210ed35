// Package notify sends order confirmations off the request path. Nothing here
// ever reports failure back to the caller: errors are logged and dropped.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/dhstore/checkout/internal/types"
	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const sendTimeout = 10 * time.Second

type Sender interface {
	SendOrderSMS(ctx context.Context, phone string, orderNumber string, amount float64) error
	SendOrderWhatsApp(ctx context.Context, phone string, orderNumber string, amount float64) error
}

// Publisher receives every finalized order after the customer messages went out.
type Publisher interface {
	PublishOrderFinalized(ctx context.Context, order types.Order) error
}

type job struct {
	id    string
	order types.Order
}

type Dispatcher struct {
	sender    Sender
	publisher Publisher
	limiter   *rate.Limiter
	workers   int
	queue     chan job
	wg        sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type Options struct {
	QueueSize     int
	Workers       int
	RatePerSecond float64
	// Publisher is optional.
	Publisher Publisher
}

func NewDispatcher(sender Sender, opts Options) *Dispatcher {
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	return &Dispatcher{
		sender:    sender,
		publisher: opts.Publisher,
		limiter:   rate.NewLimiter(limit, opts.Workers),
		workers:   opts.Workers,
		queue:     make(chan job, opts.QueueSize),
	}
}

// Start runs the workers until ctx is cancelled or Close is called.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j, ok := <-d.queue:
					if !ok {
						return
					}
					d.process(ctx, j)
				}
			}
		}()
	}
}

// NotifyOrderFinalized queues the confirmation and returns immediately.
// A full queue drops the message.
func (d *Dispatcher) NotifyOrderFinalized(order types.Order) {
	j := job{id: uuid.NewString(), order: order}
	log := logger.WithFields(logger.Fields{"order_number": order.OrderNum, "job_id": j.id})

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		log.Warn("Dispatcher closed, dropping confirmation")
		return
	}
	select {
	case d.queue <- j:
	default:
		log.Warn("Notification queue full, dropping confirmation")
	}
}

// Close stops accepting work and waits for queued jobs to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) process(ctx context.Context, j job) {
	log := logger.WithFields(logger.Fields{
		"order_number": j.order.OrderNum,
		"job_id":       j.id,
	})
	phone := j.order.Customer.Phone

	if phone == "" {
		log.Warn("Order has no phone number, skipping SMS and WhatsApp")
	} else {
		d.send(ctx, log, "SMS", func(ctx context.Context) error {
			return d.sender.SendOrderSMS(ctx, phone, j.order.OrderNum, j.order.Total)
		})
		d.send(ctx, log, "WhatsApp", func(ctx context.Context) error {
			return d.sender.SendOrderWhatsApp(ctx, phone, j.order.OrderNum, j.order.Total)
		})
	}

	if d.publisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()
		if err := d.publisher.PublishOrderFinalized(pubCtx, j.order); err != nil {
			log.Errorf("Publishing order event failed: %s", err.Error())
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, log *logger.Entry, channel string, fn func(context.Context) error) {
	if err := d.limiter.Wait(ctx); err != nil {
		log.Warnf("%s not sent: %s", channel, err.Error())
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := fn(sendCtx); err != nil {
		log.Errorf("%s notification failed: %s", channel, err.Error())
		return
	}
	log.Infof("%s notification sent", channel)
}
