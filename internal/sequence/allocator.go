// Package sequence hands out human readable order and invoice numbers.
package sequence

import (
	"context"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
)

type Store interface {
	MaxOrderSequence(ctx context.Context, prefix string) (int, error)
	MaxPendingOrderSequence(ctx context.Context, prefix string) (int, error)
	MaxInvoiceSequence(ctx context.Context, prefix string) (int, error)
}

type Config struct {
	OrderPrefix   string
	InvoicePrefix string
	Width         int
	LookupTimeout time.Duration
}

type Allocator struct {
	store Store
	conf  Config
	now   func() time.Time
}

func NewAllocator(store Store, conf Config) *Allocator {
	if conf.Width < 1 {
		conf.Width = 4
	}
	return &Allocator{store: store, conf: conf, now: time.Now}
}

// NextOrderNumber looks at both finalized and pending orders, because a pending
// order can hold a higher number than anything finalized so far.
// When either lookup fails the suffix is derived from the clock instead, so
// checkout stays available at the cost of strict monotonicity.
func (a *Allocator) NextOrderNumber(ctx context.Context) string {
	ctx, cancel := a.lookupContext(ctx)
	defer cancel()

	finalized, err := a.store.MaxOrderSequence(ctx, a.conf.OrderPrefix)
	if err != nil {
		logger.Warnf("Order sequence lookup failed, using fallback: %s", err.Error())
		return a.fallback(a.conf.OrderPrefix)
	}
	pending, err := a.store.MaxPendingOrderSequence(ctx, a.conf.OrderPrefix)
	if err != nil {
		logger.Warnf("Pending order sequence lookup failed, using fallback: %s", err.Error())
		return a.fallback(a.conf.OrderPrefix)
	}
	return a.format(a.conf.OrderPrefix, max(finalized, pending)+1)
}

// NextInvoiceNumber must only be called while finalizing a paid order.
func (a *Allocator) NextInvoiceNumber(ctx context.Context) string {
	ctx, cancel := a.lookupContext(ctx)
	defer cancel()

	last, err := a.store.MaxInvoiceSequence(ctx, a.conf.InvoicePrefix)
	if err != nil {
		logger.Warnf("Invoice sequence lookup failed, using fallback: %s", err.Error())
		return a.fallback(a.conf.InvoicePrefix)
	}
	return a.format(a.conf.InvoicePrefix, last+1)
}

func (a *Allocator) OrderPrefix() string {
	return a.conf.OrderPrefix
}

func (a *Allocator) lookupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.conf.LookupTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.conf.LookupTimeout)
}

func (a *Allocator) format(prefix string, n int) string {
	return fmt.Sprintf("%s%0*d", prefix, a.conf.Width, n)
}

func (a *Allocator) fallback(prefix string) string {
	return fmt.Sprintf("%s%d", prefix, a.now().UnixMilli())
}
