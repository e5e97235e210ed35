// Package order expires checkout intents that never reached a payment outcome.
package order

import (
	"context"
	"time"

	"github.com/dhstore/checkout/internal/ledger"
	"github.com/dhstore/checkout/internal/types"
	logger "github.com/sirupsen/logrus"
)

const (
	expiredReason = "order expired"
	batchSize     = 100
)

type Database interface {
	FindStalePendingOrders(ctx context.Context, before time.Time, startID int, limit int) ([]types.PendingOrder, error)
	FindOrderByOrderNumber(ctx context.Context, orderNum string) (*types.Order, error)
}

type Ledger interface {
	UpdateStatus(ctx context.Context, orderNumber string, upd ledger.StatusUpdate) bool
}

type Sweeper struct {
	database Database
	ledger   Ledger
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewSweeper(database Database, l Ledger, ttl time.Duration, interval time.Duration) *Sweeper {
	return &Sweeper{database: database, ledger: l, ttl: ttl, interval: interval, now: time.Now}
}

// GenerateExpiryTasks pages through pending orders created before cutoff.
// The channel is closed once every page was read or on the first error.
func GenerateExpiryTasks(ctx context.Context, database Database, cutoff time.Time) (<-chan types.PendingOrder, <-chan error) {
	tasks := make(chan types.PendingOrder)
	errs := make(chan error, 1)

	go func() {
		defer close(tasks)
		defer close(errs)

		startID := 0
		for {
			records, err := database.FindStalePendingOrders(ctx, cutoff, startID, batchSize)
			if err != nil {
				errs <- err
				return
			}
			if len(records) == 0 {
				return
			}
			for _, task := range records {
				if task.ID > startID {
					startID = task.ID
				}
				select {
				case <-ctx.Done():
					return
				case tasks <- task:
				}
			}
		}
	}()

	return tasks, errs
}

// ExpireOrders moves every task to failed via the ledger and returns how many moved.
// Tasks whose order number is already finalized are left for the webhook to complete.
func ExpireOrders(ctx context.Context, tasks <-chan types.PendingOrder, database Database, l Ledger) int {
	expired := 0
	for task := range tasks {
		if ctx.Err() != nil {
			continue
		}
		finalized, err := database.FindOrderByOrderNumber(ctx, task.OrderNumber)
		if err != nil {
			logger.Errorf("Could not check finalized order %s: %s", task.OrderNumber, err.Error())
			continue
		}
		if finalized != nil {
			logger.Warnf("Pending order %s is %s but was finalized as %s, not expiring", task.OrderNumber, task.Status, finalized.InvoiceNum)
			continue
		}
		ok := l.UpdateStatus(ctx, task.OrderNumber, ledger.StatusUpdate{
			Status:        types.FailedStatus,
			FailureReason: expiredReason,
			Source:        ledger.SourceSweeper,
		})
		if ok {
			logger.Infof("Expired pending order %s created at %s", task.OrderNumber, task.CreatedAt.Format(time.RFC3339))
			expired++
		}
	}
	return expired
}

// SweepOnce expires every pending order older than the configured TTL.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	tasks, errs := GenerateExpiryTasks(ctx, s.database, s.now().Add(-s.ttl))
	expired := ExpireOrders(ctx, tasks, s.database, s.ledger)
	if err := <-errs; err != nil {
		return expired, err
	}
	return expired, ctx.Err()
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		expired, err := s.SweepOnce(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Errorf("Expiry sweep failed: %s", err.Error())
		} else if expired > 0 {
			logger.Infof("Expiry sweep moved %d orders to failed", expired)
		}

		select {
		case <-ctx.Done():
			logger.Info("Context cancel, stopping sweeper")
			return
		case <-ticker.C:
		}
	}
}
