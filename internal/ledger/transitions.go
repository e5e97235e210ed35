package ledger

import (
	"errors"
	"fmt"

	"github.com/dhstore/checkout/internal/types"
)

// Source identifies who asked for a ledger write.
type Source string

const (
	SourceClient  Source = "client"
	SourceWebhook Source = "webhook"
	SourceSweeper Source = "sweeper"
)

var (
	ErrTerminal          = errors.New("pending order is in a terminal state")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSourceNotAllowed  = errors.New("source may not perform this transition")
)

var allowedSources = map[types.Status][]Source{
	types.ProcessingStatus: {SourceClient, SourceWebhook},
	types.CompletedStatus:  {SourceWebhook},
	types.FailedStatus:     {SourceClient, SourceWebhook, SourceSweeper},
	types.CancelledStatus:  {SourceClient},
}

// CheckTransition validates moving a record from one status to another on behalf of source.
// Writes that keep a non-terminal status are always allowed so fields can be merged.
func CheckTransition(from types.Status, to types.Status, source Source) error {
	if from.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, from)
	}
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if from == to {
		return nil
	}
	if to == types.PendingStatus {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if source == SourceSweeper && from != types.PendingStatus {
		return fmt.Errorf("%w: sweeper only expires pending orders", ErrSourceNotAllowed)
	}
	for _, s := range allowedSources[to] {
		if s == source {
			return nil
		}
	}
	return fmt.Errorf("%w: %s cannot set %s", ErrSourceNotAllowed, source, to)
}
