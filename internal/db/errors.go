package db

import (
	"errors"
	"fmt"
)

var ErrStatusChanged = errors.New("pending order status changed concurrently")

type DuplicateOrderError struct {
	OrderNum string
}

func (e *DuplicateOrderError) Error() string {
	return fmt.Sprintf("Order %s already finalized", e.OrderNum)
}

type DuplicateInvoiceError struct {
	InvoiceNum string
}

func (e *DuplicateInvoiceError) Error() string {
	return fmt.Sprintf("Invoice %s already assigned", e.InvoiceNum)
}

type PendingOrderNotFoundError struct {
	ID int
}

func (e *PendingOrderNotFoundError) Error() string {
	return fmt.Sprintf("Pending order %d not found", e.ID)
}

type DuplicatePendingOrderError struct {
	OrderNumber string
}

func (e *DuplicatePendingOrderError) Error() string {
	return fmt.Sprintf("Pending order %s already exists", e.OrderNumber)
}
