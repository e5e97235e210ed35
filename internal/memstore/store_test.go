package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/dhstore/checkout/internal/db"
	"github.com/dhstore/checkout/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingOrderNumberIsUnique(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.CreatePendingOrder(ctx, &types.PendingOrder{OrderNumber: "DH-ECOM-0001"})
	require.NoError(t, err)

	_, err = s.CreatePendingOrder(ctx, &types.PendingOrder{OrderNumber: "DH-ECOM-0001"})
	var dup *db.DuplicatePendingOrderError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "DH-ECOM-0001", dup.OrderNumber)
	assert.Len(t, s.PendingOrders(), 1)
}

func TestFindOrderByPaymentRemarksMatchesWholeID(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.CreateOrder(ctx, &types.Order{OrderNum: "DH-ECOM-0001", InvoiceNum: "DH-INV-0001",
		Remarks: types.PaymentRemarks("pay_12", "order_1")})
	require.NoError(t, err)

	found, err := s.FindOrderByPaymentRemarks(ctx, "pay_1")
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = s.FindOrderByPaymentRemarks(ctx, "pay_12")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "DH-ECOM-0001", found.OrderNum)
}
