package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dhstore/checkout/internal/types"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	ordernumConstraint      = "customer_order_ordernum_key"
	invoicenumConstraint    = "customer_order_invoicenum_key"
	pendingNumberConstraint = "pending_order_order_number_key"

	pendingOrderColumns = `id, order_number, items, total, shipping_charges, customer_info, payment_method,
		order_type, status, razorpay_order_id, payment_id, failure_reason, completed_at, created_at, updated_at`
	orderColumns = `id, ordernum, invoicenum, items, customer_info, subtotal, shipping_charges, total,
		payment_method, order_type, communication, remarks, created_at`
)

type Database struct {
	pool *pgxpool.Pool
}

func NewDatabase(connString string) (*Database, error) {

	err := Migrate(connString)

	if err != nil {
		return nil, fmt.Errorf("failed to migrate %w", err)
	}

	ctx := context.Background()
	p, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}

	return &Database{
		pool: p,
	}, nil
}

func (d *Database) Close() {
	d.pool.Close()
}

func (d *Database) CreatePendingOrder(ctx context.Context, order *types.PendingOrder) (int, error) {
	query := `
		INSERT INTO pending_order (order_number, items, total, shipping_charges, customer_info,
			payment_method, order_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	row := d.pool.QueryRow(ctx, query, order.OrderNumber, order.Items, order.Total, order.ShippingCharges,
		order.Customer, order.PaymentMethod, order.OrderType, order.Status)

	if err := row.Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == pendingNumberConstraint {
			return 0, fmt.Errorf("%w", &DuplicatePendingOrderError{OrderNumber: order.OrderNumber})
		}
		return 0, fmt.Errorf("failed inserting pending order %w", err)
	}
	return order.ID, nil
}

func (d *Database) FindPendingOrdersByNumber(ctx context.Context, orderNumber string) ([]types.PendingOrder, error) {
	query := `
		SELECT ` + pendingOrderColumns + `
		FROM pending_order
		WHERE order_number = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := d.pool.Query(ctx, query, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("failed collecting rows %w", err)
	}
	orders, err := pgx.CollectRows(rows, pgx.RowToStructByName[types.PendingOrder])
	if err != nil {
		return nil, fmt.Errorf("failed unpacking rows %w", err)
	}
	return orders, nil
}

func (d *Database) FindPendingOrderByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*types.PendingOrder, error) {
	return d.findOnePending(ctx, "razorpay_order_id", gatewayOrderID)
}

func (d *Database) FindPendingOrderByPaymentID(ctx context.Context, paymentID string) (*types.PendingOrder, error) {
	return d.findOnePending(ctx, "payment_id", paymentID)
}

// findOnePending returns nil without error when nothing matches.
func (d *Database) findOnePending(ctx context.Context, column string, value string) (*types.PendingOrder, error) {
	query := `
		SELECT ` + pendingOrderColumns + `
		FROM pending_order
		WHERE ` + column + ` = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	rows, err := d.pool.Query(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("failed collecting rows %w", err)
	}
	order, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[types.PendingOrder])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed unpacking rows %w", err)
	}
	return &order, nil
}

// UpdatePendingOrder applies upd only while the record still has status expected.
func (d *Database) UpdatePendingOrder(ctx context.Context, id int, expected types.Status, upd types.PendingOrderUpdate) error {
	query := `
		UPDATE pending_order
		SET status = $1,
		    razorpay_order_id = COALESCE($2, razorpay_order_id),
		    payment_id = COALESCE($3, payment_id),
		    failure_reason = COALESCE($4, failure_reason),
		    completed_at = COALESCE($5, completed_at),
		    updated_at = now()
		WHERE id = $6 AND status = $7
		RETURNING id`

	row := d.pool.QueryRow(ctx, query, upd.Status, upd.RazorpayOrderID, upd.PaymentID, upd.FailureReason,
		upd.CompletedAt, id, expected)

	var updated int
	if err := row.Scan(&updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w", ErrStatusChanged)
		}
		return fmt.Errorf("unexpected DB error %w", err)
	}
	return nil
}

func (d *Database) FindStalePendingOrders(ctx context.Context, before time.Time, startID int, limit int) ([]types.PendingOrder, error) {
	query := `
		SELECT ` + pendingOrderColumns + `
		FROM pending_order
		WHERE status = 'pending' AND created_at < $1 AND id > $2
		ORDER BY id
		LIMIT $3`

	rows, err := d.pool.Query(ctx, query, before, startID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed collecting rows %w", err)
	}
	orders, err := pgx.CollectRows(rows, pgx.RowToStructByName[types.PendingOrder])
	if err != nil {
		return nil, fmt.Errorf("failed unpacking rows %w", err)
	}
	return orders, nil
}

func (d *Database) CreateOrder(ctx context.Context, order *types.Order) (int, error) {
	query := `
		INSERT INTO customer_order (ordernum, invoicenum, items, customer_info, subtotal, shipping_charges,
			total, payment_method, order_type, communication, remarks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	row := d.pool.QueryRow(ctx, query, order.OrderNum, order.InvoiceNum, order.Items, order.Customer,
		order.Subtotal, order.ShippingCharges, order.Total, order.PaymentMethod, order.OrderType,
		order.Communication, order.Remarks)

	if err := row.Scan(&order.ID, &order.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			switch pgErr.ConstraintName {
			case ordernumConstraint:
				return 0, fmt.Errorf("%w", &DuplicateOrderError{OrderNum: order.OrderNum})
			case invoicenumConstraint:
				return 0, fmt.Errorf("%w", &DuplicateInvoiceError{InvoiceNum: order.InvoiceNum})
			}
		}
		return 0, fmt.Errorf("failed inserting order %w", err)
	}
	return order.ID, nil
}

func (d *Database) FindOrderByOrderNumber(ctx context.Context, orderNum string) (*types.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM customer_order
		WHERE ordernum = $1`
	return d.findOneOrder(ctx, query, orderNum)
}

func (d *Database) FindOrderByPaymentRemarks(ctx context.Context, paymentID string) (*types.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM customer_order
		WHERE strpos(remarks || ' ', $1) > 0
		ORDER BY id
		LIMIT 1`
	return d.findOneOrder(ctx, query, types.PaymentRemarksToken(paymentID))
}

func (d *Database) findOneOrder(ctx context.Context, query string, arg string) (*types.Order, error) {
	rows, err := d.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed collecting rows %w", err)
	}
	order, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[types.Order])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed unpacking rows %w", err)
	}
	return &order, nil
}

func (d *Database) MaxOrderSequence(ctx context.Context, prefix string) (int, error) {
	return d.maxSequence(ctx, "customer_order", "ordernum", prefix)
}

func (d *Database) MaxPendingOrderSequence(ctx context.Context, prefix string) (int, error) {
	return d.maxSequence(ctx, "pending_order", "order_number", prefix)
}

func (d *Database) MaxInvoiceSequence(ctx context.Context, prefix string) (int, error) {
	return d.maxSequence(ctx, "customer_order", "invoicenum", prefix)
}

func (d *Database) maxSequence(ctx context.Context, table string, column string, prefix string) (int, error) {
	query := `
		SELECT COALESCE(MAX(CAST(SUBSTRING(` + column + ` FROM LENGTH($1::text) + 1) AS BIGINT)), 0)
		FROM ` + table + `
		WHERE LEFT(` + column + `, LENGTH($1::text)) = $1
		AND SUBSTRING(` + column + ` FROM LENGTH($1::text) + 1) ~ '^[0-9]+$'`

	var max int64
	if err := d.pool.QueryRow(ctx, query, prefix).Scan(&max); err != nil {
		return 0, fmt.Errorf("failed reading max sequence from %s %w", table, err)
	}
	return int(max), nil
}
