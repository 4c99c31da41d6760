package relstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/ordercap/internal/order"
)

// StoredOrder is one row of the orders table, decoded back into typed form.
type StoredOrder struct {
	ID               string
	Email            string
	Status           order.Status
	ItemsCount       int64
	TotalAmount      int64
	Subtotal         int64
	ShippingCost     int64
	TaxAmount        int64
	PaymentReference string
	BillingAddress   order.Address
	ShippingAddress  order.Address
	Items            []order.LineItem
	Metadata         map[string]string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

const orderColumns = `
	id, email, status, items_count, total_amount, subtotal, shipping_cost, tax_amount,
	payment_reference, customer_data, shipping_data, items_data, metadata, created_at, updated_at`

// GetOrder retrieves a single order row by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) GetOrder(ctx context.Context, id string) (StoredOrder, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = ?
	`, id)
	return scanOrder(row)
}

// ListOrders returns up to limit rows ordered by created_at descending -
// the dashboard's "most recent first" view. A non-positive limit returns
// all rows.
func (s *Store) ListOrders(ctx context.Context, limit int) ([]StoredOrder, error) {
	q := `
		SELECT ` + orderColumns + `
		FROM orders
		ORDER BY created_at DESC, id ASC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []StoredOrder
	for rows.Next() {
		rec, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	// Return empty slice instead of nil
	if out == nil {
		out = []StoredOrder{}
	}
	return out, nil
}

// OrderIDs returns the full identifier set of the relational store.
// Used by the reconciliation auditor.
func (s *Store) OrderIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM orders ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query order ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order ids: %w", err)
	}

	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// scanner abstracts sql.Row and sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(sc scanner) (StoredOrder, error) {
	var (
		rec                                          StoredOrder
		status                                       string
		paymentRef                                   sql.NullString
		customerJSON, shippingJSON, itemsJSON, mdJSON string
		createdAt, updatedAt                         string
	)

	err := sc.Scan(
		&rec.ID,
		&rec.Email,
		&status,
		&rec.ItemsCount,
		&rec.TotalAmount,
		&rec.Subtotal,
		&rec.ShippingCost,
		&rec.TaxAmount,
		&paymentRef,
		&customerJSON,
		&shippingJSON,
		&itemsJSON,
		&mdJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return StoredOrder{}, err
	}

	rec.Status = order.Status(status)
	rec.PaymentReference = paymentRef.String

	customer, err := unmarshalCustomer(customerJSON)
	if err != nil {
		return StoredOrder{}, err
	}
	rec.BillingAddress = customer.BillingAddress

	if rec.ShippingAddress, err = unmarshalShipping(shippingJSON); err != nil {
		return StoredOrder{}, err
	}
	if rec.Items, err = unmarshalItems(itemsJSON); err != nil {
		return StoredOrder{}, err
	}
	if rec.Metadata, err = unmarshalMetadata(mdJSON); err != nil {
		return StoredOrder{}, err
	}
	if rec.CreatedAt, err = unmarshalTime(createdAt); err != nil {
		return StoredOrder{}, err
	}
	if rec.UpdatedAt, err = unmarshalTime(updatedAt); err != nil {
		return StoredOrder{}, err
	}

	return rec, nil
}
