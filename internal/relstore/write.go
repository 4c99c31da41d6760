package relstore

import (
	"context"
	"fmt"

	"github.com/roach88/ordercap/internal/order"
)

// UpsertOrder persists an order keyed by its id.
//
// Uses ON CONFLICT(id) DO UPDATE so a retried write of the same order never
// creates a duplicate row. On conflict only updated_at, status and
// total_amount change; the original created_at row value is untouched.
//
// Malformed orders (missing id, no items) fail immediately with
// *order.ValidationError - connectivity failures are the retry executor's
// concern, payload failures are not.
func (s *Store) UpsertOrder(ctx context.Context, o order.Order) (StoredOrder, error) {
	if o.ID == "" {
		return StoredOrder{}, &order.ValidationError{Field: "id", Message: "missing order id"}
	}
	if len(o.Items) == 0 {
		return StoredOrder{}, &order.ValidationError{Field: "items", Message: "at least one item required", OrderID: o.ID}
	}

	customerJSON, err := marshalCustomer(o)
	if err != nil {
		return StoredOrder{}, fmt.Errorf("upsert order: %w", err)
	}
	shippingJSON, err := marshalShipping(o)
	if err != nil {
		return StoredOrder{}, fmt.Errorf("upsert order: %w", err)
	}
	itemsJSON, err := marshalItems(o)
	if err != nil {
		return StoredOrder{}, fmt.Errorf("upsert order: %w", err)
	}
	metadataJSON, err := marshalMetadata(o)
	if err != nil {
		return StoredOrder{}, fmt.Errorf("upsert order: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders
		(id, email, status, items_count, total_amount, subtotal, shipping_cost, tax_amount,
		 payment_reference, customer_data, shipping_data, items_data, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at   = excluded.updated_at,
			status       = excluded.status,
			total_amount = excluded.total_amount
	`,
		o.ID,
		o.Email,
		string(o.Status),
		o.ItemCount(),
		o.Totals.Total,
		o.Totals.Subtotal,
		o.Totals.Shipping,
		o.Totals.Tax,
		o.PaymentReference,
		customerJSON,
		shippingJSON,
		itemsJSON,
		metadataJSON,
		marshalTime(o.CreatedAt),
		marshalTime(o.UpdatedAt),
	)
	if err != nil {
		return StoredOrder{}, fmt.Errorf("upsert order %s: %w", o.ID, err)
	}

	// Read the row back so the caller sees the stored state, including the
	// preserved created_at when the write resolved as an update.
	stored, err := s.GetOrder(ctx, o.ID)
	if err != nil {
		return StoredOrder{}, fmt.Errorf("upsert order %s: read back: %w", o.ID, err)
	}
	return stored, nil
}
