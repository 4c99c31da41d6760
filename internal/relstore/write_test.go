package relstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/ordercap/internal/order"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "orders.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testOrder(id string) order.Order {
	return order.Order{
		ID:    id,
		Email: "jo@example.com",
		Items: []order.LineItem{
			{Title: "Widget", Quantity: 3, UnitPrice: 1250},
		},
		ShippingAddress: order.Address{Line1: "1 Main St", City: "Springfield", Country: "US"},
		BillingAddress:  order.Address{Line1: "1 Main St", City: "Springfield", Country: "US"},
		Totals:          order.Totals{Subtotal: 3750, Shipping: 500, Tax: 300, Total: 4550},
		Status:          order.StatusPaid,
		Metadata:        map[string]string{"source": "checkout"},
		CreatedAt:       testNow,
		UpdatedAt:       testNow,
	}
}

func TestUpsertOrder_Insert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stored, err := s.UpsertOrder(ctx, testOrder("ord-1"))
	if err != nil {
		t.Fatalf("UpsertOrder() failed: %v", err)
	}

	if stored.ID != "ord-1" {
		t.Errorf("ID = %q, expected %q", stored.ID, "ord-1")
	}
	if stored.TotalAmount != 4550 {
		t.Errorf("TotalAmount = %d, expected 4550", stored.TotalAmount)
	}
	if stored.ItemsCount != 3 {
		t.Errorf("ItemsCount = %d, expected 3", stored.ItemsCount)
	}
	if len(stored.Items) != 1 || stored.Items[0].UnitPrice != 1250 {
		t.Errorf("Items round-trip failed: %+v", stored.Items)
	}
	if stored.Metadata["source"] != "checkout" {
		t.Errorf("Metadata round-trip failed: %+v", stored.Metadata)
	}
	if !stored.CreatedAt.Equal(testNow) {
		t.Errorf("CreatedAt = %v, expected %v", stored.CreatedAt, testNow)
	}
}

func TestUpsertOrder_ConflictUpdatesNotDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertOrder(ctx, testOrder("ord-1")); err != nil {
		t.Fatalf("first UpsertOrder() failed: %v", err)
	}

	retry := testOrder("ord-1")
	retry.Status = order.StatusFulfilled
	retry.Totals.Total = 4600
	retry.Email = "changed@example.com" // must NOT be applied on conflict
	retry.CreatedAt = testNow.Add(time.Hour)
	retry.UpdatedAt = testNow.Add(time.Hour)

	stored, err := s.UpsertOrder(ctx, retry)
	if err != nil {
		t.Fatalf("retried UpsertOrder() failed: %v", err)
	}

	// Exactly one row
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM orders").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("row count = %d, expected 1", count)
	}

	// Conflict clause updates status, total_amount, updated_at only
	if stored.Status != order.StatusFulfilled {
		t.Errorf("Status = %q, expected %q", stored.Status, order.StatusFulfilled)
	}
	if stored.TotalAmount != 4600 {
		t.Errorf("TotalAmount = %d, expected 4600", stored.TotalAmount)
	}
	if !stored.UpdatedAt.Equal(testNow.Add(time.Hour)) {
		t.Errorf("UpdatedAt = %v, expected %v", stored.UpdatedAt, testNow.Add(time.Hour))
	}
	if !stored.CreatedAt.Equal(testNow) {
		t.Errorf("CreatedAt = %v, must keep original %v", stored.CreatedAt, testNow)
	}
	if stored.Email != "jo@example.com" {
		t.Errorf("Email = %q, conflict must not rewrite core fields", stored.Email)
	}
}

func TestUpsertOrder_RejectsMissingID(t *testing.T) {
	s := newTestStore(t)

	o := testOrder("")
	_, err := s.UpsertOrder(context.Background(), o)
	if err == nil {
		t.Fatal("expected error for missing id")
	}
	if !order.IsValidationError(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestUpsertOrder_RejectsEmptyItems(t *testing.T) {
	s := newTestStore(t)

	o := testOrder("ord-1")
	o.Items = nil
	_, err := s.UpsertOrder(context.Background(), o)
	if !order.IsValidationError(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}
