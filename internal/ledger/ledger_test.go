package ledger

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ordercap/internal/order"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testOrder(id string) order.Order {
	return order.Order{
		ID:     id,
		Email:  "jo@example.com",
		Items:  []order.LineItem{{Title: "Widget", Quantity: 2, UnitPrice: 1250}},
		Totals: order.Totals{Subtotal: 2500, Total: 2500},
		Status: order.StatusPaid,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "orders.json"))
	require.NoError(t, err)
	return s
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestWriteOrder_AppendsAndReadsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteOrder(ctx, testOrder("ord-1")))
	require.NoError(t, s.WriteOrder(ctx, testOrder("ord-2")))

	records, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ord-1", records[0].ID)
	assert.Equal(t, "ord-2", records[1].ID)
}

func TestWriteOrder_SameIDReplacesNotAppends(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := testOrder("ord-1")
	require.NoError(t, s.WriteOrder(ctx, first))

	second := testOrder("ord-1")
	second.Status = order.StatusFulfilled
	require.NoError(t, s.WriteOrder(ctx, second))

	records, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1, "retried write must not duplicate the entry")
	assert.Equal(t, order.StatusFulfilled, records[0].Status)
}

func TestWriteOrder_RejectsMissingID(t *testing.T) {
	s := newTestStore(t)

	err := s.WriteOrder(context.Background(), order.Order{Email: "jo@example.com"})
	require.Error(t, err)
	assert.True(t, order.IsValidationError(err))
}

func TestReadAll_MissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)

	records, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestReadOrder_NotFound(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.WriteOrder(context.Background(), testOrder("ord-1")))

	_, err := s.ReadOrder(context.Background(), "nope")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOrderIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteOrder(ctx, testOrder("a")))
	require.NoError(t, s.WriteOrder(ctx, testOrder("b")))

	ids, err := s.OrderIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestWriteOrder_ConcurrentAppendsDoNotCorrupt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	const writers = 20

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			o := testOrder(order.UUIDv7Generator{}.Generate())
			assert.NoError(t, s.WriteOrder(ctx, o))
		}(i)
	}
	wg.Wait()

	records, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, writers)
}

func TestWriteOrder_CancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.WriteOrder(ctx, testOrder("ord-1"))
	assert.ErrorIs(t, err, context.Canceled)
}
