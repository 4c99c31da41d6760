package order

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator mints globally unique order identifiers.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 order identifiers.
//
// UUIDv7 embeds a timestamp in the most significant bits, so identifiers
// sort by creation time. That keeps the ledger roughly chronological and
// helps operators correlate records across stores.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined identifiers for testing.
//
// This enables deterministic test execution and golden output comparison.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedGenerator("order-1", "order-2")
//	gen.Generate() // "order-1"
//	gen.Generate() // "order-2"
//	gen.Generate() // panic: all ids exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined identifier.
//
// Panics if all ids have been consumed. This is a fail-fast approach to
// catch test misconfiguration (test minted more orders than expected).
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// DisplayID derives a short operator-facing identifier from an order id.
// The hyphenless prefix is long enough to be unambiguous in a dashboard
// column without being a full UUID.
func DisplayID(prefix, id string) string {
	short := make([]byte, 0, 8)
	for i := 0; i < len(id) && len(short) < 8; i++ {
		if id[i] != '-' {
			short = append(short, id[i])
		}
	}
	return fmt.Sprintf("%s%s", prefix, short)
}
