// Package pipeline implements the dual-write coordinator at the heart of
// order capture.
//
// Per incoming order the coordinator performs two writes with asymmetric
// primacy: the ledger write is load-bearing (its failure fails the whole
// operation), the relational write is best-effort (its failure is recorded
// on the order's timeline and left for reconciliation). This asymmetry is
// deliberate - there is no distributed transaction, and the reconciliation
// auditor is the correctness backstop for divergence.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/roach88/ordercap/internal/connmgr"
	"github.com/roach88/ordercap/internal/ledger"
	"github.com/roach88/ordercap/internal/order"
)

var (
	ordersPersistedTotal       = metrics.NewCounter("ordercap_orders_persisted_total")
	ledgerWriteErrorsTotal     = metrics.NewCounter("ordercap_ledger_write_errors_total")
	relationalWriteErrorsTotal = metrics.NewCounter("ordercap_relational_write_errors_total")
)

// Result is the outcome of one persistence operation.
//
// LedgerOK is always true when err is nil - a failed ledger write fails the
// whole operation. RelationalOK tells the caller whether to warn that the
// queryable copy is lagging.
type Result struct {
	Order        order.Order `json:"order"`
	LedgerOK     bool        `json:"ledger_ok"`
	RelationalOK bool        `json:"relational_ok"`
}

// Coordinator orchestrates the two writes per incoming order.
//
// Thread-safety: safe for concurrent use. Concurrent persists of different
// ids are independent; concurrent retries of the same id rely on the
// stores' conflict handling, not on any lock held here.
type Coordinator struct {
	ledger  *ledger.Store
	manager *connmgr.Manager
	idGen   order.IDGenerator
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithIDGenerator overrides the UUIDv7 default (tests use FixedGenerator).
func WithIDGenerator(gen order.IDGenerator) Option {
	return func(c *Coordinator) { c.idGen = gen }
}

// WithClock overrides the wall clock (tests use a deterministic clock).
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLogger overrides slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// New creates a Coordinator over the given ledger and connection manager.
func New(led *ledger.Store, manager *connmgr.Manager, opts ...Option) *Coordinator {
	c := &Coordinator{
		ledger:  led,
		manager: manager,
		idGen:   order.UUIDv7Generator{},
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PersistOrder runs the dual-write for one checkout completion.
//
// Algorithm:
//  1. Normalize the input into the Order shape, minting an id if absent.
//  2. Write the ledger. Failure here fails the whole operation - checkout
//     must not report success without the primary record.
//  3. Attempt the relational upsert through the retry executor. Failure is
//     recovered locally: a database_error timeline entry is appended and
//     the operation still succeeds with RelationalOK=false.
//  4. Return the order with both outcome flags.
//
// Within one call the ledger write happens-before the relational attempt
// and both happen-before the returned timeline is final.
//
// Idempotency: a retried call carrying the same order id updates rather
// than duplicates in both backends - the ledger replaces by id, the
// relational store resolves the primary-key conflict as an update.
func (c *Coordinator) PersistOrder(ctx context.Context, in order.Input) (Result, error) {
	o, err := order.Normalize(in, c.idGen, c.now().UTC())
	if err != nil {
		return Result{}, err
	}
	return c.persist(ctx, o)
}

// PersistSynthesized runs the dual-write for an order already minted by the
// fallback synthesizer, skipping normalization. The same primacy and
// idempotency rules apply.
func (c *Coordinator) PersistSynthesized(ctx context.Context, o order.Order) (Result, error) {
	if o.ID == "" {
		return Result{}, order.NewValidationError("id", "synthesized order carries no id")
	}
	return c.persist(ctx, o)
}

func (c *Coordinator) persist(ctx context.Context, o order.Order) (Result, error) {
	o.AppendTimeline(order.TimelineLedgerStored, c.now().UTC(), "")
	if err := c.ledger.WriteOrder(ctx, o); err != nil {
		ledgerWriteErrorsTotal.Inc()
		c.logger.Error("ledger write failed", "order_id", o.ID, "error", err)
		return Result{}, err
	}

	res := Result{Order: o, LedgerOK: true}

	relErr := c.manager.ExecuteWithRetry(ctx, "orders upsert", func(ctx context.Context, h *connmgr.Handles) error {
		_, err := h.Rel.UpsertOrder(ctx, o)
		return err
	})
	if relErr != nil {
		relationalWriteErrorsTotal.Inc()
		c.logger.Warn("relational write failed, ledger remains authoritative",
			"order_id", o.ID, "error", relErr)
		res.Order.AppendTimeline(order.TimelineDatabaseError, c.now().UTC(), relErr.Error())
	} else {
		res.Order.AppendTimeline(order.TimelineDatabaseStored, c.now().UTC(), "")
		res.RelationalOK = true
		c.clearListCache(ctx)
	}

	// Record the relational outcome on the ledger copy too, so the operator
	// dashboard sees the full audit trail. Best-effort: the order is already
	// durably recorded.
	if err := c.ledger.WriteOrder(ctx, res.Order); err != nil {
		c.logger.Warn("ledger timeline update failed", "order_id", o.ID, "error", err)
	}

	ordersPersistedTotal.Inc()
	return res, nil
}

func (c *Coordinator) clearListCache(ctx context.Context) {
	h, err := c.manager.Get(ctx)
	if err != nil {
		return
	}
	h.Cache.Clear()
}
