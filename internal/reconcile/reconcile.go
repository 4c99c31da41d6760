// Package reconcile implements the offline divergence audit between the
// ledger and the relational store.
//
// Reconciliation is a read-only diagnostic: it diffs the two identifier
// sets, classifies every discrepancy and reports - it never auto-repairs.
// Repair is a separate, explicit, operator-triggered action; repairing
// automatically would mask data-loss bugs instead of surfacing them.
package reconcile

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Discrepancy classifications emitted as warnings, one per divergent id.
const (
	ClassMissingInRelational = "missing_in_relational"
	ClassMissingInLedger     = "missing_in_ledger"
)

// IDSource yields the full identifier set of one store.
// Implemented by both the ledger store and the relational store.
type IDSource interface {
	OrderIDs(ctx context.Context) ([]string, error)
}

// Report partitions the union of the two identifier spaces at a point in
// time. Derived, never persisted. All slices are sorted and non-nil.
type Report struct {
	InLedgerOnly     []string `json:"in_ledger_only"`
	InRelationalOnly []string `json:"in_relational_only"`
	InBoth           []string `json:"in_both"`
}

// InSync reports whether the two stores agreed at audit time.
func (r Report) InSync() bool {
	return len(r.InLedgerOnly) == 0 && len(r.InRelationalOnly) == 0
}

// Summary renders the plain-language result line shown to operators.
func (r Report) Summary() string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%d orders synced, %d missing in relational store, %d relational-only",
		len(r.InBoth), len(r.InLedgerOnly), len(r.InRelationalOnly))
}

// Auditor diffs the two stores. It holds no locks and may run against a
// live system; the report is a point-in-time observation.
type Auditor struct {
	ledger     IDSource
	relational IDSource
	logger     *slog.Logger
}

// New creates an Auditor over the two stores.
func New(ledger, relational IDSource, logger *slog.Logger) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{ledger: ledger, relational: relational, logger: logger}
}

// Reconcile loads both identifier sets and computes the three partitions.
//
// Every divergent id is logged as a classified warning; nothing is
// repaired. The ledger read happens first - it is the authoritative store,
// so an id that appears in the relational store while this runs shows up
// as relational-only rather than being silently missed.
func (a *Auditor) Reconcile(ctx context.Context) (Report, error) {
	ledgerIDs, err := a.ledger.OrderIDs(ctx)
	if err != nil {
		return Report{}, err
	}
	relIDs, err := a.relational.OrderIDs(ctx)
	if err != nil {
		return Report{}, err
	}

	report := partition(ledgerIDs, relIDs)

	for _, id := range report.InLedgerOnly {
		a.logger.Warn("order divergence detected",
			"class", ClassMissingInRelational, "order_id", id)
	}
	for _, id := range report.InRelationalOnly {
		a.logger.Warn("order divergence detected",
			"class", ClassMissingInLedger, "order_id", id)
	}

	return report, nil
}

// partition computes the set difference of the two identifier spaces.
func partition(ledgerIDs, relIDs []string) Report {
	inLedger := make(map[string]bool, len(ledgerIDs))
	for _, id := range ledgerIDs {
		inLedger[id] = true
	}
	inRel := make(map[string]bool, len(relIDs))
	for _, id := range relIDs {
		inRel[id] = true
	}

	report := Report{
		InLedgerOnly:     []string{},
		InRelationalOnly: []string{},
		InBoth:           []string{},
	}
	for id := range inLedger {
		if inRel[id] {
			report.InBoth = append(report.InBoth, id)
		} else {
			report.InLedgerOnly = append(report.InLedgerOnly, id)
		}
	}
	for id := range inRel {
		if !inLedger[id] {
			report.InRelationalOnly = append(report.InRelationalOnly, id)
		}
	}

	sort.Strings(report.InLedgerOnly)
	sort.Strings(report.InRelationalOnly)
	sort.Strings(report.InBoth)
	return report
}
