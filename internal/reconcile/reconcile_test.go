package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedSource is an IDSource over a literal id set.
type fixedSource []string

func (s fixedSource) OrderIDs(ctx context.Context) ([]string, error) {
	return s, nil
}

// failingSource always errors, simulating an unreachable store.
type failingSource struct{ err error }

func (s failingSource) OrderIDs(ctx context.Context) ([]string, error) {
	return nil, s.err
}

func TestReconcile_Partitions(t *testing.T) {
	a := New(fixedSource{"A", "B", "C"}, fixedSource{"B", "C", "D"}, nil)

	report, err := a.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, report.InLedgerOnly)
	assert.Equal(t, []string{"D"}, report.InRelationalOnly)
	assert.Equal(t, []string{"B", "C"}, report.InBoth)
	assert.False(t, report.InSync())
}

func TestReconcile_InSync(t *testing.T) {
	a := New(fixedSource{"A", "B"}, fixedSource{"B", "A"}, nil)

	report, err := a.Reconcile(context.Background())
	require.NoError(t, err)

	assert.True(t, report.InSync())
	assert.Equal(t, []string{"A", "B"}, report.InBoth)
	assert.Empty(t, report.InLedgerOnly)
	assert.Empty(t, report.InRelationalOnly)
}

func TestReconcile_EmptyStores(t *testing.T) {
	a := New(fixedSource{}, fixedSource{}, nil)

	report, err := a.Reconcile(context.Background())
	require.NoError(t, err)

	assert.True(t, report.InSync())
	assert.NotNil(t, report.InBoth, "partitions must be empty slices, not nil")
	assert.NotNil(t, report.InLedgerOnly)
	assert.NotNil(t, report.InRelationalOnly)
}

func TestReconcile_SortedOutput(t *testing.T) {
	a := New(fixedSource{"z", "a", "m"}, fixedSource{}, nil)

	report, err := a.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "m", "z"}, report.InLedgerOnly)
}

func TestReconcile_LedgerUnreachable(t *testing.T) {
	boom := errors.New("ledger unreachable")
	a := New(failingSource{err: boom}, fixedSource{"A"}, nil)

	_, err := a.Reconcile(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestReconcile_RelationalUnreachable(t *testing.T) {
	boom := errors.New("database unreachable")
	a := New(fixedSource{"A"}, failingSource{err: boom}, nil)

	_, err := a.Reconcile(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestReport_Summary(t *testing.T) {
	report := Report{
		InBoth:           []string{"B", "C"},
		InLedgerOnly:     []string{"A"},
		InRelationalOnly: []string{"D"},
	}
	assert.Equal(t, "2 orders synced, 1 missing in relational store, 1 relational-only",
		report.Summary())
}
