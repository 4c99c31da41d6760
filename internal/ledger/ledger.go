// Package ledger implements the primary append-oriented order store.
//
// The ledger is a single JSON file holding the full collection of order
// records, the exact shape the operator dashboard reads. It is the system
// of record for the capture pipeline: a checkout only counts as recorded
// once its ledger write has succeeded.
//
// Writes are mutex-serialized within the process and durably applied via
// write-to-temp + fsync + atomic rename, so a concurrent or crashed write
// can never corrupt previously written entries.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/roach88/ordercap/internal/order"
)

// Store is a file-backed order ledger.
//
// Thread-safety: all methods are safe for concurrent use. The mutex is
// held across the read-modify-write cycle, never across caller code.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a ledger store writing to the given file path.
// The file is created on first write; a missing file reads as empty.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger: path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the ledger file location.
func (s *Store) Path() string {
	return s.path
}

// WriteOrder records an order in the ledger.
//
// If a record with the same id already exists it is replaced in place
// (update, not append), so a retried persist of the same order collapses
// to a single entry. New ids are appended at the end.
func (s *Store) WriteOrder(ctx context.Context, o order.Order) error {
	if o.ID == "" {
		return &order.ValidationError{Field: "id", Message: "missing order id"}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	replaced := false
	for i := range records {
		if records[i].ID == o.ID {
			records[i] = o
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, o)
	}

	return s.flush(records)
}

// ReadAll returns every order record in the ledger, in ledger order.
// Returns an empty slice (not nil) when the ledger file does not exist.
func (s *Store) ReadAll(ctx context.Context) ([]order.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// ReadOrder returns a single record by id.
// Returns os.ErrNotExist if no record carries the id.
func (s *Store) ReadOrder(ctx context.Context, id string) (order.Order, error) {
	records, err := s.ReadAll(ctx)
	if err != nil {
		return order.Order{}, err
	}
	for _, rec := range records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return order.Order{}, fmt.Errorf("ledger: order %s: %w", id, os.ErrNotExist)
}

// OrderIDs returns the identifier set of the ledger, in ledger order.
// Used by the reconciliation auditor.
func (s *Store) OrderIDs(ctx context.Context) ([]string, error) {
	records, err := s.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	return ids, nil
}

// load reads and decodes the ledger file. Caller must hold mu.
func (s *Store) load() ([]order.Order, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []order.Order{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []order.Order{}, nil
	}

	var records []order.Order
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("ledger: decode %s: %w", s.path, err)
	}
	return records, nil
}

// flush atomically replaces the ledger file contents. Caller must hold mu.
//
// The temp file lives in the same directory as the ledger so the rename
// stays on one filesystem and is atomic.
func (s *Store) flush(records []order.Order) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("ledger: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("ledger: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // No-op after successful rename

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("ledger: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("ledger: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ledger: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("ledger: rename into place: %w", err)
	}
	return nil
}
