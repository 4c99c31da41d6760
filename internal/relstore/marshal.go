package relstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/ordercap/internal/order"
)

// Column-level JSON shapes. Typed structs cross the pipeline; they are
// flattened to JSON TEXT only here, at the persistence boundary.

// customerRecord is the customer_data column shape.
type customerRecord struct {
	Email          string        `json:"email"`
	BillingAddress order.Address `json:"billing_address"`
}

// marshalJSON serializes a value to JSON TEXT with HTML escaping disabled,
// matching the ledger's encoding so the two stores' blobs are comparable.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("marshal column: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

func marshalCustomer(o order.Order) (string, error) {
	return marshalJSON(customerRecord{Email: o.Email, BillingAddress: o.BillingAddress})
}

func marshalShipping(o order.Order) (string, error) {
	return marshalJSON(o.ShippingAddress)
}

func marshalItems(o order.Order) (string, error) {
	if o.Items == nil {
		return "[]", nil
	}
	return marshalJSON(o.Items)
}

func marshalMetadata(o order.Order) (string, error) {
	if o.Metadata == nil {
		return "{}", nil
	}
	return marshalJSON(o.Metadata)
}

func unmarshalCustomer(data string) (customerRecord, error) {
	var rec customerRecord
	if data == "" || data == "{}" {
		return rec, nil
	}
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return customerRecord{}, fmt.Errorf("unmarshal customer_data: %w", err)
	}
	return rec, nil
}

func unmarshalShipping(data string) (order.Address, error) {
	var addr order.Address
	if data == "" || data == "{}" {
		return addr, nil
	}
	if err := json.Unmarshal([]byte(data), &addr); err != nil {
		return order.Address{}, fmt.Errorf("unmarshal shipping_data: %w", err)
	}
	return addr, nil
}

func unmarshalItems(data string) ([]order.LineItem, error) {
	if data == "" || data == "[]" {
		return []order.LineItem{}, nil
	}
	var items []order.LineItem
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, fmt.Errorf("unmarshal items_data: %w", err)
	}
	return items, nil
}

func unmarshalMetadata(data string) (map[string]string, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var md map[string]string
	if err := json.Unmarshal([]byte(data), &md); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return md, nil
}

// Timestamps are stored as RFC 3339 UTC strings so lexical order in the
// created_at index matches chronological order.

func marshalTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func unmarshalTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
