package order

import "time"

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusFailed    Status = "failed"
	StatusFulfilled Status = "fulfilled"
)

// ValidStatuses defines the allowed order statuses.
var ValidStatuses = map[Status]bool{
	StatusPending:   true,
	StatusPaid:      true,
	StatusFailed:    true,
	StatusFulfilled: true,
}

// Timeline entry statuses stamped by pipeline components.
// These form the per-order audit trail read by operators and the
// reconciliation auditor.
const (
	TimelineLedgerStored    = "ledger_stored"
	TimelineDatabaseStored  = "database_stored"
	TimelineDatabaseError   = "database_error"
	TimelineFallbackCreated = "fallback_created"
)

// MetadataCreatedVia is the metadata key marking how an order was minted.
// Orders synthesized while the upstream workflow engine was degraded carry
// the value "fallback" so operators can tell them apart from authoritative
// ones.
const MetadataCreatedVia = "created_via"

// Order is the central entity of the capture pipeline.
//
// An Order is created exactly once per checkout completion and mutated only
// by appending timeline entries and updating Status/UpdatedAt. ID is
// immutable once assigned; the same ID must map to semantically equivalent
// core fields (email, totals) in every store it lands in, though each
// store's copy may carry a different timeline.
type Order struct {
	ID               string            `json:"id"`
	DisplayID        string            `json:"display_id,omitempty"`
	Email            string            `json:"email"`
	Items            []LineItem        `json:"items"`
	ShippingAddress  Address           `json:"shipping_address"`
	BillingAddress   Address           `json:"billing_address"`
	Totals           Totals            `json:"totals"`
	PaymentReference string            `json:"payment_reference,omitempty"`
	Status           Status            `json:"status"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	Timeline         []TimelineEntry   `json:"timeline"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// LineItem is a single purchased position. UnitPrice is in integer
// minor currency units (cents) - never floating point.
type LineItem struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	VariantID string `json:"variant_id,omitempty"`
}

// Subtotal returns quantity x unit price in minor units.
func (li LineItem) Subtotal() int64 {
	return li.Quantity * li.UnitPrice
}

// Address is a shipping or billing address.
type Address struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Totals holds monetary amounts in integer minor currency units.
type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"shipping"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}

// TimelineEntry records one operation attempted against an order.
type TimelineEntry struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}

// AppendTimeline appends an audit entry and advances UpdatedAt.
// The timeline is append-only; entries are never rewritten.
func (o *Order) AppendTimeline(status string, at time.Time, detail string) {
	o.Timeline = append(o.Timeline, TimelineEntry{
		Status:    status,
		Timestamp: at,
		Detail:    detail,
	})
	o.UpdatedAt = at
}

// ItemCount returns the total quantity across all line items.
func (o *Order) ItemCount() int64 {
	var n int64
	for _, li := range o.Items {
		n += li.Quantity
	}
	return n
}
