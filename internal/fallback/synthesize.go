// Package fallback constructs locally-valid orders when the external
// workflow engine that normally mints the authoritative order is degraded.
//
// A completed, paid checkout must never be lost just because the
// orchestration layer is down. The synthesizer builds an order from the raw
// checkout payload, marks its provenance so operators and reconciliation
// can tell it apart from authoritative orders, and hands it to the
// dual-write coordinator like any other order.
package fallback

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/ordercap/internal/order"
)

// idNamespace is the private UUIDv5 namespace for session-derived ids.
// Ids minted here can never collide with engine-authored order ids, so a
// fallback order cannot silently overwrite an order the engine did create
// for the same checkout session.
var idNamespace = uuid.MustParse("9f2c1b4e-5a3d-4c6f-8e7a-2d1b0c9f8e7a")

// displayPrefix marks fallback orders in operator-facing listings.
const displayPrefix = "FB-"

// CheckoutPayload is the raw checkout input available when the workflow
// engine call failed. Prices arrive as decimal strings exactly as the
// upstream platform emitted them.
type CheckoutPayload struct {
	// CheckoutSessionID is the stable identity of the checkout attempt.
	// When present it makes synthesis idempotent: client retries of the
	// same degraded checkout collapse to the same order id.
	CheckoutSessionID string        `json:"checkoutSessionId,omitempty"`
	Email             string        `json:"email"`
	Items             []PayloadItem `json:"items"`
	ShippingAddress   order.Address `json:"shippingAddress"`
	BillingAddress    order.Address `json:"billingAddress"`
	ShippingCost      string        `json:"shippingCost,omitempty"`
	TaxAmount         string        `json:"taxAmount,omitempty"`
	PaymentReference  string        `json:"paymentReference,omitempty"`
}

// PayloadItem is one line of the raw checkout payload.
type PayloadItem struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	VariantID string `json:"variantId,omitempty"`
}

// Synthesizer mints fallback orders.
type Synthesizer struct {
	gen order.IDGenerator
	now func() time.Time
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithIDGenerator overrides the UUIDv7 default used when no checkout
// session id is available (tests use FixedGenerator).
func WithIDGenerator(gen order.IDGenerator) Option {
	return func(s *Synthesizer) { s.gen = gen }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) { s.now = now }
}

// New creates a Synthesizer.
func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{
		gen: order.UUIDv7Generator{},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize builds a locally-valid Order from a raw checkout payload.
//
// Per-item subtotals are computed as quantity x unit price with the price
// converted to integer minor units by exact string parsing - no floating
// point is involved anywhere.
//
// The result carries metadata created_via=fallback and a fallback_created
// timeline entry. Payload validation failures return *order.ValidationError;
// no other error is possible.
func (s *Synthesizer) Synthesize(p CheckoutPayload) (order.Order, error) {
	email := strings.TrimSpace(p.Email)
	if email == "" || !strings.Contains(email, "@") {
		return order.Order{}, order.NewValidationError("email", "missing or malformed")
	}
	if len(p.Items) == 0 {
		return order.Order{}, order.NewValidationError("items", "at least one item required")
	}

	items := make([]order.LineItem, len(p.Items))
	var subtotal int64
	for i, it := range p.Items {
		if it.Quantity <= 0 {
			return order.Order{}, order.NewValidationError("items.quantity", "must be positive")
		}
		unitPrice, err := order.ParseMinorUnits(it.UnitPrice)
		if err != nil {
			return order.Order{}, &order.ValidationError{Field: "items.unitPrice", Message: err.Error()}
		}
		items[i] = order.LineItem{
			ID:        it.ID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: unitPrice,
			VariantID: it.VariantID,
		}
		subtotal += items[i].Subtotal()
	}

	shipping, err := parseOptionalAmount(p.ShippingCost)
	if err != nil {
		return order.Order{}, &order.ValidationError{Field: "shippingCost", Message: err.Error()}
	}
	tax, err := parseOptionalAmount(p.TaxAmount)
	if err != nil {
		return order.Order{}, &order.ValidationError{Field: "taxAmount", Message: err.Error()}
	}

	id := s.mintID(p.CheckoutSessionID)
	now := s.now().UTC()

	billing := p.BillingAddress
	if billing == (order.Address{}) {
		billing = p.ShippingAddress
	}

	o := order.Order{
		ID:              id,
		DisplayID:       order.DisplayID(displayPrefix, id),
		Email:           email,
		Items:           items,
		ShippingAddress: p.ShippingAddress,
		BillingAddress:  billing,
		Totals: order.Totals{
			Subtotal: subtotal,
			Shipping: shipping,
			Tax:      tax,
			Total:    subtotal + shipping + tax,
		},
		PaymentReference: p.PaymentReference,
		Status:           order.StatusPending,
		Metadata: map[string]string{
			order.MetadataCreatedVia: "fallback",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.AppendTimeline(order.TimelineFallbackCreated, now, "workflow engine unavailable")
	return o, nil
}

// mintID derives the order id.
//
// With a checkout session id the result is a UUIDv5 over the private
// namespace - deterministic, so a client retry before any id was assigned
// still converges on one order. Without one, a fresh UUIDv7.
func (s *Synthesizer) mintID(sessionID string) string {
	if sessionID != "" {
		return uuid.NewSHA1(idNamespace, []byte(sessionID)).String()
	}
	return s.gen.Generate()
}

func parseOptionalAmount(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	return order.ParseMinorUnits(v)
}
