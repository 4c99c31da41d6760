package order

import (
	"strings"
	"time"
)

// Input is the ingestion payload handed over by the checkout collaborator.
// It is the already-validated shape described by the payload schema; the
// coordinator normalizes it into an Order before any write happens.
//
// All monetary amounts are integer minor currency units.
type Input struct {
	OrderID          string     `json:"orderId,omitempty"`
	Email            string     `json:"email"`
	Items            []InputItem `json:"items"`
	ShippingAddress  Address    `json:"shippingAddress"`
	BillingAddress   Address    `json:"billingAddress"`
	Totals           *Totals    `json:"totals,omitempty"`
	PaymentReference string     `json:"paymentReference,omitempty"`
	Status           Status     `json:"status,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// InputItem is one line of the ingestion payload.
type InputItem struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	VariantID string `json:"variantId,omitempty"`
}

// Normalize converts an ingestion Input into the canonical Order shape.
//
// Rules:
//   - ID is taken from the input when supplied (workflow-engine or retry
//     case); otherwise a fresh id is minted from gen. Once assigned the id
//     is immutable.
//   - Totals are recomputed from the items when the input carries none.
//     When the input does carry totals, the item subtotal is checked
//     against them so a drifted payload is rejected instead of stored.
//   - Status defaults to pending.
//
// Returns *ValidationError for malformed payloads; those are never retried.
func Normalize(in Input, gen IDGenerator, now time.Time) (Order, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return Order{}, NewValidationError("email", "missing or malformed")
	}
	if len(in.Items) == 0 {
		return Order{}, NewValidationError("items", "at least one item required")
	}

	items := make([]LineItem, len(in.Items))
	var subtotal int64
	for i, it := range in.Items {
		if it.Quantity <= 0 {
			return Order{}, NewValidationError("items.quantity", "must be positive")
		}
		if it.UnitPrice < 0 {
			return Order{}, NewValidationError("items.unitPrice", "must not be negative")
		}
		items[i] = LineItem{
			ID:        it.ID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			VariantID: it.VariantID,
		}
		subtotal += items[i].Subtotal()
	}

	totals := Totals{Subtotal: subtotal, Total: subtotal}
	if in.Totals != nil {
		if in.Totals.Subtotal != subtotal {
			return Order{}, NewValidationError("totals.subtotal", "does not match item subtotals")
		}
		totals = *in.Totals
		if want := subtotal + totals.Shipping + totals.Tax; totals.Total != want {
			return Order{}, NewValidationError("totals.total", "does not equal subtotal + shipping + tax")
		}
	}

	status := in.Status
	if status == "" {
		status = StatusPending
	}
	if !ValidStatuses[status] {
		return Order{}, NewValidationError("status", "unknown status")
	}

	id := in.OrderID
	if id == "" {
		id = gen.Generate()
	}

	billing := in.BillingAddress
	if billing == (Address{}) {
		billing = in.ShippingAddress
	}

	return Order{
		ID:               id,
		Email:            email,
		Items:            items,
		ShippingAddress:  in.ShippingAddress,
		BillingAddress:   billing,
		Totals:           totals,
		PaymentReference: in.PaymentReference,
		Status:           status,
		Metadata:         in.Metadata,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}
