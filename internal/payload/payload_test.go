package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ordercap/internal/order"
)

const validPayload = `{
	"email": "jo@example.com",
	"items": [
		{"title": "Widget", "quantity": 3, "unitPrice": 1250}
	],
	"shippingAddress": {"line1": "1 Main St", "city": "Springfield", "country": "US"}
}`

func TestValidate_AcceptsMinimalPayload(t *testing.T) {
	assert.NoError(t, Validate([]byte(validPayload)))
}

func TestValidate_AcceptsFullPayload(t *testing.T) {
	full := `{
		"orderId": "ord-1",
		"email": "jo@example.com",
		"items": [
			{"id": "sku-1", "title": "Widget", "quantity": 3, "unitPrice": 1250, "variantId": "v1"}
		],
		"shippingAddress": {"line1": "1 Main St"},
		"billingAddress": {"line1": "2 Oak Ave"},
		"totals": {"subtotal": 3750, "shipping": 500, "tax": 300, "total": 4550},
		"paymentReference": "pay_abc",
		"status": "paid",
		"metadata": {"source": "checkout"}
	}`
	assert.NoError(t, Validate([]byte(full)))
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"not json", `{"email": `},
		{"missing email", `{"items":[{"title":"W","quantity":1,"unitPrice":100}],"shippingAddress":{}}`},
		{"malformed email", `{"email":"nope","items":[{"title":"W","quantity":1,"unitPrice":100}],"shippingAddress":{}}`},
		{"empty items", `{"email":"jo@example.com","items":[],"shippingAddress":{}}`},
		{"zero quantity", `{"email":"jo@example.com","items":[{"title":"W","quantity":0,"unitPrice":100}],"shippingAddress":{}}`},
		{"negative price", `{"email":"jo@example.com","items":[{"title":"W","quantity":1,"unitPrice":-1}],"shippingAddress":{}}`},
		{"float price", `{"email":"jo@example.com","items":[{"title":"W","quantity":1,"unitPrice":12.5}],"shippingAddress":{}}`},
		{"unknown status", `{"email":"jo@example.com","items":[{"title":"W","quantity":1,"unitPrice":100}],"shippingAddress":{},"status":"shipped"}`},
		{"empty title", `{"email":"jo@example.com","items":[{"title":"","quantity":1,"unitPrice":100}],"shippingAddress":{}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate([]byte(tc.payload))
			require.Error(t, err)
			assert.True(t, order.IsValidationError(err), "expected ValidationError, got %v", err)
		})
	}
}

func TestValidate_ErrorCarriesDiagnostic(t *testing.T) {
	err := Validate([]byte(`{"email":"jo@example.com","items":[],"shippingAddress":{}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "items")
}
