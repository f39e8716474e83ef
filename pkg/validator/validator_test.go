package validator

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addItemPayload struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

func TestValidate_OK(t *testing.T) {
	err := Validate(addItemPayload{ProductID: "prod-1", Quantity: 2})
	assert.NoError(t, err)
}

func TestValidate_MissingRequired(t *testing.T) {
	err := Validate(addItemPayload{Quantity: 1})

	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields(), "ProductID")
	assert.Equal(t, "is required", valErr.Fields()["ProductID"])
}

func TestValidate_QuantityBelowOne(t *testing.T) {
	err := Validate(addItemPayload{ProductID: "prod-1", Quantity: 0})

	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Error(), "Quantity")
}

func TestDecodeAndValidate_OK(t *testing.T) {
	req := httptest.NewRequest("POST", "/cart/items", strings.NewReader(`{"product_id":"prod-1","quantity":3}`))

	var payload addItemPayload
	err := DecodeAndValidate(req, &payload)

	require.NoError(t, err)
	assert.Equal(t, "prod-1", payload.ProductID)
	assert.Equal(t, 3, payload.Quantity)
}

func TestDecodeAndValidate_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/cart/items", strings.NewReader(`{"product_id":`))

	var payload addItemPayload
	err := DecodeAndValidate(req, &payload)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}
