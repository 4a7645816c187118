package validation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listing struct {
	ProductID int64           `json:"id_producto" validate:"required,gt=0"`
	Quantity  decimal.Decimal `json:"cantidad" validate:"required,gt=0"`
	Unit      string          `json:"unidad" validate:"required"`
	Comment   string          `json:"comentario" validate:"omitempty,min=10,max=500"`
	Kind      string          `json:"tipo" validate:"omitempty,oneof=venta compra"`
}

func TestStructValid(t *testing.T) {
	err := Struct(listing{ProductID: 1, Quantity: decimal.NewFromFloat(0.5), Unit: "kg"})
	assert.NoError(t, err)
}

func TestStructReportsJSONNames(t *testing.T) {
	err := Struct(listing{Quantity: decimal.Zero, Comment: "corto", Kind: "regalo"})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("id_producto"))
	assert.True(t, verr.Has("cantidad"))
	assert.True(t, verr.Has("unidad"))
	assert.True(t, verr.Has("comentario"))
	assert.True(t, verr.Has("tipo"))
	assert.False(t, verr.Has("precio"))
	assert.Contains(t, err.Error(), "unidad: this field is required")
	assert.Contains(t, err.Error(), "comentario: must be at least 10 characters")
}

func TestStructNegativeDecimal(t *testing.T) {
	err := Struct(listing{ProductID: 1, Quantity: decimal.NewFromInt(-3), Unit: "kg"})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "cantidad", verr.Fields[0].Field)
}
