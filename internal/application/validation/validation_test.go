package validation

import (
	"errors"
	"testing"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type sampleRequest struct {
	ProductID uuid.UUID           `json:"product_id" validate:"required"`
	Name      string              `json:"name" validate:"required,max=5"`
	Kind      string              `json:"kind" validate:"omitempty,oneof=IN OUT"`
	Price     decimal.Decimal     `json:"price" validate:"gte=0"`
	Discount  decimal.NullDecimal `json:"discount" validate:"omitempty,gte=0,lte=100"`
}

func TestStruct(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		req := sampleRequest{
			ProductID: uuid.New(),
			Name:      "bolt",
			Kind:      "IN",
			Price:     decimal.RequireFromString("1.25"),
			Discount:  decimal.NewNullDecimal(decimal.NewFromInt(10)),
		}
		assert.NoError(t, Struct(req))
	})

	t.Run("reports every field by json name", func(t *testing.T) {
		req := sampleRequest{
			Name:     "too long name",
			Kind:     "SIDEWAYS",
			Price:    decimal.RequireFromString("-1"),
			Discount: decimal.NewNullDecimal(decimal.NewFromInt(150)),
		}
		err := Struct(req)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
		for _, field := range []string{"product_id", "name", "kind", "price", "discount"} {
			assert.Contains(t, err.Error(), field)
		}
	})
}
