package checkout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fjod/hebec-shop/internal/domain"
)

func TestValidateShipping_Phone(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{"0912345678", true},
		{"+84912345678", true},
		{"091234567", true},
		{"09123456", false},
		{"091234567890", false},
		{"09a2345678", false},
		{"++84912345", false},
	}
	for _, tt := range tests {
		s := normalizeShipping(*validShipping())
		s.Phone = tt.phone
		errs := ValidateShipping(s)
		if tt.valid {
			assert.NotContains(t, errs, "phone", tt.phone)
		} else {
			assert.Contains(t, errs, "phone", tt.phone)
		}
	}
}

func TestValidateShipping_OptionalFields(t *testing.T) {
	s := normalizeShipping(*validShipping())
	s.Email = ""
	s.Notes = ""
	assert.Nil(t, ValidateShipping(s))

	s.Email = "not-an-email"
	assert.Contains(t, ValidateShipping(s), "email")

	s.Email = ""
	s.Notes = strings.Repeat("ă", 500)
	assert.Nil(t, ValidateShipping(s))
	s.Notes += "x"
	assert.Contains(t, ValidateShipping(s), "notes")
}

func TestNormalizeShipping(t *testing.T) {
	s := normalizeShipping(domain.ShippingInfo{RecipientName: "  An ", Phone: " 091-234.5678 "})
	assert.Equal(t, "An", s.RecipientName)
	assert.Equal(t, "0912345678", s.Phone)
}

func TestValidatePayment(t *testing.T) {
	assert.Nil(t, ValidatePayment(domain.PaymentCOD, false))
	assert.Nil(t, ValidatePayment(domain.PaymentOnline, false))
	assert.Nil(t, ValidatePayment(domain.PaymentBalance, true))
	assert.Contains(t, ValidatePayment(domain.PaymentBalance, false), "paymentMethod")
	assert.Contains(t, ValidatePayment("", true), "paymentMethod")
	assert.Contains(t, ValidatePayment("CRYPTO", true), "paymentMethod")
}

func TestCompose_ItemRecords(t *testing.T) {
	item := lineItem("p1", 50000, 0)
	item.Quantity = 2
	req := Compose(domain.OrderDraft{Items: domain.CartSnapshot{item}, PaymentMethod: domain.PaymentCOD}, "key")

	assert.Equal(t, "key", req.IdempotencyKey)
	assert.Len(t, req.Items, 1)
	rec := req.Items[0]
	assert.Equal(t, "p1", rec.ProductID)
	assert.True(t, rec.Price.Equal(rec.FinalPrice))
	assert.Equal(t, domain.DefaultWeightGrams, rec.WeightGrams)
	assert.False(t, rec.IsGift)
	assert.True(t, req.ShippingFee.IsZero())
	assert.True(t, req.Total.Equal(req.Subtotal))
}
