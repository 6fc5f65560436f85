package domain

import "github.com/shopspring/decimal"

// DefaultWeightGrams is used for products the catalog returns without a weight.
const DefaultWeightGrams = 500

type LineItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	ImageRef    string          `json:"imageRef"`
	WeightGrams int             `json:"weightGrams"`
}

func (i LineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i LineItem) LineWeight() int {
	return i.WeightGrams * i.Quantity
}

// CartSnapshot is the ordered set of line items taking part in a cart or a checkout attempt.
type CartSnapshot []LineItem

func (s CartSnapshot) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (s CartSnapshot) TotalWeight() int {
	var grams int
	for _, item := range s {
		grams += item.LineWeight()
	}
	return grams
}

func (s CartSnapshot) TotalQuantity() int {
	var qty int
	for _, item := range s {
		qty += item.Quantity
	}
	return qty
}

func (s CartSnapshot) IndexOf(id string) int {
	for i := range s {
		if s[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a copy that shares no backing array with s.
func (s CartSnapshot) Clone() CartSnapshot {
	if s == nil {
		return CartSnapshot{}
	}
	out := make(CartSnapshot, len(s))
	copy(out, s)
	return out
}
