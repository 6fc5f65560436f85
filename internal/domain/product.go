package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ImageRef    string          `json:"imageRef,omitempty"`
	WeightGrams int             `json:"weightGrams,omitempty"`
	CategoryID  string          `json:"categoryId,omitempty"`
}

// LineItem converts a catalog product into a cart line with the given quantity.
func (p Product) LineItem(quantity int) LineItem {
	weight := p.WeightGrams
	if weight <= 0 {
		weight = DefaultWeightGrams
	}
	return LineItem{
		ID:          p.ID,
		Name:        p.Name,
		UnitPrice:   p.Price,
		Quantity:    quantity,
		ImageRef:    p.ImageRef,
		WeightGrams: weight,
	}
}

type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug,omitempty"`
	ParentID string `json:"parentId,omitempty"`
}

type Customer struct {
	ID       string          `json:"id"`
	FullName string          `json:"fullName"`
	Username string          `json:"username,omitempty"`
	Email    string          `json:"email,omitempty"`
	Phone    string          `json:"phone,omitempty"`
	Role     string          `json:"role,omitempty"`
	Balance  decimal.Decimal `json:"balance"`
}

type Order struct {
	ID            string          `json:"id"`
	Code          string          `json:"code"`
	Status        string          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	RecipientName string          `json:"recipientName,omitempty"`
	Address       string          `json:"address,omitempty"`
	CreatedAt     string          `json:"createdAt,omitempty"`
}

// Region is one level of the province / district / ward hierarchy.
type Region struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Page is the canonical shape of every remote list response.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}
