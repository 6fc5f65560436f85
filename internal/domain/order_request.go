package domain

import "github.com/shopspring/decimal"

// OrderRequest is the order-creation payload composed from a confirmed draft.
type OrderRequest struct {
	IdempotencyKey string
	Shipping       ShippingInfo
	Address        string
	PaymentMethod  PaymentMethod
	Subtotal       decimal.Decimal
	ShippingFee    decimal.Decimal
	Total          decimal.Decimal
	TotalWeight    int
	Items          []OrderItemRequest
}

type OrderItemRequest struct {
	Quantity    int
	ProductID   string
	Name        string
	Price       decimal.Decimal
	FinalPrice  decimal.Decimal
	WeightGrams int
	IsGift      bool
}

// PlacedOrder identifies an order the remote API accepted.
type PlacedOrder struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}
