package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeCartChanged = "cart.changed"
	TypeOrderPlaced = "order.placed"

	HeaderEventType = "event_type"
	HeaderInstance  = "instance_id"
)

type CartChanged struct {
	SessionID     string          `json:"session_id"`
	Operation     string          `json:"operation"`
	ItemCount     int             `json:"item_count"`
	TotalQuantity int             `json:"total_quantity"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type OrderPlaced struct {
	SessionID  string          `json:"session_id"`
	OrderCode  string          `json:"order_code"`
	Direct     bool            `json:"direct"`
	Total      decimal.Decimal `json:"total"`
	OccurredAt time.Time       `json:"occurred_at"`
}
