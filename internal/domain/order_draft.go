package domain

import "strings"

type PaymentMethod string

const (
	PaymentCOD     PaymentMethod = "COD"
	PaymentOnline  PaymentMethod = "ONLINE"
	PaymentBalance PaymentMethod = "BALANCE"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentOnline, PaymentBalance:
		return true
	}
	return false
}

func (m PaymentMethod) String() string {
	return string(m)
}

type ShippingInfo struct {
	RecipientName string `json:"recipientName"`
	Phone         string `json:"phone"`
	Email         string `json:"email,omitempty"`
	Province      string `json:"province"`
	District      string `json:"district"`
	Ward          string `json:"ward"`
	AddressDetail string `json:"addressDetail"`
	Notes         string `json:"notes,omitempty"`
}

// Address joins detail, ward, district and province, in that order.
func (s ShippingInfo) Address() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{s.AddressDetail, s.Ward, s.District, s.Province} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type OrderDraft struct {
	ShippingInfo     ShippingInfo  `json:"shippingInfo"`
	PaymentMethod    PaymentMethod `json:"paymentMethod,omitempty"`
	Items            CartSnapshot  `json:"items"`
	IsDirectPurchase bool          `json:"isDirectPurchase"`
}
