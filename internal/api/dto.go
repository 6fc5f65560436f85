package api

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fjod/hebec-shop/internal/domain"
)

// flexString accepts both JSON strings and numbers, since Hebec ids come in either form.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

type productDTO struct {
	ID          flexString      `json:"id"`
	MongoID     flexString      `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	ImageURL    string          `json:"imageUrl"`
	Thumbnail   string          `json:"thumbnail"`
	Weight      int             `json:"weight"`
	CategoryID  flexString      `json:"categoryId"`
}

func (p productDTO) toDomain() domain.Product {
	return domain.Product{
		ID:          firstNonEmpty(string(p.ID), string(p.MongoID)),
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		ImageRef:    firstNonEmpty(p.ImageURL, p.Image, p.Thumbnail),
		WeightGrams: p.Weight,
		CategoryID:  string(p.CategoryID),
	}
}

type categoryDTO struct {
	ID       flexString `json:"id"`
	Name     string     `json:"name"`
	Slug     string     `json:"slug"`
	ParentID flexString `json:"parentId"`
}

func (c categoryDTO) toDomain() domain.Category {
	return domain.Category{ID: string(c.ID), Name: c.Name, Slug: c.Slug, ParentID: string(c.ParentID)}
}

type customerDTO struct {
	ID       flexString      `json:"id"`
	FullName string          `json:"fullName"`
	Name     string          `json:"name"`
	Username string          `json:"username"`
	Email    string          `json:"email"`
	Phone    string          `json:"phone"`
	Role     string          `json:"role"`
	Balance  decimal.Decimal `json:"balance"`
}

func (c customerDTO) toDomain() domain.Customer {
	return domain.Customer{
		ID:       string(c.ID),
		FullName: firstNonEmpty(c.FullName, c.Name),
		Username: c.Username,
		Email:    c.Email,
		Phone:    c.Phone,
		Role:     c.Role,
		Balance:  c.Balance,
	}
}

type orderDTO struct {
	ID            flexString      `json:"id"`
	Code          string          `json:"code"`
	OrderCode     string          `json:"orderCode"`
	Status        string          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"paymentMethod"`
	RecipientName string          `json:"recipientName"`
	Address       string          `json:"address"`
	CreatedAt     string          `json:"createdAt"`
}

func (o orderDTO) toDomain() domain.Order {
	return domain.Order{
		ID:            string(o.ID),
		Code:          firstNonEmpty(o.Code, o.OrderCode),
		Status:        o.Status,
		Total:         o.Total,
		PaymentMethod: o.PaymentMethod,
		RecipientName: o.RecipientName,
		Address:       o.Address,
		CreatedAt:     o.CreatedAt,
	}
}

type regionDTO struct {
	Code flexString `json:"code"`
	ID   flexString `json:"id"`
	Name string     `json:"name"`
}

func (r regionDTO) toDomain() domain.Region {
	return domain.Region{Code: firstNonEmpty(string(r.Code), string(r.ID)), Name: r.Name}
}

type orderItemWire struct {
	Quantity   int     `json:"quantity"`
	ProductID  string  `json:"productId"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	FinalPrice float64 `json:"finalPrice"`
	Weight     int     `json:"weight"`
	IsGift     bool    `json:"isGift"`
}

type orderWire struct {
	RecipientName string          `json:"recipientName"`
	Phone         string          `json:"phone"`
	Email         string          `json:"email,omitempty"`
	Address       string          `json:"address"`
	Province      string          `json:"province"`
	District      string          `json:"district"`
	Ward          string          `json:"ward"`
	Notes         string          `json:"notes,omitempty"`
	PaymentMethod string          `json:"paymentMethod"`
	Subtotal      float64         `json:"subtotal"`
	ShippingFee   float64         `json:"shippingFee"`
	Total         float64         `json:"total"`
	TotalWeight   int             `json:"totalWeight"`
	Items         []orderItemWire `json:"items"`
}

func newOrderWire(req domain.OrderRequest) orderWire {
	items := make([]orderItemWire, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, orderItemWire{
			Quantity:   it.Quantity,
			ProductID:  it.ProductID,
			Name:       it.Name,
			Price:      it.Price.InexactFloat64(),
			FinalPrice: it.FinalPrice.InexactFloat64(),
			Weight:     it.WeightGrams,
			IsGift:     it.IsGift,
		})
	}
	return orderWire{
		RecipientName: req.Shipping.RecipientName,
		Phone:         req.Shipping.Phone,
		Email:         req.Shipping.Email,
		Address:       req.Address,
		Province:      req.Shipping.Province,
		District:      req.Shipping.District,
		Ward:          req.Shipping.Ward,
		Notes:         req.Shipping.Notes,
		PaymentMethod: req.PaymentMethod.String(),
		Subtotal:      req.Subtotal.InexactFloat64(),
		ShippingFee:   req.ShippingFee.InexactFloat64(),
		Total:         req.Total.InexactFloat64(),
		TotalWeight:   req.TotalWeight,
		Items:         items,
	}
}

func mapItems[S any, T any](in []S, fn func(S) T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
