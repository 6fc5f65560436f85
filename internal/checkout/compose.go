package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/fjod/hebec-shop/internal/domain"
)

// Totals are the amounts shown on the review step and sent with the order.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shippingFee"`
	Total       decimal.Decimal `json:"total"`
	TotalWeight int             `json:"totalWeight"`
}

// ComputeTotals sums the snapshot. Shipping is priced by the remote system, so the fee sent is zero.
func ComputeTotals(items domain.CartSnapshot) Totals {
	subtotal := items.Subtotal()
	fee := decimal.Zero
	return Totals{
		Subtotal:    subtotal,
		ShippingFee: fee,
		Total:       subtotal.Add(fee),
		TotalWeight: items.TotalWeight(),
	}
}

// Compose builds the order-creation request for a draft.
func Compose(draft domain.OrderDraft, idempotencyKey string) domain.OrderRequest {
	totals := ComputeTotals(draft.Items)

	items := make([]domain.OrderItemRequest, 0, len(draft.Items))
	for _, it := range draft.Items {
		weight := it.WeightGrams
		if weight <= 0 {
			weight = domain.DefaultWeightGrams
		}
		items = append(items, domain.OrderItemRequest{
			Quantity:    it.Quantity,
			ProductID:   it.ID,
			Name:        it.Name,
			Price:       it.UnitPrice,
			FinalPrice:  it.UnitPrice,
			WeightGrams: weight,
			IsGift:      false,
		})
	}

	return domain.OrderRequest{
		IdempotencyKey: idempotencyKey,
		Shipping:       draft.ShippingInfo,
		Address:        draft.ShippingInfo.Address(),
		PaymentMethod:  draft.PaymentMethod,
		Subtotal:       totals.Subtotal,
		ShippingFee:    totals.ShippingFee,
		Total:          totals.Total,
		TotalWeight:    totals.TotalWeight,
		Items:          items,
	}
}
