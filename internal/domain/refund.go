package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RefundLineItem 환불 라인. 상품 라인은 수량을 가지고 배송 라인은 수량이 0이다.
type RefundLineItem struct {
	ItemID      int64
	ProductID   int64
	Quantity    int
	RefundTotal decimal.Decimal
	RefundTax   decimal.Decimal
	ManageStock bool
}

// RefundRecord 환불 기록. 선생성 후 provider 환불 성공 시 유지, 실패 시 보상 삭제된다.
type RefundRecord struct {
	ID        int64
	OrderID   int64
	Amount    decimal.Decimal
	Reason    string
	LineItems []RefundLineItem
	CreatedAt time.Time
}

// BuildRefundLineItems 주문의 상품/배송 라인으로부터 환불 라인을 구성한다.
// 상품 라인은 수량을 그대로 전달해 이후 재고 복구에 사용한다.
func BuildRefundLineItems(items []LineItem, shipping []ShippingLine) []RefundLineItem {
	lineItems := make([]RefundLineItem, 0, len(items)+len(shipping))

	for _, item := range items {
		lineItems = append(lineItems, RefundLineItem{
			ItemID:      item.ItemID,
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			RefundTotal: item.LineTotal,
			RefundTax:   item.TaxTotal,
			ManageStock: item.ManageStock,
		})
	}

	for _, line := range shipping {
		lineItems = append(lineItems, RefundLineItem{
			ItemID:      line.ItemID,
			RefundTotal: line.Cost,
			RefundTax:   line.Tax,
		})
	}

	return lineItems
}
