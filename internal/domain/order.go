package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderStatus 주문 상태 (결제 상태와 별개로 Order Store가 관리)
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusOnHold     OrderStatus = "on-hold"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
	OrderStatusFailed     OrderStatus = "failed"
)

// ParseOrderStatus 문자열을 주문 상태로 변환. 도메인 밖의 값은 거부한다.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusOnHold,
		OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded,
		OrderStatusFailed:
		return OrderStatus(s), nil
	}
	return "", fmt.Errorf("unknown order status: %q", s)
}

// Prefixed 설정/노출용 접두어 형태 반환 (예: "wc-completed")
func (s OrderStatus) Prefixed() string {
	return "wc-" + string(s)
}

// IsCustomerRefundAllowed 주문 상태가 소비자 셀프 환불 허용 목록에 포함되는지 판단한다.
// 허용 목록은 로드 시점에 검증된 값만 담는다.
func IsCustomerRefundAllowed(status OrderStatus, allowed []OrderStatus) bool {
	for _, a := range allowed {
		if a == status {
			return true
		}
	}
	return false
}

// Order 주문. Order Store가 소유하며 본 서비스는 결제 상태 전이의 결정만 담당한다.
type Order struct {
	ID            int64
	OrderKey      string
	Status        OrderStatus
	PaymentStatus PaymentStatus
	TransactionID string // 결제 예약 시 provider가 발급한 거래 ID
	Total         decimal.Decimal
	Currency      string
}

// LineItem 주문 상품 라인
type LineItem struct {
	ItemID      int64
	ProductID   int64
	Quantity    int
	LineTotal   decimal.Decimal
	TaxTotal    decimal.Decimal
	ManageStock bool
}

// ShippingLine 배송 라인. 수량 없이 비용과 세금만 가진다.
type ShippingLine struct {
	ItemID int64
	Cost   decimal.Decimal
	Tax    decimal.Decimal
}
