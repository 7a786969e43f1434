package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType 이벤트 타입 정의
type EventType string

const (
	// Payment Events
	EventPaymentConfirmed EventType = "payment.confirmed.v1"
	EventPaymentCanceled  EventType = "payment.canceled.v1"
	EventPaymentRefunded  EventType = "payment.refunded.v1"

	// Inventory Events
	EventStockRestored EventType = "stock.restored.v1"
)

// BaseEvent 모든 이벤트의 기본 구조
type BaseEvent struct {
	EventID       string    `json:"eventId"`
	EventType     EventType `json:"eventType"`
	SchemaVersion int       `json:"schemaVersion"`
	OccurredAt    time.Time `json:"occurredAt"`
	CorrelationID string    `json:"correlationId"` // 콜백 처리 단위로 부여
}

// PaymentConfirmedEvent 결제 확정 이벤트
type PaymentConfirmedEvent struct {
	BaseEvent
	OrderID       int64           `json:"orderId"`
	TransactionID string          `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

// PaymentCanceledEvent 결제 예약 취소 이벤트
type PaymentCanceledEvent struct {
	BaseEvent
	OrderID       int64  `json:"orderId"`
	TransactionID string `json:"transactionId"`
}

// PaymentRefundedEvent 결제 환불 이벤트
type PaymentRefundedEvent struct {
	BaseEvent
	OrderID  int64           `json:"orderId"`
	RefundID int64           `json:"refundId"`
	Actor    string          `json:"actor"`
	Amount   decimal.Decimal `json:"amount"`
}

// StockRestoredEvent 환불에 따른 재고 복구 이벤트
type StockRestoredEvent struct {
	BaseEvent
	OrderID   int64 `json:"orderId"`
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
	OldStock  int   `json:"oldStock"`
	NewStock  int   `json:"newStock"`
}
