package domain

import "fmt"

// PaymentStatus 주문별 결제 상태 (영속 값)
type PaymentStatus string

const (
	PaymentStatusNone      PaymentStatus = "none"
	PaymentStatusReserved  PaymentStatus = "reserved"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// ParsePaymentStatus 문자열을 결제 상태로 변환. 도메인 밖의 값은 거부한다.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentStatusNone, PaymentStatusReserved, PaymentStatusConfirmed,
		PaymentStatusCancelled, PaymentStatusRefunded:
		return PaymentStatus(s), nil
	}
	return "", fmt.Errorf("unknown payment status: %q", s)
}

// RequestType 콜백 요청 타입
type RequestType string

const (
	RequestTypeConfirm RequestType = "confirm"
	RequestTypeCancel  RequestType = "cancel"
	RequestTypeRefund  RequestType = "refund"
)

// ParseRequestType 문자열을 요청 타입으로 변환
func ParseRequestType(s string) (RequestType, error) {
	switch RequestType(s) {
	case RequestTypeConfirm, RequestTypeCancel, RequestTypeRefund:
		return RequestType(s), nil
	}
	return "", fmt.Errorf("unknown request type: %q", s)
}

// Actor 환불 요청 주체
type Actor string

const (
	ActorProvider Actor = "provider"
	ActorCustomer Actor = "customer"
)

// Transition 콜백에 대해 허용되는 상태 전이
type Transition int

const (
	TransitionNone Transition = iota
	TransitionConfirm
	TransitionCancel
	TransitionRefundByProvider
	TransitionRefundByCustomer
)

// Route (현재 결제 상태, 요청 타입, 주체)에 대한 전이를 결정한다.
// 정의되지 않은 조합은 ok=false로 반환되며 어떤 상태도 변경해서는 안 된다.
func Route(status PaymentStatus, requestType RequestType, actor Actor) (Transition, bool) {
	switch status {
	case PaymentStatusReserved:
		switch requestType {
		case RequestTypeConfirm:
			return TransitionConfirm, true
		case RequestTypeCancel:
			return TransitionCancel, true
		}
	case PaymentStatusConfirmed:
		if requestType == RequestTypeRefund {
			switch actor {
			case ActorProvider:
				return TransitionRefundByProvider, true
			case ActorCustomer:
				return TransitionRefundByCustomer, true
			}
		}
	}
	return TransitionNone, false
}
