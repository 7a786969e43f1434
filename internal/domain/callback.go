package domain

import "github.com/shopspring/decimal"

// CallbackRequest 인바운드 콜백 1회 처리 동안만 존재하는 요청. 영속되지 않는다.
type CallbackRequest struct {
	OrderKey    string
	RequestType RequestType
	Actor       Actor
	Amount      decimal.Decimal // refund 요청에서만 사용
	Reason      string
}
