package errors

import (
	"errors"
	"fmt"
)

// ErrCode 에러 코드
type ErrCode string

const (
	ErrCodeUnknown ErrCode = "UNKNOWN"

	// 콜백 처리 실패 분류
	ErrCodeOrderNotFound        ErrCode = "ORDER_NOT_FOUND"
	ErrCodeUnroutableCallback   ErrCode = "UNROUTABLE_CALLBACK"
	ErrCodeProviderError        ErrCode = "PROVIDER_ERROR"
	ErrCodeRefundNotAllowed     ErrCode = "REFUND_NOT_ALLOWED"
	ErrCodeRefundCreationFailed ErrCode = "REFUND_CREATION_FAILED"
	ErrCodeRefundProviderFailed ErrCode = "REFUND_PROVIDER_FAILED"

	// 인프라 실패 분류
	ErrCodeInvalidRequest     ErrCode = "INVALID_REQUEST"
	ErrCodeDatabaseError      ErrCode = "DATABASE_ERROR"
	ErrCodeSerializationError ErrCode = "SERIALIZATION_ERROR"
)

// Error 코드가 부여된 에러
type Error struct {
	Code    ErrCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New 코드와 메시지로 에러 생성
func New(code ErrCode, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap 원인 에러를 감싸서 코드 부여
func Wrap(code ErrCode, message string, err error) error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf 에러 체인에서 코드 추출. 코드가 없으면 ErrCodeUnknown.
func CodeOf(err error) ErrCode {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ErrCodeUnknown
}

// HasCode 에러 체인이 특정 코드를 가지는지 확인
func HasCode(err error, code ErrCode) bool {
	return CodeOf(err) == code
}
