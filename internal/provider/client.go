package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kyungseok/payment-callback-go-practical/common/errors"
	"github.com/kyungseok/payment-callback-go-practical/internal/domain"
)

// Client 결제 제공자 클라이언트 인터페이스.
// 타임아웃을 포함한 모든 실패는 ProviderError로 취급되며 부분 성공 상태는 없다.
type Client interface {
	Confirm(ctx context.Context, order *domain.Order) error
	Cancel(ctx context.Context, order *domain.Order) error
	Refund(ctx context.Context, actor domain.Actor, order *domain.Order, amount decimal.Decimal, reason string) error
}

const returnCodeSuccess = "0000"

// HTTPClient HTTP 기반 결제 제공자 클라이언트
type HTTPClient struct {
	baseURL       string
	channelID     string
	channelSecret string
	httpClient    *http.Client
	logger        *zap.Logger
}

// NewHTTPClient HTTP 클라이언트 생성
func NewHTTPClient(baseURL, channelID, channelSecret string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:       baseURL,
		channelID:     channelID,
		channelSecret: channelSecret,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger,
	}
}

// Confirm 예약된 결제 확정 요청
func (c *HTTPClient) Confirm(ctx context.Context, order *domain.Order) error {
	body := map[string]interface{}{
		"amount":   order.Total,
		"currency": order.Currency,
	}
	return c.post(ctx, fmt.Sprintf("/v2/payments/%s/confirm", order.TransactionID), body)
}

// Cancel 예약된 결제 취소 요청
func (c *HTTPClient) Cancel(ctx context.Context, order *domain.Order) error {
	return c.post(ctx, fmt.Sprintf("/v2/payments/%s/void", order.TransactionID), map[string]interface{}{})
}

// Refund 확정된 결제 환불 요청
func (c *HTTPClient) Refund(ctx context.Context, actor domain.Actor, order *domain.Order, amount decimal.Decimal, reason string) error {
	body := map[string]interface{}{
		"refundAmount": amount,
		"requestedBy":  string(actor),
	}
	if reason != "" {
		body["refundReason"] = reason
	}
	return c.post(ctx, fmt.Sprintf("/v2/payments/%s/refund", order.TransactionID), body)
}

type providerResponse struct {
	ReturnCode    string `json:"returnCode"`
	ReturnMessage string `json:"returnMessage"`
}

func (c *HTTPClient) post(ctx context.Context, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSerializationError, "failed to marshal provider request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(errors.ErrCodeProviderError, "failed to build provider request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Channel-Id", c.channelID)
	req.Header.Set("X-Channel-Secret", c.channelSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// 타임아웃 포함. 재시도는 하지 않는다.
		return errors.Wrap(errors.ErrCodeProviderError, "provider request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New(errors.ErrCodeProviderError,
			fmt.Sprintf("provider returned http status %d", resp.StatusCode))
	}

	var result providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return errors.Wrap(errors.ErrCodeProviderError, "failed to decode provider response", err)
	}

	if result.ReturnCode != returnCodeSuccess {
		c.logger.Warn("provider rejected request",
			zap.String("path", path),
			zap.String("returnCode", result.ReturnCode),
			zap.String("returnMessage", result.ReturnMessage))
		return errors.New(errors.ErrCodeProviderError,
			fmt.Sprintf("provider returned code %s: %s", result.ReturnCode, result.ReturnMessage))
	}

	return nil
}
