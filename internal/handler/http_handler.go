package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kyungseok/payment-callback-go-practical/common/errors"
	"github.com/kyungseok/payment-callback-go-practical/internal/cache"
	"github.com/kyungseok/payment-callback-go-practical/internal/domain"
	"github.com/kyungseok/payment-callback-go-practical/internal/repository"
	"github.com/kyungseok/payment-callback-go-practical/internal/service"
)

const (
	msgRefundComplete = "Refund complete."
	msgRefundFailed   = "Unable to process refund. Please try again."
	msgCallbackFailed = "Unable to process callback."
)

// HTTPHandler HTTP 핸들러
type HTTPHandler struct {
	callbackService       service.CallbackService
	orderRepo             repository.OrderRepository
	orderCache            cache.OrderSummaryCache
	allowedRefundStatuses []domain.OrderStatus
	logger                *zap.Logger
}

// NewHTTPHandler HTTP 핸들러 생성
func NewHTTPHandler(
	callbackService service.CallbackService,
	orderRepo repository.OrderRepository,
	orderCache cache.OrderSummaryCache,
	allowedRefundStatuses []domain.OrderStatus,
	logger *zap.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		callbackService:       callbackService,
		orderRepo:             orderRepo,
		orderCache:            orderCache,
		allowedRefundStatuses: allowedRefundStatuses,
		logger:                logger,
	}
}

// HandleCallback 결제 제공자 콜백 엔드포인트.
// GET /callback?order_key=&request_type=&cancel_amount=&reason=
// 셀프 환불 링크를 통한 refund 요청은 customer 주체로 처리된다.
func (h *HTTPHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "INVALID_REQUEST", "method not allowed")
		return
	}

	query := r.URL.Query()

	orderKey := query.Get("order_key")
	if orderKey == "" {
		h.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "order_key is required")
		return
	}

	requestType, err := domain.ParseRequestType(query.Get("request_type"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request_type")
		return
	}

	req := domain.CallbackRequest{
		OrderKey:    orderKey,
		RequestType: requestType,
		Actor:       domain.ActorCustomer,
		Reason:      query.Get("reason"),
	}

	if requestType == domain.RequestTypeRefund {
		amount, err := decimal.NewFromString(query.Get("cancel_amount"))
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid cancel_amount")
			return
		}
		req.Amount = amount
	}

	if err := h.callbackService.HandleCallback(r.Context(), req); err != nil {
		h.writeCallbackError(w, req, err)
		return
	}

	data := map[string]interface{}{}
	if requestType == domain.RequestTypeRefund {
		data["info"] = "fully_refunded"
		data["notice"] = msgRefundComplete
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// HandleMerchantRefund 판매자측 환불 엔드포인트 (provider 주체).
// POST /internal/refund?order_key=&amount=&reason=
func (h *HTTPHandler) HandleMerchantRefund(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "INVALID_REQUEST", "method not allowed")
		return
	}

	query := r.URL.Query()

	orderKey := query.Get("order_key")
	if orderKey == "" {
		h.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "order_key is required")
		return
	}

	amount, err := decimal.NewFromString(query.Get("amount"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid amount")
		return
	}

	req := domain.CallbackRequest{
		OrderKey:    orderKey,
		RequestType: domain.RequestTypeRefund,
		Actor:       domain.ActorProvider,
		Amount:      amount,
		Reason:      query.Get("reason"),
	}

	if err := h.callbackService.HandleCallback(r.Context(), req); err != nil {
		h.writeCallbackError(w, req, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    map[string]interface{}{"info": "fully_refunded"},
	})
}

// GetOrderSummary 주문 요약 조회 (캐시 경유).
// GET /orders/summary?order_key=
func (h *HTTPHandler) GetOrderSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "INVALID_REQUEST", "method not allowed")
		return
	}

	orderKey := r.URL.Query().Get("order_key")
	if orderKey == "" {
		h.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "order_key is required")
		return
	}

	orderID, err := h.orderRepo.FindIDByOrderKey(r.Context(), orderKey)
	if err != nil {
		h.writeError(w, http.StatusNotFound, string(errors.ErrCodeOrderNotFound), "order not found")
		return
	}

	summary, err := h.orderCache.Get(r.Context(), orderID)
	if err != nil {
		h.logger.Warn("failed to read order summary cache",
			zap.Int64("orderId", orderID),
			zap.Error(err))
	}

	if summary == nil {
		order, err := h.orderRepo.GetOrderByKey(r.Context(), orderKey)
		if err != nil {
			h.writeError(w, http.StatusNotFound, string(errors.ErrCodeOrderNotFound), "order not found")
			return
		}

		summary = &cache.OrderSummary{
			OrderID:       order.ID,
			OrderKey:      order.OrderKey,
			Status:        order.Status.Prefixed(),
			PaymentStatus: string(order.PaymentStatus),
			Total:         order.Total.String(),
			Currency:      order.Currency,
			Refundable: order.PaymentStatus == domain.PaymentStatusConfirmed &&
				domain.IsCustomerRefundAllowed(order.Status, h.allowedRefundStatuses),
		}

		if err := h.orderCache.Set(r.Context(), orderID, summary); err != nil {
			h.logger.Warn("failed to set order summary cache",
				zap.Int64("orderId", orderID),
				zap.Error(err))
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    summary,
	})
}

// HealthCheck 헬스 체크
func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// writeCallbackError 콜백 처리 에러를 코드별 HTTP 응답으로 변환한다.
// 내부 상세는 로그에만 남기고 소비자에게는 일반화된 메시지를 보낸다.
func (h *HTTPHandler) writeCallbackError(w http.ResponseWriter, req domain.CallbackRequest, err error) {
	code := errors.CodeOf(err)

	message := msgCallbackFailed
	if req.RequestType == domain.RequestTypeRefund {
		message = msgRefundFailed
	}

	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeOrderNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeUnroutableCallback:
		status = http.StatusConflict
	case errors.ErrCodeRefundNotAllowed:
		status = http.StatusForbidden
	case errors.ErrCodeProviderError, errors.ErrCodeRefundProviderFailed:
		status = http.StatusBadGateway
	}

	h.writeError(w, status, string(code), message)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, status int, code string, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
