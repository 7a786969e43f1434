package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kyungseok/payment-callback-go-practical/common/errors"
	"github.com/kyungseok/payment-callback-go-practical/common/events"
	"github.com/kyungseok/payment-callback-go-practical/internal/domain"
	"github.com/kyungseok/payment-callback-go-practical/internal/provider"
	"github.com/kyungseok/payment-callback-go-practical/internal/repository"
)

// CallbackService 결제 제공자 콜백 처리 서비스 인터페이스
type CallbackService interface {
	HandleCallback(ctx context.Context, req domain.CallbackRequest) error
}

type callbackService struct {
	orderRepo  repository.OrderRepository
	outboxRepo repository.OutboxRepository
	provider   provider.Client
	refundSvc  RefundService

	// allowedRefundStatuses 로드 시점에 검증된 소비자 환불 허용 목록
	allowedRefundStatuses []domain.OrderStatus

	logger *zap.Logger
}

// NewCallbackService 콜백 서비스 생성
func NewCallbackService(
	orderRepo repository.OrderRepository,
	outboxRepo repository.OutboxRepository,
	providerClient provider.Client,
	refundSvc RefundService,
	allowedRefundStatuses []domain.OrderStatus,
	logger *zap.Logger,
) CallbackService {
	return &callbackService{
		orderRepo:             orderRepo,
		outboxRepo:            outboxRepo,
		provider:              providerClient,
		refundSvc:             refundSvc,
		allowedRefundStatuses: allowedRefundStatuses,
		logger:                logger,
	}
}

// HandleCallback 콜백 1건 처리.
//
// 처리 가능한 조합은 아래뿐이다.
//
//	payment status: reserved  -> request type: confirm, cancel
//	payment status: confirmed -> request type: refund (provider/customer)
//
// 그 외 조합은 상태 변경 없이 에러 로그 1건으로 끝난다. 동일 주문에 대한
// 동시 콜백은 주문 행 잠금으로 직렬화되므로 두 번째 confirm은 이미
// confirmed 상태를 보고 라우팅에 실패한다. 별도 중복 제거 저장소는 없다.
func (s *callbackService) HandleCallback(ctx context.Context, req domain.CallbackRequest) error {
	orderID, err := s.orderRepo.FindIDByOrderKey(ctx, req.OrderKey)
	if err != nil {
		s.logger.Error("order not found for callback",
			zap.String("orderKey", req.OrderKey),
			zap.String("requestType", string(req.RequestType)),
			zap.Error(err))
		return errors.Wrap(errors.ErrCodeOrderNotFound, "unable to process callback", err)
	}

	return s.orderRepo.WithOrderLock(ctx, orderID, func(tx *sql.Tx, order *domain.Order) error {
		transition, ok := domain.Route(order.PaymentStatus, req.RequestType, req.Actor)
		if !ok {
			s.logger.Error("unable to process callback",
				zap.Int64("orderId", order.ID),
				zap.String("paymentStatus", string(order.PaymentStatus)),
				zap.String("requestType", string(req.RequestType)),
				zap.String("actor", string(req.Actor)))
			return errors.New(errors.ErrCodeUnroutableCallback, "no transition for callback")
		}

		switch transition {
		case domain.TransitionConfirm:
			return s.confirm(ctx, tx, order)

		case domain.TransitionCancel:
			return s.cancel(ctx, tx, order)

		case domain.TransitionRefundByProvider:
			return s.refundSvc.Refund(ctx, tx, order, domain.ActorProvider, req.Amount, req.Reason)

		case domain.TransitionRefundByCustomer:
			// 액션 노출 여부와 별개로 서버측에서 다시 인가를 검사한다.
			if !domain.IsCustomerRefundAllowed(order.Status, s.allowedRefundStatuses) {
				s.logger.Warn("customer refund not allowed for order status",
					zap.Int64("orderId", order.ID),
					zap.String("orderStatus", string(order.Status)))
				return errors.New(errors.ErrCodeRefundNotAllowed, "customer refund not allowed for order status")
			}
			return s.refundSvc.Refund(ctx, tx, order, domain.ActorCustomer, req.Amount, req.Reason)
		}

		return errors.New(errors.ErrCodeUnroutableCallback, "no transition for callback")
	})
}

// confirm 예약 결제 확정. provider 성공 시에만 상태를 쓴다.
func (s *callbackService) confirm(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	if err := s.provider.Confirm(ctx, order); err != nil {
		s.logger.Error("provider confirm failed",
			zap.Int64("orderId", order.ID),
			zap.Error(err))
		return err
	}

	if err := s.orderRepo.UpdatePaymentStatusTx(ctx, tx, order.ID, domain.PaymentStatusConfirmed); err != nil {
		return err
	}

	now := time.Now()
	event := events.PaymentConfirmedEvent{
		BaseEvent: events.BaseEvent{
			EventID:       uuid.New().String(),
			EventType:     events.EventPaymentConfirmed,
			SchemaVersion: 1,
			OccurredAt:    now,
			CorrelationID: uuid.New().String(),
		},
		OrderID:       order.ID,
		TransactionID: order.TransactionID,
		Amount:        order.Total,
		Currency:      order.Currency,
	}

	if err := s.insertOutboxTx(ctx, tx, order.ID, events.EventPaymentConfirmed, event); err != nil {
		return err
	}

	s.logger.Info("payment confirmed",
		zap.Int64("orderId", order.ID),
		zap.String("transactionId", order.TransactionID))
	return nil
}

// cancel 예약 결제 취소. provider 성공 시에만 상태를 쓴다.
func (s *callbackService) cancel(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	if err := s.provider.Cancel(ctx, order); err != nil {
		s.logger.Error("provider cancel failed",
			zap.Int64("orderId", order.ID),
			zap.Error(err))
		return err
	}

	if err := s.orderRepo.UpdatePaymentStatusTx(ctx, tx, order.ID, domain.PaymentStatusCancelled); err != nil {
		return err
	}

	now := time.Now()
	event := events.PaymentCanceledEvent{
		BaseEvent: events.BaseEvent{
			EventID:       uuid.New().String(),
			EventType:     events.EventPaymentCanceled,
			SchemaVersion: 1,
			OccurredAt:    now,
			CorrelationID: uuid.New().String(),
		},
		OrderID:       order.ID,
		TransactionID: order.TransactionID,
	}

	if err := s.insertOutboxTx(ctx, tx, order.ID, events.EventPaymentCanceled, event); err != nil {
		return err
	}

	s.logger.Info("payment canceled",
		zap.Int64("orderId", order.ID),
		zap.String("transactionId", order.TransactionID))
	return nil
}

func (s *callbackService) insertOutboxTx(ctx context.Context, tx *sql.Tx, orderID int64, eventType events.EventType, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSerializationError, "failed to marshal event", err)
	}

	return s.outboxRepo.InsertTx(ctx, tx, &repository.OutboxEvent{
		AggregateType: "order",
		AggregateID:   orderID,
		EventType:     string(eventType),
		Payload:       payload,
	})
}
