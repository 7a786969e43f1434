package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kyungseok/payment-callback-go-practical/common/errors"
	"github.com/kyungseok/payment-callback-go-practical/common/events"
	"github.com/kyungseok/payment-callback-go-practical/internal/cache"
	"github.com/kyungseok/payment-callback-go-practical/internal/domain"
	"github.com/kyungseok/payment-callback-go-practical/internal/provider"
	"github.com/kyungseok/payment-callback-go-practical/internal/repository"
)

// RefundService 환불 오케스트레이터 인터페이스.
// 주문 행 잠금 트랜잭션(tx) 아래에서 호출된다.
type RefundService interface {
	Refund(ctx context.Context, tx *sql.Tx, order *domain.Order, actor domain.Actor, amount decimal.Decimal, reason string) error
}

type refundService struct {
	orderRepo  repository.OrderRepository
	refundRepo repository.RefundRepository
	outboxRepo repository.OutboxRepository
	provider   provider.Client
	cache      cache.OrderSummaryCache
	logger     *zap.Logger
}

// NewRefundService 환불 서비스 생성
func NewRefundService(
	orderRepo repository.OrderRepository,
	refundRepo repository.RefundRepository,
	outboxRepo repository.OutboxRepository,
	providerClient provider.Client,
	orderCache cache.OrderSummaryCache,
	logger *zap.Logger,
) RefundService {
	return &refundService{
		orderRepo:  orderRepo,
		refundRepo: refundRepo,
		outboxRepo: outboxRepo,
		provider:   providerClient,
		cache:      orderCache,
		logger:     logger,
	}
}

// Refund 환불 처리.
//
// 환불 기록을 선생성한 뒤 provider에 환불을 요청하고, provider가 실패하면
// 선생성한 기록을 보상 삭제한다. provider측 환불 없이 환불 기록만 남는
// 상태는 허용되지 않는다. 환불 기록 생성/삭제는 주문 행 잠금 트랜잭션과
// 분리된 명시적 try/compensate로 처리한다.
func (s *refundService) Refund(ctx context.Context, tx *sql.Tx, order *domain.Order, actor domain.Actor, amount decimal.Decimal, reason string) error {
	// 1. 주문 라인으로부터 환불 라인 구성
	items, shipping, err := s.orderRepo.GetLineItems(ctx, order.ID)
	if err != nil {
		return err
	}
	lineItems := domain.BuildRefundLineItems(items, shipping)

	// 2. 환불 기록 선생성
	refund := &domain.RefundRecord{
		OrderID:   order.ID,
		Amount:    amount,
		Reason:    reason,
		LineItems: lineItems,
		CreatedAt: time.Now(),
	}

	if err := s.refundRepo.Create(ctx, refund); err != nil {
		// provider 호출 전이므로 보상할 것이 없다.
		s.logger.Error("failed to create refund record",
			zap.Int64("orderId", order.ID),
			zap.Error(err))
		return errors.Wrap(errors.ErrCodeRefundCreationFailed, "failed to create refund record", err)
	}

	// 3. provider 환불 요청, 실패 시 보상 삭제
	if err := s.provider.Refund(ctx, actor, order, amount, reason); err != nil {
		if delErr := s.refundRepo.Delete(ctx, refund.ID); delErr != nil {
			s.logger.Error("failed to delete refund record after provider failure",
				zap.Int64("orderId", order.ID),
				zap.Int64("refundId", refund.ID),
				zap.Error(delErr))
		}
		s.logger.Error("provider refund failed",
			zap.Int64("orderId", order.ID),
			zap.Int64("refundId", refund.ID),
			zap.String("actor", string(actor)),
			zap.Error(err))
		return errors.Wrap(errors.ErrCodeRefundProviderFailed, "provider refund failed", err)
	}

	// 4. 결제 상태 전이 (잠금 트랜잭션 안에서 커밋)
	if err := s.orderRepo.UpdatePaymentStatusTx(ctx, tx, order.ID, domain.PaymentStatusRefunded); err != nil {
		return err
	}

	now := time.Now()
	correlationID := uuid.New().String()
	refundedEvent := events.PaymentRefundedEvent{
		BaseEvent: events.BaseEvent{
			EventID:       uuid.New().String(),
			EventType:     events.EventPaymentRefunded,
			SchemaVersion: 1,
			OccurredAt:    now,
			CorrelationID: correlationID,
		},
		OrderID:  order.ID,
		RefundID: refund.ID,
		Actor:    string(actor),
		Amount:   amount,
	}

	if err := s.insertOutboxTx(ctx, tx, order.ID, events.EventPaymentRefunded, refundedEvent); err != nil {
		return err
	}

	// 5. 재고 복구 및 감사 노트
	s.restoreStock(ctx, tx, order, lineItems, correlationID)

	// 6. 주문 요약 캐시 무효화
	if err := s.cache.Invalidate(ctx, order.ID); err != nil {
		s.logger.Warn("failed to invalidate order summary cache",
			zap.Int64("orderId", order.ID),
			zap.Error(err))
	}

	s.logger.Info("refund processed",
		zap.Int64("orderId", order.ID),
		zap.Int64("refundId", refund.ID),
		zap.String("actor", string(actor)),
		zap.String("amount", amount.String()))
	return nil
}

// restoreStock 재고 관리 대상 상품 라인의 재고를 환불 수량만큼 복구한다.
// 개별 라인의 실패는 로그만 남기고 나머지 라인을 계속 처리한다.
func (s *refundService) restoreStock(ctx context.Context, tx *sql.Tx, order *domain.Order, lineItems []domain.RefundLineItem, correlationID string) {
	for _, item := range lineItems {
		if !item.ManageStock || item.Quantity <= 0 {
			continue
		}

		oldStock, newStock, err := s.orderRepo.IncreaseStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			s.logger.Error("failed to restore stock",
				zap.Int64("orderId", order.ID),
				zap.Int64("productId", item.ProductID),
				zap.Error(err))
			continue
		}

		note := fmt.Sprintf("Item #%d stock increased from %d to %d.", item.ProductID, oldStock, newStock)
		if err := s.orderRepo.AddOrderNote(ctx, order.ID, note); err != nil {
			s.logger.Error("failed to add order note",
				zap.Int64("orderId", order.ID),
				zap.Int64("productId", item.ProductID),
				zap.Error(err))
		}

		event := events.StockRestoredEvent{
			BaseEvent: events.BaseEvent{
				EventID:       uuid.New().String(),
				EventType:     events.EventStockRestored,
				SchemaVersion: 1,
				OccurredAt:    time.Now(),
				CorrelationID: correlationID,
			},
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			OldStock:  oldStock,
			NewStock:  newStock,
		}
		if err := s.insertOutboxTx(ctx, tx, order.ID, events.EventStockRestored, event); err != nil {
			s.logger.Error("failed to insert stock restored event",
				zap.Int64("orderId", order.ID),
				zap.Int64("productId", item.ProductID),
				zap.Error(err))
		}

		s.logger.Info("stock restored",
			zap.Int64("orderId", order.ID),
			zap.Int64("productId", item.ProductID),
			zap.Int("quantity", item.Quantity),
			zap.Int("oldStock", oldStock),
			zap.Int("newStock", newStock))
	}
}

func (s *refundService) insertOutboxTx(ctx context.Context, tx *sql.Tx, orderID int64, eventType events.EventType, event interface{}) error {
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
