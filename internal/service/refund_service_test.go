package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kyungseok/payment-callback-go-practical/common/errors"
	"github.com/kyungseok/payment-callback-go-practical/common/logger"
	"github.com/kyungseok/payment-callback-go-practical/internal/domain"
)

func refundableOrder() *domain.Order {
	return &domain.Order{
		ID:            3,
		OrderKey:      "wc_order_o3",
		Status:        domain.OrderStatusCompleted,
		PaymentStatus: domain.PaymentStatusConfirmed,
		TransactionID: "tx-20260831-0003",
		Total:         decimal.RequireFromString("35.50"),
		Currency:      "USD",
	}
}

func orderLineItems() []domain.LineItem {
	return []domain.LineItem{
		{ItemID: 31, ProductID: 301, Quantity: 2,
			LineTotal:   decimal.RequireFromString("30.00"),
			TaxTotal:    decimal.RequireFromString("3.00"),
			ManageStock: true},
	}
}

func orderShippingLines() []domain.ShippingLine {
	return []domain.ShippingLine{
		{ItemID: 32, Cost: decimal.RequireFromString("2.50")},
	}
}

func newRefundServiceForTest(
	orderRepo *mockOrderRepository,
	refundRepo *mockRefundRepository,
	outboxRepo *mockOutboxRepository,
	providerClient *mockProviderClient,
	orderCache *mockOrderCache,
) RefundService {
	return NewRefundService(orderRepo, refundRepo, outboxRepo, providerClient, orderCache, logger.NewTestLogger())
}

// 환불 성공: 기록 생성 → provider 성공 → refunded 전이 → 재고 복구 → 캐시 무효화
func TestRefundSuccess(t *testing.T) {
	order := refundableOrder()
	amount := decimal.RequireFromString("35.50")

	orderRepo := &mockOrderRepository{}
	refundRepo := &mockRefundRepository{}
	outboxRepo := &mockOutboxRepository{}
	providerClient := &mockProviderClient{}
	orderCache := &mockOrderCache{}

	orderRepo.On("GetLineItems", mock.Anything, int64(3)).
		Return(orderLineItems(), orderShippingLines(), nil)
	refundRepo.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.RefundRecord).ID = 77
		}).
		Return(nil)
	providerClient.On("Refund", mock.Anything, domain.ActorCustomer, order, mock.Anything, "").Return(nil)
	orderRepo.On("UpdatePaymentStatusTx", mock.Anything, mock.Anything, int64(3), domain.PaymentStatusRefunded).Return(nil)
	outboxRepo.On("InsertTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	orderRepo.On("IncreaseStock", mock.Anything, int64(301), 2).Return(5, 7, nil)
	orderRepo.On("AddOrderNote", mock.Anything, int64(3), "Item #301 stock increased from 5 to 7.").Return(nil)
	orderCache.On("Invalidate", mock.Anything, int64(3)).Return(nil)

	svc := newRefundServiceForTest(orderRepo, refundRepo, outboxRepo, providerClient, orderCache)

	err := svc.Refund(context.Background(), nil, order, domain.ActorCustomer, amount, "")
	require.NoError(t, err)

	// 재고 복구와 감사 노트는 라인당 정확히 1회
	orderRepo.AssertNumberOfCalls(t, "IncreaseStock", 1)
	orderRepo.AssertNumberOfCalls(t, "AddOrderNote", 1)
	orderCache.AssertNumberOfCalls(t, "Invalidate", 1)
	refundRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

	// payment.refunded.v1 + stock.restored.v1
	outboxRepo.AssertNumberOfCalls(t, "InsertTx", 2)
}

// 환불 기록 생성 실패 시 provider 호출 없이 중단된다.
func TestRefundCreationFailed(t *testing.T) {
	order := refundableOrder()

	orderRepo := &mockOrderRepository{}
	refundRepo := &mockRefundRepository{}
	outboxRepo := &mockOutboxRepository{}
	providerClient := &mockProviderClient{}
	orderCache := &mockOrderCache{}

	orderRepo.On("GetLineItems", mock.Anything, int64(3)).
		Return(orderLineItems(), orderShippingLines(), nil)
	refundRepo.On("Create", mock.Anything, mock.Anything).
		Return(errors.New(errors.ErrCodeDatabaseError, "failed to create refund"))

	svc := newRefundServiceForTest(orderRepo, refundRepo, outboxRepo, providerClient, orderCache)

	err := svc.Refund(context.Background(), nil, order, domain.ActorCustomer,
		decimal.RequireFromString("35.50"), "")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeRefundCreationFailed, errors.CodeOf(err))
	providerClient.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	refundRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	orderRepo.AssertNotCalled(t, "UpdatePaymentStatusTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// 시나리오 D: provider 환불 실패 시 선생성된 기록이 보상 삭제되고 상태는 confirmed로 남는다.
func TestRefundProviderFailureCompensates(t *testing.T) {
	order := refundableOrder()

	orderRepo := &mockOrderRepository{}
	refundRepo := &mockRefundRepository{}
	outboxRepo := &mockOutboxRepository{}
	providerClient := &mockProviderClient{}
	orderCache := &mockOrderCache{}

	orderRepo.On("GetLineItems", mock.Anything, int64(3)).
		Return(orderLineItems(), orderShippingLines(), nil)
	refundRepo.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.RefundRecord).ID = 88
		}).
		Return(nil)
	providerClient.On("Refund", mock.Anything, domain.ActorCustomer, order, mock.Anything, "").
		Return(errors.New(errors.ErrCodeProviderError, "provider returned code 1198"))
	refundRepo.On("Delete", mock.Anything, int64(88)).Return(nil)

	svc := newRefundServiceForTest(orderRepo, refundRepo, outboxRepo, providerClient, orderCache)

	err := svc.Refund(context.Background(), nil, order, domain.ActorCustomer,
		decimal.RequireFromString("35.50"), "")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeRefundProviderFailed, errors.CodeOf(err))

	// 보상 삭제는 정확히 1회, 상태 전이와 부수 효과는 없다
	refundRepo.AssertNumberOfCalls(t, "Delete", 1)
	orderRepo.AssertNotCalled(t, "UpdatePaymentStatusTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	orderRepo.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything)
	orderCache.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

// 재고 관리 대상이 아닌 라인은 재고 복구를 건너뛴다.
func TestRefundSkipsStockForUnmanagedItems(t *testing.T) {
	order := refundableOrder()

	orderRepo := &mockOrderRepository{}
	refundRepo := &mockRefundRepository{}
	outboxRepo := &mockOutboxRepository{}
	providerClient := &mockProviderClient{}
	orderCache := &mockOrderCache{}

	items := []domain.LineItem{
		{ItemID: 41, ProductID: 401, Quantity: 1,
			LineTotal: decimal.RequireFromString("10.00")},
	}

	orderRepo.On("GetLineItems", mock.Anything, int64(3)).Return(items, nil, nil)
	refundRepo.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.RefundRecord).ID = 99
		}).
		Return(nil)
	providerClient.On("Refund", mock.Anything, domain.ActorProvider, order, mock.Anything, "").Return(nil)
	orderRepo.On("UpdatePaymentStatusTx", mock.Anything, mock.Anything, int64(3), domain.PaymentStatusRefunded).Return(nil)
	outboxRepo.On("InsertTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	orderCache.On("Invalidate", mock.Anything, int64(3)).Return(nil)

	svc := newRefundServiceForTest(orderRepo, refundRepo, outboxRepo, providerClient, orderCache)

	err := svc.Refund(context.Background(), nil, order, domain.ActorProvider,
		decimal.RequireFromString("10.00"), "")
	require.NoError(t, err)

	orderRepo.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything)
	orderRepo.AssertNotCalled(t, "AddOrderNote", mock.Anything, mock.Anything, mock.Anything)
}

// 개별 상품의 재고 복구 실패는 환불 전체를 실패시키지 않는다.
func TestRefundContinuesWhenStockRestoreFails(t *testing.T) {
	order := refundableOrder()

	orderRepo := &mockOrderRepository{}
	refundRepo := &mockRefundRepository{}
	outboxRepo := &mockOutboxRepository{}
	providerClient := &mockProviderClient{}
	orderCache := &mockOrderCache{}

	orderRepo.On("GetLineItems", mock.Anything, int64(3)).
		Return(orderLineItems(), nil, nil)
	refundRepo.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.RefundRecord).ID = 100
		}).
		Return(nil)
	providerClient.On("Refund", mock.Anything, domain.ActorCustomer, order, mock.Anything, "").Return(nil)
	orderRepo.On("UpdatePaymentStatusTx", mock.Anything, mock.Anything, int64(3), domain.PaymentStatusRefunded).Return(nil)
	outboxRepo.On("InsertTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	orderRepo.On("IncreaseStock", mock.Anything, int64(301), 2).
		Return(0, 0, errors.New(errors.ErrCodeDatabaseError, "product not found or stock not managed"))
	orderCache.On("Invalidate", mock.Anything, int64(3)).Return(nil)

	svc := newRefundServiceForTest(orderRepo, refundRepo, outboxRepo, providerClient, orderCache)

	err := svc.Refund(context.Background(), nil, order, domain.ActorCustomer,
		decimal.RequireFromString("35.50"), "")
	require.NoError(t, err)

	orderRepo.AssertNotCalled(t, "AddOrderNote", mock.Anything, mock.Anything, mock.Anything)
	orderCache.AssertNumberOfCalls(t, "Invalidate", 1)
}
