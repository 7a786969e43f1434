package service

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/kyungseok/payment-callback-go-practical/internal/cache"
	"github.com/kyungseok/payment-callback-go-practical/internal/domain"
	"github.com/kyungseok/payment-callback-go-practical/internal/repository"
)

// --- Mock OrderRepository ---

type mockOrderRepository struct {
	mock.Mock

	// lockedOrder WithOrderLock이 fn에 전달할 주문. DB의 현재 행을 흉내낸다.
	lockedOrder *domain.Order
}

func (m *mockOrderRepository) FindIDByOrderKey(ctx context.Context, orderKey string) (int64, error) {
	args := m.Called(ctx, orderKey)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOrderRepository) GetOrderByKey(ctx context.Context, orderKey string) (*domain.Order, error) {
	args := m.Called(ctx, orderKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) WithOrderLock(ctx context.Context, orderID int64, fn func(tx *sql.Tx, order *domain.Order) error) error {
	args := m.Called(ctx, orderID)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(nil, m.lockedOrder)
}

func (m *mockOrderRepository) UpdatePaymentStatusTx(ctx context.Context, tx *sql.Tx, orderID int64, status domain.PaymentStatus) error {
	args := m.Called(ctx, tx, orderID, status)
	return args.Error(0)
}

func (m *mockOrderRepository) GetLineItems(ctx context.Context, orderID int64) ([]domain.LineItem, []domain.ShippingLine, error) {
	args := m.Called(ctx, orderID)
	var items []domain.LineItem
	var shipping []domain.ShippingLine
	if args.Get(0) != nil {
		items = args.Get(0).([]domain.LineItem)
	}
	if args.Get(1) != nil {
		shipping = args.Get(1).([]domain.ShippingLine)
	}
	return items, shipping, args.Error(2)
}

func (m *mockOrderRepository) IncreaseStock(ctx context.Context, productID int64, quantity int) (int, int, error) {
	args := m.Called(ctx, productID, quantity)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) AddOrderNote(ctx context.Context, orderID int64, note string) error {
	args := m.Called(ctx, orderID, note)
	return args.Error(0)
}

// --- Mock RefundRepository ---

type mockRefundRepository struct {
	mock.Mock
}

func (m *mockRefundRepository) Create(ctx context.Context, refund *domain.RefundRecord) error {
	args := m.Called(ctx, refund)
	return args.Error(0)
}

func (m *mockRefundRepository) Delete(ctx context.Context, refundID int64) error {
	args := m.Called(ctx, refundID)
	return args.Error(0)
}

// --- Mock OutboxRepository ---

type mockOutboxRepository struct {
	mock.Mock
}

func (m *mockOutboxRepository) InsertTx(ctx context.Context, tx *sql.Tx, event *repository.OutboxEvent) error {
	args := m.Called(ctx, tx, event)
	return args.Error(0)
}

func (m *mockOutboxRepository) FindPending(ctx context.Context, limit int) ([]*repository.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.OutboxEvent), args.Error(1)
}

func (m *mockOutboxRepository) MarkSent(ctx context.Context, eventID int64) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

// --- Mock Provider Client ---

type mockProviderClient struct {
	mock.Mock
}

func (m *mockProviderClient) Confirm(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockProviderClient) Cancel(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockProviderClient) Refund(ctx context.Context, actor domain.Actor, order *domain.Order, amount decimal.Decimal, reason string) error {
	args := m.Called(ctx, actor, order, amount, reason)
	return args.Error(0)
}

// --- Mock RefundService ---

type mockRefundService struct {
	mock.Mock
}

func (m *mockRefundService) Refund(ctx context.Context, tx *sql.Tx, order *domain.Order, actor domain.Actor, amount decimal.Decimal, reason string) error {
	args := m.Called(ctx, tx, order, actor, amount, reason)
	return args.Error(0)
}

// --- Mock OrderSummaryCache ---

type mockOrderCache struct {
	mock.Mock
}

func (m *mockOrderCache) Get(ctx context.Context, orderID int64) (*cache.OrderSummary, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cache.OrderSummary), args.Error(1)
}

func (m *mockOrderCache) Set(ctx context.Context, orderID int64, summary *cache.OrderSummary) error {
	args := m.Called(ctx, orderID, summary)
	return args.Error(0)
}

func (m *mockOrderCache) Invalidate(ctx context.Context, orderID int64) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}
