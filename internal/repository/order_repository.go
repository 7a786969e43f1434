package repository

import (
	"context"
	"database/sql"

	"github.com/kyungseok/payment-callback-go-practical/common/errors"
	"github.com/kyungseok/payment-callback-go-practical/internal/domain"
)

// OrderRepository 주문 레포지토리 인터페이스
type OrderRepository interface {
	FindIDByOrderKey(ctx context.Context, orderKey string) (int64, error)
	GetOrderByKey(ctx context.Context, orderKey string) (*domain.Order, error)

	// WithOrderLock 주문 행 잠금(FOR UPDATE)을 잡은 트랜잭션 안에서 fn을 실행한다.
	// 상태 읽기 → provider 호출 → 상태 쓰기가 전부 잠금 아래에서 일어나야 한다.
	// fn이 에러를 반환하면 롤백되어 상태는 변하지 않는다.
	WithOrderLock(ctx context.Context, orderID int64, fn func(tx *sql.Tx, order *domain.Order) error) error

	UpdatePaymentStatusTx(ctx context.Context, tx *sql.Tx, orderID int64, status domain.PaymentStatus) error
	GetLineItems(ctx context.Context, orderID int64) ([]domain.LineItem, []domain.ShippingLine, error)
	IncreaseStock(ctx context.Context, productID int64, quantity int) (oldStock int, newStock int, err error)
	AddOrderNote(ctx context.Context, orderID int64, note string) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository 주문 레포지토리 생성
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// FindIDByOrderKey 주문 키로 주문 ID 조회
func (r *orderRepository) FindIDByOrderKey(ctx context.Context, orderKey string) (int64, error) {
	var orderID int64
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM orders WHERE order_key = $1
	`, orderKey).Scan(&orderID)

	if err == sql.ErrNoRows {
		return 0, errors.New(errors.ErrCodeOrderNotFound, "order not found for order key")
	}
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeDatabaseError, "failed to find order id", err)
	}

	return orderID, nil
}

// GetOrderByKey 주문 키로 주문 조회
func (r *orderRepository) GetOrderByKey(ctx context.Context, orderKey string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, order_key, status, payment_status, transaction_id, total, currency
		FROM orders
		WHERE order_key = $1
	`, orderKey)

	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeOrderNotFound, "order not found for order key")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to find order", err)
	}

	return order, nil
}

// WithOrderLock 주문 행 잠금 트랜잭션 실행
func (r *orderRepository) WithOrderLock(ctx context.Context, orderID int64, fn func(tx *sql.Tx, order *domain.Order) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, order_key, status, payment_status, transaction_id, total, currency
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID)

	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return errors.New(errors.ErrCodeOrderNotFound, "order not found")
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to lock order", err)
	}

	if err := fn(tx, order); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to commit transaction", err)
	}

	return nil
}

// UpdatePaymentStatusTx 잠금 트랜잭션 안에서 결제 상태 쓰기
func (r *orderRepository) UpdatePaymentStatusTx(ctx context.Context, tx *sql.Tx, orderID int64, status domain.PaymentStatus) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = $1, updated_at = NOW()
		WHERE id = $2
	`, string(status), orderID)

	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to update payment status", err)
	}

	return nil
}

// GetLineItems 주문의 상품 라인과 배송 라인 조회
func (r *orderRepository) GetLineItems(ctx context.Context, orderID int64) ([]domain.LineItem, []domain.ShippingLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.id, oi.product_id, oi.quantity, oi.line_total, oi.tax_total, p.manage_stock
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to query order items", err)
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ItemID, &item.ProductID, &item.Quantity,
			&item.LineTotal, &item.TaxTotal, &item.ManageStock); err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to scan order item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to iterate order items", err)
	}

	shippingRows, err := r.db.QueryContext(ctx, `
		SELECT id, cost, tax
		FROM order_shipping_lines
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to query shipping lines", err)
	}
	defer shippingRows.Close()

	var shipping []domain.ShippingLine
	for shippingRows.Next() {
		var line domain.ShippingLine
		if err := shippingRows.Scan(&line.ItemID, &line.Cost, &line.Tax); err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to scan shipping line", err)
		}
		shipping = append(shipping, line)
	}
	if err := shippingRows.Err(); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to iterate shipping lines", err)
	}

	return items, shipping, nil
}

// IncreaseStock 재고 관리 대상 상품의 재고를 환불 수량만큼 복구한다.
func (r *orderRepository) IncreaseStock(ctx context.Context, productID int64, quantity int) (int, int, error) {
	var newStock int
	err := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $1, updated_at = NOW()
		WHERE id = $2 AND manage_stock = TRUE
		RETURNING stock_quantity
	`, quantity, productID).Scan(&newStock)

	if err == sql.ErrNoRows {
		return 0, 0, errors.New(errors.ErrCodeDatabaseError, "product not found or stock not managed")
	}
	if err != nil {
		return 0, 0, errors.Wrap(errors.ErrCodeDatabaseError, "failed to increase stock", err)
	}

	return newStock - quantity, newStock, nil
}

// AddOrderNote 주문 감사 노트 추가
func (r *orderRepository) AddOrderNote(ctx context.Context, orderID int64, note string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_notes (order_id, note, created_at)
		VALUES ($1, $2, NOW())
	`, orderID, note)

	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to add order note", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	var status, paymentStatus string
	var transactionID sql.NullString

	err := row.Scan(
		&order.ID,
		&order.OrderKey,
		&status,
		&paymentStatus,
		&transactionID,
		&order.Total,
		&order.Currency,
	)
	if err != nil {
		return nil, err
	}

	order.Status, err = domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	order.PaymentStatus, err = domain.ParsePaymentStatus(paymentStatus)
	if err != nil {
		return nil, err
	}
	if transactionID.Valid {
		order.TransactionID = transactionID.String
	}

	return order, nil
}
