package repository

import (
	"context"
	"database/sql"

	"github.com/kyungseok/payment-callback-go-practical/common/errors"
	"github.com/kyungseok/payment-callback-go-practical/internal/domain"
)

// RefundRepository 환불 기록 레포지토리 인터페이스.
// Create는 provider 호출 전에 선커밋되고, 실패 시 Delete로 보상한다.
// 주문 행 잠금 트랜잭션과는 의도적으로 분리되어 있다.
type RefundRepository interface {
	Create(ctx context.Context, refund *domain.RefundRecord) error
	Delete(ctx context.Context, refundID int64) error
}

type refundRepository struct {
	db *sql.DB
}

// NewRefundRepository 환불 레포지토리 생성
func NewRefundRepository(db *sql.DB) RefundRepository {
	return &refundRepository{db: db}
}

// Create 환불 기록과 환불 라인을 하나의 트랜잭션으로 생성한다. refund.ID가 채워진다.
func (r *refundRepository) Create(ctx context.Context, refund *domain.RefundRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO refunds (order_id, amount, reason, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, refund.OrderID, refund.Amount, refund.Reason, refund.CreatedAt).Scan(&refund.ID)

	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to create refund", err)
	}

	for _, item := range refund.LineItems {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO refund_items (refund_id, item_id, product_id, quantity, refund_total, refund_tax)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, refund.ID, item.ItemID, item.ProductID, item.Quantity, item.RefundTotal, item.RefundTax)

		if err != nil {
			return errors.Wrap(errors.ErrCodeDatabaseError, "failed to create refund item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to commit refund", err)
	}

	return nil
}

// Delete 환불 기록 보상 삭제. 환불 라인은 FK cascade로 함께 삭제된다.
func (r *refundRepository) Delete(ctx context.Context, refundID int64) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM refunds WHERE id = $1
	`, refundID)

	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to delete refund", err)
	}

	return nil
}
