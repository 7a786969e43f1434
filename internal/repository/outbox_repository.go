package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/kyungseok/payment-callback-go-practical/common/errors"
)

// OutboxEvent Outbox 테이블 레코드
type OutboxEvent struct {
	ID            int64
	AggregateType string
	AggregateID   int64
	EventType     string
	Payload       json.RawMessage
	Status        string
	CreatedAt     time.Time
}

// OutboxRepository Outbox 레포지토리 인터페이스
type OutboxRepository interface {
	// InsertTx 상태 변경과 같은 트랜잭션으로 이벤트를 기록한다.
	InsertTx(ctx context.Context, tx *sql.Tx, event *OutboxEvent) error
	FindPending(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkSent(ctx context.Context, eventID int64) error
}

type outboxRepository struct {
	db *sql.DB
}

// NewOutboxRepository Outbox 레포지토리 생성
func NewOutboxRepository(db *sql.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

// InsertTx Outbox 이벤트 기록
func (r *outboxRepository) InsertTx(ctx context.Context, tx *sql.Tx, event *OutboxEvent) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO outbox_events (aggregate_type, aggregate_id, event_type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, 'PENDING', NOW())
	`, event.AggregateType, event.AggregateID, event.EventType, []byte(event.Payload))

	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to insert outbox event", err)
	}

	return nil
}

// FindPending 발행 대기 이벤트 조회
func (r *outboxRepository) FindPending(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, status, created_at
		FROM outbox_events
		WHERE status = 'PENDING'
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to query outbox events", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		event := &OutboxEvent{}
		var payload []byte
		if err := rows.Scan(&event.ID, &event.AggregateType, &event.AggregateID,
			&event.EventType, &payload, &event.Status, &event.CreatedAt); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to scan outbox event", err)
		}
		event.Payload = json.RawMessage(payload)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to iterate outbox events", err)
	}

	return events, nil
}

// MarkSent 발행 완료 표시
func (r *outboxRepository) MarkSent(ctx context.Context, eventID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_events SET status = 'SENT', sent_at = NOW() WHERE id = $1
	`, eventID)

	if err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to mark outbox event as sent", err)
	}

	return nil
}
