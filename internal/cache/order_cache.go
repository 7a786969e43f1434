package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kyungseok/payment-callback-go-practical/common/errors"
)

// OrderSummary 주문 요약. 소비자 화면 노출용으로 캐시된다.
type OrderSummary struct {
	OrderID       int64  `json:"orderId"`
	OrderKey      string `json:"orderKey"`
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
	Total         string `json:"total"`
	Currency      string `json:"currency"`
	// Refundable 환불 액션 노출 여부. 서버측 인가 검사와는 별개의 판단이다.
	Refundable bool `json:"refundable"`
}

// OrderSummaryCache 주문 요약 캐시 인터페이스
type OrderSummaryCache interface {
	Get(ctx context.Context, orderID int64) (*OrderSummary, error) // 미스는 (nil, nil)
	Set(ctx context.Context, orderID int64, summary *OrderSummary) error
	Invalidate(ctx context.Context, orderID int64) error
}

type redisOrderSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisOrderSummaryCache Redis 기반 주문 요약 캐시 생성
func NewRedisOrderSummaryCache(client *redis.Client, ttl time.Duration) OrderSummaryCache {
	return &redisOrderSummaryCache{client: client, ttl: ttl}
}

func summaryKey(orderID int64) string {
	return fmt.Sprintf("order:summary:%d", orderID)
}

// Get 캐시 조회
func (c *redisOrderSummaryCache) Get(ctx context.Context, orderID int64) (*OrderSummary, error) {
	raw, err := c.client.Get(ctx, summaryKey(orderID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabaseError, "failed to get order summary from cache", err)
	}

	summary := &OrderSummary{}
	if err := json.Unmarshal(raw, summary); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSerializationError, "failed to unmarshal order summary", err)
	}

	return summary, nil
}

// Set 캐시 저장
func (c *redisOrderSummaryCache) Set(ctx context.Context, orderID int64, summary *OrderSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSerializationError, "failed to marshal order summary", err)
	}

	if err := c.client.Set(ctx, summaryKey(orderID), raw, c.ttl).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to set order summary cache", err)
	}

	return nil
}

// Invalidate 캐시 무효화. 환불 처리 후 호출된다.
func (c *redisOrderSummaryCache) Invalidate(ctx context.Context, orderID int64) error {
	if err := c.client.Del(ctx, summaryKey(orderID)).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeDatabaseError, "failed to invalidate order summary cache", err)
	}
	return nil
}
