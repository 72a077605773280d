package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"seat-reserve-pro/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when no seat map is cached for the event.
var ErrCacheMiss = redis.Nil

// SeatMapCache is a read-side cache of event seat maps for the public
// browse endpoints. It is advisory only: the reservation engine always
// works from the database snapshot, and successful reservations
// invalidate the cached map.
type SeatMapCache interface {
	GetSeatMap(ctx context.Context, eventID uuid.UUID) ([]model.Seat, error)
	SetSeatMap(ctx context.Context, eventID uuid.UUID, seats []model.Seat) error
	Invalidate(ctx context.Context, eventID uuid.UUID) error
}

type SeatMapCacheImpl struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSeatMapCache(client *redis.Client, ttl time.Duration) SeatMapCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SeatMapCacheImpl{
		client: client,
		ttl:    ttl,
	}
}

func (c *SeatMapCacheImpl) getKey(eventID uuid.UUID) string {
	return fmt.Sprintf("event:%s:seats", eventID)
}

func (c *SeatMapCacheImpl) GetSeatMap(ctx context.Context, eventID uuid.UUID) ([]model.Seat, error) {
	val, err := c.client.Get(ctx, c.getKey(eventID)).Result()
	if err != nil {
		return nil, err
	}

	var seats []model.Seat
	if err := json.Unmarshal([]byte(val), &seats); err != nil {
		return nil, fmt.Errorf("unmarshal seat map: %w", err)
	}
	return seats, nil
}

func (c *SeatMapCacheImpl) SetSeatMap(ctx context.Context, eventID uuid.UUID, seats []model.Seat) error {
	data, err := json.Marshal(seats)
	if err != nil {
		return fmt.Errorf("marshal seat map: %w", err)
	}
	return c.client.Set(ctx, c.getKey(eventID), data, c.ttl).Err()
}

func (c *SeatMapCacheImpl) Invalidate(ctx context.Context, eventID uuid.UUID) error {
	return c.client.Del(ctx, c.getKey(eventID)).Err()
}
