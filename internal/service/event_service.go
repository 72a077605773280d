package service

import (
	"context"
	"errors"

	"seat-reserve-pro/internal/cache"
	"seat-reserve-pro/internal/model"
	"seat-reserve-pro/internal/repository"
	apperrors "seat-reserve-pro/pkg/app_errors"
	"seat-reserve-pro/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventService interface {
	CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	ListEvents(ctx context.Context) ([]*model.EventSummary, error)
	// GetEvent returns an active event with its live seat map.
	GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error)
	UpdateEvent(ctx context.Context, id uuid.UUID, params model.UpdateEventParams) (*model.Event, error)
	DeactivateEvent(ctx context.Context, id uuid.UUID) error
}

type EventServiceImpl struct {
	repository repository.EventRepository
	seatCache  cache.SeatMapCache
}

// NewEventService builds the catalog service. seatCache may be nil to
// serve seat maps straight from the database.
func NewEventService(eventRepository repository.EventRepository, seatCache cache.SeatMapCache) EventService {
	return &EventServiceImpl{
		repository: eventRepository,
		seatCache:  seatCache,
	}
}

func (s *EventServiceImpl) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	if req.Capacity <= 0 || req.Price == nil || *req.Price < 0 {
		return nil, apperrors.ErrInvalidInput
	}

	event := &model.Event{
		ID:          uuid.New(),
		Title:       req.Title,
		StartsAt:    req.StartsAt,
		Venue:       req.Venue,
		Capacity:    req.Capacity,
		Price:       *req.Price,
		Description: req.Description,
	}
	return s.repository.Create(ctx, event)
}

func (s *EventServiceImpl) ListEvents(ctx context.Context) ([]*model.EventSummary, error) {
	return s.repository.List(ctx)
}

func (s *EventServiceImpl) GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	event, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !event.IsActive {
		return nil, apperrors.ErrEventUnavailable
	}

	event.Seats, err = s.loadSeatMap(ctx, id)
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *EventServiceImpl) loadSeatMap(ctx context.Context, id uuid.UUID) ([]model.Seat, error) {
	if s.seatCache != nil {
		seats, err := s.seatCache.GetSeatMap(ctx, id)
		if err == nil {
			return seats, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.WithComponent("service").Warn("seat map cache read failed",
				zap.String("event_id", id.String()), zap.Error(err))
		}
	}

	seats, err := s.repository.LoadSeats(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.seatCache != nil {
		if err := s.seatCache.SetSeatMap(ctx, id, seats); err != nil {
			logger.WithComponent("service").Warn("seat map cache write failed",
				zap.String("event_id", id.String()), zap.Error(err))
		}
	}
	return seats, nil
}

func (s *EventServiceImpl) UpdateEvent(ctx context.Context, id uuid.UUID, params model.UpdateEventParams) (*model.Event, error) {
	if params.Price != nil && *params.Price < 0 {
		return nil, apperrors.ErrInvalidInput
	}
	return s.repository.Update(ctx, id, params)
}

func (s *EventServiceImpl) DeactivateEvent(ctx context.Context, id uuid.UUID) error {
	if err := s.repository.Deactivate(ctx, id); err != nil {
		return err
	}
	if s.seatCache != nil {
		_ = s.seatCache.Invalidate(ctx, id)
	}
	return nil
}
