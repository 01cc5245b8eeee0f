package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boxoffice/internal/seats"
	"boxoffice/internal/shared/constants"
	"boxoffice/pkg/cache"
	"boxoffice/pkg/logger"
)

var ErrEventNotFound = errors.New("event not found")

// Service interface defines the contract for event read operations
type Service interface {
	GetEvent(ctx context.Context, id int64) (*EventResponse, error)
	ListEvents(ctx context.Context, page, limit int, status string) (*EventListResponse, error)
	GetUpcomingEvents(ctx context.Context, limit int) ([]EventResponse, error)
	GetEventSeats(ctx context.Context, eventID int64) ([]seats.SeatResponse, error)
	GetAvailableSeats(ctx context.Context, eventID int64) ([]seats.SeatResponse, error)
	GetSeatSummary(ctx context.Context, eventID int64) (*seats.StatusSummary, error)
}

// service implements the Service interface
type service struct {
	repo         Repository
	seatRepo     seats.Repository
	overlay      *seats.StatusMap
	cacheService cache.Service
	log          *logger.Logger
}

// NewService creates a new event service instance
func NewService(repo Repository, seatRepo seats.Repository, overlay *seats.StatusMap, cacheService cache.Service) Service {
	return &service{
		repo:         repo,
		seatRepo:     seatRepo,
		overlay:      overlay,
		cacheService: cacheService,
		log:          logger.GetDefault(),
	}
}

func (s *service) GetEvent(ctx context.Context, id int64) (*EventResponse, error) {
	cacheKey := constants.BuildEventDetailKey(id)

	// Try to get from cache first
	var cached EventResponse
	if err := s.getCache(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	response := event.ToResponse()
	s.setCache(ctx, cacheKey, response, constants.TTL_EVENT_DETAIL)
	return &response, nil
}

func (s *service) ListEvents(ctx context.Context, page, limit int, status string) (*EventListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	cacheKey := constants.BuildEventListKey(page, limit, status)

	var cached EventListResponse
	if err := s.getCache(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	events, total, err := s.repo.List(ctx, page, limit, status)
	if err != nil {
		return nil, err
	}

	responses := make([]EventResponse, len(events))
	for i, event := range events {
		responses[i] = event.ToResponse()
	}

	result := &EventListResponse{
		Events: responses,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: CalculateTotalPages(total, limit),
		},
	}

	s.setCache(ctx, cacheKey, result, constants.TTL_EVENT_LIST)
	return result, nil
}

func (s *service) GetUpcomingEvents(ctx context.Context, limit int) ([]EventResponse, error) {
	if limit < 1 || limit > 100 {
		limit = 10
	}

	cacheKey := constants.BuildUpcomingEventsKey(limit)

	var cached []EventResponse
	if err := s.getCache(ctx, cacheKey, &cached); err == nil {
		return cached, nil
	}

	events, err := s.repo.GetUpcoming(ctx, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]EventResponse, len(events))
	for i, event := range events {
		responses[i] = event.ToResponse()
	}

	s.setCache(ctx, cacheKey, responses, constants.TTL_EVENT_UPCOMING)
	return responses, nil
}

// GetEventSeats returns the event's seat map with the Redis status
// overlay merged over the database rows, so seconds-old holds show up
// before any consumer has folded them back into Postgres.
func (s *service) GetEventSeats(ctx context.Context, eventID int64) ([]seats.SeatResponse, error) {
	if _, err := s.repo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	seatRecords, err := s.seatRepo.GetSeatsByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load seats: %w", err)
	}

	overlayStatuses, err := s.overlay.GetAll(ctx, eventID)
	if err != nil {
		// Reads must not fail with the overlay down; the rows are close
		// enough to current on their own.
		s.log.WarnContext(ctx, "Seat status overlay unavailable",
			"event_id", eventID, "error", err.Error())
		overlayStatuses = nil
	}

	responses := make([]seats.SeatResponse, len(seatRecords))
	for i, seat := range seatRecords {
		responses[i] = seat.ToResponse()
		responses[i].Status = mergeSeatStatus(seat.Status, overlayStatuses[seat.ID])
	}

	return responses, nil
}

// GetAvailableSeats returns only the seats a customer could hold right
// now. A row can read AVAILABLE while a fresh hold has only reached the
// overlay, so overlay-held seats are dropped from the result.
func (s *service) GetAvailableSeats(ctx context.Context, eventID int64) ([]seats.SeatResponse, error) {
	if _, err := s.repo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	seatRecords, err := s.seatRepo.GetAvailableSeatsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load available seats: %w", err)
	}

	overlayStatuses, err := s.overlay.GetAll(ctx, eventID)
	if err != nil {
		s.log.WarnContext(ctx, "Seat status overlay unavailable",
			"event_id", eventID, "error", err.Error())
		overlayStatuses = nil
	}

	responses := make([]seats.SeatResponse, 0, len(seatRecords))
	for _, seat := range seatRecords {
		if mergeSeatStatus(seat.Status, overlayStatuses[seat.ID]) != seats.StatusAvailable {
			continue
		}
		responses = append(responses, seat.ToResponse())
	}

	return responses, nil
}

// GetSeatSummary returns per-status seat counts. With no overlay entries
// a grouped count query answers directly; once the overlay holds recent
// transitions the per-seat merged view is tallied instead, since bare
// counts cannot say which bucket an overlaid seat moved out of.
func (s *service) GetSeatSummary(ctx context.Context, eventID int64) (*seats.StatusSummary, error) {
	cacheKey := constants.BuildSeatSummaryKey(eventID)

	var cached seats.StatusSummary
	if err := s.getCache(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	if _, err := s.repo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	overlayStatuses, err := s.overlay.GetAll(ctx, eventID)
	if err != nil {
		s.log.WarnContext(ctx, "Seat status overlay unavailable",
			"event_id", eventID, "error", err.Error())
		overlayStatuses = nil
	}

	summary := &seats.StatusSummary{EventID: eventID}
	if len(overlayStatuses) == 0 {
		counts, err := s.seatRepo.CountSeatsByStatus(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("failed to count seats: %w", err)
		}
		summary.Available = counts[seats.StatusAvailable]
		summary.Held = counts[seats.StatusHeld]
		summary.Booked = counts[seats.StatusBooked]
		summary.Total = summary.Available + summary.Held + summary.Booked
	} else {
		seatRecords, err := s.seatRepo.GetSeatsByEventID(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("failed to load seats: %w", err)
		}
		for _, seat := range seatRecords {
			switch mergeSeatStatus(seat.Status, overlayStatuses[seat.ID]) {
			case seats.StatusAvailable:
				summary.Available++
			case seats.StatusHeld:
				summary.Held++
			case seats.StatusBooked:
				summary.Booked++
			}
			summary.Total++
		}
	}

	s.setCache(ctx, cacheKey, summary, constants.TTL_SEAT_SUMMARY)
	return summary, nil
}

// mergeSeatStatus picks between a stored row status and an overlay entry.
// BOOKED rows are terminal and always win; otherwise a present overlay
// entry is fresher than the row. Unknown overlay values fall back to the
// row.
func mergeSeatStatus(stored, overlay seats.Status) seats.Status {
	if stored == seats.StatusBooked {
		return stored
	}
	switch overlay {
	case seats.StatusAvailable, seats.StatusHeld, seats.StatusBooked:
		return overlay
	}
	return stored
}

func (s *service) getCache(ctx context.Context, key string, dest interface{}) error {
	if s.cacheService == nil {
		return fmt.Errorf("cache service not available")
	}
	return s.cacheService.Get(ctx, key, dest)
}

func (s *service) setCache(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.Set(ctx, key, value, ttl); err != nil {
		s.log.DebugWithContext(ctx, "Failed to cache value", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}
