// Package application starts and stops time entries and announces the
// lifecycle changes on the event bus.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/vigil/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/vigil/internal/tracking/domain"
	"github.com/felixgeelhaar/vigil/pkg/observability"
	"github.com/google/uuid"
)

// Service manages time entries.
type Service struct {
	entries   domain.TimeEntryRepository
	publisher eventbus.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new tracking service.
func NewService(entries domain.TimeEntryRepository, publisher eventbus.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		entries:   entries,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Start creates a running entry and publishes the started event.
func (s *Service) Start(ctx context.Context, userID, companyID uuid.UUID) (*domain.TimeEntry, error) {
	entry := domain.NewTimeEntry(userID, companyID)
	entry.StartedAt = s.now().UTC()
	if err := s.entries.Save(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save time entry: %w", err)
	}
	if err := s.publish(ctx, domain.RoutingKeyTimeEntryStarted, entry, entry.StartedAt); err != nil {
		return entry, err
	}
	return entry, nil
}

// Stop ends a running entry and publishes the stopped event.
func (s *Service) Stop(ctx context.Context, entryID uuid.UUID) (*domain.TimeEntry, error) {
	entry, err := s.entries.FindByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	at := s.now().UTC()
	if err := entry.Stop(at); err != nil {
		return nil, err
	}
	if err := s.entries.Save(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save time entry: %w", err)
	}
	if err := s.publish(ctx, domain.RoutingKeyTimeEntryStopped, entry, at); err != nil {
		return entry, err
	}
	return entry, nil
}

// ListRunning returns entries still being tracked.
func (s *Service) ListRunning(ctx context.Context, companyIDs []uuid.UUID) ([]*domain.TimeEntry, error) {
	return s.entries.ListRunning(ctx, companyIDs)
}

func (s *Service) publish(ctx context.Context, routingKey string, entry *domain.TimeEntry, at time.Time) error {
	if s.publisher == nil {
		return nil
	}
	body, err := eventbus.Encode(routingKey, observability.CorrelationIDFromContext(ctx), domain.NewTimeEntryEvent(entry, at))
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, routingKey, body); err != nil {
		s.logger.Error("failed to publish time entry event",
			"routing_key", routingKey,
			"time_entry_id", entry.ID,
			"error", err,
		)
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}
	return nil
}
