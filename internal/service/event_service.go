package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/issb-portal/registration-service/internal/models"
	"github.com/issb-portal/registration-service/internal/repository"
	"gorm.io/gorm"
)

// EventCapacitySnapshot is the live picture of an event's seats.
type EventCapacitySnapshot struct {
	Event          *models.Event
	SeatsRemaining *int // nil when capacity is unlimited
	WaitlistLength int64
}

type EventService interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	PublishEvent(ctx context.Context, id uint) (*models.Event, error)
	GetEvent(ctx context.Context, id uint) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	CapacitySnapshot(ctx context.Context, id uint) (*EventCapacitySnapshot, error)
}

type eventService struct {
	eventRepo repository.EventRepository
	regRepo   repository.RegistrationRepository
	publisher Publisher
}

func NewEventService(
	eventRepo repository.EventRepository,
	regRepo repository.RegistrationRepository,
	publisher Publisher,
) EventService {
	return &eventService{eventRepo: eventRepo, regRepo: regRepo, publisher: publisher}
}

func (s *eventService) CreateEvent(ctx context.Context, event *models.Event) error {
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	if s.publisher != nil {
		_ = s.publisher.Publish("event.created", event)
	}
	return nil
}

// PublishEvent opens a draft for registration. Publication state only moves
// forward; anything past draft is rejected.
func (s *eventService) PublishEvent(ctx context.Context, id uint) (*models.Event, error) {
	var published *models.Event

	err := runTx(ctx, s.eventRepo.GetDB(), func(tx *gorm.DB) error {
		event, err := s.eventRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}
		if event.Status != models.EventDraft {
			return models.ErrInvalidTransition
		}
		if err := s.eventRepo.UpdateStatus(ctx, tx, event.ID, models.EventPublished); err != nil {
			return err
		}
		event.Status = models.EventPublished
		published = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		_ = s.publisher.Publish("event.published", published)
	}
	return published, nil
}

func (s *eventService) GetEvent(ctx context.Context, id uint) (*models.Event, error) {
	event, err := s.eventRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	return s.eventRepo.FindAll(ctx)
}

func (s *eventService) CapacitySnapshot(ctx context.Context, id uint) (*EventCapacitySnapshot, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	waitlisted, err := s.regRepo.CountByStatus(ctx, s.regRepo.GetDB(), event.ID, models.StatusWaitlist)
	if err != nil {
		return nil, err
	}

	return &EventCapacitySnapshot{
		Event:          event,
		SeatsRemaining: event.RemainingCapacity(),
		WaitlistLength: waitlisted,
	}, nil
}
