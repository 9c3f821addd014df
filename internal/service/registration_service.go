package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/issb-portal/registration-service/internal/models"
	"github.com/issb-portal/registration-service/internal/repository"
	"gorm.io/gorm"
)

// Publisher pushes lifecycle messages to the broker for the external
// notification service. A nil Publisher disables publishing.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

// RegisterResult is the outcome of a registration attempt. Waitlisting is a
// success, not an error.
type RegisterResult struct {
	Registration *models.Registration
	Waitlisted   bool
}

// CancelResult carries the promoted entrant, if the freed seat was reclaimed
// from the waitlist, so callers can notify without re-querying.
type CancelResult struct {
	Registration *models.Registration
	Promoted     bool
	PromotedTo   *models.Registration
}

type RegistrationService interface {
	Register(ctx context.Context, eventID uint, memberID string) (*RegisterResult, error)
	Cancel(ctx context.Context, registrationID uint, actorID string) (*CancelResult, error)
	CheckIn(ctx context.Context, registrationID uint) (*models.Registration, error)
	CheckOut(ctx context.Context, registrationID uint) (*models.Registration, error)
	MarkNoShow(ctx context.Context, registrationID uint) (*models.Registration, error)
	Get(ctx context.Context, registrationID uint) (*models.Registration, error)
	ListByEvent(ctx context.Context, eventID uint, status *models.RegistrationStatus) ([]models.Registration, error)
	ListByMember(ctx context.Context, memberID string) ([]models.Registration, error)
}

type registrationService struct {
	regRepo   repository.RegistrationRepository
	eventRepo repository.EventRepository
	publisher Publisher
}

func NewRegistrationService(
	regRepo repository.RegistrationRepository,
	eventRepo repository.EventRepository,
	publisher Publisher,
) RegistrationService {
	return &registrationService{
		regRepo:   regRepo,
		eventRepo: eventRepo,
		publisher: publisher,
	}
}

// Register admits or waitlists a member. The event row lock makes the
// capacity check and the occupancy increment one atomic unit: of two
// attempts racing for the last seat, exactly one is admitted.
func (s *registrationService) Register(ctx context.Context, eventID uint, memberID string) (*RegisterResult, error) {
	var result *RegisterResult

	err := runTx(ctx, s.regRepo.GetDB(), func(tx *gorm.DB) error {
		event, err := s.eventRepo.FindByIDForUpdate(ctx, tx, eventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}

		now := time.Now()
		if !event.IsRegistrationOpen(now) {
			return ErrRegistrationClosed
		}

		// A retried register must return the existing row, never a second one.
		existing, err := s.regRepo.FindActiveByMemberAndEvent(ctx, tx, memberID, eventID)
		if err == nil {
			result = &RegisterResult{
				Registration: existing,
				Waitlisted:   existing.Status == models.StatusWaitlist,
			}
			return ErrDuplicateRegistration
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		status := models.StatusWaitlist
		if event.HasCapacity() {
			if err := s.eventRepo.IncrementOccupancy(ctx, tx, event.ID); err != nil {
				return err
			}
			status = models.StatusRegistered
		}

		reg := &models.Registration{
			Reference:   uuid.NewString(),
			EventID:     event.ID,
			MemberID:    memberID,
			Status:      status,
			SubmittedAt: now,
		}
		if err := s.regRepo.Create(ctx, tx, reg); err != nil {
			// Partial unique index backstop: the rollback also undoes the
			// occupancy increment taken above.
			if isUniqueViolation(err) {
				return ErrDuplicateRegistration
			}
			return err
		}

		result = &RegisterResult{Registration: reg, Waitlisted: status == models.StatusWaitlist}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateRegistration) {
			// The unique-index backstop aborts the transaction before the
			// existing row is in hand; fetch it afterwards so both duplicate
			// paths answer with the same body.
			if result == nil {
				existing, ferr := s.regRepo.FindActiveByMemberAndEvent(ctx, s.regRepo.GetDB(), memberID, eventID)
				if ferr != nil {
					return nil, ferr
				}
				result = &RegisterResult{
					Registration: existing,
					Waitlisted:   existing.Status == models.StatusWaitlist,
				}
			}
			return result, ErrDuplicateRegistration
		}
		return nil, err
	}

	if s.publisher != nil {
		key := "registration.created"
		if result.Waitlisted {
			key = "registration.waitlisted"
		}
		_ = s.publisher.Publish(key, result.Registration)
	}
	return result, nil
}

// Cancel releases the seat of a confirmed registration and promotes the
// oldest waitlisted entrant in the same transaction, so no concurrent
// register or cancel can observe the seat free and unclaimed.
func (s *registrationService) Cancel(ctx context.Context, registrationID uint, actorID string) (*CancelResult, error) {
	var result *CancelResult

	err := runTx(ctx, s.regRepo.GetDB(), func(tx *gorm.DB) error {
		reg, err := s.regRepo.FindByIDForUpdate(ctx, tx, registrationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRegistrationNotFound
			}
			return err
		}

		event, err := s.eventRepo.FindByIDForUpdate(ctx, tx, reg.EventID)
		if err != nil {
			return err
		}

		if actorID != reg.MemberID && actorID != event.OrganizerID {
			return ErrUnauthorized
		}

		if reg.IsTerminal() {
			return ErrAlreadyTerminal
		}

		wasRegistered := reg.Status == models.StatusRegistered
		if err := reg.Cancel(); err != nil {
			return err
		}
		if err := s.regRepo.UpdateStatus(ctx, tx, reg.ID, models.StatusCancelled); err != nil {
			return err
		}
		result = &CancelResult{Registration: reg}

		if !wasRegistered {
			return nil
		}

		if err := s.eventRepo.DecrementOccupancy(ctx, tx, event.ID); err != nil {
			return err
		}

		for {
			next, err := s.regRepo.FindFirstWaitlisted(ctx, tx, event.ID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil // seat stays free
				}
				return err
			}

			// The guarded write re-checks the waitlist status under the row
			// lock. Zero rows means the candidate reached a terminal state
			// after the read above; it must not be flipped back, so pick the
			// next entrant instead.
			rows, err := s.regRepo.PromoteWaitlisted(ctx, tx, next.ID)
			if err != nil {
				return err
			}
			if rows == 0 {
				continue
			}

			if err := next.Promote(); err != nil {
				return err
			}
			if err := s.eventRepo.IncrementOccupancy(ctx, tx, event.ID); err != nil {
				return err
			}

			result.Promoted = true
			result.PromotedTo = next
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		_ = s.publisher.Publish("registration.cancelled", result.Registration)
		if result.Promoted {
			_ = s.publisher.Publish("registration.promoted", result.PromotedTo)
		}
	}
	return result, nil
}

func (s *registrationService) CheckIn(ctx context.Context, registrationID uint) (*models.Registration, error) {
	reg, err := s.applyAttendance(ctx, registrationID, func(reg *models.Registration) error {
		return reg.CheckIn(time.Now())
	})
	if err != nil {
		return nil, err
	}
	if s.publisher != nil {
		_ = s.publisher.Publish("attendance.checked_in", reg)
	}
	return reg, nil
}

func (s *registrationService) CheckOut(ctx context.Context, registrationID uint) (*models.Registration, error) {
	reg, err := s.applyAttendance(ctx, registrationID, func(reg *models.Registration) error {
		return reg.CheckOut(time.Now())
	})
	if err != nil {
		return nil, err
	}
	if s.publisher != nil {
		_ = s.publisher.Publish("attendance.checked_out", reg)
	}
	return reg, nil
}

// MarkNoShow is terminal but deliberately does not release the seat or
// promote from the waitlist: a no-show stays counted against capacity.
func (s *registrationService) MarkNoShow(ctx context.Context, registrationID uint) (*models.Registration, error) {
	reg, err := s.applyAttendance(ctx, registrationID, func(reg *models.Registration) error {
		return reg.MarkNoShow()
	})
	if err != nil {
		return nil, err
	}
	if s.publisher != nil {
		_ = s.publisher.Publish("attendance.no_show", reg)
	}
	return reg, nil
}

// applyAttendance runs a non-capacity transition under the registration row
// lock only; the event counter is never touched on these paths.
func (s *registrationService) applyAttendance(ctx context.Context, registrationID uint, transition func(*models.Registration) error) (*models.Registration, error) {
	var out *models.Registration

	err := runTx(ctx, s.regRepo.GetDB(), func(tx *gorm.DB) error {
		reg, err := s.regRepo.FindByIDForUpdate(ctx, tx, registrationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRegistrationNotFound
			}
			return err
		}
		if err := transition(reg); err != nil {
			return err
		}
		if err := s.regRepo.UpdateAttendance(ctx, tx, reg); err != nil {
			return err
		}
		out = reg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *registrationService) Get(ctx context.Context, registrationID uint) (*models.Registration, error) {
	reg, err := s.regRepo.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (s *registrationService) ListByEvent(ctx context.Context, eventID uint, status *models.RegistrationStatus) ([]models.Registration, error) {
	if _, err := s.eventRepo.FindByID(ctx, eventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return s.regRepo.FindByEventID(ctx, eventID, status)
}

func (s *registrationService) ListByMember(ctx context.Context, memberID string) ([]models.Registration, error) {
	return s.regRepo.FindByMemberID(ctx, memberID)
}
