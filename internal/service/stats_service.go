package service

import (
	"context"
	"errors"
	"math"

	"github.com/issb-portal/registration-service/internal/models"
	"github.com/issb-portal/registration-service/internal/repository"
	"gorm.io/gorm"
)

// EventStats is the reporting snapshot for one event. It is assembled from
// plain reads and may trail in-flight registrations; it never takes the
// event row lock.
type EventStats struct {
	EventID            uint
	Capacity           *int
	Occupancy          int
	TotalRegistrations int64
	StatusBreakdown    []repository.StatusCount
	AttendanceRate     float64 // percent of non-cancelled registrations that attended
	Attendees          int64
	AverageStayMinutes int64
	RegistrationTrend  []repository.TrendPoint
}

type StatsService interface {
	EventStats(ctx context.Context, eventID uint) (*EventStats, error)
}

type statsService struct {
	regRepo   repository.RegistrationRepository
	eventRepo repository.EventRepository
}

func NewStatsService(regRepo repository.RegistrationRepository, eventRepo repository.EventRepository) StatsService {
	return &statsService{regRepo: regRepo, eventRepo: eventRepo}
}

func (s *statsService) EventStats(ctx context.Context, eventID uint) (*EventStats, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	counts, err := s.regRepo.StatusCounts(ctx, eventID)
	if err != nil {
		return nil, err
	}

	attendance, err := s.regRepo.AttendanceStats(ctx, eventID)
	if err != nil {
		return nil, err
	}

	trend, err := s.regRepo.RegistrationTrend(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var total, cancelled, attended int64
	for _, c := range counts {
		total += c.Count
		switch c.Status {
		case models.StatusCancelled:
			cancelled = c.Count
		case models.StatusAttended:
			attended = c.Count
		}
	}

	stats := &EventStats{
		EventID:            event.ID,
		Capacity:           event.Capacity,
		Occupancy:          event.Occupancy,
		TotalRegistrations: total,
		StatusBreakdown:    counts,
		Attendees:          attendance.Attendees,
		AverageStayMinutes: int64(math.Round(attendance.AverageStayMinutes)),
		RegistrationTrend:  trend,
	}

	if nonCancelled := total - cancelled; nonCancelled > 0 {
		rate := float64(attended) / float64(nonCancelled) * 100
		stats.AttendanceRate = math.Round(rate*100) / 100
	}
	return stats, nil
}
