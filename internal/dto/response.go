package dto

import (
	"time"

	"github.com/issb-portal/registration-service/internal/models"
	"github.com/issb-portal/registration-service/internal/repository"
	"github.com/issb-portal/registration-service/internal/service"
)

type EventResponse struct {
	ID                   uint               `json:"id"`
	Title                string             `json:"title"`
	Description          string             `json:"description,omitempty"`
	Location             string             `json:"location,omitempty"`
	OrganizerID          string             `json:"organizer_id"`
	Capacity             *int               `json:"capacity"`
	Occupancy            int                `json:"occupancy"`
	Status               models.EventStatus `json:"status"`
	StartAt              time.Time          `json:"start_at"`
	EndAt                time.Time          `json:"end_at"`
	RegistrationDeadline *time.Time         `json:"registration_deadline,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
}

type EventStatusResponse struct {
	ID             uint               `json:"id"`
	Title          string             `json:"title"`
	Status         models.EventStatus `json:"status"`
	Capacity       *int               `json:"capacity"`
	Occupancy      int                `json:"occupancy"`
	SeatsRemaining *int               `json:"seats_remaining"`
	WaitlistLength int64              `json:"waitlist_length"`
}

type RegistrationResponse struct {
	ID           uint                      `json:"id"`
	Reference    string                    `json:"reference"`
	EventID      uint                      `json:"event_id"`
	MemberID     string                    `json:"member_id"`
	Status       models.RegistrationStatus `json:"status"`
	SubmittedAt  time.Time                 `json:"submitted_at"`
	CheckInTime  *time.Time                `json:"check_in_time,omitempty"`
	CheckOutTime *time.Time                `json:"check_out_time,omitempty"`
}

type RegisterResponse struct {
	Registration RegistrationResponse `json:"registration"`
	Waitlisted   bool                 `json:"waitlisted"`
}

type CancelResponse struct {
	Registration RegistrationResponse  `json:"registration"`
	Promoted     bool                  `json:"promoted"`
	PromotedTo   *RegistrationResponse `json:"promoted_to,omitempty"`
}

type EventStatsResponse struct {
	EventID            uint                     `json:"event_id"`
	Capacity           *int                     `json:"capacity"`
	Occupancy          int                      `json:"occupancy"`
	TotalRegistrations int64                    `json:"total_registrations"`
	StatusBreakdown    []repository.StatusCount `json:"status_breakdown"`
	AttendanceRate     float64                  `json:"attendance_rate"`
	Attendees          int64                    `json:"attendees"`
	AverageStayMinutes int64                    `json:"average_stay_minutes"`
	RegistrationTrend  []repository.TrendPoint  `json:"registration_trend"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToEventResponse(e *models.Event) EventResponse {
	return EventResponse{
		ID:                   e.ID,
		Title:                e.Title,
		Description:          e.Description,
		Location:             e.Location,
		OrganizerID:          e.OrganizerID,
		Capacity:             e.Capacity,
		Occupancy:            e.Occupancy,
		Status:               e.Status,
		StartAt:              e.StartAt,
		EndAt:                e.EndAt,
		RegistrationDeadline: e.RegistrationDeadline,
		CreatedAt:            e.CreatedAt,
	}
}

func ToRegistrationResponse(r *models.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:           r.ID,
		Reference:    r.Reference,
		EventID:      r.EventID,
		MemberID:     r.MemberID,
		Status:       r.Status,
		SubmittedAt:  r.SubmittedAt,
		CheckInTime:  r.CheckInTime,
		CheckOutTime: r.CheckOutTime,
	}
}

func ToCancelResponse(res *service.CancelResult) CancelResponse {
	out := CancelResponse{
		Registration: ToRegistrationResponse(res.Registration),
		Promoted:     res.Promoted,
	}
	if res.PromotedTo != nil {
		promoted := ToRegistrationResponse(res.PromotedTo)
		out.PromotedTo = &promoted
	}
	return out
}

func ToEventStatsResponse(stats *service.EventStats) EventStatsResponse {
	return EventStatsResponse{
		EventID:            stats.EventID,
		Capacity:           stats.Capacity,
		Occupancy:          stats.Occupancy,
		TotalRegistrations: stats.TotalRegistrations,
		StatusBreakdown:    stats.StatusBreakdown,
		AttendanceRate:     stats.AttendanceRate,
		Attendees:          stats.Attendees,
		AverageStayMinutes: stats.AverageStayMinutes,
		RegistrationTrend:  stats.RegistrationTrend,
	}
}
