package dto

import "time"

type CreateEventRequest struct {
	Title                string     `json:"title" validate:"required"`
	Description          string     `json:"description"`
	Location             string     `json:"location"`
	OrganizerID          string     `json:"organizer_id" validate:"required"`
	Capacity             *int       `json:"capacity" validate:"omitempty,gt=0"`
	StartAt              time.Time  `json:"start_at" validate:"required"`
	EndAt                time.Time  `json:"end_at" validate:"required,gtfield=StartAt"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
}

type RegisterRequest struct {
	MemberID string `json:"member_id" validate:"required"`
}
