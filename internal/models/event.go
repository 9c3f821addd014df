package models

import "time"

type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventOngoing   EventStatus = "ongoing"
	EventCompleted EventStatus = "completed"
)

type Event struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	OrganizerID string `gorm:"not null" json:"organizer_id"`

	// Capacity is nil for unlimited events. Occupancy is mutated only by the
	// repository's increment/decrement under the event row lock.
	Capacity  *int `json:"capacity,omitempty"`
	Occupancy int  `gorm:"not null;default:0" json:"occupancy"`

	Status               EventStatus `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	StartAt              time.Time   `gorm:"not null" json:"start_at"`
	EndAt                time.Time   `gorm:"not null" json:"end_at"`
	RegistrationDeadline *time.Time  `json:"registration_deadline,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EffectiveStatus derives the wall-clock status. A published event becomes
// ongoing between start and end, and completed after end; draft never
// advances on its own.
func (e *Event) EffectiveStatus(now time.Time) EventStatus {
	if e.Status == EventDraft {
		return EventDraft
	}
	switch {
	case now.After(e.EndAt):
		return EventCompleted
	case !now.Before(e.StartAt):
		return EventOngoing
	default:
		return EventPublished
	}
}

// RegistrationCloseAt is the explicit deadline, or the event start when none
// was set.
func (e *Event) RegistrationCloseAt() time.Time {
	if e.RegistrationDeadline != nil {
		return *e.RegistrationDeadline
	}
	return e.StartAt
}

func (e *Event) IsRegistrationOpen(now time.Time) bool {
	return e.EffectiveStatus(now) == EventPublished && now.Before(e.RegistrationCloseAt())
}

// HasCapacity reports whether one more seat can be occupied. Callers must
// hold the event row lock for the answer to stay true across the increment.
func (e *Event) HasCapacity() bool {
	if e.Capacity == nil {
		return true
	}
	return e.Occupancy < *e.Capacity
}

// RemainingCapacity is nil for unlimited events, floored at zero otherwise.
func (e *Event) RemainingCapacity() *int {
	if e.Capacity == nil {
		return nil
	}
	remaining := *e.Capacity - e.Occupancy
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}
