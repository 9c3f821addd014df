package models

import (
	"errors"
	"time"
)

// ErrInvalidTransition is returned when a registration is asked to make a
// move its current state does not allow.
var ErrInvalidTransition = errors.New("invalid registration transition")

type RegistrationStatus string

const (
	StatusRegistered RegistrationStatus = "registered"
	StatusWaitlist   RegistrationStatus = "waitlist"
	StatusCancelled  RegistrationStatus = "cancelled"
	StatusAttended   RegistrationStatus = "attended"
	StatusNoShow     RegistrationStatus = "no_show"
)

type Registration struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Reference string `gorm:"type:varchar(36);not null;uniqueIndex" json:"reference"`
	EventID   uint   `gorm:"not null;index:idx_reg_waitlist,priority:1" json:"event_id"`
	MemberID  string `gorm:"not null" json:"member_id"`

	Status      RegistrationStatus `gorm:"type:varchar(20);not null;index:idx_reg_waitlist,priority:2" json:"status"`
	SubmittedAt time.Time          `gorm:"not null;index:idx_reg_waitlist,priority:3" json:"submitted_at"`

	// Attendance sub-state of registered: set only once check-in happened.
	CheckInTime  *time.Time `json:"check_in_time,omitempty"`
	CheckOutTime *time.Time `json:"check_out_time,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Event *Event `gorm:"foreignKey:EventID" json:"event,omitempty"`
}

// regState is the composite state the transition table operates on. Persisted
// as (status, check_in_time) but reasoned about as one value, so checked-in is
// not a separate top-level status while still gating transitions.
type regState int

const (
	stateWaitlist regState = iota
	stateRegistered
	stateCheckedIn
	stateCancelled
	stateAttended
	stateNoShow
)

func (r *Registration) state() regState {
	switch r.Status {
	case StatusWaitlist:
		return stateWaitlist
	case StatusRegistered:
		if r.CheckInTime != nil {
			return stateCheckedIn
		}
		return stateRegistered
	case StatusCancelled:
		return stateCancelled
	case StatusAttended:
		return stateAttended
	default:
		return stateNoShow
	}
}

// IsTerminal reports whether no further transition is legal.
func (r *Registration) IsTerminal() bool {
	switch r.state() {
	case stateCancelled, stateAttended, stateNoShow:
		return true
	}
	return false
}

func (r *Registration) CanCheckIn() bool {
	return r.state() == stateRegistered
}

func (r *Registration) CanCheckOut() bool {
	return r.state() == stateCheckedIn
}

// CanCancel: only a seat-holder who has not yet shown up, or a waitlist
// entrant, may cancel. Check-in counts as attendance in progress.
func (r *Registration) CanCancel() bool {
	s := r.state()
	return s == stateRegistered || s == stateWaitlist
}

// CheckIn records arrival. Legal only from registered, not yet checked in.
func (r *Registration) CheckIn(at time.Time) error {
	if !r.CanCheckIn() {
		return ErrInvalidTransition
	}
	t := at
	r.CheckInTime = &t
	return nil
}

// CheckOut records departure and settles the registration as attended.
// The check-out instant must be strictly after check-in.
func (r *Registration) CheckOut(at time.Time) error {
	if !r.CanCheckOut() {
		return ErrInvalidTransition
	}
	if !at.After(*r.CheckInTime) {
		return ErrInvalidTransition
	}
	t := at
	r.CheckOutTime = &t
	r.Status = StatusAttended
	return nil
}

func (r *Registration) Cancel() error {
	if !r.CanCancel() {
		return ErrInvalidTransition
	}
	r.Status = StatusCancelled
	return nil
}

// MarkNoShow is the organizer override; legal from any non-terminal state.
func (r *Registration) MarkNoShow() error {
	if r.IsTerminal() {
		return ErrInvalidTransition
	}
	r.Status = StatusNoShow
	return nil
}

// Promote moves the registration off the waitlist into a seat.
func (r *Registration) Promote() error {
	if r.state() != stateWaitlist {
		return ErrInvalidTransition
	}
	r.Status = StatusRegistered
	return nil
}

// AttendanceMinutes is the recorded stay length, or nil before check-out.
func (r *Registration) AttendanceMinutes() *int {
	if r.CheckInTime == nil || r.CheckOutTime == nil {
		return nil
	}
	minutes := int(r.CheckOutTime.Sub(*r.CheckInTime).Minutes())
	return &minutes
}
