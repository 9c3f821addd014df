package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registration(status RegistrationStatus) *Registration {
	return &Registration{
		ID:          1,
		Reference:   "ref-1",
		EventID:     1,
		MemberID:    "member-1",
		Status:      status,
		SubmittedAt: time.Now(),
	}
}

func checkedIn(t *testing.T) *Registration {
	t.Helper()
	r := registration(StatusRegistered)
	require.NoError(t, r.CheckIn(time.Now()))
	return r
}

func TestCheckIn_FromRegistered(t *testing.T) {
	r := registration(StatusRegistered)

	assert.NoError(t, r.CheckIn(time.Now()))
	assert.Equal(t, StatusRegistered, r.Status, "check-in is a sub-state, not a status change")
	assert.NotNil(t, r.CheckInTime)
}

func TestCheckIn_Twice(t *testing.T) {
	r := checkedIn(t)

	assert.ErrorIs(t, r.CheckIn(time.Now()), ErrInvalidTransition)
}

func TestCheckIn_FromWaitlist(t *testing.T) {
	r := registration(StatusWaitlist)

	assert.ErrorIs(t, r.CheckIn(time.Now()), ErrInvalidTransition)
}

func TestCheckOut_SettlesAsAttended(t *testing.T) {
	r := checkedIn(t)

	assert.NoError(t, r.CheckOut(r.CheckInTime.Add(90*time.Minute)))
	assert.Equal(t, StatusAttended, r.Status)
	assert.True(t, r.IsTerminal())
}

func TestCheckOut_WithoutCheckIn(t *testing.T) {
	r := registration(StatusRegistered)

	assert.ErrorIs(t, r.CheckOut(time.Now()), ErrInvalidTransition)
}

func TestCheckOut_NotAfterCheckIn(t *testing.T) {
	r := checkedIn(t)

	assert.ErrorIs(t, r.CheckOut(*r.CheckInTime), ErrInvalidTransition)
	assert.ErrorIs(t, r.CheckOut(r.CheckInTime.Add(-time.Minute)), ErrInvalidTransition)
	assert.Equal(t, StatusRegistered, r.Status, "failed check-out must not settle the registration")
}

func TestCancel_FromRegisteredAndWaitlist(t *testing.T) {
	for _, status := range []RegistrationStatus{StatusRegistered, StatusWaitlist} {
		r := registration(status)
		assert.NoError(t, r.Cancel())
		assert.Equal(t, StatusCancelled, r.Status)
	}
}

func TestCancel_AfterCheckIn(t *testing.T) {
	r := checkedIn(t)

	assert.ErrorIs(t, r.Cancel(), ErrInvalidTransition)
}

func TestPromote_OnlyFromWaitlist(t *testing.T) {
	r := registration(StatusWaitlist)
	assert.NoError(t, r.Promote())
	assert.Equal(t, StatusRegistered, r.Status)

	assert.ErrorIs(t, registration(StatusRegistered).Promote(), ErrInvalidTransition)
}

func TestMarkNoShow_OrganizerOverride(t *testing.T) {
	for _, status := range []RegistrationStatus{StatusRegistered, StatusWaitlist} {
		r := registration(status)
		assert.NoError(t, r.MarkNoShow())
		assert.Equal(t, StatusNoShow, r.Status)
		assert.True(t, r.IsTerminal())
	}

	// Checked-in but never checked out can still be overridden.
	r := checkedIn(t)
	assert.NoError(t, r.MarkNoShow())
	assert.Equal(t, StatusNoShow, r.Status)
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	for _, status := range []RegistrationStatus{StatusCancelled, StatusAttended, StatusNoShow} {
		r := registration(status)

		assert.True(t, r.IsTerminal())
		assert.ErrorIs(t, r.CheckIn(time.Now()), ErrInvalidTransition)
		assert.ErrorIs(t, r.CheckOut(time.Now()), ErrInvalidTransition)
		assert.ErrorIs(t, r.Cancel(), ErrInvalidTransition)
		assert.ErrorIs(t, r.MarkNoShow(), ErrInvalidTransition)
		assert.ErrorIs(t, r.Promote(), ErrInvalidTransition)
		assert.Equal(t, status, r.Status, "terminal state must not change")
	}
}

func TestAttendanceMinutes(t *testing.T) {
	r := registration(StatusRegistered)
	assert.Nil(t, r.AttendanceMinutes())

	require.NoError(t, r.CheckIn(time.Now()))
	assert.Nil(t, r.AttendanceMinutes())

	require.NoError(t, r.CheckOut(r.CheckInTime.Add(45*time.Minute)))
	assert.Equal(t, 45, *r.AttendanceMinutes())
}
