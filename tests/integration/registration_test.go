//go:build integration

package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/issb-portal/registration-service/internal/models"
	"github.com/issb-portal/registration-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 60 members race for a 50-seat event → exactly 50 registered, 10 waitlisted,
// occupancy never above capacity.
func TestConcurrentRegistration(t *testing.T) {
	cleanTables()
	event := createOpenEvent(t, "Spring Gala", intPtr(50))
	svc := newRegistrationService()

	totalMembers := 60
	var wg sync.WaitGroup
	results := make(chan *service.RegisterResult, totalMembers)

	wg.Add(totalMembers)
	for i := 0; i < totalMembers; i++ {
		go func(idx int) {
			defer wg.Done()
			res, err := svc.Register(context.Background(), event.ID, fmt.Sprintf("member-%03d", idx))
			if err != nil {
				t.Errorf("register member-%03d: %v", idx, err)
				return
			}
			results <- res
		}(i)
	}
	wg.Wait()
	close(results)

	var registered, waitlisted int
	for res := range results {
		if res.Waitlisted {
			waitlisted++
		} else {
			registered++
		}
	}

	assert.Equal(t, 50, registered, "exactly capacity members should get seats")
	assert.Equal(t, 10, waitlisted, "the rest should be waitlisted, never rejected")

	assert.Equal(t, 50, eventOccupancy(t, event.ID))
	assert.Equal(t, int64(50), countByStatus(t, event.ID, models.StatusRegistered),
		"occupancy must equal the count of registered rows")
	assert.Equal(t, int64(10), countByStatus(t, event.ID, models.StatusWaitlist))
}

// Two members race for the last seat → one registered, one waitlisted.
func TestLastSeatRace(t *testing.T) {
	cleanTables()
	event := createOpenEvent(t, "Board Dinner", intPtr(1))
	svc := newRegistrationService()

	var wg sync.WaitGroup
	results := make(chan *service.RegisterResult, 2)

	wg.Add(2)
	for _, member := range []string{"member-a", "member-b"} {
		go func(m string) {
			defer wg.Done()
			res, err := svc.Register(context.Background(), event.ID, m)
			require.NoError(t, err)
			results <- res
		}(member)
	}
	wg.Wait()
	close(results)

	var registered, waitlisted int
	for res := range results {
		if res.Waitlisted {
			waitlisted++
		} else {
			registered++
		}
	}

	assert.Equal(t, 1, registered)
	assert.Equal(t, 1, waitlisted)
	assert.Equal(t, 1, eventOccupancy(t, event.ID))
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	cleanTables()
	event := createOpenEvent(t, "Spring Gala", intPtr(50))
	svc := newRegistrationService()

	first, err := svc.Register(context.Background(), event.ID, "member-dup")
	require.NoError(t, err)
	assert.False(t, first.Waitlisted)

	second, err := svc.Register(context.Background(), event.ID, "member-dup")
	assert.ErrorIs(t, err, service.ErrDuplicateRegistration)
	require.NotNil(t, second, "duplicate attempt must return the existing registration")
	assert.Equal(t, first.Registration.ID, second.Registration.ID)
}

func TestConcurrentDuplicateRegistration(t *testing.T) {
	cleanTables()
	event := createOpenEvent(t, "Spring Gala", intPtr(50))
	svc := newRegistrationService()

	attempts := 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0

	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			res, err := svc.Register(context.Background(), event.ID, "member-same")
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
				return
			}
			// Losers of the race must still get the winner's row back,
			// whichever duplicate check caught them.
			if assert.ErrorIs(t, err, service.ErrDuplicateRegistration) {
				assert.NotNil(t, res, "duplicate must carry the existing registration")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created, "only one concurrent attempt should create a row")

	var count int64
	testDB.Model(&models.Registration{}).
		Where("event_id = ? AND member_id = ? AND status <> ?", event.ID, "member-same", models.StatusCancelled).
		Count(&count)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 1, eventOccupancy(t, event.ID))
}

// Cancel of a seat-holder promotes the oldest waitlisted entrant, FIFO.
func TestCancelPromotesFIFO(t *testing.T) {
	cleanTables()
	event := createOpenEvent(t, "Workshop", intPtr(1))
	svc := newRegistrationService()

	a, err := svc.Register(context.Background(), event.ID, "member-a")
	require.NoError(t, err)
	require.False(t, a.Waitlisted)

	b, err := svc.Register(context.Background(), event.ID, "member-b")
	require.NoError(t, err)
	require.True(t, b.Waitlisted)

	c, err := svc.Register(context.Background(), event.ID, "member-c")
	require.NoError(t, err)
	require.True(t, c.Waitlisted)

	res, err := svc.Cancel(context.Background(), a.Registration.ID, "member-a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, res.Registration.Status)
	assert.True(t, res.Promoted)
	require.NotNil(t, res.PromotedTo)
	assert.Equal(t, "member-b", res.PromotedTo.MemberID, "B was waitlisted before C")

	var stillWaiting models.Registration
	require.NoError(t, testDB.First(&stillWaiting, c.Registration.ID).Error)
	assert.Equal(t, models.StatusWaitlist, stillWaiting.Status)

	assert.Equal(t, 1, eventOccupancy(t, event.ID), "occupancy unchanged by cancel+promote")
}

// Equal timestamps fall back to creation order.
func TestPromotionTieBreakBySequence(t *testing.T) {
	cleanTables()
	event := createOpenEvent(t, "Workshop", intPtr(1))
	svc := newRegistrationService()

	seat, err := svc.Register(context.Background(), event.ID, "member-seat")
	require.NoError(t, err)

	submitted := time.Now()
	first := &models.Registration{
		Reference: "tie-1", EventID: event.ID, MemberID: "member-tie-1",
		Status: models.StatusWaitlist, SubmittedAt: submitted,
	}
	second := &models.Registration{
		Reference: "tie-2", EventID: event.ID, MemberID: "member-tie-2",
		Status: models.StatusWaitlist, SubmittedAt: submitted,
	}
	require.NoError(t, testDB.Create(first).Error)
	require.NoError(t, testDB.Create(second).Error)

	res, err := svc.Cancel(context.Background(), seat.Registration.ID, "member-seat")
	require.NoError(t, err)
	require.True(t, res.Promoted)
	assert.Equal(t, first.ID, res.PromotedTo.ID, "lower sequence id wins the tie")
}

// Spec scenario: capacity 2, three registrations, then cancel the first.
func TestCapacityTwoScenario(t *testing.T) {
	cleanTables()
	event := createOpenEvent(t, "Mentoring Evening", intPtr(2))
	svc := newRegistrationService()

	p1, err := svc.Register(context.Background(), event.ID, "p1")
	require.NoError(t, err)
	p2, err := svc.Register(context.Background(), event.ID, "p2")
	require.NoError(t, err)
	p3, err := svc.Register(context.Background(), event.ID, "p3")
	require.NoError(t, err)

	assert.False(t, p1.Waitlisted)
	assert.False(t, p2.Waitlisted)
	assert.True(t, p3.Waitlisted)
	assert.Equal(t, 2, eventOccupancy(t, event.ID))

	res, err := svc.Cancel(context.Background(), p1.Registration.ID, "p1")
	require.NoError(t, err)
	assert.True(t, res.Promoted)
	assert.Equal(t, "p3", res.PromotedTo.MemberID)
	assert.Equal(t, 2, eventOccupancy(t, event.ID))
	assert.Equal(t, int64(2), countByStatus(t, event.ID, models.StatusRegistered))
	assert.Equal(t, int64(0), countByStatus(t, event.ID, models.StatusWaitlist))
}

// Cancelling a waitlisted entrant frees no seat and promotes nobody.
func TestCancelWaitlistedNoPromotion(t *testing.T) {
	cleanTables()
	event := createOpenEvent(t, "Workshop", intPtr(1))
	svc := newRegistrationService()

	_, err := svc.Register(context.Background(), event.ID, "member-seat")
	require.NoError(t, err)
	b, err := svc.Register(context.Background(), event.ID, "member-b")
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), event.ID, "member-c")
	require.NoError(t, err)

	res, err := svc.Cancel(context.Background(), b.Registration.ID, "member-b")
	require.NoError(t, err)
	assert.False(t, res.Promoted)
	assert.Equal(t, 1, eventOccupancy(t, event.ID))
	assert.Equal(t, int64(1), countByStatus(t, event.ID, models.StatusWaitlist))
}

// Racing cancel (with promotion) against a fresh register must linearize:
// never more seats handed out than capacity.
func TestCancelVersusRegisterRace(t *testing.T) {
	cleanTables()
	event := createOpenEvent(t, "Workshop", intPtr(1))
	svc := newRegistrationService()

	seat, err := svc.Register(context.Background(), event.ID, "member-seat")
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), event.ID, "member-waiting")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := svc.Cancel(context.Background(), seat.Registration.ID, "member-seat")
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := svc.Register(context.Background(), event.ID, "member-new")
		assert.NoError(t, err)
	}()
	wg.Wait()

	assert.Equal(t, 1, eventOccupancy(t, event.ID))
	assert.Equal(t, int64(1), countByStatus(t, event.ID, models.StatusRegistered),
		"exactly one seat-holder after the race")
}

func TestUnlimitedCapacity(t *testing.T) {
	cleanTables()
	event := createOpenEvent(t, "Open Day", nil)
	svc := newRegistrationService()

	for i := 0; i < 100; i++ {
		res, err := svc.Register(context.Background(), event.ID, fmt.Sprintf("member-%03d", i))
		require.NoError(t, err)
		assert.False(t, res.Waitlisted, "unlimited events never waitlist")
	}

	assert.Equal(t, 100, eventOccupancy(t, event.ID))
}

func TestRegistrationWindow(t *testing.T) {
	cleanTables()
	svc := newRegistrationService()

	draft := createOpenEvent(t, "Draft Event", intPtr(10))
	require.NoError(t, testDB.Model(draft).Update("status", models.EventDraft).Error)
	_, err := svc.Register(context.Background(), draft.ID, "member-1")
	assert.ErrorIs(t, err, service.ErrRegistrationClosed)

	past := &models.Event{
		Title:       "Past Event",
		OrganizerID: "organizer-1",
		Capacity:    intPtr(10),
		Status:      models.EventPublished,
		StartAt:     time.Now().Add(-48 * time.Hour),
		EndAt:       time.Now().Add(-24 * time.Hour),
	}
	require.NoError(t, testDB.Create(past).Error)
	_, err = svc.Register(context.Background(), past.ID, "member-late")
	assert.ErrorIs(t, err, service.ErrRegistrationClosed)

	deadline := time.Now().Add(-time.Hour)
	closed := &models.Event{
		Title:                "Deadline Passed",
		OrganizerID:          "organizer-1",
		Capacity:             intPtr(10),
		Status:               models.EventPublished,
		StartAt:              time.Now().Add(24 * time.Hour),
		EndAt:                time.Now().Add(27 * time.Hour),
		RegistrationDeadline: &deadline,
	}
	require.NoError(t, testDB.Create(closed).Error)
	_, err = svc.Register(context.Background(), closed.ID, "member-after-deadline")
	assert.ErrorIs(t, err, service.ErrRegistrationClosed)
}

func TestRegisterEventNotFound(t *testing.T) {
	cleanTables()
	svc := newRegistrationService()

	_, err := svc.Register(context.Background(), 99999, "member-1")
	assert.ErrorIs(t, err, service.ErrEventNotFound)
}

func TestCancelAuthorization(t *testing.T) {
	cleanTables()
	event := createOpenEvent(t, "Workshop", intPtr(10))
	svc := newRegistrationService()

	res, err := svc.Register(context.Background(), event.ID, "member-1")
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), res.Registration.ID, "member-2")
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	// The organizer may cancel on the member's behalf.
	out, err := svc.Cancel(context.Background(), res.Registration.ID, "organizer-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, out.Registration.Status)
}

func TestCancelTwice(t *testing.T) {
	cleanTables()
	event := createOpenEvent(t, "Workshop", intPtr(10))
	svc := newRegistrationService()

	res, err := svc.Register(context.Background(), event.ID, "member-1")
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), res.Registration.ID, "member-1")
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), res.Registration.ID, "member-1")
	assert.ErrorIs(t, err, service.ErrAlreadyTerminal)
	assert.Equal(t, 0, eventOccupancy(t, event.ID), "double cancel must not release twice")
}

// After a cancel, the same member may register again.
func TestReRegisterAfterCancel(t *testing.T) {
	cleanTables()
	event := createOpenEvent(t, "Workshop", intPtr(10))
	svc := newRegistrationService()

	first, err := svc.Register(context.Background(), event.ID, "member-1")
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), first.Registration.ID, "member-1")
	require.NoError(t, err)

	second, err := svc.Register(context.Background(), event.ID, "member-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.Registration.ID, second.Registration.ID)
	assert.Equal(t, 1, eventOccupancy(t, event.ID))
}

// A cancel that promotes the waitlist head races an organizer marking that
// same head a no-show. Whichever commits first, the terminal state must win:
// the head may go waitlist→registered→no_show, but never no_show→registered.
func TestCancelVersusNoShowRace(t *testing.T) {
	svc := newRegistrationService()

	for i := 0; i < 25; i++ {
		cleanTables()
		event := createOpenEvent(t, "Workshop", intPtr(1))

		seat, err := svc.Register(context.Background(), event.ID, "member-seat")
		require.NoError(t, err)
		head, err := svc.Register(context.Background(), event.ID, "member-head")
		require.NoError(t, err)
		require.True(t, head.Waitlisted)

		var (
			wg     sync.WaitGroup
			cancel *service.CancelResult
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			out, err := svc.Cancel(context.Background(), seat.Registration.ID, "member-seat")
			assert.NoError(t, err)
			cancel = out
		}()
		go func() {
			defer wg.Done()
			_, err := svc.MarkNoShow(context.Background(), head.Registration.ID)
			assert.NoError(t, err)
		}()
		wg.Wait()

		var final models.Registration
		require.NoError(t, testDB.First(&final, head.Registration.ID).Error)
		assert.Equal(t, models.StatusNoShow, final.Status,
			"no-show is terminal and must survive the race")
		assert.Equal(t, int64(0), countByStatus(t, event.ID, models.StatusRegistered))

		if cancel != nil && cancel.Promoted {
			// Promotion landed first; the no-show kept the seat counted.
			assert.Equal(t, 1, eventOccupancy(t, event.ID))
		} else {
			assert.Equal(t, 0, eventOccupancy(t, event.ID))
		}
	}
}

// With a second entrant behind a head that turns terminal mid-cancel, the
// freed seat goes to the next candidate rather than staying empty.
func TestCancelSkipsTerminalWaitlistHead(t *testing.T) {
	cleanTables()
	event := createOpenEvent(t, "Workshop", intPtr(1))
	svc := newRegistrationService()

	seat, err := svc.Register(context.Background(), event.ID, "member-seat")
	require.NoError(t, err)
	head, err := svc.Register(context.Background(), event.ID, "member-head")
	require.NoError(t, err)
	second, err := svc.Register(context.Background(), event.ID, "member-second")
	require.NoError(t, err)

	_, err = svc.MarkNoShow(context.Background(), head.Registration.ID)
	require.NoError(t, err)

	out, err := svc.Cancel(context.Background(), seat.Registration.ID, "member-seat")
	require.NoError(t, err)
	require.True(t, out.Promoted)
	assert.Equal(t, second.Registration.ID, out.PromotedTo.ID)
	assert.Equal(t, 1, eventOccupancy(t, event.ID))
}
