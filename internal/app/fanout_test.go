package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brightnest/internal/app"
	"brightnest/internal/domain"
)

func seedCrew(h *harness, workers ...string) {
	h.dir.appts["appt-7"] = domain.AppointmentView{
		ID:                "appt-7",
		HomeID:            "home-7",
		HomeownerID:       "ho-1",
		EmployeesAssigned: workers,
		Completed:         true,
		ScheduledAt:       time.Now().Add(-48 * time.Hour),
	}
	h.dir.users["ho-1"] = domain.UserView{ID: "ho-1", FirstName: "Dana", LastName: "Reyes"}
}

func submitCrewReview(t *testing.T, h *harness) app.SubmitResult {
	t.Helper()
	res, err := h.svc.Submit(context.Background(), app.Submission{
		AppointmentID: "appt-7",
		ReviewerID:    "ho-1",
		UserID:        "u-a",
		Type:          domain.HomeownerToCleaner,
		Rating:        pf(5),
		Comment:       ptr("great crew"),
	})
	require.NoError(t, err)
	return res
}

func TestFanout_CopiesToOtherCrewMembers(t *testing.T) {
	h := newHarness()
	seedCrew(h, "w-a", "w-b", "w-c")
	h.dir.workers["w-a"] = "u-a"
	h.dir.workers["w-b"] = "u-b"
	h.dir.workers["w-c"] = "u-c"

	res := submitCrewReview(t, h)

	rows, err := h.store.ListByAppointment(context.Background(), "appt-7")
	require.NoError(t, err)
	require.Len(t, rows, 3, "original plus one copy per other crew member")

	subjects := map[string]bool{}
	for _, r := range rows {
		if !r.IsCopy() {
			assert.Equal(t, res.Review.ID, r.ID)
			continue
		}
		subjects[r.UserID] = true
		assert.Equal(t, res.Review.ID, *r.SourceReviewID)
		assert.True(t, r.IsEmployeeCopy)
		assert.False(t, r.IsBusinessReview)
		assert.Equal(t, res.Review.Rating, r.Rating)
		assert.Equal(t, *res.Review.Comment, *r.Comment)
		assert.Equal(t, "ho-1", r.ReviewerID)
	}
	assert.Equal(t, map[string]bool{"u-b": true, "u-c": true}, subjects,
		"the reviewed subject never gets a copy of their own review")
}

func TestFanout_SkipsUnresolvableWorker(t *testing.T) {
	h := newHarness()
	seedCrew(h, "w-a", "w-b", "w-c")
	h.dir.workers["w-a"] = "u-a"
	h.dir.workers["w-c"] = "u-c"
	// w-b resolves to nothing: stale assignment record

	submitCrewReview(t, h)

	rows, err := h.store.ListByAppointment(context.Background(), "appt-7")
	require.NoError(t, err)
	assert.Len(t, rows, 2, "stale assignments are skipped, not errored")
}

func TestFanout_BusinessOwnerFallback(t *testing.T) {
	h := newHarness()
	seedCrew(h) // no assignment records at all
	h.dir.owners["u-a"] = "owner-9"

	res := submitCrewReview(t, h)

	rows, err := h.store.ListByAppointment(context.Background(), "appt-7")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		if !r.IsCopy() {
			continue
		}
		assert.Equal(t, "owner-9", r.UserID)
		assert.True(t, r.IsBusinessReview)
		assert.False(t, r.IsEmployeeCopy)
		assert.Equal(t, res.Review.ID, *r.SourceReviewID)
	}
}

func TestFanout_IndependentCleanerNoCopies(t *testing.T) {
	h := newHarness()
	seedCrew(h) // no assignments, and u-a has no business owner

	submitCrewReview(t, h)

	rows, err := h.store.ListByAppointment(context.Background(), "appt-7")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFanout_NoHomeNoSideEffects(t *testing.T) {
	h := newHarness()
	seedCrew(h, "w-a", "w-b")
	h.dir.appts["appt-7"] = domain.AppointmentView{
		ID:                "appt-7",
		HomeownerID:       "ho-1",
		EmployeesAssigned: []string{"w-a", "w-b"},
		Completed:         true,
	}
	h.dir.workers["w-a"] = "u-a"
	h.dir.workers["w-b"] = "u-b"

	_, err := h.svc.Submit(context.Background(), app.Submission{
		AppointmentID:  "appt-7",
		ReviewerID:     "ho-1",
		UserID:         "u-a",
		Type:           domain.HomeownerToCleaner,
		Rating:         pf(5),
		SetAsPreferred: true,
	})
	require.NoError(t, err)

	rows, err := h.store.ListByAppointment(context.Background(), "appt-7")
	require.NoError(t, err)
	assert.Len(t, rows, 1, "no home attached: no fan-out")
	_, err = h.store.GetPreferred(context.Background(), "", "u-a")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, h.notes.emails)
}

// flakyReviews fails copy inserts for one specific subject.
type flakyReviews struct {
	domain.ReviewRepository
	failUser string
}

func (f *flakyReviews) CreateReview(ctx context.Context, r *domain.Review) error {
	if r.SourceReviewID != nil && r.UserID == f.failUser {
		return errors.New("copy insert refused")
	}
	return f.ReviewRepository.CreateReview(ctx, r)
}

func TestFanout_PartialFailureContained(t *testing.T) {
	h := newHarness()
	seedCrew(h, "w-a", "w-b", "w-c")
	h.dir.workers["w-a"] = "u-a"
	h.dir.workers["w-b"] = "u-b"
	h.dir.workers["w-c"] = "u-c"

	svc := app.NewReviewService(app.ReviewServiceDeps{
		Reviews:      &flakyReviews{ReviewRepository: h.store, failUser: "u-b"},
		Preferred:    h.store,
		Appointments: h.dir,
		Employees:    h.dir,
		Users:        h.dir,
		Notifier:     h.notes,
		Cache:        h.cache,
	})

	_, err := svc.Submit(context.Background(), app.Submission{
		AppointmentID: "appt-7",
		ReviewerID:    "ho-1",
		UserID:        "u-a",
		Type:          domain.HomeownerToCleaner,
		Rating:        pf(5),
	})
	require.NoError(t, err, "a failed copy never fails the submission")

	rows, err := h.store.ListByAppointment(context.Background(), "appt-7")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		if r.IsCopy() {
			assert.Equal(t, "u-c", r.UserID)
		}
	}
}
