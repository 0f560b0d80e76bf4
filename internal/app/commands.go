package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"brightnest/internal/adapters/observability"
	"brightnest/internal/domain"
)

// ReviewService owns the write path: submission, reciprocity publication,
// fan-out and the preferred-cleaner side channel.
type ReviewService struct {
	reviews       domain.ReviewRepository
	preferred     domain.PreferredCleanerRepository
	appointments  domain.AppointmentDirectory
	employees     domain.EmployeeDirectory
	users         domain.UserDirectory
	notifier      domain.Notifier
	cache         domain.Cache
	fanoutWorkers int64
}

type ReviewServiceDeps struct {
	Reviews       domain.ReviewRepository
	Preferred     domain.PreferredCleanerRepository
	Appointments  domain.AppointmentDirectory
	Employees     domain.EmployeeDirectory
	Users         domain.UserDirectory
	Notifier      domain.Notifier
	Cache         domain.Cache
	FanoutWorkers int
}

func NewReviewService(d ReviewServiceDeps) *ReviewService {
	workers := d.FanoutWorkers
	if workers <= 0 {
		workers = 4
	}
	return &ReviewService{
		reviews:       d.Reviews,
		preferred:     d.Preferred,
		appointments:  d.Appointments,
		employees:     d.Employees,
		users:         d.Users,
		notifier:      d.Notifier,
		cache:         d.Cache,
		fanoutWorkers: int64(workers),
	}
}

// SubmitResult is what the caller gets back: the persisted original plus the
// appointment's reciprocity status after this submission.
type SubmitResult struct {
	Review domain.Review       `json:"review"`
	Status domain.ReviewStatus `json:"status"`
}

// Submit validates and persists an original review, then re-evaluates
// publication and runs the homeowner-side effects. Side-effect failures are
// contained: once the primary row is persisted, Submit succeeds.
func (s *ReviewService) Submit(ctx context.Context, sub Submission) (SubmitResult, error) {
	// Friendly duplicate check; the store's uniqueness guard is authoritative
	// when two submissions for the same triple race.
	dup, err := s.reviews.HasOriginalReview(ctx, sub.ReviewerID, sub.AppointmentID, sub.UserID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("duplicate check: %w", err)
	}
	if dup {
		return SubmitResult{}, domain.ErrDuplicateReview
	}

	name := s.reviewerName(ctx, sub.ReviewerID)
	r, err := buildReview(sub, name, time.Now().UTC())
	if err != nil {
		return SubmitResult{}, err
	}

	if err := s.reviews.CreateReview(ctx, &r); err != nil {
		if errors.Is(err, domain.ErrDuplicateReview) {
			return SubmitResult{}, domain.ErrDuplicateReview
		}
		return SubmitResult{}, fmt.Errorf("create review: %w", err)
	}
	observability.ObserveReviewEvent("submitted", string(r.Type))

	published, err := s.EvaluatePublication(ctx, sub.AppointmentID)
	if err != nil {
		// The row is persisted; a failed flip is repaired by the reconciler.
		log.Warn().Err(err).Str("appointment", sub.AppointmentID).Msg("publication evaluation failed")
	}
	r.IsPublished = published

	if r.Type == domain.HomeownerToCleaner {
		s.homeownerSideEffects(ctx, r, sub.SetAsPreferred, name)
	}

	status, err := s.statusFor(ctx, sub.AppointmentID, sub.ReviewerID)
	if err != nil {
		log.Warn().Err(err).Str("appointment", sub.AppointmentID).Msg("status projection failed")
		status = domain.ReviewStatus{UserHasReviewed: true, IsPublished: published}
	}
	return SubmitResult{Review: r, Status: status}, nil
}

// homeownerSideEffects runs fan-out and the preferred-cleaner reconcile for a
// homeowner-authored original. Neither runs when the appointment has no home
// attached, and nothing here can fail the submission.
func (s *ReviewService) homeownerSideEffects(ctx context.Context, original domain.Review, wantPreferred bool, homeownerName *string) {
	if s.appointments == nil {
		return
	}
	appt, err := s.appointments.GetAppointment(ctx, original.AppointmentID)
	if err != nil {
		log.Warn().Err(err).Str("appointment", original.AppointmentID).
			Msg("appointment lookup failed, skipping fan-out and preferred reconcile")
		return
	}
	if appt.HomeID == "" {
		log.Debug().Str("appointment", appt.ID).Msg("no home on appointment, skipping side effects")
		return
	}

	s.propagateCopies(ctx, original, appt)

	owner := ""
	if homeownerName != nil {
		owner = *homeownerName
	}
	s.reconcilePreferred(ctx, appt, original.UserID, owner, wantPreferred)
}

// EvaluatePublication loads the appointment's review set and flips every row
// to published once both sides are present. Idempotent; safe to run
// concurrently from both sides' submissions.
func (s *ReviewService) EvaluatePublication(ctx context.Context, appointmentID string) (bool, error) {
	rs, err := s.reviews.ListByAppointment(ctx, appointmentID)
	if err != nil {
		return false, fmt.Errorf("list appointment reviews: %w", err)
	}

	var hasHomeowner, hasCleaner, alreadyPublished bool
	for _, r := range rs {
		if !r.Type.Reciprocal() {
			continue
		}
		switch r.Type {
		case domain.HomeownerToCleaner:
			hasHomeowner = true
		case domain.CleanerToHomeowner:
			hasCleaner = true
		}
		if r.IsPublished {
			alreadyPublished = true
		}
	}
	if !hasHomeowner || !hasCleaner {
		return false, nil
	}

	if err := s.reviews.PublishAppointment(ctx, appointmentID); err != nil {
		return false, fmt.Errorf("publish appointment %s: %w", appointmentID, err)
	}
	if !alreadyPublished {
		observability.ObserveReviewEvent("published", "")
	}
	s.invalidateSubjects(ctx, rs)
	return true, nil
}

// AddLegacyReview is the backward-compatible single-rating path. The row is
// created already published and never participates in reciprocity, fan-out or
// the preferred-cleaner channel.
func (s *ReviewService) AddLegacyReview(ctx context.Context, reviewerID, userID, appointmentID string, reviewType domain.ReviewType, rating float64, comment *string) (domain.Review, error) {
	if !reviewType.Valid() {
		return domain.Review{}, fmt.Errorf("unknown review type %q", reviewType)
	}
	r := domain.Review{
		ID:            uuid.NewString(),
		AppointmentID: appointmentID,
		ReviewerID:    reviewerID,
		UserID:        userID,
		Type:          reviewType,
		Rating:        rating,
		Comment:       comment,
		ReviewerName:  s.reviewerName(ctx, reviewerID),
		IsPublished:   true,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.reviews.CreateReview(ctx, &r); err != nil {
		if errors.Is(err, domain.ErrDuplicateReview) {
			return domain.Review{}, domain.ErrDuplicateReview
		}
		return domain.Review{}, fmt.Errorf("create legacy review: %w", err)
	}
	observability.ObserveReviewEvent("submitted", string(r.Type))
	return r, nil
}

// Delete removes an unpublished review owned by the caller.
func (s *ReviewService) Delete(ctx context.Context, reviewerID, reviewID string) error {
	r, err := s.reviews.GetReview(ctx, reviewID)
	if err != nil {
		return err
	}
	if r.ReviewerID != reviewerID {
		return domain.ErrNotReviewOwner
	}
	if r.IsPublished {
		return domain.ErrReviewPublished
	}
	if err := s.reviews.DeleteReview(ctx, reviewID); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	observability.ObserveReviewEvent("deleted", string(r.Type))
	return nil
}

func (s *ReviewService) statusFor(ctx context.Context, appointmentID, userID string) (domain.ReviewStatus, error) {
	rs, err := s.reviews.ListByAppointment(ctx, appointmentID)
	if err != nil {
		return domain.ReviewStatus{}, err
	}
	return projectStatus(rs, userID), nil
}

// reviewerName snapshots the reviewer's display name at write time. Lookup
// failures leave the snapshot empty rather than blocking the submission.
func (s *ReviewService) reviewerName(ctx context.Context, reviewerID string) *string {
	if s.users == nil {
		return nil
	}
	u, err := s.users.GetUser(ctx, reviewerID)
	if err != nil {
		log.Debug().Err(err).Str("user", reviewerID).Msg("reviewer name lookup failed")
		return nil
	}
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return nil
	}
	return &name
}

// invalidateSubjects evicts the cached review pages of every subject whose
// visibility just changed.
func (s *ReviewService) invalidateSubjects(ctx context.Context, rs []domain.Review) {
	if s.cache == nil {
		return
	}
	seen := map[string]struct{}{}
	for _, r := range rs {
		if _, ok := seen[r.UserID]; ok {
			continue
		}
		seen[r.UserID] = struct{}{}
		_ = s.cache.Del(ctx, userReviewsKey(r.UserID))
	}
}
