package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateReview = errors.New("you have already reviewed this appointment")
	ErrReviewPublished = errors.New("published reviews cannot be deleted")
	ErrNotReviewOwner  = errors.New("review belongs to another user")
)

// ReviewRepository is the persistence contract for review rows. CreateReview
// must enforce at-most-one original per (reviewer, appointment, subject) with
// a store-level uniqueness guard and return ErrDuplicateReview on violation;
// the application-level HasOriginalReview check only exists to produce a
// friendly error in the common, non-racing case.
type ReviewRepository interface {
	CreateReview(ctx context.Context, r *Review) error
	GetReview(ctx context.Context, id string) (Review, error)
	HasOriginalReview(ctx context.Context, reviewerID, appointmentID, userID string) (bool, error)
	ListByAppointment(ctx context.Context, appointmentID string) ([]Review, error)
	// PublishAppointment bulk-flips is_published for every row of the
	// appointment. Idempotent.
	PublishAppointment(ctx context.Context, appointmentID string) error
	ListPublishedAbout(ctx context.Context, userID string) ([]Review, error)
	ListAuthoredBy(ctx context.Context, reviewerID string) ([]Review, error)
	// ListUnpublishedAppointments returns appointment IDs that still hold at
	// least one unpublished reciprocal review. Used by the reconciler.
	ListUnpublishedAppointments(ctx context.Context) ([]string, error)
	DeleteReview(ctx context.Context, id string) error
}

// PreferredCleanerRepository manages the (home, cleaner) preferred rows.
type PreferredCleanerRepository interface {
	GetPreferred(ctx context.Context, homeID, cleanerID string) (HomePreferredCleaner, error)
	// SetPreferred inserts the row; inserting an existing pair is a no-op.
	SetPreferred(ctx context.Context, p HomePreferredCleaner) error
	// RemovePreferred deletes the row if present; absent pairs are a no-op.
	RemovePreferred(ctx context.Context, homeID, cleanerID string) error
}

// AppointmentView is the slice of an appointment this service needs. The
// appointment lifecycle itself lives in another service.
type AppointmentView struct {
	ID                string    `json:"id"`
	HomeID            string    `json:"homeId"`
	HomeLabel         string    `json:"homeLabel"`
	HomeownerID       string    `json:"homeownerId"`
	EmployeesAssigned []string  `json:"employeesAssigned"`
	Completed         bool      `json:"completed"`
	Cancelled         bool      `json:"cancelled"`
	ScheduledAt       time.Time `json:"scheduledAt"`
}

type AppointmentDirectory interface {
	GetAppointment(ctx context.Context, id string) (AppointmentView, error)
	ListCompletedForHomeowner(ctx context.Context, userID string) ([]AppointmentView, error)
	ListCompletedForCleaner(ctx context.Context, userID string) ([]AppointmentView, error)
}

// EmployeeDirectory resolves worker assignments to user identities.
type EmployeeDirectory interface {
	// ResolveWorker maps a worker assignment ID to the worker's user ID.
	// Returns ErrNotFound for workers with no resolvable identity.
	ResolveWorker(ctx context.Context, workerID string) (string, error)
	// BusinessOwnerOf returns the user ID of the business owner the worker
	// is employed by, or ErrNotFound for independent cleaners.
	BusinessOwnerOf(ctx context.Context, workerID string) (string, error)
}

type UserView struct {
	ID        string  `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     *string `json:"email,omitempty"`
	PushToken *string `json:"pushToken,omitempty"`
}

type UserDirectory interface {
	GetUser(ctx context.Context, id string) (UserView, error)
}

// Notifier delivers preferred-cleaner notifications. Both methods are
// fire-and-forget from the caller's point of view; failures are logged, never
// propagated past the coordinator.
type Notifier interface {
	SendPreferredCleanerEmail(ctx context.Context, to, cleanerFirstName, homeownerName, homeLabel string) error
	SendPush(ctx context.Context, token, title, body string) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Read models.

// ReviewStatus is the reciprocity projection for one appointment as seen by
// one user.
type ReviewStatus struct {
	HasHomeownerReviewed bool `json:"hasHomeownerReviewed"`
	HasCleanerReviewed   bool `json:"hasCleanerReviewed"`
	UserHasReviewed      bool `json:"userHasReviewed"`
	BothReviewed         bool `json:"bothReviewed"`
	IsPublished          bool `json:"isPublished"`
}

// ReviewStats aggregates published reviews about one user. AspectAverages
// only carries fields that had at least one non-null score.
type ReviewStats struct {
	AverageRating      float64            `json:"averageRating"`
	TotalReviews       int                `json:"totalReviews"`
	RecommendationRate int                `json:"recommendationRate"`
	AspectAverages     map[string]float64 `json:"aspectAverages"`
}

// PendingReview is one completed appointment the user still owes a review on.
type PendingReview struct {
	Appointment        AppointmentView `json:"appointment"`
	CounterpartID      string          `json:"counterpartId"`
	IsCleanerPreferred bool            `json:"isCleanerPreferred"`
}

// UserReviews bundles the published reviews about a user with their stats.
type UserReviews struct {
	Items []Review    `json:"items"`
	Stats ReviewStats `json:"stats"`
}
