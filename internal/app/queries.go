package app

import (
	"context"
	"fmt"
	"time"

	"brightnest/internal/domain"
)

// Role selects which side of the marketplace a pending-review query is for.
type Role string

const (
	RoleHomeowner Role = "homeowner"
	RoleCleaner   Role = "cleaner"
)

// QueryService owns the read side: reciprocity status, published reviews with
// stats, authored reviews and the pending-review list.
type QueryService struct {
	reviews      domain.ReviewRepository
	preferred    domain.PreferredCleanerRepository
	appointments domain.AppointmentDirectory
	employees    domain.EmployeeDirectory
	cache        domain.Cache
	cacheTTL     time.Duration
}

type QueryServiceDeps struct {
	Reviews      domain.ReviewRepository
	Preferred    domain.PreferredCleanerRepository
	Appointments domain.AppointmentDirectory
	Employees    domain.EmployeeDirectory
	Cache        domain.Cache
	CacheTTL     time.Duration
}

func NewQueryService(d QueryServiceDeps) *QueryService {
	return &QueryService{
		reviews:      d.Reviews,
		preferred:    d.Preferred,
		appointments: d.Appointments,
		employees:    d.Employees,
		cache:        d.Cache,
		cacheTTL:     d.CacheTTL,
	}
}

// Status projects the reciprocity state of one appointment for one user.
func (q *QueryService) Status(ctx context.Context, appointmentID, userID string) (domain.ReviewStatus, error) {
	rs, err := q.reviews.ListByAppointment(ctx, appointmentID)
	if err != nil {
		return domain.ReviewStatus{}, fmt.Errorf("list appointment reviews: %w", err)
	}
	return projectStatus(rs, userID), nil
}

// ReviewsAbout returns the published reviews about a user plus their stats.
// Cached; the write path evicts the key when publication flips.
func (q *QueryService) ReviewsAbout(ctx context.Context, userID string) (domain.UserReviews, error) {
	key := userReviewsKey(userID)
	var out domain.UserReviews
	if q.cache != nil {
		if ok, _ := q.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}

	items, err := q.reviews.ListPublishedAbout(ctx, userID)
	if err != nil {
		return domain.UserReviews{}, fmt.Errorf("list published reviews: %w", err)
	}
	out = domain.UserReviews{Items: items, Stats: computeStats(items)}

	if q.cache != nil {
		// copy the slice so cached data doesn't alias the repo's backing array
		cp := out
		if n := len(out.Items); n > 0 {
			cp.Items = make([]domain.Review, n)
			copy(cp.Items, out.Items)
		}
		_ = q.cache.Set(ctx, key, cp, int(q.cacheTTL.Seconds()))
	}
	return out, nil
}

// Stats is the aggregate view alone, for callers that don't need the rows.
func (q *QueryService) Stats(ctx context.Context, userID string) (domain.ReviewStats, error) {
	ur, err := q.ReviewsAbout(ctx, userID)
	if err != nil {
		return domain.ReviewStats{}, err
	}
	return ur.Stats, nil
}

// AuthoredBy lists every review the user wrote, published or not.
func (q *QueryService) AuthoredBy(ctx context.Context, userID string) ([]domain.Review, error) {
	rs, err := q.reviews.ListAuthoredBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list authored reviews: %w", err)
	}
	return rs, nil
}

// PendingFor enumerates the completed appointments the user still owes a
// review on. Homeowner results carry the preferred-cleaner annotation; any
// enrichment that cannot be resolved degrades to false rather than failing
// the list.
func (q *QueryService) PendingFor(ctx context.Context, userID string, role Role) ([]domain.PendingReview, error) {
	var (
		appts []domain.AppointmentView
		err   error
	)
	switch role {
	case RoleHomeowner:
		appts, err = q.appointments.ListCompletedForHomeowner(ctx, userID)
	case RoleCleaner:
		appts, err = q.appointments.ListCompletedForCleaner(ctx, userID)
	default:
		return nil, fmt.Errorf("unknown role %q", role)
	}
	if err != nil {
		return nil, fmt.Errorf("list completed appointments: %w", err)
	}

	authored, err := q.reviews.ListAuthoredBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list authored reviews: %w", err)
	}
	reviewed := map[string]bool{}
	for _, r := range authored {
		if !r.IsCopy() {
			reviewed[r.AppointmentID] = true
		}
	}

	out := []domain.PendingReview{}
	for _, a := range appts {
		if reviewed[a.ID] {
			continue
		}
		p := domain.PendingReview{Appointment: a}
		switch role {
		case RoleHomeowner:
			p.CounterpartID, p.IsCleanerPreferred = q.annotateHomeowner(ctx, a)
		case RoleCleaner:
			p.CounterpartID = a.HomeownerID
		}
		out = append(out, p)
	}
	return out, nil
}

// annotateHomeowner resolves the first assigned cleaner and checks the
// preferred row for the appointment's home. Unresolvable pieces force the
// flag to false.
func (q *QueryService) annotateHomeowner(ctx context.Context, a domain.AppointmentView) (string, bool) {
	if len(a.EmployeesAssigned) == 0 || q.employees == nil {
		return "", false
	}
	uid, err := q.employees.ResolveWorker(ctx, a.EmployeesAssigned[0])
	if err != nil {
		return "", false
	}
	if a.HomeID == "" || q.preferred == nil {
		return uid, false
	}
	if _, err := q.preferred.GetPreferred(ctx, a.HomeID, uid); err != nil {
		return uid, false
	}
	return uid, true
}
