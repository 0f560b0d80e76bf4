package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"brightnest/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// aspectsJSON serializes whichever aspect set the review carries. The column
// is NULL for penalty rows and aspect-less submissions.
func aspectsJSON(r *domain.Review) (any, error) {
	switch {
	case r.Homeowner != nil:
		b, err := json.Marshal(r.Homeowner)
		return string(b), err
	case r.Cleaner != nil:
		b, err := json.Marshal(r.Cleaner)
		return string(b), err
	}
	return nil, nil
}

// isDuplicate reports a MySQL unique-key violation (error 1062).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func (r *Repo) CreateReview(ctx context.Context, rv *domain.Review) error {
	aspects, err := aspectsJSON(rv)
	if err != nil {
		return fmt.Errorf("marshal aspects: %w", err)
	}
	_, err = r.db.ExecContext(ctx, insertReviewSQL,
		rv.ID,
		rv.AppointmentID,
		rv.ReviewerID,
		rv.UserID,
		string(rv.Type),
		rv.Rating,
		valStr(rv.Comment),
		valStr(rv.PrivateComment),
		valStr(rv.ReviewerName),
		aspects,
		rv.IsPublished,
		rv.IsEmployeeCopy,
		rv.IsBusinessReview,
		valStr(rv.SourceReviewID),
		rv.CreatedAt,
	)
	if err != nil {
		if isDuplicate(err) {
			return domain.ErrDuplicateReview
		}
		return err
	}
	return nil
}

func (r *Repo) GetReview(ctx context.Context, id string) (domain.Review, error) {
	row := r.db.QueryRowContext(ctx, getReviewSQL, id)
	rv, err := scanReview(row)
	if err == sql.ErrNoRows {
		return domain.Review{}, fmt.Errorf("review %s: %w", id, domain.ErrNotFound)
	}
	return rv, err
}

func (r *Repo) HasOriginalReview(ctx context.Context, reviewerID, appointmentID, userID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, hasOriginalSQL, reviewerID, appointmentID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repo) ListByAppointment(ctx context.Context, appointmentID string) ([]domain.Review, error) {
	return r.listReviews(ctx, listByAppointmentSQL, appointmentID)
}

func (r *Repo) PublishAppointment(ctx context.Context, appointmentID string) error {
	_, err := r.db.ExecContext(ctx, publishAppointmentSQL, appointmentID)
	return err
}

func (r *Repo) ListPublishedAbout(ctx context.Context, userID string) ([]domain.Review, error) {
	return r.listReviews(ctx, listPublishedAboutSQL, userID)
}

func (r *Repo) ListAuthoredBy(ctx context.Context, reviewerID string) ([]domain.Review, error) {
	return r.listReviews(ctx, listAuthoredBySQL, reviewerID)
}

func (r *Repo) ListUnpublishedAppointments(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listUnpublishedAppointmentsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Repo) DeleteReview(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, deleteReviewSQL, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("review %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *Repo) GetPreferred(ctx context.Context, homeID, cleanerID string) (domain.HomePreferredCleaner, error) {
	var p domain.HomePreferredCleaner
	var setBy string
	err := r.db.QueryRowContext(ctx, getPreferredSQL, homeID, cleanerID).
		Scan(&p.HomeID, &p.CleanerID, &p.SetAt, &setBy)
	if err == sql.ErrNoRows {
		return domain.HomePreferredCleaner{}, fmt.Errorf("preferred cleaner %s/%s: %w", homeID, cleanerID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.HomePreferredCleaner{}, err
	}
	p.SetBy = domain.PreferredSource(setBy)
	return p, nil
}

func (r *Repo) SetPreferred(ctx context.Context, p domain.HomePreferredCleaner) error {
	_, err := r.db.ExecContext(ctx, insertPreferredSQL, p.HomeID, p.CleanerID, p.SetAt, string(p.SetBy))
	return err
}

func (r *Repo) RemovePreferred(ctx context.Context, homeID, cleanerID string) error {
	_, err := r.db.ExecContext(ctx, deletePreferredSQL, homeID, cleanerID)
	return err
}

// ---- scanning ----

type rowScanner interface{ Scan(dest ...any) error }

func scanReview(row rowScanner) (domain.Review, error) {
	var (
		rv                                    domain.Review
		reviewType                            string
		comment, privateComment, reviewerName sql.NullString
		aspects                               []byte
		sourceReviewID                        sql.NullString
	)
	if err := row.Scan(
		&rv.ID,
		&rv.AppointmentID,
		&rv.ReviewerID,
		&rv.UserID,
		&reviewType,
		&rv.Rating,
		&comment,
		&privateComment,
		&reviewerName,
		&aspects,
		&rv.IsPublished,
		&rv.IsEmployeeCopy,
		&rv.IsBusinessReview,
		&sourceReviewID,
		&rv.CreatedAt,
	); err != nil {
		return domain.Review{}, err
	}

	rv.Type = domain.ReviewType(reviewType)
	if comment.Valid {
		s := comment.String
		rv.Comment = &s
	}
	if privateComment.Valid {
		s := privateComment.String
		rv.PrivateComment = &s
	}
	if reviewerName.Valid {
		s := reviewerName.String
		rv.ReviewerName = &s
	}
	if sourceReviewID.Valid {
		s := sourceReviewID.String
		rv.SourceReviewID = &s
	}
	if len(aspects) > 0 {
		// The variant decides which aspect set the JSON holds; copies keep
		// the original's homeowner payload.
		switch rv.Type {
		case domain.HomeownerToCleaner:
			var h domain.HomeownerAspects
			if err := json.Unmarshal(aspects, &h); err != nil {
				return domain.Review{}, fmt.Errorf("unmarshal aspects for %s: %w", rv.ID, err)
			}
			rv.Homeowner = &h
		case domain.CleanerToHomeowner:
			var c domain.CleanerAspects
			if err := json.Unmarshal(aspects, &c); err != nil {
				return domain.Review{}, fmt.Errorf("unmarshal aspects for %s: %w", rv.ID, err)
			}
			rv.Cleaner = &c
		}
	}
	return rv, nil
}

func (r *Repo) listReviews(ctx context.Context, query string, args ...any) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}
