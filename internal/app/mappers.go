package app

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"brightnest/internal/domain"
)

// Submission carries the caller-provided fields of a new review. Aspect
// fields are optional and stored as-is; the only cross-field rule is the
// one-original-per-pair uniqueness enforced at submit time.
type Submission struct {
	AppointmentID  string
	ReviewerID     string
	UserID         string
	Type           domain.ReviewType
	Rating         *float64
	Comment        *string
	PrivateComment *string
	SetAsPreferred bool
	Homeowner      *domain.HomeownerAspects
	Cleaner        *domain.CleanerAspects
}

// buildReview assembles the typed record for a submission. The overall rating
// is taken verbatim when supplied, otherwise averaged from the aspect scores.
func buildReview(sub Submission, reviewerName *string, now time.Time) (domain.Review, error) {
	if !sub.Type.Valid() {
		return domain.Review{}, fmt.Errorf("unknown review type %q", sub.Type)
	}
	r := domain.Review{
		ID:             uuid.NewString(),
		AppointmentID:  sub.AppointmentID,
		ReviewerID:     sub.ReviewerID,
		UserID:         sub.UserID,
		Type:           sub.Type,
		Comment:        sub.Comment,
		PrivateComment: sub.PrivateComment,
		ReviewerName:   reviewerName,
		CreatedAt:      now,
	}
	// Only the variant's own aspect set is kept; the other side's fields are
	// not legal for this type.
	switch sub.Type {
	case domain.HomeownerToCleaner:
		r.Homeowner = sub.Homeowner
	case domain.CleanerToHomeowner:
		r.Cleaner = sub.Cleaner
	}
	if sub.Rating != nil {
		r.Rating = *sub.Rating
	} else if scores := aspectScores(r.Homeowner, r.Cleaner); len(scores) > 0 {
		r.Rating = mean(scores)
	}
	return r, nil
}

// copyForUser derives a fan-out copy of an original review against another
// subject. The rating/comment payload is carried over verbatim.
func copyForUser(src domain.Review, userID string, business bool, now time.Time) domain.Review {
	cp := src
	cp.ID = uuid.NewString()
	cp.UserID = userID
	cp.SourceReviewID = &src.ID
	cp.IsEmployeeCopy = !business
	cp.IsBusinessReview = business
	cp.CreatedAt = now
	return cp
}

// projectStatus folds an appointment's review set into the reciprocity view
// for one user. System penalty rows never participate.
func projectStatus(reviews []domain.Review, userID string) domain.ReviewStatus {
	var st domain.ReviewStatus
	for _, r := range reviews {
		if !r.Type.Reciprocal() {
			continue
		}
		switch r.Type {
		case domain.HomeownerToCleaner:
			st.HasHomeownerReviewed = true
		case domain.CleanerToHomeowner:
			st.HasCleanerReviewed = true
		}
		if r.ReviewerID == userID {
			st.UserHasReviewed = true
		}
		if r.IsPublished {
			st.IsPublished = true
		}
	}
	st.BothReviewed = st.HasHomeownerReviewed && st.HasCleanerReviewed
	return st
}

// computeStats aggregates a set of published reviews about one subject.
func computeStats(reviews []domain.Review) domain.ReviewStats {
	st := domain.ReviewStats{
		TotalReviews:   len(reviews),
		AspectAverages: map[string]float64{},
	}
	if len(reviews) == 0 {
		return st
	}

	var ratingSum float64
	var recConsidered, recPositive int
	type acc struct {
		sum float64
		n   int
	}
	aspects := map[string]*acc{}
	add := func(name string, v *float64) {
		if v == nil {
			return
		}
		a := aspects[name]
		if a == nil {
			a = &acc{}
			aspects[name] = a
		}
		a.sum += *v
		a.n++
	}

	for _, r := range reviews {
		ratingSum += r.Rating

		var rec *bool
		if h := r.Homeowner; h != nil {
			rec = h.WouldRecommend
			add("cleaningQuality", h.CleaningQuality)
			add("punctuality", h.Punctuality)
			add("professionalism", h.Professionalism)
			add("communication", h.Communication)
			add("attentionToDetail", h.AttentionToDetail)
			add("thoroughness", h.Thoroughness)
			add("respectOfProperty", h.RespectOfProperty)
			add("followedInstructions", h.FollowedInstructions)
		}
		if c := r.Cleaner; c != nil {
			rec = c.WouldWorkForAgain
			add("accuracyOfDescription", c.AccuracyOfDescription)
			add("homeReadiness", c.HomeReadiness)
			add("easeOfAccess", c.EaseOfAccess)
			add("homeCondition", c.HomeCondition)
			add("respectfulness", c.Respectfulness)
			add("safetyConditions", c.SafetyConditions)
			add("communication", c.Communication)
		}
		if rec != nil {
			recConsidered++
			if *rec {
				recPositive++
			}
		}
	}

	st.AverageRating = round1(ratingSum / float64(len(reviews)))
	if recConsidered > 0 {
		st.RecommendationRate = int(math.Round(100 * float64(recPositive) / float64(recConsidered)))
	}
	for name, a := range aspects {
		st.AspectAverages[name] = round1(a.sum / float64(a.n))
	}
	return st
}

func aspectScores(h *domain.HomeownerAspects, c *domain.CleanerAspects) []float64 {
	var out []float64
	if h != nil {
		for _, p := range []*float64{
			h.CleaningQuality, h.Punctuality, h.Professionalism, h.Communication,
			h.AttentionToDetail, h.Thoroughness, h.RespectOfProperty, h.FollowedInstructions,
		} {
			if p != nil {
				out = append(out, *p)
			}
		}
	}
	if c != nil {
		for _, p := range []*float64{
			c.AccuracyOfDescription, c.HomeReadiness, c.EaseOfAccess, c.HomeCondition,
			c.Respectfulness, c.SafetyConditions, c.Communication,
		} {
			if p != nil {
				out = append(out, *p)
			}
		}
	}
	return out
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func userReviewsKey(userID string) string { return "reviews:user:" + userID }
