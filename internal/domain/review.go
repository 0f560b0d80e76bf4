package domain

import "time"

// ReviewType discriminates the three kinds of review rows. Only the first two
// participate in reciprocity gating; penalty rows exist for churn statistics.
type ReviewType string

const (
	HomeownerToCleaner        ReviewType = "homeowner_to_cleaner"
	CleanerToHomeowner        ReviewType = "cleaner_to_homeowner"
	SystemCancellationPenalty ReviewType = "system_cancellation_penalty"
)

func (t ReviewType) Valid() bool {
	switch t {
	case HomeownerToCleaner, CleanerToHomeowner, SystemCancellationPenalty:
		return true
	}
	return false
}

// Reciprocal reports whether rows of this type count toward publication.
func (t ReviewType) Reciprocal() bool {
	return t == HomeownerToCleaner || t == CleanerToHomeowner
}

// HomeownerAspects are the per-aspect scores a homeowner may leave about a
// cleaner. Every field is independently optional.
type HomeownerAspects struct {
	CleaningQuality      *float64 `json:"cleaningQuality,omitempty"`
	Punctuality          *float64 `json:"punctuality,omitempty"`
	Professionalism      *float64 `json:"professionalism,omitempty"`
	Communication        *float64 `json:"communication,omitempty"`
	AttentionToDetail    *float64 `json:"attentionToDetail,omitempty"`
	Thoroughness         *float64 `json:"thoroughness,omitempty"`
	RespectOfProperty    *float64 `json:"respectOfProperty,omitempty"`
	FollowedInstructions *float64 `json:"followedInstructions,omitempty"`
	WouldRecommend       *bool    `json:"wouldRecommend,omitempty"`
}

// CleanerAspects are the per-aspect scores a cleaner may leave about a home
// and its owner.
type CleanerAspects struct {
	AccuracyOfDescription *float64 `json:"accuracyOfDescription,omitempty"`
	HomeReadiness         *float64 `json:"homeReadiness,omitempty"`
	EaseOfAccess          *float64 `json:"easeOfAccess,omitempty"`
	HomeCondition         *float64 `json:"homeCondition,omitempty"`
	Respectfulness        *float64 `json:"respectfulness,omitempty"`
	SafetyConditions      *float64 `json:"safetyConditions,omitempty"`
	Communication         *float64 `json:"communication,omitempty"`
	WouldWorkForAgain     *bool    `json:"wouldWorkForAgain,omitempty"`
}

// Review is one authored opinion about one counterpart on one appointment.
// Content is immutable after creation; only IsPublished flips, and only from
// false to true.
type Review struct {
	ID            string     `json:"id"`
	AppointmentID string     `json:"appointmentId"`
	ReviewerID    string     `json:"reviewerId"`
	UserID        string     `json:"userId"`
	Type          ReviewType `json:"reviewType"`

	Rating         float64 `json:"review"`
	Comment        *string `json:"reviewComment,omitempty"`
	PrivateComment *string `json:"privateComment,omitempty"`

	// ReviewerName is a snapshot taken at write time so the review survives
	// deletion of the reviewer's account.
	ReviewerName *string `json:"reviewerName,omitempty"`

	Homeowner *HomeownerAspects `json:"homeownerAspects,omitempty"`
	Cleaner   *CleanerAspects   `json:"cleanerAspects,omitempty"`

	IsPublished      bool    `json:"isPublished"`
	IsEmployeeCopy   bool    `json:"isEmployeeReviewCopy"`
	IsBusinessReview bool    `json:"isBusinessReview"`
	SourceReviewID   *string `json:"sourceReviewId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// IsCopy reports whether this row was derived from another review rather than
// authored directly.
func (r Review) IsCopy() bool { return r.SourceReviewID != nil }
