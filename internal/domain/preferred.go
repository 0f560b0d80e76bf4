package domain

import "time"

// PreferredSource records which flow created a preferred-cleaner row.
type PreferredSource string

const (
	PreferredByReview     PreferredSource = "review"
	PreferredBySettings   PreferredSource = "settings"
	PreferredByInvitation PreferredSource = "invitation"
)

// HomePreferredCleaner marks that a cleaner may book the given home without
// per-job approval. Unique per (HomeID, CleanerID).
type HomePreferredCleaner struct {
	HomeID    string          `json:"homeId"`
	CleanerID string          `json:"cleanerId"`
	SetAt     time.Time       `json:"setAt"`
	SetBy     PreferredSource `json:"setBy"`
}
