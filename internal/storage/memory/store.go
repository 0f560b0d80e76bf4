// Package memory holds an in-memory implementation of the review and
// preferred-cleaner repositories for tests and local development. It applies
// the same uniqueness rule as the MySQL schema: at most one original and at
// most one copy per (appointment, reviewer, subject).
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"brightnest/internal/domain"
)

type Store struct {
	mu        sync.RWMutex
	reviews   map[string]domain.Review
	preferred map[string]domain.HomePreferredCleaner
}

func New() *Store {
	return &Store{
		reviews:   make(map[string]domain.Review),
		preferred: make(map[string]domain.HomePreferredCleaner),
	}
}

func (s *Store) CreateReview(_ context.Context, r *domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range s.reviews {
		if ex.AppointmentID == r.AppointmentID &&
			ex.ReviewerID == r.ReviewerID &&
			ex.UserID == r.UserID &&
			ex.IsCopy() == r.IsCopy() {
			return domain.ErrDuplicateReview
		}
	}
	s.reviews[r.ID] = *r
	return nil
}

func (s *Store) GetReview(_ context.Context, id string) (domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[id]
	if !ok {
		return domain.Review{}, fmt.Errorf("review %s: %w", id, domain.ErrNotFound)
	}
	return r, nil
}

func (s *Store) HasOriginalReview(_ context.Context, reviewerID, appointmentID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reviews {
		if r.ReviewerID == reviewerID && r.AppointmentID == appointmentID && r.UserID == userID && !r.IsCopy() {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListByAppointment(_ context.Context, appointmentID string) ([]domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Review
	for _, r := range s.reviews {
		if r.AppointmentID == appointmentID {
			out = append(out, r)
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *Store) PublishAppointment(_ context.Context, appointmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.reviews {
		if r.AppointmentID == appointmentID {
			r.IsPublished = true
			s.reviews[id] = r
		}
	}
	return nil
}

func (s *Store) ListPublishedAbout(_ context.Context, userID string) ([]domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Review
	for _, r := range s.reviews {
		if r.UserID == userID && r.IsPublished {
			out = append(out, r)
		}
	}
	sortByCreationDesc(out)
	return out, nil
}

func (s *Store) ListAuthoredBy(_ context.Context, reviewerID string) ([]domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Review
	for _, r := range s.reviews {
		if r.ReviewerID == reviewerID {
			out = append(out, r)
		}
	}
	sortByCreationDesc(out)
	return out, nil
}

func (s *Store) ListUnpublishedAppointments(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]struct{}{}
	var out []string
	for _, r := range s.reviews {
		if !r.Type.Reciprocal() || r.IsPublished {
			continue
		}
		if _, ok := seen[r.AppointmentID]; ok {
			continue
		}
		seen[r.AppointmentID] = struct{}{}
		out = append(out, r.AppointmentID)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) DeleteReview(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviews[id]; !ok {
		return fmt.Errorf("review %s: %w", id, domain.ErrNotFound)
	}
	delete(s.reviews, id)
	return nil
}

func (s *Store) GetPreferred(_ context.Context, homeID, cleanerID string) (domain.HomePreferredCleaner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.preferred[prefKey(homeID, cleanerID)]
	if !ok {
		return domain.HomePreferredCleaner{}, fmt.Errorf("preferred cleaner %s/%s: %w", homeID, cleanerID, domain.ErrNotFound)
	}
	return p, nil
}

func (s *Store) SetPreferred(_ context.Context, p domain.HomePreferredCleaner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := prefKey(p.HomeID, p.CleanerID)
	if _, ok := s.preferred[key]; ok {
		return nil // keep the original row
	}
	s.preferred[key] = p
	return nil
}

func (s *Store) RemovePreferred(_ context.Context, homeID, cleanerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.preferred, prefKey(homeID, cleanerID))
	return nil
}

func prefKey(homeID, cleanerID string) string { return homeID + "\x00" + cleanerID }

func sortByCreation(rs []domain.Review) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].CreatedAt.Before(rs[j].CreatedAt)
	})
}

func sortByCreationDesc(rs []domain.Review) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].ID > rs[j].ID
		}
		return rs[i].CreatedAt.After(rs[j].CreatedAt)
	})
}
