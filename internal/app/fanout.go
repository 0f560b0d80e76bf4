package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"brightnest/internal/adapters/observability"
	"brightnest/internal/domain"
)

// propagateCopies replicates a homeowner review across the other workers of a
// multi-employee job, or falls back to a single business-owner copy when the
// job carries no assignment records. Every copy is attempted independently;
// failures are logged and dropped from the result, never raised.
func (s *ReviewService) propagateCopies(ctx context.Context, original domain.Review, appt domain.AppointmentView) []domain.Review {
	if original.Type != domain.HomeownerToCleaner || original.IsCopy() {
		return nil
	}
	if s.employees == nil {
		return nil
	}

	if len(appt.EmployeesAssigned) == 0 {
		return s.businessOwnerCopy(ctx, original)
	}

	sem := semaphore.NewWeighted(s.fanoutWorkers)
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		out []domain.Review
	)
	now := time.Now().UTC()

	for _, workerID := range appt.EmployeesAssigned {
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Str("appointment", appt.ID).Msg("fan-out aborted")
			break
		}
		wg.Add(1)
		go func(workerID string) {
			defer wg.Done()
			defer sem.Release(1)

			uid, err := s.employees.ResolveWorker(ctx, workerID)
			if err != nil {
				// Workers without a resolvable identity are skipped, not errored.
				if !errors.Is(err, domain.ErrNotFound) {
					log.Warn().Err(err).Str("worker", workerID).Msg("worker resolution failed")
				}
				observability.ObserveFanout("skipped")
				return
			}
			if uid == original.UserID {
				return
			}

			cp := copyForUser(original, uid, false, now)
			if err := s.reviews.CreateReview(ctx, &cp); err != nil {
				log.Warn().Err(err).
					Str("source", original.ID).
					Str("worker", workerID).
					Msg("employee review copy failed")
				observability.ObserveFanout("failed")
				return
			}
			observability.ObserveFanout("created")
			mu.Lock()
			out = append(out, cp)
			mu.Unlock()
		}(workerID)
	}
	wg.Wait()
	return out
}

// businessOwnerCopy mirrors the review onto the business owner employing the
// reviewed worker. Independent cleaners have no owner; that yields zero copies.
func (s *ReviewService) businessOwnerCopy(ctx context.Context, original domain.Review) []domain.Review {
	ownerID, err := s.employees.BusinessOwnerOf(ctx, original.UserID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Warn().Err(err).Str("cleaner", original.UserID).Msg("business owner lookup failed")
		}
		return nil
	}

	cp := copyForUser(original, ownerID, true, time.Now().UTC())
	if err := s.reviews.CreateReview(ctx, &cp); err != nil {
		log.Warn().Err(err).Str("source", original.ID).Msg("business review copy failed")
		observability.ObserveFanout("failed")
		return nil
	}
	observability.ObserveFanout("created")
	return []domain.Review{cp}
}
