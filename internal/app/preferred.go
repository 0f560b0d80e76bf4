package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"brightnest/internal/adapters/observability"
	"brightnest/internal/domain"
)

// reconcilePreferred brings the (home, cleaner) preferred row in line with
// what the review requested. Everything here is best-effort: errors are
// logged and never reach the submission response.
func (s *ReviewService) reconcilePreferred(ctx context.Context, appt domain.AppointmentView, cleanerID, homeownerName string, want bool) {
	if s.preferred == nil {
		return
	}

	if !want {
		if err := s.preferred.RemovePreferred(ctx, appt.HomeID, cleanerID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			log.Warn().Err(err).Str("home", appt.HomeID).Str("cleaner", cleanerID).
				Msg("preferred cleaner removal failed")
		}
		return
	}

	_, err := s.preferred.GetPreferred(ctx, appt.HomeID, cleanerID)
	if err == nil {
		return // already preferred
	}
	if !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Str("home", appt.HomeID).Str("cleaner", cleanerID).
			Msg("preferred cleaner lookup failed")
		return
	}

	row := domain.HomePreferredCleaner{
		HomeID:    appt.HomeID,
		CleanerID: cleanerID,
		SetAt:     time.Now().UTC(),
		SetBy:     domain.PreferredByReview,
	}
	if err := s.preferred.SetPreferred(ctx, row); err != nil {
		log.Warn().Err(err).Str("home", appt.HomeID).Str("cleaner", cleanerID).
			Msg("preferred cleaner create failed")
		return
	}
	log.Info().Str("home", appt.HomeID).Str("cleaner", cleanerID).Msg("preferred cleaner set")

	s.notifyPreferred(ctx, appt, cleanerID, homeownerName)
}

// notifyPreferred tells the cleaner they were made preferred, by email and,
// when a push token is on file, by push. Fire-and-forget on both channels.
func (s *ReviewService) notifyPreferred(ctx context.Context, appt domain.AppointmentView, cleanerID, homeownerName string) {
	if s.users == nil || s.notifier == nil {
		return
	}
	u, err := s.users.GetUser(ctx, cleanerID)
	if err != nil {
		log.Debug().Err(err).Str("cleaner", cleanerID).Msg("cleaner lookup failed, skipping notifications")
		return
	}

	label := appt.HomeLabel
	if label == "" {
		label = appt.HomeID
	}

	if u.Email != nil {
		if err := s.notifier.SendPreferredCleanerEmail(ctx, *u.Email, u.FirstName, homeownerName, label); err != nil {
			log.Warn().Err(err).Str("cleaner", cleanerID).Msg("preferred cleaner email failed")
			observability.ObserveNotification("email", "error")
		} else {
			observability.ObserveNotification("email", "ok")
		}
	}

	if u.PushToken != nil {
		body := fmt.Sprintf("%s added you as a preferred cleaner for %s.", homeownerName, label)
		if err := s.notifier.SendPush(ctx, *u.PushToken, "You're now a preferred cleaner", body); err != nil {
			log.Warn().Err(err).Str("cleaner", cleanerID).Msg("preferred cleaner push failed")
			observability.ObserveNotification("push", "error")
		} else {
			observability.ObserveNotification("push", "ok")
		}
	}
}
