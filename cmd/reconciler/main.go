// The reconciler repairs appointments whose publication flip was lost, e.g.
// when a submission crashed between persisting the second review and the bulk
// update. It walks every appointment still holding unpublished reciprocal
// reviews and re-runs the publisher over a bounded worker pool.
package main

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"brightnest/internal/adapters/observability"
	redisad "brightnest/internal/adapters/redis"
	"brightnest/internal/app"
	"brightnest/internal/shared"
	mysqlrepo "brightnest/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)
	log.Info().Int("workers", cfg.ReconcileWorkers).Msg("reconciler starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	svc := app.NewReviewService(app.ReviewServiceDeps{Reviews: repo, Cache: cache})

	appts, err := repo.ListUnpublishedAppointments(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("listing unpublished appointments failed")
	}
	log.Info().Int("appointments", len(appts)).Msg("scan complete")

	sem := semaphore.NewWeighted(int64(cfg.ReconcileWorkers))
	var wg sync.WaitGroup
	var published int64

	for _, id := range appts {
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}
		wg.Add(1)
		go func(appointmentID string) {
			defer wg.Done()
			defer sem.Release(1)

			flipped, err := svc.EvaluatePublication(ctx, appointmentID)
			if err != nil {
				log.Warn().Str("appointment", appointmentID).Err(err).Msg("reconcile failed")
				return
			}
			if flipped {
				atomic.AddInt64(&published, 1)
				log.Info().Str("appointment", appointmentID).Msg("publication repaired")
			}
		}(id)
	}

	wg.Wait()
	log.Info().Int64("published", published).Msg("reconciliation completed")
}
