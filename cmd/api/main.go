package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"brightnest/internal/adapters/appointments"
	server "brightnest/internal/adapters/http_server"
	"brightnest/internal/adapters/notify"
	"brightnest/internal/adapters/observability"
	redisad "brightnest/internal/adapters/redis"
	"brightnest/internal/app"
	"brightnest/internal/shared"
	mysqlrepo "brightnest/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	directory := appointments.New(cfg.DirectoryBase, cfg.DirectoryKey, 20)

	var push *notify.PushClient
	if cfg.PushBase != "" {
		push = notify.NewPushClient(cfg.PushBase, cfg.PushKey, 10)
	}
	notifier := notify.New(notify.EmailConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		From:     cfg.SMTPFrom,
		Password: cfg.SMTPPass,
	}, push)

	reviews := app.NewReviewService(app.ReviewServiceDeps{
		Reviews:       repo,
		Preferred:     repo,
		Appointments:  directory,
		Employees:     directory,
		Users:         directory,
		Notifier:      notifier,
		Cache:         cache,
		FanoutWorkers: cfg.FanoutWorkers,
	})
	queries := app.NewQueryService(app.QueryServiceDeps{
		Reviews:      repo,
		Preferred:    repo,
		Appointments: directory,
		Employees:    directory,
		Cache:        cache,
		CacheTTL:     cfg.CacheTTL,
	})

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{R: reviews, Q: queries})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
