//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"brightnest/internal/domain"
	mysqlrepo "brightnest/internal/storage/mysql"
)

// ---------- helpers ----------

func pstr(s string) *string     { return &s }
func pfloat(f float64) *float64 { return &f }
func pbool(b bool) *bool        { return &b }

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/migrations)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

// ---------- test ----------

func TestRepoAgainstRealMySQL(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode: skipping dockerized MySQL test")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest pool: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=brightnest",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "brightnest")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	repo := mysqlrepo.New(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	// Original homeowner review with a full aspect payload.
	original := domain.Review{
		ID:            "r-orig",
		AppointmentID: "appt-1",
		ReviewerID:    "ho-1",
		UserID:        "cl-1",
		Type:          domain.HomeownerToCleaner,
		Rating:        4.5,
		Comment:       pstr("spotless"),
		ReviewerName:  pstr("Dana Reyes"),
		Homeowner: &domain.HomeownerAspects{
			CleaningQuality: pfloat(5),
			Punctuality:     pfloat(4),
			WouldRecommend:  pbool(true),
		},
		CreatedAt: now,
	}
	if err := repo.CreateReview(ctx, &original); err != nil {
		t.Fatalf("CreateReview original: %v", err)
	}

	// The unique key rejects a second original for the same triple.
	dup := original
	dup.ID = "r-dup"
	if err := repo.CreateReview(ctx, &dup); err != domain.ErrDuplicateReview {
		t.Fatalf("expected ErrDuplicateReview, got %v", err)
	}

	// One copy for the same triple coexists with the original; a second copy
	// trips the same key.
	cp := original
	cp.ID = "r-copy"
	cp.SourceReviewID = pstr("r-orig")
	cp.IsEmployeeCopy = true
	if err := repo.CreateReview(ctx, &cp); err != nil {
		t.Fatalf("CreateReview copy: %v", err)
	}
	cp2 := cp
	cp2.ID = "r-copy-2"
	if err := repo.CreateReview(ctx, &cp2); err != domain.ErrDuplicateReview {
		t.Fatalf("expected ErrDuplicateReview for second copy, got %v", err)
	}

	ok, err := repo.HasOriginalReview(ctx, "ho-1", "appt-1", "cl-1")
	if err != nil || !ok {
		t.Fatalf("HasOriginalReview: ok=%v err=%v", ok, err)
	}

	// Aspects survive the JSON column round trip.
	got, err := repo.GetReview(ctx, "r-orig")
	if err != nil {
		t.Fatalf("GetReview: %v", err)
	}
	if got.Homeowner == nil || *got.Homeowner.CleaningQuality != 5 || !*got.Homeowner.WouldRecommend {
		t.Fatalf("aspects did not round-trip: %+v", got.Homeowner)
	}
	if got.IsPublished || *got.Comment != "spotless" || *got.ReviewerName != "Dana Reyes" {
		t.Fatalf("unexpected row: %+v", got)
	}

	// Second side arrives; the appointment shows up in the reconciler scan
	// until the bulk flip.
	counter := domain.Review{
		ID:            "r-cl",
		AppointmentID: "appt-1",
		ReviewerID:    "cl-1",
		UserID:        "ho-1",
		Type:          domain.CleanerToHomeowner,
		Rating:        4,
		Cleaner:       &domain.CleanerAspects{WouldWorkForAgain: pbool(true)},
		CreatedAt:     now.Add(time.Second),
	}
	if err := repo.CreateReview(ctx, &counter); err != nil {
		t.Fatalf("CreateReview counter: %v", err)
	}

	ids, err := repo.ListUnpublishedAppointments(ctx)
	if err != nil {
		t.Fatalf("ListUnpublishedAppointments: %v", err)
	}
	if len(ids) != 1 || ids[0] != "appt-1" {
		t.Fatalf("unexpected unpublished scan: %v", ids)
	}

	if err := repo.PublishAppointment(ctx, "appt-1"); err != nil {
		t.Fatalf("PublishAppointment: %v", err)
	}
	rows, err := repo.ListByAppointment(ctx, "appt-1")
	if err != nil {
		t.Fatalf("ListByAppointment: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for _, r := range rows {
		if !r.IsPublished {
			t.Fatalf("row %s not published", r.ID)
		}
	}
	if ids, _ := repo.ListUnpublishedAppointments(ctx); len(ids) != 0 {
		t.Fatalf("scan not empty after publish: %v", ids)
	}

	about, err := repo.ListPublishedAbout(ctx, "cl-1")
	if err != nil {
		t.Fatalf("ListPublishedAbout: %v", err)
	}
	// Original and its copy share the subject here, so both show up.
	if len(about) != 2 || about[0].ID != "r-orig" {
		t.Fatalf("unexpected published-about rows: %+v", about)
	}

	authored, err := repo.ListAuthoredBy(ctx, "ho-1")
	if err != nil {
		t.Fatalf("ListAuthoredBy: %v", err)
	}
	if len(authored) != 2 {
		t.Fatalf("expected original plus copy, got %d rows", len(authored))
	}

	if err := repo.DeleteReview(ctx, "r-ghost"); err == nil {
		t.Fatalf("expected ErrNotFound deleting a missing row")
	}

	// Preferred-cleaner rows: insert is idempotent, delete is a silent no-op.
	pref := domain.HomePreferredCleaner{
		HomeID: "home-1", CleanerID: "cl-1", SetAt: now, SetBy: domain.PreferredByReview,
	}
	if err := repo.SetPreferred(ctx, pref); err != nil {
		t.Fatalf("SetPreferred: %v", err)
	}
	again := pref
	again.SetBy = domain.PreferredBySettings
	if err := repo.SetPreferred(ctx, again); err != nil {
		t.Fatalf("SetPreferred twice: %v", err)
	}
	p, err := repo.GetPreferred(ctx, "home-1", "cl-1")
	if err != nil {
		t.Fatalf("GetPreferred: %v", err)
	}
	if p.SetBy != domain.PreferredByReview {
		t.Fatalf("second insert must not rewrite the row: %+v", p)
	}
	if err := repo.RemovePreferred(ctx, "home-1", "cl-1"); err != nil {
		t.Fatalf("RemovePreferred: %v", err)
	}
	if _, err := repo.GetPreferred(ctx, "home-1", "cl-1"); err == nil {
		t.Fatalf("expected ErrNotFound after removal")
	}
	if err := repo.RemovePreferred(ctx, "home-1", "cl-1"); err != nil {
		t.Fatalf("RemovePreferred absent: %v", err)
	}
}
