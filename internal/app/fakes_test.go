package app_test

import (
	"context"
	"fmt"
	"sync"

	"brightnest/internal/app"
	"brightnest/internal/domain"
	"brightnest/internal/storage/memory"
)

// ---- helpers ----

func ptr(s string) *string  { return &s }
func pf(f float64) *float64 { return &f }
func pb(b bool) *bool       { return &b }

// ---- fakes ----

// fakeDirectory backs all three directory ports from plain maps.
type fakeDirectory struct {
	appts          map[string]domain.AppointmentView
	homeownerAppts map[string][]domain.AppointmentView
	cleanerAppts   map[string][]domain.AppointmentView
	workers        map[string]string // worker assignment ID -> user ID
	owners         map[string]string // cleaner user ID -> business owner user ID
	users          map[string]domain.UserView
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		appts:          map[string]domain.AppointmentView{},
		homeownerAppts: map[string][]domain.AppointmentView{},
		cleanerAppts:   map[string][]domain.AppointmentView{},
		workers:        map[string]string{},
		owners:         map[string]string{},
		users:          map[string]domain.UserView{},
	}
}

func (d *fakeDirectory) GetAppointment(_ context.Context, id string) (domain.AppointmentView, error) {
	a, ok := d.appts[id]
	if !ok {
		return domain.AppointmentView{}, fmt.Errorf("appointment %s: %w", id, domain.ErrNotFound)
	}
	return a, nil
}

func (d *fakeDirectory) ListCompletedForHomeowner(_ context.Context, userID string) ([]domain.AppointmentView, error) {
	return d.homeownerAppts[userID], nil
}

func (d *fakeDirectory) ListCompletedForCleaner(_ context.Context, userID string) ([]domain.AppointmentView, error) {
	return d.cleanerAppts[userID], nil
}

func (d *fakeDirectory) ResolveWorker(_ context.Context, workerID string) (string, error) {
	uid, ok := d.workers[workerID]
	if !ok {
		return "", fmt.Errorf("worker %s: %w", workerID, domain.ErrNotFound)
	}
	return uid, nil
}

func (d *fakeDirectory) BusinessOwnerOf(_ context.Context, workerUserID string) (string, error) {
	owner, ok := d.owners[workerUserID]
	if !ok {
		return "", fmt.Errorf("owner of %s: %w", workerUserID, domain.ErrNotFound)
	}
	return owner, nil
}

func (d *fakeDirectory) GetUser(_ context.Context, id string) (domain.UserView, error) {
	u, ok := d.users[id]
	if !ok {
		return domain.UserView{}, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return u, nil
}

type sentEmail struct {
	to, cleanerFirstName, homeownerName, homeLabel string
}

type sentPush struct {
	token, title, body string
}

// fakeNotifier records deliveries; failures are injectable per channel.
type fakeNotifier struct {
	mu       sync.Mutex
	emails   []sentEmail
	pushes   []sentPush
	emailErr error
	pushErr  error
}

func (n *fakeNotifier) SendPreferredCleanerEmail(_ context.Context, to, cleanerFirstName, homeownerName, homeLabel string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.emailErr != nil {
		return n.emailErr
	}
	n.emails = append(n.emails, sentEmail{to, cleanerFirstName, homeownerName, homeLabel})
	return nil
}

func (n *fakeNotifier) SendPush(_ context.Context, token, title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pushErr != nil {
		return n.pushErr
	}
	n.pushes = append(n.pushes, sentPush{token, title, body})
	return nil
}

// fakeCache mirrors the redis adapter's contract and records evictions.
type fakeCache struct {
	mu    sync.Mutex
	store map[string]any
	dels  []string
}

func (c *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *domain.UserReviews:
		*d = v.(domain.UserReviews)
	}
	return true, nil
}

func (c *fakeCache) Set(_ context.Context, key string, v any, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

// ---- wiring ----

type harness struct {
	store *memory.Store
	dir   *fakeDirectory
	notes *fakeNotifier
	cache *fakeCache
	svc   *app.ReviewService
	q     *app.QueryService
}

func newHarness() *harness {
	h := &harness{
		store: memory.New(),
		dir:   newFakeDirectory(),
		notes: &fakeNotifier{},
		cache: &fakeCache{},
	}
	h.svc = app.NewReviewService(app.ReviewServiceDeps{
		Reviews:      h.store,
		Preferred:    h.store,
		Appointments: h.dir,
		Employees:    h.dir,
		Users:        h.dir,
		Notifier:     h.notes,
		Cache:        h.cache,
	})
	h.q = app.NewQueryService(app.QueryServiceDeps{
		Reviews:      h.store,
		Preferred:    h.store,
		Appointments: h.dir,
		Employees:    h.dir,
		Cache:        h.cache,
	})
	return h
}
