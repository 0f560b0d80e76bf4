// Package appointments is the HTTP client for the internal directory
// services this engine depends on: appointment lookups, worker assignment
// resolution and user profiles. It implements domain.AppointmentDirectory,
// domain.EmployeeDirectory and domain.UserDirectory.
package appointments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"brightnest/internal/adapters/observability"
	"brightnest/internal/domain"
)

type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) *Client {
	if rps <= 0 {
		rps = 20
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 10 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}
}

func (c *Client) GetAppointment(ctx context.Context, id string) (domain.AppointmentView, error) {
	var out domain.AppointmentView
	err := c.get(ctx, "/internal/appointments/"+url.PathEscape(id), "appointment", &out)
	return out, err
}

func (c *Client) ListCompletedForHomeowner(ctx context.Context, userID string) ([]domain.AppointmentView, error) {
	var out []domain.AppointmentView
	err := c.get(ctx, "/internal/homeowners/"+url.PathEscape(userID)+"/appointments?status=completed", "homeowner_appointments", &out)
	return out, err
}

func (c *Client) ListCompletedForCleaner(ctx context.Context, userID string) ([]domain.AppointmentView, error) {
	var out []domain.AppointmentView
	err := c.get(ctx, "/internal/cleaners/"+url.PathEscape(userID)+"/appointments?status=completed", "cleaner_appointments", &out)
	return out, err
}

// ResolveWorker maps a worker assignment to its user identity. Stale
// assignments resolve to 404, which surfaces as domain.ErrNotFound so the
// fan-out can skip them.
func (c *Client) ResolveWorker(ctx context.Context, workerID string) (string, error) {
	var out struct {
		UserID string `json:"userId"`
	}
	if err := c.get(ctx, "/internal/workers/"+url.PathEscape(workerID), "worker", &out); err != nil {
		return "", err
	}
	if out.UserID == "" {
		return "", fmt.Errorf("worker %s has no user: %w", workerID, domain.ErrNotFound)
	}
	return out.UserID, nil
}

func (c *Client) BusinessOwnerOf(ctx context.Context, workerID string) (string, error) {
	var out struct {
		UserID string `json:"userId"`
	}
	if err := c.get(ctx, "/internal/workers/"+url.PathEscape(workerID)+"/business-owner", "business_owner", &out); err != nil {
		return "", err
	}
	if out.UserID == "" {
		return "", fmt.Errorf("worker %s has no business owner: %w", workerID, domain.ErrNotFound)
	}
	return out.UserID, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (domain.UserView, error) {
	var out domain.UserView
	err := c.get(ctx, "/internal/users/"+url.PathEscape(id), "user", &out)
	return out, err
}

// get performs a GET with client-side rate limiting and a small retry loop
// on 429/5xx, decoding JSON into out.
func (c *Client) get(ctx context.Context, path, endpoint string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 3; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
		if err != nil {
			return err
		}
		if c.key != "" {
			req.Header.Set("X-API-Key", c.key)
		}
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 2 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return lastErr
		}
		observability.ObserveExternal("directory", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case http.StatusNotFound:
			resp.Body.Close()
			return fmt.Errorf("directory %s: %w", path, domain.ErrNotFound)

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			resp.Body.Close()
			lastErr = fmt.Errorf("directory %s: remote %d", path, resp.StatusCode)
			if i < 2 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			resp.Body.Close()
			return fmt.Errorf("directory %s: bad status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func backoff(i int) time.Duration {
	return time.Duration(1<<i) * 100 * time.Millisecond
}

var _ interface {
	domain.AppointmentDirectory
	domain.EmployeeDirectory
	domain.UserDirectory
} = (*Client)(nil)
