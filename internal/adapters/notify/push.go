package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"brightnest/internal/adapters/observability"
)

// PushClient talks to the push gateway. Deliveries are rate limited client
// side and retried once on transient failures.
type PushClient struct {
	base string
	key  string
	hc   *http.Client
	rl   *rate.Limiter
}

func NewPushClient(base, key string, rps int) *PushClient {
	if rps <= 0 {
		rps = 10
	}
	return &PushClient{
		base: strings.TrimRight(base, "/"),
		key:  key,
		hc:   &http.Client{Timeout: 10 * time.Second},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}
}

type pushPayload struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (p *PushClient) Send(ctx context.Context, token, title, body string) error {
	if err := p.rl.Wait(ctx); err != nil {
		return err
	}
	raw, err := json.Marshal(pushPayload{To: token, Title: title, Body: body})
	if err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 2; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.base+"/v1/push", bytes.NewReader(raw))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if p.key != "" {
			req.Header.Set("X-API-Key", p.key)
		}

		start := time.Now()
		resp, err := p.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}
		observability.ObserveExternal("push", "send", resp.StatusCode, time.Since(start))
		resp.Body.Close()

		switch {
		case resp.StatusCode < 300:
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("push gateway: remote %d", resp.StatusCode)
		default:
			return fmt.Errorf("push gateway: bad status %d", resp.StatusCode)
		}
	}
	return lastErr
}
