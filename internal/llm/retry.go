package llm

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"
)

// RetryPolicy steuert Wiederholungen bei transienten Fehlern
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration

	// Für Tests austauschbar
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func(max time.Duration) time.Duration
}

const maxBackoffShift = 16

// DefaultRetryPolicy gibt die Standard-Policy zurück (5 Versuche, 1s Basis)
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second}
}

// APIError ist eine Fehlerantwort des LLM-Backends
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api-fehler (%d): %s", e.StatusCode, e.Body)
}

// Retryable meldet, ob der Fehler erneut versucht werden darf
func (e *APIError) Retryable() bool {
	return IsRetryableStatus(e.StatusCode)
}

// IsRetryableStatus: 429, 500 und 503 gelten als transient
func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
		return true
	}
	return false
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) baseDelay() time.Duration {
	if p.BaseDelay <= 0 {
		return time.Second
	}
	return p.BaseDelay
}

// Backoff gibt die Wartezeit vor der Wiederholung nach Versuch n (ab 0) zurück:
// 2^n * BaseDelay plus Jitter aus [0, BaseDelay).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := p.baseDelay()
	if attempt > maxBackoffShift {
		// Obergrenze ohne Jitter, bleibt >= allen vorherigen Werten
		return base<<maxBackoffShift + base - 1
	}
	delay := base << uint(attempt)

	jitter := p.Jitter
	if jitter == nil {
		jitter = randomJitter
	}
	j := jitter(base)
	if j < 0 {
		j = 0
	}
	if j >= base {
		j = base - 1
	}
	return delay + j
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// doWithRetry führt eine HTTP-Anfrage mit exponentiellem Backoff aus.
// build wird pro Versuch aufgerufen, damit der Body neu gelesen werden kann.
// Bei Erfolg (2xx) gehört der Body dem Aufrufer.
func doWithRetry(ctx context.Context, client *http.Client, build func() (*http.Request, error), policy RetryPolicy, tag string) (*http.Response, error) {
	sleep := policy.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	maxAttempts := policy.attempts()

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := policy.Backoff(attempt - 1)
			log.Printf("   [%s] 🔄 Retry %d/%d in %v...", tag, attempt+1, maxAttempts, delay.Round(time.Millisecond))
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		req, err := build()
		if err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			// Bei Context-Abbruch sofort aufhören
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("   [%s] ⚠️ Netzwerk-Fehler nach %v: %v", tag, time.Since(start), err)
			lastErr = fmt.Errorf("anfrage fehlgeschlagen: %w", err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body)}

		if !apiErr.Retryable() {
			log.Printf("   [%s] ❌ Fehler-Antwort (%d), kein Retry", tag, resp.StatusCode)
			return nil, apiErr
		}

		log.Printf("   [%s] ⚠️ Transienter Fehler (%d)", tag, resp.StatusCode)
		lastErr = apiErr
	}

	return nil, lastErr
}
