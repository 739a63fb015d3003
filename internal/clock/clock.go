// Package clock fetches wall-clock time for the telemetry batch.
// Failure is never fatal: the caller omits the time record.
package clock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/beevik/ntp"
)

// ErrUnavailable is returned when every attempt failed.
var ErrUnavailable = errors.New("time unavailable")

// Defaults match the firmware: 3 attempts, 5 seconds apart.
const (
	DefaultAttempts = 3
	DefaultSpacing  = 5 * time.Second
)

// Source returns the current time from some authority.
type Source interface {
	Fetch(ctx context.Context) (time.Time, error)
}

// NTPSource queries an NTP server.
type NTPSource struct {
	Server  string
	Timeout time.Duration
}

// Fetch performs one NTP query and validates the response.
func (s NTPSource) Fetch(ctx context.Context) (time.Time, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return time.Time{}, ctx.Err()
	}

	resp, err := ntp.QueryWithOptions(s.Server, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return time.Time{}, fmt.Errorf("ntp query %s: %w", s.Server, err)
	}
	if err := resp.Validate(); err != nil {
		return time.Time{}, fmt.Errorf("ntp response from %s: %w", s.Server, err)
	}
	return resp.Time, nil
}

// Fetcher retries a Source a bounded number of times.
type Fetcher struct {
	Source   Source
	Attempts int
	Spacing  time.Duration

	// Sleep waits between attempts; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher returns a Fetcher with the firmware defaults.
func NewFetcher(src Source) *Fetcher {
	return &Fetcher{
		Source:   src,
		Attempts: DefaultAttempts,
		Spacing:  DefaultSpacing,
		Sleep:    sleepCtx,
	}
}

// Fetch returns the first successful reading, or ErrUnavailable.
func (f *Fetcher) Fetch(ctx context.Context) (time.Time, error) {
	attempts := f.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := f.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		t, err := f.Source.Fetch(ctx)
		if err == nil {
			return t, nil
		}
		lastErr = err
		log.Printf("clock: attempt %d/%d failed: %v", i, attempts, err)

		if i == attempts {
			break
		}
		if err := sleep(ctx, f.Spacing); err != nil {
			break
		}
	}
	return time.Time{}, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// Format renders t in the configured offset, e.g. "2026-03-01 07:15:00+00:00".
func Format(t time.Time, offset time.Duration) string {
	zone := time.FixedZone("", int(offset.Seconds()))
	return t.In(zone).Format("2006-01-02 15:04:05-07:00")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
