package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func noSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestFetchFirstAttemptSucceeds(t *testing.T) {
	want := time.Date(2026, 3, 1, 7, 15, 0, 0, time.UTC)
	src := NewFakeSource(want)
	var waits []time.Duration
	f := NewFetcher(src)
	f.Sleep = noSleep(&waits)

	got, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if src.Calls != 1 {
		t.Errorf("expected 1 call, got %d", src.Calls)
	}
	if len(waits) != 0 {
		t.Errorf("expected no waits, got %v", waits)
	}
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	want := time.Date(2026, 3, 1, 7, 15, 0, 0, time.UTC)
	src := &FakeSource{Results: []FakeResult{
		{Err: errors.New("timeout")},
		{Err: errors.New("timeout")},
		{Time: want},
	}}
	var waits []time.Duration
	f := NewFetcher(src)
	f.Sleep = noSleep(&waits)

	got, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if len(waits) != 2 {
		t.Fatalf("expected 2 waits, got %d", len(waits))
	}
	for _, w := range waits {
		if w != DefaultSpacing {
			t.Errorf("wait: got %v, want %v", w, DefaultSpacing)
		}
	}
}

func TestFetchGivesUpAfterThreeAttempts(t *testing.T) {
	src := NewFailingSource()
	var waits []time.Duration
	f := NewFetcher(src)
	f.Sleep = noSleep(&waits)

	_, err := f.Fetch(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if src.Calls != 3 {
		t.Errorf("expected 3 attempts, got %d", src.Calls)
	}
	if len(waits) != 2 {
		t.Errorf("expected 2 waits between 3 attempts, got %d", len(waits))
	}
}

func TestFetchStopsWhenContextDone(t *testing.T) {
	src := NewFailingSource()
	f := NewFetcher(src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if src.Calls != 1 {
		t.Errorf("expected 1 attempt before cancellation stopped retries, got %d", src.Calls)
	}
}

func TestFormat(t *testing.T) {
	ts := time.Date(2026, 3, 1, 7, 15, 9, 0, time.UTC)

	if got := Format(ts, 0); got != "2026-03-01 07:15:09+00:00" {
		t.Errorf("offset 0: got %q", got)
	}
	if got := Format(ts, 2*time.Hour); got != "2026-03-01 09:15:09+02:00" {
		t.Errorf("offset 2h: got %q", got)
	}
}
