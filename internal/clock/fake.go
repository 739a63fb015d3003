package clock

import (
	"context"
	"errors"
	"time"
)

// FakeSource returns scripted results in order, repeating the last one.
type FakeSource struct {
	Results []FakeResult
	Calls   int
}

// FakeResult is one scripted Fetch outcome.
type FakeResult struct {
	Time time.Time
	Err  error
}

// NewFakeSource returns a source that always yields t.
func NewFakeSource(t time.Time) *FakeSource {
	return &FakeSource{Results: []FakeResult{{Time: t}}}
}

// NewFailingSource returns a source that always fails.
func NewFailingSource() *FakeSource {
	return &FakeSource{Results: []FakeResult{{Err: errors.New("no route to ntp server")}}}
}

// Fetch returns the next scripted result.
func (f *FakeSource) Fetch(ctx context.Context) (time.Time, error) {
	i := f.Calls
	f.Calls++
	if len(f.Results) == 0 {
		return time.Time{}, errors.New("no results configured")
	}
	if i >= len(f.Results) {
		i = len(f.Results) - 1
	}
	r := f.Results[i]
	return r.Time, r.Err
}
