package http

import (
	"testing"
	"time"
)

func TestRateLimiterCountsViolations(t *testing.T) {
	r := newRateLimiter(0.001, 2, 3)

	if !r.allow() || !r.allow() {
		t.Fatalf("burst should be allowed")
	}
	for i := 1; i <= 3; i++ {
		if r.allow() {
			t.Fatalf("frame %d should be throttled", i)
		}
		if i == 1 && !r.shouldWarn() {
			t.Fatalf("first violation should warn")
		}
		if r.exhausted() {
			t.Fatalf("exhausted after %d violations", i)
		}
	}
	r.allow()
	if !r.exhausted() {
		t.Fatalf("expected exhausted after exceeding the limit")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	r := newRateLimiter(0, 0, 1)
	for range 1000 {
		if !r.allow() {
			t.Fatalf("disabled limiter throttled a frame")
		}
	}
	if r.exhausted() {
		t.Fatalf("disabled limiter reported exhausted")
	}
}

func TestRateLimiterForgivesAfterQuietWindow(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	r := newRateLimiter(1, 1, 3)
	r.now = func() time.Time { return clock }

	burst := func() {
		if !r.allow() {
			t.Fatalf("frame after refill should be allowed")
		}
		for range 3 {
			r.allow()
		}
	}

	burst()
	if r.exhausted() || r.violations != 3 {
		t.Fatalf("unexpected state after first burst: %d violations", r.violations)
	}

	// Well-behaved for longer than the window: the count starts over.
	clock = clock.Add(violationWindow + time.Second)
	burst()
	if r.exhausted() {
		t.Fatalf("occasional bursts should not disconnect, got %d violations", r.violations)
	}

	// Another burst without a quiet period accumulates.
	clock = clock.Add(2 * time.Second)
	burst()
	if !r.exhausted() {
		t.Fatalf("sustained abuse should exhaust the limiter, got %d violations", r.violations)
	}
}
