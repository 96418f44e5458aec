package ratelimit

import "testing"

func TestAllowRespectsBurst(t *testing.T) {
	l := NewLimiter(1, 2)
	if !l.Allow("host") {
		t.Fatal("first Allow() = false, want true within burst")
	}
	if !l.Allow("host") {
		t.Fatal("second Allow() = false, want true within burst")
	}
	if l.Allow("host") {
		t.Fatal("third Allow() = true, want false once burst is exhausted")
	}
}

func TestAllowIsolatesPerHost(t *testing.T) {
	l := NewLimiter(1, 1)
	if !l.Allow("a") {
		t.Fatal("Allow(a) = false")
	}
	if !l.Allow("b") {
		t.Fatal("Allow(b) = false, want a separate bucket per host")
	}
}

func TestStatsReflectsThrottledHost(t *testing.T) {
	l := NewLimiter(1, 1)
	l.Allow("host")
	l.Allow("host") // exhaust the bucket

	stats := l.Stats()
	s, ok := stats["host"]
	if !ok {
		t.Fatal("Stats() missing host entry")
	}
	if !s.IsThrottled() {
		t.Fatal("IsThrottled() = false for an exhausted bucket")
	}
}
