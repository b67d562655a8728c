package utils

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestRateLimiterRejectsWithinWindow(t *testing.T) {
	rl := NewRateLimiter(5 * time.Second)

	if !rl.Admit(t0) {
		t.Fatal("first request should be admitted")
	}
	if rl.Admit(t0.Add(4 * time.Second)) {
		t.Error("request 4s later should be rejected")
	}
}

func TestRateLimiterAcceptsAfterWindow(t *testing.T) {
	rl := NewRateLimiter(5 * time.Second)

	if !rl.Admit(t0) {
		t.Fatal("first request should be admitted")
	}
	if !rl.Admit(t0.Add(6 * time.Second)) {
		t.Error("request 6s later should be admitted")
	}
}

func TestRateLimiterRejectionDoesNotExtendWindow(t *testing.T) {
	rl := NewRateLimiter(5 * time.Second)

	rl.Admit(t0)
	if rl.Admit(t0.Add(3 * time.Second)) {
		t.Fatal("request 3s later should be rejected")
	}
	// The rejected request must not have moved the window forward.
	if !rl.Admit(t0.Add(5*time.Second + time.Millisecond)) {
		t.Error("request just past the original window should be admitted")
	}
}

func TestRateLimiterConcurrentSameInstant(t *testing.T) {
	rl := NewRateLimiter(5 * time.Second)
	var admitted int64

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Admit(t0) {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	if admitted != 1 {
		t.Errorf("expected exactly 1 admitted request, got %d", admitted)
	}
}

func TestRateLimiterZeroCooldown(t *testing.T) {
	rl := NewRateLimiter(0)
	for i := 0; i < 3; i++ {
		if !rl.Admit(t0) {
			t.Errorf("request %d should be admitted with zero cooldown", i)
		}
	}
}
