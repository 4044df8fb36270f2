package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterLocksAfterMaxFailures(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, 5*time.Minute)

	for i := 0; i < 3; i++ {
		if ok, _ := rl.Check("10.0.0.1"); !ok {
			t.Fatalf("Attempt %d should be allowed", i+1)
		}
		rl.RecordFailure("10.0.0.1")
	}

	ok, remaining := rl.Check("10.0.0.1")
	if ok {
		t.Fatal("Expected lockout after 3 failures")
	}
	if remaining <= 0 || remaining > 5*time.Minute {
		t.Errorf("Unexpected lock remaining: %v", remaining)
	}
}

func TestRateLimiterSuccessResetsCounter(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, 5*time.Minute)

	rl.RecordFailure("10.0.0.2")
	rl.RecordFailure("10.0.0.2")
	rl.RecordSuccess("10.0.0.2")

	rl.RecordFailure("10.0.0.2")
	rl.RecordFailure("10.0.0.2")
	if ok, _ := rl.Check("10.0.0.2"); !ok {
		t.Error("Counter should reset on success; two fresh failures must not lock")
	}
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, 5*time.Minute)

	rl.RecordFailure("10.0.0.3")
	if ok, _ := rl.Check("10.0.0.3"); ok {
		t.Error("First client should be blocked")
	}
	if ok, _ := rl.Check("10.0.0.4"); !ok {
		t.Error("Second client must be unaffected")
	}
}

func TestRateLimiterLockExpires(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute, 50*time.Millisecond)

	rl.RecordFailure("10.0.0.5")
	rl.RecordFailure("10.0.0.5")
	if ok, _ := rl.Check("10.0.0.5"); ok {
		t.Fatal("Expected lockout")
	}

	time.Sleep(80 * time.Millisecond)
	if ok, _ := rl.Check("10.0.0.5"); !ok {
		t.Error("Lock should expire after the lock duration")
	}
}
