package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		calls    int
		wantPass int
	}{
		{
			name:     "burst equals rounded rate",
			rps:      3,
			calls:    3,
			wantPass: 3,
		},
		{
			name:     "exceeding burst blocks",
			rps:      2,
			calls:    5,
			wantPass: 2,
		},
		{
			name:     "fractional rate gets burst of one",
			rps:      0.5,
			calls:    3,
			wantPass: 1,
		},
		{
			name:     "zero rate is unlimited",
			rps:      0,
			calls:    50,
			wantPass: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New()
			rl.Configure("job", tt.rps)

			passed := 0
			for i := 0; i < tt.calls; i++ {
				if rl.Allow("job") {
					passed++
				}
			}

			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestKeyedRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := New()
	rl.Configure("a", 1)

	if !rl.Allow("a") {
		t.Fatal("first call for a should pass")
	}
	if rl.Allow("a") {
		t.Error("second call for a should be throttled")
	}
	if !rl.Limited("a") || rl.Limited("b") {
		t.Error("only a should be limited")
	}
	for i := 0; i < 10; i++ {
		if !rl.Allow("b") {
			t.Fatal("unconfigured key should never be throttled")
		}
	}
}

func TestKeyedRateLimiter_ConfigureZeroRemoves(t *testing.T) {
	rl := New()
	rl.Configure("a", 1)
	rl.Configure("a", 0)

	if rl.Limited("a") {
		t.Error("limit should be removed")
	}
}

func TestKeyedRateLimiter_Wait(t *testing.T) {
	rl := New()
	rl.Configure("job", 20)

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 25; i++ {
		if err := rl.Wait(ctx, "job"); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	// 20 from the burst, 5 more at 20/s take about 250ms.
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("Wait() returned too quickly: %v", elapsed)
	}
}

func TestKeyedRateLimiter_WaitCancelled(t *testing.T) {
	rl := New()
	rl.Configure("job", 0.1)
	rl.Allow("job")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx, "job"); err == nil {
		t.Error("Wait() should fail when the context expires first")
	}
}

func TestKeyedRateLimiter_WaitUnlimited(t *testing.T) {
	rl := New()
	if err := rl.Wait(context.Background(), "free"); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}
