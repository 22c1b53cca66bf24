package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSameKeyIsPaced(t *testing.T) {
	l := New(map[string]time.Duration{"svc": 50 * time.Millisecond})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(ctx, "svc"); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	elapsed := time.Since(start)

	// First call consumes the initial token; the next two wait ~50ms each.
	if elapsed < 80*time.Millisecond {
		t.Errorf("three calls finished in %v, expected pacing of at least ~100ms", elapsed)
	}
}

func TestDifferentKeysDoNotSerialize(t *testing.T) {
	l := New(map[string]time.Duration{
		"a": time.Second,
		"b": time.Second,
	})
	ctx := context.Background()

	start := time.Now()
	if err := l.Wait(ctx, "a"); err != nil {
		t.Fatalf("Wait(a): %v", err)
	}
	if err := l.Wait(ctx, "b"); err != nil {
		t.Fatalf("Wait(b): %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("first calls on distinct keys took %v, expected no mutual blocking", elapsed)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	l := New(map[string]time.Duration{"svc": time.Hour})
	ctx := context.Background()

	// Drain the initial token.
	if err := l.Wait(ctx, "svc"); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	cancelled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(cancelled, "svc"); err == nil {
		t.Error("expected error when context expires before a token is available")
	}
}

func TestThrottleRunsFn(t *testing.T) {
	l := New(nil)
	got, err := Throttle(context.Background(), l, "svc", func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Errorf("Throttle = (%q, %v), want (ok, nil)", got, err)
	}
}

func TestThrottlePropagatesFnError(t *testing.T) {
	l := New(nil)
	wantErr := errors.New("downstream")
	_, err := Throttle(context.Background(), l, "svc", func(ctx context.Context) (int, error) {
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Throttle error = %v, want %v", err, wantErr)
	}
}
