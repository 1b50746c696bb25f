package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterAllowAndReset(t *testing.T) {
	lim := NewMemory(2, time.Second)
	now := time.Now()

	allowed, retry, err := lim.Allow(context.Background(), "ip", now)
	if err != nil || !allowed || retry != 0 {
		t.Fatalf("expected allow on first call")
	}

	allowed, retry, err = lim.Allow(context.Background(), "ip", now)
	if err != nil || !allowed || retry != 0 {
		t.Fatalf("expected allow on second call")
	}

	allowed, retry, err = lim.Allow(context.Background(), "ip", now.Add(100*time.Millisecond))
	if err != nil || allowed {
		t.Fatalf("expected rate limit on third call")
	}
	if retry != 900*time.Millisecond {
		t.Fatalf("retryAfter = %v, want 900ms", retry)
	}

	allowed, _, err = lim.Allow(context.Background(), "other", now)
	if err != nil || !allowed {
		t.Fatalf("keys must be independent")
	}

	allowed, _, err = lim.Allow(context.Background(), "ip", now.Add(2*time.Second))
	if err != nil || !allowed {
		t.Fatalf("expected allow after window reset")
	}
}

func TestMemoryLimiterCleanup(t *testing.T) {
	lim := NewMemory(1, time.Second)
	now := time.Now()

	lim.Allow(context.Background(), "1.1.1.1", now)
	if len(lim.entries) != 1 {
		t.Fatalf("expected entry")
	}

	lim.Allow(context.Background(), "2.2.2.2", now.Add(2*time.Second))
	if len(lim.entries) != 1 {
		t.Fatalf("expected cleanup to remove expired entries")
	}
}
