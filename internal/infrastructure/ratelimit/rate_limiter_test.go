package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterBasic(t *testing.T) {
	limiter := NewRateLimiter(2)

	if qps := limiter.GetQPS(); qps != 2 {
		t.Errorf("expected QPS 2, got %d", qps)
	}
	if !limiter.Allow() {
		t.Error("first request should be allowed")
	}
}

func TestRateLimiterNoLimit(t *testing.T) {
	limiter := NewRateLimiter(0)

	if qps := limiter.GetQPS(); qps != 0 {
		t.Errorf("expected QPS 0 (unlimited), got %d", qps)
	}
	for i := 0; i < 100; i++ {
		if !limiter.Allow() {
			t.Fatal("unlimited limiter should allow all requests")
		}
	}
}

func TestRateLimiterSetQPS(t *testing.T) {
	limiter := NewRateLimiter(10)

	limiter.SetQPS(20)
	if qps := limiter.GetQPS(); qps != 20 {
		t.Errorf("expected QPS 20 after SetQPS, got %d", qps)
	}

	limiter.SetQPS(0)
	if qps := limiter.GetQPS(); qps != 0 {
		t.Errorf("expected QPS 0 after SetQPS(0), got %d", qps)
	}
}

func TestRateLimiterWait(t *testing.T) {
	limiter := NewRateLimiter(1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Errorf("first wait should not error: %v", err)
	}

	// 第二个请求需要等待约1秒
	if err := limiter.Wait(ctx); err != nil {
		t.Errorf("second wait should not error: %v", err)
	}
	duration := time.Since(start)
	if duration < 900*time.Millisecond || duration > 1100*time.Millisecond {
		t.Errorf("expected wait duration around 1s, got %v", duration)
	}
}
