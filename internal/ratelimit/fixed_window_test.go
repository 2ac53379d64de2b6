package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestLocalFixedWindowLimiter(t *testing.T) {
	limiter, err := NewFixedWindowLimiter(2, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	if !limiter.Allow("login|1.2.3.4") {
		t.Fatalf("first request should pass")
	}
	if !limiter.Allow("login|1.2.3.4") {
		t.Fatalf("second request should pass")
	}
	if limiter.Allow("login|1.2.3.4") {
		t.Fatalf("third request should be limited")
	}
	if !limiter.Allow("login|5.6.7.8") {
		t.Fatalf("other key should not be limited")
	}
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	var limiter *FixedWindowLimiter
	for i := 0; i < 10; i++ {
		if !limiter.Allow("any") {
			t.Fatalf("nil limiter must allow")
		}
	}
}

func TestRedisFixedWindowLimiter(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(redis.Addr(), "", "test:ratelimit", 2, time.Minute)
	if err != nil {
		t.Fatalf("new redis limiter: %v", err)
	}
	if !limiter.Allow("k") {
		t.Fatalf("first request should pass")
	}
	if !limiter.Allow("k") {
		t.Fatalf("second request should pass")
	}
	if limiter.Allow("k") {
		t.Fatalf("third request should be limited")
	}
}

func TestRedisFixedWindowLimiterFailsClosed(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(redis.Addr(), "", "test:ratelimit", 2, time.Minute)
	if err != nil {
		t.Fatalf("new redis limiter: %v", err)
	}
	redis.Close()
	if limiter.Allow("k") {
		t.Fatalf("expected fail-closed when redis is down")
	}
}

func TestLimiterRequiresPositiveConfig(t *testing.T) {
	if _, err := NewFixedWindowLimiter(0, time.Minute); err == nil {
		t.Fatalf("expected error for zero limit")
	}
	if _, err := NewRedisFixedWindowLimiter("", "", "", 1, time.Minute); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}
