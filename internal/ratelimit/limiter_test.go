package ratelimit

import (
	"net/http"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestCheckCreate_Cooldown(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := New(&Config{
		CreateCooldown:     2 * time.Second,
		CreateMaxPerHour:   30,
		CreateMaxIPPerHour: 120,
		Clock:              clock,
	})
	defer limiter.Close()

	userKey := "42"
	ip := "203.0.113.7"

	result := limiter.CheckCreate(userKey, ip)
	if !result.Allowed {
		t.Errorf("First request should be allowed, got blocked: %s", result.Reason)
	}
	limiter.RecordCreate(userKey, ip)

	clock.Advance(1 * time.Second)
	result = limiter.CheckCreate(userKey, ip)
	if result.Allowed {
		t.Error("Second request within cooldown should be blocked")
	}
	if result.Reason != "cooldown" {
		t.Errorf("Expected reason 'cooldown', got '%s'", result.Reason)
	}
	if result.RetryAfter != 1*time.Second {
		t.Errorf("Expected RetryAfter 1s, got %v", result.RetryAfter)
	}

	clock.Advance(2 * time.Second)
	result = limiter.CheckCreate(userKey, ip)
	if !result.Allowed {
		t.Errorf("Request after cooldown should be allowed, got blocked: %s", result.Reason)
	}
}

func TestCheckCreate_HourlyLimit(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := New(&Config{
		CreateCooldown:     1 * time.Millisecond,
		CreateMaxPerHour:   3,
		CreateMaxIPPerHour: 120,
		Clock:              clock,
	})
	defer limiter.Close()

	userKey := "7"
	ip := "203.0.113.8"

	for i := 0; i < 3; i++ {
		result := limiter.CheckCreate(userKey, ip)
		if !result.Allowed {
			t.Fatalf("Request %d should be allowed, got blocked: %s", i+1, result.Reason)
		}
		limiter.RecordCreate(userKey, ip)
		clock.Advance(time.Second)
	}

	result := limiter.CheckCreate(userKey, ip)
	if result.Allowed {
		t.Error("Fourth request within the hour should be blocked")
	}
	if result.Reason != "hourly_limit" {
		t.Errorf("Expected reason 'hourly_limit', got '%s'", result.Reason)
	}

	// Window resets after an hour
	clock.Advance(time.Hour)
	result = limiter.CheckCreate(userKey, ip)
	if !result.Allowed {
		t.Errorf("Request after window reset should be allowed, got blocked: %s", result.Reason)
	}
}

func TestCheckCreate_IPLimitSpansUsers(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := New(&Config{
		CreateCooldown:     1 * time.Millisecond,
		CreateMaxPerHour:   100,
		CreateMaxIPPerHour: 2,
		Clock:              clock,
	})
	defer limiter.Close()

	ip := "203.0.113.9"
	limiter.RecordCreate("1", ip)
	limiter.RecordCreate("2", ip)

	result := limiter.CheckCreate("3", ip)
	if result.Allowed {
		t.Error("Third user from the same IP should be blocked")
	}
	if result.Reason != "ip_hourly_limit" {
		t.Errorf("Expected reason 'ip_hourly_limit', got '%s'", result.Reason)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		trustProxy bool
		want       string
	}{
		{
			name:       "direct connection",
			remoteAddr: "203.0.113.10:51234",
			want:       "203.0.113.10",
		},
		{
			name:       "untrusted proxy ignores xff",
			remoteAddr: "203.0.113.10:51234",
			xff:        "198.51.100.1",
			trustProxy: false,
			want:       "203.0.113.10",
		},
		{
			name:       "trusted proxy uses rightmost public xff",
			remoteAddr: "10.0.0.1:51234",
			xff:        "198.51.100.1, 10.0.0.2",
			trustProxy: true,
			want:       "198.51.100.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := GetClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("GetClientIP() = %s, want %s", got, tt.want)
			}
		})
	}
}
