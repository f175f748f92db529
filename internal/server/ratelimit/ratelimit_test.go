package ratelimit

import (
	"testing"
	"time"
)

func testConfig() *Config {
	return &Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{},
		Blacklist:     map[string]bool{},
		EndpointConfigs: []EndpointConfig{
			{Path: "/api/roles", Method: "POST", Limit: 2, Window: time.Hour, Burst: 2},
			{Path: "/api/roles/", Method: "GET", Limit: 100, Window: time.Minute, Burst: 100},
		},
	}
}

func TestLimiterAllowsWithinBurst(t *testing.T) {
	limiter := NewLimiter(testConfig())
	defer limiter.Stop()

	for i := 0; i < 2; i++ {
		allowed, _ := limiter.Allow("1.2.3.4", "/api/roles", "POST")
		if !allowed {
			t.Fatalf("request %d should be allowed within burst", i+1)
		}
	}

	allowed, info := limiter.Allow("1.2.3.4", "/api/roles", "POST")
	if allowed {
		t.Fatal("request beyond burst should be denied")
	}
	if info.Limit != 2 {
		t.Errorf("Info.Limit = %d, expected 2", info.Limit)
	}
	if info.RetryAfter <= 0 {
		t.Error("expected positive RetryAfter when denied")
	}
}

func TestLimiterIsolatesClients(t *testing.T) {
	limiter := NewLimiter(testConfig())
	defer limiter.Stop()

	limiter.Allow("1.1.1.1", "/api/roles", "POST")
	limiter.Allow("1.1.1.1", "/api/roles", "POST")

	allowed, _ := limiter.Allow("2.2.2.2", "/api/roles", "POST")
	if !allowed {
		t.Error("a different client should have its own bucket")
	}
}

func TestLimiterDisabled(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: false})
	defer limiter.Stop()

	for i := 0; i < 1000; i++ {
		if allowed, _ := limiter.Allow("1.2.3.4", "/api/roles", "POST"); !allowed {
			t.Fatal("disabled limiter should allow everything")
		}
	}
}

func TestLimiterWhitelistAndBlacklist(t *testing.T) {
	cfg := testConfig()
	cfg.Whitelist["10.0.0.1"] = true
	cfg.Blacklist["6.6.6.6"] = true
	limiter := NewLimiter(cfg)
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		if allowed, _ := limiter.Allow("10.0.0.1", "/api/roles", "POST"); !allowed {
			t.Fatal("whitelisted client should never be limited")
		}
	}

	if allowed, _ := limiter.Allow("6.6.6.6", "/health", "POST"); allowed {
		t.Error("blacklisted client should always be denied")
	}
}

func TestMatchEndpoint(t *testing.T) {
	configs := testConfig().EndpointConfigs

	tests := []struct {
		path      string
		method    string
		wantLimit int
		wantNil   bool
	}{
		{"/api/roles", "POST", 2, false},
		{"/api/roles/abc-123/status", "GET", 100, false},
		{"/api/roles/abc-123", "GET", 100, false},
		{"/api/nudges", "POST", 0, true},
		{"/health", "GET", 0, false}, // unlimited
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantNil {
				if got != nil {
					t.Errorf("expected no match, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected a match, got nil")
			}
			if got.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, expected %d", got.Limit, tt.wantLimit)
			}
		})
	}
}

func TestTokenBucketRefill(t *testing.T) {
	// 10 tokens/sec, capacity 1.
	bucket := newTokenBucket(1, 10)

	if !bucket.allow() {
		t.Fatal("first request should be allowed")
	}
	if bucket.allow() {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(150 * time.Millisecond)
	if !bucket.allow() {
		t.Error("bucket should have refilled after 150ms at 10 tokens/sec")
	}
}
