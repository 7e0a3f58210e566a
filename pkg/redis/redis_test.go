package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/jlindqvist/weektrack/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}
}

func TestCache_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, _ := New(cfg)
	cache := NewCache(client, "test")

	// When Redis is disabled, cache operations should be no-ops
	var result string
	found, err := cache.Get(context.Background(), "key", &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}

	if err := cache.Set(context.Background(), "key", "value", time.Minute); err != nil {
		t.Errorf("Set() error = %v", err)
	}
}

func TestCache_SetGet(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewFromAddr(mr.Addr())
	defer client.Close()

	cache := NewCache(client, "weektrack")
	ctx := context.Background()

	type quote struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price"`
	}

	want := quote{Symbol: "AAPL", Price: 231.5}
	if err := cache.Set(ctx, LiveQuoteKey("AAPL"), want, TTLQuote); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got quote
	found, err := cache.Get(ctx, LiveQuoteKey("AAPL"), &got)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatal("Expected cache hit")
	}
	if got != want {
		t.Errorf("Got %+v, want %+v", got, want)
	}
}

func TestCache_Delete(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewFromAddr(mr.Addr())
	defer client.Close()

	cache := NewCache(client, "weektrack")
	ctx := context.Background()

	if err := cache.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	var got string
	found, err := cache.Get(ctx, "k", &got)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss after delete")
	}
}

func TestCache_Expiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewFromAddr(mr.Addr())
	defer client.Close()

	cache := NewCache(client, "weektrack")
	ctx := context.Background()

	if err := cache.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	mr.FastForward(2 * time.Minute)

	var got string
	found, err := cache.Get(ctx, "k", &got)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss after TTL expiry")
	}
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{
			name:     "DailyClosesKey",
			fn:       func() string { return DailyClosesKey("AAPL", "2026-01-02", "2026-08-21") },
			expected: "daily:AAPL:2026-01-02:2026-08-21",
		},
		{
			name:     "LiveQuoteKey",
			fn:       func() string { return LiveQuoteKey("MSFT") },
			expected: "quote:MSFT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
