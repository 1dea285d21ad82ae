package quotecache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"pricetracker/internal/fetcher"
	"pricetracker/internal/freshness"
)

// fakeRedis implements the two commands the cache uses; anything else panics
// through the nil embedded interface.
type fakeRedis struct {
	redis.Cmdable
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func testPolicy(now time.Time) *freshness.Policy {
	return freshness.NewPolicy(time.UTC).WithClock(func() time.Time { return now })
}

func TestCache_SetGet(t *testing.T) {
	rdb := newFakeRedis()
	c := New(rdb, testPolicy(time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC)))
	ctx := context.Background()
	url := "https://tweakers.net/pricewatch/1/"

	if _, ok, err := c.Get(ctx, url); ok || err != nil {
		t.Fatalf("Get() on empty cache = %v, %v", ok, err)
	}

	q := fetcher.NewQuote("SSD", 150, 160, "https://shop.example/ssd")
	if err := c.Set(ctx, url, q); err != nil {
		t.Fatalf("Set() returned unexpected error: %v", err)
	}
	if ttl := rdb.ttls[Key(url)]; ttl != 6*time.Hour {
		t.Errorf("ttl = %v, want 6h", ttl)
	}

	got, ok, err := c.Get(ctx, url)
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if got != q {
		t.Errorf("Get() = %+v, want %+v", got, q)
	}
}

func TestCache_SkipsFallback(t *testing.T) {
	rdb := newFakeRedis()
	c := New(rdb, testPolicy(time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC)))

	q := fetcher.NewQuote("SSD", 150, 160, "").AsFallback()
	if err := c.Set(context.Background(), "u", q); err != nil {
		t.Fatalf("Set() returned unexpected error: %v", err)
	}
	if len(rdb.data) != 0 {
		t.Error("fallback quote was cached")
	}
}

func TestCache_CorruptEntry(t *testing.T) {
	rdb := newFakeRedis()
	rdb.data[Key("u")] = "{not json"

	if _, _, err := New(rdb, nil).Get(context.Background(), "u"); err == nil {
		t.Error("Get() expected error for corrupt entry, got nil")
	}
}

func TestTTL_UntilMidnight(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{"evening", time.Date(2024, 6, 10, 22, 30, 0, 0, time.UTC), 90 * time.Minute},
		{"just after midnight", time.Date(2024, 6, 10, 0, 0, 1, 0, time.UTC), 24*time.Hour - time.Second},
		{"last second", time.Date(2024, 6, 10, 23, 59, 59, 0, time.UTC), time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := freshness.NewPolicy(time.UTC).WithClock(func() time.Time { return tt.now })
			if got := New(nil, policy).TTL(); got != tt.want {
				t.Errorf("TTL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKey(t *testing.T) {
	if got := Key("https://tweakers.net/pricewatch/1/"); got != "pricetracker:quote:https://tweakers.net/pricewatch/1/" {
		t.Errorf("Key() = %q", got)
	}
}
