package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Error("null cache should never store data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	key := NewDefaultKeyer().FrameKey("NPP", 2018, FrameKeyOpts{Palette: "Greens"})
	if err := c.Set(ctx, key, []byte("frame bytes"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	data, hit, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !hit || string(data) != "frame bytes" {
		t.Errorf("got %q hit=%v, want stored frame", data, hit)
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, key); hit {
		t.Error("deleted key should miss")
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Errorf("deleting a missing key should not error: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if err := c.Set(ctx, "short-lived", []byte("x"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "short-lived"); hit {
		t.Error("expired entry should miss")
	}
}

func TestKeyerDistinguishesInputs(t *testing.T) {
	k := NewDefaultKeyer()
	base := FrameKeyOpts{Palette: "Greens", Width: 3840, Height: 2160}

	keys := map[string]bool{
		k.FrameKey("NPP", 2018, base): true,
		k.FrameKey("NPP", 2019, base): true,
		k.FrameKey("NBP", 2018, base): true,
		k.FrameKey("NPP", 2018, FrameKeyOpts{Palette: "Blues", Width: 3840, Height: 2160}): true,
		k.LegendKey("NPP", base):   true,
		k.SequenceKey("NPP", base): true,
	}
	if len(keys) != 6 {
		t.Errorf("got %d distinct keys, want 6", len(keys))
	}

	if k.FrameKey("NPP", 2018, base) != k.FrameKey("NPP", 2018, base) {
		t.Error("identical inputs should produce identical keys")
	}
}

func TestScopedKeyerPrefixes(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "run42:")
	key := scoped.FrameKey("NPP", 2018, FrameKeyOpts{})
	if key == inner.FrameKey("NPP", 2018, FrameKeyOpts{}) {
		t.Error("scoped key should differ from unscoped key")
	}
	if key[:6] != "run42:" {
		t.Errorf("scoped key %q should carry the prefix", key)
	}
}

func TestHashStable(t *testing.T) {
	a := Hash([]byte("payload"))
	b := Hash([]byte("payload"))
	if a != b {
		t.Error("hash should be deterministic")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
}

func TestRetryWithBackoffStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("bad input")
	err := RetryWithBackoff(context.Background(), func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Errorf("got %v, want the permanent error", err)
	}
	if calls != 1 {
		t.Errorf("permanent errors should not retry, got %d calls", calls)
	}
}

func TestRetryWithBackoffCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RetryWithBackoff(ctx, func() error {
		return Retryable(errors.New("transient"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
