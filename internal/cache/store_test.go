package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemStoreSetGetRoundTrip(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	key := StrategyKey("default")

	if _, ok := store.Get(ctx, key); ok {
		t.Fatal("Get() found a value before any Set")
	}

	payload := []byte(`[{"symbol":"AAPL"}]`)
	if err := store.Set(ctx, key, payload, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok := store.Get(ctx, key)
	if !ok {
		t.Fatal("Get() missing after Set")
	}
	if string(got) != string(payload) {
		t.Fatalf("Get() = %s, want %s", got, payload)
	}
}

func TestMemStoreExpiresAfterTTL(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	key := FallbackKey()

	if err := store.Set(ctx, key, []byte("x"), time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, ok := store.Get(ctx, key); ok {
		t.Fatal("Get() returned an expired entry")
	}
}

func TestSetIsAtomicWholeValueWrite(t *testing.T) {
	// Publish is always a single whole-value write: a reader never observes
	// a partial array, since Set copies val before returning.
	store := NewMemory()
	ctx := context.Background()
	key := StrategyKey("default")

	payload := []byte(`[1,2,3]`)
	if err := store.Set(ctx, key, payload, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	payload[0] = 'X' // mutate the caller's slice after Set returns

	got, _ := store.Get(ctx, key)
	if string(got) != "[1,2,3]" {
		t.Fatalf("Get() = %s, want unaffected by caller mutation", got)
	}
}

func TestStrategyKeyAndFallbackKeyDiffer(t *testing.T) {
	if StrategyKey("default") == FallbackKey() {
		t.Fatal("StrategyKey and FallbackKey collide")
	}
}
