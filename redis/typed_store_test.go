package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/voicenotes/component"
	"github.com/kbukum/voicenotes/logger"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)
	client, err := New(Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	if err != nil {
		t.Fatalf("failed to create redis client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mini
}

type cachedTags struct {
	Tags []string `json:"tags"`
}

func TestTypedStoreSaveAndLoad(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[cachedTags](client, "tags")
	ctx := context.Background()

	if err := store.Save(ctx, "h1", &cachedTags{Tags: []string{"work", "meeting"}}, 0); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx, "h1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || len(got.Tags) != 2 || got.Tags[0] != "work" {
		t.Fatalf("got %+v", got)
	}
}

func TestTypedStoreLoadMissing(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[cachedTags](client, "tags")
	got, err := store.Load(context.Background(), "nope")
	if err != nil || got != nil {
		t.Fatalf("Load missing = %+v, %v", got, err)
	}
}

func TestTypedStoreDelete(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[cachedTags](client, "tags")
	ctx := context.Background()

	_ = store.Save(ctx, "h1", &cachedTags{}, 0)
	if err := store.Delete(ctx, "h1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := store.Load(ctx, "h1"); got != nil {
		t.Fatalf("expected nil after delete, got %+v", got)
	}
}

func TestTypedStoreTTL(t *testing.T) {
	client, mini := newTestClient(t)
	store := NewTypedStore[cachedTags](client, "tags")
	ctx := context.Background()

	if err := store.Save(ctx, "h1", &cachedTags{Tags: []string{"a"}}, 2*time.Second); err != nil {
		t.Fatalf("Save: %v", err)
	}
	mini.FastForward(3 * time.Second)
	if got, err := store.Load(ctx, "h1"); err != nil || got != nil {
		t.Fatalf("after TTL = %+v, %v", got, err)
	}
}

func TestTypedStoreKeyPrefix(t *testing.T) {
	client, mini := newTestClient(t)
	ctx := context.Background()

	_ = NewTypedStore[cachedTags](client, "voicenotes:tags").Save(ctx, "h1", &cachedTags{}, 0)
	if _, err := mini.Get("voicenotes:tags:h1"); err != nil {
		t.Fatalf("prefixed key missing: %v", err)
	}
	_ = NewTypedStore[cachedTags](client, "").Save(ctx, "bare", &cachedTags{}, 0)
	if _, err := mini.Get("bare"); err != nil {
		t.Fatalf("bare key missing: %v", err)
	}
}

func TestConfig(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Addr != "localhost:6379" || cfg.KeyPrefix != "voicenotes" || cfg.TagCacheTTL != 24*time.Hour {
		t.Errorf("defaults = %+v", cfg)
	}
	if err := (&Config{Enabled: true, PoolSize: 1}).Validate(); err == nil {
		t.Error("expected missing addr error")
	}
	if _, err := New(Config{}, logger.Nop()); err == nil {
		t.Error("expected disabled error")
	}
}

func TestComponentLifecycle(t *testing.T) {
	mini := miniredis.RunT(t)
	c := NewComponent(Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	ctx := context.Background()

	if h := c.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("health before start = %s", h.Status)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h := c.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("health = %s: %s", h.Status, h.Message)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
