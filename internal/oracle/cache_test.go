package oracle

import (
	"context"
	"path/filepath"
	"testing"
)

func TestCacheGetOrCompute(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	inner := NewScripted("computed once")

	c, err := NewCache(path, inner)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer func() { _ = c.Close() }()

	p := Prompt{System: "sys", User: "user", Meta: "payor/0/1"}

	r1, err := c.Invoke(context.Background(), p)
	if err != nil {
		t.Fatalf("first invoke: %v", err)
	}
	if r1.CacheHit {
		t.Error("first invoke must be a miss")
	}

	// Script is exhausted; a second hit proves the cache served it.
	r2, err := c.Invoke(context.Background(), p)
	if err != nil {
		t.Fatalf("second invoke: %v", err)
	}
	if !r2.CacheHit {
		t.Error("second invoke must be a hit")
	}
	if r2.Text != "computed once" {
		t.Errorf("cached text mismatch: %q", r2.Text)
	}

	if n, _ := c.Entries(); n != 1 {
		t.Errorf("expected 1 entry, got %d", n)
	}
}

func TestCacheMetaSeparatesPrompts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	inner := NewScripted("level 0 reply", "level 1 reply")

	c, err := NewCache(path, inner)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	base := Prompt{System: "sys", User: "same text"}
	p0, p1 := base, base
	p0.Meta = "payor/0/1"
	p1.Meta = "payor/1/2"

	r0, err := c.Invoke(context.Background(), p0)
	if err != nil {
		t.Fatal(err)
	}
	r1, err := c.Invoke(context.Background(), p1)
	if err != nil {
		t.Fatal(err)
	}

	if r0.Text == r1.Text {
		t.Error("different meta must key different cache slots")
	}
}

func TestCachePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	c1, err := NewCache(path, NewScripted("persisted"))
	if err != nil {
		t.Fatal(err)
	}
	p := Prompt{System: "s", User: "u"}
	if _, err := c1.Invoke(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	_ = c1.Close()

	// Reopen with an empty script: only the store can answer.
	c2, err := NewCache(path, NewScripted())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c2.Close() }()

	r, err := c2.Invoke(context.Background(), p)
	if err != nil {
		t.Fatalf("reopened cache: %v", err)
	}
	if !r.CacheHit || r.Text != "persisted" {
		t.Errorf("expected persisted hit, got %+v", r)
	}
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := NewCache(path, NewScripted())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	if _, err := c.Invoke(context.Background(), Prompt{User: "u"}); err == nil {
		t.Fatal("expected inner error to propagate")
	}
	if n, _ := c.Entries(); n != 0 {
		t.Errorf("errors must not be cached, got %d entries", n)
	}
}

func TestKeyStability(t *testing.T) {
	p := Prompt{System: "a", User: "b", Meta: "c"}
	if Key(p) != Key(p) {
		t.Error("key must be deterministic")
	}
	// Field boundaries matter: "a"+"b" must not collide with "ab"+"".
	q := Prompt{System: "ab", User: "", Meta: "c"}
	if Key(p) == Key(q) {
		t.Error("field boundaries must be part of the key")
	}
}
