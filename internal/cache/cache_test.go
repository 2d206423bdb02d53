package cache

import (
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New(time.Minute)

	c.Set("k", 42)

	v, ok := c.Get("k")

	if !ok {
		t.Fatal("expected a hit")
	}
	if v != 42 {
		t.Fatalf("got %v, want 42", v)
	}
}

func TestGetMiss(t *testing.T) {
	c := New(time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected a miss")
	}
}

func TestExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)

	c.Set("k", "v")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected the entry to expire")
	}
}

func TestDelete(t *testing.T) {
	c := New(time.Minute)

	c.Set("k", "v")
	c.Delete("k")

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected the entry to be gone")
	}
}

func TestClear(t *testing.T) {
	c := New(time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected an empty cache")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected an empty cache")
	}
}
