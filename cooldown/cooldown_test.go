package cooldown

import (
	"testing"
	"time"
)

// fakeClock lets tests move time forward deterministically.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestStore(window time.Duration) (*Store, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(window)
	s.now = clk.now
	return s, clk
}

func TestBeginFirstUse(t *testing.T) {
	s, _ := newTestStore(900 * time.Second)
	ok, rem := s.Begin("alice")
	if !ok || rem != 0 {
		t.Fatalf("Begin() = (%v, %v), want permitted with no wait", ok, rem)
	}
}

func TestBeginWithinWindow(t *testing.T) {
	s, clk := newTestStore(900 * time.Second)
	if ok, _ := s.Begin("alice"); !ok {
		t.Fatal("first Begin should be permitted")
	}
	clk.t = clk.t.Add(60 * time.Second)
	ok, rem := s.Begin("alice")
	if ok {
		t.Fatal("second Begin within window should be rejected")
	}
	if rem != 840*time.Second {
		t.Errorf("remaining = %v, want 840s", rem)
	}
	// Rejection must not move the timestamp.
	clk.t = clk.t.Add(840 * time.Second)
	if ok, _ := s.Begin("alice"); !ok {
		t.Error("Begin after full window should be permitted")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	if ok, _ := s.Begin("alice"); !ok {
		t.Fatal("alice should be permitted")
	}
	if ok, _ := s.Begin("bob"); !ok {
		t.Error("bob should be unaffected by alice's window")
	}
}

func TestTouchMarksCompletion(t *testing.T) {
	s, clk := newTestStore(10 * time.Second)
	s.Touch("global")
	clk.t = clk.t.Add(4 * time.Second)
	if rem := s.Remaining("global"); rem != 6*time.Second {
		t.Errorf("Remaining = %v, want 6s", rem)
	}
	clk.t = clk.t.Add(6 * time.Second)
	if rem := s.Remaining("global"); rem != 0 {
		t.Errorf("Remaining = %v, want 0 after window elapsed", rem)
	}
}
