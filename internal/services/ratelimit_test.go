package services

import (
	"testing"
	"time"
)

func TestCreationLimiter(t *testing.T) {
	l := NewCreationLimiter(time.Hour, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow("u1") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if l.Allow("u1") {
		t.Error("fourth attempt within the window should be rejected")
	}

	// Other users have independent windows.
	if !l.Allow("u2") {
		t.Error("u2 should not be affected by u1's window")
	}
}

func TestCreationLimiterWindowReset(t *testing.T) {
	l := NewCreationLimiter(20*time.Millisecond, 1)

	if !l.Allow("u1") {
		t.Fatal("first attempt should be allowed")
	}
	if l.Allow("u1") {
		t.Fatal("second attempt within the window should be rejected")
	}

	time.Sleep(30 * time.Millisecond)
	if !l.Allow("u1") {
		t.Error("attempt after the window expired should be allowed")
	}
}
