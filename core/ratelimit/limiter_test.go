package ratelimit

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func clock(start time.Time) (*time.Time, func() time.Time) {
	now := start
	return &now, func() time.Time { return now }
}

func TestCheckAllowsNewChat(t *testing.T) {
	l := New()
	if err := l.Check(100); err != nil {
		t.Errorf("Check(new chat) = %v, want nil", err)
	}
}

func TestCheckAllowsUnderLimit(t *testing.T) {
	l := New()
	for i := 0; i < DefaultMaxFailures-1; i++ {
		if l.RecordFailure(100) {
			t.Fatalf("failure %d locked the chat", i+1)
		}
	}
	if err := l.Check(100); err != nil {
		t.Errorf("Check(under limit) = %v, want nil", err)
	}
}

func TestCheckLocksOutAtLimit(t *testing.T) {
	now, fn := clock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	l := New().WithClock(fn)

	var locked bool
	for i := 0; i < DefaultMaxFailures; i++ {
		locked = l.RecordFailure(100)
	}
	if !locked {
		t.Fatal("expected the last failure to lock the chat")
	}

	*now = now.Add(5 * time.Minute)
	err := l.Check(100)
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("Check(at limit) = %v, want ErrLocked", err)
	}
	if !strings.Contains(err.Error(), "try again in 10m0s") {
		t.Errorf("error = %q", err)
	}
	if l.RecordFailure(100) {
		t.Error("failures while locked must not lock again")
	}
	if err := l.Check(200); err != nil {
		t.Errorf("other chat affected: %v", err)
	}
}

func TestLockoutExpires(t *testing.T) {
	now, fn := clock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	l := New().WithClock(fn)

	for i := 0; i < DefaultMaxFailures; i++ {
		l.RecordFailure(100)
	}

	*now = now.Add(DefaultLockout + time.Second)

	if err := l.Check(100); err != nil {
		t.Errorf("Check(after lockout) = %v, want nil", err)
	}
}

func TestOldFailuresExpire(t *testing.T) {
	now, fn := clock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	l := New().WithLimits(2, time.Minute, time.Hour).WithClock(fn)

	l.RecordFailure(100)
	*now = now.Add(2 * time.Minute)
	if l.RecordFailure(100) {
		t.Fatal("failure outside the window counted")
	}
	if !l.RecordFailure(100) {
		t.Fatal("expected lockout at the second fresh failure")
	}
}

func TestReset(t *testing.T) {
	l := New().WithLimits(2, time.Minute, time.Hour)
	l.RecordFailure(100)
	l.Reset(100)
	if l.RecordFailure(100) {
		t.Error("reset did not clear failures")
	}
}
