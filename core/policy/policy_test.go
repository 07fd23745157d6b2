package policy_test

import (
	"strings"
	"testing"
	"time"

	"github.com/jdelaire/tgbot/core/policy"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixed() time.Time { return epoch }

func TestAuthorizeAllowedChat(t *testing.T) {
	p := policy.New([]int64{100, -200}).WithClock(fixed)
	if err := p.Authorize(-200, 1, epoch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuthorizeDeniedChat(t *testing.T) {
	p := policy.New([]int64{100}).WithClock(fixed)
	err := p.Authorize(999, 1, epoch)
	if err == nil {
		t.Fatal("expected error for unauthorized chat")
	}
	if !strings.Contains(err.Error(), "unauthorized chat") {
		t.Errorf("error = %q, want 'unauthorized chat'", err)
	}
}

func TestAuthorizeOpenPolicy(t *testing.T) {
	p := policy.New(nil).WithClock(fixed)
	if !p.Open() {
		t.Fatal("expected empty allowlist to be open")
	}
	if err := p.Authorize(12345, 1, epoch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetAllowed(t *testing.T) {
	p := policy.New([]int64{100}).WithClock(fixed)
	p.SetAllowed([]int64{200})

	if err := p.Authorize(100, 1, epoch); err == nil {
		t.Fatal("expected chat removed from allowlist to be rejected")
	}
	if err := p.Authorize(200, 2, epoch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p.SetAllowed(nil)
	if !p.Open() {
		t.Error("expected empty allowlist to open the policy")
	}
}

func TestAuthorizeStaleMessage(t *testing.T) {
	p := policy.New([]int64{100}).WithClock(fixed)
	err := p.Authorize(100, 1, epoch.Add(-6*time.Minute))
	if err == nil {
		t.Fatal("expected error for stale message")
	}
	if !strings.Contains(err.Error(), "stale message: 6m0s old") {
		t.Errorf("error = %q, want 'stale message: 6m0s old'", err)
	}
}

func TestAuthorizeFreshnessDisabled(t *testing.T) {
	p := policy.New([]int64{100}).WithClock(fixed).WithFreshness(0)
	if err := p.Authorize(100, 1, epoch.Add(-24*time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuthorizeDuplicateUpdateID(t *testing.T) {
	p := policy.New([]int64{100}).WithClock(fixed)

	if err := p.Authorize(100, 42, epoch); err != nil {
		t.Fatalf("first: %v", err)
	}

	err := p.Authorize(100, 42, epoch)
	if err == nil {
		t.Fatal("expected error for duplicate update_id")
	}
	if !strings.Contains(err.Error(), "duplicate update") {
		t.Errorf("error = %q, want 'duplicate update'", err)
	}
}

func TestAuthorizePruning(t *testing.T) {
	p := policy.New([]int64{100}).WithClock(fixed)

	for i := int64(0); i < 10000; i++ {
		if err := p.Authorize(100, i, epoch); err != nil {
			t.Fatalf("authorize %d: %v", i, err)
		}
	}

	if err := p.Authorize(100, 10000, epoch); err != nil {
		t.Fatalf("post-prune authorize: %v", err)
	}

	// Early ids were pruned and are accepted again.
	if err := p.Authorize(100, 0, epoch); err != nil {
		t.Fatalf("reuse pruned ID: %v", err)
	}
	if err := p.Authorize(100, 5000, epoch); err == nil {
		t.Fatal("expected unpruned id to stay a duplicate")
	}
}
