package policy

import (
	"fmt"
	"sync"
	"time"
)

const (
	DefaultFreshness = 5 * time.Minute
	maxSeenIDs       = 10000
	pruneCount       = 1000
)

// Policy decides whether a chat message may trigger a command: the chat
// must be allowed, the message recent, and its update not seen before.
type Policy struct {
	mu        sync.Mutex
	allowed   map[int64]bool
	freshness time.Duration
	now       func() time.Time
	seen      map[int64]bool
	seenOrder []int64
}

// New creates a Policy for the given chat ids. An empty list allows every
// chat.
func New(chatIDs []int64) *Policy {
	return &Policy{
		allowed:   allowSet(chatIDs),
		freshness: DefaultFreshness,
		now:       time.Now,
		seen:      make(map[int64]bool),
	}
}

// SetAllowed replaces the chat allowlist, e.g. after a config reload.
func (p *Policy) SetAllowed(chatIDs []int64) {
	allowed := allowSet(chatIDs)
	p.mu.Lock()
	p.allowed = allowed
	p.mu.Unlock()
}

func allowSet(chatIDs []int64) map[int64]bool {
	allowed := make(map[int64]bool, len(chatIDs))
	for _, id := range chatIDs {
		allowed[id] = true
	}
	return allowed
}

// WithFreshness sets how old a message may be. Zero disables the check.
func (p *Policy) WithFreshness(d time.Duration) *Policy {
	p.freshness = d
	return p
}

// WithClock overrides the time source (for testing).
func (p *Policy) WithClock(now func() time.Time) *Policy {
	p.now = now
	return p
}

// Open reports whether every chat is allowed.
func (p *Policy) Open() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open()
}

func (p *Policy) open() bool { return len(p.allowed) == 0 }

// Authorize checks a message sent to chatID at sent, carried by updateID.
func (p *Policy) Authorize(chatID, updateID int64, sent time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open() && !p.allowed[chatID] {
		return fmt.Errorf("unauthorized chat: %d", chatID)
	}

	if age := p.now().Sub(sent); p.freshness > 0 && age > p.freshness {
		return fmt.Errorf("stale message: %v old", age.Truncate(time.Second))
	}

	if p.seen[updateID] {
		return fmt.Errorf("duplicate update: %d", updateID)
	}

	if len(p.seen) >= maxSeenIDs {
		for _, id := range p.seenOrder[:pruneCount] {
			delete(p.seen, id)
		}
		p.seenOrder = p.seenOrder[pruneCount:]
	}

	p.seen[updateID] = true
	p.seenOrder = append(p.seenOrder, updateID)
	return nil
}
