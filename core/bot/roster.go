package bot

import (
	"sort"
	"sync"

	"github.com/jdelaire/tgbot/core/api"
)

// Roster is the set of chats the bot has seen through message updates.
// The update loop writes it; other goroutines may read it.
type Roster struct {
	mu    sync.RWMutex
	chats map[int64]api.Chat
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{chats: make(map[int64]api.Chat)}
}

// Add inserts c unless a chat with the same id is present. It reports
// whether c was inserted.
func (r *Roster) Add(c api.Chat) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chats[c.ID]; ok {
		return false
	}
	r.chats[c.ID] = c
	return true
}

// Remove deletes the chat with the given id and reports whether it was
// present. Removing an unknown chat is a no-op.
func (r *Roster) Remove(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chats[id]; !ok {
		return false
	}
	delete(r.chats, id)
	return true
}

// Get returns the chat with the given id, if the bot has seen it.
func (r *Roster) Get(id int64) (api.Chat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chats[id]
	return c, ok
}

// Len returns the number of known chats.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chats)
}

// List returns a snapshot of the roster ordered by chat id.
func (r *Roster) List() []api.Chat {
	r.mu.RLock()
	out := make([]api.Chat, 0, len(r.chats))
	for _, c := range r.chats {
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
