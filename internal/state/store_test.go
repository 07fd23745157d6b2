package state_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jdelaire/tgbot/internal/state"
)

func TestLoadMissingFile(t *testing.T) {
	store := state.NewStore(filepath.Join(t.TempDir(), "state.json"))
	st, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.Bot != "" || st.Offset != 0 || !st.SavedAt.IsZero() {
		t.Fatalf("state = %+v, want zero", st)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	st, err := state.NewStore(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.Offset != 0 {
		t.Fatalf("offset = %d, want 0", st.Offset)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := state.NewStore(path).Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveThenLoad(t *testing.T) {
	saved := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	store := state.NewStore(path).WithClock(func() time.Time { return saved })

	if err := store.Save("test_bot", 1234); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}

	st, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.Bot != "test_bot" || st.Offset != 1234 {
		t.Fatalf("state = %+v, want test_bot at 1234", st)
	}
	if !st.SavedAt.Equal(saved) {
		t.Errorf("saved_at = %v, want %v", st.SavedAt, saved)
	}
}

func TestSaveOverwrites(t *testing.T) {
	store := state.NewStore(filepath.Join(t.TempDir(), "state.json"))
	for _, off := range []int64{5, 9} {
		if err := store.Save("test_bot", off); err != nil {
			t.Fatalf("save %d: %v", off, err)
		}
	}
	st, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.Offset != 9 {
		t.Fatalf("offset = %d, want 9", st.Offset)
	}
}

func TestOffsetFor(t *testing.T) {
	st := state.State{Bot: "test_bot", Offset: 77}
	if got := st.OffsetFor("test_bot"); got != 77 {
		t.Errorf("OffsetFor(same bot) = %d, want 77", got)
	}
	if got := st.OffsetFor("other_bot"); got != 0 {
		t.Errorf("OffsetFor(other bot) = %d, want 0", got)
	}
}
