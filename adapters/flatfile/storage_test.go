package flatfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"scorekeeper/core"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leaderboard.txt")
	store, err := New(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, path
}

func TestNewCreatesEmptyFile(t *testing.T) {
	store, path := newTestStore(t)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected file at %s: %v", path, err)
	}
	if info.Size() != 0 {
		t.Fatalf("expected empty file, got %d bytes", info.Size())
	}

	entries, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty leaderboard, got %+v", entries)
	}
}

func TestNewDoesNotTruncateExisting(t *testing.T) {
	store, path := newTestStore(t)

	if _, err := store.Append(context.Background(), core.Entry{Name: "Ada", Score: 500, SavedAt: "2024-03-01T10:00:00Z"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	// a second creator must not error or wipe the file
	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	entries, err := reopened.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "Ada" {
		t.Fatalf("existing contents lost: %+v", entries)
	}
}

func TestAppendPersistsRanked(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Append(ctx, core.Entry{Name: "Ada", Score: 500, SavedAt: "2024-03-01T10:00:00Z"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	entries, err := store.Append(ctx, core.Entry{Name: "Bo", Score: 700, SavedAt: "2024-03-01T11:00:00Z"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "Bo" || entries[1].Name != "Ada" {
		t.Fatalf("unexpected result: %+v", entries)
	}

	// the file itself is pre-sorted
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	want := "Bo|700|2024-03-01T11:00:00Z\nAda|500|2024-03-01T10:00:00Z\n"
	if string(b) != want {
		t.Fatalf("file contents:\n%s\nwant:\n%s", b, want)
	}
}

func TestListToleratesCorruptLines(t *testing.T) {
	store, path := newTestStore(t)

	blob := "Ada|500|2024-03-01T10:00:00Z\ngarbage-line\nBo|700\n"
	if err := os.WriteFile(path, []byte(blob), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	entries, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "Ada" {
		t.Fatalf("expected only the valid line, got %+v", entries)
	}
}

func TestAppendTruncatesFile(t *testing.T) {
	store, path := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < core.MaxEntries+5; i++ {
		e := core.Entry{
			Name:    fmt.Sprintf("p%d", i),
			Score:   i,
			SavedAt: "2024-03-01T10:00:00Z",
		}
		if _, err := store.Append(ctx, e); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	persisted := core.Decode(b)
	if len(persisted) != core.MaxEntries {
		t.Fatalf("expected %d persisted entries, got %d", core.MaxEntries, len(persisted))
	}
	if persisted[0].Score != core.MaxEntries+4 {
		t.Fatalf("top entry should have highest score, got %+v", persisted[0])
	}
}

func TestConcurrentAppendsLoseNothing(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := core.Entry{
				Name:    fmt.Sprintf("p%d", i),
				Score:   i + 1,
				SavedAt: "2024-03-01T10:00:00Z",
			}
			if _, err := store.Append(ctx, e); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("append: %v", err)
	}

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != workers {
		t.Fatalf("expected %d entries, got %d", workers, len(entries))
	}
	seen := map[int]bool{}
	for _, e := range entries {
		if seen[e.Score] {
			t.Fatalf("duplicated entry: %+v", e)
		}
		seen[e.Score] = true
	}
}
