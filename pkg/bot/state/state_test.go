package state

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "alpha.db"), nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDB_RecordIncrements(t *testing.T) {
	db := openTestDB(t)

	for want := 1; want <= 4; want++ {
		if got := db.Record("a@test"); got != want {
			t.Fatalf("Record() = %d, want %d", got, want)
		}
	}
	if got := db.Record("b@test"); got != 1 {
		t.Fatalf("Record(b) = %d, want 1", got)
	}
	if got := db.Count("a@test"); got != 4 {
		t.Fatalf("Count(a) = %d, want 4", got)
	}
}

func TestDB_GrantIsIdempotentAndDurable(t *testing.T) {
	db := openTestDB(t)

	if db.IsApproved("user@test") {
		t.Fatal("IsApproved() = true before Grant")
	}
	if err := db.Grant("user@test"); err != nil {
		t.Fatalf("Grant() error = %v", err)
	}
	if err := db.Grant("user@test"); err != nil {
		t.Fatalf("second Grant() error = %v", err)
	}
	if !db.IsApproved("user@test") {
		t.Fatal("IsApproved() = false after Grant")
	}

	var n int
	if err := db.db.QueryRow(`SELECT COUNT(*) FROM permissions`).Scan(&n); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if n != 1 {
		t.Fatalf("permission rows = %d, want 1", n)
	}
}

func TestDB_EnqueueResolveExactlyOnce(t *testing.T) {
	db := openTestDB(t)

	token, err := db.Enqueue("user@test", "Ada", "what is 2+2")
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	pq, ok := db.Resolve(token)
	if !ok {
		t.Fatalf("Resolve(%q) not found", token)
	}
	if pq.Requester != "user@test" || pq.DisplayName != "Ada" || pq.Prompt != "what is 2+2" {
		t.Fatalf("Resolve() = %+v, want original tuple", pq)
	}
	if _, ok := db.Resolve(token); ok {
		t.Fatal("second Resolve() succeeded, want not-found")
	}
}

func TestDB_TokensUniqueUnderRapidEnqueue(t *testing.T) {
	db := openTestDB(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, err := db.Enqueue("user@test", "Ada", "q")
		if err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
		if seen[token] {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = true
	}
}

func TestDB_ConcurrentResolveSucceedsOnce(t *testing.T) {
	db := openTestDB(t)
	token, err := db.Enqueue("user@test", "Ada", "q")
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	var wins atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := db.Resolve(token); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("resolutions = %d, want exactly 1", wins.Load())
	}
}
