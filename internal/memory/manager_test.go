package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/recallkit/recall/internal/llm"
)

func newTestManager(stub *stubStore, cfg ManagerConfig) (*Manager, *int) {
	m := NewManager(stub, nil, cfg, nil)
	sleeps := new(int)
	m.sleep = func(time.Duration) { *sleeps++ }
	m.now = func() time.Time { return testNow }
	return m, sleeps
}

func TestPlainSearchRetriesOnEmpty(t *testing.T) {
	// First two attempts see nothing, the third hits. The loop must return the
	// third attempt's results after sleeping twice.
	hit := []Item{itemAgedBy("late", time.Hour)}
	stub := &stubStore{script: [][]Item{{}, {}, hit}}
	m, sleeps := newTestManager(stub, ManagerConfig{})

	got, err := m.Search(context.Background(), "q", 2, false)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "late" {
		t.Errorf("got %v, want the third attempt's hit", got)
	}
	if len(stub.searches) != 3 {
		t.Errorf("got %d searches, want 3", len(stub.searches))
	}
	if *sleeps != 2 {
		t.Errorf("slept %d times, want 2", *sleeps)
	}
}

func TestPlainSearchGivesUpAfterAttempts(t *testing.T) {
	stub := &stubStore{} // always empty
	m, sleeps := newTestManager(stub, ManagerConfig{})

	got, err := m.Search(context.Background(), "q", 2, false)
	if err != nil {
		t.Fatalf("empty after all attempts is not an error, got: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
	if len(stub.searches) != 5 {
		t.Errorf("got %d searches, want the default 5 attempts", len(stub.searches))
	}
	if *sleeps != 4 {
		t.Errorf("slept %d times, want 4 (no sleep after the last attempt)", *sleeps)
	}
}

func TestPlainSearchCustomAttempts(t *testing.T) {
	stub := &stubStore{}
	m, sleeps := newTestManager(stub, ManagerConfig{Attempts: 2})

	if _, err := m.Search(context.Background(), "q", 1, false); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(stub.searches) != 2 || *sleeps != 1 {
		t.Errorf("got %d searches and %d sleeps, want 2 and 1", len(stub.searches), *sleeps)
	}
}

func TestPlainSearchErrorStopsRetrying(t *testing.T) {
	stub := &stubStore{searchErr: errors.New("index unreachable")}
	m, sleeps := newTestManager(stub, ManagerConfig{})

	_, err := m.Search(context.Background(), "q", 1, false)
	if err == nil {
		t.Fatal("expected store error to propagate")
	}
	if !errors.Is(err, stub.searchErr) {
		t.Errorf("error %v does not wrap the store error", err)
	}
	if len(stub.searches) != 1 || *sleeps != 0 {
		t.Errorf("got %d searches and %d sleeps, want 1 and 0 (errors are not retried)",
			len(stub.searches), *sleeps)
	}
}

func TestPlainSearchStopsOnCancelledContext(t *testing.T) {
	stub := &stubStore{}
	m := NewManager(stub, nil, ManagerConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	m.sleep = func(time.Duration) { cancel() }

	_, err := m.Search(ctx, "q", 1, false)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	// One attempt before the cancel, one after it, then the loop bails out.
	if len(stub.searches) != 2 {
		t.Errorf("got %d searches after cancellation, want 2", len(stub.searches))
	}
}

func TestSearchZeroKUsesDefault(t *testing.T) {
	stub := &stubStore{}
	m, _ := newTestManager(stub, ManagerConfig{Attempts: 1})

	if _, err := m.Search(context.Background(), "q", 0, false); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if stub.searches[0].k != DefaultK {
		t.Errorf("store saw k=%d, want DefaultK=%d", stub.searches[0].k, DefaultK)
	}
}

func TestSearchTimeWeightedUsesBasicRetriever(t *testing.T) {
	// Without an expander the time-weighted path is the basic retriever, whose
	// over-fetch (3k) distinguishes it from both plain (k) and multi-query (2k).
	stub := &stubStore{}
	m, sleeps := newTestManager(stub, ManagerConfig{})

	got, err := m.Search(context.Background(), "q", 2, true)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v from empty store, want nothing", got)
	}
	if len(stub.searches) != 1 || stub.searches[0].k != 6 {
		t.Errorf("got searches %v, want one with k=6", stub.searches)
	}
	if *sleeps != 0 {
		t.Errorf("scored path slept %d times, want 0 (no retry on empty)", *sleeps)
	}
}

func TestSearchTimeWeightedUsesIntelligentRetriever(t *testing.T) {
	// A failing expander still routes through the multi-query retriever with
	// the original query; its over-fetch is 2k.
	mock := &llm.MockClient{Err: errors.New("model offline")}
	stub := &stubStore{}
	m := NewManager(stub, NewExpander(mock, nil), ManagerConfig{}, nil)

	sleeps := 0
	m.sleep = func(time.Duration) { sleeps++ }

	got, err := m.Search(context.Background(), "q", 2, true)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v from empty store, want nothing", got)
	}
	if len(stub.searches) != 1 || stub.searches[0].k != 4 {
		t.Errorf("got searches %v, want one with k=4", stub.searches)
	}
	if stub.searches[0].query != "q" {
		t.Errorf("searched %q, want the original query after failed expansion", stub.searches[0].query)
	}
	if sleeps != 0 {
		t.Errorf("scored path slept %d times, want 0", sleeps)
	}
}

func TestIngestBatchesOnce(t *testing.T) {
	stub := &stubStore{}
	m, _ := newTestManager(stub, ManagerConfig{})

	chunks := []Chunk{
		{ID: "a", Content: "first"},
		{ID: "b", Content: "second"},
		{ID: "c", Content: "third"},
	}
	if err := m.Ingest(context.Background(), chunks); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(stub.upserts) != 1 {
		t.Fatalf("got %d upsert calls, want 1 batch", len(stub.upserts))
	}
	if len(stub.upserts[0]) != 3 {
		t.Errorf("batch has %d items, want 3", len(stub.upserts[0]))
	}
}

func TestIngestLastWriteWins(t *testing.T) {
	stub := &stubStore{}
	m, _ := newTestManager(stub, ManagerConfig{})

	ctx := context.Background()
	if err := m.Ingest(ctx, []Chunk{{ID: "dup", Content: "first version"}}); err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	if err := m.Ingest(ctx, []Chunk{{ID: "dup", Content: "second version"}}); err != nil {
		t.Fatalf("second Ingest: %v", err)
	}

	if len(stub.upserts) != 2 {
		t.Fatalf("got %d upsert calls, want 2", len(stub.upserts))
	}
	if got := stub.state["dup"].Content; got != "second version" {
		t.Errorf("stored content %q, want the later write", got)
	}
}

func TestIngestDerivesIDAndStampsCreatedAt(t *testing.T) {
	stub := &stubStore{}
	m, _ := newTestManager(stub, ManagerConfig{})

	if err := m.Ingest(context.Background(), []Chunk{{Content: "no id supplied"}}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	it := stub.upserts[0][0]
	if !strings.HasPrefix(it.ID, "mem_") {
		t.Errorf("derived id %q, want mem_ prefix", it.ID)
	}
	if got := it.MetaString(MetaCreatedAt); got != FormatTimestamp(testNow) {
		t.Errorf("created_at = %q, want %q", got, FormatTimestamp(testNow))
	}
}

func TestIngestKeepsCallerIDAndCreatedAt(t *testing.T) {
	stub := &stubStore{}
	m, _ := newTestManager(stub, ManagerConfig{})

	created := FormatTimestamp(testNow.Add(-48 * time.Hour))
	chunk := Chunk{
		ID:       "keep-me",
		Content:  "already stamped",
		Metadata: map[string]any{MetaCreatedAt: created},
	}
	if err := m.Ingest(context.Background(), []Chunk{chunk}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	it := stub.upserts[0][0]
	if it.ID != "keep-me" {
		t.Errorf("id = %q, want the caller's id", it.ID)
	}
	if got := it.MetaString(MetaCreatedAt); got != created {
		t.Errorf("created_at = %q, want the caller's %q", got, created)
	}
}

func TestIngestDoesNotMutateCallerMetadata(t *testing.T) {
	stub := &stubStore{}
	m, _ := newTestManager(stub, ManagerConfig{})

	meta := map[string]any{MetaSource: "notes.md"}
	if err := m.Ingest(context.Background(), []Chunk{{Content: "x", Metadata: meta}}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if _, ok := meta[MetaCreatedAt]; ok {
		t.Error("Ingest stamped created_at into the caller's metadata map")
	}
}

func TestIngestEmptyIsNoOp(t *testing.T) {
	stub := &stubStore{}
	m, _ := newTestManager(stub, ManagerConfig{})

	if err := m.Ingest(context.Background(), nil); err != nil {
		t.Fatalf("Ingest(nil): %v", err)
	}
	if len(stub.upserts) != 0 {
		t.Errorf("got %d upserts for no chunks, want 0", len(stub.upserts))
	}
}

func TestIngestUpsertErrorWrapped(t *testing.T) {
	stub := &stubStore{upsertErr: errors.New("disk full")}
	m, _ := newTestManager(stub, ManagerConfig{})

	err := m.Ingest(context.Background(), []Chunk{{ID: "a", Content: "x"}})
	if err == nil {
		t.Fatal("expected upsert error to propagate")
	}
	if !errors.Is(err, stub.upsertErr) {
		t.Errorf("error %v does not wrap the store error", err)
	}
}
