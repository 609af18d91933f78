package store

import (
	"testing"
)

func TestEncodeDecodeEmbedding(t *testing.T) {
	vec := []float64{0.1, -2.5, 1e-8, 42}
	decoded := decodeEmbedding(encodeEmbedding(vec))
	if len(decoded) != len(vec) {
		t.Fatalf("decoded length = %d, want %d", len(decoded), len(vec))
	}
	for i := range vec {
		if decoded[i] != vec[i] {
			t.Errorf("decoded[%d] = %v, want %v", i, decoded[i], vec[i])
		}
	}

	if got := decodeEmbedding(nil); len(got) != 0 {
		t.Errorf("decode nil = %v, want empty", got)
	}
}

func TestUpsertMemoryInsertAndGet(t *testing.T) {
	db := testDB(t)

	rec := &MemoryRecord{
		ID:         "mem_1",
		Content:    "prefers dark roast coffee",
		Metadata:   `{"type":"preference"}`,
		Embedding:  []float64{0.1, 0.2},
		EmbedModel: "hash",
	}
	if err := db.UpsertMemory(rec); err != nil {
		t.Fatalf("UpsertMemory: %v", err)
	}

	got, err := db.GetMemory("mem_1")
	if err != nil {
		t.Fatalf("GetMemory: %v", err)
	}
	if got == nil {
		t.Fatal("GetMemory returned nil for existing row")
	}
	if got.Content != rec.Content {
		t.Errorf("content = %q, want %q", got.Content, rec.Content)
	}
	if got.Metadata != rec.Metadata {
		t.Errorf("metadata = %q, want %q", got.Metadata, rec.Metadata)
	}
	if len(got.Embedding) != 2 || got.Embedding[1] != 0.2 {
		t.Errorf("embedding = %v, want [0.1 0.2]", got.Embedding)
	}
	if got.CreatedAt == 0 || got.UpdatedAt == 0 {
		t.Error("timestamps not set on insert")
	}
}

func TestUpsertMemoryConflictKeepsCreatedAt(t *testing.T) {
	db := testDB(t)

	first := &MemoryRecord{ID: "mem_1", Content: "v1"}
	if err := db.UpsertMemory(first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Backdate the row so the second write's timestamps are distinguishable.
	if _, err := db.Exec("UPDATE memories SET created_at = 1000, updated_at = 1000 WHERE id = 'mem_1'"); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	second := &MemoryRecord{ID: "mem_1", Content: "v2", Metadata: `{"k":"v"}`}
	if err := db.UpsertMemory(second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := db.GetMemory("mem_1")
	if err != nil {
		t.Fatalf("GetMemory: %v", err)
	}
	if got.Content != "v2" {
		t.Errorf("content = %q, want the second write", got.Content)
	}
	if got.CreatedAt != 1000 {
		t.Errorf("created_at = %d, want the original 1000", got.CreatedAt)
	}
	if got.UpdatedAt <= 1000 {
		t.Errorf("updated_at = %d, want refreshed past 1000", got.UpdatedAt)
	}

	count, err := db.CountMemories()
	if err != nil {
		t.Fatalf("CountMemories: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (upsert must not duplicate)", count)
	}
}

func TestGetMemoryMissing(t *testing.T) {
	db := testDB(t)

	got, err := db.GetMemory("nope")
	if err != nil {
		t.Fatalf("GetMemory: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for missing row", got)
	}
}

func TestDeleteMemories(t *testing.T) {
	db := testDB(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := db.UpsertMemory(&MemoryRecord{ID: id, Content: id}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}

	n, err := db.DeleteMemories([]string{"a", "c", "missing"})
	if err != nil {
		t.Fatalf("DeleteMemories: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d rows, want 2", n)
	}

	count, _ := db.CountMemories()
	if count != 1 {
		t.Errorf("count after delete = %d, want 1", count)
	}

	n, err = db.DeleteMemories(nil)
	if err != nil || n != 0 {
		t.Errorf("DeleteMemories(nil) = (%d, %v), want (0, nil)", n, err)
	}
}

func TestWipeMemories(t *testing.T) {
	db := testDB(t)

	for _, id := range []string{"a", "b"} {
		if err := db.UpsertMemory(&MemoryRecord{ID: id, Content: id}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}

	n, err := db.WipeMemories()
	if err != nil {
		t.Fatalf("WipeMemories: %v", err)
	}
	if n != 2 {
		t.Errorf("wiped %d rows, want 2", n)
	}

	count, _ := db.CountMemories()
	if count != 0 {
		t.Errorf("count after wipe = %d, want 0", count)
	}
}

func TestAllMemoriesNewestFirst(t *testing.T) {
	db := testDB(t)

	for _, id := range []string{"a", "b"} {
		if err := db.UpsertMemory(&MemoryRecord{ID: id, Content: id}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}
	// Force distinct created_at values.
	db.Exec("UPDATE memories SET created_at = 1000 WHERE id = 'a'")
	db.Exec("UPDATE memories SET created_at = 2000 WHERE id = 'b'")

	records, err := db.AllMemories()
	if err != nil {
		t.Fatalf("AllMemories: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ID != "b" || records[1].ID != "a" {
		t.Errorf("order = [%s %s], want newest first [b a]", records[0].ID, records[1].ID)
	}
}
