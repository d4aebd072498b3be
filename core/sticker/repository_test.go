package sticker

import (
	"context"
	"reflect"
	"testing"

	"github.com/m3rciful/stickerbot/core/kvstore"
)

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(kvstore.NewMemory(), 42)

	record := &Sticker{
		ID:       "uniq-1",
		FileID:   "file-1",
		Width:    512,
		Height:   512,
		PackName: "cats_by_bot",
		Tokens:   []string{"black", "cat"},
	}
	if err := repo.Save(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.Find(ctx, "uniq-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil {
		t.Fatal("expected record")
	}
	if !reflect.DeepEqual(got, record) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, record)
	}
}

func TestRepositoryFindAbsent(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(kvstore.NewMemory(), 42)
	got, err := repo.Find(ctx, "missing")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for untaught sticker, got %+v", got)
	}
}

func TestRepositorySaveWritesMetadata(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemory()
	repo := NewRepository(store, 42)

	if err := repo.Save(ctx, &Sticker{ID: "a", FileID: "file-a", Tokens: []string{"cat"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	page, err := store.Scan(ctx, KeyPrefix(42), "")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(page.Entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(page.Entries))
	}
	entry := page.Entries[0]
	if entry.Key != Key(42, "a") {
		t.Fatalf("unexpected key %s", entry.Key)
	}
	if entry.Meta == nil || entry.Meta.FileID != "file-a" || !reflect.DeepEqual(entry.Meta.Tokens, []string{"cat"}) {
		t.Fatalf("metadata mismatch: %+v", entry.Meta)
	}
}

func TestRepositoryDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(kvstore.NewMemory(), 42)
	if err := repo.Save(ctx, &Sticker{ID: "a", FileID: "file-a"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, "a"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	got, err := repo.Find(ctx, "a")
	if err != nil || got != nil {
		t.Fatalf("expected absent after delete, got %+v err %v", got, err)
	}
}

func TestKeyNamespacing(t *testing.T) {
	if Key(7, "abc") != "sticker/7/abc" {
		t.Fatalf("unexpected key: %s", Key(7, "abc"))
	}
	if KeyPrefix(7) != "sticker/7/" {
		t.Fatalf("unexpected prefix: %s", KeyPrefix(7))
	}
}
