package search

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/m3rciful/stickerbot/core/kvstore"
	"github.com/m3rciful/stickerbot/core/sticker"
)

const testBotID = 42

func seed(t *testing.T, store kvstore.Store, id, fileID string, tokens ...string) {
	t.Helper()
	meta := &kvstore.Metadata{FileID: fileID, Tokens: tokens}
	if err := store.Put(context.Background(), sticker.Key(testBotID, id), []byte("{}"), meta); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func scoreOf(t *testing.T, results []Result, fileID string) float64 {
	t.Helper()
	for _, r := range results {
		if r.FileID == fileID {
			return r.Score
		}
	}
	t.Fatalf("file %s not in results %v", fileID, results)
	return 0
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSearchExactMatch(t *testing.T) {
	store := kvstore.NewMemory()
	seed(t, store, "a", "file-a", "cat")
	engine := New(store, testBotID)

	results, err := engine.Search(context.Background(), "cat")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || !approx(results[0].Score, 1) {
		t.Fatalf("expected single score 1, got %v", results)
	}
}

func TestSearchPrefixAndSubstringScores(t *testing.T) {
	store := kvstore.NewMemory()
	seed(t, store, "a", "file-unicorn", "unicorn")
	seed(t, store, "b", "file-bicorn", "bicorn")
	engine := New(store, testBotID)

	results, err := engine.Search(context.Background(), "uni")
	if err != nil {
		t.Fatalf("search uni: %v", err)
	}
	if len(results) != 1 || !approx(scoreOf(t, results, "file-unicorn"), 3.0/7.0) {
		t.Fatalf("prefix score mismatch: %v", results)
	}

	results, err = engine.Search(context.Background(), "corn")
	if err != nil {
		t.Fatalf("search corn: %v", err)
	}
	if !approx(scoreOf(t, results, "file-bicorn"), 0.8*4.0/6.0) {
		t.Fatalf("substring score mismatch: %v", results)
	}
	if !approx(scoreOf(t, results, "file-unicorn"), 0.8*4.0/7.0) {
		t.Fatalf("substring score mismatch: %v", results)
	}
}

func TestSearchMultiTokenAveraging(t *testing.T) {
	store := kvstore.NewMemory()
	seed(t, store, "a", "file-a", "black", "cat")
	engine := New(store, testBotID)

	results, err := engine.Search(context.Background(), "black cat")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || !approx(results[0].Score, 1) {
		t.Fatalf("two exact hits over two query tokens should score 1, got %v", results)
	}
}

func TestSearchAscendingOrder(t *testing.T) {
	store := kvstore.NewMemory()
	seed(t, store, "a", "file-cat", "cat")
	seed(t, store, "b", "file-catapult", "catapult")
	engine := New(store, testBotID)

	results, err := engine.Search(context.Background(), "ca")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected two results, got %v", results)
	}
	if results[0].FileID != "file-catapult" || results[1].FileID != "file-cat" {
		t.Fatalf("expected ascending score order, got %v", results)
	}
	if results[0].Score >= results[1].Score {
		t.Fatalf("scores not ascending: %v", results)
	}
}

func TestSearchNsfwExcludedByDefault(t *testing.T) {
	store := kvstore.NewMemory()
	seed(t, store, "a", "file-safe", "cat")
	seed(t, store, "b", "file-nsfw", "cat", "nsfw")
	engine := New(store, testBotID)

	results, err := engine.Search(context.Background(), "cat")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].FileID != "file-safe" {
		t.Fatalf("nsfw sticker must be excluded without the flag, got %v", results)
	}
}

func TestSearchNsfwFlagRestrictsToTagged(t *testing.T) {
	store := kvstore.NewMemory()
	seed(t, store, "a", "file-safe", "cat")
	seed(t, store, "b", "file-nsfw", "cat", "nsfw")
	engine := New(store, testBotID)

	results, err := engine.Search(context.Background(), "nsfw cat")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].FileID != "file-nsfw" {
		t.Fatalf("nsfw query must only match tagged stickers, got %v", results)
	}
}

func TestSearchEmptyQueryListsSafeStickers(t *testing.T) {
	store := kvstore.NewMemory()
	seed(t, store, "a", "file-safe", "cat")
	seed(t, store, "b", "file-nsfw", "cat", "nsfw")
	engine := New(store, testBotID)

	results, err := engine.Search(context.Background(), "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].FileID != "file-safe" || !approx(results[0].Score, 1) {
		t.Fatalf("empty query should list safe stickers at score 1, got %v", results)
	}
}

func TestSearchNsfwOnlyQueryListsTagged(t *testing.T) {
	store := kvstore.NewMemory()
	seed(t, store, "a", "file-safe", "cat")
	seed(t, store, "b", "file-nsfw", "cat", "nsfw")
	engine := New(store, testBotID)

	results, err := engine.Search(context.Background(), "nsfw")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].FileID != "file-nsfw" || !approx(results[0].Score, 1) {
		t.Fatalf("bare nsfw query should list tagged stickers at score 1, got %v", results)
	}
}

func TestSearchNoMatchYieldsEmpty(t *testing.T) {
	store := kvstore.NewMemory()
	seed(t, store, "a", "file-a", "cat")
	engine := New(store, testBotID)

	results, err := engine.Search(context.Background(), "zebra")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %v", results)
	}
}

func TestSearchScansAllPages(t *testing.T) {
	store := kvstore.NewMemory()
	store.SetPageSize(2)
	ids := []string{"a", "b", "c", "d", "e"}
	for _, id := range ids {
		seed(t, store, id, "file-"+id, "cat")
	}
	engine := New(store, testBotID)

	results, err := engine.Search(context.Background(), "cat")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != len(ids) {
		t.Fatalf("expected %d results across pages, got %d", len(ids), len(results))
	}
}

type brokenStore struct {
	kvstore.Store
}

func (b brokenStore) Scan(context.Context, string, string) (kvstore.Page, error) {
	return kvstore.Page{Complete: false, Cursor: ""}, nil
}

func TestSearchIncompletePageFailsQuery(t *testing.T) {
	engine := New(brokenStore{}, testBotID)
	if _, err := engine.Search(context.Background(), "cat"); !errors.Is(err, ErrScanIncomplete) {
		t.Fatalf("expected ErrScanIncomplete, got %v", err)
	}
}

type failingStore struct {
	kvstore.Store
}

func (f failingStore) Scan(context.Context, string, string) (kvstore.Page, error) {
	return kvstore.Page{}, errors.New("backend down")
}

func TestSearchStoreErrorFailsQuery(t *testing.T) {
	engine := New(failingStore{}, testBotID)
	if _, err := engine.Search(context.Background(), "cat"); err == nil {
		t.Fatal("expected error from failing store")
	}
}
