// Package search ranks taught stickers against free-text queries.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"log/slog"

	"github.com/m3rciful/stickerbot/core/kvstore"
	"github.com/m3rciful/stickerbot/core/logger"
	"github.com/m3rciful/stickerbot/core/sticker"
	"github.com/m3rciful/stickerbot/core/tokens"
)

// ErrScanIncomplete reports a store page that is neither complete nor
// resumable. Partial results must never be served as a ranking.
var ErrScanIncomplete = errors.New("search: store scan returned incomplete page without cursor")

const nsfwToken = "nsfw"

// Result is one ranked sticker.
type Result struct {
	FileID string
	Score  float64
}

// Engine scans the full sticker namespace of one bot per query and scores
// every record. The corpus is one person's taught stickers, so a full scan
// stays cheap.
type Engine struct {
	store kvstore.Store
	botID int64
}

// New builds an engine over the bot's sticker namespace.
func New(store kvstore.Store, botID int64) *Engine {
	return &Engine{store: store, botID: botID}
}

// Search tokenizes the query and returns every sticker with a positive
// score, ordered by ascending score. The literal token "nsfw" is not a
// search term; it flips the query into nsfw mode and only then are
// nsfw-tagged stickers eligible.
func (e *Engine) Search(ctx context.Context, query string) ([]Result, error) {
	queryTokens := tokens.Extract(query)
	nsfw := false
	for _, t := range queryTokens {
		if t == nsfwToken {
			nsfw = true
		}
	}
	if nsfw {
		kept := queryTokens[:0]
		for _, t := range queryTokens {
			if t != nsfwToken {
				kept = append(kept, t)
			}
		}
		queryTokens = kept
	}

	if logger.ShouldSampleDebug() {
		logger.Debug(ctx, "search", "search.run",
			slog.Bool("nsfw", nsfw),
			slog.String("query", strings.Join(queryTokens, " ")),
		)
	}

	var results []Result
	cursor := ""
	for {
		page, err := e.store.Scan(ctx, sticker.KeyPrefix(e.botID), cursor)
		if err != nil {
			return nil, fmt.Errorf("search scan: %w", err)
		}
		for _, entry := range page.Entries {
			if entry.Meta == nil {
				continue
			}
			score := scoreSticker(entry.Meta.Tokens, queryTokens, nsfw)
			if score > 0 {
				results = append(results, Result{FileID: entry.Meta.FileID, Score: score})
			}
		}
		if page.Complete {
			break
		}
		if page.Cursor == "" {
			return nil, ErrScanIncomplete
		}
		cursor = page.Cursor
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score < results[j].Score
	})

	logger.Debug(ctx, "search", "search.done",
		slog.Int("results", len(results)),
	)
	return results, nil
}

// scoreSticker scores one record's stored tokens against the query tokens.
// An nsfw mismatch in either direction disqualifies the record outright.
func scoreSticker(stored, queryTokens []string, nsfw bool) float64 {
	if len(queryTokens) == 0 {
		tagged := false
		for _, t := range stored {
			if t == nsfwToken {
				tagged = true
				break
			}
		}
		if tagged == nsfw {
			return 1
		}
		return 0
	}

	score := 0.0
	foundNsfw := false
	for _, t := range stored {
		if t == nsfwToken && !nsfw {
			return -1000
		}
		if t == nsfwToken {
			foundNsfw = true
		}
		for _, q := range queryTokens {
			switch {
			case t == q:
				score += 1
			case strings.HasPrefix(t, q):
				score += float64(len(q)) / float64(len(t))
			case strings.Contains(t, q):
				score += 0.8 * float64(len(q)) / float64(len(t))
			}
		}
	}
	if nsfw && !foundNsfw {
		return -1000
	}
	if score > 0 {
		score /= float64(len(queryTokens))
	}
	return score
}
