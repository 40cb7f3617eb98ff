// Package store handles persistence of cards, logs, and global stats.
package store

import (
	"context"
	"time"

	"github.com/tmparker/opendrill/internal/model"
)

// Store is the persistence contract for the trainer. Cards are keyed by
// position id and upserted whole. Reviews and sessions are append-only
// logs. GlobalStats is a singleton record.
type Store interface {
	// Card returns the memory state for a position. A missing card is not
	// an error; the found flag is false and the caller treats the position
	// as never studied.
	Card(ctx context.Context, id string) (model.Card, bool, error)
	PutCard(ctx context.Context, card model.Card) error
	Cards(ctx context.Context) ([]model.Card, error)
	DueCards(ctx context.Context, now time.Time) ([]model.Card, error)

	Stats(ctx context.Context) (model.GlobalStats, error)
	PutStats(ctx context.Context, stats model.GlobalStats) error

	AppendReview(ctx context.Context, entry model.ReviewEntry) error
	Reviews(ctx context.Context) ([]model.ReviewEntry, error)

	AppendSession(ctx context.Context, rec model.SessionRecord) error
	Sessions(ctx context.Context) ([]model.SessionRecord, error)

	// FinishSession merges the record into GlobalStats and appends it to
	// the session log. The SQLite store applies both in one transaction;
	// the memory store applies them in that fixed order.
	FinishSession(ctx context.Context, rec model.SessionRecord) error

	// ClearAll wipes cards, reviews, sessions, and stats together. This is
	// the only mutation path for recorded history.
	ClearAll(ctx context.Context) error

	Close() error
}

// due filters cards eligible for review at the given time. Due-ness is
// derived client-side so both implementations agree exactly.
func due(cards []model.Card, now time.Time) []model.Card {
	var out []model.Card
	for _, card := range cards {
		if card.IsDue(now) {
			out = append(out, card)
		}
	}
	return out
}
