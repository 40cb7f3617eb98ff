// Package backup serializes the full trainer state to a portable JSON
// document and restores it.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tmparker/opendrill/internal/model"
	"github.com/tmparker/opendrill/internal/store"
)

// Version is the current document format version.
const Version = 2

// Document is the on-disk backup format. Cards is a pointer so a
// document with the key missing entirely can be told apart from one
// with an empty card set.
type Document struct {
	Version    int                   `json:"version"`
	ExportDate time.Time             `json:"exportDate"`
	Cards      *[]model.Card         `json:"cards"`
	Stats      model.GlobalStats     `json:"stats"`
	Sessions   []model.SessionRecord `json:"sessions"`
	Reviews    []model.ReviewEntry   `json:"reviews"`
}

// Export reads the full store contents into a marshalled document.
func Export(ctx context.Context, st store.Store, now time.Time) ([]byte, error) {
	cards, err := st.Cards(ctx)
	if err != nil {
		return nil, fmt.Errorf("read cards: %w", err)
	}
	if cards == nil {
		// A store with no cards yet must still export "cards": [], not
		// null, or the document would fail its own import validation.
		cards = []model.Card{}
	}
	stats, err := st.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("read stats: %w", err)
	}
	sessions, err := st.Sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read sessions: %w", err)
	}
	reviews, err := st.Reviews(ctx)
	if err != nil {
		return nil, fmt.Errorf("read reviews: %w", err)
	}

	doc := Document{
		Version:    Version,
		ExportDate: now.UTC(),
		Cards:      &cards,
		Stats:      stats,
		Sessions:   sessions,
		Reviews:    reviews,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return data, nil
}

// Import validates the whole document before writing anything, then
// merges it into the store: cards and stats upsert, sessions and
// reviews append with fresh keys.
func Import(ctx context.Context, st store.Store, data []byte) error {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode backup: %w", err)
	}
	if doc.Cards == nil {
		return fmt.Errorf("invalid backup: cards missing")
	}
	for i, card := range *doc.Cards {
		if card.ID == "" {
			return fmt.Errorf("invalid backup: card %d has no id", i)
		}
	}

	for _, card := range *doc.Cards {
		if err := st.PutCard(ctx, card); err != nil {
			return fmt.Errorf("import card %s: %w", card.ID, err)
		}
	}
	if err := st.PutStats(ctx, doc.Stats); err != nil {
		return fmt.Errorf("import stats: %w", err)
	}
	for _, rec := range doc.Sessions {
		rec.ID = 0
		if err := st.AppendSession(ctx, rec); err != nil {
			return fmt.Errorf("import session: %w", err)
		}
	}
	for _, entry := range doc.Reviews {
		entry.ID = 0
		if err := st.AppendReview(ctx, entry); err != nil {
			return fmt.Errorf("import review: %w", err)
		}
	}
	return nil
}
