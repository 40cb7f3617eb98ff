package store

import (
	"context"
	"sort"
	"time"

	"github.com/tmparker/opendrill/internal/model"
)

// Memory is an ephemeral Store used when the SQLite database cannot be
// opened. Nothing survives the process; every position appears new and
// due counts read from a clean slate. Play stays possible regardless.
type Memory struct {
	cards    map[string]model.Card
	stats    model.GlobalStats
	reviews  []model.ReviewEntry
	sessions []model.SessionRecord
	nextID   int64
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{cards: make(map[string]model.Card), nextID: 1}
}

// Card returns the stored card for a position id.
func (m *Memory) Card(_ context.Context, id string) (model.Card, bool, error) {
	card, ok := m.cards[id]
	return card, ok, nil
}

// PutCard upserts a card by id.
func (m *Memory) PutCard(_ context.Context, card model.Card) error {
	m.cards[card.ID] = card
	return nil
}

// Cards returns all stored cards.
func (m *Memory) Cards(_ context.Context) ([]model.Card, error) {
	cards := make([]model.Card, 0, len(m.cards))
	for _, card := range m.cards {
		cards = append(cards, card)
	}
	// Map order is random; stable output keeps callers honest about not
	// relying on it while making tests deterministic.
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards, nil
}

// DueCards returns all cards eligible for review at the given time.
func (m *Memory) DueCards(ctx context.Context, now time.Time) ([]model.Card, error) {
	cards, err := m.Cards(ctx)
	if err != nil {
		return nil, err
	}
	return due(cards, now), nil
}

// Stats returns the singleton global stats record.
func (m *Memory) Stats(_ context.Context) (model.GlobalStats, error) {
	return m.stats, nil
}

// PutStats overwrites the singleton global stats record.
func (m *Memory) PutStats(_ context.Context, stats model.GlobalStats) error {
	m.stats = stats
	return nil
}

// AppendReview appends one review-log entry.
func (m *Memory) AppendReview(_ context.Context, entry model.ReviewEntry) error {
	entry.ID = m.nextID
	m.nextID++
	m.reviews = append(m.reviews, entry)
	return nil
}

// Reviews returns the full review log in insertion order.
func (m *Memory) Reviews(_ context.Context) ([]model.ReviewEntry, error) {
	return append([]model.ReviewEntry(nil), m.reviews...), nil
}

// AppendSession appends one session record.
func (m *Memory) AppendSession(_ context.Context, rec model.SessionRecord) error {
	rec.ID = m.nextID
	m.nextID++
	m.sessions = append(m.sessions, rec)
	return nil
}

// Sessions returns all session records in insertion order.
func (m *Memory) Sessions(_ context.Context) ([]model.SessionRecord, error) {
	return append([]model.SessionRecord(nil), m.sessions...), nil
}

// FinishSession merges the record into global stats, then appends it.
func (m *Memory) FinishSession(ctx context.Context, rec model.SessionRecord) error {
	stats, err := m.Stats(ctx)
	if err != nil {
		return err
	}
	stats.Apply(rec)
	if err := m.PutStats(ctx, stats); err != nil {
		return err
	}
	return m.AppendSession(ctx, rec)
}

// ClearAll wipes all four stores.
func (m *Memory) ClearAll(_ context.Context) error {
	m.cards = make(map[string]model.Card)
	m.stats = model.GlobalStats{}
	m.reviews = nil
	m.sessions = nil
	return nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error {
	return nil
}
