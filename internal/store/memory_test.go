package store

import (
	"context"
	"testing"
	"time"

	"github.com/tmparker/opendrill/internal/model"
)

var storeT0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestMemoryCardRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok, err := m.Card(ctx, "sicilian-1"); err != nil || ok {
		t.Fatalf("missing card: ok=%v err=%v, want absent without error", ok, err)
	}

	card := model.Card{
		ID: "sicilian-1", Opening: "The Sicilian Defence", State: model.StateReview,
		Stability: 2.4, Difficulty: 4.93, Reps: 1, Interval: 2,
		LastReview: storeT0, Due: storeT0.Add(48 * time.Hour),
	}
	if err := m.PutCard(ctx, card); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	got, ok, err := m.Card(ctx, "sicilian-1")
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if got != card {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, card)
	}

	// Upsert overwrites.
	card.Reps = 2
	if err := m.PutCard(ctx, card); err != nil {
		t.Fatalf("second put failed: %v", err)
	}
	cards, err := m.Cards(ctx)
	if err != nil || len(cards) != 1 {
		t.Fatalf("cards = %d entries, err=%v, want 1", len(cards), err)
	}
	if cards[0].Reps != 2 {
		t.Fatalf("upsert did not overwrite: reps=%d", cards[0].Reps)
	}
}

func TestMemoryDueCards(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	mustPut := func(card model.Card) {
		t.Helper()
		if err := m.PutCard(ctx, card); err != nil {
			t.Fatalf("put failed: %v", err)
		}
	}
	mustPut(model.Card{ID: "a", State: model.StateNew})                                        // zero due: immediately due
	mustPut(model.Card{ID: "b", State: model.StateReview, Due: storeT0.Add(-time.Hour)})       // overdue
	mustPut(model.Card{ID: "c", State: model.StateReview, Due: storeT0})                       // due exactly now
	mustPut(model.Card{ID: "d", State: model.StateReview, Due: storeT0.Add(24 * time.Hour)})   // future
	mustPut(model.Card{ID: "e", State: model.StateReview, Due: storeT0.Add(time.Millisecond)}) // barely future

	dueCards, err := m.DueCards(ctx, storeT0)
	if err != nil {
		t.Fatalf("due failed: %v", err)
	}
	got := map[string]bool{}
	for _, card := range dueCards {
		got[card.ID] = true
	}
	if len(got) != 3 || !got["a"] || !got["b"] || !got["c"] {
		t.Fatalf("due set = %v, want {a, b, c}", got)
	}
}

func TestMemoryFinishSessionMergesStats(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	first := model.SessionRecord{Mode: model.ModeTimed, Rounds: 10, Correct: 7, Wrong: 3, Score: 820, BestStreak: 5, At: storeT0}
	if err := m.FinishSession(ctx, first); err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	second := model.SessionRecord{Mode: model.ModeLearn, Rounds: 4, Correct: 3, Wrong: 1, BestStreak: 8, At: storeT0.Add(time.Hour)}
	if err := m.FinishSession(ctx, second); err != nil {
		t.Fatalf("finish failed: %v", err)
	}

	stats, err := m.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	want := model.GlobalStats{
		HighScore: 820, TotalCorrect: 10, TotalWrong: 4,
		TotalSessions: 2, TotalReviews: 14, StreakRecord: 8,
	}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}

	sessions, err := m.Sessions(ctx)
	if err != nil || len(sessions) != 2 {
		t.Fatalf("sessions = %d entries, err=%v, want 2", len(sessions), err)
	}
	if sessions[0].Mode != model.ModeTimed || sessions[1].Mode != model.ModeLearn {
		t.Fatalf("session order not preserved: %+v", sessions)
	}
}

func TestMemoryLearnScoreDoesNotTouchHighScore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	rec := model.SessionRecord{Mode: model.ModeLearn, Correct: 1, Score: 9999, At: storeT0}
	if err := m.FinishSession(ctx, rec); err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	stats, err := m.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.HighScore != 0 {
		t.Fatalf("high score = %d, want 0 for non-timed session", stats.HighScore)
	}
}

func TestMemoryClearAll(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.PutCard(ctx, model.Card{ID: "a", State: model.StateNew}); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := m.AppendReview(ctx, model.ReviewEntry{PositionID: "a", Correct: true, At: storeT0}); err != nil {
		t.Fatalf("append review failed: %v", err)
	}
	if err := m.FinishSession(ctx, model.SessionRecord{Mode: model.ModeLearn, Correct: 1, At: storeT0}); err != nil {
		t.Fatalf("finish failed: %v", err)
	}

	if err := m.ClearAll(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	cards, _ := m.Cards(ctx)
	reviews, _ := m.Reviews(ctx)
	sessions, _ := m.Sessions(ctx)
	stats, _ := m.Stats(ctx)
	if len(cards) != 0 || len(reviews) != 0 || len(sessions) != 0 || stats != (model.GlobalStats{}) {
		t.Fatalf("clear left data behind: %d cards, %d reviews, %d sessions, %+v", len(cards), len(reviews), len(sessions), stats)
	}
}
