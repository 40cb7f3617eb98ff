package backup

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tmparker/opendrill/internal/model"
	"github.com/tmparker/opendrill/internal/store"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func seedStore(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()

	cards := []model.Card{
		{ID: "sicilian-1", Opening: "Sicilian", State: model.StateReview, Stability: 11.5, Difficulty: 4.2, Reps: 6, Interval: 12, LastReview: t0, Due: t0.AddDate(0, 0, 12)},
		{ID: "italian-1", Opening: "Italian", State: model.StateLearning, Stability: 0.8, Difficulty: 6.1, Reps: 1, Lapses: 1, Interval: 1, LastReview: t0, Due: t0.AddDate(0, 0, 1)},
	}
	for _, card := range cards {
		if err := st.PutCard(ctx, card); err != nil {
			t.Fatalf("seed card: %v", err)
		}
	}
	if err := st.PutStats(ctx, model.GlobalStats{HighScore: 900, TotalCorrect: 40, TotalWrong: 8, TotalSessions: 5, TotalReviews: 48, StreakRecord: 9}); err != nil {
		t.Fatalf("seed stats: %v", err)
	}
	if err := st.AppendSession(ctx, model.SessionRecord{Mode: model.ModeTimed, Opening: "all", Rounds: 10, Correct: 9, Wrong: 1, Score: 900, BestStreak: 9, At: t0}); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	for _, correct := range []bool{true, true, false} {
		if err := st.AppendReview(ctx, model.ReviewEntry{PositionID: "sicilian-1", Opening: "Sicilian", SAN: "d4", Correct: correct, At: t0}); err != nil {
			t.Fatalf("seed review: %v", err)
		}
	}
	return st
}

func TestExportDocumentShape(t *testing.T) {
	ctx := context.Background()
	data, err := Export(ctx, seedStore(t), t0)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode exported document: %v", err)
	}
	if doc.Version != Version {
		t.Errorf("version = %d, want %d", doc.Version, Version)
	}
	if !doc.ExportDate.Equal(t0) {
		t.Errorf("exportDate = %v, want %v", doc.ExportDate, t0)
	}
	if doc.Cards == nil || len(*doc.Cards) != 2 {
		t.Fatalf("exported cards = %v, want 2 cards", doc.Cards)
	}
	if len(doc.Sessions) != 1 || len(doc.Reviews) != 3 {
		t.Errorf("exported %d sessions and %d reviews, want 1 and 3", len(doc.Sessions), len(doc.Reviews))
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := seedStore(t)
	data, err := Export(ctx, src, t0)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	dst := store.NewMemory()
	if err := Import(ctx, dst, data); err != nil {
		t.Fatalf("Import: %v", err)
	}

	card, found, err := dst.Card(ctx, "sicilian-1")
	if err != nil || !found {
		t.Fatalf("Card after import: found=%v err=%v", found, err)
	}
	if card.Stability != 11.5 || card.State != model.StateReview || !card.Due.Equal(t0.AddDate(0, 0, 12)) {
		t.Errorf("card not preserved: %+v", card)
	}

	stats, err := dst.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats after import: %v", err)
	}
	if stats.HighScore != 900 || stats.TotalSessions != 5 {
		t.Errorf("stats not preserved: %+v", stats)
	}

	sessions, err := dst.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions after import: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Score != 900 {
		t.Errorf("sessions not preserved: %+v", sessions)
	}
	if sessions[0].ID == 0 {
		t.Error("imported session should get a fresh key")
	}

	reviews, err := dst.Reviews(ctx)
	if err != nil {
		t.Fatalf("Reviews after import: %v", err)
	}
	if len(reviews) != 3 {
		t.Errorf("got %d reviews, want 3", len(reviews))
	}
}

func TestEmptySQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	src, err := store.Open(filepath.Join(t.TempDir(), "opendrill.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			t.Errorf("close store: %v", cerr)
		}
	}()

	data, err := Export(ctx, src, t0)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if strings.Contains(string(data), `"cards": null`) {
		t.Fatalf("empty store exported null cards:\n%s", data)
	}
	if !strings.Contains(string(data), `"cards": []`) {
		t.Errorf("empty store should export an empty cards array:\n%s", data)
	}

	dst := store.NewMemory()
	if err := Import(ctx, dst, data); err != nil {
		t.Fatalf("Import rejected the tool's own export: %v", err)
	}
}

func TestImportRejectsMissingCards(t *testing.T) {
	ctx := context.Background()
	cases := map[string]string{
		"no cards key": `{"version":2,"stats":{},"sessions":[],"reviews":[]}`,
		"null cards":   `{"version":2,"cards":null,"stats":{}}`,
		"not json":     `{"version":`,
		"card no id":   `{"version":2,"cards":[{"opening":"Sicilian"}]}`,
	}
	for name, raw := range cases {
		st := store.NewMemory()
		err := Import(ctx, st, []byte(raw))
		if err == nil {
			t.Errorf("%s: Import accepted a malformed document", name)
			continue
		}
		cards, cerr := st.Cards(ctx)
		if cerr != nil {
			t.Fatalf("%s: Cards: %v", name, cerr)
		}
		if len(cards) != 0 {
			t.Errorf("%s: store touched by a rejected import", name)
		}
	}
}

func TestImportMergesIntoExistingStore(t *testing.T) {
	ctx := context.Background()
	st := seedStore(t)
	doc := `{"version":2,"cards":[{"id":"sicilian-1","opening":"Sicilian","state":"review","stability":20}],"sessions":[{"mode":"learn","rounds":5,"correct":5,"date":"2025-06-02T09:00:00Z"}]}`
	if err := Import(ctx, st, []byte(doc)); err != nil {
		t.Fatalf("Import: %v", err)
	}

	card, _, err := st.Card(ctx, "sicilian-1")
	if err != nil {
		t.Fatalf("Card: %v", err)
	}
	if card.Stability != 20 {
		t.Errorf("upsert should replace the card whole, stability = %v", card.Stability)
	}

	sessions, err := st.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("got %d sessions, want 2 (append, not replace)", len(sessions))
	}
}

func TestExportIsStableJSON(t *testing.T) {
	ctx := context.Background()
	data, err := Export(ctx, seedStore(t), t0)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(string(data), `"version": 2`) {
		t.Errorf("document missing version field:\n%s", data)
	}
	if !strings.Contains(string(data), `"exportDate"`) {
		t.Errorf("document missing exportDate field:\n%s", data)
	}
}
