package stats

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tmparker/opendrill/internal/fsrs"
	"github.com/tmparker/opendrill/internal/model"
)

func TestAccuracy(t *testing.T) {
	cases := []struct {
		correct, total, want int
	}{
		{0, 0, 0},
		{1, 2, 50},
		{2, 3, 67},
		{1, 3, 33},
		{4, 4, 100},
	}
	for _, tc := range cases {
		if got := Accuracy(tc.correct, tc.total); got != tc.want {
			t.Errorf("Accuracy(%d, %d) = %d, want %d", tc.correct, tc.total, got, tc.want)
		}
	}
}

func TestOpeningStatsGrouping(t *testing.T) {
	sched := fsrs.New(fsrs.DefaultParams())
	reviews := []model.ReviewEntry{
		{PositionID: "s1", Opening: "Sicilian", Correct: true},
		{PositionID: "s1", Opening: "Sicilian", Correct: false},
		{PositionID: "s2", Opening: "Sicilian", Correct: true},
		{PositionID: "i1", Opening: "Italian", Correct: true},
		{PositionID: "x1", Opening: "", Correct: false},
	}
	cards := []model.Card{
		{ID: "s1", Opening: "Sicilian", State: model.StateReview, Stability: 12},
		{ID: "s2", Opening: "Sicilian", State: model.StateLearning, Stability: 2},
		{ID: "i1", Opening: "Italian", State: model.StateReview, Stability: 8},
	}

	stats := OpeningStats(reviews, cards, sched)
	if len(stats) != 3 {
		t.Fatalf("got %d opening stats, want 3", len(stats))
	}

	// Sorted by opening name: Italian, Sicilian, unknown.
	italian, sicilian, unknown := stats[0], stats[1], stats[2]
	if italian.Opening != "Italian" || sicilian.Opening != "Sicilian" || unknown.Opening != UnknownOpening {
		t.Fatalf("unexpected opening order: %q, %q, %q", italian.Opening, sicilian.Opening, unknown.Opening)
	}

	if sicilian.Total != 3 || sicilian.Correct != 2 || sicilian.Wrong != 1 {
		t.Errorf("sicilian counts = %d/%d/%d, want 3/2/1", sicilian.Total, sicilian.Correct, sicilian.Wrong)
	}
	if sicilian.Accuracy != 67 {
		t.Errorf("sicilian accuracy = %d, want 67", sicilian.Accuracy)
	}
	if sicilian.Positions != 2 {
		t.Errorf("sicilian positions = %d, want 2", sicilian.Positions)
	}
	if sicilian.TotalCards != 2 || sicilian.MasteredCards != 1 {
		t.Errorf("sicilian cards = %d mastered %d, want 2 mastered 1", sicilian.TotalCards, sicilian.MasteredCards)
	}
	if sicilian.AvgStability != 7 {
		t.Errorf("sicilian avg stability = %v, want 7", sicilian.AvgStability)
	}

	if unknown.Total != 1 || unknown.Wrong != 1 {
		t.Errorf("unknown counts = %d total %d wrong, want 1/1", unknown.Total, unknown.Wrong)
	}
	if unknown.TotalCards != 0 {
		t.Errorf("unknown has %d cards, want 0", unknown.TotalCards)
	}
}

func TestWeakSpotsOrderingAndThreshold(t *testing.T) {
	reviews := []model.ReviewEntry{
		{PositionID: "id1", Opening: "Sicilian", SAN: "d4", Correct: false},
		{PositionID: "id1", Opening: "Sicilian", SAN: "d4", Correct: true},
		{PositionID: "id2", Opening: "Italian", SAN: "Bc4", Correct: false},
		{PositionID: "id2", Opening: "Italian", SAN: "Bc4", Correct: false},
		{PositionID: "once", Opening: "French", SAN: "e5", Correct: false},
	}

	spots := WeakSpots(reviews, 10)
	if len(spots) != 2 {
		t.Fatalf("got %d weak spots, want 2 (single-review position excluded)", len(spots))
	}
	if spots[0].PositionID != "id2" || spots[0].Accuracy != 0 {
		t.Errorf("worst spot = %s at %d%%, want id2 at 0%%", spots[0].PositionID, spots[0].Accuracy)
	}
	if spots[1].PositionID != "id1" || spots[1].Accuracy != 50 {
		t.Errorf("second spot = %s at %d%%, want id1 at 50%%", spots[1].PositionID, spots[1].Accuracy)
	}
}

func TestWeakSpotsTiesKeepFirstSeenOrder(t *testing.T) {
	reviews := []model.ReviewEntry{
		{PositionID: "a", Correct: false},
		{PositionID: "b", Correct: false},
		{PositionID: "a", Correct: false},
		{PositionID: "b", Correct: false},
	}
	spots := WeakSpots(reviews, 0)
	if len(spots) != 2 || spots[0].PositionID != "a" || spots[1].PositionID != "b" {
		t.Fatalf("tied spots out of order: %+v", spots)
	}
}

func TestWeakSpotsLimit(t *testing.T) {
	var reviews []model.ReviewEntry
	for _, id := range []string{"a", "b", "c"} {
		reviews = append(reviews,
			model.ReviewEntry{PositionID: id, Correct: false},
			model.ReviewEntry{PositionID: id, Correct: false},
		)
	}
	if got := len(WeakSpots(reviews, 2)); got != 2 {
		t.Fatalf("got %d spots, want 2", got)
	}
}

func TestSessionHistoryNewestFirst(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sessions := []model.SessionRecord{
		{Mode: model.ModeLearn, At: base},
		{Mode: model.ModeTimed, At: base.Add(2 * time.Hour)},
		{Mode: model.ModeReview, At: base.Add(time.Hour)},
	}

	got := SessionHistory(sessions, 2)
	if len(got) != 2 {
		t.Fatalf("got %d sessions, want 2", len(got))
	}
	if got[0].Mode != model.ModeTimed || got[1].Mode != model.ModeReview {
		t.Errorf("history order = %s, %s; want timed, review", got[0].Mode, got[1].Mode)
	}

	// Input untouched.
	if sessions[0].Mode != model.ModeLearn {
		t.Error("SessionHistory mutated its input")
	}
}

func TestFormatTableAlignment(t *testing.T) {
	lines := formatTable(
		[]string{"Name", "Count"},
		[][]string{{"sicilian", "3"}, {"it", "12"}},
		map[int]bool{1: true},
	)
	want := []string{
		"Name      Count",
		"sicilian      3",
		"it           12",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("formatTable = %q, want %q", lines, want)
	}
}

func TestSparkline(t *testing.T) {
	got := Sparkline([]float64{0, 50, 100}, 0, 100)
	if len(got) != 3 {
		t.Fatalf("sparkline %q has length %d, want 3", got, len(got))
	}
	if got[0] != ' ' || got[2] != '@' {
		t.Errorf("sparkline endpoints = %q, want space and @", got)
	}
	if Sparkline(nil, 0, 100) != "" {
		t.Error("empty input should render an empty sparkline")
	}
}

func TestRenderSummary(t *testing.T) {
	var b strings.Builder
	err := RenderSummary(&b, model.GlobalStats{
		TotalSessions: 4,
		TotalCorrect:  30,
		TotalWrong:    10,
		StreakRecord:  7,
		HighScore:     1240,
	}, 5)
	if err != nil {
		t.Fatalf("RenderSummary: %v", err)
	}
	out := b.String()
	for _, want := range []string{"Sessions: 4", "Reviews: 40", "Accuracy: 75%", "Best streak: 7", "High score: 1240", "Due now: 5"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q in:\n%s", want, out)
		}
	}
}

func TestRenderHistorySparkline(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sessions := []model.SessionRecord{
		{Mode: model.ModeTimed, At: base.Add(time.Hour), Rounds: 10, Correct: 10, Score: 1500},
		{Mode: model.ModeLearn, At: base, Rounds: 10, Correct: 0, Wrong: 10},
	}
	var b strings.Builder
	if err := RenderHistory(&b, sessions); err != nil {
		t.Fatalf("RenderHistory: %v", err)
	}
	out := b.String()
	// Oldest session (0%) first, newest (100%) last.
	if !strings.Contains(out, "Accuracy trend:  @") {
		t.Errorf("history missing chronological sparkline:\n%s", out)
	}
	if !strings.Contains(out, "1500") {
		t.Errorf("history missing timed score:\n%s", out)
	}
	if !strings.Contains(out, "-") {
		t.Errorf("history should dash out scores of untimed modes:\n%s", out)
	}
}
