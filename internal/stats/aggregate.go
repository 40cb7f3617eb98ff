// Package stats derives analytics from the review log and card store.
package stats

import (
	"math"
	"sort"

	"github.com/tmparker/opendrill/internal/fsrs"
	"github.com/tmparker/opendrill/internal/model"
)

// UnknownOpening groups log entries whose opening tag is empty or no
// longer resolvable.
const UnknownOpening = "unknown"

// OpeningStat aggregates review outcomes and card mastery for one opening.
type OpeningStat struct {
	Opening       string
	Total         int
	Correct       int
	Wrong         int
	Accuracy      int
	Positions     int
	TotalCards    int
	MasteredCards int
	AvgStability  float64
}

// WeakSpot is a position the learner keeps getting wrong.
type WeakSpot struct {
	PositionID string
	Opening    string
	SAN        string
	Total      int
	Correct    int
	Wrong      int
	Accuracy   int
}

// Accuracy returns the percentage of correct outcomes, rounded.
func Accuracy(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// OpeningStats groups the review log by opening tag and cross-references
// the card store for mastery counts. Entries for openings no longer in
// the catalog are kept under their recorded tag; empty tags fall into
// UnknownOpening. Results are sorted by opening name.
func OpeningStats(reviews []model.ReviewEntry, cards []model.Card, sched *fsrs.Scheduler) []OpeningStat {
	byOpening := map[string]*OpeningStat{}
	get := func(opening string) *OpeningStat {
		if opening == "" {
			opening = UnknownOpening
		}
		stat, ok := byOpening[opening]
		if !ok {
			stat = &OpeningStat{Opening: opening}
			byOpening[opening] = stat
		}
		return stat
	}

	positionsSeen := map[string]map[string]struct{}{}
	for _, entry := range reviews {
		stat := get(entry.Opening)
		stat.Total++
		if entry.Correct {
			stat.Correct++
		} else {
			stat.Wrong++
		}
		seen, ok := positionsSeen[stat.Opening]
		if !ok {
			seen = map[string]struct{}{}
			positionsSeen[stat.Opening] = seen
		}
		seen[entry.PositionID] = struct{}{}
	}

	stabilitySums := map[string]float64{}
	for _, card := range cards {
		stat := get(card.Opening)
		stat.TotalCards++
		if sched.Mastered(card) {
			stat.MasteredCards++
		}
		stabilitySums[stat.Opening] += card.Stability
	}

	out := make([]OpeningStat, 0, len(byOpening))
	for name, stat := range byOpening {
		stat.Accuracy = Accuracy(stat.Correct, stat.Total)
		stat.Positions = len(positionsSeen[name])
		if stat.TotalCards > 0 {
			stat.AvgStability = stabilitySums[name] / float64(stat.TotalCards)
		}
		out = append(out, *stat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Opening < out[j].Opening })
	return out
}

// WeakSpots returns the limit lowest-accuracy positions with at least
// two recorded reviews, worst first. Ties keep the order positions first
// appeared in the log.
func WeakSpots(reviews []model.ReviewEntry, limit int) []WeakSpot {
	byPosition := map[string]*WeakSpot{}
	var order []string
	for _, entry := range reviews {
		spot, ok := byPosition[entry.PositionID]
		if !ok {
			spot = &WeakSpot{PositionID: entry.PositionID, Opening: entry.Opening, SAN: entry.SAN}
			byPosition[entry.PositionID] = spot
			order = append(order, entry.PositionID)
		}
		spot.Total++
		if entry.Correct {
			spot.Correct++
		} else {
			spot.Wrong++
		}
	}

	var spots []WeakSpot
	for _, id := range order {
		spot := byPosition[id]
		if spot.Total < 2 {
			continue
		}
		spot.Accuracy = Accuracy(spot.Correct, spot.Total)
		spots = append(spots, *spot)
	}
	sort.SliceStable(spots, func(i, j int) bool { return spots[i].Accuracy < spots[j].Accuracy })
	if limit > 0 && len(spots) > limit {
		spots = spots[:limit]
	}
	return spots
}

// SessionHistory returns the most recent limit sessions, newest first.
func SessionHistory(sessions []model.SessionRecord, limit int) []model.SessionRecord {
	out := append([]model.SessionRecord(nil), sessions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
