// Package fsrs implements the FSRS memory model used for scheduling reviews.
package fsrs

import (
	"math"
	"time"

	"github.com/tmparker/opendrill/internal/model"
)

const (
	minStability  = 0.1
	minDifficulty = 1.0
	maxDifficulty = 10.0
	hoursPerDay   = 24
)

// Params holds the tunable scheduler parameters. W is the FSRS-5 weight
// table: W[0..3] are per-grade initial stabilities, W[4] the initial
// difficulty baseline, W[5] its per-grade slope, W[6] the difficulty
// sensitivity, W[7] the mean-reversion weight, W[8..14] the stability
// growth and forgetting exponents, W[15] the hard penalty, and W[16] the
// easy bonus.
type Params struct {
	W                [17]float64
	RequestRetention float64
	MaximumInterval  int
	MasteryStability float64
}

// DefaultParams returns the stock FSRS-5 parameter set.
func DefaultParams() Params {
	return Params{
		W: [17]float64{
			0.4, 0.6, 2.4, 5.8, 4.93, 0.94, 0.86, 0.01, 1.49,
			0.14, 0.94, 2.18, 0.05, 0.34, 1.26, 0.29, 2.61,
		},
		RequestRetention: 0.9,
		MaximumInterval:  36500,
		MasteryStability: 5,
	}
}

// Scheduler computes review transitions for a single parameter set.
// Review is pure: it never mutates its input and holds no mutable state,
// so one Scheduler is safe to share across goroutines.
type Scheduler struct {
	params Params
}

// New returns a Scheduler for the given parameters.
func New(params Params) *Scheduler {
	return &Scheduler{params: params}
}

// Params returns the scheduler's parameter set.
func (s *Scheduler) Params() Params {
	return s.params
}

// Review computes the next memory state for a card given a grade at time
// now. The grade must be valid; callers validate at the boundary. The
// returned card is a new value and the input is left untouched.
func (s *Scheduler) Review(card model.Card, grade model.Grade, now time.Time) model.Card {
	elapsedDays := 0.0
	if !card.LastReview.IsZero() {
		elapsedDays = now.Sub(card.LastReview).Hours() / hoursPerDay
		if elapsedDays < 0 {
			elapsedDays = 0
		}
	}

	next := card
	if card.State == model.StateNew {
		next.Stability = s.initStability(grade)
		next.Difficulty = s.initDifficulty(grade)
		if grade == model.GradeForgot {
			next.State = model.StateLearning
		} else {
			next.State = model.StateReview
		}
	} else {
		r := Retrievability(elapsedDays, card.Stability)
		if grade == model.GradeForgot {
			next.Stability = s.nextForgetStability(card.Difficulty, card.Stability, r)
			next.Lapses = card.Lapses + 1
			next.State = model.StateRelearning
		} else {
			next.Stability = s.nextRecallStability(card.Difficulty, card.Stability, r, grade)
			next.State = model.StateReview
		}
		next.Difficulty = s.nextDifficulty(card.Difficulty, grade)
	}

	next.Stability = clampStability(next.Stability)
	next.Difficulty = clampDifficulty(next.Difficulty)
	next.Interval = s.Interval(next.Stability)
	next.Due = now.Add(time.Duration(next.Interval) * hoursPerDay * time.Hour)
	next.LastReview = now
	next.Reps = card.Reps + 1
	return next
}

// Retrievability is the estimated recall probability after elapsedDays
// for a card of the given stability: R = (1 + t/(9S))^-1.
func Retrievability(elapsedDays, stability float64) float64 {
	if stability <= 0 {
		return 0
	}
	return math.Pow(1+elapsedDays/(9*stability), -1)
}

// Interval derives the scheduling interval in days for a stability at the
// configured target retention, clamped to [1, MaximumInterval].
func (s *Scheduler) Interval(stability float64) int {
	ivl := 9 * stability * (1/s.params.RequestRetention - 1)
	rounded := int(math.Round(ivl))
	if rounded < 1 {
		rounded = 1
	}
	if rounded > s.params.MaximumInterval {
		rounded = s.params.MaximumInterval
	}
	return rounded
}

// Mastered reports whether a card counts as mastered: a review-state card
// whose stability exceeds the configured mastery threshold.
func (s *Scheduler) Mastered(card model.Card) bool {
	return card.State == model.StateReview && card.Stability > s.params.MasteryStability
}

// initStability is S0(G) = max(W[G-1], 0.1).
func (s *Scheduler) initStability(grade model.Grade) float64 {
	return clampStability(s.params.W[grade-1])
}

// initDifficulty is D0(G) = W[4] - (G-3)*W[5], clamped to [1, 10].
func (s *Scheduler) initDifficulty(grade model.Grade) float64 {
	return clampDifficulty(s.params.W[4] - float64(grade-3)*s.params.W[5])
}

// nextDifficulty shifts difficulty by the grade and pulls it partway back
// toward the baseline: D' = W[7]*W[4] + (1-W[7])*(D - W[6]*(G-3)).
func (s *Scheduler) nextDifficulty(d float64, grade model.Grade) float64 {
	shifted := d - s.params.W[6]*float64(grade-3)
	reverted := s.params.W[7]*s.params.W[4] + (1-s.params.W[7])*shifted
	return clampDifficulty(reverted)
}

// nextRecallStability grows stability after a successful recall:
// S' = S * (1 + e^W[8] * (11-D) * S^-W[9] * (e^((1-R)*W[10]) - 1) * penalty * bonus).
func (s *Scheduler) nextRecallStability(d, stability, r float64, grade model.Grade) float64 {
	hardPenalty := 1.0
	if grade == model.GradeHard {
		hardPenalty = s.params.W[15]
	}
	easyBonus := 1.0
	if grade == model.GradeEasy {
		easyBonus = s.params.W[16]
	}
	return stability * (1 + math.Exp(s.params.W[8])*
		(11-d)*
		math.Pow(stability, -s.params.W[9])*
		(math.Exp((1-r)*s.params.W[10])-1)*
		hardPenalty*easyBonus)
}

// nextForgetStability shrinks stability after a lapse:
// S' = W[11] * D^-W[12] * ((S+1)^W[13] - 1) * e^((1-R)*W[14]).
func (s *Scheduler) nextForgetStability(d, stability, r float64) float64 {
	return s.params.W[11] *
		math.Pow(d, -s.params.W[12]) *
		(math.Pow(stability+1, s.params.W[13]) - 1) *
		math.Exp((1-r)*s.params.W[14])
}

func clampStability(v float64) float64 {
	return math.Max(v, minStability)
}

func clampDifficulty(v float64) float64 {
	return math.Min(math.Max(v, minDifficulty), maxDifficulty)
}
