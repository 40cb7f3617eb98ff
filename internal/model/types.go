// Package model defines shared data structures.
package model

import "time"

// CardState is the lifecycle stage of a card's memory state.
type CardState string

// Card lifecycle stages.
const (
	StateNew        CardState = "new"
	StateLearning   CardState = "learning"
	StateReview     CardState = "review"
	StateRelearning CardState = "relearning"
)

// Grade is the learner's self-assessed recall quality for one review.
type Grade int

// Review grades, ordered worst to best.
const (
	GradeForgot Grade = 1
	GradeHard   Grade = 2
	GradeGood   Grade = 3
	GradeEasy   Grade = 4
)

// Valid reports whether g is one of the four review grades.
func (g Grade) Valid() bool {
	return g >= GradeForgot && g <= GradeEasy
}

func (g Grade) String() string {
	switch g {
	case GradeForgot:
		return "forgot"
	case GradeHard:
		return "hard"
	case GradeGood:
		return "good"
	case GradeEasy:
		return "easy"
	default:
		return "invalid"
	}
}

// Card is the scheduler's memory state for one catalog position.
// A zero LastReview means the card has never been graded; a zero Due
// means the card is immediately due.
type Card struct {
	ID         string    `json:"id"`
	Opening    string    `json:"opening"`
	State      CardState `json:"state"`
	Stability  float64   `json:"stability"`
	Difficulty float64   `json:"difficulty"`
	Reps       int       `json:"reps"`
	Lapses     int       `json:"lapses"`
	Interval   int       `json:"interval"`
	LastReview time.Time `json:"lastReview"`
	Due        time.Time `json:"due"`
}

// NewCard returns the never-studied memory state for a position.
func NewCard(id, opening string) Card {
	return Card{ID: id, Opening: opening, State: StateNew}
}

// IsDue reports whether the card is eligible for review at the given time.
func (c Card) IsDue(now time.Time) bool {
	return c.Due.IsZero() || !c.Due.After(now)
}

// ReviewEntry is one immutable review-log record.
type ReviewEntry struct {
	ID         int64     `json:"id,omitempty"`
	PositionID string    `json:"positionId"`
	Opening    string    `json:"opening"`
	SAN        string    `json:"san"`
	Correct    bool      `json:"correct"`
	At         time.Time `json:"date"`
}

// Mode identifies how a session was played.
type Mode string

// Session modes.
const (
	ModeLearn  Mode = "learn"
	ModeTimed  Mode = "timed"
	ModeReview Mode = "review"
)

// SessionRecord is the immutable summary of one completed session.
type SessionRecord struct {
	ID         int64     `json:"id,omitempty"`
	Mode       Mode      `json:"mode"`
	Opening    string    `json:"opening"`
	Rounds     int       `json:"rounds"`
	Correct    int       `json:"correct"`
	Wrong      int       `json:"wrong"`
	Score      int       `json:"score,omitempty"`
	BestStreak int       `json:"bestStreak"`
	At         time.Time `json:"date"`
}

// GlobalStats is the singleton all-time aggregate.
type GlobalStats struct {
	HighScore     int `json:"highScore"`
	TotalCorrect  int `json:"totalCorrect"`
	TotalWrong    int `json:"totalWrong"`
	TotalSessions int `json:"totalSessions"`
	TotalReviews  int `json:"totalReviews"`
	StreakRecord  int `json:"streakRecord"`
}

// Apply merges a finished session into the all-time aggregate.
func (s *GlobalStats) Apply(rec SessionRecord) {
	s.TotalCorrect += rec.Correct
	s.TotalWrong += rec.Wrong
	s.TotalReviews += rec.Correct + rec.Wrong
	s.TotalSessions++
	if rec.BestStreak > s.StreakRecord {
		s.StreakRecord = rec.BestStreak
	}
	if rec.Mode == ModeTimed && rec.Score > s.HighScore {
		s.HighScore = rec.Score
	}
}
