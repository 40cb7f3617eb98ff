// Package session drives one play session: queue construction, answer
// and grade handling, and end-of-session recording.
package session

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/tmparker/opendrill/internal/catalog"
	"github.com/tmparker/opendrill/internal/fsrs"
	"github.com/tmparker/opendrill/internal/model"
	"github.com/tmparker/opendrill/internal/store"
)

// Status is the lifecycle state of a session.
type Status int

// Session lifecycle states.
const (
	StatusIdle Status = iota
	StatusActive
	StatusFinished
)

// Default timed-mode settings.
const (
	DefaultRounds    = 10
	DefaultRoundTime = 25 * time.Second
)

const minRoundScore = 10

// Config selects the mode and scope of a session.
type Config struct {
	Mode      model.Mode
	Opening   string // opening key filter; empty or "all" means the whole catalog
	Rounds    int    // timed mode round limit; 0 uses DefaultRounds
	RoundTime time.Duration
}

// Result carries the presentation context of one answer, used for timed
// scoring only.
type Result struct {
	TimeLeft time.Duration
	Hints    int
}

// Session is the per-play state machine. It owns the presentation queue
// and mediates every write to the store during play. Not safe for
// concurrent use; the driving event loop serializes all calls.
type Session struct {
	cfg       Config
	positions []catalog.Position
	store     store.Store
	sched     *fsrs.Scheduler
	rnd       *rand.Rand
	warnf     func(format string, args ...any)

	status     Status
	queue      []catalog.Position
	current    catalog.Position
	hasCurrent bool

	answered   int
	correct    int
	wrong      int
	streak     int
	bestStreak int
	score      int
}

// Option customizes a Session.
type Option func(*Session)

// WithRand sets the random source used for shuffling.
func WithRand(rnd *rand.Rand) Option {
	return func(s *Session) { s.rnd = rnd }
}

// WithWarnf sets the sink for non-fatal storage warnings.
func WithWarnf(warnf func(format string, args ...any)) Option {
	return func(s *Session) { s.warnf = warnf }
}

// New creates an idle session over the filtered catalog positions.
func New(cfg Config, positions []catalog.Position, st store.Store, sched *fsrs.Scheduler, opts ...Option) *Session {
	if cfg.Rounds <= 0 {
		cfg.Rounds = DefaultRounds
	}
	if cfg.RoundTime <= 0 {
		cfg.RoundTime = DefaultRoundTime
	}
	s := &Session{
		cfg:       cfg,
		positions: positions,
		store:     st,
		sched:     sched,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		warnf:     func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the initial queue and serves the first position. It
// returns false when the catalog is empty or the session cannot start.
func (s *Session) Start(ctx context.Context, now time.Time) (catalog.Position, bool) {
	if s.status != StatusIdle || len(s.positions) == 0 {
		return catalog.Position{}, false
	}
	s.status = StatusActive
	s.buildQueue(ctx, now)
	return s.Advance()
}

// Advance serves the next position. It returns false when the session is
// over: the timed round limit was reached, the review due set is
// exhausted, or the session already finished. Learn mode reshuffles and
// continues indefinitely.
func (s *Session) Advance() (catalog.Position, bool) {
	if s.status != StatusActive {
		return catalog.Position{}, false
	}
	if s.cfg.Mode == model.ModeTimed && s.answered >= s.cfg.Rounds {
		return catalog.Position{}, false
	}
	if len(s.queue) == 0 {
		if s.cfg.Mode == model.ModeReview {
			return catalog.Position{}, false
		}
		s.queue = shuffled(s.rnd, s.positions)
	}
	s.current = s.queue[0]
	s.queue = s.queue[1:]
	s.hasCurrent = true
	return s.current, true
}

// buildQueue applies the per-mode queue policy. Review mode draws the
// due set; when nothing is due (or the store fails) it falls back to the
// whole filtered catalog so the session is never empty.
func (s *Session) buildQueue(ctx context.Context, now time.Time) {
	if s.cfg.Mode != model.ModeReview {
		s.queue = shuffled(s.rnd, s.positions)
		return
	}
	dueCards, err := s.store.DueCards(ctx, now)
	if err != nil {
		s.warnf("failed to load due cards: %v", err)
	}
	dueIDs := make(map[string]struct{}, len(dueCards))
	for _, card := range dueCards {
		dueIDs[card.ID] = struct{}{}
	}
	var duePositions []catalog.Position
	for _, pos := range s.positions {
		if _, ok := dueIDs[pos.ID]; ok {
			duePositions = append(duePositions, pos)
		}
	}
	if len(duePositions) == 0 {
		s.queue = shuffled(s.rnd, s.positions)
		return
	}
	s.queue = shuffled(s.rnd, duePositions)
}

// Answer records the outcome of the current position: counters, streak,
// timed score, the review-log entry, and (outside review mode) re-queues
// a miss so it reappears later in the session. Storage failures are
// warned about and never interrupt play.
func (s *Session) Answer(ctx context.Context, correct bool, res Result, now time.Time) {
	if s.status != StatusActive || !s.hasCurrent {
		return
	}
	s.answered++
	if correct {
		s.correct++
		if s.cfg.Mode == model.ModeTimed {
			s.score += s.roundScore(res)
		}
		s.streak++
		if s.streak > s.bestStreak {
			s.bestStreak = s.streak
		}
	} else {
		s.wrong++
		s.streak = 0
		if s.cfg.Mode != model.ModeReview {
			s.queue = append(s.queue, s.current)
		}
	}
	entry := model.ReviewEntry{
		PositionID: s.current.ID,
		Opening:    s.current.Opening,
		SAN:        s.current.SAN,
		Correct:    correct,
		At:         now,
	}
	if err := s.store.AppendReview(ctx, entry); err != nil {
		s.warnf("failed to record review: %v", err)
	}
}

// roundScore is the timed-mode point formula. The streak bonus uses the
// streak before this answer, matching the displayed multiplier.
func (s *Session) roundScore(res Result) int {
	timeLeft := res.TimeLeft.Seconds()
	if timeLeft < 0 {
		timeLeft = 0
	}
	pts := 100 + int(math.Floor(timeLeft*4)) + s.streak*12 - res.Hints*25
	if pts < minRoundScore {
		pts = minRoundScore
	}
	return pts
}

// Grade runs the scheduler on the current position's card and persists
// the result. Only meaningful in review mode; the grade must be valid
// (callers validate at the input boundary).
func (s *Session) Grade(ctx context.Context, grade model.Grade, now time.Time) {
	if s.status != StatusActive || !s.hasCurrent || s.cfg.Mode != model.ModeReview {
		return
	}
	card, found, err := s.store.Card(ctx, s.current.ID)
	if err != nil {
		s.warnf("failed to load card %s: %v", s.current.ID, err)
		found = false
	}
	if !found {
		card = model.NewCard(s.current.ID, s.current.Opening)
	}
	card.Opening = s.current.Opening
	next := s.sched.Review(card, grade, now)
	if err := s.store.PutCard(ctx, next); err != nil {
		s.warnf("failed to save card %s: %v", s.current.ID, err)
	}
}

// Finish closes the session, merges its results into global stats, and
// appends the session record. The returned record reflects the session
// even when persistence fails; the error reports the persistence
// outcome.
func (s *Session) Finish(ctx context.Context, now time.Time) (model.SessionRecord, error) {
	if s.status == StatusFinished {
		return model.SessionRecord{}, nil
	}
	s.status = StatusFinished
	rec := model.SessionRecord{
		Mode:       s.cfg.Mode,
		Opening:    s.openingLabel(),
		Rounds:     s.answered,
		Correct:    s.correct,
		Wrong:      s.wrong,
		BestStreak: s.bestStreak,
		At:         now,
	}
	if s.cfg.Mode == model.ModeTimed {
		rec.Score = s.score
	}
	if s.answered == 0 {
		// Nothing was played; keep the logs free of empty sessions.
		return rec, nil
	}
	err := s.store.FinishSession(ctx, rec)
	if err != nil {
		s.warnf("failed to save session: %v", err)
	}
	return rec, err
}

func (s *Session) openingLabel() string {
	if s.cfg.Opening == "" {
		return "all"
	}
	return s.cfg.Opening
}

// Status returns the session lifecycle state.
func (s *Session) Status() Status { return s.status }

// Mode returns the session mode.
func (s *Session) Mode() model.Mode { return s.cfg.Mode }

// RoundTime returns the per-round time limit for timed mode.
func (s *Session) RoundTime() time.Duration { return s.cfg.RoundTime }

// Rounds returns the timed-mode round limit.
func (s *Session) Rounds() int { return s.cfg.Rounds }

// Answered returns how many positions have been answered.
func (s *Session) Answered() int { return s.answered }

// Correct returns the number of correct answers.
func (s *Session) Correct() int { return s.correct }

// Wrong returns the number of wrong answers.
func (s *Session) Wrong() int { return s.wrong }

// Streak returns the current run of consecutive correct answers.
func (s *Session) Streak() int { return s.streak }

// BestStreak returns the best streak of the session.
func (s *Session) BestStreak() int { return s.bestStreak }

// Score returns the timed-mode score.
func (s *Session) Score() int { return s.score }

func shuffled(rnd *rand.Rand, positions []catalog.Position) []catalog.Position {
	out := append([]catalog.Position(nil), positions...)
	// Fisher-Yates: every permutation equally likely.
	for i := len(out) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
