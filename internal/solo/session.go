// Package solo drives a single player through a timed question run: countdown,
// answer scoring with streak bonuses, pause/resume, and end-of-run summary.
package solo

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/smuotoe/GeoElevate-sub000/internal/domain"
)

// QuestionBank provides typed question batches for a session.
type QuestionBank interface {
	Fetch(ctx context.Context, query domain.QuestionQuery) ([]domain.Question, error)
}

// SessionSink durably stores final session scores.
type SessionSink interface {
	Open(ctx context.Context, query domain.QuestionQuery) (string, error)
	Finalize(ctx context.Context, sessionID string, summary domain.SessionSummary) error
}

// Phase is the top-level state of a session.
type Phase string

const (
	PhaseModeSelect Phase = "mode-select"
	PhaseLoading    Phase = "loading"
	PhasePlaying    Phase = "playing"
	PhaseFinished   Phase = "finished"
	PhaseError      Phase = "error"
)

const defaultResultDwell = 1500 * time.Millisecond

// Config fixes a session's mode, difficulty and timing policy.
type Config struct {
	Query        domain.QuestionQuery
	Matcher      domain.Matcher
	ResultDwell  time.Duration // 0 means the 1.5s default; negative advances immediately
	TickInterval time.Duration
}

// Snapshot is an immutable view of session state for rendering.
type Snapshot struct {
	Phase           Phase
	CurrentIndex    int
	TotalQuestions  int
	TimeLeftSeconds int
	Score           int
	Streak          int
	Paused          bool
	OfflinePaused   bool
	ShowResult      bool
	ConfirmingQuit  bool
	Answers         []domain.AnswerRecord
	Err             error
}

// Session is the solo match state machine. The 1 Hz countdown, the result
// dwell timer and all public calls serialize through one mutex; timers carry
// a generation token so a cancelled timer can never mutate later state.
type Session struct {
	bank QuestionBank
	sink SessionSink
	cfg  Config

	mu             sync.Mutex
	ctx            context.Context
	phase          Phase
	questions      []domain.Question
	currentIndex   int
	timeLeft       int
	score          int
	streak         int
	answers        []domain.AnswerRecord
	paused         bool
	offlinePaused  bool
	showResult     bool
	confirmingQuit bool
	loadErr        error

	sinkID    string
	finalized bool

	gen        int // timer epoch; bumping it cancels outstanding timers
	manualTick bool
}

// New builds an idle session; Start moves it into loading.
func New(bank QuestionBank, sink SessionSink, cfg Config) *Session {
	if cfg.ResultDwell == 0 {
		cfg.ResultDwell = defaultResultDwell
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Matcher.Threshold == 0 {
		cfg.Matcher = domain.NewMatcher(0)
	}
	return &Session{
		bank:  bank,
		sink:  sink,
		cfg:   cfg,
		phase: PhaseModeSelect,
	}
}

// Start fetches the question batch and begins playing. An empty batch or
// provider failure lands in the error phase; Retry re-enters loading.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseModeSelect && s.phase != PhaseError {
		return nil
	}
	return s.loadLocked(ctx)
}

// Retry re-attempts loading after a content error.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseError {
		return nil
	}
	return s.loadLocked(ctx)
}

func (s *Session) loadLocked(ctx context.Context) error {
	s.phase = PhaseLoading
	s.loadErr = nil

	questions, err := s.bank.Fetch(ctx, s.cfg.Query)
	if err == nil && len(questions) == 0 {
		err = domain.ErrEmptyBatch
	}
	if err != nil {
		s.phase = PhaseError
		s.loadErr = err
		return err
	}

	// Persisting is best-effort: an unopened sink only means the run will
	// not be recorded.
	sinkID, err := s.sink.Open(ctx, s.cfg.Query)
	if err != nil {
		log.Printf("session sink open failed, playing unpersisted: %v", err)
		sinkID = ""
	}

	s.ctx = ctx
	s.questions = questions
	s.currentIndex = 0
	s.timeLeft = s.cfg.Query.Difficulty.QuestionSeconds()
	s.score = 0
	s.streak = 0
	s.answers = nil
	s.paused = false
	s.offlinePaused = false
	s.showResult = false
	s.confirmingQuit = false
	s.sinkID = sinkID
	s.finalized = false
	s.phase = PhasePlaying
	s.startCountdownLocked()
	return nil
}

// SubmitChoice records a multiple-choice answer, compared by option equality.
func (s *Session) SubmitChoice(answer string) {
	s.submit(answer, func(expected string) bool { return answer == expected })
}

// SubmitText records a free-text answer, accepted by fuzzy match.
func (s *Session) SubmitText(answer string) {
	s.submit(answer, func(expected string) bool { return s.cfg.Matcher.IsMatch(answer, expected) })
}

func (s *Session) submit(answer string, correct func(expected string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Idempotent guard: a shown result means this question is already recorded.
	if s.phase != PhasePlaying || s.showResult {
		return
	}
	question := s.questions[s.currentIndex]
	s.recordAnswerLocked(&answer, correct(question.CorrectAnswer))
}

// recordAnswerLocked appends the answer record, applies scoring, and enters
// the result dwell. userAnswer == nil means timeout.
func (s *Session) recordAnswerLocked(userAnswer *string, isCorrect bool) {
	s.gen++ // cancel the countdown before anything else
	duration := s.cfg.Query.Difficulty.QuestionSeconds()
	timeMs := (duration - s.timeLeft) * 1000
	if userAnswer == nil {
		isCorrect = false
		timeMs = duration * 1000
	}

	points, newStreak := domain.Score(isCorrect, s.timeLeft, s.streak)
	s.score += points
	s.streak = newStreak
	s.answers = append(s.answers, domain.AnswerRecord{
		QuestionIndex: s.currentIndex,
		UserAnswer:    userAnswer,
		CorrectAnswer: s.questions[s.currentIndex].CorrectAnswer,
		IsCorrect:     isCorrect,
		TimeMs:        timeMs,
	})
	s.showResult = true

	if s.cfg.ResultDwell < 0 {
		s.advanceLocked()
		return
	}
	gen := s.gen
	time.AfterFunc(s.cfg.ResultDwell, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen {
			return
		}
		s.advanceLocked()
	})
}

// Advance skips the remaining result dwell. Safe to call repeatedly; the
// duplicate-delivery guard ensures the sink sees at most one finalize.
func (s *Session) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhasePlaying || !s.showResult {
		return
	}
	s.gen++ // cancel the pending dwell timer
	s.advanceLocked()
}

func (s *Session) advanceLocked() {
	if s.currentIndex == len(s.questions)-1 {
		s.finalizeLocked()
		return
	}
	s.currentIndex++
	s.showResult = false
	s.timeLeft = s.cfg.Query.Difficulty.QuestionSeconds()
	if !s.paused && !s.offlinePaused {
		s.startCountdownLocked()
	}
}

func (s *Session) finalizeLocked() {
	if s.finalized {
		return
	}
	s.finalized = true
	s.phase = PhaseFinished
	s.showResult = false
	s.gen++

	if s.sinkID == "" {
		return
	}
	summary := s.summaryLocked()
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	sinkID := s.sinkID
	go func() {
		if err := s.sink.Finalize(ctx, sinkID, summary); err != nil {
			log.Printf("session finalize failed for %s: %v", sinkID, err)
		}
	}()
}

func (s *Session) summaryLocked() domain.SessionSummary {
	correct := 0
	totalMs := 0
	for _, a := range s.answers {
		if a.IsCorrect {
			correct++
		}
		totalMs += a.TimeMs
	}
	avgMs := 0
	if len(s.answers) > 0 {
		avgMs = totalMs / len(s.answers)
	}
	answers := make([]domain.AnswerRecord, len(s.answers))
	copy(answers, s.answers)
	return domain.SessionSummary{
		Score:         s.score,
		XPEarned:      int(math.Round(float64(s.score) * 0.1)),
		CorrectCount:  correct,
		AverageTimeMs: avgMs,
		Answers:       answers,
	}
}

// Pause stops the countdown, remembering the time left.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhasePlaying || s.paused {
		return
	}
	s.paused = true
	if !s.showResult {
		s.gen++ // only the countdown stops; a pending result dwell still advances
	}
}

// Resume restarts the countdown from the remembered time. Refused while the
// session is offline-paused; connectivity has to come back first.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhasePlaying || !s.paused || s.offlinePaused {
		return
	}
	s.paused = false
	if !s.showResult {
		s.startCountdownLocked()
	}
}

// SetOnline toggles the connectivity-driven implicit pause. Coming back
// online hands the pause to the user, who resumes manually.
func (s *Session) SetOnline(online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhasePlaying {
		return
	}
	if !online && !s.offlinePaused {
		s.offlinePaused = true
		if !s.showResult {
			s.gen++
		}
		return
	}
	if online && s.offlinePaused {
		s.offlinePaused = false
		s.paused = true
	}
}

// RequestQuit opens the confirmation sub-dialog.
func (s *Session) RequestQuit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhasePlaying {
		s.confirmingQuit = true
	}
}

// CancelQuit dismisses the confirmation sub-dialog.
func (s *Session) CancelQuit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmingQuit = false
}

// ConfirmQuit discards all in-progress state without persisting anything.
func (s *Session) ConfirmQuit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhasePlaying || !s.confirmingQuit {
		return
	}
	s.gen++
	s.phase = PhaseModeSelect
	s.questions = nil
	s.answers = nil
	s.currentIndex = 0
	s.timeLeft = 0
	s.score = 0
	s.streak = 0
	s.paused = false
	s.offlinePaused = false
	s.showResult = false
	s.confirmingQuit = false
	s.sinkID = ""
}

// Restart resets all session state and re-enters loading with the same
// configuration.
func (s *Session) Restart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.loadLocked(ctx)
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	answers := make([]domain.AnswerRecord, len(s.answers))
	copy(answers, s.answers)
	return Snapshot{
		Phase:           s.phase,
		CurrentIndex:    s.currentIndex,
		TotalQuestions:  len(s.questions),
		TimeLeftSeconds: s.timeLeft,
		Score:           s.score,
		Streak:          s.streak,
		Paused:          s.paused,
		OfflinePaused:   s.offlinePaused,
		ShowResult:      s.showResult,
		ConfirmingQuit:  s.confirmingQuit,
		Answers:         answers,
		Err:             s.loadErr,
	}
}

func (s *Session) startCountdownLocked() {
	s.gen++
	if s.manualTick {
		return
	}
	gen := s.gen
	go func() {
		ticker := time.NewTicker(s.cfg.TickInterval)
		defer ticker.Stop()
		for range ticker.C {
			if !s.handleTick(gen) {
				return
			}
		}
	}()
}

// handleTick decrements the countdown once; a zero reading takes the timeout
// path. Returns false once this timer epoch is stale.
func (s *Session) handleTick(gen int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.phase != PhasePlaying || s.paused || s.offlinePaused || s.showResult {
		return false
	}
	if s.timeLeft > 0 {
		s.timeLeft--
	}
	if s.timeLeft > 0 {
		return true
	}
	// recordAnswerLocked bumps the generation, so the timeout fires once.
	s.recordAnswerLocked(nil, false)
	return false
}
