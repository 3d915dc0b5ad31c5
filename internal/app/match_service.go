package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smuotoe/GeoElevate-sub000/internal/domain"
	"github.com/smuotoe/GeoElevate-sub000/internal/protocol"
)

// QuestionBank provides typed question batches.
type QuestionBank interface {
	Fetch(ctx context.Context, query domain.QuestionQuery) ([]domain.Question, error)
}

// MatchStore persists match registry records (in-memory, Redis, etc).
type MatchStore interface {
	Save(ctx context.Context, match domain.Match) error
	Get(ctx context.Context, id string) (domain.Match, error)
}

// MatchConfig fixes the coordinator's timing and scoring policy.
type MatchConfig struct {
	QuestionCount int           // questions per match, default 5
	ResultDwell   time.Duration // pause between results and the next question
	DeadlineGrace time.Duration // slack past the countdown before force-scoring
	Matcher       domain.Matcher
}

func (c MatchConfig) withDefaults() MatchConfig {
	if c.QuestionCount <= 0 {
		c.QuestionCount = 5
	}
	if c.ResultDwell == 0 {
		c.ResultDwell = 1500 * time.Millisecond
	}
	if c.DeadlineGrace == 0 {
		c.DeadlineGrace = time.Second
	}
	if c.Matcher.Threshold == 0 {
		c.Matcher = domain.NewMatcher(0)
	}
	return c
}

// MatchService owns all live matches and implements the coordinator side of
// the match protocol.
type MatchService struct {
	bank  QuestionBank
	store MatchStore
	cfg   MatchConfig

	mu      sync.RWMutex
	matches map[string]*liveMatch
}

func NewMatchService(bank QuestionBank, store MatchStore, cfg MatchConfig) *MatchService {
	return &MatchService{
		bank:    bank,
		store:   store,
		cfg:     cfg.withDefaults(),
		matches: make(map[string]*liveMatch),
	}
}

// Create issues a challenge: it fetches the question sequence up front and
// registers a pending match both players can join.
func (s *MatchService) Create(ctx context.Context, challengerID, opponentID, gameType string, difficulty domain.Difficulty, mode domain.InputMode) (domain.Match, error) {
	query := domain.QuestionQuery{
		GameType:   gameType,
		Count:      s.cfg.QuestionCount,
		Difficulty: difficulty,
		Mode:       mode,
	}
	questions, err := s.bank.Fetch(ctx, query)
	if err != nil {
		return domain.Match{}, err
	}
	if len(questions) == 0 {
		return domain.Match{}, domain.ErrEmptyBatch
	}
	if len(questions) > s.cfg.QuestionCount {
		questions = questions[:s.cfg.QuestionCount]
	}

	record := domain.Match{
		ID:             uuid.NewString(),
		ChallengerID:   challengerID,
		OpponentID:     opponentID,
		GameType:       gameType,
		Status:         domain.MatchPending,
		Scores:         map[string]int{challengerID: 0, opponentID: 0},
		TotalQuestions: len(questions),
	}

	m := &liveMatch{
		record:    record,
		questions: questions,
		mode:      mode,
		duration:  difficulty.QuestionSeconds(),
		dwell:     s.cfg.ResultDwell,
		grace:     s.cfg.DeadlineGrace,
		matcher:   s.cfg.Matcher,
		store:     s.store,
		players: map[string]*playerSlot{
			challengerID: {id: challengerID},
			opponentID:   {id: opponentID},
		},
	}

	s.mu.Lock()
	s.matches[record.ID] = m
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Save(ctx, record); err != nil {
			return record, err
		}
	}
	return record, nil
}

// Join attaches a player to a pending or active match. The returned channel
// carries every coordinator message for that player; the cancel function
// detaches and, mid-match, abandons the match.
func (s *MatchService) Join(_ context.Context, matchID, playerID string) (<-chan protocol.Envelope, func(), error) {
	m, ok := s.match(matchID)
	if !ok {
		return nil, nil, domain.ErrMatchNotFound
	}
	ch, err := m.subscribe(playerID)
	if err != nil {
		return nil, nil, err
	}
	cancel := func() { s.Leave(context.Background(), matchID, playerID) }
	return ch, cancel, nil
}

// SubmitAnswer records one answer. A nil answer is a timeout auto-submit.
func (s *MatchService) SubmitAnswer(_ context.Context, matchID, playerID string, sub protocol.SubmitAnswer) error {
	m, ok := s.match(matchID)
	if !ok {
		return domain.ErrMatchNotFound
	}
	return m.submitAnswer(playerID, sub)
}

// Leave detaches a player; mid-match this cancels the whole match and drops
// the live state once both sides are gone.
func (s *MatchService) Leave(_ context.Context, matchID, playerID string) {
	m, ok := s.match(matchID)
	if !ok {
		return
	}
	m.leave(playerID)

	m.mu.Lock()
	dead := m.ended && !m.bothJoinedLocked()
	m.mu.Unlock()
	if dead {
		s.mu.Lock()
		delete(s.matches, matchID)
		s.mu.Unlock()
	}
}

// Get serves the registry resource: live state when the match is running,
// otherwise whatever the store remembers.
func (s *MatchService) Get(ctx context.Context, matchID string) (domain.Match, error) {
	if m, ok := s.match(matchID); ok {
		return m.snapshot(), nil
	}
	if s.store != nil {
		return s.store.Get(ctx, matchID)
	}
	return domain.Match{}, domain.ErrMatchNotFound
}

func (s *MatchService) match(matchID string) (*liveMatch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[matchID]
	return m, ok
}
