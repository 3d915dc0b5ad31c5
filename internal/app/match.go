package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/smuotoe/GeoElevate-sub000/internal/domain"
	"github.com/smuotoe/GeoElevate-sub000/internal/protocol"
)

// liveMatch is the coordinator's authoritative state for one running match.
// Inbound calls and timer callbacks serialize through one mutex; the deadline
// and dwell timers carry a generation token so a stale timer never fires into
// a later question.
type liveMatch struct {
	mu sync.Mutex

	record    domain.Match
	questions []domain.Question
	mode      domain.InputMode
	duration  int // seconds per question
	dwell     time.Duration
	grace     time.Duration
	matcher   domain.Matcher
	store     MatchStore

	players map[string]*playerSlot
	current int
	started bool
	ended   bool

	gen        int
	manualTime bool
}

type playerSlot struct {
	id       string
	joined   bool
	ch       chan protocol.Envelope
	score    int
	streak   int
	answered bool
	correct  bool
}

func (m *liveMatch) subscribe(playerID string) (<-chan protocol.Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.players[playerID]
	if !ok {
		return nil, domain.ErrNotParticipant
	}
	if m.ended {
		return nil, domain.ErrMatchTerminal
	}

	slot.joined = true
	slot.ch = make(chan protocol.Envelope, 32)
	m.sendLocked(slot, protocol.MustEncode(protocol.TypeMatchJoined, protocol.MatchJoined{
		TotalQuestions: len(m.questions),
	}))

	if !m.bothJoinedLocked() {
		m.sendLocked(slot, protocol.Envelope{Type: protocol.TypeWaitingForOpponent})
		return slot.ch, nil
	}

	// match_start fires exactly once, strictly after both joins.
	if !m.started {
		m.started = true
		m.record.Status = domain.MatchActive
		m.saveLocked()
		m.broadcastLocked(protocol.MustEncode(protocol.TypeMatchStart, protocol.MatchStart{
			Question:       m.questions[0],
			QuestionIndex:  0,
			TotalQuestions: len(m.questions),
		}))
		m.armDeadlineLocked()
	}
	return slot.ch, nil
}

func (m *liveMatch) submitAnswer(playerID string, sub protocol.SubmitAnswer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ended {
		return domain.ErrMatchTerminal
	}
	slot, ok := m.players[playerID]
	if !ok {
		return domain.ErrNotParticipant
	}
	if !m.started || sub.QuestionIndex != m.current {
		return domain.ErrStaleQuestion
	}
	// Only the first answer per player per question counts.
	if slot.answered {
		return domain.ErrAlreadyAnswered
	}

	correct := false
	if sub.Answer != nil {
		expected := m.questions[m.current].CorrectAnswer
		if m.mode == domain.ModeText {
			correct = m.matcher.IsMatch(*sub.Answer, expected)
		} else {
			correct = *sub.Answer == expected
		}
	}

	timeLeft := m.duration - (sub.TimeMs+500)/1000
	if timeLeft < 0 {
		timeLeft = 0
	}
	points, streak := domain.Score(correct, timeLeft, slot.streak)
	slot.answered = true
	slot.correct = correct
	slot.score += points
	slot.streak = streak

	// The opponent only learns that an answer exists, not what it was.
	if peer := m.peerLocked(playerID); peer != nil && !peer.answered {
		m.sendLocked(peer, protocol.Envelope{Type: protocol.TypeOpponentAnswered})
	}

	if m.allAnsweredLocked() {
		m.resolveQuestionLocked()
	}
	return nil
}

// leave handles both voluntary departure and disconnects. Before completion
// the peer is told the opponent left and the match is cancelled.
func (m *liveMatch) leave(playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.players[playerID]
	if !ok {
		return
	}
	wasJoined := slot.joined
	slot.joined = false
	slot.ch = nil

	if m.ended || !wasJoined {
		return
	}
	m.gen++
	m.ended = true
	m.record.Status = domain.MatchCancelled
	m.saveLocked()
	if peer := m.peerLocked(playerID); peer != nil {
		m.sendLocked(peer, protocol.Envelope{Type: protocol.TypeOpponentLeft})
	}
}

// expireQuestion is the deadline path: any silent player is scored as
// incorrect with the full question duration on the clock.
func (m *liveMatch) expireQuestion(gen int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.ended {
		return
	}
	for _, slot := range m.players {
		if slot.answered {
			continue
		}
		slot.answered = true
		slot.correct = false
		_, slot.streak = domain.Score(false, 0, slot.streak)
	}
	m.resolveQuestionLocked()
}

func (m *liveMatch) resolveQuestionLocked() {
	m.gen++ // cancel the deadline timer

	results := make(map[string]protocol.PlayerResult, len(m.players))
	scores := make(map[string]int, len(m.players))
	for id, slot := range m.players {
		results[id] = protocol.PlayerResult{IsCorrect: slot.correct}
		scores[id] = slot.score
	}
	m.record.Scores = scores
	m.record.CurrentQuestionIndex = m.current
	m.saveLocked()

	m.broadcastLocked(protocol.MustEncode(protocol.TypeQuestionResults, protocol.QuestionResults{
		CorrectAnswer: m.questions[m.current].CorrectAnswer,
		Results:       results,
		Scores:        scores,
	}))

	if m.dwell <= 0 {
		m.advanceLocked()
		return
	}
	gen := m.gen
	time.AfterFunc(m.dwell, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if gen != m.gen || m.ended {
			return
		}
		m.advanceLocked()
	})
}

func (m *liveMatch) advanceLocked() {
	if m.current == len(m.questions)-1 {
		m.endLocked()
		return
	}
	m.current++
	for _, slot := range m.players {
		slot.answered = false
		slot.correct = false
	}
	m.broadcastLocked(protocol.MustEncode(protocol.TypeNextQuestion, protocol.NextQuestion{
		Question:      m.questions[m.current],
		QuestionIndex: m.current,
	}))
	m.armDeadlineLocked()
}

func (m *liveMatch) endLocked() {
	m.gen++
	m.ended = true

	scores := make(map[string]int, len(m.players))
	var winner *string
	best := -1
	tie := false
	for id, slot := range m.players {
		scores[id] = slot.score
		switch {
		case slot.score > best:
			id := id
			winner, best, tie = &id, slot.score, false
		case slot.score == best:
			winner, tie = nil, true
		}
	}

	m.record.Status = domain.MatchCompleted
	m.record.Scores = scores
	m.record.WinnerID = winner
	m.saveLocked()

	m.broadcastLocked(protocol.MustEncode(protocol.TypeMatchEnd, protocol.MatchEnd{
		WinnerID: winner,
		IsTie:    tie,
		Scores:   scores,
	}))
}

func (m *liveMatch) armDeadlineLocked() {
	m.gen++
	if m.manualTime {
		return
	}
	gen := m.gen
	deadline := time.Duration(m.duration)*time.Second + m.grace
	time.AfterFunc(deadline, func() { m.expireQuestion(gen) })
}

func (m *liveMatch) bothJoinedLocked() bool {
	for _, slot := range m.players {
		if !slot.joined {
			return false
		}
	}
	return true
}

func (m *liveMatch) allAnsweredLocked() bool {
	for _, slot := range m.players {
		if !slot.answered {
			return false
		}
	}
	return true
}

func (m *liveMatch) peerLocked(playerID string) *playerSlot {
	for id, slot := range m.players {
		if id != playerID && slot.joined {
			return slot
		}
	}
	return nil
}

func (m *liveMatch) sendLocked(slot *playerSlot, env protocol.Envelope) {
	if slot.ch == nil {
		return
	}
	select {
	case slot.ch <- env:
	default:
		// Drop the oldest frame rather than block the coordinator on a
		// slow reader.
		select {
		case <-slot.ch:
		default:
		}
		slot.ch <- env
	}
}

func (m *liveMatch) broadcastLocked(env protocol.Envelope) {
	for _, slot := range m.players {
		if slot.joined {
			m.sendLocked(slot, env)
		}
	}
}

func (m *liveMatch) saveLocked() {
	if m.store == nil {
		return
	}
	if err := m.store.Save(context.Background(), m.record); err != nil {
		log.Printf("match store save failed for %s: %v", m.record.ID, err)
	}
}

func (m *liveMatch) snapshot() domain.Match {
	m.mu.Lock()
	defer m.mu.Unlock()
	record := m.record
	record.Scores = make(map[string]int, len(m.players))
	for id, slot := range m.players {
		record.Scores[id] = slot.score
	}
	return record
}
