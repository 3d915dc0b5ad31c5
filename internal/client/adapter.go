// Package client mirrors the coordinator's message stream into local state a
// UI can render: connection lifecycle, the current question, an advisory
// countdown, and the authoritative scores.
package client

import (
	"context"
	"errors"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/smuotoe/GeoElevate-sub000/internal/domain"
	"github.com/smuotoe/GeoElevate-sub000/internal/protocol"
)

// State is the adapter's shadow of the protocol stream.
type State string

const (
	StateConnecting State = "connecting"
	StateWaiting    State = "waiting"
	StatePlaying    State = "playing"
	StateFinished   State = "finished"
)

// ErrConnectionLost marks a channel failure after the join was acknowledged.
var ErrConnectionLost = errors.New("connection lost")

// ErrOpponentLeft marks a match abandoned because the other player went away.
var ErrOpponentLeft = errors.New("opponent left the match")

// Conn is the bidirectional channel the adapter runs on. *websocket.Conn
// satisfies it.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// Snapshot is an immutable view for rendering.
type Snapshot struct {
	State            State
	Question         domain.Question
	QuestionIndex    int
	TotalQuestions   int
	TimeLeftSeconds  int
	OpponentAnswered bool
	Scores           map[string]int
	WinnerID         *string
	IsTie            bool
	Err              error
}

// Adapter drives one player's side of a match. The local countdown is
// advisory: it only feeds the UI and triggers the auto-submit at zero;
// scores and question boundaries always come from inbound messages.
type Adapter struct {
	conn     Conn
	matchID  string
	playerID string
	duration int // per-question seconds

	mu               sync.Mutex
	state            State
	established      bool
	closed           bool
	question         domain.Question
	questionIndex    int
	totalQuestions   int
	timeLeft         int
	answered         bool
	opponentAnswered bool
	scores           map[string]int
	winnerID         *string
	isTie            bool
	err              error

	gen          int
	manualTick   bool
	tickInterval time.Duration
}

// New wraps an open channel. duration is the tier's per-question countdown.
func New(conn Conn, matchID, playerID string, duration int) *Adapter {
	return &Adapter{
		conn:         conn,
		matchID:      matchID,
		playerID:     playerID,
		duration:     duration,
		state:        StateConnecting,
		scores:       map[string]int{},
		tickInterval: time.Second,
	}
}

// Dial opens the realtime channel, carrying the bearer credential in the URL,
// and returns an adapter ready to Run.
func Dial(ctx context.Context, rawURL, token, matchID, playerID string, duration int) (*Adapter, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", token)
	q.Set("matchId", matchID)
	q.Set("playerId", playerID)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return New(conn, matchID, playerID, duration), nil
}

// Run sends join_match and consumes the inbound stream until the match ends
// or the channel drops. Channel errors before the join acknowledgement are
// swallowed: environment-driven reconnects during setup are not user-visible.
func (a *Adapter) Run(ctx context.Context) error {
	join := protocol.MustEncode(protocol.TypeJoinMatch, protocol.JoinMatch{MatchID: a.matchID})
	if err := a.conn.WriteJSON(join); err != nil {
		return a.channelError(err)
	}

	for {
		var env protocol.Envelope
		if err := a.conn.ReadJSON(&env); err != nil {
			return a.channelError(err)
		}
		if done := a.handle(env); done {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (a *Adapter) channelError(err error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gen++
	if a.closed || a.state == StateFinished {
		return nil
	}
	if !a.established {
		// Transient setup/teardown noise, not worth surfacing.
		return nil
	}
	a.state = StateFinished
	a.err = ErrConnectionLost
	log.Printf("match %s: %v: %v", a.matchID, ErrConnectionLost, err)
	return ErrConnectionLost
}

func (a *Adapter) handle(env protocol.Envelope) (done bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch env.Type {
	case protocol.TypeMatchJoined:
		var joined protocol.MatchJoined
		if err := protocol.DecodePayload(env, &joined); err != nil {
			return false
		}
		a.established = true
		a.totalQuestions = joined.TotalQuestions
		a.state = StateWaiting

	case protocol.TypeWaitingForOpponent:
		a.state = StateWaiting

	case protocol.TypeMatchStart:
		var start protocol.MatchStart
		if err := protocol.DecodePayload(env, &start); err != nil {
			return false
		}
		a.state = StatePlaying
		a.question = start.Question
		a.questionIndex = start.QuestionIndex
		a.totalQuestions = start.TotalQuestions
		a.beginQuestionLocked()

	case protocol.TypeOpponentAnswered:
		a.opponentAnswered = true

	case protocol.TypeQuestionResults:
		var results protocol.QuestionResults
		if err := protocol.DecodePayload(env, &results); err != nil {
			return false
		}
		a.gen++ // countdown stops; the server has spoken
		a.answered = true
		for id, score := range results.Scores {
			a.scores[id] = score
		}

	case protocol.TypeNextQuestion:
		var next protocol.NextQuestion
		if err := protocol.DecodePayload(env, &next); err != nil {
			return false
		}
		a.question = next.Question
		a.questionIndex = next.QuestionIndex
		a.beginQuestionLocked()

	case protocol.TypeMatchEnd:
		var end protocol.MatchEnd
		if err := protocol.DecodePayload(env, &end); err != nil {
			return false
		}
		a.gen++
		a.state = StateFinished
		a.winnerID = end.WinnerID
		a.isTie = end.IsTie
		for id, score := range end.Scores {
			a.scores[id] = score
		}
		return true

	case protocol.TypeOpponentLeft:
		a.gen++
		a.state = StateFinished
		a.err = ErrOpponentLeft
		return true

	case protocol.TypeError:
		var perr protocol.Error
		_ = protocol.DecodePayload(env, &perr)
		a.gen++
		a.state = StateFinished
		a.err = errors.New(perr.Message)
		return true
	}
	return false
}

func (a *Adapter) beginQuestionLocked() {
	a.answered = false
	a.opponentAnswered = false
	a.timeLeft = a.duration
	a.gen++
	if a.manualTick {
		return
	}
	gen := a.gen
	go func() {
		ticker := time.NewTicker(a.tickInterval)
		defer ticker.Stop()
		for range ticker.C {
			if !a.handleTick(gen) {
				return
			}
		}
	}()
}

// handleTick runs the advisory countdown. At zero it auto-submits a null
// answer; the coordinator is free to ignore it if the question is already
// resolved server-side.
func (a *Adapter) handleTick(gen int) bool {
	a.mu.Lock()
	if gen != a.gen || a.state != StatePlaying || a.answered {
		a.mu.Unlock()
		return false
	}
	if a.timeLeft > 0 {
		a.timeLeft--
	}
	if a.timeLeft > 0 {
		a.mu.Unlock()
		return true
	}
	a.answered = true
	a.gen++
	sub := protocol.SubmitAnswer{
		MatchID:       a.matchID,
		QuestionIndex: a.questionIndex,
		Answer:        nil,
		TimeMs:        a.duration * 1000,
	}
	a.mu.Unlock()
	a.send(protocol.TypeSubmitAnswer, sub)
	return false
}

// Submit sends the player's answer, fire-and-forget. The next state change
// always comes from a subsequent inbound message, never assumed locally.
func (a *Adapter) Submit(answer string) {
	a.mu.Lock()
	if a.state != StatePlaying || a.answered {
		a.mu.Unlock()
		return
	}
	a.answered = true
	a.gen++ // countdown stops once an answer is in
	sub := protocol.SubmitAnswer{
		MatchID:       a.matchID,
		QuestionIndex: a.questionIndex,
		Answer:        &answer,
		TimeMs:        (a.duration - a.timeLeft) * 1000,
	}
	a.mu.Unlock()
	a.send(protocol.TypeSubmitAnswer, sub)
}

func (a *Adapter) send(msgType protocol.MessageType, payload any) {
	env, err := protocol.Encode(msgType, payload)
	if err != nil {
		log.Printf("match %s: %v", a.matchID, err)
		return
	}
	if err := a.conn.WriteJSON(env); err != nil {
		log.Printf("match %s: send %s failed: %v", a.matchID, msgType, err)
	}
}

// Close tears the channel down: best-effort leave_match, then close. Safe on
// a connection that never fully established.
func (a *Adapter) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.gen++
	established := a.established
	a.mu.Unlock()

	if established {
		leave := protocol.MustEncode(protocol.TypeLeaveMatch, protocol.LeaveMatch{MatchID: a.matchID})
		_ = a.conn.WriteJSON(leave)
	}
	_ = a.conn.Close()
}

// Snapshot returns a copy of the current state.
func (a *Adapter) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	scores := make(map[string]int, len(a.scores))
	for id, score := range a.scores {
		scores[id] = score
	}
	return Snapshot{
		State:            a.state,
		Question:         a.question,
		QuestionIndex:    a.questionIndex,
		TotalQuestions:   a.totalQuestions,
		TimeLeftSeconds:  a.timeLeft,
		OpponentAnswered: a.opponentAnswered,
		Scores:           scores,
		WinnerID:         a.winnerID,
		IsTie:            a.isTie,
		Err:              a.err,
	}
}
