package client

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/smuotoe/GeoElevate-sub000/internal/domain"
	"github.com/smuotoe/GeoElevate-sub000/internal/protocol"
)

func TestInboundStreamDrivesState(t *testing.T) {
	conn := &scriptConn{}
	adapter := newTestAdapter(conn)

	adapter.handle(protocol.MustEncode(protocol.TypeMatchJoined, protocol.MatchJoined{TotalQuestions: 2}))
	snap := adapter.Snapshot()
	if snap.State != StateWaiting || snap.TotalQuestions != 2 {
		t.Fatalf("expected waiting with 2 questions, got %+v", snap)
	}

	adapter.handle(protocol.MustEncode(protocol.TypeMatchStart, protocol.MatchStart{
		Question:       question(),
		QuestionIndex:  0,
		TotalQuestions: 2,
	}))
	snap = adapter.Snapshot()
	if snap.State != StatePlaying || snap.QuestionIndex != 0 || snap.TimeLeftSeconds != 10 {
		t.Fatalf("expected playing at question 0 with full clock, got %+v", snap)
	}

	adapter.handle(protocol.Envelope{Type: protocol.TypeOpponentAnswered})
	if !adapter.Snapshot().OpponentAnswered {
		t.Fatalf("expected opponentAnswered flag")
	}

	adapter.handle(protocol.MustEncode(protocol.TypeQuestionResults, protocol.QuestionResults{
		CorrectAnswer: "Paris",
		Results:       map[string]protocol.PlayerResult{"me": {IsCorrect: true}, "them": {}},
		Scores:        map[string]int{"me": 180, "them": 0},
	}))
	if got := adapter.Snapshot().Scores["me"]; got != 180 {
		t.Fatalf("authoritative score not applied, got %d", got)
	}

	adapter.handle(protocol.MustEncode(protocol.TypeNextQuestion, protocol.NextQuestion{
		Question:      question(),
		QuestionIndex: 1,
	}))
	snap = adapter.Snapshot()
	if snap.QuestionIndex != 1 || snap.OpponentAnswered || snap.TimeLeftSeconds != 10 {
		t.Fatalf("next_question should reset per-question state, got %+v", snap)
	}

	winner := "me"
	done := adapter.handle(protocol.MustEncode(protocol.TypeMatchEnd, protocol.MatchEnd{
		WinnerID: &winner,
		Scores:   map[string]int{"me": 390, "them": 110},
	}))
	if !done {
		t.Fatalf("match_end should finish the stream")
	}
	snap = adapter.Snapshot()
	if snap.State != StateFinished || snap.WinnerID == nil || *snap.WinnerID != "me" {
		t.Fatalf("expected finished with winner, got %+v", snap)
	}
}

func TestAdvisoryCountdownAutoSubmitsNull(t *testing.T) {
	conn := &scriptConn{}
	adapter := newTestAdapter(conn)
	adapter.handle(protocol.MustEncode(protocol.TypeMatchJoined, protocol.MatchJoined{TotalQuestions: 1}))
	adapter.handle(protocol.MustEncode(protocol.TypeMatchStart, protocol.MatchStart{
		Question: question(), QuestionIndex: 0, TotalQuestions: 1,
	}))

	for i := 0; i < 12; i++ {
		tick(adapter)
	}

	subs := conn.sent(protocol.TypeSubmitAnswer)
	if len(subs) != 1 {
		t.Fatalf("expected exactly one auto-submit, got %d", len(subs))
	}
	var sub protocol.SubmitAnswer
	if err := protocol.DecodePayload(subs[0], &sub); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sub.Answer != nil || sub.TimeMs != 10000 || sub.QuestionIndex != 0 {
		t.Fatalf("auto-submit should carry a null answer and the full duration, got %+v", sub)
	}
}

func TestSubmitIsOncePerQuestion(t *testing.T) {
	conn := &scriptConn{}
	adapter := newTestAdapter(conn)
	adapter.handle(protocol.MustEncode(protocol.TypeMatchJoined, protocol.MatchJoined{TotalQuestions: 1}))
	adapter.handle(protocol.MustEncode(protocol.TypeMatchStart, protocol.MatchStart{
		Question: question(), QuestionIndex: 0, TotalQuestions: 1,
	}))

	tick(adapter)
	adapter.Submit("Paris")
	adapter.Submit("Lyon") // second answer for the same index must not go out

	subs := conn.sent(protocol.TypeSubmitAnswer)
	if len(subs) != 1 {
		t.Fatalf("expected one submission, got %d", len(subs))
	}
	var sub protocol.SubmitAnswer
	_ = protocol.DecodePayload(subs[0], &sub)
	if sub.Answer == nil || *sub.Answer != "Paris" || sub.TimeMs != 1000 {
		t.Fatalf("unexpected submission %+v", sub)
	}

	// No countdown left to fire a late auto-submit.
	for i := 0; i < 12; i++ {
		tick(adapter)
	}
	if got := len(conn.sent(protocol.TypeSubmitAnswer)); got != 1 {
		t.Fatalf("late ticks must not re-submit, got %d sends", got)
	}
}

func TestChannelErrorBeforeJoinAckIsSwallowed(t *testing.T) {
	conn := &scriptConn{readErr: errors.New("abnormal closure")}
	adapter := newTestAdapter(conn)

	if err := adapter.Run(context.Background()); err != nil {
		t.Fatalf("pre-ack channel errors are transient, got %v", err)
	}
	if snap := adapter.Snapshot(); snap.Err != nil {
		t.Fatalf("no user-visible error expected, got %v", snap.Err)
	}
}

func TestChannelErrorAfterJoinAckSurfaces(t *testing.T) {
	conn := &scriptConn{
		inbound: []protocol.Envelope{
			protocol.MustEncode(protocol.TypeMatchJoined, protocol.MatchJoined{TotalQuestions: 1}),
		},
		readErr: errors.New("broken pipe"),
	}
	adapter := newTestAdapter(conn)

	if err := adapter.Run(context.Background()); !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("expected connection-lost error, got %v", err)
	}
	snap := adapter.Snapshot()
	if snap.State != StateFinished || !errors.Is(snap.Err, ErrConnectionLost) {
		t.Fatalf("expected terminal connection-lost state, got %+v", snap)
	}
}

func TestCloseIsBestEffort(t *testing.T) {
	conn := &scriptConn{}
	adapter := newTestAdapter(conn)

	// Never established: no leave frame, no error.
	adapter.Close()
	if len(conn.sent(protocol.TypeLeaveMatch)) != 0 {
		t.Fatalf("must not send leave_match before establishment")
	}
	if !conn.isClosed() {
		t.Fatalf("expected closed channel")
	}

	conn2 := &scriptConn{}
	adapter2 := newTestAdapter(conn2)
	adapter2.handle(protocol.MustEncode(protocol.TypeMatchJoined, protocol.MatchJoined{TotalQuestions: 1}))
	adapter2.Close()
	adapter2.Close() // idempotent
	if got := len(conn2.sent(protocol.TypeLeaveMatch)); got != 1 {
		t.Fatalf("expected one leave_match, got %d", got)
	}
}

func TestOpponentLeftAbandonsMatch(t *testing.T) {
	adapter := newTestAdapter(&scriptConn{})
	adapter.handle(protocol.MustEncode(protocol.TypeMatchJoined, protocol.MatchJoined{TotalQuestions: 1}))

	if done := adapter.handle(protocol.Envelope{Type: protocol.TypeOpponentLeft}); !done {
		t.Fatalf("opponent_left should finish the stream")
	}
	snap := adapter.Snapshot()
	if snap.State != StateFinished || !errors.Is(snap.Err, ErrOpponentLeft) {
		t.Fatalf("expected abandoned match, got %+v", snap)
	}
}

func TestProtocolErrorSurfacesVerbatim(t *testing.T) {
	adapter := newTestAdapter(&scriptConn{})
	adapter.handle(protocol.MustEncode(protocol.TypeMatchJoined, protocol.MatchJoined{TotalQuestions: 1}))
	adapter.handle(protocol.MustEncode(protocol.TypeError, protocol.Error{Message: "stale matchId"}))

	snap := adapter.Snapshot()
	if snap.State != StateFinished || snap.Err == nil || snap.Err.Error() != "stale matchId" {
		t.Fatalf("expected verbatim protocol error, got %+v", snap)
	}
}

func newTestAdapter(conn *scriptConn) *Adapter {
	adapter := New(conn, "match-1", "me", 10)
	adapter.manualTick = true
	return adapter
}

func tick(a *Adapter) {
	a.mu.Lock()
	gen := a.gen
	a.mu.Unlock()
	a.handleTick(gen)
}

func question() domain.Question {
	return domain.Question{
		ID:            "q1",
		Prompt:        "What is the capital of France?",
		Options:       []string{"Paris", "Lyon"},
		CorrectAnswer: "Paris",
	}
}

type scriptConn struct {
	mu      sync.Mutex
	inbound []protocol.Envelope
	readErr error
	writes  []protocol.Envelope
	closed  bool
}

func (c *scriptConn) ReadJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbound) == 0 {
		if c.readErr != nil {
			return c.readErr
		}
		return errors.New("script exhausted")
	}
	env := c.inbound[0]
	c.inbound = c.inbound[1:]
	*(v.(*protocol.Envelope)) = env
	return nil
}

func (c *scriptConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, v.(protocol.Envelope))
	return nil
}

func (c *scriptConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *scriptConn) sent(msgType protocol.MessageType) []protocol.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []protocol.Envelope
	for _, env := range c.writes {
		if env.Type == msgType {
			out = append(out, env)
		}
	}
	return out
}

func (c *scriptConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
