// Package protocol defines the message vocabulary exchanged between match
// clients and the coordinator over the realtime channel.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/smuotoe/GeoElevate-sub000/internal/domain"
)

// MessageType discriminates envelope payloads.
type MessageType string

// Client -> coordinator.
const (
	TypeJoinMatch    MessageType = "join_match"
	TypeSubmitAnswer MessageType = "submit_answer"
	TypeLeaveMatch   MessageType = "leave_match"
)

// Coordinator -> client.
const (
	TypeMatchJoined        MessageType = "match_joined"
	TypeWaitingForOpponent MessageType = "waiting_for_opponent"
	TypeMatchStart         MessageType = "match_start"
	TypeOpponentAnswered   MessageType = "opponent_answered"
	TypeQuestionResults    MessageType = "question_results"
	TypeNextQuestion       MessageType = "next_question"
	TypeMatchEnd           MessageType = "match_end"
	TypeOpponentLeft       MessageType = "opponent_left"
	TypeError              MessageType = "error"
)

// Envelope is the wire frame carrying every message.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinMatch struct {
	MatchID string `json:"matchId"`
}

// SubmitAnswer records one answer. A nil Answer signals a timeout-triggered
// auto-submit.
type SubmitAnswer struct {
	MatchID       string  `json:"matchId"`
	QuestionIndex int     `json:"questionIndex"`
	Answer        *string `json:"answer"`
	TimeMs        int     `json:"timeMs"`
}

type LeaveMatch struct {
	MatchID string `json:"matchId"`
}

type MatchJoined struct {
	TotalQuestions int `json:"totalQuestions"`
}

type MatchStart struct {
	Question       domain.Question `json:"question"`
	QuestionIndex  int             `json:"questionIndex"`
	TotalQuestions int             `json:"totalQuestions"`
}

// PlayerResult hides the opponent's actual answer; only correctness crosses
// the wire.
type PlayerResult struct {
	IsCorrect bool `json:"isCorrect"`
}

type QuestionResults struct {
	CorrectAnswer string                  `json:"correctAnswer"`
	Results       map[string]PlayerResult `json:"results"`
	Scores        map[string]int          `json:"scores"`
}

type NextQuestion struct {
	Question      domain.Question `json:"question"`
	QuestionIndex int             `json:"questionIndex"`
}

type MatchEnd struct {
	WinnerID *string        `json:"winnerId"`
	IsTie    bool           `json:"isTie"`
	Scores   map[string]int `json:"scores"`
}

type Error struct {
	Message string `json:"message"`
}

// Encode wraps a payload in an Envelope.
func Encode(msgType MessageType, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Type: msgType}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", msgType, err)
	}
	return Envelope{Type: msgType, Payload: raw}, nil
}

// MustEncode is Encode for payload structs that cannot fail to marshal.
func MustEncode(msgType MessageType, payload any) Envelope {
	env, err := Encode(msgType, payload)
	if err != nil {
		panic(err)
	}
	return env
}

// DecodePayload unmarshals an envelope payload into dst.
func DecodePayload(env Envelope, dst any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("decode %s: empty payload", env.Type)
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return nil
}
