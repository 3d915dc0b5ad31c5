package domain

import "errors"

var (
	// ErrEmptyBatch is returned when the question bank has no questions for a query.
	ErrEmptyBatch = errors.New("question batch is empty")
	// ErrMatchNotFound indicates the match ID is unknown or stale.
	ErrMatchNotFound = errors.New("match not found")
	// ErrSessionNotFound indicates an unknown solo session identifier.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNotParticipant is returned when a player acts on a match they are not part of.
	ErrNotParticipant = errors.New("player is not a match participant")
	// ErrMatchTerminal is returned on any mutation of a completed or cancelled match.
	ErrMatchTerminal = errors.New("match already ended")
	// ErrAlreadyAnswered indicates a second answer for the same question index.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrStaleQuestion indicates an answer for a question index that is not current.
	ErrStaleQuestion = errors.New("answer for a non-current question")
)
