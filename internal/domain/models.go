package domain

// InputMode selects how a player answers questions.
type InputMode string

const (
	ModeChoice InputMode = "choice"
	ModeText   InputMode = "text"
)

// Difficulty maps to a fixed per-question countdown.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// QuestionSeconds returns the countdown for one question at this tier.
func (d Difficulty) QuestionSeconds() int {
	switch d {
	case DifficultyEasy:
		return 20
	case DifficultyHard:
		return 10
	default:
		return 15
	}
}

// QuestionQuery is forwarded verbatim to the question-bank provider.
type QuestionQuery struct {
	GameType   string     `json:"gameType"`
	Count      int        `json:"count"`
	Difficulty Difficulty `json:"difficulty"`
	Region     string     `json:"region,omitempty"`
	Mode       InputMode  `json:"mode,omitempty"`
}

// CacheKey identifies a query for batch caching. Count is excluded: a cached
// batch is trimmed to the requested count on read.
func (q QuestionQuery) CacheKey() string {
	return q.GameType + ":" + string(q.Difficulty) + ":" + q.Region + ":" + string(q.Mode)
}

// Question is immutable once issued to a player for a given index.
type Question struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	ImageRef      string   `json:"imageRef,omitempty"`
	Options       []string `json:"options,omitempty"` // empty for free-text
	CorrectAnswer string   `json:"correctAnswer"`
}

// AnswerRecord captures one answer per question per player. A nil UserAnswer
// with IsCorrect=false signals a timeout. Never mutated after creation.
type AnswerRecord struct {
	QuestionIndex int     `json:"questionIndex"`
	UserAnswer    *string `json:"userAnswer"`
	CorrectAnswer string  `json:"correctAnswer"`
	IsCorrect     bool    `json:"isCorrect"`
	TimeMs        int     `json:"timeMs"`
}

// MatchStatus is the lifecycle of a multiplayer match.
type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchActive    MatchStatus = "active"
	MatchCancelled MatchStatus = "cancelled"
	MatchCompleted MatchStatus = "completed"
)

// Terminal reports whether the status accepts no further transitions.
func (s MatchStatus) Terminal() bool {
	return s == MatchCancelled || s == MatchCompleted
}

// Match is the registry record for one head-to-head contest.
type Match struct {
	ID                   string         `json:"id"`
	ChallengerID         string         `json:"challengerId"`
	OpponentID           string         `json:"opponentId"`
	GameType             string         `json:"gameType"`
	Status               MatchStatus    `json:"status"`
	Scores               map[string]int `json:"scores"`
	WinnerID             *string        `json:"winnerId"` // nil = tie or undecided
	CurrentQuestionIndex int            `json:"currentQuestionIndex"`
	TotalQuestions       int            `json:"totalQuestions"`
}

// SessionSummary is the finalized payload pushed to the session sink.
type SessionSummary struct {
	Score         int            `json:"score"`
	XPEarned      int            `json:"xpEarned"`
	CorrectCount  int            `json:"correctCount"`
	AverageTimeMs int            `json:"averageTimeMs"`
	Answers       []AnswerRecord `json:"answers"`
}
