package domain

import (
	"encoding/json"
	"time"
)

// Question is a question row as it comes from the store. Choices and
// CorrectIndex keep whatever encoding upstream used; see app.Normalize.
type Question struct {
	ID           string `json:"id" yaml:"id"`
	Lang         string `json:"lang" yaml:"lang"`
	Topic        string `json:"topic,omitempty" yaml:"topic"`
	Prompt       string `json:"prompt" yaml:"prompt"`
	Choices      string `json:"choices" yaml:"choices"`
	CorrectIndex string `json:"correctIndex" yaml:"correctIndex"`
	IsActive     bool   `json:"isActive" yaml:"isActive"`
}

// PoolQuestion is a validated candidate: one correct value and at least two
// distinct wrong values. Fallback bank entries are authored in this shape.
type PoolQuestion struct {
	ID           string
	Lang         string
	Topic        string
	Prompt       string
	CorrectValue string
	WrongPool    []string
}

// PreparedQuestion is what a quiz client receives.
type PreparedQuestion struct {
	ID           string   `json:"id"`
	Lang         string   `json:"lang"`
	Prompt       string   `json:"prompt"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correctIndex"`
}

// RoundStatus is the lifecycle state of a contest round.
type RoundStatus string

const (
	RoundOpen   RoundStatus = "open"
	RoundClosed RoundStatus = "closed"
)

// Round scopes questions and submissions.
type Round struct {
	ID         string      `json:"id" yaml:"id"`
	Lang       string      `json:"lang" yaml:"lang"`
	Category   string      `json:"category" yaml:"category"`
	StartAt    time.Time   `json:"startAt" yaml:"startAt"`
	DeadlineAt time.Time   `json:"deadlineAt" yaml:"deadlineAt"`
	IsActive   bool        `json:"isActive" yaml:"isActive"`
	Status     RoundStatus `json:"status" yaml:"status"`
}

// Accepting reports whether the round takes answers at t.
func (r Round) Accepting(t time.Time) bool {
	if !r.IsActive || r.Status != RoundOpen {
		return false
	}
	if !r.StartAt.IsZero() && t.Before(r.StartAt) {
		return false
	}
	if !r.DeadlineAt.IsZero() && !t.Before(r.DeadlineAt) {
		return false
	}
	return true
}

// Submission is a finalized quiz result. At most one exists per (RoundID, Username).
type Submission struct {
	ID           string          `json:"id"`
	RoundID      string          `json:"roundId"`
	Username     string          `json:"username"`
	CorrectCount int             `json:"correctCount"`
	TotalTimeMs  int64           `json:"totalTimeMs"`
	Answers      json.RawMessage `json:"answers,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// SubmissionRow is the insert payload handed to a store.
type SubmissionRow struct {
	RoundID      string
	Username     string
	CorrectCount int
	TotalTimeMs  int64
	Answers      json.RawMessage
}

// TieDecision is the user's answer to a tie prompt.
type TieDecision string

const (
	// TieDecisionAddPenalty finalizes the attempt with a time penalty.
	TieDecisionAddPenalty TieDecision = "add_5s"
	// TieDecisionRetry notes the tie; the client re-draws with a salt and resubmits.
	TieDecisionRetry TieDecision = "retry"
)

// SubmissionInput is a finished quiz result as reported by the client.
type SubmissionInput struct {
	Username     string          `json:"username"`
	RoundID      string          `json:"roundId"`
	CorrectCount int             `json:"correctCount"`
	TotalTimeMs  int64           `json:"totalTimeMs"`
	Answers      json.RawMessage `json:"answers,omitempty"`
	TieDecision  TieDecision     `json:"tieDecision,omitempty"`
}

// TieCandidate identifies a finalized submission that collides with an incoming one.
type TieCandidate struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// OutcomeStatus is the terminal state of one submit request.
type OutcomeStatus string

const (
	OutcomeFinalized  OutcomeStatus = "finalized"
	OutcomeExisting   OutcomeStatus = "existing"
	OutcomeTiePending OutcomeStatus = "tie_pending"
)

// Outcome is the result of a submit request. Submission is set for finalized
// and existing outcomes; Echo carries the input back on tie_pending.
type Outcome struct {
	Status     OutcomeStatus    `json:"status"`
	Submission *Submission      `json:"submission,omitempty"`
	Echo       *SubmissionInput `json:"echo,omitempty"`
}

// LeaderboardEntry is one ranked row of a round.
type LeaderboardEntry struct {
	Rank         int       `json:"rank"`
	Username     string    `json:"username"`
	CorrectCount int       `json:"correctCount"`
	TotalTimeMs  int64     `json:"totalTimeMs"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

// Leaderboard captures the ordered scoreboard for a round.
type Leaderboard struct {
	RoundID   string             `json:"roundId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
