package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"grandlucky-quiz-service/internal/domain"
)

// SubmissionStore is the persistence contract the arbiter relies on.
// InsertSubmission must enforce uniqueness of (RoundID, Username) and report
// a violation as domain.ErrDuplicateSubmission.
type SubmissionStore interface {
	FindSubmission(ctx context.Context, roundID, username string) (domain.Submission, error)
	QueryTieCandidates(ctx context.Context, roundID string, correctCount int, totalTimeMs int64) ([]domain.TieCandidate, error)
	InsertSubmission(ctx context.Context, row domain.SubmissionRow) (domain.Submission, error)
}

// ArbiterConfig holds the contest rules.
type ArbiterConfig struct {
	PerfectScore int
	TiePenalty   time.Duration
}

func DefaultArbiterConfig() ArbiterConfig {
	return ArbiterConfig{PerfectScore: 5, TiePenalty: 5 * time.Second}
}

// SubmissionArbiter finalizes each user's result for a round exactly once.
type SubmissionArbiter struct {
	store  SubmissionStore
	cfg    ArbiterConfig
	logger *slog.Logger
}

func NewSubmissionArbiter(store SubmissionStore, cfg ArbiterConfig, logger *slog.Logger) *SubmissionArbiter {
	if cfg.PerfectScore <= 0 {
		cfg.PerfectScore = DefaultArbiterConfig().PerfectScore
	}
	if cfg.TiePenalty <= 0 {
		cfg.TiePenalty = DefaultArbiterConfig().TiePenalty
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionArbiter{store: store, cfg: cfg, logger: logger}
}

// Submit records a finished quiz. Validation failures return a
// *domain.ValidationError without touching the store; store failures return
// a *domain.StoreError.
func (a *SubmissionArbiter) Submit(ctx context.Context, in domain.SubmissionInput) (domain.Outcome, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.RoundID = strings.TrimSpace(in.RoundID)
	if err := validateSubmission(in); err != nil {
		return domain.Outcome{}, err
	}

	existing, found, err := a.find(ctx, in.RoundID, in.Username)
	if err != nil {
		return domain.Outcome{}, err
	}
	if found {
		return existingOutcome(existing), nil
	}

	if in.TieDecision == domain.TieDecisionAddPenalty {
		row := rowFromInput(in)
		row.TotalTimeMs += a.cfg.TiePenalty.Milliseconds()
		return a.insert(ctx, row)
	}

	if in.CorrectCount >= a.cfg.PerfectScore {
		candidates, err := a.store.QueryTieCandidates(ctx, in.RoundID, in.CorrectCount, in.TotalTimeMs)
		if err != nil {
			return domain.Outcome{}, &domain.StoreError{Op: "query tie candidates", Err: err}
		}
		for _, c := range candidates {
			if c.Username == in.Username {
				continue
			}
			a.logger.Info("submission tie detected", "round_id", in.RoundID, "username", in.Username, "other", c.Username, "total_time_ms", in.TotalTimeMs)
			echo := in
			return domain.Outcome{Status: domain.OutcomeTiePending, Echo: &echo}, nil
		}
	}

	return a.insert(ctx, rowFromInput(in))
}

func (a *SubmissionArbiter) find(ctx context.Context, roundID, username string) (domain.Submission, bool, error) {
	sub, err := a.store.FindSubmission(ctx, roundID, username)
	if errors.Is(err, domain.ErrSubmissionNotFound) {
		return domain.Submission{}, false, nil
	}
	if err != nil {
		return domain.Submission{}, false, &domain.StoreError{Op: "find submission", Err: err}
	}
	return sub, true, nil
}

// insert writes the final row. A uniqueness violation means a concurrent
// request won; its row is read back and returned.
func (a *SubmissionArbiter) insert(ctx context.Context, row domain.SubmissionRow) (domain.Outcome, error) {
	sub, err := a.store.InsertSubmission(ctx, row)
	if err == nil {
		a.logger.Info("submission finalized", "round_id", row.RoundID, "username", row.Username, "correct", row.CorrectCount, "total_time_ms", row.TotalTimeMs)
		return domain.Outcome{Status: domain.OutcomeFinalized, Submission: &sub}, nil
	}
	if !errors.Is(err, domain.ErrDuplicateSubmission) {
		return domain.Outcome{}, &domain.StoreError{Op: "insert submission", Err: err}
	}

	existing, found, ferr := a.find(ctx, row.RoundID, row.Username)
	if ferr != nil {
		return domain.Outcome{}, ferr
	}
	if !found {
		return domain.Outcome{}, &domain.StoreError{Op: "insert submission", Err: err}
	}
	return existingOutcome(existing), nil
}

func existingOutcome(sub domain.Submission) domain.Outcome {
	return domain.Outcome{Status: domain.OutcomeExisting, Submission: &sub}
}

func rowFromInput(in domain.SubmissionInput) domain.SubmissionRow {
	return domain.SubmissionRow{
		RoundID:      in.RoundID,
		Username:     in.Username,
		CorrectCount: in.CorrectCount,
		TotalTimeMs:  in.TotalTimeMs,
		Answers:      in.Answers,
	}
}

func validateSubmission(in domain.SubmissionInput) error {
	switch {
	case in.Username == "":
		return &domain.ValidationError{Field: "username", Reason: "required"}
	case in.RoundID == "":
		return &domain.ValidationError{Field: "roundId", Reason: "required"}
	case in.CorrectCount < 0:
		return &domain.ValidationError{Field: "correctCount", Reason: "must not be negative"}
	case in.TotalTimeMs <= 0:
		return &domain.ValidationError{Field: "totalTimeMs", Reason: "must be positive"}
	}
	switch in.TieDecision {
	case "", domain.TieDecisionAddPenalty, domain.TieDecisionRetry:
		return nil
	default:
		return &domain.ValidationError{Field: "tieDecision", Reason: "unsupported value " + string(in.TieDecision)}
	}
}
