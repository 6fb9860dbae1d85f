package app

import (
	"context"
	"time"

	"grandlucky-quiz-service/internal/domain"
)

// RoundStore finds the round a language is currently playing.
type RoundStore interface {
	CurrentRound(ctx context.Context, lang string, now time.Time) (domain.Round, error)
}

// ContentWriter loads contest content into a store.
type ContentWriter interface {
	UpsertRound(ctx context.Context, round domain.Round) error
	UpsertQuestions(ctx context.Context, questions []domain.Question) error
}

// Store is everything a backing database provides to the service.
type Store interface {
	QuestionSource
	SubmissionStore
	SubmissionLister
	RoundStore
	ContentWriter
	Close() error
}
