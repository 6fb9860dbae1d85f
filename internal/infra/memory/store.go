package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"grandlucky-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// Store keeps rounds, questions and submissions in process memory. It
// enforces the same (round, username) uniqueness as the SQL schemas and is
// used for tests and demo mode.
type Store struct {
	mu          sync.RWMutex
	now         func() time.Time
	rounds      map[string]domain.Round
	questions   []domain.Question
	submissions map[submissionKey]domain.Submission
}

type submissionKey struct {
	roundID  string
	username string
}

func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock allows deterministic CreatedAt values in tests.
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{
		now:         now,
		rounds:      make(map[string]domain.Round),
		submissions: make(map[submissionKey]domain.Submission),
	}
}

func (s *Store) QueryQuestions(_ context.Context, lang string, activeOnly bool) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Question
	for _, q := range s.questions {
		if q.Lang != lang {
			continue
		}
		if activeOnly && !q.IsActive {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *Store) FindSubmission(_ context.Context, roundID, username string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[submissionKey{roundID, username}]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return sub, nil
}

func (s *Store) QueryTieCandidates(_ context.Context, roundID string, correctCount int, totalTimeMs int64) ([]domain.TieCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.TieCandidate
	for key, sub := range s.submissions {
		if key.roundID == roundID && sub.CorrectCount == correctCount && sub.TotalTimeMs == totalTimeMs {
			out = append(out, domain.TieCandidate{ID: sub.ID, Username: sub.Username})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) InsertSubmission(_ context.Context, row domain.SubmissionRow) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := submissionKey{row.RoundID, row.Username}
	if _, exists := s.submissions[key]; exists {
		return domain.Submission{}, domain.ErrDuplicateSubmission
	}
	sub := domain.Submission{
		ID:           uuid.NewString(),
		RoundID:      row.RoundID,
		Username:     row.Username,
		CorrectCount: row.CorrectCount,
		TotalTimeMs:  row.TotalTimeMs,
		Answers:      row.Answers,
		CreatedAt:    s.now().UTC(),
	}
	s.submissions[key] = sub
	return sub, nil
}

func (s *Store) ListSubmissions(_ context.Context, roundID string) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Submission
	for key, sub := range s.submissions {
		if key.roundID == roundID {
			out = append(out, sub)
		}
	}
	return out, nil
}

// SubmissionCount is handy for asserting that no row was written.
func (s *Store) SubmissionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.submissions)
}

func (s *Store) CurrentRound(_ context.Context, lang string, now time.Time) (domain.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best domain.Round
	found := false
	for _, r := range s.rounds {
		if r.Lang != lang || !r.Accepting(now) {
			continue
		}
		if !found || r.StartAt.After(best.StartAt) {
			best, found = r, true
		}
	}
	if !found {
		return domain.Round{}, domain.ErrRoundNotFound
	}
	return best, nil
}

func (s *Store) UpsertRound(_ context.Context, round domain.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[round.ID] = round
	return nil
}

func (s *Store) UpsertQuestions(_ context.Context, questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range questions {
		replaced := false
		for i := range s.questions {
			if s.questions[i].ID == q.ID {
				s.questions[i] = q
				replaced = true
				break
			}
		}
		if !replaced {
			s.questions = append(s.questions, q)
		}
	}
	return nil
}

func (s *Store) Close() error { return nil }
