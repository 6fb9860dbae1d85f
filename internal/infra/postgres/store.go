package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"grandlucky-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const uniqueViolation = "23505"

// Store is the Postgres implementation of app.Store. The schema is owned by
// the migrations package.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool against url.
func Connect(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewStore(pool), nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) QueryQuestions(ctx context.Context, lang string, activeOnly bool) ([]domain.Question, error) {
	query := `SELECT id, lang, topic, prompt, choices, correct_index, is_active FROM questions WHERE lang = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, lang)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.Lang, &q.Topic, &q.Prompt, &q.Choices, &q.CorrectIndex, &q.IsActive); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) FindSubmission(ctx context.Context, roundID, username string) (domain.Submission, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, round_id, username, correct_count, total_time_ms, answers::text, created_at
		FROM submissions WHERE round_id = $1 AND username = $2`, roundID, username)
	sub, err := scanSubmission(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("find submission: %w", err)
	}
	return sub, nil
}

func (s *Store) QueryTieCandidates(ctx context.Context, roundID string, correctCount int, totalTimeMs int64) ([]domain.TieCandidate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, username FROM submissions
		WHERE round_id = $1 AND correct_count = $2 AND total_time_ms = $3
		ORDER BY username`, roundID, correctCount, totalTimeMs)
	if err != nil {
		return nil, fmt.Errorf("query tie candidates: %w", err)
	}
	defer rows.Close()

	var out []domain.TieCandidate
	for rows.Next() {
		var c domain.TieCandidate
		if err := rows.Scan(&c.ID, &c.Username); err != nil {
			return nil, fmt.Errorf("scan tie candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) InsertSubmission(ctx context.Context, row domain.SubmissionRow) (domain.Submission, error) {
	var answers *string
	if len(row.Answers) > 0 {
		raw := string(row.Answers)
		answers = &raw
	}

	sub := domain.Submission{
		ID:           uuid.NewString(),
		RoundID:      row.RoundID,
		Username:     row.Username,
		CorrectCount: row.CorrectCount,
		TotalTimeMs:  row.TotalTimeMs,
		Answers:      row.Answers,
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO submissions (id, round_id, username, correct_count, total_time_ms, answers)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
		RETURNING created_at`,
		sub.ID, sub.RoundID, sub.Username, sub.CorrectCount, sub.TotalTimeMs, answers,
	).Scan(&sub.CreatedAt)
	if isUniqueViolation(err) {
		return domain.Submission{}, domain.ErrDuplicateSubmission
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	sub.CreatedAt = sub.CreatedAt.UTC()
	return sub, nil
}

func (s *Store) ListSubmissions(ctx context.Context, roundID string) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, round_id, username, correct_count, total_time_ms, answers::text, created_at
		FROM submissions WHERE round_id = $1`, roundID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *Store) CurrentRound(ctx context.Context, lang string, now time.Time) (domain.Round, error) {
	var (
		r               domain.Round
		start, deadline *time.Time
		status          string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, lang, category, start_at, deadline_at, is_active, status
		FROM rounds
		WHERE lang = $1 AND is_active AND status = 'open'
		  AND (start_at IS NULL OR start_at <= $2)
		  AND (deadline_at IS NULL OR deadline_at > $2)
		ORDER BY start_at DESC NULLS LAST
		LIMIT 1`, lang, now).Scan(&r.ID, &r.Lang, &r.Category, &start, &deadline, &r.IsActive, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Round{}, domain.ErrRoundNotFound
	}
	if err != nil {
		return domain.Round{}, fmt.Errorf("current round: %w", err)
	}
	if start != nil {
		r.StartAt = start.UTC()
	}
	if deadline != nil {
		r.DeadlineAt = deadline.UTC()
	}
	r.Status = domain.RoundStatus(status)
	return r, nil
}

func (s *Store) UpsertRound(ctx context.Context, r domain.Round) error {
	status := r.Status
	if status == "" {
		status = domain.RoundOpen
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rounds (id, lang, category, start_at, deadline_at, is_active, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			lang = EXCLUDED.lang,
			category = EXCLUDED.category,
			start_at = EXCLUDED.start_at,
			deadline_at = EXCLUDED.deadline_at,
			is_active = EXCLUDED.is_active,
			status = EXCLUDED.status`,
		r.ID, r.Lang, r.Category, nullableTime(r.StartAt), nullableTime(r.DeadlineAt), r.IsActive, string(status))
	if err != nil {
		return fmt.Errorf("upsert round: %w", err)
	}
	return nil
}

func (s *Store) UpsertQuestions(ctx context.Context, questions []domain.Question) error {
	batch := &pgx.Batch{}
	for _, q := range questions {
		batch.Queue(`
			INSERT INTO questions (id, lang, topic, prompt, choices, correct_index, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				lang = EXCLUDED.lang,
				topic = EXCLUDED.topic,
				prompt = EXCLUDED.prompt,
				choices = EXCLUDED.choices,
				correct_index = EXCLUDED.correct_index,
				is_active = EXCLUDED.is_active`,
			q.ID, q.Lang, q.Topic, q.Prompt, q.Choices, q.CorrectIndex, q.IsActive)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for _, q := range questions {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert question %s: %w", q.ID, err)
		}
	}
	return nil
}

func scanSubmission(row pgx.Row) (domain.Submission, error) {
	var (
		sub     domain.Submission
		answers *string
	)
	if err := row.Scan(&sub.ID, &sub.RoundID, &sub.Username, &sub.CorrectCount, &sub.TotalTimeMs, &answers, &sub.CreatedAt); err != nil {
		return domain.Submission{}, err
	}
	if answers != nil {
		sub.Answers = []byte(*answers)
	}
	sub.CreatedAt = sub.CreatedAt.UTC()
	return sub, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
