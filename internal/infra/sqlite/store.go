package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"grandlucky-quiz-service/internal/domain"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Store persists rounds, questions and submissions in an embedded SQLite file.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &Store{db: db, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS rounds (
			id TEXT PRIMARY KEY,
			lang TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			start_at_ms INTEGER NOT NULL DEFAULT 0,
			deadline_at_ms INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			status TEXT NOT NULL DEFAULT 'open'
		);`,
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			lang TEXT NOT NULL,
			topic TEXT NOT NULL DEFAULT '',
			prompt TEXT NOT NULL,
			choices TEXT NOT NULL,
			correct_index TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1
		);`,
		`CREATE TABLE IF NOT EXISTS submissions (
			id TEXT PRIMARY KEY,
			round_id TEXT NOT NULL,
			username TEXT NOT NULL,
			correct_count INTEGER NOT NULL,
			total_time_ms INTEGER NOT NULL,
			answers TEXT,
			created_at_ms INTEGER NOT NULL,
			UNIQUE (round_id, username)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_questions_lang ON questions(lang, is_active);`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_tie ON submissions(round_id, correct_count, total_time_ms);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) QueryQuestions(ctx context.Context, lang string, activeOnly bool) ([]domain.Question, error) {
	query := `SELECT id, lang, topic, prompt, choices, correct_index, is_active FROM questions WHERE lang = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, lang)
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
	row := s.db.QueryRowContext(ctx, `
		SELECT id, round_id, username, correct_count, total_time_ms, answers, created_at_ms
		FROM submissions WHERE round_id = ? AND username = ?`, roundID, username)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("find submission: %w", err)
	}
	return sub, nil
}

func (s *Store) QueryTieCandidates(ctx context.Context, roundID string, correctCount int, totalTimeMs int64) ([]domain.TieCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username FROM submissions
		WHERE round_id = ? AND correct_count = ? AND total_time_ms = ?
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
	sub := domain.Submission{
		ID:           uuid.NewString(),
		RoundID:      row.RoundID,
		Username:     row.Username,
		CorrectCount: row.CorrectCount,
		TotalTimeMs:  row.TotalTimeMs,
		Answers:      row.Answers,
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
	}
	var answers sql.NullString
	if len(row.Answers) > 0 {
		answers = sql.NullString{String: string(row.Answers), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (id, round_id, username, correct_count, total_time_ms, answers, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.RoundID, sub.Username, sub.CorrectCount, sub.TotalTimeMs, answers, sub.CreatedAt.UnixMilli())
	if isUniqueViolation(err) {
		return domain.Submission{}, domain.ErrDuplicateSubmission
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	return sub, nil
}

func (s *Store) ListSubmissions(ctx context.Context, roundID string) ([]domain.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, round_id, username, correct_count, total_time_ms, answers, created_at_ms
		FROM submissions WHERE round_id = ?`, roundID)
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
	ms := now.UnixMilli()
	row := s.db.QueryRowContext(ctx, `
		SELECT id, lang, category, start_at_ms, deadline_at_ms, is_active, status
		FROM rounds
		WHERE lang = ? AND is_active = 1 AND status = 'open'
		  AND (start_at_ms = 0 OR start_at_ms <= ?)
		  AND (deadline_at_ms = 0 OR deadline_at_ms > ?)
		ORDER BY start_at_ms DESC
		LIMIT 1`, lang, ms, ms)

	var (
		r                 domain.Round
		startMs, deadline int64
		status            string
	)
	err := row.Scan(&r.ID, &r.Lang, &r.Category, &startMs, &deadline, &r.IsActive, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Round{}, domain.ErrRoundNotFound
	}
	if err != nil {
		return domain.Round{}, fmt.Errorf("current round: %w", err)
	}
	r.StartAt = fromMillis(startMs)
	r.DeadlineAt = fromMillis(deadline)
	r.Status = domain.RoundStatus(status)
	return r, nil
}

func (s *Store) UpsertRound(ctx context.Context, r domain.Round) error {
	status := r.Status
	if status == "" {
		status = domain.RoundOpen
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rounds (id, lang, category, start_at_ms, deadline_at_ms, is_active, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			lang = excluded.lang,
			category = excluded.category,
			start_at_ms = excluded.start_at_ms,
			deadline_at_ms = excluded.deadline_at_ms,
			is_active = excluded.is_active,
			status = excluded.status`,
		r.ID, r.Lang, r.Category, toMillis(r.StartAt), toMillis(r.DeadlineAt), r.IsActive, string(status))
	if err != nil {
		return fmt.Errorf("upsert round: %w", err)
	}
	return nil
}

func (s *Store) UpsertQuestions(ctx context.Context, questions []domain.Question) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO questions (id, lang, topic, prompt, choices, correct_index, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			lang = excluded.lang,
			topic = excluded.topic,
			prompt = excluded.prompt,
			choices = excluded.choices,
			correct_index = excluded.correct_index,
			is_active = excluded.is_active`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, q := range questions {
		if _, err := stmt.ExecContext(ctx, q.ID, q.Lang, q.Topic, q.Prompt, q.Choices, q.CorrectIndex, q.IsActive); err != nil {
			return fmt.Errorf("upsert question %s: %w", q.ID, err)
		}
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (domain.Submission, error) {
	var (
		sub       domain.Submission
		answers   sql.NullString
		createdMs int64
	)
	if err := row.Scan(&sub.ID, &sub.RoundID, &sub.Username, &sub.CorrectCount, &sub.TotalTimeMs, &answers, &createdMs); err != nil {
		return domain.Submission{}, err
	}
	if answers.Valid {
		sub.Answers = []byte(answers.String)
	}
	sub.CreatedAt = time.UnixMilli(createdMs).UTC()
	return sub, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		code := serr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
