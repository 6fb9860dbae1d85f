package app

import (
	"context"
	"fmt"
	"log/slog"

	"grandlucky-quiz-service/internal/domain"
	"grandlucky-quiz-service/internal/seeded"
)

// QuestionSource reads the live question pool for a language.
type QuestionSource interface {
	QueryQuestions(ctx context.Context, lang string, activeOnly bool) ([]domain.Question, error)
}

// SelectorConfig tunes seeding and defaults.
type SelectorConfig struct {
	// DefaultCount is used when a request asks for zero or fewer questions.
	DefaultCount int
	// PoolVersion and UserVersion are mixed into the seeds; bumping one
	// reshuffles every quiz without touching the data.
	PoolVersion int
	UserVersion int
}

// DefaultSelectorConfig matches the deployed seeding scheme.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{DefaultCount: 5, PoolVersion: 6, UserVersion: 6}
}

// SelectRequest identifies one user's draw.
type SelectRequest struct {
	Lang     string
	Username string
	RoundID  string
	Salt     string
	Count    int
}

// QuestionSelector builds personalized, reproducible question sets.
type QuestionSelector struct {
	source QuestionSource
	bank   FallbackBank
	cfg    SelectorConfig
	logger *slog.Logger
}

func NewQuestionSelector(source QuestionSource, bank FallbackBank, cfg SelectorConfig, logger *slog.Logger) *QuestionSelector {
	if bank == nil {
		bank = DefaultFallbackBank()
	}
	if cfg.DefaultCount <= 0 {
		cfg.DefaultCount = DefaultSelectorConfig().DefaultCount
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QuestionSelector{source: source, bank: bank, cfg: cfg, logger: logger}
}

// Select returns up to req.Count prepared questions. It never fails: store
// errors degrade to the fallback bank.
func (s *QuestionSelector) Select(ctx context.Context, req SelectRequest) []domain.PreparedQuestion {
	n := s.count(req)
	return s.prepare(req, s.candidatePool(ctx, req.Lang, n), func(ordered []domain.PoolQuestion, g *seeded.Generator) []domain.PoolQuestion {
		return seeded.Sample(ordered, n, g)
	})
}

// SelectBalanced is Select with topic round-robin so that no single topic
// dominates a short quiz.
func (s *QuestionSelector) SelectBalanced(ctx context.Context, req SelectRequest) []domain.PreparedQuestion {
	n := s.count(req)
	return s.prepare(req, s.candidatePool(ctx, req.Lang, n), func(ordered []domain.PoolQuestion, g *seeded.Generator) []domain.PoolQuestion {
		return balancedPick(ordered, n, g)
	})
}

func (s *QuestionSelector) count(req SelectRequest) int {
	if req.Count <= 0 {
		return s.cfg.DefaultCount
	}
	return req.Count
}

// candidatePool merges the live pool with the fallback bank when the live
// pool is thinner than max(2n, 8).
func (s *QuestionSelector) candidatePool(ctx context.Context, lang string, n int) []domain.PoolQuestion {
	live := s.livePool(ctx, lang)

	floor := 2 * n
	if floor < 8 {
		floor = 8
	}
	pool := live
	if len(live) < floor {
		s.logger.Debug("augmenting question pool with fallback bank", "lang", lang, "live", len(live), "floor", floor)
		pool = append(append([]domain.PoolQuestion(nil), live...), s.bank.For(lang)...)
	}
	if len(pool) == 0 {
		pool = s.bank.For(lang)
	}
	return DedupeByPrompt(pool)
}

func (s *QuestionSelector) livePool(ctx context.Context, lang string) []domain.PoolQuestion {
	if s.source == nil {
		return nil
	}
	raw, err := s.source.QueryQuestions(ctx, lang, true)
	if err != nil {
		s.logger.Warn("active question query failed, using fallback", "lang", lang, "error", err)
		return nil
	}
	if len(raw) == 0 {
		raw, err = s.source.QueryQuestions(ctx, lang, false)
		if err != nil {
			s.logger.Warn("question query failed, using fallback", "lang", lang, "error", err)
			return nil
		}
	}

	pool, report := Normalize(raw)
	for _, id := range report.OneBased {
		s.logger.Warn("question relies on 1-based correct index", "question_id", id, "lang", lang)
	}
	if report.Dropped > 0 {
		s.logger.Debug("dropped malformed questions", "lang", lang, "dropped", report.Dropped)
	}
	return pool
}

func (s *QuestionSelector) prepare(req SelectRequest, pool []domain.PoolQuestion, pick func([]domain.PoolQuestion, *seeded.Generator) []domain.PoolQuestion) []domain.PreparedQuestion {
	poolGen := seeded.FromString(fmt.Sprintf("%s|%s|pool-v%d|%s", req.RoundID, req.Lang, s.cfg.PoolVersion, req.Salt))
	ordered := seeded.Shuffle(pool, poolGen)

	userGen := seeded.FromString(fmt.Sprintf("%s|%s|%s|user-v%d|%s", req.Username, req.RoundID, req.Lang, s.cfg.UserVersion, req.Salt))
	picked := pick(ordered, userGen)

	out := make([]domain.PreparedQuestion, 0, len(picked))
	for _, q := range picked {
		out = append(out, prepareQuestion(q, userGen))
	}
	return out
}

// prepareQuestion draws two distractors and shuffles them with the correct
// value, continuing the caller's stream.
func prepareQuestion(q domain.PoolQuestion, g *seeded.Generator) domain.PreparedQuestion {
	distractors := seeded.Sample(q.WrongPool, 2, g)
	choices := seeded.Shuffle(append([]string{q.CorrectValue}, distractors...), g)

	correct := 0
	for i, c := range choices {
		if sameValue(c, q.CorrectValue) {
			correct = i
			break
		}
	}
	return domain.PreparedQuestion{
		ID:           q.ID,
		Lang:         q.Lang,
		Prompt:       q.Prompt,
		Choices:      choices,
		CorrectIndex: correct,
	}
}
