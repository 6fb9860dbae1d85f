package cli

import (
	"context"
	"log/slog"
	"time"

	"grandlucky-quiz-service/internal/app"
	"grandlucky-quiz-service/internal/config"
	"grandlucky-quiz-service/internal/domain"
	"grandlucky-quiz-service/internal/infra/memory"
	"grandlucky-quiz-service/internal/infra/postgres"
	"grandlucky-quiz-service/internal/infra/sqlite"
)

// openStore picks the backing store: Postgres, then SQLite, then an
// in-memory demo store seeded with a sample round.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (app.Store, error) {
	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, err
		}
		logger.Info("using postgres store")
		return postgres.Connect(ctx, cfg.Postgres.URL)
	case cfg.SQLite.Path != "":
		logger.Info("using sqlite store", "path", cfg.SQLite.Path)
		return sqlite.Open(ctx, cfg.SQLite.Path)
	default:
		logger.Warn("no database configured, using in-memory demo store")
		store := memory.NewStore()
		if err := seedDemo(ctx, store, time.Now()); err != nil {
			return nil, err
		}
		return store, nil
	}
}

// seedDemo provides a minimal open round and a few live questions; the
// fallback bank covers the rest.
func seedDemo(ctx context.Context, store app.ContentWriter, now time.Time) error {
	day := now.UTC().Truncate(24 * time.Hour)
	for _, lang := range []string{"hu", "en"} {
		err := store.UpsertRound(ctx, domain.Round{
			ID:         "demo-" + lang + "-" + day.Format("20060102"),
			Lang:       lang,
			Category:   "travel",
			StartAt:    day,
			DeadlineAt: day.Add(24 * time.Hour),
			IsActive:   true,
			Status:     domain.RoundOpen,
		})
		if err != nil {
			return err
		}
	}
	return store.UpsertQuestions(ctx, []domain.Question{
		{ID: "demo-hu-1", Lang: "hu", Topic: "geography", Prompt: "Melyik ország fővárosa Lisszabon?", Choices: `["Portugália","Spanyolország","Olaszország"]`, CorrectIndex: "0", IsActive: true},
		{ID: "demo-hu-2", Lang: "hu", Topic: "culture", Prompt: "Melyik városban áll a Sagrada Família?", Choices: `["Madrid","Barcelona","Valencia","Sevilla"]`, CorrectIndex: "2", IsActive: true},
		{ID: "demo-en-1", Lang: "en", Topic: "geography", Prompt: "Which river flows through Vienna?", Choices: `["Danube","Rhine","Elbe"]`, CorrectIndex: "0", IsActive: true},
		{ID: "demo-en-2", Lang: "en", Topic: "culture", Prompt: "Which city hosts the Uffizi Gallery?", Choices: `["Rome","Florence","Venice"]`, CorrectIndex: "1", IsActive: true},
	})
}
