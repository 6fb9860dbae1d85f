package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"grandlucky-quiz-service/internal/app"
	"grandlucky-quiz-service/internal/domain"
	"grandlucky-quiz-service/internal/infra/postgres"
	pgmigrations "grandlucky-quiz-service/internal/infra/postgres/migrations"
	infraredis "grandlucky-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestContestEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	store := postgres.NewStore(pool)
	defer store.Close()

	if err := store.UpsertQuestions(ctx, []domain.Question{
		{ID: "q1", Lang: "hu", Topic: "geography", Prompt: "Melyik város Ausztria fővárosa?", Choices: `["Bécs","Prága","Pozsony"]`, CorrectIndex: "0", IsActive: true},
		{ID: "q2", Lang: "hu", Topic: "nature", Prompt: "Hány méter magas a Kékes?", Choices: `"[\"1014\",\"1015\",\"1016\"]"`, CorrectIndex: "1", IsActive: true},
	}); err != nil {
		t.Fatalf("seed questions: %v", err)
	}
	now := time.Now().UTC()
	if err := store.UpsertRound(ctx, domain.Round{ID: "R", Lang: "hu", StartAt: now.Add(-time.Hour), DeadlineAt: now.Add(time.Hour), IsActive: true, Status: domain.RoundOpen}); err != nil {
		t.Fatalf("seed round: %v", err)
	}
	round, err := store.CurrentRound(ctx, "hu", now)
	if err != nil || round.ID != "R" {
		t.Fatalf("expected round R, got %+v (%v)", round, err)
	}

	selector := app.NewQuestionSelector(store, nil, app.DefaultSelectorConfig(), nil)
	questions := selector.Select(ctx, app.SelectRequest{Lang: "hu", Username: "alice", RoundID: "R", Count: 5})
	if len(questions) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(questions))
	}

	arbiter := app.NewSubmissionArbiter(store, app.DefaultArbiterConfig(), nil)
	first, err := arbiter.Submit(ctx, domain.SubmissionInput{Username: "alice", RoundID: "R", CorrectCount: 5, TotalTimeMs: 42000})
	if err != nil || first.Status != domain.OutcomeFinalized {
		t.Fatalf("expected finalized, got %+v (%v)", first, err)
	}
	tie, err := arbiter.Submit(ctx, domain.SubmissionInput{Username: "bob", RoundID: "R", CorrectCount: 5, TotalTimeMs: 42000})
	if err != nil || tie.Status != domain.OutcomeTiePending {
		t.Fatalf("expected tie_pending, got %+v (%v)", tie, err)
	}
	penalized, err := arbiter.Submit(ctx, domain.SubmissionInput{Username: "bob", RoundID: "R", CorrectCount: 5, TotalTimeMs: 42000, TieDecision: domain.TieDecisionAddPenalty})
	if err != nil || penalized.Submission.TotalTimeMs != 47000 {
		t.Fatalf("expected 47000ms, got %+v (%v)", penalized, err)
	}

	if _, err := store.InsertSubmission(ctx, domain.SubmissionRow{RoundID: "R", Username: "alice", CorrectCount: 1, TotalTimeMs: 1}); !errors.Is(err, domain.ErrDuplicateSubmission) {
		t.Fatalf("expected unique violation mapped to duplicate, got %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	boards := infraredis.NewLeaderboardRepository(redisClient, app.NewLeaderboardLoader(store, 50), time.Minute)
	hubs := infraredis.NewHubStore(redisClient, time.Minute)
	leaderboards := app.NewLeaderboardService(hubs, boards)

	lb, err := leaderboards.Get(ctx, "R")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Entries) != 2 || lb.Entries[0].Username != "alice" || lb.Entries[1].TotalTimeMs != 47000 {
		t.Fatalf("expected alice ahead of penalized bob, got %+v", lb.Entries)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
