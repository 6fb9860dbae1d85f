package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grandlucky-quiz-service/internal/app"
	"grandlucky-quiz-service/internal/config"
	"grandlucky-quiz-service/internal/infra/memory"
	infraredis "grandlucky-quiz-service/internal/infra/redis"
	"grandlucky-quiz-service/internal/logging"
	transport "grandlucky-quiz-service/internal/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := loggerFor(cfg)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	selector := app.NewQuestionSelector(store, app.DefaultFallbackBank(), selectorConfig(cfg), logger)
	arbiter := app.NewSubmissionArbiter(store, app.ArbiterConfig{
		PerfectScore: cfg.Quiz.PerfectScore,
		TiePenalty:   cfg.Quiz.TiePenaltyDuration(),
	}, logger)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	loader := app.NewLeaderboardLoader(store, cfg.Quiz.LeaderboardLimit)
	boardTTL := cfg.Quiz.LeaderboardTTLDuration()
	var boards app.LeaderboardRepository
	var hubs app.HubRepository
	if redisClient != nil {
		boards = infraredis.NewLeaderboardRepository(redisClient, loader, boardTTL)
		hubs = infraredis.NewHubStore(redisClient, redisTTL)
	} else {
		boards = memory.NewLeaderboardRepository(loader, boardTTL)
		hubs = memory.NewHubStore()
	}
	leaderboards := app.NewLeaderboardService(hubs, boards)

	timeout := cfg.Quiz.StoreTimeoutDuration()
	handler := transport.NewHandler(selector, arbiter, leaderboards, store, timeout)
	wsHandler := transport.NewWSHandler(leaderboards, timeout)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(handler, wsHandler),
		ReadTimeout: 15 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	return serve(ctx, server, stop, logger)
}

// serve runs server until it fails, a signal arrives on stop, or ctx ends.
// A listen failure is returned instead of waiting for a signal.
func serve(ctx context.Context, server *http.Server, stop <-chan os.Signal, logger *slog.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting quiz service", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		logger.Error("failed to start server", "error", err)
		return fmt.Errorf("serve: %w", err)
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func selectorConfig(cfg config.Config) app.SelectorConfig {
	return app.SelectorConfig{
		DefaultCount: cfg.Quiz.QuestionCount,
		PoolVersion:  cfg.Quiz.PoolVersion,
		UserVersion:  cfg.Quiz.UserVersion,
	}
}

// loggerFor is shared by the one-shot subcommands.
func loggerFor(cfg config.Config) *slog.Logger {
	return logging.New(cfg.Log.Level, cfg.Log.Format)
}
