package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"grandlucky-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// LeaderboardLoader builds a leaderboard from the backing store.
type LeaderboardLoader interface {
	LoadLeaderboard(ctx context.Context, roundID string) (domain.Leaderboard, error)
}

// LeaderboardRepository caches leaderboards in Redis as JSON and falls back to a loader on cache miss.
// Snapshots are stored as: SET leaderboard:{roundID} {json} EX ttl
type LeaderboardRepository struct {
	client *redis.Client
	loader LeaderboardLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewLeaderboardRepository(client *redis.Client, loader LeaderboardLoader, ttl time.Duration) *LeaderboardRepository {
	return &LeaderboardRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *LeaderboardRepository) GetLeaderboard(ctx context.Context, roundID string) (domain.Leaderboard, error) {
	if board, ok := r.cached(ctx, roundID); ok {
		return board, nil
	}

	result, err, _ := r.sf.Do(roundID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if board, ok := r.cached(ctx, roundID); ok {
			return board, nil
		}

		board, err := r.loader.LoadLeaderboard(ctx, roundID)
		if err != nil {
			return domain.Leaderboard{}, err
		}

		data, err := json.Marshal(board)
		if err == nil {
			if err := r.client.Set(ctx, key(roundID), data, r.ttlWithJitter()).Err(); err != nil {
				slog.Warn("leaderboard cache write failed", "round_id", roundID, "error", err)
			}
		}
		return board, nil
	})
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return result.(domain.Leaderboard), nil
}

// Invalidate drops the cached snapshot of a round.
func (r *LeaderboardRepository) Invalidate(ctx context.Context, roundID string) error {
	return r.client.Del(ctx, key(roundID)).Err()
}

// cached treats any Redis failure as a miss so the store stays authoritative.
func (r *LeaderboardRepository) cached(ctx context.Context, roundID string) (domain.Leaderboard, bool) {
	data, err := r.client.Get(ctx, key(roundID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("leaderboard cache read failed", "round_id", roundID, "error", err)
		}
		return domain.Leaderboard{}, false
	}
	var board domain.Leaderboard
	if err := json.Unmarshal(data, &board); err != nil {
		return domain.Leaderboard{}, false
	}
	return board, true
}

func key(roundID string) string {
	return "leaderboard:" + roundID
}

func (r *LeaderboardRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
