package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"grandlucky-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// LeaderboardLoader builds a leaderboard from the backing store.
type LeaderboardLoader interface {
	LoadLeaderboard(ctx context.Context, roundID string) (domain.Leaderboard, error)
}

// LeaderboardRepository caches leaderboards with TTL to avoid repeated DB hits.
type LeaderboardRepository struct {
	loader LeaderboardLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.Mutex
	rnd   *rand.Rand
	cache map[string]cachedLeaderboard
}

type cachedLeaderboard struct {
	board     domain.Leaderboard
	expiresAt time.Time
}

func NewLeaderboardRepository(loader LeaderboardLoader, ttl time.Duration) *LeaderboardRepository {
	return &LeaderboardRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedLeaderboard),
	}
}

func (r *LeaderboardRepository) GetLeaderboard(ctx context.Context, roundID string) (domain.Leaderboard, error) {
	if board, ok := r.cached(roundID); ok {
		return board, nil
	}

	result, err, _ := r.sf.Do(roundID, func() (interface{}, error) {
		if board, ok := r.cached(roundID); ok {
			return board, nil
		}

		board, err := r.loader.LoadLeaderboard(ctx, roundID)
		if err != nil {
			return domain.Leaderboard{}, err
		}

		r.mu.Lock()
		r.cache[roundID] = cachedLeaderboard{
			board:     board,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return board, nil
	})
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return result.(domain.Leaderboard), nil
}

// Invalidate forgets the cached leaderboard of a round.
func (r *LeaderboardRepository) Invalidate(_ context.Context, roundID string) error {
	r.mu.Lock()
	delete(r.cache, roundID)
	r.mu.Unlock()
	return nil
}

func (r *LeaderboardRepository) cached(roundID string) (domain.Leaderboard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.cache[roundID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Leaderboard{}, false
	}
	return entry.board, true
}

func (r *LeaderboardRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
