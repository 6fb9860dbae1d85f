package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"grandlucky-quiz-service/internal/domain"
)

// HubRepository abstracts how live round hubs are tracked (in-memory, Redis, etc).
// Subscribe must attach the viewer and its cancel must detach it under the
// same registry lock that creates and drops hubs, so a joining viewer never
// lands on a hub that was just removed.
type HubRepository interface {
	Subscribe(roundID string, initial domain.Leaderboard) (<-chan domain.Leaderboard, func())
	Get(roundID string) (*Hub, bool)
}

// LeaderboardRepository loads leaderboards (from cache/backing store).
type LeaderboardRepository interface {
	GetLeaderboard(ctx context.Context, roundID string) (domain.Leaderboard, error)
	Invalidate(ctx context.Context, roundID string) error
}

// SubmissionLister lists finalized submissions of a round.
type SubmissionLister interface {
	ListSubmissions(ctx context.Context, roundID string) ([]domain.Submission, error)
}

// LeaderboardService serves ranked results and pushes updates to live viewers.
type LeaderboardService struct {
	hubs   HubRepository
	boards LeaderboardRepository
}

func NewLeaderboardService(hubs HubRepository, boards LeaderboardRepository) *LeaderboardService {
	return &LeaderboardService{hubs: hubs, boards: boards}
}

// Get returns the current leaderboard for a round.
func (s *LeaderboardService) Get(ctx context.Context, roundID string) (domain.Leaderboard, error) {
	return s.boards.GetLeaderboard(ctx, roundID)
}

// Subscribe returns a channel that receives leaderboard updates for a round.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *LeaderboardService) Subscribe(ctx context.Context, roundID string) (<-chan domain.Leaderboard, func(), error) {
	lb, err := s.boards.GetLeaderboard(ctx, roundID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.hubs.Subscribe(roundID, lb)
	return ch, cancel, nil
}

// Refresh drops the cached leaderboard and pushes a fresh one to viewers.
func (s *LeaderboardService) Refresh(ctx context.Context, roundID string) error {
	if err := s.boards.Invalidate(ctx, roundID); err != nil {
		return err
	}
	hub, ok := s.hubs.Get(roundID)
	if !ok {
		return nil
	}
	lb, err := s.boards.GetLeaderboard(ctx, roundID)
	if err != nil {
		return err
	}
	hub.publish(lb)
	return nil
}

// LeaderboardLoader builds leaderboards straight from the store.
type LeaderboardLoader struct {
	source SubmissionLister
	limit  int
	now    func() time.Time
}

func NewLeaderboardLoader(source SubmissionLister, limit int) *LeaderboardLoader {
	return NewLeaderboardLoaderWithClock(source, limit, time.Now)
}

// NewLeaderboardLoaderWithClock is test-only for deterministic timestamps.
func NewLeaderboardLoaderWithClock(source SubmissionLister, limit int, now func() time.Time) *LeaderboardLoader {
	return &LeaderboardLoader{source: source, limit: limit, now: now}
}

func (l *LeaderboardLoader) LoadLeaderboard(ctx context.Context, roundID string) (domain.Leaderboard, error) {
	subs, err := l.source.ListSubmissions(ctx, roundID)
	if err != nil {
		return domain.Leaderboard{}, &domain.StoreError{Op: "list submissions", Err: err}
	}
	return RankSubmissions(roundID, subs, l.limit, l.now()), nil
}

// RankSubmissions orders by correct answers, then time, then who finished
// first, then name. limit <= 0 keeps everything.
func RankSubmissions(roundID string, subs []domain.Submission, limit int, now time.Time) domain.Leaderboard {
	sorted := append([]domain.Submission(nil), subs...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.CorrectCount != b.CorrectCount {
			return a.CorrectCount > b.CorrectCount
		}
		if a.TotalTimeMs != b.TotalTimeMs {
			return a.TotalTimeMs < b.TotalTimeMs
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Username < b.Username
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	entries := make([]domain.LeaderboardEntry, 0, len(sorted))
	for i, sub := range sorted {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:         i + 1,
			Username:     sub.Username,
			CorrectCount: sub.CorrectCount,
			TotalTimeMs:  sub.TotalTimeMs,
			SubmittedAt:  sub.CreatedAt,
		})
	}
	return domain.Leaderboard{RoundID: roundID, Entries: entries, UpdatedAt: now}
}

// Hub fans leaderboard snapshots out to the live viewers of one round.
type Hub struct {
	roundID     string
	mu          sync.RWMutex
	latest      domain.Leaderboard
	subscribers map[chan domain.Leaderboard]struct{}
}

// NewHub is exported for infrastructure layers that track hubs.
func NewHub(roundID string) *Hub {
	return &Hub{
		roundID:     roundID,
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// IsEmpty reports whether the hub has no viewers.
func (h *Hub) IsEmpty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers) == 0
}

// Subscribe attaches a viewer and queues the newer of initial and the last
// published snapshot. The returned cancel is idempotent.
func (h *Hub) Subscribe(initial domain.Leaderboard) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	if h.latest.UpdatedAt.After(initial.UpdatedAt) {
		initial = h.latest
	} else {
		h.latest = initial
	}
	ch <- initial
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *Hub) publish(lb domain.Leaderboard) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = lb
	for ch := range h.subscribers {
		select {
		case ch <- lb:
		default:
			// Drop the stale snapshot so a slow viewer never blocks the round.
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}
