package redis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"grandlucky-quiz-service/internal/app"
	"grandlucky-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// HubStore tracks live round hubs for one instance and mirrors them into
// Redis as liveness markers (`leaderboard:hub:{roundId}`) that other
// instances and ops tooling can read. Fan-out itself stays in process.
type HubStore struct {
	client *redis.Client
	ttl    time.Duration

	mu   sync.Mutex
	hubs map[string]*app.Hub
}

func NewHubStore(client *redis.Client, ttl time.Duration) *HubStore {
	return &HubStore{
		client: client,
		ttl:    ttl,
		hubs:   make(map[string]*app.Hub),
	}
}

// Subscribe joins the round under mu. Every join refreshes the marker TTL so
// a long-lived round does not look idle to other instances.
func (s *HubStore) Subscribe(roundID string, initial domain.Leaderboard) (<-chan domain.Leaderboard, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hub, ok := s.hubs[roundID]
	if !ok {
		hub = app.NewHub(roundID)
		s.hubs[roundID] = hub
	}
	if err := s.client.Set(context.Background(), hubKey(roundID), "1", s.ttl).Err(); err != nil {
		slog.Warn("hub liveness marker not set", "round_id", roundID, "error", err)
	}
	ch, detach := hub.Subscribe(initial)

	var once sync.Once
	return ch, func() {
		once.Do(func() { s.leave(roundID, hub, detach) })
	}
}

func (s *HubStore) leave(roundID string, hub *app.Hub, detach func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	detach()
	if !hub.IsEmpty() || s.hubs[roundID] != hub {
		return
	}
	delete(s.hubs, roundID)
	if err := s.client.Del(context.Background(), hubKey(roundID)).Err(); err != nil {
		slog.Warn("hub liveness marker not cleared", "round_id", roundID, "error", err)
	}
}

func (s *HubStore) Get(roundID string) (*app.Hub, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hub, ok := s.hubs[roundID]
	return hub, ok
}

func hubKey(roundID string) string {
	return "leaderboard:hub:" + roundID
}
