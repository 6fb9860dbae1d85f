package memory

import (
	"sync"

	"grandlucky-quiz-service/internal/app"
	"grandlucky-quiz-service/internal/domain"
)

// HubStore keeps live round hubs in process. Joining and leaving a round
// both run under mu, which is also the only place hubs are created and
// dropped.
type HubStore struct {
	mu   sync.Mutex
	hubs map[string]*app.Hub
}

func NewHubStore() *HubStore {
	return &HubStore{hubs: make(map[string]*app.Hub)}
}

// Subscribe attaches a viewer to the round's hub, creating the hub on first
// use. The returned cancel detaches the viewer and drops the hub once it is
// empty.
func (s *HubStore) Subscribe(roundID string, initial domain.Leaderboard) (<-chan domain.Leaderboard, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hub, ok := s.hubs[roundID]
	if !ok {
		hub = app.NewHub(roundID)
		s.hubs[roundID] = hub
	}
	ch, detach := hub.Subscribe(initial)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			detach()
			if hub.IsEmpty() && s.hubs[roundID] == hub {
				delete(s.hubs, roundID)
			}
		})
	}
}

func (s *HubStore) Get(roundID string) (*app.Hub, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hub, ok := s.hubs[roundID]
	return hub, ok
}
