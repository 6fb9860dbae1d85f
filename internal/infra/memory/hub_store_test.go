package memory

import (
	"sync"
	"testing"
	"time"

	"grandlucky-quiz-service/internal/domain"
)

func TestHubStoreLifecycle(t *testing.T) {
	store := NewHubStore()
	initial := domain.Leaderboard{RoundID: "round-1", UpdatedAt: time.Now()}

	ch, cancel := store.Subscribe("round-1", initial)
	if got := <-ch; got.RoundID != "round-1" {
		t.Fatalf("expected initial snapshot, got %+v", got)
	}
	hub, ok := store.Get("round-1")
	if !ok {
		t.Fatalf("expected hub present")
	}

	_, cancelSecond := store.Subscribe("round-1", initial)
	if again, _ := store.Get("round-1"); again != hub {
		t.Fatalf("expected the same hub for a second viewer")
	}

	cancel()
	cancel()
	if _, ok := store.Get("round-1"); !ok {
		t.Fatalf("expected hub kept while a viewer remains")
	}
	cancelSecond()
	if _, ok := store.Get("round-1"); ok {
		t.Fatalf("expected hub removed when empty")
	}
}

func TestHubStoreKeepsHubForViewerJoiningDuringChurn(t *testing.T) {
	store := NewHubStore()
	initial := domain.Leaderboard{RoundID: "round-1"}

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 200; j++ {
				_, cancel := store.Subscribe("round-1", initial)
				cancel()
			}
		}()
	}

	close(start)
	_, cancel := store.Subscribe("round-1", initial)
	defer cancel()
	wg.Wait()

	hub, ok := store.Get("round-1")
	if !ok {
		t.Fatalf("expected hub for the remaining viewer")
	}
	if hub.IsEmpty() {
		t.Fatalf("expected the registered hub to hold the remaining viewer")
	}
	if len(store.hubs) != 1 {
		t.Fatalf("expected one live round, got %d", len(store.hubs))
	}
}
