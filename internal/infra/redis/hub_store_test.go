package redis

import (
	"sync"
	"testing"
	"time"

	"grandlucky-quiz-service/internal/domain"
)

func TestHubStoreSetsAndClearsKeys(t *testing.T) {
	mr := runMiniredis(t)
	store := NewHubStore(newClient(mr), time.Minute)
	initial := domain.Leaderboard{RoundID: "round-1"}

	_, cancel := store.Subscribe("round-1", initial)
	if !mr.Exists("leaderboard:hub:round-1") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("leaderboard:hub:round-1"); ttl != time.Minute {
		t.Fatalf("expected marker ttl of a minute, got %v", ttl)
	}
	hub, _ := store.Get("round-1")
	_, cancelSecond := store.Subscribe("round-1", initial)
	if again, _ := store.Get("round-1"); again != hub {
		t.Fatalf("expected the same hub on second call")
	}

	cancel()
	if !mr.Exists("leaderboard:hub:round-1") {
		t.Fatalf("expected redis key kept while a viewer remains")
	}
	cancelSecond()
	if mr.Exists("leaderboard:hub:round-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("round-1"); ok {
		t.Fatalf("expected hub removed")
	}
}

func TestHubStoreConcurrentJoinAndLeave(t *testing.T) {
	mr := runMiniredis(t)
	store := NewHubStore(newClient(mr), time.Minute)
	initial := domain.Leaderboard{RoundID: "round-1"}

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 50; j++ {
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
	if !ok || hub.IsEmpty() {
		t.Fatalf("expected the remaining viewer's hub to stay registered")
	}
	if !mr.Exists("leaderboard:hub:round-1") {
		t.Fatalf("expected liveness marker while a viewer remains")
	}
}
