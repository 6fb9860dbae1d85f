package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"grandlucky-quiz-service/internal/app"
	"grandlucky-quiz-service/internal/domain"
	"grandlucky-quiz-service/internal/infra/memory"
)

func TestRankSubmissionsOrdering(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	subs := []domain.Submission{
		{Username: "slow", CorrectCount: 5, TotalTimeMs: 60000, CreatedAt: base},
		{Username: "fast", CorrectCount: 5, TotalTimeMs: 40000, CreatedAt: base.Add(time.Minute)},
		{Username: "fewer", CorrectCount: 4, TotalTimeMs: 10000, CreatedAt: base},
		{Username: "late-twin", CorrectCount: 5, TotalTimeMs: 40000, CreatedAt: base.Add(2 * time.Minute)},
	}

	lb := app.RankSubmissions("R", subs, 0, base)
	want := []string{"fast", "late-twin", "slow", "fewer"}
	if len(lb.Entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(lb.Entries))
	}
	for i, name := range want {
		if lb.Entries[i].Username != name || lb.Entries[i].Rank != i+1 {
			t.Fatalf("position %d: expected %s, got %+v", i, name, lb.Entries[i])
		}
	}

	limited := app.RankSubmissions("R", subs, 2, base)
	if len(limited.Entries) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(limited.Entries))
	}
}

func TestLeaderboardSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	service := newTestLeaderboardService(store)
	arbiter := newTestArbiter(store)

	_, _ = arbiter.Submit(ctx, domain.SubmissionInput{Username: "alice", RoundID: "R", CorrectCount: 3, TotalTimeMs: 30000})

	ch, cancel, err := service.Subscribe(ctx, "R")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	initial := <-ch
	if len(initial.Entries) != 1 {
		t.Fatalf("expected 1 entry initially, got %+v", initial.Entries)
	}

	_, _ = arbiter.Submit(ctx, domain.SubmissionInput{Username: "bob", RoundID: "R", CorrectCount: 5, TotalTimeMs: 20000})
	if err := service.Refresh(ctx, "R"); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	select {
	case update := <-ch:
		if len(update.Entries) != 2 || update.Entries[0].Username != "bob" {
			t.Fatalf("expected bob leading, got %+v", update.Entries)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for update")
	}
}

func TestLeaderboardRefreshWithoutViewers(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	service := newTestLeaderboardService(store)

	if err := service.Refresh(ctx, "R"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	lb, err := service.Get(ctx, "R")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if lb.RoundID != "R" || len(lb.Entries) != 0 {
		t.Fatalf("expected empty leaderboard for R, got %+v", lb)
	}
}

func TestLeaderboardCancelDropsHub(t *testing.T) {
	ctx := context.Background()
	hubs := memory.NewHubStore()
	store := memory.NewStore()
	service := app.NewLeaderboardService(hubs, memory.NewLeaderboardRepository(app.NewLeaderboardLoader(store, 10), time.Minute))

	_, cancel, err := service.Subscribe(ctx, "R")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, ok := hubs.Get("R"); !ok {
		t.Fatalf("expected hub while subscribed")
	}
	cancel()
	if _, ok := hubs.Get("R"); ok {
		t.Fatalf("expected hub removed after last viewer left")
	}
}

func TestLeaderboardViewerJoiningDuringChurnGetsUpdates(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	service := newTestLeaderboardService(store)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 100; j++ {
				_, cancel, err := service.Subscribe(ctx, "R")
				if err != nil {
					t.Errorf("churn subscribe: %v", err)
					return
				}
				cancel()
			}
		}()
	}

	close(start)
	ch, cancel, err := service.Subscribe(ctx, "R")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	wg.Wait()
	<-ch

	if _, err := newTestArbiter(store).Submit(ctx, domain.SubmissionInput{Username: "bob", RoundID: "R", CorrectCount: 4, TotalTimeMs: 20000}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := service.Refresh(ctx, "R"); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	select {
	case update := <-ch:
		if len(update.Entries) != 1 || update.Entries[0].Username != "bob" {
			t.Fatalf("expected bob on the board, got %+v", update.Entries)
		}
	case <-time.After(time.Second):
		t.Fatalf("viewer was detached from the live hub")
	}
}

func newTestLeaderboardService(store *memory.Store) *app.LeaderboardService {
	loader := app.NewLeaderboardLoader(store, 50)
	return app.NewLeaderboardService(memory.NewHubStore(), memory.NewLeaderboardRepository(loader, time.Minute))
}
