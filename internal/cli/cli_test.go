package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"grandlucky-quiz-service/internal/app"
	"grandlucky-quiz-service/internal/domain"
	"grandlucky-quiz-service/internal/infra/memory"
)

func TestParseContent(t *testing.T) {
	raw := []byte(`
rounds:
  - id: r-2026-10-18
    lang: hu
    category: travel
    startAt: 2026-10-18T00:00:00Z
    deadlineAt: 2026-10-19T00:00:00Z
    isActive: true
questions:
  - id: q1
    lang: hu
    topic: geography
    prompt: Melyik város Ausztria fővárosa?
    choices: [Bécs, Prága, Pozsony]
    correctIndex: "0"
  - id: q2
    lang: hu
    prompt: Hány méter magas a Kékes?
    choices: '"[\"1014\",\"1015\"]"'
    correctIndex: "1"
    isActive: false
`)
	rounds, questions, err := parseContent(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rounds) != 1 || rounds[0].Status != domain.RoundOpen || rounds[0].StartAt.Day() != 18 {
		t.Fatalf("unexpected rounds: %+v", rounds)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if questions[0].Choices != `["Bécs","Prága","Pozsony"]` || !questions[0].IsActive {
		t.Fatalf("unexpected first question: %+v", questions[0])
	}
	if questions[1].Choices != `"[\"1014\",\"1015\"]"` || questions[1].IsActive {
		t.Fatalf("expected raw choices and inactive flag kept, got %+v", questions[1])
	}

	pool, _ := app.Normalize(questions)
	if len(pool) != 1 || pool[0].CorrectValue != "Bécs" {
		t.Fatalf("expected imported list choices to normalize, got %+v", pool)
	}
}

func TestParseContentRequiresIDs(t *testing.T) {
	if _, _, err := parseContent([]byte("questions:\n  - prompt: x\n")); err == nil {
		t.Fatalf("expected error for question without id")
	}
}

func TestWritePreviewIsStable(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	if err := seedDemo(ctx, store, time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	selector := app.NewQuestionSelector(store, nil, app.DefaultSelectorConfig(), nil)
	opts := previewOptions{lang: "en", user: "alice", round: "demo-en-20261018", n: 4}

	var first, second bytes.Buffer
	if err := writePreview(ctx, &first, selector, opts); err != nil {
		t.Fatalf("preview: %v", err)
	}
	_ = writePreview(ctx, &second, selector, opts)
	if first.String() != second.String() {
		t.Fatalf("expected identical previews")
	}

	var questions []domain.PreparedQuestion
	if err := json.Unmarshal(first.Bytes(), &questions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(questions) != 4 {
		t.Fatalf("expected 4 questions, got %d", len(questions))
	}
}

func TestSeedDemoOpensTodaysRound(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	_ = seedDemo(ctx, store, now)

	round, err := store.CurrentRound(ctx, "hu", now)
	if err != nil {
		t.Fatalf("current round: %v", err)
	}
	if round.ID != "demo-hu-20261018" {
		t.Fatalf("unexpected round %s", round.ID)
	}
}

func TestServeReturnsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	server := &http.Server{Addr: ln.Addr().String(), Handler: http.NotFoundHandler()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	done := make(chan error, 1)
	go func() { done <- serve(context.Background(), server, make(chan os.Signal), logger) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected an error for a port already in use")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve kept waiting after the listener failed")
	}
}

func TestServeStopsOnSignal(t *testing.T) {
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stop := make(chan os.Signal, 1)
	stop <- syscall.SIGTERM

	if err := serve(context.Background(), server, stop, logger); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}
