package http

import (
	"testing"
	"time"

	"grandlucky-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

func TestWebSocketLeaderboardStream(t *testing.T) {
	server, _ := newTestServer(t)
	postSubmission(t, server.URL+"/api/rounds/R1/submissions", map[string]any{"username": "alice", "correctCount": 3, "totalTimeMs": 30000})

	u := "ws" + server.URL[len("http"):] + "/ws/rounds/R1/leaderboard"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect the current snapshot first.
	initial := readLeaderboard(t, conn)
	if len(initial.Entries) != 1 || initial.Entries[0].Username != "alice" {
		t.Fatalf("expected alice in initial snapshot, got %+v", initial.Entries)
	}

	postSubmission(t, server.URL+"/api/rounds/R1/submissions", map[string]any{"username": "bob", "correctCount": 5, "totalTimeMs": 20000})

	update := readLeaderboard(t, conn)
	if len(update.Entries) != 2 || update.Entries[0].Username != "bob" {
		t.Fatalf("expected bob leading after submit, got %+v", update.Entries)
	}
}

func readLeaderboard(t *testing.T, conn *websocket.Conn) domain.Leaderboard {
	t.Helper()
	var msg struct {
		Type    string             `json:"type"`
		Payload domain.Leaderboard `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != "leaderboard" {
		t.Fatalf("expected leaderboard message, got %s", msg.Type)
	}
	return msg.Payload
}
