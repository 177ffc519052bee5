package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"

	"lms-service/internal/app"
	"lms-service/internal/domain"
	"lms-service/internal/infra/memory"
)

func TestWebSocketLeaderboardFeed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	service := app.NewLMSService(store, store, store, store, store)

	user, err := service.SignUp(ctx, "Alice", "Smith", "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	course, err := service.CreateCourse(ctx, domain.Course{
		Name:        "Go Basics",
		Description: "desc",
		Duration:    "4 weeks",
		Instructor:  "Ada",
	})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}

	wsHandler := NewWSHandler(service)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/leaderboard", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/leaderboard"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Initial snapshot arrives before any attempt exists.
	var initial outboundMessage
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if initial.Type != "leaderboard" || len(initial.Payload) != 0 {
		t.Fatalf("expected empty initial leaderboard, got %+v", initial)
	}

	if _, err := service.RecordAttempt(ctx, domain.UserRef{ID: user.ID}, course.ID, 7, 10); err != nil {
		t.Fatalf("record attempt: %v", err)
	}

	var update outboundMessage
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if len(update.Payload) != 1 || update.Payload[0].TotalScore != 7 {
		t.Fatalf("expected pushed refresh, got %+v", update)
	}
}
