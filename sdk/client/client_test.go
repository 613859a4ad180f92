package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func TestNewClient(t *testing.T) {
	// Test with nil config
	client := NewClient(nil)
	if client.config.BaseURL != "http://localhost:8080" {
		t.Errorf("Expected default BaseURL, got %s", client.config.BaseURL)
	}
	if client.client != http.DefaultClient {
		t.Error("Expected default HTTP client")
	}

	// Test with custom config
	customConfig := &Config{
		BaseURL:    "http://example.com",
		Timeout:    5 * time.Second,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
	client = NewClient(customConfig)
	if client.config.BaseURL != "http://example.com" {
		t.Errorf("Expected custom BaseURL, got %s", client.config.BaseURL)
	}
	if client.client != customConfig.HTTPClient {
		t.Error("Expected custom HTTP client")
	}
}

func TestAddTeam(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if r.URL.Path != "/api/teams/add" {
			t.Errorf("Expected /api/teams/add path, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Expected bearer token, got %q", got)
		}
		if got := r.Header.Get(SocketIDHeader); got != "sock-1" {
			t.Errorf("Expected socket id header, got %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Expected json content type, got %q", got)
		}

		var req AddTeamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Team{ID: uuid.New(), Name: req.Name, Slug: "acme-co"})
	}))
	defer server.Close()

	client := NewClient(&Config{BaseURL: server.URL + "/", Token: "secret"})
	client.SetSocketID("sock-1")

	team, err := client.AddTeam(context.Background(), &AddTeamRequest{Name: "Acme Co"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if team.Name != "Acme Co" || team.Slug != "acme-co" {
		t.Errorf("Unexpected team %+v", team)
	}
}

func TestListDiscussions(t *testing.T) {
	topicID := uuid.New()
	var queries []map[string][]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/discussions/list" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get(SocketIDHeader) != "" {
			t.Error("Expected no socket id header")
		}
		queries = append(queries, r.URL.Query())
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":          true,
			"discussions": []Discussion{{ID: uuid.New(), TopicID: topicID, Name: "Plans"}},
			"totalCount":  7,
		})
	}))
	defer server.Close()

	client := NewClient(&Config{BaseURL: server.URL})

	page, err := client.ListDiscussions(context.Background(), &ListDiscussionsRequest{TopicID: topicID, Skip: 20, Limit: 10})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if page.TotalCount != 7 || len(page.Discussions) != 1 {
		t.Errorf("Unexpected page %+v", page)
	}

	pinned := 0
	_, err = client.ListDiscussions(context.Background(), &ListDiscussionsRequest{
		TopicID:               topicID,
		PinnedDiscussionCount: &pinned,
		InitialDiscussionSlug: "plans",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(queries) != 2 {
		t.Fatalf("Expected 2 requests, got %d", len(queries))
	}
	first, second := queries[0], queries[1]
	if first["skip"][0] != "20" || first["limit"][0] != "10" || first["topicId"][0] != topicID.String() {
		t.Errorf("Unexpected first query %v", first)
	}
	if _, ok := first["pinnedDiscussionCount"]; ok {
		t.Error("Expected pinnedDiscussionCount to be omitted when unset")
	}
	if second["pinnedDiscussionCount"][0] != "0" || second["initialDiscussionSlug"][0] != "plans" {
		t.Errorf("Unexpected second query %v", second)
	}

	if _, err := client.ListDiscussions(context.Background(), &ListDiscussionsRequest{}); err == nil {
		t.Error("Expected error for missing topic id")
	}
}

func TestAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/topics/delete":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"ok":false,"error":"permission denied"}`))
		case "/api/topics/list":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"ok":false,"error":"topic not found"}`))
		default:
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := NewClient(&Config{BaseURL: server.URL})

	err := client.DeleteTopic(context.Background(), uuid.New())
	if !IsPermissionDenied(err) {
		t.Fatalf("Expected permission denied, got %v", err)
	}
	if err.(*APIError).Message != "permission denied" {
		t.Errorf("Unexpected message %q", err.(*APIError).Message)
	}

	if _, err := client.ListTopics(context.Background(), uuid.New()); !IsNotFound(err) {
		t.Errorf("Expected not found, got %v", err)
	}

	_, err = client.Me(context.Background())
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Expected APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", apiErr.StatusCode)
	}
}

func TestDial(t *testing.T) {
	discussionID := uuid.New()
	postID := uuid.New()
	upgrader := websocket.Upgrader{}
	controls := make(chan controlMessage, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/realtime/ticket", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "ticket": "t-1"})
	})
	mux.HandleFunc("/api/realtime/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ticket") != "t-1" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer ws.Close()

		ws.WriteJSON(map[string]interface{}{"event": "connected", "data": map[string]string{"socketId": "sock-9"}})

		var msg controlMessage
		if err := ws.ReadJSON(&msg); err != nil {
			return
		}
		controls <- msg

		ws.WriteJSON(map[string]interface{}{
			"event": "postEvent",
			"data": Payload{
				Action:       ActionAdded,
				ID:           postID,
				DiscussionID: &discussionID,
				Post:         &Post{ID: postID, DiscussionID: discussionID, Content: "hi"},
			},
		})

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(&Config{BaseURL: server.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.Dial(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if stream.SocketID() != "sock-9" || client.SocketID() != "sock-9" {
		t.Errorf("Expected socket id sock-9, got %q / %q", stream.SocketID(), client.SocketID())
	}

	if err := stream.JoinDiscussion(discussionID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	select {
	case msg := <-controls:
		if msg.Event != "joinDiscussion" || msg.ID != discussionID {
			t.Errorf("Unexpected control message %+v", msg)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for control message")
	}

	select {
	case ev := <-stream.Events():
		if ev.Name != EventPost {
			t.Fatalf("Expected postEvent, got %s", ev.Name)
		}
		payload, err := ev.Payload()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if payload.Action != ActionAdded || payload.Post == nil || payload.Post.Content != "hi" {
			t.Errorf("Unexpected payload %+v", payload)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}

	stream.Close()
	for {
		select {
		case _, ok := <-stream.Events():
			if !ok {
				if client.SocketID() != "" {
					t.Errorf("Expected socket id to be cleared, got %q", client.SocketID())
				}
				if stream.Err() != nil {
					t.Errorf("Expected no stream error after Close, got %v", stream.Err())
				}
				return
			}
		case <-ctx.Done():
			t.Fatal("timed out waiting for stream to close")
		}
	}
}
