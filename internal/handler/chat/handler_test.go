package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	analysis "github.com/zhouzirui/heartnote/backend/internal/analysis/emotion"
	"github.com/zhouzirui/heartnote/backend/internal/config"
	"github.com/zhouzirui/heartnote/backend/internal/middleware"
	"github.com/zhouzirui/heartnote/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/heartnote/backend/internal/service/chat"
	"github.com/zhouzirui/heartnote/backend/internal/service/journey"
	"github.com/zhouzirui/heartnote/backend/internal/store"
)

type joyTagger struct{}

func (joyTagger) Tag(context.Context, []chat.Message, string) (analysis.Tag, bool) {
	return analysis.Tag{Label: analysis.Joy, Confidence: 0.9}, true
}

type echoReplier struct{}

func (echoReplier) Reply(_ context.Context, _ []chat.Message, userMessage string, _ *analysis.Tag) (string, error) {
	return "You said: " + userMessage, nil
}

func setupRouter(t *testing.T) (*chi.Mux, *store.Store) {
	t.Helper()
	st, err := store.Open(context.Background(), config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "chat-handler.db"),
	})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	engine := journey.NewEngine(st, journey.DefaultConfig())
	svc := chatservice.NewService(st, joyTagger{}, engine, echoReplier{})

	r := chi.NewRouter()
	r.Use(middleware.Identity)
	New(svc).RegisterRoutes(r)
	return r, st
}

func do(t *testing.T, r http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(middleware.UserHeader, user)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func createChat(t *testing.T, r http.Handler, user string) chat.Chat {
	t.Helper()
	resp := do(t, r, http.MethodPost, "/chats", user, map[string]string{"name": "Morning pages"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var c chat.Chat
	if err := json.Unmarshal(resp.Body.Bytes(), &c); err != nil {
		t.Fatalf("decode chat: %v", err)
	}
	return c
}

func TestCreateAndListChats(t *testing.T) {
	r, _ := setupRouter(t)
	c := createChat(t, r, "user-1")
	if c.Name != "Morning pages" || c.OwnerID != "user-1" {
		t.Fatalf("unexpected chat %+v", c)
	}

	resp := do(t, r, http.MethodGet, "/chats", "user-1", nil)
	var chats []chat.Chat
	if err := json.Unmarshal(resp.Body.Bytes(), &chats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(chats) != 1 || chats[0].ID != c.ID {
		t.Fatalf("unexpected chats %+v", chats)
	}

	resp = do(t, r, http.MethodGet, "/chats", "user-2", nil)
	if body := bytes.TrimSpace(resp.Body.Bytes()); string(body) != "[]" {
		t.Fatalf("expected empty list for another user, got %s", body)
	}
}

func TestCreateChatWithoutBody(t *testing.T) {
	r, _ := setupRouter(t)
	resp := do(t, r, http.MethodPost, "/chats", "user-1", nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
}

func TestSendMessageAutoFavorites(t *testing.T) {
	r, st := setupRouter(t)
	c := createChat(t, r, "user-1")

	resp := do(t, r, http.MethodPost, "/chats/"+c.ID+"/messages", "user-1", map[string]string{"content": "Finally ran 5k"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var result chatservice.SendResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Reply == nil || result.Reply.Content != "You said: Finally ran 5k" {
		t.Fatalf("unexpected reply %+v", result.Reply)
	}

	n, err := st.CountFavorites(context.Background(), "user-1", result.Message.ID)
	if err != nil {
		t.Fatalf("CountFavorites: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected auto favorite, got %d", n)
	}

	resp = do(t, r, http.MethodGet, "/chats/"+c.ID+"/messages", "user-1", nil)
	var msgs []chat.Message
	if err := json.Unmarshal(resp.Body.Bytes(), &msgs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Author != chat.AuthorUser || msgs[1].Author != chat.AuthorAI {
		t.Fatalf("unexpected transcript %+v", msgs)
	}
}

func TestSendMessageErrors(t *testing.T) {
	r, _ := setupRouter(t)
	c := createChat(t, r, "user-1")

	tests := []struct {
		name string
		path string
		user string
		body any
		code int
	}{
		{name: "empty content", path: "/chats/" + c.ID + "/messages", user: "user-1", body: map[string]string{"content": "   "}, code: http.StatusBadRequest},
		{name: "invalid body", path: "/chats/" + c.ID + "/messages", user: "user-1", body: "not an object", code: http.StatusBadRequest},
		{name: "unknown chat", path: "/chats/missing/messages", user: "user-1", body: map[string]string{"content": "hi"}, code: http.StatusNotFound},
		{name: "foreign chat", path: "/chats/" + c.ID + "/messages", user: "user-2", body: map[string]string{"content": "hi"}, code: http.StatusNotFound},
		{name: "anonymous", path: "/chats/" + c.ID + "/messages", user: "", body: map[string]string{"content": "hi"}, code: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, r, http.MethodPost, tt.path, tt.user, tt.body)
			if resp.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, resp.Code, resp.Body.String())
			}
			var body map[string]any
			if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["success"] != false {
				t.Fatalf("expected success=false, got %v", body)
			}
		})
	}
}

func TestFavoriteEndpoints(t *testing.T) {
	r, st := setupRouter(t)
	c := createChat(t, r, "user-1")

	resp := do(t, r, http.MethodPost, "/chats/"+c.ID+"/messages", "user-1", map[string]string{"content": "Small win today"})
	var result chatservice.SendResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	path := "/messages/" + result.Message.ID + "/favorite"

	// Already auto-favorited, so a second favorite is a no-op.
	resp = do(t, r, http.MethodPost, path, "user-1", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for existing favorite, got %d", resp.Code)
	}

	resp = do(t, r, http.MethodDelete, path, "user-1", nil)
	var fav favoriteResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &fav); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != http.StatusOK || !fav.Changed || fav.Favorited {
		t.Fatalf("unexpected unfavorite response %d %+v", resp.Code, fav)
	}

	resp = do(t, r, http.MethodPost, path, "user-1", nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 on re-favorite, got %d", resp.Code)
	}
	n, err := st.CountFavorites(context.Background(), "user-1", result.Message.ID)
	if err != nil || n != 1 {
		t.Fatalf("expected one favorite row, got %d (%v)", n, err)
	}

	if resp := do(t, r, http.MethodPost, "/messages/"+result.Reply.ID+"/favorite", "user-1", nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for companion message, got %d", resp.Code)
	}
	if resp := do(t, r, http.MethodPost, path, "user-2", nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another user's message, got %d", resp.Code)
	}
}
