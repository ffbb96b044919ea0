package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"marketplace-server/models"
	"marketplace-server/services"
	"marketplace-server/storage"
	"marketplace-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func buildChatTestApp(chat *services.ChatService) *iris.Application {
	os.Setenv("ACCESS_TOKEN_SECRET", "testsecret")
	app := iris.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} { return new(utils.AccessToken) })

	party := app.Party("/api/chat", accessTokenVerifierMiddleware)
	{
		party.Post("/start", StartConversation(chat))
		party.Get("/conversations", GetConversations(chat))
		party.Get("/{id:uint}/messages", GetMessages(chat))
		party.Post("/{id:uint}/messages", SendMessage(chat))
		party.Delete("/messages/{id:uint}", DeleteMessage(chat))
	}
	return app
}

func doJSON(t *testing.T, app *iris.Application, method, url, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	return resp
}

func TestChatRESTFlow(t *testing.T) {
	setupTestDB(t)
	chat := services.NewChatService(storage.DB, nil)
	app := buildChatTestApp(chat)
	if err := app.Build(); err != nil {
		t.Fatalf("building app: %v", err)
	}

	alice := models.User{Name: "Alice", Email: "alice@example.com", Password: "x"}
	bob := models.User{Name: "Bob", Email: "bob@example.com", Password: "x"}
	storage.DB.Create(&alice)
	storage.DB.Create(&bob)
	aliceToken := signTestToken(alice.ID, "USER")
	bobToken := signTestToken(bob.ID, "USER")

	// First start creates, second reuses.
	startBody := fmt.Sprintf(`{"targetUserId": %d}`, bob.ID)
	resp := doJSON(t, app, http.MethodPost, "/api/chat/start", aliceToken, startBody)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 on create, got %d: %s", resp.Code, resp.Body.String())
	}
	var conv models.Conversation
	if err := json.Unmarshal(resp.Body.Bytes(), &conv); err != nil {
		t.Fatalf("decoding conversation: %v", err)
	}

	resp = doJSON(t, app, http.MethodPost, "/api/chat/start", aliceToken, startBody)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 on reuse, got %d", resp.Code)
	}

	// Self-conversation is a validation error.
	selfBody := fmt.Sprintf(`{"targetUserId": %d}`, alice.ID)
	resp = doJSON(t, app, http.MethodPost, "/api/chat/start", aliceToken, selfBody)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for self conversation, got %d", resp.Code)
	}

	// Send and read back.
	msgURL := fmt.Sprintf("/api/chat/%d/messages", conv.ID)
	resp = doJSON(t, app, http.MethodPost, msgURL, aliceToken, `{"content": "hello bob"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 on send, got %d: %s", resp.Code, resp.Body.String())
	}
	var msg models.Message
	if err := json.Unmarshal(resp.Body.Bytes(), &msg); err != nil {
		t.Fatalf("decoding message: %v", err)
	}

	resp = doJSON(t, app, http.MethodGet, msgURL, bobToken, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 on transcript, got %d", resp.Code)
	}
	var msgs []models.Message
	if err := json.Unmarshal(resp.Body.Bytes(), &msgs); err != nil {
		t.Fatalf("decoding transcript: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hello bob" {
		t.Fatalf("unexpected transcript: %+v", msgs)
	}

	// Empty message is rejected.
	resp = doJSON(t, app, http.MethodPost, msgURL, aliceToken, `{"content": "  "}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty message, got %d", resp.Code)
	}

	// Only the sender may unsend for everyone.
	deleteURL := fmt.Sprintf("/api/chat/messages/%d", msg.ID)
	resp = doJSON(t, app, http.MethodDelete, deleteURL, bobToken, `{"deleteType": "everyone"}`)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-sender unsend, got %d", resp.Code)
	}

	resp = doJSON(t, app, http.MethodDelete, deleteURL, aliceToken, `{"deleteType": "everyone"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 on unsend, got %d: %s", resp.Code, resp.Body.String())
	}

	// Outsiders cannot read the transcript.
	eve := models.User{Name: "Eve", Email: "eve@example.com", Password: "x"}
	storage.DB.Create(&eve)
	resp = doJSON(t, app, http.MethodGet, msgURL, signTestToken(eve.ID, "USER"), "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for outsider, got %d", resp.Code)
	}
}
