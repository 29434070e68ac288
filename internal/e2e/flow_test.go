package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub/internal/app"
	"github.com/taskhub/taskhub/internal/auth"
	"github.com/taskhub/taskhub/internal/observability"
	"github.com/taskhub/taskhub/internal/platform/httpx"
	"github.com/taskhub/taskhub/internal/tasks"
	_ "github.com/taskhub/taskhub/testing"
)

type welcomeRecorder struct {
	mu     sync.Mutex
	emails []string
}

func (w *welcomeRecorder) Welcome(_ context.Context, _ string, email string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.emails = append(w.emails, email)
	return nil
}

type harness struct {
	t       *testing.T
	handler http.Handler
	welcome *welcomeRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &app.Config{
		AppEnv:            "test",
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		CORSOrigin:        "http://localhost:3000",
	}
	errs := &httpx.ErrorResponder{Logger: logger, Verbose: true}

	tokens, err := auth.NewTokenManager(auth.TokenConfig{Secret: "e2e-secret", TTL: time.Hour, Issuer: "taskhub"})
	require.NoError(t, err)

	users := newUserStore()
	welcome := &welcomeRecorder{}
	authService := auth.NewService(users, tokens, auth.ServiceConfig{BcryptCost: 4, Logger: logger, Notifier: welcome})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	taskService := tasks.NewService(newTaskStore(users), tasks.NewStatsCache(client, time.Minute, logger), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		Errors:        errs,
		Authenticator: authService,
		AuthHandler:   auth.NewHandler(logger, authService, errs),
		TasksHandler:  tasks.NewHandler(logger, taskService, errs),
		Metrics:       observability.NewMetrics(),
	})
	return &harness{t: t, handler: router, welcome: welcome}
}

func (h *harness) do(method, path, token string, body any) (int, map[string]any) {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func (h *harness) register(name, email, password string) string {
	h.t.Helper()
	code, body := h.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": name, "email": email, "password": password,
	})
	require.Equal(h.t, http.StatusCreated, code, body)
	return body["token"].(string)
}

func TestAccountAndTaskLifecycle(t *testing.T) {
	h := newHarness(t)

	token := h.register("Alice", "Alice@Example.com", "secret1")
	assert.Equal(t, []string{"alice@example.com"}, h.welcome.emails)

	code, body := h.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "alice@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["token"])

	code, body = h.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice@example.com", user["email"])
	assert.NotContains(t, user, "password")

	due := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	code, body = h.do(http.MethodPost, "/api/tasks", token, map[string]any{
		"title": "Write report", "priority": "high", "dueDate": due, "tags": []string{"work", " "},
	})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "Task created successfully", body["message"])
	task := body["task"].(map[string]any)
	id := task["_id"].(string)
	assert.Equal(t, "pending", task["status"])
	assert.Equal(t, []any{"work", ""}, task["tags"])
	assert.Equal(t, "Alice", task["assignedTo"].(map[string]any)["name"])

	code, body = h.do(http.MethodGet, "/api/tasks/stats/dashboard", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["totalTasks"])

	code, body = h.do(http.MethodPut, "/api/tasks/"+id, token, map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, code)
	task = body["task"].(map[string]any)
	assert.Equal(t, "completed", task["status"])
	assert.NotNil(t, task["completedAt"])

	code, body = h.do(http.MethodGet, "/api/tasks/stats/dashboard", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{map[string]any{"_id": "completed", "count": float64(1)}}, body["statusStats"])

	code, body = h.do(http.MethodGet, "/api/tasks?status=completed", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["tasks"], 1)
	assert.EqualValues(t, 1, body["pagination"].(map[string]any)["total"])

	code, body = h.do(http.MethodDelete, "/api/tasks/"+id, token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Task deleted successfully", body["message"])

	code, body = h.do(http.MethodGet, "/api/tasks/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Task not found", body["error"])
}

func TestTasksAreIsolatedBetweenUsers(t *testing.T) {
	h := newHarness(t)
	alice := h.register("Alice", "alice@example.com", "secret1")
	bob := h.register("Bob", "bob@example.com", "secret2")

	code, body := h.do(http.MethodPost, "/api/tasks", alice, map[string]any{"title": "Private"})
	require.Equal(t, http.StatusCreated, code)
	id := body["task"].(map[string]any)["_id"].(string)

	code, body = h.do(http.MethodGet, "/api/tasks/"+id, bob, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.NotEmpty(t, body["error"])

	code, _ = h.do(http.MethodPut, "/api/tasks/"+id, bob, map[string]any{"title": "Hijacked"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = h.do(http.MethodDelete, "/api/tasks/"+id, bob, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = h.do(http.MethodGet, "/api/tasks", bob, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["tasks"])

	code, body = h.do(http.MethodGet, "/api/tasks/"+id, alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Private", body["task"].(map[string]any)["title"])
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	h := newHarness(t)

	code, body := h.do(http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.NotEmpty(t, body["error"])

	code, _ = h.do(http.MethodGet, "/api/auth/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}
