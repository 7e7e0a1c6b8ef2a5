package router

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bizlink-ai/concierge-platform/internal/classifier"
	"github.com/bizlink-ai/concierge-platform/internal/conversation"
	"github.com/bizlink-ai/concierge-platform/internal/corpus"
	"github.com/bizlink-ai/concierge-platform/internal/http/handlers"
	"github.com/bizlink-ai/concierge-platform/internal/templates"
	"github.com/bizlink-ai/concierge-platform/pkg/logging"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	c := corpus.New([]corpus.Entry{
		{Question: "what are your business hours", Answer: "We're open weekdays 9 to 5."},
	})
	conv, err := conversation.NewRouter(conversation.RouterConfig{
		Classifier: classifier.New(),
		Matcher:    corpus.NewMatcher(c, corpus.MatcherOptions{Threshold: 0.3}),
		Sessions:   conversation.NewMemorySessionStore(),
		Profile:    templates.TenantProfile{BusinessName: "Concierge AI", Services: []string{"support"}},
		Logger:     logging.New("error"),
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return New(&Config{
		Logger: logging.New("error"),
		Chat:   handlers.NewChatHandler(handlers.ChatConfig{Router: conv, DefaultOrgID: "org-1", Logger: logging.New("error")}),
		Health: handlers.NewHealthHandler(nil, nil),
	})
}

func TestRouterHealth(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRouterChatMessage(t *testing.T) {
	r := newTestRouter(t)
	body := bytes.NewReader([]byte(`{"text":"what are your business hours?","session_id":"s1"}`))
	req := httptest.NewRequest(http.MethodPost, "/chat/message", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRouterAppointmentsRouteAbsentWhenUnconfigured(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewReader([]byte(`{}`))))
	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 404/405, got %d", rec.Code)
	}
}
