package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/docbook-core-poc-v1/server/internal/agent/model"
	errx "github.com/docbook-core-poc-v1/server/internal/core/error"
	"github.com/docbook-core-poc-v1/server/pkg/metrics"
)

type fakeRunner struct {
	mu     sync.Mutex
	inputs []model.QueryInput
	resets []string
	err    error
}

func (f *fakeRunner) Invoke(ctx context.Context, in model.QueryInput) (model.TurnResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return model.TurnResult{}, f.err
	}
	return model.TurnResult{SessionID: in.SessionID, Reply: "echo: " + in.Message, CostUSD: 0.001}, nil
}

func (f *fakeRunner) Reset(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, sessionID)
	return nil
}

func newTestServer(r *fakeRunner) *Server {
	s := New(r, metrics.NewMetrics(metrics.Config{Namespace: "test", ServiceName: "test"}), Config{})
	s.newID = func() string { return "sess-new" }
	return s
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestChatJSONIssuesSessionCookie(t *testing.T) {
	runner := &fakeRunner{}
	h := newTestServer(runner).Handler()

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"  I have a headache "}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "sess-new", body["session_id"])
	assert.Equal(t, "echo: I have a headache", body["reply"])
	assert.InDelta(t, 0.001, body["cost_usd"], 1e-9)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.Equal(t, "sess-new", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestChatFormReusesCookie(t *testing.T) {
	runner := &fakeRunner{}
	h := newTestServer(runner).Handler()

	form := url.Values{"message": {"book Dr. Sara"}}
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "existing"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
	require.Len(t, runner.inputs, 1)
	assert.Equal(t, "existing", runner.inputs[0].SessionID)
	assert.Equal(t, "book Dr. Sara", runner.inputs[0].Message)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	runner := &fakeRunner{}
	h := newTestServer(runner).Handler()

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"   "}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "message cannot be empty", decode(t, rec)["error"])
	assert.Empty(t, runner.inputs)
}

func TestChatRejectsMalformedJSON(t *testing.T) {
	h := newTestServer(&fakeRunner{}).Handler()

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatMapsUpstreamErrors(t *testing.T) {
	runner := &fakeRunner{err: errx.WrapLLM(errors.New("quota exceeded"))}
	h := newTestServer(runner).Handler()

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, errx.LLMErrorMessage, decode(t, rec)["error"])
}

func TestReset(t *testing.T) {
	runner := &fakeRunner{}
	h := newTestServer(runner).Handler()

	req := httptest.NewRequest(http.MethodPost, "/reset", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "abc"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"abc"}, runner.resets)

	// no cookie, nothing to clear
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reset", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, runner.resets, 1)
}

func TestIndexHealthAndMetrics(t *testing.T) {
	h := newTestServer(&fakeRunner{}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "/chat")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStartShutsDownOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(&fakeRunner{}, nil, Config{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
