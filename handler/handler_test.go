package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"empath-relay/internal/adapter"
	"empath-relay/internal/config"
	"empath-relay/internal/logging"
	"empath-relay/internal/usecase"
)

type fakeChat struct {
	out usecase.ChatOutput
	err error
	in  usecase.ChatInput
}

func (f *fakeChat) Chat(_ context.Context, in usecase.ChatInput) (usecase.ChatOutput, error) {
	f.in = in
	return f.out, f.err
}

func newTestHandler(t *testing.T, chat ChatUseCase) *Handler {
	t.Helper()
	h, err := NewHandler(chat, config.DebugView{TokenSet: true, Provider: "featherless-ai", DefaultModel: "m/x", Debug: true}, true, logging.Discard())
	require.NoError(t, err)
	return h
}

func doJSON(t *testing.T, h *Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

func TestNewHandler_Validation(t *testing.T) {
	_, err := NewHandler(nil, config.DebugView{}, false, logging.Discard())
	require.Error(t, err)

	_, err = NewHandler(&fakeChat{}, config.DebugView{}, false, nil)
	require.Error(t, err)
}

func TestChat_OK(t *testing.T) {
	chat := &fakeChat{out: usecase.ChatOutput{Role: "bot", Text: "I'm here with you.", Crisis: false}}
	h := newTestHandler(t, chat)

	rec := doJSON(t, h, http.MethodPost, "/api/chat", `{"message":"rough day","countryCode":"IN","model":"org/model"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := gjson.Parse(rec.Body.String())
	require.Equal(t, "bot", body.Get("role").String())
	require.Equal(t, "I'm here with you.", body.Get("text").String())
	require.False(t, body.Get("crisis").Bool())

	require.Equal(t, "rough day", chat.in.Message)
	require.Equal(t, "IN", chat.in.CountryCode)
	require.Equal(t, "org/model", chat.in.Model)
}

func TestChat_InvalidJSONBody(t *testing.T) {
	h := newTestHandler(t, &fakeChat{})
	rec := doJSON(t, h, http.MethodPost, "/api/chat", `{"message": `)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid json body", gjson.Get(rec.Body.String(), "error").String())
}

func TestChat_InvalidInput(t *testing.T) {
	gen := &stubGenerator{}
	h := newTestHandler(t, newChatService(t, gen))

	rec := doJSON(t, h, http.MethodPost, "/api/chat", `{"message":"   "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "message required", gjson.Get(rec.Body.String(), "error").String())
	require.Zero(t, gen.calls)
}

func TestChat_CrisisMessage(t *testing.T) {
	gen := &stubGenerator{text: "never used"}
	h := newTestHandler(t, newChatService(t, gen))

	rec := doJSON(t, h, http.MethodPost, "/api/chat", `{"message":"I can't go on","countryCode":"IN"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := gjson.Parse(rec.Body.String())
	require.True(t, body.Get("crisis").Bool())
	require.Equal(t, "bot", body.Get("role").String())
	require.Contains(t, body.Get("text").String(), "+91-8888817666")
	require.Zero(t, gen.calls)
}

func TestChat_NoModelConfigured(t *testing.T) {
	h := newTestHandler(t, &fakeChat{err: usecaseError(usecase.ErrorNoModel, "no model configured", nil)})
	rec := doJSON(t, h, http.MethodPost, "/api/chat", `{"message":"hello"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "no model configured", gjson.Get(rec.Body.String(), "error").String())
}

func TestChat_UpstreamErrorCarriesGuidance(t *testing.T) {
	upstream := errors.New("hfhub: unexpected status 404 Not Found from https://router.huggingface.co/models/missing: {}")
	h := newTestHandler(t, &fakeChat{err: usecaseError(usecase.ErrorUpstream, "upstream_inference_failed", upstream)})

	rec := doJSON(t, h, http.MethodPost, "/api/chat", `{"message":"hello","model":"missing/model"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	body := gjson.Parse(rec.Body.String())
	require.Equal(t, "upstream_inference_failed", body.Get("error").String())
	require.Contains(t, body.Get("detail").String(), "404 Not Found")

	var guidance []string
	for _, g := range body.Get("guidance").Array() {
		guidance = append(guidance, g.String())
	}
	require.Contains(t, strings.Join(guidance, "\n"), "Model not found at the provider.")
}

func TestChat_UnexpectedError(t *testing.T) {
	h := newTestHandler(t, &fakeChat{err: errors.New("boom")})
	rec := doJSON(t, h, http.MethodPost, "/api/chat", `{"message":"hello"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := gjson.Parse(rec.Body.String())
	require.Equal(t, "internal_server_error", body.Get("error").String())
	require.Equal(t, "boom", body.Get("message").String())
}

func TestDebugEnv(t *testing.T) {
	h := newTestHandler(t, &fakeChat{})
	rec := doJSON(t, h, http.MethodGet, "/debug/env", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := gjson.Parse(rec.Body.String())
	require.True(t, body.Get("tokenSet").Bool())
	require.Equal(t, "featherless-ai", body.Get("provider").String())
	require.Equal(t, "m/x", body.Get("defaultModel").String())
	require.False(t, body.Get("token").Exists())
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, &fakeChat{})
	rec := doJSON(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
}

func TestRequestID_GeneratedAndEchoed(t *testing.T) {
	h := newTestHandler(t, &fakeChat{out: usecase.ChatOutput{Role: "bot", Text: "hi"}})

	rec := doJSON(t, h, http.MethodGet, "/health", "")
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec = httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	require.Equal(t, "req-123", rec.Header().Get("X-Request-Id"))
}

func TestRecovery_DebugIncludesTraceback(t *testing.T) {
	h := newTestHandler(t, &panickingChat{})
	rec := doJSON(t, h, http.MethodPost, "/api/chat", `{"message":"hello"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := gjson.Parse(rec.Body.String())
	require.Equal(t, "internal_server_error", body.Get("error").String())
	require.Contains(t, body.Get("message").String(), "kaboom")
	require.True(t, body.Get("traceback").Exists())
}

func TestRecovery_NonDebugHidesTraceback(t *testing.T) {
	h, err := NewHandler(&panickingChat{}, config.DebugView{}, false, logging.Discard())
	require.NoError(t, err)

	rec := doJSON(t, h, http.MethodPost, "/api/chat", `{"message":"hello"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.False(t, gjson.Get(rec.Body.String(), "traceback").Exists())
}

type panickingChat struct{}

func (panickingChat) Chat(context.Context, usecase.ChatInput) (usecase.ChatOutput, error) {
	panic("kaboom")
}

type stubGenerator struct {
	text  string
	calls int
}

func (s *stubGenerator) Generate(context.Context, adapter.Request) (string, error) {
	s.calls++
	return s.text, nil
}

func newChatService(t *testing.T, gen usecase.Generator) *usecase.ChatService {
	t.Helper()
	svc, err := usecase.NewChatService(gen, "default/model", 512, 0.2, false)
	require.NoError(t, err)
	return svc
}

func usecaseError(code usecase.ErrorCode, reason string, err error) *usecase.Error {
	return &usecase.Error{Code: code, Reason: reason, Err: err}
}
