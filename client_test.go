package goDesk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goDesk/session"
)

type recordingNotifier struct {
	mu  sync.Mutex
	got []Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recordingNotifier) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got))
	for _, n := range r.got {
		out = append(out, n.Message)
	}
	return out
}

type recordingRedirector struct {
	mu     sync.Mutex
	routes []string
}

func (r *recordingRedirector) Redirect(_ context.Context, route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

func (r *recordingRedirector) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.routes...)
}

type harness struct {
	client    *Client
	toasts    *recordingNotifier
	redirects *recordingRedirector
}

func newHarness(t *testing.T, baseURL string, opts ...func(*Builder)) *harness {
	t.Helper()

	h := &harness{
		toasts:    &recordingNotifier{},
		redirects: &recordingRedirector{},
	}

	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Metrics.Enabled = true

	b := New().
		WithConfig(cfg).
		WithNotifier(h.toasts).
		WithRedirector(h.redirects)
	for _, opt := range opts {
		opt(b)
	}

	client, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	h.client = client
	return h
}

func writeJSONBody(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func requireRequestError(t *testing.T, err error) *RequestError {
	t.Helper()
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	return reqErr
}

func TestDoAttachesBearerFromSession(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		writeJSONBody(w, http.StatusOK, `{"ok":true}`)
	}))
	t.Cleanup(srv.Close)

	h := newHarness(t, srv.URL)
	ctx := context.Background()

	_, err := h.client.Get(ctx, "/tickets")
	require.NoError(t, err)
	assert.Equal(t, "", gotAuth.Load())

	h.client.Session().SetAuth(ctx, "tok-1", "rt-1", nil)
	_, err = h.client.Get(ctx, "/tickets")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", gotAuth.Load())
}

func TestDoCallerAuthorizationWins(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	h := newHarness(t, srv.URL)
	h.client.Session().SetAuth(context.Background(), "session-token", "", nil)

	_, err := h.client.Do(context.Background(), http.MethodGet, "/tickets", nil, http.Header{"Authorization": {"Bearer custom"}})
	require.NoError(t, err)
	assert.Equal(t, "Bearer custom", gotAuth.Load())
}

func TestResolvePaths(t *testing.T) {
	h := newHarness(t, "https://desk.example.com/api/")

	assert.Equal(t, "https://desk.example.com/api/tickets", h.client.resolve("/tickets"))
	assert.Equal(t, "https://desk.example.com/api/tickets", h.client.resolve("tickets"))
	assert.Equal(t, "https://other.example.com/x", h.client.resolve("https://other.example.com/x"))
}

func TestRetriedRequestIsNotRefreshedAgain(t *testing.T) {
	var ticketCalls, refreshCalls atomic.Int32
	var requestIDs sync.Map

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			refreshCalls.Add(1)
			writeJSONBody(w, http.StatusOK, `{"token":"fresh","name":"A","lastname":"B","email":"a@b.com"}`)
		case "/tickets":
			n := ticketCalls.Add(1)
			requestIDs.Store(n, r.Header.Get(HeaderRequestID))
			writeJSONBody(w, http.StatusUnauthorized, `{"success":false,"error":"still unauthorized"}`)
		}
	}))
	t.Cleanup(srv.Close)

	h := newHarness(t, srv.URL)
	h.client.Session().SetAuth(context.Background(), "stale", "rt-1", nil)

	_, err := h.client.Get(context.Background(), "/tickets")
	reqErr := requireRequestError(t, err)

	assert.Equal(t, http.StatusUnauthorized, reqErr.Status)
	assert.Equal(t, "still unauthorized", reqErr.Message)
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.EqualValues(t, 2, ticketCalls.Load())
	assert.EqualValues(t, 1, refreshCalls.Load())

	first, _ := requestIDs.Load(int32(1))
	second, _ := requestIDs.Load(int32(2))
	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, h.client.Metrics().Value(MetricRetry))
}

func TestUnauthorizedWithoutTokenDoesNotRefresh(t *testing.T) {
	var refreshCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			refreshCalls.Add(1)
		}
		writeJSONBody(w, http.StatusUnauthorized, `{"success":false,"error":"Authorization header required"}`)
	}))
	t.Cleanup(srv.Close)

	h := newHarness(t, srv.URL)
	_, err := h.client.Get(context.Background(), "/tickets")

	reqErr := requireRequestError(t, err)
	assert.Equal(t, "Authorization header required", reqErr.Message)
	assert.False(t, IsSessionExpired(err))
	assert.Zero(t, refreshCalls.Load())
	assert.Empty(t, h.redirects.calls())
}

func TestForbiddenPassesThrough(t *testing.T) {
	var refreshCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			refreshCalls.Add(1)
		}
		writeJSONBody(w, http.StatusForbidden, `{"success":false,"error":"forbidden","code":"FORBIDDEN"}`)
	}))
	t.Cleanup(srv.Close)

	h := newHarness(t, srv.URL)
	h.client.Session().SetAuth(context.Background(), "tok", "rt", nil)

	_, err := h.client.Get(context.Background(), "/tickets/1")
	reqErr := requireRequestError(t, err)

	assert.Equal(t, http.StatusForbidden, reqErr.Status)
	assert.Equal(t, "FORBIDDEN", reqErr.Code)
	assert.Zero(t, refreshCalls.Load())
	assert.True(t, h.client.IsAuthenticated())
	assert.Equal(t, []string{"forbidden"}, h.toasts.messages())
}

func TestErrorMessagePriority(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/error-first":
			writeJSONBody(w, http.StatusInternalServerError, `{"error":"boom","message":"ignored"}`)
		case "/message":
			writeJSONBody(w, http.StatusUnprocessableEntity, `{"message":"bad input","code":"INVALID_INPUT"}`)
		case "/empty":
			w.WriteHeader(http.StatusBadGateway)
		case "/html":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, "<html>oops</html>")
		}
	}))
	t.Cleanup(srv.Close)

	h := newHarness(t, srv.URL)

	tests := []struct {
		path   string
		status int
		msg    string
		code   string
	}{
		{path: "/error-first", status: 500, msg: "boom"},
		{path: "/message", status: 422, msg: "bad input", code: "INVALID_INPUT"},
		{path: "/empty", status: 502, msg: "Request failed with status code 502"},
		{path: "/html", status: 500, msg: "Request failed with status code 500"},
	}

	for _, tt := range tests {
		t.Run(strings.TrimPrefix(tt.path, "/"), func(t *testing.T) {
			_, err := h.client.Get(context.Background(), tt.path)
			reqErr := requireRequestError(t, err)

			assert.Equal(t, tt.msg, err.Error())
			assert.Equal(t, tt.status, reqErr.Status)
			assert.Equal(t, tt.code, reqErr.Code)
			assert.ErrorIs(t, err, ErrRequestFailed)
		})
	}
	assert.Len(t, h.toasts.messages(), len(tests))
}

func TestNetworkErrorNotifiesConnectionMessage(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	h := newHarness(t, base)
	_, err := h.client.Get(context.Background(), "/tickets")

	reqErr := requireRequestError(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Zero(t, reqErr.Status)
	assert.NotEmpty(t, reqErr.Message)
	assert.Equal(t, []string{MessageNetwork}, h.toasts.messages())
	assert.EqualValues(t, 1, h.client.Metrics().Value(MetricNetworkError))
}

func TestCanceledRequestIsNotNotified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	h := newHarness(t, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.client.Get(ctx, "/tickets")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.toasts.messages())
}

func TestDeadlineExceededRequestIsNotNotified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	h := newHarness(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := h.client.Get(ctx, "/tickets")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, h.toasts.messages())
}

func failingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONBody(w, http.StatusInternalServerError, `{"error":"boom"}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// getWithin runs a Get and fails the test if it has not returned after limit.
func getWithin(t *testing.T, c *Client, ctx context.Context, limit time.Duration) error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, "/tickets")
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(limit):
		t.Fatalf("request still blocked after %s", limit)
		return nil
	}
}

func TestFullChannelNotifierNeverBlocksRequests(t *testing.T) {
	srv := failingServer(t)
	notifier := NewChannelNotifier(1)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	c, err := New().WithConfig(cfg).WithNotifier(notifier).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		err := getWithin(t, c, ctx, 2*time.Second)
		cancel()
		assert.ErrorIs(t, err, ErrRequestFailed)
	}

	assert.Len(t, notifier.Notifications(), 1)
	assert.EqualValues(t, 2, notifier.Dropped())
}

func TestBlockingNotifierHonoursRequestDeadline(t *testing.T) {
	srv := failingServer(t)
	blocking := NotifierFunc(func(ctx context.Context, _ Notification) {
		<-ctx.Done()
	})

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	c, err := New().WithConfig(cfg).WithNotifier(blocking).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	err = getWithin(t, c, ctx, 2*time.Second)
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestWithoutNotificationSuppressesToast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONBody(w, http.StatusInternalServerError, `{"error":"boom"}`)
	}))
	t.Cleanup(srv.Close)

	h := newHarness(t, srv.URL)
	_, err := h.client.Get(WithoutNotification(context.Background()), "/tickets")

	require.Error(t, err)
	assert.Empty(t, h.toasts.messages())
}

func TestExemptEndpointsNeverRefreshOrNotify(t *testing.T) {
	var refreshCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			refreshCalls.Add(1)
			return
		}
		writeJSONBody(w, http.StatusUnauthorized, `{"success":false,"error":"invalid email or password","code":"INVALID_CREDENTIALS"}`)
	}))
	t.Cleanup(srv.Close)

	h := newHarness(t, srv.URL)
	h.client.Session().SetAuth(context.Background(), "old", "rt", nil)

	_, err := h.client.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "x"})
	reqErr := requireRequestError(t, err)
	assert.Equal(t, "invalid email or password", reqErr.Message)

	_, err = h.client.Post(context.Background(), "/auth/register", RegisterRequest{Email: "x@y.z"})
	require.Error(t, err)

	assert.Zero(t, refreshCalls.Load())
	assert.Empty(t, h.toasts.messages())
	assert.Empty(t, h.redirects.calls())
	assert.EqualValues(t, 1, h.client.Metrics().Value(MetricLoginFailure))
}

func TestBodyEncodings(t *testing.T) {
	type echo struct {
		ContentType string `json:"content_type"`
		Body        string `json:"body"`
		Title       string `json:"title"`
		File        string `json:"file"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := echo{ContentType: r.Header.Get("Content-Type")}
		if strings.HasPrefix(out.ContentType, "multipart/form-data") {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			out.Title = r.FormValue("title")
			if f, _, err := r.FormFile("attachment"); err == nil {
				raw, _ := io.ReadAll(f)
				out.File = string(raw)
			}
		} else {
			raw, _ := io.ReadAll(r.Body)
			out.Body = string(raw)
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(srv.Close)

	h := newHarness(t, srv.URL)
	ctx := context.Background()

	var got echo
	require.NoError(t, h.client.DoJSON(ctx, http.MethodPost, "/json", map[string]string{"title": "t"}, &got))
	assert.Equal(t, "application/json", got.ContentType)
	assert.JSONEq(t, `{"title":"t"}`, got.Body)

	got = echo{}
	require.NoError(t, h.client.DoJSON(ctx, http.MethodPost, "/form", url.Values{"q": {"vpn"}}, &got))
	assert.Equal(t, "application/x-www-form-urlencoded", got.ContentType)
	assert.Equal(t, "q=vpn", got.Body)

	got = echo{}
	mp := Multipart{
		Fields: map[string]string{"title": "broken"},
		Files:  []MultipartFile{{Field: "attachment", Filename: "log.txt", Content: strings.NewReader("trace")}},
	}
	require.NoError(t, h.client.DoJSON(ctx, http.MethodPost, "/upload", mp, &got))
	assert.Equal(t, "broken", got.Title)
	assert.Equal(t, "trace", got.File)
}

func TestDecodeEnvelope(t *testing.T) {
	ok := &Response{Body: []byte(`{"success":true,"data":{"id":7}}`)}
	got, err := DecodeEnvelope[struct{ ID int }](ok)
	require.NoError(t, err)
	assert.Equal(t, 7, got.ID)

	failed := &Response{Body: []byte(`{"success":false,"error":"nope"}`)}
	_, err = DecodeEnvelope[struct{}](failed)
	assert.ErrorIs(t, err, ErrEnvelopeFailure)
	assert.Contains(t, err.Error(), "nope")
}

func TestClosedClientRejectsRequests(t *testing.T) {
	h := newHarness(t, "http://desk.invalid")
	require.NoError(t, h.client.Close())
	require.NoError(t, h.client.Close())

	_, err := h.client.Get(context.Background(), "/tickets")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, h.client.RefreshSession(context.Background()), ErrClosed)
}

func TestAsyncNotificationsFlushOnClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONBody(w, http.StatusInternalServerError, `{"error":"boom"}`)
	}))
	t.Cleanup(srv.Close)

	notifier := &recordingNotifier{}
	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Notify.Async = true
	cfg.Notify.BufferSize = 8
	cfg.Notify.DropIfFull = false

	client, err := New().WithConfig(cfg).WithNotifier(notifier).Build()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := client.Get(context.Background(), "/tickets")
		require.Error(t, err)
	}
	require.NoError(t, client.Close())

	assert.Equal(t, []string{"boom", "boom", "boom"}, notifier.messages())
	assert.Zero(t, client.NotificationsDropped())
}

func TestBuilderRejectsInvalidConfigAndReuse(t *testing.T) {
	_, err := New().Build()
	require.Error(t, err)

	b := New().WithBaseURL("http://desk.invalid")
	c, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, err = b.Build()
	assert.EqualError(t, err, "builder already used")
}

func TestBuilderStorageOverridesBackend(t *testing.T) {
	storage := session.NewMemoryStorage()
	cfg := DefaultConfig()
	cfg.BaseURL = "http://desk.invalid"
	cfg.Session.Backend = SessionBackendFile
	cfg.Session.FilePath = "/nonexistent/dir/session.json"

	c, err := New().WithConfig(cfg).WithStorage(storage).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	c.Session().SetAuth(context.Background(), "tok", "rt", nil)
	assert.Positive(t, storage.Len())
}

func TestSessionExpiredErrorShape(t *testing.T) {
	cause := errors.New("refresh rejected")
	err := error(&RequestError{
		Message: MessageSessionExpired,
		Status:  http.StatusUnauthorized,
		kind:    ErrSessionExpired,
		cause:   cause,
	})
	assert.True(t, IsSessionExpired(err))
	assert.Equal(t, MessageSessionExpired, err.Error())
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNetwork)
}
