package goDesk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goDesk/internal/flows"
	"github.com/MrEthical07/goDesk/internal/logctx"
	"github.com/MrEthical07/goDesk/jwt"
	"github.com/MrEthical07/goDesk/refresh"
	"github.com/MrEthical07/goDesk/session"
)

// HeaderRequestID carries the per-call correlation ID. A retry reuses the ID of the call
// it replays.
const HeaderRequestID = "X-Request-Id"

// Client is the authenticated transport of a goDesk application.
//
// Every request goes through one pipeline: the current access token from the session
// [session.Store] is attached, a qualifying 401 triggers a single coordinated refresh
// shared by all concurrent callers, the request is replayed once with the new token, and
// failures are normalized into [*RequestError] and reported to the [Notifier].
//
// Client is safe for concurrent use. Build one with [Builder].
type Client struct {
	config  Config
	baseURL string

	http        *http.Client
	store       *session.Store
	coordinator *refresh.Coordinator
	notifier    *notifyDispatcher
	redirector  Redirector
	logger      *slog.Logger
	metrics     *Metrics
	flows       flows.Deps

	// ownedRedis is closed by Close when the Builder created it.
	ownedRedis redis.UniversalClient

	closed atomic.Bool
	now    func() time.Time
}

// call is one logical request. The payload is buffered so the request can be replayed.
type call struct {
	method      string
	url         string
	path        string
	payload     []byte
	contentType string
	header      http.Header
	requestID   string
	retried     bool
}

/*
====================================
PUBLIC REQUEST API
====================================
*/

// Do sends a request through the authenticated pipeline.
//
// path is resolved against Config.BaseURL unless it is an absolute URL. body may be nil,
// []byte, string, io.Reader, url.Values, [Multipart] or any JSON-encodable value. header
// is copied; an Authorization header set by the caller is sent instead of the session
// token on the first attempt.
//
// A 2xx response is returned as is. Any other outcome is a [*RequestError].
func (c *Client) Do(ctx context.Context, method, path string, body any, header http.Header) (*Response, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cl, err := c.newCall(method, path, body, header)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, cl)
}

// Get is Do with GET and no body.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, nil)
}

// Post is Do with POST.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, nil)
}

// Put is Do with PUT.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body, nil)
}

// Patch is Do with PATCH.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, path, body, nil)
}

// Delete is Do with DELETE and no body.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// DoJSON sends in and decodes the 2xx body into out. out may be nil.
func (c *Client) DoJSON(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.Do(ctx, method, path, in, nil)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

/*
====================================
PIPELINE
====================================
*/

func (c *Client) execute(ctx context.Context, cl *call) (*Response, error) {
	token := c.store.AccessToken()

	if token != "" && c.shouldRenewEarly(cl, token) {
		c.metrics.Inc(MetricRefreshProactive)
		renewed, role, err := c.coordinator.Do(ctx, token, c.runRefresh)
		if err != nil {
			return nil, c.refreshFailed(ctx, cl, role, err)
		}
		token = renewed
	}

	sent := cl.header.Get("Authorization")
	if sent == "" && token != "" {
		sent = "Bearer " + token
	}

	resp, err := c.send(ctx, cl, sent)
	if err != nil {
		return nil, c.fail(ctx, cl, nil, err)
	}
	if isSuccess(resp.StatusCode) {
		return resp, nil
	}
	if !c.shouldRefresh(cl, resp.StatusCode, sent) {
		return nil, c.fail(ctx, cl, resp, nil)
	}

	c.metrics.Inc(MetricUnauthorized)
	cl.retried = true

	renewed, role, err := c.coordinator.Do(ctx, strings.TrimPrefix(sent, "Bearer "), c.runRefresh)
	switch role {
	case refresh.RoleWaiter:
		c.metrics.Inc(MetricRefreshQueued)
	case refresh.RoleShortcut:
		c.metrics.Inc(MetricRefreshShortcut)
	}
	if err != nil {
		return nil, c.refreshFailed(ctx, cl, role, err)
	}

	c.metrics.Inc(MetricRetry)
	resp, err = c.send(ctx, cl, "Bearer "+renewed)
	if err != nil {
		return nil, c.fail(ctx, cl, nil, err)
	}
	resp.Retried = true
	if isSuccess(resp.StatusCode) {
		return resp, nil
	}
	return nil, c.fail(ctx, cl, resp, nil)
}

// shouldRefresh decides whether a response may start refresh coordination: a 401 to a
// request that carried credentials, was not already replayed, and is not a login or
// registration call.
func (c *Client) shouldRefresh(cl *call, status int, sentAuth string) bool {
	return status == http.StatusUnauthorized &&
		sentAuth != "" &&
		!cl.retried &&
		!c.isAuthEndpoint(cl.path)
}

func (c *Client) shouldRenewEarly(cl *call, token string) bool {
	window := c.config.Auth.ProactiveWindow
	if window <= 0 || c.isAuthEndpoint(cl.path) || cl.header.Get("Authorization") != "" {
		return false
	}
	return jwt.ExpiresWithin(token, window, c.now())
}

// isAuthEndpoint matches login and registration calls by substring, so both relative and
// absolute request paths qualify.
func (c *Client) isAuthEndpoint(path string) bool {
	return strings.Contains(path, c.config.Auth.LoginPath) ||
		strings.Contains(path, c.config.Auth.RegisterPath)
}

func (c *Client) send(ctx context.Context, cl *call, authorization string) (*Response, error) {
	var body io.Reader
	if cl.payload != nil {
		body = bytes.NewReader(cl.payload)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, cl.url, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range cl.header {
		req.Header[k] = append([]string(nil), vs...)
	}
	if cl.contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", cl.contentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if c.config.HTTP.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.HTTP.UserAgent)
	}
	req.Header.Set(HeaderRequestID, cl.requestID)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	} else {
		req.Header.Del("Authorization")
	}

	start := c.now()
	c.metrics.Inc(MetricRequest)
	res, err := c.http.Do(req)
	if err != nil {
		c.metrics.Observe(MetricRequestLatency, c.now().Sub(start))
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	c.metrics.Observe(MetricRequestLatency, c.now().Sub(start))
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       data,
		Retried:    cl.retried,
	}, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

/*
====================================
REFRESH
====================================
*/

// runRefresh is the renewal executed by the coordinator leader.
func (c *Client) runRefresh(ctx context.Context) (string, error) {
	start := c.now()
	c.metrics.Inc(MetricRefreshStarted)

	res := flows.RunRefresh(ctx, c.flows.Refresh)
	c.metrics.Observe(MetricRefreshLatency, c.now().Sub(start))

	if res.Failure != flows.RefreshFailureNone {
		c.metrics.Inc(MetricRefreshFailure)
		return "", res.Err
	}
	c.metrics.Inc(MetricRefreshSuccess)
	c.logger.DebugContext(ctx, "goDesk: session refreshed")
	return res.Grant.AccessToken, nil
}

// exchangeRefresh posts the refresh token outside the pipeline, so a rejected refresh can
// never recurse into another refresh.
func (c *Client) exchangeRefresh(ctx context.Context, refreshToken string) (flows.Grant, error) {
	payload, err := json.Marshal(refreshTokenRequest{RefreshToken: refreshToken})
	if err != nil {
		return flows.Grant{}, err
	}
	cl := &call{
		method:      http.MethodPost,
		url:         c.resolve(c.config.Auth.RefreshPath),
		path:        c.config.Auth.RefreshPath,
		payload:     payload,
		contentType: "application/json",
		header:      http.Header{},
		requestID:   uuid.NewString(),
	}

	resp, err := c.send(ctx, cl, "")
	if err != nil {
		return flows.Grant{}, err
	}
	if !isSuccess(resp.StatusCode) {
		eb := parseErrorBody(resp.Body)
		return flows.Grant{}, fmt.Errorf("refresh rejected with status %d: %s", resp.StatusCode, firstNonEmpty(eb.Error, eb.Message, http.StatusText(resp.StatusCode)))
	}

	var out AuthResponse
	if err := resp.Decode(&out); err != nil {
		return flows.Grant{}, err
	}
	return flows.Grant{
		AccessToken:  out.Token,
		RefreshToken: out.RefreshToken,
		Identity:     out.Identity(),
	}, nil
}

func (c *Client) redirectToLogin(ctx context.Context) {
	c.redirector.Redirect(ctx, c.config.Navigation.LoginRoute)
}

/*
====================================
ERROR NORMALIZATION
====================================
*/

// refreshFailed maps a coordination failure. A waiter whose own context ended is a
// plain cancellation; every other failure means the session is gone.
func (c *Client) refreshFailed(ctx context.Context, cl *call, role refresh.Role, err error) error {
	if role == refresh.RoleWaiter && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return c.fail(ctx, cl, nil, err)
	}
	return c.sessionExpired(ctx, cl, role == refresh.RoleLeader, err)
}

func (c *Client) sessionExpired(ctx context.Context, cl *call, leader bool, cause error) error {
	c.metrics.Inc(MetricSessionExpired)
	c.metrics.Inc(MetricRequestFailure)

	reqErr := &RequestError{
		Message: MessageSessionExpired,
		Status:  http.StatusUnauthorized,
		Method:  cl.method,
		URL:     cl.url,
		kind:    ErrSessionExpired,
		cause:   cause,
	}

	// The report happens once per ended session: on the leader, and not again for a
	// request that arrives after the session was already cleared.
	if leader && !errors.Is(cause, flows.ErrSessionEnded) {
		logctx.FromOr(ctx, c.logger).ErrorContext(ctx, "goDesk: session expired",
			slog.String("url", cl.url),
			slog.String("method", cl.method),
			slog.String("request_id", cl.requestID),
			slog.String("cause", errString(cause)),
		)
		c.emit(ctx, cl, LevelError, MessageSessionExpired, http.StatusUnauthorized)
	}
	return reqErr
}

// fail normalizes a non-2xx response or a transport error into a *RequestError, logs it
// and reports it to the user unless the call is a login or registration.
func (c *Client) fail(ctx context.Context, cl *call, resp *Response, cause error) error {
	c.metrics.Inc(MetricRequestFailure)

	reqErr := &RequestError{
		Method: cl.method,
		URL:    cl.url,
		cause:  cause,
	}

	if resp == nil {
		c.metrics.Inc(MetricNetworkError)
		reqErr.kind = ErrNetwork
		reqErr.Message = firstNonEmpty(errString(cause), MessageFallback)
	} else {
		eb := parseErrorBody(resp.Body)
		reqErr.kind = ErrRequestFailed
		reqErr.Status = resp.StatusCode
		reqErr.Code = eb.Code
		reqErr.Message = firstNonEmpty(eb.Error, eb.Message, fmt.Sprintf("Request failed with status code %d", resp.StatusCode))
	}

	logctx.FromOr(ctx, c.logger).ErrorContext(ctx, "goDesk: request failed",
		slog.String("url", cl.url),
		slog.String("method", cl.method),
		slog.Int("status", reqErr.Status),
		slog.String("request_id", cl.requestID),
		slog.String("message", reqErr.Message),
	)

	// A request abandoned by its caller, cancelled or past its deadline, is not reported.
	if c.isAuthEndpoint(cl.path) || ctx.Err() != nil || errors.Is(cause, context.Canceled) {
		return reqErr
	}
	msg := reqErr.Message
	if reqErr.Status == 0 {
		msg = MessageNetwork
	}
	c.emit(ctx, cl, LevelError, msg, reqErr.Status)
	return reqErr
}

func (c *Client) emit(ctx context.Context, cl *call, level Level, msg string, status int) {
	if notificationsSuppressed(ctx) {
		return
	}
	c.metrics.Inc(MetricNotification)
	c.notifier.Emit(ctx, Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   msg,
		Duration:  level.Duration(),
		Timestamp: c.now(),
		Status:    status,
		Path:      cl.path,
	})
}

/*
====================================
REQUEST CONSTRUCTION
====================================
*/

func (c *Client) newCall(method, path string, body any, header http.Header) (*call, error) {
	if method == "" {
		method = http.MethodGet
	}
	payload, contentType, err := encodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	requestID := h.Get(HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return &call{
		method:      method,
		url:         c.resolve(path),
		path:        path,
		payload:     payload,
		contentType: contentType,
		header:      h,
		requestID:   requestID,
	}, nil
}

func (c *Client) resolve(path string) string {
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return b, "", nil
	case string:
		return []byte(b), "", nil
	case url.Values:
		return []byte(b.Encode()), "application/x-www-form-urlencoded", nil
	case Multipart:
		return b.encode()
	case *Multipart:
		return b.encode()
	case io.Reader:
		data, err := io.ReadAll(b)
		return data, "", err
	default:
		data, err := json.Marshal(b)
		return data, "application/json", err
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

/*
====================================
SESSION & LIFECYCLE
====================================
*/

// Initialize rehydrates the session from storage. Call it once at startup.
func (c *Client) Initialize(ctx context.Context) error {
	return c.store.Initialize(ctx)
}

// Session returns the session store backing the client.
func (c *Client) Session() *session.Store {
	return c.store
}

// IsAuthenticated reports whether an access token is held.
func (c *Client) IsAuthenticated() bool {
	return c.store.IsAuthenticated()
}

// Metrics returns the client's counters. The result is nil-safe.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// MetricsSnapshot returns a point-in-time copy of the client's metrics.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// RefreshState reports whether a refresh is in flight and how many requests wait on it.
func (c *Client) RefreshState() (refresh.State, int) {
	return c.coordinator.State(), c.coordinator.Pending()
}

// NotificationsDropped returns how many notifications the async dispatcher discarded.
func (c *Client) NotificationsDropped() uint64 {
	return c.notifier.Dropped()
}

// Close flushes pending notifications and releases resources the Builder created.
// Requests issued after Close fail with ErrClosed.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.notifier.Close()
	if c.ownedRedis != nil {
		return c.ownedRedis.Close()
	}
	return nil
}
