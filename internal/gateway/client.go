// Package gateway is the single path from feature services to the eFresco
// REST API. It attaches the bearer token, wakes a sleeping backend with a
// bounded health-check loop, retries the original call once and, when the
// backend stays down, answers from a table of demo payloads.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sudo-init-do/efresco/internal/config"
	"github.com/sudo-init-do/efresco/internal/notify"
)

// UseNumericMoney makes decimal.Decimal values encode as JSON numbers, the
// form the backend expects. The setting is process-wide; programs call it
// once at startup.
func UseNumericMoney() { decimal.MarshalJSONWithoutQuotes = true }

const healthPath = "/health"

// TokenSource supplies the bearer token for each request. An empty token
// sends no Authorization header.
type TokenSource interface {
	Token() string
}

// API is the surface feature services depend on. *Client implements it.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) (*Response, error)
	Post(ctx context.Context, path string, body, out any) (*Response, error)
	Put(ctx context.Context, path string, body, out any) (*Response, error)
	Patch(ctx context.Context, path string, body, out any) (*Response, error)
	Delete(ctx context.Context, path string, out any) (*Response, error)
	Upload(ctx context.Context, path string, file File, fields map[string]string, out any) (*Response, error)
}

var _ API = (*Client)(nil)

type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

type Response struct {
	Status int
	Body   []byte
	// Fallback is set when Body is demo data rather than a live answer.
	Fallback bool
	Pattern  string
}

// Decode unmarshals the body into out. A nil out or empty body is a no-op.
func (r *Response) Decode(out any) error {
	if out == nil || len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// File is one multipart part for Upload.
type File struct {
	Field  string
	Name   string
	Reader io.Reader
}

type Client struct {
	http      *resty.Client
	cfg       config.APIConfig
	tokens    TokenSource
	notifier  notify.Notifier
	fallbacks *Fallbacks
	metrics   *Metrics
	log       *zap.Logger
	wake      singleflight.Group
	sleep     func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

func WithTokenSource(ts TokenSource) Option { return func(c *Client) { c.tokens = ts } }

func WithNotifier(n notify.Notifier) Option { return func(c *Client) { c.notifier = n } }

func WithFallbacks(f *Fallbacks) Option { return func(c *Client) { c.fallbacks = f } }

func WithMetrics(m *Metrics) Option { return func(c *Client) { c.metrics = m } }

func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// WithHTTPClient swaps the underlying transport, e.g. an httptest client.
// The client is copied, so the configured timeout never leaks into hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		cp := *hc
		c.http = resty.NewWithClient(&cp)
	}
}

// New builds a client for cfg.URL. Fallbacks are only consulted when
// cfg.Fallback is set and a table was given.
func New(cfg config.APIConfig, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := &Client{
		cfg:      cfg,
		notifier: notify.Nop{},
		log:      zap.NewNop(),
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = resty.New()
	}
	c.http.
		SetBaseURL(cfg.URL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetLogger(c.log.Named("resty").Sugar())
	return c
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) (*Response, error) {
	return c.decode(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) (*Response, error) {
	return c.decode(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) (*Response, error) {
	return c.decode(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) (*Response, error) {
	return c.decode(ctx, Request{Method: http.MethodPatch, Path: path, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) (*Response, error) {
	return c.decode(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

func (c *Client) decode(ctx context.Context, req Request, out any) (*Response, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := resp.Decode(out); err != nil {
		return resp, err
	}
	return resp, nil
}

// Do sends req. On a transport failure or 5xx it wakes the backend and
// retries once; if that fails too it serves the endpoint's demo payload.
// Other HTTP errors are returned as *APIError without retrying.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	req.Path = normalizePath(req.Path)
	requestID := uuid.NewString()
	log := c.log.With(zap.String("method", req.Method), zap.String("path", req.Path), zap.String("request_id", requestID))

	resp, err := c.send(ctx, req, requestID)
	if err == nil {
		c.metrics.request(req.Method, OutcomeOK)
		return resp, nil
	}
	if ctx.Err() != nil || !Asleep(err) {
		c.metrics.request(req.Method, OutcomeError)
		return nil, err
	}

	log.Warn("backend probably asleep, waking it", zap.Error(err))
	if werr := c.Wake(ctx); werr != nil {
		if ctx.Err() != nil {
			c.metrics.request(req.Method, OutcomeError)
			return nil, ctx.Err()
		}
		return c.fallback(log, req, werr)
	}

	log.Info("retrying original request")
	resp, err = c.send(ctx, req, requestID)
	if err != nil {
		if ctx.Err() != nil {
			c.metrics.request(req.Method, OutcomeError)
			return nil, ctx.Err()
		}
		log.Error("backend still failing after wake-up", zap.Error(err))
		return c.fallback(log, req, err)
	}
	c.metrics.request(req.Method, OutcomeRetried)
	return resp, nil
}

func (c *Client) send(ctx context.Context, req Request, requestID string) (*Response, error) {
	r := c.request(ctx, requestID)
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}
	return c.execute(r, req.Method, req.Path)
}

func (c *Client) request(ctx context.Context, requestID string) *resty.Request {
	r := c.http.R().SetContext(ctx).SetHeader("X-Request-ID", requestID)
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			r.SetAuthToken(tok)
		}
	}
	return r
}

func (c *Client) execute(r *resty.Request, method, path string) (*Response, error) {
	res, err := r.Execute(method, "/"+path)
	if err != nil {
		return nil, &APIError{Method: method, Path: path, Err: err}
	}
	if !res.IsSuccess() {
		return nil, &APIError{Method: method, Path: path, Status: res.StatusCode(), Body: res.Body()}
	}
	return &Response{Status: res.StatusCode(), Body: res.Body()}, nil
}

// Wake probes the health endpoint until it answers 2xx, at most
// WakeRetries+1 times with a fixed WakeBackoff between probes. Concurrent
// callers share one wake sequence.
func (c *Client) Wake(ctx context.Context) error {
	ch := c.wake.DoChan("wake", func() (any, error) {
		return nil, c.wakeUp(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (c *Client) wakeUp(ctx context.Context) error {
	c.notifier.Show(notify.BackendWaking())

	var err error
	attempts := c.cfg.WakeRetries + 1
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if serr := c.sleep(ctx, c.cfg.WakeBackoff); serr != nil {
				err = serr
				break
			}
		}
		if err = c.Health(ctx); err == nil {
			c.metrics.wake(true)
			c.log.Info("backend online", zap.Int("attempt", i+1))
			c.notifier.Show(notify.BackendOnline())
			return nil
		}
		c.metrics.wake(false)
		c.log.Debug("health probe failed", zap.Int("attempt", i+1), zap.Error(err))
	}

	c.log.Warn("backend wake-up failed", zap.Int("attempts", attempts), zap.Error(err))
	c.notifier.Show(notify.BackendOffline())
	return fmt.Errorf("backend did not wake after %d attempts: %w", attempts, err)
}

// Health sends one GET /health.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.execute(c.request(ctx, uuid.NewString()), http.MethodGet, normalizePath(healthPath))
	return err
}

func (c *Client) fallback(log *zap.Logger, req Request, cause error) (*Response, error) {
	if !c.cfg.Fallback {
		c.metrics.request(req.Method, OutcomeError)
		return nil, cause
	}
	pattern, build, params, ok := c.fallbacks.Match(req.Method, req.Path)
	if !ok {
		c.metrics.request(req.Method, OutcomeError)
		return nil, fmt.Errorf("%w for: %s: %w", ErrNoFallback, req.Path, cause)
	}

	payload, err := build(req, params)
	if err != nil {
		c.metrics.request(req.Method, OutcomeError)
		return nil, errors.Join(fmt.Errorf("build fallback for %s: %w", req.Path, err), cause)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		c.metrics.request(req.Method, OutcomeError)
		return nil, fmt.Errorf("encode fallback for %s: %w", req.Path, err)
	}

	log.Info("serving demo data", zap.String("pattern", pattern))
	c.notifier.Show(notify.Offline())
	c.metrics.fallback(pattern)
	c.metrics.request(req.Method, OutcomeFallback)
	return &Response{Status: http.StatusOK, Body: body, Fallback: true, Pattern: pattern}, nil
}

// Upload posts a multipart form straight to the backend. Uploads are never
// woken, retried or faked.
func (c *Client) Upload(ctx context.Context, path string, file File, fields map[string]string, out any) (*Response, error) {
	path = normalizePath(path)
	r := c.request(ctx, uuid.NewString()).SetFileReader(file.Field, file.Name, file.Reader)
	if len(fields) > 0 {
		r.SetMultipartFormData(fields)
	}
	resp, err := c.execute(r, http.MethodPost, path)
	if err != nil {
		c.metrics.request(http.MethodPost, OutcomeError)
		return nil, err
	}
	c.metrics.request(http.MethodPost, OutcomeOK)
	if err := resp.Decode(out); err != nil {
		return resp, err
	}
	return resp, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
