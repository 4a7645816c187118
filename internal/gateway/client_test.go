package gateway

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sudo-init-do/efresco/internal/config"
	"github.com/sudo-init-do/efresco/internal/notify"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

// backend is a scriptable fake: each call to an API path pops the next status
// from script (200 once the script is exhausted), health answers healthStatus.
type backend struct {
	mu           sync.Mutex
	script       []int
	healthStatus int
	apiCalls     atomic.Int32
	healthCalls  atomic.Int32
	requestIDs   []string
	server       *httptest.Server
}

func newBackend(t *testing.T, healthStatus int, script ...int) *backend {
	b := &backend{script: script, healthStatus: healthStatus}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/api/health" {
			b.healthCalls.Add(1)
			w.WriteHeader(b.healthStatus)
			_, _ = io.WriteString(w, `{"status":"ok"}`)
			return
		}
		b.apiCalls.Add(1)
		b.mu.Lock()
		b.requestIDs = append(b.requestIDs, r.Header.Get("X-Request-ID"))
		status := http.StatusOK
		if len(b.script) > 0 {
			status, b.script = b.script[0], b.script[1:]
		}
		b.mu.Unlock()
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = io.WriteString(w, `{"source":"live"}`)
			return
		}
		_, _ = io.WriteString(w, `{"error":"boom"}`)
	}))
	t.Cleanup(b.server.Close)
	return b
}

func (b *backend) url() string { return b.server.URL + "/api" }

func testConfig(u string) config.APIConfig {
	return config.APIConfig{
		URL:         u,
		Timeout:     2 * time.Second,
		WakeRetries: 3,
		WakeBackoff: time.Millisecond,
		Fallback:    true,
	}
}

func demoFallbacks() *Fallbacks {
	return NewFallbacks().
		Handle(http.MethodPost, "chat/{id}/mensajes", func(req Request, params []string) (any, error) {
			return map[string]any{"sent": params[0]}, nil
		}).
		Handle("", "chat/{id}/mensajes", func(req Request, params []string) (any, error) {
			return map[string]any{"chat": params[0]}, nil
		}).
		Handle("", "productos", func(Request, []string) (any, error) {
			return map[string]any{"source": "demo"}, nil
		})
}

func titles(c *notify.Center) []string {
	var out []string
	for _, n := range c.History() {
		out = append(out, n.Title)
	}
	return out
}

func TestDoSendsHeadersAndQuery(t *testing.T) {
	var got *http.Request
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL+"/api"), WithTokenSource(staticToken("tok-1")), WithLogger(zaptest.NewLogger(t)))

	var out struct {
		OK bool `json:"ok"`
	}
	resp, err := c.Post(context.Background(), "/productos/", map[string]any{"nombre": "Papa"}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.False(t, resp.Fallback)

	assert.Equal(t, "/api/productos", got.URL.Path)
	assert.Equal(t, "Bearer tok-1", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.Contains(t, got.Header.Get("Content-Type"), "application/json")
	assert.NotEmpty(t, got.Header.Get("X-Request-ID"))
	assert.Equal(t, "Papa", body["nombre"])

	_, err = c.Get(context.Background(), "productos", url.Values{"page": {"2"}, "search": {"papa"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "2", got.URL.Query().Get("page"))
	assert.Equal(t, "papa", got.URL.Query().Get("search"))
}

func TestDoWithoutTokenSendsNoAuthorization(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL+"/api"), WithTokenSource(staticToken("")))
	_, err := c.Get(context.Background(), "productos", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, auth)
}

func TestClientErrorIsReturnedWithoutWake(t *testing.T) {
	b := newBackend(t, http.StatusOK, http.StatusNotFound)
	center := notify.NewCenter(nil)
	c := New(testConfig(b.url()), WithNotifier(center), WithFallbacks(demoFallbacks()))

	_, err := c.Get(context.Background(), "productos", nil, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "boom", apiErr.Message())
	assert.False(t, Asleep(err))
	assert.EqualValues(t, 0, b.healthCalls.Load())
	assert.Empty(t, center.History())
}

func TestRetryAfterWakeReturnsLiveResponse(t *testing.T) {
	b := newBackend(t, http.StatusOK, http.StatusServiceUnavailable)
	center := notify.NewCenter(nil)
	m := NewMetrics(prometheus.NewRegistry())
	c := New(testConfig(b.url()), WithNotifier(center), WithFallbacks(demoFallbacks()), WithMetrics(m))

	var out map[string]string
	resp, err := c.Get(context.Background(), "productos", nil, &out)
	require.NoError(t, err)

	assert.False(t, resp.Fallback)
	assert.Equal(t, "live", out["source"])
	assert.EqualValues(t, 2, b.apiCalls.Load())
	assert.EqualValues(t, 1, b.healthCalls.Load())
	assert.Equal(t, []string{"Conectando al servidor", "Conexión establecida"}, titles(center))

	require.Len(t, b.requestIDs, 2)
	assert.Equal(t, b.requestIDs[0], b.requestIDs[1])

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, OutcomeRetried)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.wakes.WithLabelValues("success")))
}

func TestFallbackWhenWakeFails(t *testing.T) {
	b := newBackend(t, http.StatusServiceUnavailable, http.StatusServiceUnavailable)
	center := notify.NewCenter(nil)
	m := NewMetrics(prometheus.NewRegistry())
	c := New(testConfig(b.url()), WithNotifier(center), WithFallbacks(demoFallbacks()), WithMetrics(m))

	var out map[string]string
	resp, err := c.Get(context.Background(), "productos", nil, &out)
	require.NoError(t, err)

	assert.True(t, resp.Fallback)
	assert.Equal(t, "productos", resp.Pattern)
	assert.Equal(t, "demo", out["source"])
	assert.EqualValues(t, 1, b.apiCalls.Load(), "no retry after a failed wake")
	assert.EqualValues(t, 4, b.healthCalls.Load(), "first probe plus three retries")
	assert.Equal(t, []string{"Conectando al servidor", "Modo offline", "Sin conexión"}, titles(center))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbacks.WithLabelValues("productos")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.wakes.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, OutcomeFallback)))
}

func TestFallbackWhenRetryFails(t *testing.T) {
	b := newBackend(t, http.StatusOK, http.StatusBadGateway, http.StatusInternalServerError)
	c := New(testConfig(b.url()), WithFallbacks(demoFallbacks()))

	var out map[string]string
	resp, err := c.Post(context.Background(), "chat/7/mensajes", map[string]string{"contenido": "hola"}, &out)
	require.NoError(t, err)
	assert.True(t, resp.Fallback)
	assert.Equal(t, "7", out["sent"])
	assert.EqualValues(t, 2, b.apiCalls.Load())
}

func TestFallbackKeyedOnMethod(t *testing.T) {
	b := newBackend(t, http.StatusServiceUnavailable, http.StatusServiceUnavailable)
	c := New(testConfig(b.url()), WithFallbacks(demoFallbacks()))

	var out map[string]string
	_, err := c.Get(context.Background(), "chat/3/mensajes", url.Values{"page": {"1"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "3", out["chat"])
}

func TestNoFallbackSurfacesError(t *testing.T) {
	b := newBackend(t, http.StatusServiceUnavailable, http.StatusServiceUnavailable)
	c := New(testConfig(b.url()), WithFallbacks(demoFallbacks()))

	_, err := c.Get(context.Background(), "favoritos", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoFallback)
	assert.Contains(t, err.Error(), "favoritos")
	assert.True(t, Asleep(err))
}

func TestFallbackDisabled(t *testing.T) {
	b := newBackend(t, http.StatusServiceUnavailable, http.StatusServiceUnavailable)
	cfg := testConfig(b.url())
	cfg.Fallback = false
	c := New(cfg, WithFallbacks(demoFallbacks()))

	_, err := c.Get(context.Background(), "productos", nil, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoFallback)
}

func TestTransportFailureCountsAsAsleep(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	dead := srv.URL + "/api"
	srv.Close()

	cfg := testConfig(dead)
	cfg.WakeRetries = 1
	c := New(cfg, WithFallbacks(demoFallbacks()))

	var out map[string]string
	resp, err := c.Get(context.Background(), "productos", nil, &out)
	require.NoError(t, err)
	assert.True(t, resp.Fallback)
	assert.Equal(t, "demo", out["source"])
}

func TestWakeUsesFixedBackoff(t *testing.T) {
	b := newBackend(t, http.StatusServiceUnavailable)
	cfg := testConfig(b.url())
	cfg.WakeBackoff = 2 * time.Second
	c := New(cfg)

	var waits []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	err := c.Wake(context.Background())
	require.Error(t, err)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}, waits)
}

func TestConcurrentCallersShareOneWake(t *testing.T) {
	entered := make(chan struct{}, 8)
	release := make(chan struct{})
	var healthCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		healthCalls.Add(1)
		entered <- struct{}{}
		<-release
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL + "/api"))

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	wake := func() {
		defer wg.Done()
		errs <- c.Wake(context.Background())
	}

	wg.Add(1)
	go wake()
	<-entered

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go wake()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, healthCalls.Load())
}

func TestCanceledContextSkipsFallback(t *testing.T) {
	b := newBackend(t, http.StatusOK)
	c := New(testConfig(b.url()), WithFallbacks(demoFallbacks()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Get(ctx, "productos", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUploadBypassesWakeAndFallback(t *testing.T) {
	var field, filename, content, extra string
	var status atomic.Int32
	status.Store(http.StatusOK)
	var healthCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/health" {
			healthCalls.Add(1)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for name, files := range r.MultipartForm.File {
			field, filename = name, files[0].Filename
			f, _ := files[0].Open()
			data, _ := io.ReadAll(f)
			content = string(data)
		}
		extra = r.FormValue("alt")
		w.WriteHeader(int(status.Load()))
		_, _ = io.WriteString(w, `{"url":"https://cdn/x.png"}`)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL+"/api"), WithFallbacks(demoFallbacks().Handle("", "usuarios/foto-perfil", func(Request, []string) (any, error) {
		return map[string]string{"url": "demo"}, nil
	})))

	var out map[string]string
	_, err := c.Upload(context.Background(), "usuarios/foto-perfil",
		File{Field: "image", Name: "yo.png", Reader: strings.NewReader("PNG")}, map[string]string{"alt": "perfil"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "image", field)
	assert.Equal(t, "yo.png", filename)
	assert.Equal(t, "PNG", content)
	assert.Equal(t, "perfil", extra)
	assert.Equal(t, "https://cdn/x.png", out["url"])

	status.Store(http.StatusServiceUnavailable)
	_, err = c.Upload(context.Background(), "usuarios/foto-perfil", File{Field: "image", Name: "yo.png", Reader: strings.NewReader("PNG")}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, StatusOf(err))
	assert.EqualValues(t, 0, healthCalls.Load())
}

func TestWithHTTPClientLeavesCallerClientAlone(t *testing.T) {
	hc := &http.Client{Timeout: time.Minute}
	New(testConfig("http://127.0.0.1/api"), WithHTTPClient(hc))
	assert.Equal(t, time.Minute, hc.Timeout)
}

func TestMoneyEncodingIsOptIn(t *testing.T) {
	t.Cleanup(func() { decimal.MarshalJSONWithoutQuotes = false })
	price := decimal.RequireFromString("2.5")

	raw, err := json.Marshal(price)
	require.NoError(t, err)
	assert.Equal(t, `"2.5"`, string(raw))

	UseNumericMoney()
	raw, err = json.Marshal(price)
	require.NoError(t, err)
	assert.Equal(t, `2.5`, string(raw))
}
