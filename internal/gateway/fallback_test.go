package gateway

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbacksMatch(t *testing.T) {
	noop := func(Request, []string) (any, error) { return nil, nil }
	f := NewFallbacks().
		Handle("", "productos", noop).
		Handle("", "productos/{id}", noop).
		Handle(http.MethodPost, "chat/{id}/mensajes", noop).
		Handle(http.MethodGet, "chat/{id}/mensajes", noop).
		Handle("", "reputacion/puede-calificar/{pedido}/{usuario}", noop)

	tests := []struct {
		method, path string
		pattern      string
		params       []string
		ok           bool
	}{
		{method: "GET", path: "productos", pattern: "productos", params: []string{}, ok: true},
		{method: "GET", path: "/productos/", pattern: "productos", params: []string{}, ok: true},
		{method: "DELETE", path: "productos/12", pattern: "productos/{id}", params: []string{"12"}, ok: true},
		{method: "GET", path: "productos/abc", ok: false},
		{method: "GET", path: "productos/12/imagen", ok: false},
		{method: "post", path: "chat/4/mensajes", pattern: "chat/{id}/mensajes", params: []string{"4"}, ok: true},
		{method: "PUT", path: "chat/4/mensajes", ok: false},
		{method: "GET", path: "reputacion/puede-calificar/9/2?x=1", pattern: "reputacion/puede-calificar/{pedido}/{usuario}", params: []string{"9", "2"}, ok: true},
		{method: "GET", path: "favoritos", ok: false},
	}

	for _, tt := range tests {
		pattern, fn, params, ok := f.Match(tt.method, tt.path)
		assert.Equal(t, tt.ok, ok, "%s %s", tt.method, tt.path)
		if !tt.ok {
			continue
		}
		require.NotNil(t, fn)
		assert.Equal(t, tt.pattern, pattern)
		assert.Equal(t, tt.params, params)
	}
}

func TestNilFallbacksNeverMatch(t *testing.T) {
	var f *Fallbacks
	_, _, _, ok := f.Match("GET", "productos")
	assert.False(t, ok)
}

func TestPatterns(t *testing.T) {
	noop := func(Request, []string) (any, error) { return nil, nil }
	f := NewFallbacks().Handle("post", "chat", noop).Handle("", "chats", noop)
	assert.Equal(t, []string{"POST chat", "chats"}, f.Patterns())
}

func TestAPIErrorHelpers(t *testing.T) {
	cause := errors.New("connection refused")
	transport := &APIError{Method: "GET", Path: "productos", Err: cause}
	assert.True(t, Asleep(transport))
	assert.ErrorIs(t, transport, cause)
	assert.Equal(t, "GET productos: connection refused", transport.Error())

	gone := &APIError{Method: "GET", Path: "productos", Status: 502}
	assert.True(t, Asleep(gone))
	assert.Equal(t, "GET productos: status 502", gone.Error())

	denied := &APIError{Method: "POST", Path: "usuarios/login", Status: 401, Body: []byte(`{"mensaje":"Credenciales inválidas"}`)}
	assert.False(t, Asleep(denied))
	assert.Equal(t, 401, StatusOf(denied))
	assert.Equal(t, "Credenciales inválidas", denied.Message())
	assert.Equal(t, "POST usuarios/login: status 401: Credenciales inválidas", denied.Error())

	assert.False(t, Asleep(errors.New("plain")))
	assert.Equal(t, 0, StatusOf(errors.New("plain")))
}
