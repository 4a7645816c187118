package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrigin(t *testing.T) {
	assert.Equal(t, "https://efresco-backend.onrender.com", Origin("https://efresco-backend.onrender.com/api"))
	assert.Equal(t, "http://localhost:8080", Origin("http://localhost:8080/api/"))
	assert.Equal(t, "", Origin("not a url"))

	c := New(testConfig("http://127.0.0.1:9000/api"))
	assert.Equal(t, "http://127.0.0.1:9000", c.Origin())
}

func TestResolveAsset(t *testing.T) {
	const origin = "https://efresco-backend.onrender.com"
	const placeholder = "/assets/images/producto-placeholder.svg"

	cases := []struct {
		name, ref, want string
	}{
		{"empty", "", placeholder},
		{"blank", "  ", placeholder},
		{"relative", "/uploads/productos/1/papa.jpg", origin + "/uploads/productos/1/papa.jpg"},
		{"absolute", "https://cdn.example.com/papa.jpg", "https://cdn.example.com/papa.jpg"},
		{"foreign http", "http://cdn.example.com/papa.jpg", "http://cdn.example.com/papa.jpg"},
		{"own http", "http://efresco-backend.onrender.com/uploads/a.jpg", origin + "/uploads/a.jpg"},
		{"protocol relative", "//cdn.example.com/papa.jpg", "//cdn.example.com/papa.jpg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveAsset(origin, tc.ref, placeholder))
		})
	}

	assert.Equal(t, "http://efresco-backend.onrender.com/a.jpg",
		ResolveAsset("http://localhost:8080", "http://efresco-backend.onrender.com/a.jpg", placeholder))
}
