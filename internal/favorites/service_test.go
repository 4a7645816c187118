package favorites

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sudo-init-do/efresco/internal/gateway/gatewaytest"
)

// favStore is a tiny favorites backend.
type favStore struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]map[string]any
}

func newFavStore(srv *gatewaytest.Server) *favStore {
	fs := &favStore{nextID: 1, items: map[int64]map[string]any{}}
	srv.Handle("GET favoritos", func(gatewaytest.Call) (int, any) {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		list := []map[string]any{}
		for _, f := range fs.items {
			list = append(list, f)
		}
		return http.StatusOK, map[string]any{"favoritos": list, "total": len(list)}
	})
	srv.Handle("POST favoritos", func(c gatewaytest.Call) (int, any) {
		var body map[string]int64
		if err := c.JSON(&body); err != nil {
			return http.StatusBadRequest, map[string]string{"error": "bad body"}
		}
		fs.mu.Lock()
		defer fs.mu.Unlock()
		id := fs.nextID
		fs.nextID++
		fav := map[string]any{"id_favorito": id}
		if p, ok := body["id_producto"]; ok {
			fav["tipo"] = KindProduct
			fav["producto"] = map[string]any{"id": p, "nombre": "Papa"}
		} else {
			fav["tipo"] = KindSaleAd
			fav["anuncio_venta"] = map[string]any{"id": body["id_anuncio_venta"], "precio": 2.5}
		}
		fs.items[id] = fav
		return http.StatusCreated, map[string]string{"mensaje": "Agregado a favoritos"}
	})
	return fs
}

// handleDelete registers DELETE favoritos/{id} for the ids the store may hand out.
func (fs *favStore) handleDelete(srv *gatewaytest.Server, upTo int) {
	for i := 1; i <= upTo; i++ {
		id := int64(i)
		srv.Handle("DELETE favoritos/"+strconv.Itoa(i), func(gatewaytest.Call) (int, any) {
			fs.mu.Lock()
			defer fs.mu.Unlock()
			if _, ok := fs.items[id]; !ok {
				return http.StatusNotFound, map[string]string{"error": "no existe"}
			}
			delete(fs.items, id)
			return http.StatusOK, map[string]string{}
		})
	}
}

func newService(t *testing.T) (*Service, *gatewaytest.Server) {
	srv := gatewaytest.NewServer(t)
	return NewService(srv.Client(), zaptest.NewLogger(t)), srv
}

func TestToggleProductTwiceRestoresState(t *testing.T) {
	svc, srv := newService(t)
	fs := newFavStore(srv)
	fs.handleDelete(srv, 5)
	ctx := context.Background()

	require.False(t, svc.IsProductFavorite(ctx, 3))

	on, err := svc.ToggleProduct(ctx, 3)
	require.NoError(t, err)
	assert.True(t, on.Favorite)
	assert.Equal(t, "Agregado a favoritos", on.Message)
	assert.True(t, svc.IsProductFavorite(ctx, 3))

	off, err := svc.ToggleProduct(ctx, 3)
	require.NoError(t, err)
	assert.False(t, off.Favorite)
	assert.Equal(t, "Eliminado de favoritos", off.Message, "empty answer gets the default message")
	assert.False(t, svc.IsProductFavorite(ctx, 3))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list.Favorites)
}

func TestToggleSaleAdTwiceRestoresState(t *testing.T) {
	svc, srv := newService(t)
	fs := newFavStore(srv)
	fs.handleDelete(srv, 5)
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, 3)
	require.NoError(t, err)

	on, err := svc.ToggleSaleAd(ctx, 8)
	require.NoError(t, err)
	assert.True(t, on.Favorite)
	assert.True(t, svc.IsSaleAdFavorite(ctx, 8))
	assert.False(t, svc.IsSaleAdFavorite(ctx, 3), "product ids do not count as listings")

	off, err := svc.ToggleSaleAd(ctx, 8)
	require.NoError(t, err)
	assert.False(t, off.Favorite)
	assert.False(t, svc.IsSaleAdFavorite(ctx, 8))
	assert.True(t, svc.IsProductFavorite(ctx, 3), "other favorites are untouched")

	var body map[string]int64
	calls := srv.Calls()
	for _, c := range calls {
		if c.Method == http.MethodPost && strings.Contains(string(c.Body), "id_anuncio_venta") {
			require.NoError(t, c.JSON(&body))
		}
	}
	assert.Equal(t, int64(8), body["id_anuncio_venta"])
}

func TestChecksAreFalseOnError(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply("GET favoritos", http.StatusUnauthorized, map[string]string{"error": "token requerido"})

	assert.False(t, svc.IsProductFavorite(context.Background(), 1))
	assert.False(t, svc.IsSaleAdFavorite(context.Background(), 1))

	_, err := svc.ToggleProduct(context.Background(), 1)
	assert.Error(t, err)
	for _, c := range srv.Calls() {
		assert.Equal(t, http.MethodGet, c.Method, "nothing is changed when the list fails")
	}
}
