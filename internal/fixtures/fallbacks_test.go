package fixtures

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sudo-init-do/efresco/internal/chat"
	"github.com/sudo-init-do/efresco/internal/config"
	"github.com/sudo-init-do/efresco/internal/gateway"
	"github.com/sudo-init-do/efresco/internal/orders"
	"github.com/sudo-init-do/efresco/internal/products"
	"github.com/sudo-init-do/efresco/internal/reputation"
)

var fixedNow = time.Date(2025, 11, 24, 10, 0, 0, 0, time.UTC)

func fixedStamp() Stamp {
	return Stamp{
		Now: func() time.Time { return fixedNow },
		ID:  func(lo, _ int64) int64 { return lo + 41 },
	}
}

type me int64

func (m me) UserID() (int64, error) { return int64(m), nil }

// offlineClient talks to a backend that answers 503 to everything, health
// included, so every call ends in the demo table.
func offlineClient(t *testing.T) *gateway.Client {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	return gateway.New(config.APIConfig{
		URL:         srv.URL + "/api",
		Timeout:     time.Second,
		WakeRetries: 0,
		WakeBackoff: time.Millisecond,
		Fallback:    true,
	}, gateway.WithFallbacks(NewOffline(MustLoad(), fixedStamp()).Fallbacks()), gateway.WithLogger(zaptest.NewLogger(t)))
}

func TestDatasetLoads(t *testing.T) {
	ds, err := Load()
	require.NoError(t, err)
	assert.Len(t, ds.Products, 5)
	assert.Equal(t, 25, ds.ProductsPagination.Total)
	assert.Len(t, ds.Orders, 3)
	assert.Equal(t, "mock_token_for_offline_demo", ds.Login.Token)

	for _, a := range ds.Users {
		assert.Equal(t, DemoPassword, a.Password, a.Email)
	}

	c, ok := ds.Chat(1)
	require.True(t, ok)
	require.NotNil(t, c.LastMessage)
	assert.Equal(t, int64(4), c.LastMessage.ID)
	assert.False(t, c.LastMessage.Read)

	ds.Products[0].Name = "cambiado"
	assert.Equal(t, "Papa blanca", MustLoad().Products[0].Name, "every load is a fresh copy")
}

func TestEveryTableRouteMatches(t *testing.T) {
	fb := Fallbacks()
	cases := []struct {
		method, path, pattern string
	}{
		{"GET", "productos", "productos"},
		{"GET", "/productos/3/", "productos/{id}"},
		{"POST", "pedidos", "pedidos"},
		{"GET", "pedidos/usuario/1", "pedidos/usuario/{id}"},
		{"GET", "pedidos/2", "pedidos/{id}"},
		{"GET", "chats", "chats"},
		{"POST", "chat", "chat"},
		{"POST", "chat/1/mensajes", "chat/{id}/mensajes"},
		{"GET", "chat/1/mensajes?page=1", "chat/{id}/mensajes"},
		{"PUT", "chat/1/mensajes/marcar-leidos", "chat/{id}/mensajes/marcar-leidos"},
		{"POST", "reputacion", "reputacion"},
		{"GET", "reputacion/usuario/2", "reputacion/usuario/{id}"},
		{"GET", "reputacion/mis-calificaciones", "reputacion/mis-calificaciones"},
		{"GET", "reputacion/puede-calificar/3/4", "reputacion/puede-calificar/{pedido}/{usuario}"},
		{"GET", "reputacion/pendientes", "reputacion/pendientes"},
		{"POST", "auth/login", "auth/login"},
		{"POST", "usuarios/login", "usuarios/login"},
	}
	for _, tc := range cases {
		pattern, _, _, ok := fb.Match(tc.method, tc.path)
		if assert.True(t, ok, tc.path) {
			assert.Equal(t, tc.pattern, pattern, tc.path)
		}
	}

	_, _, _, ok := fb.Match("GET", "favoritos")
	assert.False(t, ok)
}

func TestOfflineProducts(t *testing.T) {
	svc := products.NewService(offlineClient(t), zaptest.NewLogger(t))

	list, err := svc.List(context.Background(), products.Query{})
	require.NoError(t, err)
	require.Len(t, list.Products, 5)
	assert.Equal(t, "2.5", list.Products[0].Price.String())
	assert.Equal(t, 3, list.Pagination.Pages)

	p, err := svc.Get(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "Tomate Cherry", p.Name)

	p, err = svc.Get(context.Background(), 99)
	require.NoError(t, err)
	assert.Equal(t, "Papa blanca", p.Name, "unknown ids get the first product")
}

func TestOfflineOrders(t *testing.T) {
	svc := orders.NewService(offlineClient(t), me(1), zaptest.NewLogger(t))

	page, err := svc.Mine(context.Background(), orders.AsAny, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Orders, 3)
	first := page.Orders[0]
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, "María González", first.Seller.Name)
	require.NotNil(t, first.Ad)
	assert.Equal(t, "Papa blanca", first.Ad.Product.Name)
	assert.Equal(t, "280", first.Total.String())

	created, err := svc.Create(context.Background(), orders.CreateInput{
		BuyerID: 1, SellerID: 3, Total: first.Total, AdKind: "venta", AdID: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), created.Order.ID)
	assert.Equal(t, int64(3), created.Order.SellerID, "request fields are echoed")
	assert.Equal(t, orders.StatusPending, created.Order.Status)
	assert.Equal(t, "2025-11-24T10:00:00Z", created.Order.OrderedAt)
}

func TestOfflineChat(t *testing.T) {
	svc := chat.NewService(offlineClient(t), zaptest.NewLogger(t))
	ctx := context.Background()

	chats, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "Carlos Mendoza", chat.OtherParticipant(chats[1], 1).Name)

	page, err := svc.Messages(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 4)

	page, err = svc.Messages(ctx, 77, 1)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)

	msg, err := svc.Send(ctx, 1, "¿Sigue disponible?", "")
	require.NoError(t, err)
	assert.Equal(t, "¿Sigue disponible?", msg.Content)
	assert.Equal(t, int64(51), msg.ID)
	assert.Equal(t, int64(1), msg.ChatID)

	require.NoError(t, svc.MarkRead(ctx, 1))
}

func TestOfflineReputation(t *testing.T) {
	svc := reputation.NewService(offlineClient(t), zaptest.NewLogger(t))
	ctx := context.Background()

	rep, err := svc.User(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Carlos Mendoza", rep.User.Name)
	assert.Equal(t, 4.7, rep.Stats.Average)
	require.Len(t, rep.Recent, 3)
	assert.Equal(t, int64(3), rep.Recent[0].RatedID)

	rep, err = svc.User(ctx, 40)
	require.NoError(t, err)
	assert.Equal(t, "María González", rep.User.Name)

	mine, err := svc.Mine(ctx)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	ok, err := svc.CanRate(ctx, 3, 4)
	require.NoError(t, err)
	assert.True(t, ok.CanRate)

	pending, err := svc.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}
