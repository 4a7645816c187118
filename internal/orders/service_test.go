package orders

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sudo-init-do/efresco/internal/gateway"
	"github.com/sudo-init-do/efresco/internal/gateway/gatewaytest"
	"github.com/sudo-init-do/efresco/internal/session"
	"github.com/sudo-init-do/efresco/internal/user"
	"github.com/sudo-init-do/efresco/internal/validation"
)

func TestMain(m *testing.M) {
	gateway.UseNumericMoney()
	m.Run()
}

func newService(t *testing.T, me *user.User) (*Service, *gatewaytest.Server) {
	srv := gatewaytest.NewServer(t)
	store := session.NewMemory()
	if me != nil {
		require.NoError(t, store.SetUser(me))
	}
	return NewService(srv.Client(), store, zaptest.NewLogger(t)), srv
}

func TestStatusDescription(t *testing.T) {
	assert.Equal(t, "Esperando confirmación del vendedor", StatusDescription(StatusPending))
	assert.Equal(t, "Pedido entregado", StatusDescription(StatusCompleted))
	assert.Equal(t, "reembolsado", StatusDescription("reembolsado"))
	assert.False(t, ValidStatus("reembolsado"))
}

func TestCreateValidates(t *testing.T) {
	svc, srv := newService(t, nil)

	_, err := svc.Create(context.Background(), CreateInput{BuyerID: 1, SellerID: 2, AdKind: "trueque", AdID: 3})
	require.Error(t, err)
	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("monto_total"))
	assert.True(t, verr.Has("tipo_anuncio"))
	assert.Empty(t, srv.Calls())
}

func TestCreate(t *testing.T) {
	svc, srv := newService(t, nil)
	srv.Reply("POST pedidos", http.StatusCreated, map[string]any{
		"mensaje": "Pedido creado exitosamente",
		"pedido":  map[string]any{"id": 77, "monto_total": "1550.00", "estado": "pendiente", "tipo_anuncio": "venta", "id_anuncio": 1},
	})

	res, err := svc.Create(context.Background(), CreateInput{
		BuyerID: 1, SellerID: 2, Total: decimal.RequireFromString("1550.00"), AdKind: "venta", AdID: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(77), res.Order.ID)
	assert.Equal(t, StatusPending, res.Order.Status)

	var body map[string]any
	require.NoError(t, srv.Last().JSON(&body))
	assert.Equal(t, float64(1550), body["monto_total"])
	assert.Equal(t, "venta", body["tipo_anuncio"])
}

func TestMineMapsBackendShape(t *testing.T) {
	svc, srv := newService(t, &user.User{ID: 5, Name: "Juan Carlos"})
	srv.Reply("GET pedidos/usuario/5", http.StatusOK, map[string]any{
		"success": true,
		"data": []map[string]any{{
			"id_pedido":              12,
			"id_comprador":           5,
			"id_vendedor":            2,
			"id_anuncio":             8,
			"tipo_anuncio":           "venta",
			"monto_total":            "280.00",
			"estado":                 "confirmado",
			"fecha":                  "2025-11-23T12:00:00Z",
			"verificado_manualmente": false,
			"notas_verificacion":     nil,
			"Comprador":              map[string]any{"id_usuario": 5, "nombre": "Juan Carlos"},
			"Vendedor":               map[string]any{"id_usuario": 2, "nombre": "María González", "telefono": "71234567"},
		}},
		"pagination": map[string]any{"currentPage": 1, "totalPages": 1, "totalItems": 1, "itemsPerPage": 10},
	})

	page, err := svc.Mine(context.Background(), "", 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)

	o := page.Orders[0]
	assert.Equal(t, int64(12), o.ID)
	assert.True(t, o.Total.Equal(decimal.NewFromInt(280)))
	require.NotNil(t, o.Seller)
	assert.Equal(t, "María González", o.Seller.Name)
	assert.Equal(t, "71234567", o.Seller.Phone)
	assert.Nil(t, o.VerifyNotes)
	assert.Equal(t, 1, page.Pagination.TotalItems)

	q := srv.Last().Query
	assert.Equal(t, "todos", q.Get("tipo"))
	assert.Equal(t, "1", q.Get("page"))
	assert.Equal(t, "10", q.Get("limit"))

	_, err = svc.Mine(context.Background(), "intermediario", 1, 10)
	assert.Error(t, err)
}

func TestMineNeedsLogin(t *testing.T) {
	svc, srv := newService(t, nil)
	_, err := svc.Mine(context.Background(), AsBuyer, 1, 10)
	assert.ErrorIs(t, err, session.ErrNotLoggedIn)
	assert.Empty(t, srv.Calls())
}

func TestStatusTransitions(t *testing.T) {
	svc, srv := newService(t, nil)
	srv.Reply("PUT pedidos/3/estado", http.StatusOK, map[string]any{"mensaje": "ok"})
	srv.Reply("PUT pedidos/3/cancelar", http.StatusOK, map[string]any{"mensaje": "cancelado"})
	srv.Reply("PATCH pedidos/3/verificar", http.StatusOK, map[string]any{"mensaje": "verificado"})
	srv.Reply("POST pedidos/3/simular-pago", http.StatusOK, map[string]any{"mensaje": "pagado"})

	_, err := svc.UpdateStatus(context.Background(), 3, StatusInProgress)
	require.NoError(t, err)
	var body map[string]string
	require.NoError(t, srv.Last().JSON(&body))
	assert.Equal(t, "en_proceso", body["estado"])

	_, err = svc.UpdateStatus(context.Background(), 3, "perdido")
	require.Error(t, err)

	_, err = svc.Cancel(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "pedidos/3/cancelar", srv.Last().Path)

	_, err = svc.Verify(context.Background(), 3, true, "transferencia confirmada")
	require.NoError(t, err)
	var verify map[string]any
	require.NoError(t, srv.Last().JSON(&verify))
	assert.Equal(t, true, verify["verificado_manualmente"])
	assert.Equal(t, "transferencia confirmada", verify["notas_verificacion"])

	_, err = svc.SimulatePayment(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, srv.Last().Method)
}
