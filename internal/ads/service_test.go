package ads

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sudo-init-do/efresco/internal/gateway/gatewaytest"
	"github.com/sudo-init-do/efresco/internal/products"
	"github.com/sudo-init-do/efresco/internal/validation"
)

func newService(t *testing.T) (*Service, *gatewaytest.Server) {
	srv := gatewaytest.NewServer(t)
	return NewService(srv.Client(), zaptest.NewLogger(t)), srv
}

func validSale() SaleInput {
	return SaleInput{
		ProductID:   1,
		Quantity:    decimal.NewFromInt(500),
		Unit:        "kg",
		Price:       decimal.RequireFromString("2.50"),
		Description: "Papa blanca de altura",
		Location:    "La Paz",
	}
}

func TestCreateSaleRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SaleInput)
		field  string
	}{
		{name: "product", mutate: func(in *SaleInput) { in.ProductID = 0 }, field: "id_producto"},
		{name: "quantity", mutate: func(in *SaleInput) { in.Quantity = decimal.Zero }, field: "cantidad"},
		{name: "tiny quantity", mutate: func(in *SaleInput) { in.Quantity = decimal.RequireFromString("0.05") }, field: "cantidad"},
		{name: "unit", mutate: func(in *SaleInput) { in.Unit = "" }, field: "unidad"},
		{name: "price", mutate: func(in *SaleInput) { in.Price = decimal.Zero }, field: "precio"},
		{name: "description", mutate: func(in *SaleInput) { in.Description = "" }, field: "descripcion"},
		{name: "location", mutate: func(in *SaleInput) { in.Location = "" }, field: "ubicacion"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, srv := newService(t)
			in := validSale()
			tt.mutate(&in)

			_, err := svc.CreateSale(context.Background(), in)
			require.Error(t, err)
			var verr *validation.Error
			require.True(t, errors.As(err, &verr))
			assert.True(t, verr.Has(tt.field), verr.Error())
			assert.Empty(t, srv.Calls(), "nothing is sent for an invalid listing")
		})
	}
}

func TestCreateSale(t *testing.T) {
	svc, srv := newService(t)
	srv.Handle("POST anuncios/venta", func(c gatewaytest.Call) (int, any) {
		return http.StatusCreated, map[string]any{
			"mensaje": "Anuncio creado",
			"anuncio": map[string]any{"id": 31, "cantidad": 500, "precio": "2.50", "unidad": "kg", "estado": "activo"},
		}
	})

	res, err := svc.CreateSale(context.Background(), validSale())
	require.NoError(t, err)
	assert.Equal(t, int64(31), res.Ad.ID)
	assert.True(t, res.Ad.Price.Equal(decimal.RequireFromString("2.5")))

	var body map[string]any
	require.NoError(t, srv.Last().JSON(&body))
	assert.Equal(t, float64(1), body["id_producto"])
	assert.Equal(t, "La Paz", body["ubicacion"])
	assert.NotContains(t, body, "ubicacion_lat")
}

func TestCreatePurchaseRejectsMissingFields(t *testing.T) {
	svc, srv := newService(t)
	_, err := svc.CreatePurchase(context.Background(), PurchaseInput{ProductID: 2, Unit: "kg"})
	require.Error(t, err)

	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("cantidad"))
	assert.True(t, verr.Has("precio_ofertado"))
	assert.True(t, verr.Has("descripcion"))
	assert.Empty(t, srv.Calls())
}

func TestListSaleQuery(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply("GET anuncios/venta", http.StatusOK, map[string]any{
		"anuncios":   []map[string]any{{"id": 1, "ubicacion": "Cochabamba"}},
		"paginacion": map[string]any{"total": 1, "page": 1, "pages": 1},
	})

	res, err := svc.ByLocation(context.Background(), " Cochabamba ", 2)
	require.NoError(t, err)
	require.Len(t, res.Ads, 1)

	q := srv.Last().Query
	assert.Equal(t, "Cochabamba", q.Get("ubicacion"))
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "20", q.Get("limit"))

	_, err = svc.ByProduct(context.Background(), 5, 1)
	require.NoError(t, err)
	assert.Equal(t, "5", srv.Last().Query.Get("producto_id"))

	_, err = svc.ListSale(context.Background(), Query{Status: "borrado"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestSetSaleStatus(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply("PUT anuncios/venta/9/estado", http.StatusOK, map[string]any{"mensaje": "ok", "anuncio": map[string]any{"id": 9, "estado": "pausado"}})

	res, err := svc.SetSaleStatus(context.Background(), 9, StatusPaused)
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, res.Ad.Status)

	var body map[string]string
	require.NoError(t, srv.Last().JSON(&body))
	assert.Equal(t, "pausado", body["estado"])

	_, err = svc.SetSaleStatus(context.Background(), 9, StatusExpired)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestMyListings(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply("GET anuncios/venta/mis-anuncios", http.StatusOK, map[string]any{"anuncios": []any{}})
	srv.Reply("GET anuncios/compra/mis-anuncios", http.StatusOK, map[string]any{"anuncios": []any{}, "total": 0})
	srv.Reply("GET anuncios/mis-anuncios", http.StatusOK, map[string]any{"anuncios": []any{}})

	_, err := svc.MySale(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, url.Values{"page": {"1"}, "limit": {"20"}}, srv.Last().Query)

	_, err = svc.MyPurchase(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "3", srv.Last().Query.Get("page"))

	_, err = svc.Mine(context.Background(), KindPurchase, 1)
	require.NoError(t, err)
	assert.Equal(t, "compra", srv.Last().Query.Get("tipo"))

	_, err = svc.Mine(context.Background(), "trueque", 1)
	assert.Error(t, err)
}

func TestPurchaseQueries(t *testing.T) {
	svc, srv := newService(t)
	srv.Reply("GET anuncios/compra", http.StatusOK, map[string]any{
		"anuncios": []map[string]any{{"id": 4, "precio_ofertado": 30, "comprador": map[string]any{"id": 2, "nombre": "Hotel Real"}}},
		"total":    1, "page": 1, "pages": 1,
	})

	lo, hi := decimal.NewFromInt(10), decimal.NewFromInt(50)
	res, err := svc.PurchasesByPrice(context.Background(), &lo, &hi, 1)
	require.NoError(t, err)
	require.Len(t, res.Ads, 1)
	assert.Equal(t, "Hotel Real", res.Ads[0].Buyer.Name)
	assert.Equal(t, 1, res.Total)

	q := srv.Last().Query
	assert.Equal(t, "10", q.Get("precio_min"))
	assert.Equal(t, "50", q.Get("precio_max"))

	_, err = svc.ListPurchase(context.Background(), Query{Status: StatusSold})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestWhatsAppLink(t *testing.T) {
	p := Purchase{
		Quantity:   decimal.NewFromInt(200),
		OfferPrice: decimal.RequireFromString("3.5"),
		Product:    &products.Product{Name: "Papa criolla", Unit: "kg"},
		Buyer:      Contact{Name: "Restaurante Sol", Phone: "+591 (712) 345-67"},
	}

	link := WhatsAppLink(p)
	require.True(t, strings.HasPrefix(link, "https://wa.me/59171234567?text="))

	u, err := url.Parse(link)
	require.NoError(t, err)
	text := u.Query().Get("text")
	assert.Contains(t, text, "*Papa criolla*")
	assert.Contains(t, text, "Cantidad solicitada: 200 kg")
	assert.Contains(t, text, "Precio ofertado: $3.5 kg")

	assert.Equal(t, "tel:+591 (712) 345-67", CallLink(p))

	p.Buyer.Phone = ""
	assert.Empty(t, WhatsAppLink(p))
	assert.Empty(t, CallLink(p))
}
