package ads

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sudo-init-do/efresco/internal/gateway"
	"github.com/sudo-init-do/efresco/internal/validation"
)

const pageSize = 20

var ErrInvalidStatus = errors.New("invalid listing status")

// Query filters listing searches. Zero values are not sent.
type Query struct {
	Page      int
	Limit     int
	Search    string
	ProductID int64
	Location  string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	Status    string
}

func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	if q.ProductID > 0 {
		v.Set("producto_id", strconv.FormatInt(q.ProductID, 10))
	}
	if s := strings.TrimSpace(q.Location); s != "" {
		v.Set("ubicacion", s)
	}
	if q.MinPrice != nil && !q.MinPrice.IsNegative() {
		v.Set("precio_min", q.MinPrice.String())
	}
	if q.MaxPrice != nil && !q.MaxPrice.IsNegative() {
		v.Set("precio_max", q.MaxPrice.String())
	}
	if q.Status != "" {
		v.Set("estado", q.Status)
	}
	return v
}

func pageValues(page int) url.Values {
	if page < 1 {
		page = 1
	}
	return url.Values{"page": {strconv.Itoa(page)}, "limit": {strconv.Itoa(pageSize)}}
}

type Service struct {
	api gateway.API
	log *zap.Logger
}

func NewService(api gateway.API, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{api: api, log: log.Named("ads")}
}

// CreateSale validates in locally and only then posts it.
func (s *Service) CreateSale(ctx context.Context, in SaleInput) (*SaleResponse, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	var out SaleResponse
	if _, err := s.api.Post(ctx, "anuncios/venta", in, &out); err != nil {
		return nil, fmt.Errorf("create sale listing: %w", err)
	}
	s.log.Info("sale listing created", zap.Int64("id", out.Ad.ID), zap.Int64("product", in.ProductID))
	return &out, nil
}

func (s *Service) ListSale(ctx context.Context, q Query) (*SaleList, error) {
	if q.Status != "" && !validSaleStatus(q.Status, true) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, q.Status)
	}
	var out SaleList
	if _, err := s.api.Get(ctx, "anuncios/venta", q.Values(), &out); err != nil {
		return nil, fmt.Errorf("list sale listings: %w", err)
	}
	return &out, nil
}

func (s *Service) GetSale(ctx context.Context, id int64) (*Sale, error) {
	var out struct {
		Ad Sale `json:"anuncio"`
	}
	if _, err := s.api.Get(ctx, salePath(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get sale listing %d: %w", id, err)
	}
	return &out.Ad, nil
}

func (s *Service) UpdateSale(ctx context.Context, id int64, in SaleUpdate) (*SaleResponse, error) {
	var out SaleResponse
	if _, err := s.api.Put(ctx, salePath(id), in, &out); err != nil {
		return nil, fmt.Errorf("update sale listing %d: %w", id, err)
	}
	return &out, nil
}

func (s *Service) DeleteSale(ctx context.Context, id int64) error {
	if _, err := s.api.Delete(ctx, salePath(id), nil); err != nil {
		return fmt.Errorf("delete sale listing %d: %w", id, err)
	}
	return nil
}

// SetSaleStatus moves a listing between activo, pausado and vendido.
func (s *Service) SetSaleStatus(ctx context.Context, id int64, status string) (*SaleResponse, error) {
	if !validSaleStatus(status, false) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	var out SaleResponse
	body := map[string]string{"estado": status}
	if _, err := s.api.Put(ctx, salePath(id)+"/estado", body, &out); err != nil {
		return nil, fmt.Errorf("set status of sale listing %d: %w", id, err)
	}
	return &out, nil
}

func (s *Service) ByLocation(ctx context.Context, location string, page int) (*SaleList, error) {
	return s.ListSale(ctx, Query{Location: location, Page: page, Limit: pageSize})
}

func (s *Service) ByProduct(ctx context.Context, productID int64, page int) (*SaleList, error) {
	return s.ListSale(ctx, Query{ProductID: productID, Page: page, Limit: pageSize})
}

func (s *Service) MySale(ctx context.Context, page int) (*SaleList, error) {
	var out SaleList
	if _, err := s.api.Get(ctx, "anuncios/venta/mis-anuncios", pageValues(page), &out); err != nil {
		return nil, fmt.Errorf("list my sale listings: %w", err)
	}
	return &out, nil
}

// Mine lists the caller's listings of either kind. The answer shape depends
// on kind, so it is returned undecoded.
func (s *Service) Mine(ctx context.Context, kind string, page int) (*gateway.Response, error) {
	if kind != KindSale && kind != KindPurchase {
		return nil, fmt.Errorf("unknown listing kind %q", kind)
	}
	q := pageValues(page)
	q.Set("tipo", kind)
	resp, err := s.api.Get(ctx, "anuncios/mis-anuncios", q, nil)
	if err != nil {
		return nil, fmt.Errorf("list my %s listings: %w", kind, err)
	}
	return resp, nil
}

func (s *Service) CreatePurchase(ctx context.Context, in PurchaseInput) (*PurchaseResponse, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	var out PurchaseResponse
	if _, err := s.api.Post(ctx, "anuncios/compra", in, &out); err != nil {
		return nil, fmt.Errorf("create purchase listing: %w", err)
	}
	s.log.Info("purchase listing created", zap.Int64("id", out.Ad.ID), zap.Int64("product", in.ProductID))
	return &out, nil
}

func (s *Service) ListPurchase(ctx context.Context, q Query) (*PurchaseList, error) {
	if q.Status != "" && !validPurchaseStatus(q.Status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, q.Status)
	}
	// purchase searches have no location filter
	q.Location = ""
	var out PurchaseList
	if _, err := s.api.Get(ctx, "anuncios/compra", q.Values(), &out); err != nil {
		return nil, fmt.Errorf("list purchase listings: %w", err)
	}
	return &out, nil
}

func (s *Service) GetPurchase(ctx context.Context, id int64) (*Purchase, error) {
	var out PurchaseResponse
	if _, err := s.api.Get(ctx, purchasePath(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get purchase listing %d: %w", id, err)
	}
	return &out.Ad, nil
}

func (s *Service) UpdatePurchase(ctx context.Context, id int64, in PurchaseUpdate) (*PurchaseResponse, error) {
	var out PurchaseResponse
	if _, err := s.api.Put(ctx, purchasePath(id), in, &out); err != nil {
		return nil, fmt.Errorf("update purchase listing %d: %w", id, err)
	}
	return &out, nil
}

func (s *Service) DeletePurchase(ctx context.Context, id int64) error {
	if _, err := s.api.Delete(ctx, purchasePath(id), nil); err != nil {
		return fmt.Errorf("delete purchase listing %d: %w", id, err)
	}
	return nil
}

func (s *Service) MyPurchase(ctx context.Context, page int) (*PurchaseList, error) {
	var out PurchaseList
	if _, err := s.api.Get(ctx, "anuncios/compra/mis-anuncios", pageValues(page), &out); err != nil {
		return nil, fmt.Errorf("list my purchase listings: %w", err)
	}
	return &out, nil
}

func (s *Service) PurchasesByProduct(ctx context.Context, productID int64, page int) (*PurchaseList, error) {
	return s.ListPurchase(ctx, Query{ProductID: productID, Page: page, Limit: pageSize})
}

func (s *Service) PurchasesByPrice(ctx context.Context, lo, hi *decimal.Decimal, page int) (*PurchaseList, error) {
	return s.ListPurchase(ctx, Query{MinPrice: lo, MaxPrice: hi, Page: page, Limit: pageSize})
}

var nonDigits = regexp.MustCompile(`\D`)

// WhatsAppLink builds a wa.me link with a prefilled offer for the buyer of a
// purchase listing. It returns "" when the buyer left no phone.
func WhatsAppLink(p Purchase) string {
	phone := nonDigits.ReplaceAllString(p.Buyer.Phone, "")
	if phone == "" {
		return ""
	}
	var name, productUnit string
	if p.Product != nil {
		name, productUnit = p.Product.Name, p.Product.Unit
	}
	unit := p.Unit
	if unit == "" {
		unit = productUnit
	}
	priceUnit := productUnit
	if priceUnit == "" {
		priceUnit = "unidad"
	}

	msg := fmt.Sprintf("¡Hola! Vi tu anuncio de compra para *%s*. Me interesa ofrecerte este producto.\n\n", name) +
		fmt.Sprintf("Cantidad solicitada: %s %s\n", p.Quantity.String(), unit) +
		fmt.Sprintf("Precio ofertado: $%s %s\n\n", p.OfferPrice.String(), priceUnit) +
		"¿Te gustaría que conversemos los detalles?"

	return "https://wa.me/" + phone + "?text=" + url.QueryEscape(msg)
}

// CallLink is the tel: URI for the buyer, or "".
func CallLink(p Purchase) string {
	if p.Buyer.Phone == "" {
		return ""
	}
	return "tel:" + p.Buyer.Phone
}

func validSaleStatus(status string, includeExpired bool) bool {
	switch status {
	case StatusActive, StatusPaused, StatusSold:
		return true
	case StatusExpired:
		return includeExpired
	}
	return false
}

func validPurchaseStatus(status string) bool {
	switch status {
	case StatusActive, StatusPaused, StatusCompleted, StatusExpired:
		return true
	}
	return false
}

func salePath(id int64) string     { return "anuncios/venta/" + strconv.FormatInt(id, 10) }
func purchasePath(id int64) string { return "anuncios/compra/" + strconv.FormatInt(id, 10) }
