package products

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sudo-init-do/efresco/internal/gateway"
	"github.com/sudo-init-do/efresco/internal/validation"
)

const (
	CatalogPageSize = 12
	SearchPageSize  = 20
)

// Query filters the product list. Zero values are left out of the request.
type Query struct {
	Page       int
	Limit      int
	Search     string
	CategoryID int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
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
	if q.CategoryID > 0 {
		v.Set("categoria_id", strconv.FormatInt(q.CategoryID, 10))
	}
	if q.MinPrice != nil && !q.MinPrice.IsNegative() {
		v.Set("precio_min", q.MinPrice.String())
	}
	if q.MaxPrice != nil && !q.MaxPrice.IsNegative() {
		v.Set("precio_max", q.MaxPrice.String())
	}
	return v
}

type Service struct {
	api gateway.API
	log *zap.Logger
}

func NewService(api gateway.API, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{api: api, log: log.Named("products")}
}

func (s *Service) List(ctx context.Context, q Query) (*ListResponse, error) {
	var out ListResponse
	if _, err := s.api.Get(ctx, "productos", q.Values(), &out); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return &out, nil
}

func (s *Service) Catalog(ctx context.Context, page int) (*ListResponse, error) {
	return s.List(ctx, Query{Page: page, Limit: CatalogPageSize})
}

func (s *Service) Search(ctx context.Context, term string, page int) (*ListResponse, error) {
	return s.List(ctx, Query{Search: term, Page: page, Limit: SearchPageSize})
}

func (s *Service) FilterByPrice(ctx context.Context, lo, hi decimal.Decimal, page int) (*ListResponse, error) {
	return s.List(ctx, Query{MinPrice: &lo, MaxPrice: &hi, Page: page, Limit: SearchPageSize})
}

func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	var out DetailResponse
	if _, err := s.api.Get(ctx, path(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return &out.Product, nil
}

func (s *Service) Create(ctx context.Context, in Input) (*MutationResponse, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	var out MutationResponse
	if _, err := s.api.Post(ctx, "productos", in, &out); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.log.Info("product created", zap.Int64("id", out.Product.Key()))
	return &out, nil
}

func (s *Service) Update(ctx context.Context, id int64, in Input) (*MutationResponse, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	var out MutationResponse
	if _, err := s.api.Put(ctx, path(id), in, &out); err != nil {
		return nil, fmt.Errorf("update product %d: %w", id, err)
	}
	return &out, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.api.Delete(ctx, path(id), nil); err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	return nil
}

type ImageResponse struct {
	Message  string `json:"mensaje"`
	ImageURL string `json:"imagen_url"`
}

// UploadImage sends the product picture as multipart field "imagen".
func (s *Service) UploadImage(ctx context.Context, id int64, filename string, r io.Reader) (*ImageResponse, error) {
	var out ImageResponse
	file := gateway.File{Field: "imagen", Name: filename, Reader: r}
	if _, err := s.api.Upload(ctx, path(id)+"/imagen", file, nil, &out); err != nil {
		return nil, fmt.Errorf("upload image for product %d: %w", id, err)
	}
	return &out, nil
}

func (s *Service) DeleteImage(ctx context.Context, id int64) error {
	if _, err := s.api.Delete(ctx, path(id)+"/imagen", nil); err != nil {
		return fmt.Errorf("delete image for product %d: %w", id, err)
	}
	return nil
}

func path(id int64) string { return "productos/" + strconv.FormatInt(id, 10) }
