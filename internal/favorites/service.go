// Package favorites bookmarks products and sale listings for the signed-in
// user.
package favorites

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/sudo-init-do/efresco/internal/ads"
	"github.com/sudo-init-do/efresco/internal/gateway"
	"github.com/sudo-init-do/efresco/internal/products"
)

// Favorite kinds
const (
	KindProduct = "producto"
	KindSaleAd  = "anuncio_venta"
)

type Favorite struct {
	ID      int64             `json:"id_favorito"`
	Kind    string            `json:"tipo"`
	AddedAt string            `json:"fecha_agregado,omitempty"`
	Product *products.Product `json:"producto,omitempty"`
	SaleAd  *ads.Sale         `json:"anuncio_venta,omitempty"`
}

type List struct {
	Favorites []Favorite `json:"favoritos"`
	Total     int        `json:"total,omitempty"`
}

// Toggled is the state after a toggle.
type Toggled struct {
	Favorite bool
	Message  string
}

type Service struct {
	api gateway.API
	log *zap.Logger
}

func NewService(api gateway.API, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{api: api, log: log.Named("favorites")}
}

func (s *Service) AddProduct(ctx context.Context, productID int64) (string, error) {
	return s.add(ctx, map[string]int64{"id_producto": productID})
}

func (s *Service) AddSaleAd(ctx context.Context, adID int64) (string, error) {
	return s.add(ctx, map[string]int64{"id_anuncio_venta": adID})
}

func (s *Service) add(ctx context.Context, body map[string]int64) (string, error) {
	var out struct {
		Message string `json:"mensaje"`
	}
	if _, err := s.api.Post(ctx, "favoritos", body, &out); err != nil {
		return "", fmt.Errorf("add favorite: %w", err)
	}
	return out.Message, nil
}

func (s *Service) List(ctx context.Context) (*List, error) {
	var out List
	if _, err := s.api.Get(ctx, "favoritos", nil, &out); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return &out, nil
}

func (s *Service) Remove(ctx context.Context, favoriteID int64) (string, error) {
	var out struct {
		Message string `json:"mensaje"`
	}
	if _, err := s.api.Delete(ctx, "favoritos/"+strconv.FormatInt(favoriteID, 10), &out); err != nil {
		return "", fmt.Errorf("remove favorite %d: %w", favoriteID, err)
	}
	return out.Message, nil
}

// IsProductFavorite reports false when the list cannot be fetched.
func (s *Service) IsProductFavorite(ctx context.Context, productID int64) bool {
	id, err := s.productFavorite(ctx, productID)
	return err == nil && id != 0
}

// IsSaleAdFavorite reports false when the list cannot be fetched.
func (s *Service) IsSaleAdFavorite(ctx context.Context, adID int64) bool {
	id, err := s.saleAdFavorite(ctx, adID)
	return err == nil && id != 0
}

// ToggleProduct removes the product from favorites if it is there and adds
// it otherwise.
func (s *Service) ToggleProduct(ctx context.Context, productID int64) (*Toggled, error) {
	favID, err := s.productFavorite(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.toggle(ctx, favID, func() (string, error) { return s.AddProduct(ctx, productID) })
}

func (s *Service) ToggleSaleAd(ctx context.Context, adID int64) (*Toggled, error) {
	favID, err := s.saleAdFavorite(ctx, adID)
	if err != nil {
		return nil, err
	}
	return s.toggle(ctx, favID, func() (string, error) { return s.AddSaleAd(ctx, adID) })
}

func (s *Service) toggle(ctx context.Context, favID int64, add func() (string, error)) (*Toggled, error) {
	if favID != 0 {
		msg, err := s.Remove(ctx, favID)
		if err != nil {
			return nil, err
		}
		if msg == "" {
			msg = "Eliminado de favoritos"
		}
		return &Toggled{Favorite: false, Message: msg}, nil
	}
	msg, err := add()
	if err != nil {
		return nil, err
	}
	if msg == "" {
		msg = "Agregado a favoritos"
	}
	return &Toggled{Favorite: true, Message: msg}, nil
}

func (s *Service) productFavorite(ctx context.Context, productID int64) (int64, error) {
	list, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, f := range list.Favorites {
		if f.Product != nil && f.Product.Key() == productID {
			return f.ID, nil
		}
	}
	return 0, nil
}

func (s *Service) saleAdFavorite(ctx context.Context, adID int64) (int64, error) {
	list, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, f := range list.Favorites {
		if f.SaleAd != nil && f.SaleAd.ID == adID {
			return f.ID, nil
		}
	}
	return 0, nil
}
