package products

import (
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/efresco/internal/gateway"
)

const ImagePlaceholder = "/assets/images/producto-placeholder.svg"

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"nombre"`
}

// Product is a catalog entry. Some endpoints send "id", others
// "id_producto"; Key returns whichever is set.
type Product struct {
	ID          int64           `json:"id_producto,omitempty"`
	LegacyID    int64           `json:"id,omitempty"`
	Name        string          `json:"nombre"`
	Description string          `json:"descripcion"`
	Price       decimal.Decimal `json:"precio_referencial"`
	Unit        string          `json:"unidad_medida"`
	ImageURL    string          `json:"imagen_url,omitempty"`
	Categories  []Category      `json:"categorias,omitempty"`
}

// Image is the product picture resolved against the backend origin.
func (p Product) Image(origin string) string {
	return gateway.ResolveAsset(origin, p.ImageURL, ImagePlaceholder)
}

func (p Product) Key() int64 {
	if p.ID != 0 {
		return p.ID
	}
	return p.LegacyID
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit,omitempty"`
	Pages int `json:"pages"`
}

type ListResponse struct {
	Products   []Product  `json:"productos"`
	Pagination Pagination `json:"paginacion"`
}

type DetailResponse struct {
	Product Product `json:"producto"`
}

// MutationResponse is what create and update answer.
type MutationResponse struct {
	Message string  `json:"mensaje"`
	Product Product `json:"producto"`
}

// Input is the body for creating or updating a product.
type Input struct {
	Name        string          `json:"nombre" validate:"required"`
	Description string          `json:"descripcion" validate:"required"`
	Price       decimal.Decimal `json:"precio_referencial" validate:"required,gt=0"`
	Unit        string          `json:"unidad_medida" validate:"required"`
	CategoryIDs []int64         `json:"categorias,omitempty"`
}
