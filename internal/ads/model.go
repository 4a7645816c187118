package ads

import (
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/efresco/internal/products"
)

// Kinds of listing
const (
	KindSale     = "venta"
	KindPurchase = "compra"
)

// Sale listing states
const (
	StatusActive  = "activo"
	StatusPaused  = "pausado"
	StatusSold    = "vendido"
	StatusExpired = "expirado"

	// purchase listings finish as completed instead of sold
	StatusCompleted = "completado"
)

// Contact is the seller or buyer embedded in a listing.
type Contact struct {
	ID    int64  `json:"id"`
	Name  string `json:"nombre"`
	Phone string `json:"telefono"`
}

type Sale struct {
	ID          int64            `json:"id"`
	Product     products.Product `json:"producto"`
	Quantity    decimal.Decimal  `json:"cantidad"`
	Unit        string           `json:"unidad"`
	Price       decimal.Decimal  `json:"precio"`
	Description string           `json:"descripcion"`
	Location    string           `json:"ubicacion"`
	Lat         *float64         `json:"ubicacion_lat,omitempty"`
	Lng         *float64         `json:"ubicacion_lng,omitempty"`
	Seller      Contact          `json:"vendedor"`
	CreatedAt   string           `json:"fecha_creacion"`
	UpdatedAt   string           `json:"fecha_actualizacion,omitempty"`
	Status      string           `json:"estado,omitempty"`
}

type Purchase struct {
	ID          int64             `json:"id"`
	Product     *products.Product `json:"producto,omitempty"`
	Quantity    decimal.Decimal   `json:"cantidad"`
	Unit        string            `json:"unidad,omitempty"`
	OfferPrice  decimal.Decimal   `json:"precio_ofertado"`
	Description string            `json:"descripcion"`
	Buyer       Contact           `json:"comprador"`
	CreatedAt   string            `json:"fecha_creacion,omitempty"`
	Status      string            `json:"estado,omitempty"`
}

// SaleInput is the body for creating a sale listing. Every field but the
// coordinates is required.
type SaleInput struct {
	ProductID   int64           `json:"id_producto" validate:"required,gt=0"`
	Quantity    decimal.Decimal `json:"cantidad" validate:"required,gte=0.1"`
	Unit        string          `json:"unidad" validate:"required"`
	Price       decimal.Decimal `json:"precio" validate:"required,gte=0.01"`
	Description string          `json:"descripcion" validate:"required"`
	Location    string          `json:"ubicacion" validate:"required"`
	Lat         *float64        `json:"ubicacion_lat,omitempty"`
	Lng         *float64        `json:"ubicacion_lng,omitempty"`
}

// SaleUpdate carries only the fields being changed.
type SaleUpdate struct {
	Quantity    *decimal.Decimal `json:"cantidad,omitempty"`
	Unit        string           `json:"unidad,omitempty"`
	Price       *decimal.Decimal `json:"precio,omitempty"`
	Description string           `json:"descripcion,omitempty"`
	Location    string           `json:"ubicacion,omitempty"`
	Lat         *float64         `json:"ubicacion_lat,omitempty"`
	Lng         *float64         `json:"ubicacion_lng,omitempty"`
}

type PurchaseInput struct {
	ProductID   int64           `json:"id_producto" validate:"required,gt=0"`
	Quantity    decimal.Decimal `json:"cantidad" validate:"required,gte=0.1"`
	Unit        string          `json:"unidad" validate:"required"`
	OfferPrice  decimal.Decimal `json:"precio_ofertado" validate:"required,gte=0.01"`
	Description string          `json:"descripcion" validate:"required"`
}

type PurchaseUpdate struct {
	Quantity    *decimal.Decimal `json:"cantidad,omitempty"`
	Unit        string           `json:"unidad,omitempty"`
	OfferPrice  *decimal.Decimal `json:"precio_ofertado,omitempty"`
	Description string           `json:"descripcion,omitempty"`
}

type SaleResponse struct {
	Message string `json:"mensaje"`
	Ad      Sale   `json:"anuncio"`
}

type PurchaseResponse struct {
	Message string   `json:"mensaje"`
	Ad      Purchase `json:"anuncio"`
}

type SaleList struct {
	Ads        []Sale              `json:"anuncios"`
	Pagination products.Pagination `json:"paginacion"`
}

// PurchaseList carries its paging fields flat, unlike SaleList.
type PurchaseList struct {
	Ads   []Purchase `json:"anuncios"`
	Total int        `json:"total,omitempty"`
	Page  int        `json:"page,omitempty"`
	Limit int        `json:"limit,omitempty"`
	Pages int        `json:"pages,omitempty"`
}
