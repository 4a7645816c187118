package orders

import "github.com/shopspring/decimal"

const (
	StatusPending    = "pendiente"
	StatusConfirmed  = "confirmado"
	StatusInProgress = "en_proceso"
	StatusCompleted  = "completado"
	StatusCancelled  = "cancelado"
)

var descriptions = map[string]string{
	StatusPending:    "Esperando confirmación del vendedor",
	StatusConfirmed:  "Confirmado por el vendedor",
	StatusInProgress: "En proceso de preparación",
	StatusCompleted:  "Pedido entregado",
	StatusCancelled:  "Pedido cancelado",
}

// StatusDescription is the user-facing text for an order state. Unknown
// states are returned as is.
func StatusDescription(status string) string {
	if d, ok := descriptions[status]; ok {
		return d
	}
	return status
}

func ValidStatus(status string) bool {
	_, ok := descriptions[status]
	return ok
}

type Party struct {
	ID    int64  `json:"id_usuario"`
	Name  string `json:"nombre"`
	Phone string `json:"telefono,omitempty"`
}

type AdRef struct {
	ID          int64  `json:"id"`
	Description string `json:"descripcion,omitempty"`
	Product     struct {
		Name string `json:"nombre"`
	} `json:"producto"`
}

// Order is the client-side order.
type Order struct {
	ID          int64           `json:"id"`
	BuyerID     int64           `json:"id_comprador,omitempty"`
	SellerID    int64           `json:"id_vendedor,omitempty"`
	Total       decimal.Decimal `json:"monto_total"`
	Status      string          `json:"estado"`
	Date        string          `json:"fecha,omitempty"`
	OrderedAt   string          `json:"fecha_pedido,omitempty"`
	Buyer       *Party          `json:"comprador,omitempty"`
	Seller      *Party          `json:"vendedor,omitempty"`
	AdKind      string          `json:"tipo_anuncio"`
	AdID        int64           `json:"id_anuncio"`
	Ad          *AdRef          `json:"anuncio,omitempty"`
	Verified    bool            `json:"verificado_manualmente"`
	VerifyNotes *string         `json:"notas_verificacion"`
}

// Record is an order as the list endpoint returns it.
type Record struct {
	ID          int64           `json:"id_pedido"`
	BuyerID     int64           `json:"id_comprador"`
	SellerID    int64           `json:"id_vendedor"`
	AdID        int64           `json:"id_anuncio"`
	AdKind      string          `json:"tipo_anuncio"`
	Total       decimal.Decimal `json:"monto_total"`
	Status      string          `json:"estado"`
	Date        string          `json:"fecha"`
	Verified    bool            `json:"verificado_manualmente"`
	VerifyNotes *string         `json:"notas_verificacion"`
	Buyer       Party           `json:"Comprador"`
	Seller      Party           `json:"Vendedor"`
	Ad          *AdRef          `json:"anuncio,omitempty"`
}

// Order maps the list shape onto the client order.
func (r Record) Order() Order {
	buyer, seller := r.Buyer, r.Seller
	return Order{
		ID:          r.ID,
		BuyerID:     r.BuyerID,
		SellerID:    r.SellerID,
		Total:       r.Total,
		Status:      r.Status,
		Date:        r.Date,
		Buyer:       &buyer,
		Seller:      &seller,
		AdKind:      r.AdKind,
		AdID:        r.AdID,
		Ad:          r.Ad,
		Verified:    r.Verified,
		VerifyNotes: r.VerifyNotes,
	}
}

type Paging struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

type RecordList struct {
	Success    bool     `json:"success"`
	Data       []Record `json:"data"`
	Pagination Paging   `json:"pagination"`
}

// Page is one page of the caller's orders.
type Page struct {
	Orders     []Order
	Pagination Paging
}

type CreateInput struct {
	BuyerID  int64           `json:"id_comprador" validate:"required,gt=0"`
	SellerID int64           `json:"id_vendedor" validate:"required,gt=0"`
	Total    decimal.Decimal `json:"monto_total" validate:"required,gt=0"`
	AdKind   string          `json:"tipo_anuncio" validate:"required,oneof=venta compra"`
	AdID     int64           `json:"id_anuncio" validate:"required,gt=0"`
}

type CreateResponse struct {
	Message string `json:"mensaje"`
	Order   Order  `json:"pedido"`
}
