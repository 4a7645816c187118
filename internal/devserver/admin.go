package devserver

import (
	"cmp"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sudo-init-do/efresco/internal/admin"
	"github.com/sudo-init-do/efresco/internal/ads"
	"github.com/sudo-init-do/efresco/internal/orders"
	"github.com/sudo-init-do/efresco/internal/user"
)

// sortedUsers lists accounts by id so paging is stable.
func (s *Server) sortedUsers() []*account {
	out := make([]*account, 0, len(s.db.users))
	for _, a := range s.db.users {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b *account) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (s *Server) listUsers(c echo.Context) error {
	search := strings.TrimSpace(c.QueryParam("search"))
	s.db.mu.RLock()
	var found []user.User
	for _, a := range s.sortedUsers() {
		if matches(search, a.FullName(), a.Email) {
			found = append(found, a.User)
		}
	}
	s.db.mu.RUnlock()

	items, p, limit, pages := paginate(c, found, 10)
	return c.JSON(http.StatusOK, admin.UserList{Users: items, Pagination: paginationOf(len(found), p, limit, pages)})
}

func (s *Server) getUser(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badID(c)
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	a, ok := s.db.users[id]
	if !ok {
		return notFound(c, "Usuario")
	}
	return c.JSON(http.StatusOK, echo.Map{"usuario": a.User})
}

func (s *Server) updateUser(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badID(c)
	}
	var req admin.UserUpdate
	if ok, err := bind(c, &req); !ok {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.users[id]
	if !ok {
		return notFound(c, "Usuario")
	}
	if req.Email != "" && !strings.EqualFold(req.Email, a.Email) {
		if _, taken := s.db.userByEmail(req.Email); taken {
			return c.JSON(http.StatusConflict, echo.Map{"error": "el email ya está registrado"})
		}
		a.Email = req.Email
	}
	setString(&a.Name, req.Name)
	setString(&a.LastName, req.LastName)
	setString(&a.Phone, req.Phone)
	setString(&a.Address, req.Address)
	if req.Lat != nil {
		a.Lat = req.Lat
	}
	if req.Lng != nil {
		a.Lng = req.Lng
	}
	if req.Verified != nil {
		a.Verified = *req.Verified
	}
	if req.Active != nil {
		active := *req.Active
		a.Active = &active
	}
	s.log.Info("user updated by admin", zap.Int64("user", id))
	return c.JSON(http.StatusOK, echo.Map{"mensaje": "Usuario actualizado exitosamente", "usuario": a.User})
}

func (s *Server) deleteUser(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badID(c)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[id]; !ok {
		return notFound(c, "Usuario")
	}
	delete(s.db.users, id)
	s.db.favorites = slices.DeleteFunc(s.db.favorites, func(f favorite) bool { return f.UserID == id })
	s.log.Info("user deleted by admin", zap.Int64("user", id))
	return c.JSON(http.StatusOK, echo.Map{"mensaje": "Usuario eliminado exitosamente"})
}

func (s *Server) countUsers() admin.UserStats {
	var st admin.UserStats
	for _, a := range s.db.users {
		st.Total++
		if a.HasRole(user.RoleProducer) {
			st.Producers++
		}
		if a.Verified {
			st.Verified++
		}
		if a.active() {
			st.Active++
		}
	}
	return st
}

func (s *Server) userStats(c echo.Context) error {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return c.JSON(http.StatusOK, s.countUsers())
}

// countProducts classifies each product by its sale listings: available
// with an active one, sold out when every listing is sold and pending when
// it has none.
func (s *Server) countProducts() admin.ProductStats {
	var st admin.ProductStats
	for _, p := range s.db.products {
		st.Total++
		listed, active, sold := 0, false, 0
		for _, a := range s.db.sales {
			if a.Product.Key() != p.Key() {
				continue
			}
			listed++
			switch a.Status {
			case ads.StatusActive:
				active = true
			case ads.StatusSold:
				sold++
			}
		}
		switch {
		case listed == 0:
			st.Pending++
		case active:
			st.Available++
		case sold == listed:
			st.SoldOut++
		}
	}
	return st
}

func (s *Server) productStats(c echo.Context) error {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return c.JSON(http.StatusOK, s.countProducts())
}

func (s *Server) dashboardStats(c echo.Context) error {
	now := s.db.now()
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	us := s.countUsers()
	d := admin.Dashboard{
		Users:     us.Total,
		Producers: us.Producers,
		Products:  len(s.db.products),
	}
	var monthly, revenue decimal.Decimal
	for _, o := range s.db.orders {
		switch o.Status {
		case orders.StatusPending:
			d.PendingOrders++
		case orders.StatusCompleted:
			revenue = revenue.Add(o.Total)
			if at, err := time.Parse(time.RFC3339, o.Date); err == nil && now.Sub(at) <= 30*24*time.Hour {
				monthly = monthly.Add(o.Total)
			}
		}
	}
	d.MonthlySales = int(monthly.IntPart())
	d.Revenue = int(revenue.IntPart())
	return c.JSON(http.StatusOK, d)
}
