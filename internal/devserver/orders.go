package devserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sudo-init-do/efresco/internal/ads"
	"github.com/sudo-init-do/efresco/internal/admin"
	mw "github.com/sudo-init-do/efresco/internal/middleware"
	"github.com/sudo-init-do/efresco/internal/orders"
)

func involves(o *orders.Record, id int64) bool { return o.BuyerID == id || o.SellerID == id }

func (s *Server) createOrder(c echo.Context) error {
	var req orders.CreateInput
	if ok, err := bind(c, &req); !ok {
		return err
	}
	me := mw.UserID(c)
	if req.BuyerID != me && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "solo puedes crear pedidos a tu nombre"})
	}
	if req.BuyerID == req.SellerID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no puedes comprar tu propio anuncio"})
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[req.SellerID]; !ok {
		return notFound(c, "Vendedor")
	}
	ref := &orders.AdRef{ID: req.AdID}
	switch req.AdKind {
	case ads.KindSale:
		a, ok := s.db.sale(req.AdID)
		if !ok {
			return notFound(c, "Anuncio")
		}
		if a.Seller.ID != req.SellerID {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "el vendedor no coincide con el anuncio"})
		}
		if a.Status != ads.StatusActive {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "el anuncio no está activo"})
		}
		ref.Description = a.Description
		ref.Product.Name = a.Product.Name
	case ads.KindPurchase:
		a, ok := s.db.purchase(req.AdID)
		if !ok {
			return notFound(c, "Anuncio")
		}
		ref.Description = a.Description
		if a.Product != nil {
			ref.Product.Name = a.Product.Name
		}
	}

	r := orders.Record{
		ID:       s.db.nextID("order"),
		BuyerID:  req.BuyerID,
		SellerID: req.SellerID,
		AdID:     req.AdID,
		AdKind:   req.AdKind,
		Total:    req.Total,
		Status:   orders.StatusPending,
		Date:     s.db.timestamp(),
		Buyer:    s.db.party(req.BuyerID),
		Seller:   s.db.party(req.SellerID),
		Ad:       ref,
	}
	s.db.orders = append(s.db.orders, r)
	s.log.Info("order created", zap.Int64("id", r.ID), zap.Int64("buyer", r.BuyerID), zap.Int64("seller", r.SellerID))

	o := r.Order()
	o.OrderedAt = r.Date
	return c.JSON(http.StatusCreated, orders.CreateResponse{Message: "Pedido creado exitosamente", Order: o})
}

func (s *Server) userOrders(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badID(c)
	}
	if id != mw.UserID(c) && !isAdmin(c) {
		return forbidden(c)
	}
	as := c.QueryParam("tipo")

	s.db.mu.RLock()
	var found []orders.Record
	for i := len(s.db.orders) - 1; i >= 0; i-- {
		o := s.db.orders[i]
		switch {
		case as == orders.AsBuyer && o.BuyerID == id,
			as == orders.AsSeller && o.SellerID == id,
			(as == "" || as == orders.AsAny) && involves(&o, id):
			found = append(found, o)
		}
	}
	s.db.mu.RUnlock()

	items, p, limit, pages := paginate(c, found, 10)
	return c.JSON(http.StatusOK, orders.RecordList{
		Success: true,
		Data:    items,
		Pagination: orders.Paging{
			CurrentPage:  p,
			TotalPages:   pages,
			TotalItems:   len(found),
			ItemsPerPage: limit,
		},
	})
}

// visibleOrder finds an order the caller takes part in.
func (s *Server) visibleOrder(c echo.Context) (*orders.Record, error) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, badID(c)
	}
	o, ok := s.db.order(id)
	if !ok {
		return nil, notFound(c, "Pedido")
	}
	if !involves(o, mw.UserID(c)) && !isAdmin(c) {
		return nil, forbidden(c)
	}
	return o, nil
}

func (s *Server) getOrder(c echo.Context) error {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	r, err := s.visibleOrder(c)
	if r == nil {
		return err
	}
	o := r.Order()
	o.OrderedAt = r.Date
	return c.JSON(http.StatusOK, echo.Map{"pedido": o})
}

func (s *Server) setOrderStatus(c echo.Context) error {
	var req struct {
		Status string `json:"estado" validate:"required,oneof=pendiente confirmado en_proceso completado cancelado"`
	}
	if ok, err := bind(c, &req); !ok {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	o, err := s.visibleOrder(c)
	if o == nil {
		return err
	}
	if o.SellerID != mw.UserID(c) && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "solo el vendedor puede cambiar el estado"})
	}
	if o.Status == orders.StatusCancelled || o.Status == orders.StatusCompleted {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "el pedido ya está cerrado", "estado": o.Status})
	}
	o.Status = req.Status
	s.log.Info("order status changed", zap.Int64("id", o.ID), zap.String("status", o.Status))
	return c.JSON(http.StatusOK, echo.Map{"mensaje": "Estado actualizado", "pedido": o.Order()})
}

func (s *Server) cancelOrder(c echo.Context) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	o, err := s.visibleOrder(c)
	if o == nil {
		return err
	}
	if o.Status != orders.StatusPending && o.Status != orders.StatusConfirmed {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "el pedido ya no puede cancelarse", "estado": o.Status})
	}
	o.Status = orders.StatusCancelled
	return c.JSON(http.StatusOK, echo.Map{"mensaje": "Pedido cancelado", "pedido": o.Order()})
}

func (s *Server) verifyOrder(c echo.Context) error {
	var req struct {
		Verified bool   `json:"verificado_manualmente"`
		Notes    string `json:"notas_verificacion"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	o, err := s.visibleOrder(c)
	if o == nil {
		return err
	}
	o.Verified = req.Verified
	if req.Notes != "" {
		notes := req.Notes
		o.VerifyNotes = &notes
	}
	return c.JSON(http.StatusOK, echo.Map{"mensaje": "Verificación registrada", "pedido": o.Order()})
}

// simulatePayment confirms a pending order as if the buyer had paid.
func (s *Server) simulatePayment(c echo.Context) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	o, err := s.visibleOrder(c)
	if o == nil {
		return err
	}
	if o.BuyerID != mw.UserID(c) && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "solo el comprador puede pagar"})
	}
	if o.Status != orders.StatusPending {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "el pedido no está pendiente de pago", "estado": o.Status})
	}
	o.Status = orders.StatusConfirmed
	return c.JSON(http.StatusOK, echo.Map{"mensaje": "Pago simulado exitosamente", "pedido": o.Order()})
}

func countOrders(list []orders.Record, keep func(*orders.Record) bool) admin.OrderStats {
	var st admin.OrderStats
	for i := range list {
		o := &list[i]
		if !keep(o) {
			continue
		}
		st.Total++
		switch o.Status {
		case orders.StatusPending:
			st.Pending++
		case orders.StatusConfirmed, orders.StatusInProgress:
			st.InProgress++
		case orders.StatusCompleted:
			st.Completed++
		case orders.StatusCancelled:
			st.Cancelled++
		}
	}
	return st
}

// orderStats summarises the caller's own orders.
func (s *Server) orderStats(c echo.Context) error {
	me := mw.UserID(c)
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	st := countOrders(s.db.orders, func(o *orders.Record) bool { return involves(o, me) })
	spent, earned := decimal.Zero, decimal.Zero
	for _, o := range s.db.orders {
		if o.Status != orders.StatusCompleted {
			continue
		}
		if o.BuyerID == me {
			spent = spent.Add(o.Total)
		}
		if o.SellerID == me {
			earned = earned.Add(o.Total)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total":       st.Total,
		"pendientes":  st.Pending,
		"enProceso":   st.InProgress,
		"completados": st.Completed,
		"cancelados":  st.Cancelled,
		"gastado":     spent,
		"ganado":      earned,
	})
}

func (s *Server) adminOrderStats(c echo.Context) error {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return c.JSON(http.StatusOK, countOrders(s.db.orders, func(*orders.Record) bool { return true }))
}

// salesStats counts completed orders by when they were placed.
func (s *Server) salesStats(c echo.Context) error {
	now := s.db.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var st admin.SalesStats
	var daily, monthly, all decimal.Decimal
	completed := 0
	for _, o := range s.db.orders {
		if o.Status != orders.StatusCompleted {
			continue
		}
		completed++
		all = all.Add(o.Total)
		at, err := time.Parse(time.RFC3339, o.Date)
		if err != nil {
			continue
		}
		if !at.Before(today) {
			st.Today++
			daily = daily.Add(o.Total)
		}
		if now.Sub(at) <= 7*24*time.Hour {
			st.Week++
		}
		if now.Sub(at) <= 30*24*time.Hour {
			st.Month++
			monthly = monthly.Add(o.Total)
		}
	}
	st.DailyRevenue = int(daily.IntPart())
	st.MonthlyRevenue = int(monthly.IntPart())
	if completed > 0 {
		st.AverageSale = int(all.Div(decimal.NewFromInt(int64(completed))).Round(0).IntPart())
	}
	return c.JSON(http.StatusOK, st)
}
