package devserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sudo-init-do/efresco/internal/ads"
	mw "github.com/sudo-init-do/efresco/internal/middleware"
)

// listingFilter holds the query filters shared by both listing kinds.
type listingFilter struct {
	search    string
	productID int64
	location  string
	status    string
}

func readFilter(c echo.Context) listingFilter {
	f := listingFilter{
		search:   strings.TrimSpace(c.QueryParam("search")),
		location: strings.TrimSpace(c.QueryParam("ubicacion")),
		status:   c.QueryParam("estado"),
	}
	f.productID, _ = strconv.ParseInt(c.QueryParam("producto_id"), 10, 64)
	// without an explicit state only live listings are shown
	if f.status == "" {
		f.status = ads.StatusActive
	}
	return f
}

func (s *Server) listSales(c echo.Context) error {
	f := readFilter(c)
	lo, hi := priceRange(c)

	s.db.mu.RLock()
	var found []ads.Sale
	for _, a := range s.db.sales {
		if a.Status != f.status || !inRange(a.Price, lo, hi) {
			continue
		}
		if f.productID > 0 && a.Product.Key() != f.productID {
			continue
		}
		if f.location != "" && !matches(f.location, a.Location) {
			continue
		}
		if !matches(f.search, a.Product.Name, a.Description, a.Location) {
			continue
		}
		found = append(found, a)
	}
	s.db.mu.RUnlock()

	return c.JSON(http.StatusOK, saleList(c, found))
}

func saleList(c echo.Context, found []ads.Sale) ads.SaleList {
	items, p, limit, pages := paginate(c, found, 20)
	return ads.SaleList{Ads: items, Pagination: paginationOf(len(found), p, limit, pages)}
}

func (s *Server) getSale(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badID(c)
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	a, ok := s.db.sale(id)
	if !ok {
		return notFound(c, "Anuncio")
	}
	return c.JSON(http.StatusOK, echo.Map{"anuncio": a})
}

func (s *Server) createSale(c echo.Context) error {
	var req ads.SaleInput
	if ok, err := bind(c, &req); !ok {
		return err
	}
	me := mw.UserID(c)

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.product(req.ProductID)
	if !ok {
		return notFound(c, "Producto")
	}
	now := s.db.timestamp()
	a := ads.Sale{
		ID:          s.db.nextID("sale"),
		Product:     *p,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		Price:       req.Price,
		Description: strings.TrimSpace(req.Description),
		Location:    strings.TrimSpace(req.Location),
		Lat:         req.Lat,
		Lng:         req.Lng,
		Seller:      s.db.contact(me),
		CreatedAt:   now,
		UpdatedAt:   now,
		Status:      ads.StatusActive,
	}
	s.db.sales = append(s.db.sales, a)
	if acc, ok := s.db.users[me]; ok {
		acc.AdsToday++
	}
	s.log.Info("sale listing created", zap.Int64("id", a.ID), zap.Int64("seller", me))
	return c.JSON(http.StatusCreated, ads.SaleResponse{Message: "Anuncio creado exitosamente", Ad: a})
}

// ownedSale finds a sale listing the caller may change. Writes the error
// response itself when it returns nil.
func (s *Server) ownedSale(c echo.Context) (*ads.Sale, error) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, badID(c)
	}
	a, ok := s.db.sale(id)
	if !ok {
		return nil, notFound(c, "Anuncio")
	}
	if a.Seller.ID != mw.UserID(c) && !isAdmin(c) {
		return nil, forbidden(c)
	}
	return a, nil
}

func (s *Server) updateSale(c echo.Context) error {
	var req ads.SaleUpdate
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, err := s.ownedSale(c)
	if a == nil {
		return err
	}
	if req.Quantity != nil {
		a.Quantity = *req.Quantity
	}
	if req.Price != nil {
		a.Price = *req.Price
	}
	setString(&a.Unit, req.Unit)
	setString(&a.Description, req.Description)
	setString(&a.Location, req.Location)
	if req.Lat != nil {
		a.Lat = req.Lat
	}
	if req.Lng != nil {
		a.Lng = req.Lng
	}
	a.UpdatedAt = s.db.timestamp()
	return c.JSON(http.StatusOK, ads.SaleResponse{Message: "Anuncio actualizado exitosamente", Ad: *a})
}

func (s *Server) deleteSale(c echo.Context) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, err := s.ownedSale(c)
	if a == nil {
		return err
	}
	id := a.ID
	s.db.sales, _ = remove(s.db.sales, func(x ads.Sale) bool { return x.ID == id })
	return c.JSON(http.StatusOK, echo.Map{"mensaje": "Anuncio eliminado exitosamente"})
}

func (s *Server) setSaleStatus(c echo.Context) error {
	var req struct {
		Status string `json:"estado" validate:"required,oneof=activo pausado vendido"`
	}
	if ok, err := bind(c, &req); !ok {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, err := s.ownedSale(c)
	if a == nil {
		return err
	}
	a.Status = req.Status
	a.UpdatedAt = s.db.timestamp()
	return c.JSON(http.StatusOK, ads.SaleResponse{Message: "Estado actualizado", Ad: *a})
}

func (s *Server) mySales(c echo.Context) error {
	me := mw.UserID(c)
	s.db.mu.RLock()
	var found []ads.Sale
	for _, a := range s.db.sales {
		if a.Seller.ID == me {
			found = append(found, a)
		}
	}
	s.db.mu.RUnlock()
	return c.JSON(http.StatusOK, saleList(c, found))
}

func (s *Server) listPurchases(c echo.Context) error {
	f := readFilter(c)
	lo, hi := priceRange(c)

	s.db.mu.RLock()
	var found []ads.Purchase
	for _, a := range s.db.purchases {
		if a.Status != f.status || !inRange(a.OfferPrice, lo, hi) {
			continue
		}
		name := ""
		if a.Product != nil {
			name = a.Product.Name
			if f.productID > 0 && a.Product.Key() != f.productID {
				continue
			}
		} else if f.productID > 0 {
			continue
		}
		if !matches(f.search, name, a.Description) {
			continue
		}
		found = append(found, a)
	}
	s.db.mu.RUnlock()

	return c.JSON(http.StatusOK, purchaseList(c, found))
}

func purchaseList(c echo.Context, found []ads.Purchase) ads.PurchaseList {
	items, p, limit, pages := paginate(c, found, 20)
	return ads.PurchaseList{Ads: items, Total: len(found), Page: p, Limit: limit, Pages: pages}
}

func (s *Server) getPurchase(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badID(c)
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	a, ok := s.db.purchase(id)
	if !ok {
		return notFound(c, "Anuncio")
	}
	return c.JSON(http.StatusOK, ads.PurchaseResponse{Ad: *a})
}

func (s *Server) createPurchase(c echo.Context) error {
	var req ads.PurchaseInput
	if ok, err := bind(c, &req); !ok {
		return err
	}
	me := mw.UserID(c)

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.product(req.ProductID)
	if !ok {
		return notFound(c, "Producto")
	}
	cp := *p
	a := ads.Purchase{
		ID:          s.db.nextID("purchase"),
		Product:     &cp,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		OfferPrice:  req.OfferPrice,
		Description: strings.TrimSpace(req.Description),
		Buyer:       s.db.contact(me),
		CreatedAt:   s.db.timestamp(),
		Status:      ads.StatusActive,
	}
	s.db.purchases = append(s.db.purchases, a)
	s.log.Info("purchase listing created", zap.Int64("id", a.ID), zap.Int64("buyer", me))
	return c.JSON(http.StatusCreated, ads.PurchaseResponse{Message: "Anuncio de compra creado exitosamente", Ad: a})
}

func (s *Server) ownedPurchase(c echo.Context) (*ads.Purchase, error) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, badID(c)
	}
	a, ok := s.db.purchase(id)
	if !ok {
		return nil, notFound(c, "Anuncio")
	}
	if a.Buyer.ID != mw.UserID(c) && !isAdmin(c) {
		return nil, forbidden(c)
	}
	return a, nil
}

func (s *Server) updatePurchase(c echo.Context) error {
	var req ads.PurchaseUpdate
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, err := s.ownedPurchase(c)
	if a == nil {
		return err
	}
	if req.Quantity != nil {
		a.Quantity = *req.Quantity
	}
	if req.OfferPrice != nil {
		a.OfferPrice = *req.OfferPrice
	}
	setString(&a.Unit, req.Unit)
	setString(&a.Description, req.Description)
	return c.JSON(http.StatusOK, ads.PurchaseResponse{Message: "Anuncio actualizado exitosamente", Ad: *a})
}

func (s *Server) deletePurchase(c echo.Context) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, err := s.ownedPurchase(c)
	if a == nil {
		return err
	}
	id := a.ID
	s.db.purchases, _ = remove(s.db.purchases, func(x ads.Purchase) bool { return x.ID == id })
	return c.JSON(http.StatusOK, echo.Map{"mensaje": "Anuncio eliminado exitosamente"})
}

func (s *Server) myPurchases(c echo.Context) error {
	me := mw.UserID(c)
	s.db.mu.RLock()
	var found []ads.Purchase
	for _, a := range s.db.purchases {
		if a.Buyer.ID == me {
			found = append(found, a)
		}
	}
	s.db.mu.RUnlock()
	return c.JSON(http.StatusOK, purchaseList(c, found))
}

// myAds serves either kind of the caller's listings, picked by tipo.
func (s *Server) myAds(c echo.Context) error {
	switch c.QueryParam("tipo") {
	case ads.KindSale:
		return s.mySales(c)
	case ads.KindPurchase:
		return s.myPurchases(c)
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "tipo must be venta or compra"})
}
