package devserver

import (
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sudo-init-do/efresco/internal/products"
)

// priceRange reads precio_min and precio_max; unset bounds are nil.
func priceRange(c echo.Context) (lo, hi *decimal.Decimal) {
	if v, err := decimal.NewFromString(c.QueryParam("precio_min")); err == nil {
		lo = &v
	}
	if v, err := decimal.NewFromString(c.QueryParam("precio_max")); err == nil {
		hi = &v
	}
	return lo, hi
}

func inRange(price decimal.Decimal, lo, hi *decimal.Decimal) bool {
	if lo != nil && price.LessThan(*lo) {
		return false
	}
	if hi != nil && price.GreaterThan(*hi) {
		return false
	}
	return true
}

func matches(term string, fields ...string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func (s *Server) listProducts(c echo.Context) error {
	search := strings.TrimSpace(c.QueryParam("search"))
	category, _ := strconv.ParseInt(c.QueryParam("categoria_id"), 10, 64)
	lo, hi := priceRange(c)

	s.db.mu.RLock()
	var found []products.Product
	for _, p := range s.db.products {
		if !matches(search, p.Name, p.Description) || !inRange(p.Price, lo, hi) {
			continue
		}
		if category > 0 && !slices.ContainsFunc(p.Categories, func(cat products.Category) bool { return cat.ID == category }) {
			continue
		}
		found = append(found, p)
	}
	s.db.mu.RUnlock()

	items, p, limit, pages := paginate(c, found, 10)
	return c.JSON(http.StatusOK, products.ListResponse{
		Products:   items,
		Pagination: paginationOf(len(found), p, limit, pages),
	})
}

func paginationOf(total, page, limit, pages int) products.Pagination {
	return products.Pagination{Total: total, Page: page, Limit: limit, Pages: pages}
}

func (s *Server) getProduct(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badID(c)
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	p, ok := s.db.product(id)
	if !ok {
		return notFound(c, "Producto")
	}
	return c.JSON(http.StatusOK, products.DetailResponse{Product: *p})
}

func (s *Server) categories(ids []int64) []products.Category {
	known := map[int64]products.Category{}
	for _, p := range s.db.products {
		for _, cat := range p.Categories {
			known[cat.ID] = cat
		}
	}
	out := make([]products.Category, 0, len(ids))
	for _, id := range ids {
		cat, ok := known[id]
		if !ok {
			cat = products.Category{ID: id}
		}
		out = append(out, cat)
	}
	return out
}

func (s *Server) createProduct(c echo.Context) error {
	var req products.Input
	if ok, err := bind(c, &req); !ok {
		return err
	}
	s.db.mu.Lock()
	id := s.db.nextID("product")
	p := products.Product{
		ID:          id,
		LegacyID:    id,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Unit:        req.Unit,
		Categories:  s.categories(req.CategoryIDs),
	}
	s.db.products = append(s.db.products, p)
	s.db.mu.Unlock()

	s.log.Info("product created", zap.Int64("id", id))
	return c.JSON(http.StatusCreated, products.MutationResponse{Message: "Producto creado exitosamente", Product: p})
}

func (s *Server) updateProduct(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badID(c)
	}
	var req products.Input
	if ok, err := bind(c, &req); !ok {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.product(id)
	if !ok {
		return notFound(c, "Producto")
	}
	p.Name = strings.TrimSpace(req.Name)
	p.Description = strings.TrimSpace(req.Description)
	p.Price = req.Price
	p.Unit = req.Unit
	if len(req.CategoryIDs) > 0 {
		p.Categories = s.categories(req.CategoryIDs)
	}
	return c.JSON(http.StatusOK, products.MutationResponse{Message: "Producto actualizado exitosamente", Product: *p})
}

func (s *Server) deleteProduct(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badID(c)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var removed bool
	s.db.products, removed = remove(s.db.products, func(p products.Product) bool { return p.Key() == id })
	if !removed {
		return notFound(c, "Producto")
	}
	return c.JSON(http.StatusOK, echo.Map{"mensaje": "Producto eliminado exitosamente"})
}

func (s *Server) uploadProductImage(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badID(c)
	}
	file, err := c.FormFile("imagen")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "imagen file is required"})
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.product(id)
	if !ok {
		return notFound(c, "Producto")
	}
	p.ImageURL = "/uploads/productos/" + strconv.FormatInt(id, 10) + "/" + filepath.Base(file.Filename)
	return c.JSON(http.StatusOK, products.ImageResponse{Message: "Imagen subida exitosamente", ImageURL: p.ImageURL})
}

func (s *Server) deleteProductImage(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badID(c)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.product(id)
	if !ok {
		return notFound(c, "Producto")
	}
	p.ImageURL = ""
	return c.JSON(http.StatusOK, echo.Map{"mensaje": "Imagen eliminada"})
}
