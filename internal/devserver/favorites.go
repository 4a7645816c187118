package devserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/efresco/internal/favorites"
	mw "github.com/sudo-init-do/efresco/internal/middleware"
)

// resolve expands a stored favorite with the item it points at. Favorites
// whose item has since been removed are dropped.
func (s *Server) resolve(f favorite) (favorites.Favorite, bool) {
	out := favorites.Favorite{ID: f.ID, Kind: f.Kind, AddedAt: f.AddedAt}
	switch f.Kind {
	case favorites.KindProduct:
		p, ok := s.db.product(f.ProductID)
		if !ok {
			return out, false
		}
		cp := *p
		out.Product = &cp
	case favorites.KindSaleAd:
		a, ok := s.db.sale(f.AdID)
		if !ok {
			return out, false
		}
		cp := *a
		out.SaleAd = &cp
	}
	return out, true
}

func (s *Server) listFavorites(c echo.Context) error {
	me := mw.UserID(c)
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := []favorites.Favorite{}
	for _, f := range s.db.favorites {
		if f.UserID != me {
			continue
		}
		if fav, ok := s.resolve(f); ok {
			out = append(out, fav)
		}
	}
	return c.JSON(http.StatusOK, favorites.List{Favorites: out, Total: len(out)})
}

func (s *Server) addFavorite(c echo.Context) error {
	var req struct {
		ProductID int64 `json:"id_producto"`
		AdID      int64 `json:"id_anuncio_venta"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if (req.ProductID > 0) == (req.AdID > 0) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "indica id_producto o id_anuncio_venta"})
	}
	me := mw.UserID(c)

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	f := favorite{UserID: me, ProductID: req.ProductID, AdID: req.AdID}
	if req.ProductID > 0 {
		f.Kind = favorites.KindProduct
		if _, ok := s.db.product(req.ProductID); !ok {
			return notFound(c, "Producto")
		}
	} else {
		f.Kind = favorites.KindSaleAd
		if _, ok := s.db.sale(req.AdID); !ok {
			return notFound(c, "Anuncio")
		}
	}
	for _, x := range s.db.favorites {
		if x.UserID == me && x.Kind == f.Kind && x.ProductID == f.ProductID && x.AdID == f.AdID {
			return c.JSON(http.StatusConflict, echo.Map{"error": "ya está en favoritos"})
		}
	}
	f.ID = s.db.nextID("favorite")
	f.AddedAt = s.db.timestamp()
	s.db.favorites = append(s.db.favorites, f)
	return c.JSON(http.StatusCreated, echo.Map{"mensaje": "Agregado a favoritos", "id_favorito": f.ID})
}

func (s *Server) removeFavorite(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badID(c)
	}
	me := mw.UserID(c)
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, f := range s.db.favorites {
		if f.ID != id {
			continue
		}
		if f.UserID != me {
			return forbidden(c)
		}
		s.db.favorites, _ = remove(s.db.favorites, func(x favorite) bool { return x.ID == id })
		return c.JSON(http.StatusOK, echo.Map{"mensaje": "Eliminado de favoritos"})
	}
	return c.JSON(http.StatusNotFound, echo.Map{"error": "Favorito no encontrado"})
}
