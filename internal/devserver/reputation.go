package devserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	mw "github.com/sudo-init-do/efresco/internal/middleware"
	"github.com/sudo-init-do/efresco/internal/orders"
	"github.com/sudo-init-do/efresco/internal/reputation"
)

const recentRatings = 5

func counterpart(o *orders.Record, me int64) int64 {
	if o.BuyerID == me {
		return o.SellerID
	}
	return o.BuyerID
}

func (s *Server) rated(orderID, rater int64) bool {
	for _, r := range s.db.ratings {
		if r.OrderID == orderID && r.RaterID == rater {
			return true
		}
	}
	return false
}

// eligibility decides whether rater may score rated for an order: the
// order must be completed, both must be its parties and each party rates
// once.
func (s *Server) eligibility(orderID, rater, rated int64) (reputation.Eligibility, int) {
	o, ok := s.db.order(orderID)
	if !ok {
		return reputation.Eligibility{Reason: "pedido no encontrado"}, http.StatusNotFound
	}
	if !involves(o, rater) {
		return reputation.Eligibility{Reason: "el pedido no es tuyo"}, http.StatusForbidden
	}
	if rated == rater || counterpart(o, rater) != rated {
		return reputation.Eligibility{Reason: "solo puedes calificar a la otra parte del pedido"}, http.StatusBadRequest
	}
	if o.Status != orders.StatusCompleted {
		return reputation.Eligibility{Reason: "solo se califican pedidos completados"}, http.StatusBadRequest
	}
	if s.rated(orderID, rater) {
		return reputation.Eligibility{Reason: "ya calificaste este pedido"}, http.StatusConflict
	}
	return reputation.Eligibility{CanRate: true}, http.StatusOK
}

func (s *Server) rate(c echo.Context) error {
	var req reputation.RateInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	me := mw.UserID(c)

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if el, status := s.eligibility(req.OrderID, me, req.RatedID); !el.CanRate {
		return c.JSON(status, echo.Map{"error": el.Reason})
	}
	rater := s.db.summary(me)
	r := reputation.Rating{
		ID:      s.db.nextID("rating"),
		RaterID: me,
		RatedID: req.RatedID,
		Score:   req.Score,
		Comment: req.Comment,
		RatedAt: s.db.timestamp(),
		OrderID: req.OrderID,
		Rater:   &rater,
	}
	s.db.ratings = append(s.db.ratings, r)
	s.log.Info("rating created", zap.Int64("order", r.OrderID), zap.Int64("rated", r.RatedID), zap.Int("score", r.Score))
	return c.JSON(http.StatusCreated, reputation.RateResponse{Message: "Calificación registrada exitosamente", Rating: r})
}

func (s *Server) received(id int64) []reputation.Rating {
	out := []reputation.Rating{}
	for i := len(s.db.ratings) - 1; i >= 0; i-- {
		if s.db.ratings[i].RatedID == id {
			out = append(out, s.db.ratings[i])
		}
	}
	return out
}

func (s *Server) userReputation(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badID(c)
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if _, ok := s.db.users[id]; !ok {
		return notFound(c, "Usuario")
	}
	all := s.received(id)
	recent := all
	if len(recent) > recentRatings {
		recent = recent[:recentRatings]
	}
	return c.JSON(http.StatusOK, reputation.UserReputation{
		User:   s.db.summary(id),
		Stats:  reputation.Summarize(all),
		Recent: recent,
	})
}

func (s *Server) myRatings(c echo.Context) error {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return c.JSON(http.StatusOK, echo.Map{"calificaciones": s.received(mw.UserID(c))})
}

func (s *Server) canRate(c echo.Context) error {
	orderID, ok := idParam(c, "pedido")
	if !ok {
		return badID(c)
	}
	rated, ok := idParam(c, "usuario")
	if !ok {
		return badID(c)
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	el, _ := s.eligibility(orderID, mw.UserID(c), rated)
	return c.JSON(http.StatusOK, el)
}

// pendingRatings lists the caller's completed orders whose other party has
// not been rated yet.
func (s *Server) pendingRatings(c echo.Context) error {
	me := mw.UserID(c)
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := []reputation.PendingRating{}
	for i := range s.db.orders {
		o := &s.db.orders[i]
		if o.Status != orders.StatusCompleted || !involves(o, me) || s.rated(o.ID, me) {
			continue
		}
		p := reputation.PendingRating{
			OrderID:     o.ID,
			User:        s.db.summary(counterpart(o, me)),
			DeliveredAt: o.Date,
		}
		if o.Ad != nil {
			p.Product = o.Ad.Product.Name
		}
		out = append(out, p)
	}
	return c.JSON(http.StatusOK, echo.Map{"pedidos_pendientes": out})
}
