// Package devserver is an in-memory stand-in for the marketplace backend. It
// serves the same routes over the demo dataset and can pretend to be asleep
// like the hosted instance does after a quiet period.
package devserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/sudo-init-do/efresco/internal/config"
	"github.com/sudo-init-do/efresco/internal/fixtures"
	mw "github.com/sudo-init-do/efresco/internal/middleware"
	"github.com/sudo-init-do/efresco/internal/user"
	"github.com/sudo-init-do/efresco/internal/utils"
	"github.com/sudo-init-do/efresco/internal/validation"
)

const healthPath = "/api/health"

type Server struct {
	echo    *echo.Echo
	db      *store
	tokens  *utils.Tokens
	sleeper *mw.Sleeper
	log     *zap.Logger
}

type Option func(*options)

type options struct {
	dataset    *fixtures.Dataset
	bcryptCost int
	now        func() time.Time
	registry   *prometheus.Registry
}

// WithDataset seeds the server with ds instead of the embedded demo data.
func WithDataset(ds *fixtures.Dataset) Option { return func(o *options) { o.dataset = ds } }

// WithBcryptCost lowers hashing cost, mostly for tests.
func WithBcryptCost(cost int) Option { return func(o *options) { o.bcryptCost = cost } }

func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

func WithRegistry(r *prometheus.Registry) Option { return func(o *options) { o.registry = r } }

func New(cfg config.DevConfig, log *zap.Logger, opts ...Option) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	o := options{bcryptCost: bcrypt.DefaultCost, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dataset == nil {
		ds, err := fixtures.Load()
		if err != nil {
			return nil, err
		}
		o.dataset = ds
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	db, err := newStore(o.dataset, o.bcryptCost, o.now)
	if err != nil {
		return nil, err
	}
	s := &Server{
		echo:    echo.New(),
		db:      db,
		tokens:  utils.NewTokens(cfg.JWTSecret, cfg.TokenTTL),
		sleeper: mw.NewSleeper(healthPath, cfg.Asleep),
		log:     log.Named("devserver"),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Validator = requestValidator{}
	s.routes(cfg, newMetrics(o.registry), o.registry)
	return s, nil
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler { return s.echo }

// Sleep makes every request but the health probe answer 503 until the next
// probe.
func (s *Server) Sleep() { s.sleeper.Sleep() }

func (s *Server) Asleep() bool { return s.sleeper.Asleep() }

func (s *Server) Start(addr string) error {
	s.log.Info("dev backend listening", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Close() error { return s.echo.Close() }

// Shutdown stops accepting requests and waits for those in flight.
func (s *Server) Shutdown(ctx context.Context) error { return s.echo.Shutdown(ctx) }

func (s *Server) routes(cfg config.DevConfig, m *metrics, reg *prometheus.Registry) {
	e := s.echo
	e.Use(echomw.Recover())
	e.Use(s.requestLogger)
	e.Use(m.middleware)
	e.Use(s.sleeper.Middleware)

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	api := e.Group("/api")
	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	// Auth routes with per-IP rate limiting to protect signup/login from abuse
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 20
	}
	authGroup := api.Group("")
	authGroup.Use(echomw.RateLimiter(echomw.NewRateLimiterMemoryStore(rate.Limit(limit))))
	authGroup.POST("/usuarios/login", s.login)
	authGroup.POST("/auth/login", s.login)
	authGroup.POST("/usuarios/registro", s.register)

	api.GET("/productos", s.listProducts)
	api.GET("/productos/:id", s.getProduct)
	api.GET("/anuncios/venta", s.listSales)
	api.GET("/anuncios/venta/:id", s.getSale)
	api.GET("/anuncios/compra", s.listPurchases)
	api.GET("/anuncios/compra/:id", s.getPurchase)
	api.GET("/reputacion/usuario/:id", s.userReputation)

	auth := api.Group("", mw.JWT(s.tokens))
	producer := mw.RequireRoles(user.RoleProducer, user.RoleAdmin)
	buyer := mw.RequireRoles(user.RoleBuyer, user.RoleAdmin)

	auth.GET("/usuarios/perfil", s.profile)
	auth.PUT("/usuarios/perfil", s.updateProfile)
	auth.POST("/usuarios/foto-perfil", s.uploadPhoto)
	auth.DELETE("/usuarios/foto-perfil", s.deletePhoto)

	auth.POST("/productos", s.createProduct, producer)
	auth.PUT("/productos/:id", s.updateProduct, producer)
	auth.DELETE("/productos/:id", s.deleteProduct, producer)
	auth.POST("/productos/:id/imagen", s.uploadProductImage, producer)
	auth.DELETE("/productos/:id/imagen", s.deleteProductImage, producer)

	auth.GET("/anuncios/mis-anuncios", s.myAds)
	auth.POST("/anuncios/venta", s.createSale, producer)
	auth.GET("/anuncios/venta/mis-anuncios", s.mySales)
	auth.PUT("/anuncios/venta/:id", s.updateSale)
	auth.DELETE("/anuncios/venta/:id", s.deleteSale)
	auth.PUT("/anuncios/venta/:id/estado", s.setSaleStatus)
	auth.POST("/anuncios/compra", s.createPurchase, buyer)
	auth.GET("/anuncios/compra/mis-anuncios", s.myPurchases)
	auth.PUT("/anuncios/compra/:id", s.updatePurchase)
	auth.DELETE("/anuncios/compra/:id", s.deletePurchase)

	auth.POST("/pedidos", s.createOrder)
	auth.GET("/pedidos/estadisticas", s.orderStats)
	auth.GET("/pedidos/usuario/:id", s.userOrders)
	auth.GET("/pedidos/:id", s.getOrder)
	auth.PUT("/pedidos/:id/estado", s.setOrderStatus)
	auth.PUT("/pedidos/:id/cancelar", s.cancelOrder)
	auth.PATCH("/pedidos/:id/verificar", s.verifyOrder, mw.AdminGuard)
	auth.POST("/pedidos/:id/simular-pago", s.simulatePayment)

	auth.GET("/chats", s.listChats)
	auth.POST("/chat", s.createChat)
	auth.GET("/chat/:id/mensajes", s.listMessages)
	auth.POST("/chat/:id/mensajes", s.sendMessage)
	auth.PUT("/chat/:id/mensajes/marcar-leidos", s.markRead)

	auth.POST("/reputacion", s.rate)
	auth.GET("/reputacion/mis-calificaciones", s.myRatings)
	auth.GET("/reputacion/puede-calificar/:pedido/:usuario", s.canRate)
	auth.GET("/reputacion/pendientes", s.pendingRatings)

	auth.GET("/favoritos", s.listFavorites)
	auth.POST("/favoritos", s.addFavorite)
	auth.DELETE("/favoritos/:id", s.removeFavorite)

	admin := auth.Group("", mw.AdminGuard)
	admin.GET("/usuarios", s.listUsers)
	admin.GET("/usuarios/admin/stats", s.userStats)
	admin.GET("/usuarios/admin/dashboard-stats", s.dashboardStats)
	admin.GET("/usuarios/admin/:id", s.getUser)
	admin.PUT("/usuarios/admin/:id", s.updateUser)
	admin.DELETE("/usuarios/admin/:id", s.deleteUser)
	admin.GET("/productos/admin/stats", s.productStats)
	admin.GET("/ventas/admin/stats", s.salesStats)
	admin.GET("/pedidos/admin/stats", s.adminOrderStats)
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.log.Debug("request",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.Int("status", c.Response().Status),
			zap.Duration("took", time.Since(start)),
		)
		return nil
	}
}

type requestValidator struct{}

func (requestValidator) Validate(i any) error { return validation.Struct(i) }

// bind decodes and validates the body into v. On failure the error response
// has already been written and ok is false.
func bind(c echo.Context, v any) (ok bool, err error) {
	if err := c.Bind(v); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(v); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			return false, c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error(), "campos": verr.Fields})
		}
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return true, nil
}

func idParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func badID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
}

func notFound(c echo.Context, what string) error {
	return c.JSON(http.StatusNotFound, echo.Map{"error": what + " no encontrado"})
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
}

func queryInt(c echo.Context, name string, def int) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// maxPageSize matches the admin dashboard, which counts from one large page.
const maxPageSize = 10000

// pageParams reads page and limit, capping limit at maxPageSize.
func pageParams(c echo.Context, defLimit int) (int, int) {
	return queryInt(c, "page", 1), min(queryInt(c, "limit", defLimit), maxPageSize)
}

// offset is where page p starts, clamped to total.
func offset(p, limit, total int) int {
	if p-1 > total/limit {
		return total
	}
	return min((p-1)*limit, total)
}

// paginate slices items for the page and limit query parameters.
func paginate[T any](c echo.Context, items []T, defLimit int) ([]T, int, int, int) {
	p, limit := pageParams(c, defLimit)
	total := len(items)
	pages := max((total+limit-1)/limit, 1)
	start := offset(p, limit, total)
	end := min(start+limit, total)
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out, p, limit, pages
}

func isAdmin(c echo.Context) bool {
	u := user.User{Roles: mw.Roles(c)}
	return u.IsAdmin()
}
