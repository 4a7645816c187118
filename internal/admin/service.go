// Package admin is the administrator's view of the marketplace: account
// management and dashboard figures.
package admin

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sudo-init-do/efresco/internal/gateway"
	"github.com/sudo-init-do/efresco/internal/products"
	"github.com/sudo-init-do/efresco/internal/user"
	"github.com/sudo-init-do/efresco/internal/validation"
)

const (
	defaultLimit = 10
	// dashboardLimit is large enough to count every row in one page.
	dashboardLimit = 10000
)

type Service struct {
	api gateway.API
	log *zap.Logger
}

func NewService(api gateway.API, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{api: api, log: log.Named("admin")}
}

func pageQuery(page, limit int) url.Values {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	return url.Values{"page": {strconv.Itoa(page)}, "limit": {strconv.Itoa(limit)}}
}

func (s *Service) ListUsers(ctx context.Context, page, limit int) (*UserList, error) {
	var out UserList
	if _, err := s.api.Get(ctx, "usuarios/", pageQuery(page, limit), &out); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return &out, nil
}

// SearchUsers matches name or email.
func (s *Service) SearchUsers(ctx context.Context, query string, page, limit int) (*UserList, error) {
	q := pageQuery(page, limit)
	q.Set("search", strings.TrimSpace(query))
	var out UserList
	if _, err := s.api.Get(ctx, "usuarios/", q, &out); err != nil {
		return nil, fmt.Errorf("search users %q: %w", query, err)
	}
	return &out, nil
}

// GetUser accepts the account bare or wrapped in "usuario".
func (s *Service) GetUser(ctx context.Context, id int64) (*user.User, error) {
	var wrapped struct {
		User *user.User `json:"usuario"`
	}
	resp, err := s.api.Get(ctx, userPath(id), nil, &wrapped)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	if wrapped.User != nil {
		return wrapped.User, nil
	}
	var u user.User
	if err := resp.Decode(&u); err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}

func (s *Service) UpdateUser(ctx context.Context, id int64, in UserUpdate) (*gateway.Response, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	resp, err := s.api.Put(ctx, userPath(id), in, nil)
	if err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	s.log.Info("user updated", zap.Int64("user", id))
	return resp, nil
}

func (s *Service) SetUserState(ctx context.Context, id int64, change StateChange) (*gateway.Response, error) {
	if change.Verified == nil && change.Active == nil {
		return nil, fmt.Errorf("user %d: nothing to change", id)
	}
	resp, err := s.api.Put(ctx, userPath(id), change, nil)
	if err != nil {
		return nil, fmt.Errorf("change state of user %d: %w", id, err)
	}
	fields := []zap.Field{zap.Int64("user", id)}
	if change.Verified != nil {
		fields = append(fields, zap.Bool("verified", *change.Verified))
	}
	if change.Active != nil {
		fields = append(fields, zap.Bool("active", *change.Active))
	}
	s.log.Info("user state changed", fields...)
	return resp, nil
}

func (s *Service) VerifyUser(ctx context.Context, id int64) (*gateway.Response, error) {
	return s.SetUserState(ctx, id, StateChange{Verified: ptr(true)})
}

func (s *Service) ActivateUser(ctx context.Context, id int64) (*gateway.Response, error) {
	return s.SetUserState(ctx, id, StateChange{Active: ptr(true)})
}

func (s *Service) DeactivateUser(ctx context.Context, id int64) (*gateway.Response, error) {
	return s.SetUserState(ctx, id, StateChange{Active: ptr(false)})
}

func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.api.Delete(ctx, userPath(id), nil); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	s.log.Info("user deleted", zap.Int64("user", id))
	return nil
}

// Dashboard counts users, producers and products from full listings fetched
// in parallel. Figures the backend has no source for stay zero. If either
// listing fails the fixed demo figures are returned.
func (s *Service) Dashboard(ctx context.Context) Dashboard {
	var (
		users UserList
		prods products.ListResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.api.Get(gctx, "usuarios/", pageQuery(1, dashboardLimit), &users)
		return err
	})
	g.Go(func() error {
		_, err := s.api.Get(gctx, "productos", pageQuery(1, dashboardLimit), &prods)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Warn("dashboard figures unavailable, using demo figures", zap.Error(err))
		return fallbackDashboard
	}

	d := Dashboard{
		Users:    users.Pagination.Total,
		Products: prods.Pagination.Total,
	}
	if d.Users == 0 {
		d.Users = len(users.Users)
	}
	if d.Products == 0 {
		d.Products = len(prods.Products)
	}
	for _, u := range users.Users {
		if u.HasRole(user.RoleProducer) {
			d.Producers++
		}
	}
	return d
}

// ServerDashboard is the backend's own dashboard summary, undecoded.
func (s *Service) ServerDashboard(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if _, err := s.api.Get(ctx, "usuarios/admin/dashboard-stats", nil, &out); err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return out, nil
}

func (s *Service) UserStats(ctx context.Context) UserStats {
	return stats(ctx, s, "usuarios/admin/stats", fallbackUsers)
}

func (s *Service) ProductStats(ctx context.Context) ProductStats {
	return stats(ctx, s, "productos/admin/stats", fallbackProducts)
}

func (s *Service) SalesStats(ctx context.Context) SalesStats {
	return stats(ctx, s, "ventas/admin/stats", fallbackSales)
}

func (s *Service) OrderStats(ctx context.Context) OrderStats {
	return stats(ctx, s, "pedidos/admin/stats", fallbackOrders)
}

// stats fetches one stats endpoint and answers fallback when it fails.
func stats[T any](ctx context.Context, s *Service, path string, fallback T) T {
	var out T
	if _, err := s.api.Get(ctx, path, nil, &out); err != nil {
		s.log.Warn("stats unavailable, using demo figures", zap.String("path", path), zap.Error(err))
		return fallback
	}
	return out
}

func userPath(id int64) string { return "usuarios/admin/" + strconv.FormatInt(id, 10) }

func ptr[T any](v T) *T { return &v }
