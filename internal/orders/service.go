package orders

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/sudo-init-do/efresco/internal/gateway"
	"github.com/sudo-init-do/efresco/internal/validation"
)

const defaultLimit = 10

// Roles an order can be listed by.
const (
	AsAny    = "todos"
	AsBuyer  = "comprador"
	AsSeller = "vendedor"
)

// Identity resolves the signed-in user.
type Identity interface {
	UserID() (int64, error)
}

type Service struct {
	api gateway.API
	me  Identity
	log *zap.Logger
}

func NewService(api gateway.API, me Identity, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{api: api, me: me, log: log.Named("orders")}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResponse, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	var out CreateResponse
	if _, err := s.api.Post(ctx, "pedidos", in, &out); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.log.Info("order created",
		zap.Int64("id", out.Order.ID),
		zap.Int64("seller", in.SellerID),
		zap.String("total", in.Total.StringFixed(2)),
	)
	return &out, nil
}

// Mine lists the signed-in user's orders. as is one of AsAny, AsBuyer or
// AsSeller; empty means AsAny.
func (s *Service) Mine(ctx context.Context, as string, page, limit int) (*Page, error) {
	id, err := s.me.UserID()
	if err != nil {
		return nil, err
	}
	switch as {
	case "":
		as = AsAny
	case AsAny, AsBuyer, AsSeller:
	default:
		return nil, fmt.Errorf("unknown order role %q", as)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	q := url.Values{
		"tipo":  {as},
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(limit)},
	}

	var out RecordList
	if _, err := s.api.Get(ctx, "pedidos/usuario/"+strconv.FormatInt(id, 10), q, &out); err != nil {
		return nil, fmt.Errorf("list orders of user %d: %w", id, err)
	}
	res := &Page{Orders: make([]Order, 0, len(out.Data)), Pagination: out.Pagination}
	for _, r := range out.Data {
		res.Orders = append(res.Orders, r.Order())
	}
	return res, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	var out struct {
		Order Order `json:"pedido"`
	}
	if _, err := s.api.Get(ctx, path(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return &out.Order, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*gateway.Response, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("unknown order status %q", status)
	}
	resp, err := s.api.Put(ctx, path(id)+"/estado", map[string]string{"estado": status}, nil)
	if err != nil {
		return nil, fmt.Errorf("set status of order %d: %w", id, err)
	}
	s.log.Info("order status changed", zap.Int64("id", id), zap.String("status", status))
	return resp, nil
}

func (s *Service) Cancel(ctx context.Context, id int64) (*gateway.Response, error) {
	resp, err := s.api.Put(ctx, path(id)+"/cancelar", struct{}{}, nil)
	if err != nil {
		return nil, fmt.Errorf("cancel order %d: %w", id, err)
	}
	s.log.Info("order cancelled", zap.Int64("id", id))
	return resp, nil
}

// Verify records a manual payment check.
func (s *Service) Verify(ctx context.Context, id int64, verified bool, notes string) (*gateway.Response, error) {
	body := struct {
		Verified bool   `json:"verificado_manualmente"`
		Notes    string `json:"notas_verificacion,omitempty"`
	}{verified, notes}
	resp, err := s.api.Patch(ctx, path(id)+"/verificar", body, nil)
	if err != nil {
		return nil, fmt.Errorf("verify order %d: %w", id, err)
	}
	return resp, nil
}

func (s *Service) SimulatePayment(ctx context.Context, id int64) (*gateway.Response, error) {
	resp, err := s.api.Post(ctx, path(id)+"/simular-pago", struct{}{}, nil)
	if err != nil {
		return nil, fmt.Errorf("simulate payment of order %d: %w", id, err)
	}
	return resp, nil
}

func (s *Service) Stats(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if _, err := s.api.Get(ctx, "pedidos/estadisticas", nil, &out); err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}
	return out, nil
}

func path(id int64) string { return "pedidos/" + strconv.FormatInt(id, 10) }
