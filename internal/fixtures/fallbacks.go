package fixtures

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/efresco/internal/chat"
	"github.com/sudo-init-do/efresco/internal/gateway"
	"github.com/sudo-init-do/efresco/internal/orders"
	"github.com/sudo-init-do/efresco/internal/products"
	"github.com/sudo-init-do/efresco/internal/reputation"
	"github.com/sudo-init-do/efresco/internal/user"
)

// Fallbacks is the offline table over a freshly loaded dataset.
func Fallbacks() *gateway.Fallbacks {
	return NewOffline(MustLoad(), DefaultStamp()).Fallbacks()
}

// Offline builds the demo payloads the gateway serves while the backend is
// unreachable. Payloads have the shape of the live answers.
type Offline struct {
	ds    *Dataset
	stamp Stamp
}

func NewOffline(ds *Dataset, stamp Stamp) *Offline {
	return &Offline{ds: ds, stamp: stamp}
}

// Fallbacks registers every offline route. Longer patterns come first where
// two could overlap.
func (o *Offline) Fallbacks() *gateway.Fallbacks {
	return gateway.NewFallbacks().
		Handle("", "productos", o.productList).
		Handle("", "productos/{id}", o.productDetail).
		Handle("", "pedidos", o.createOrder).
		Handle("", "pedidos/usuario/{id}", o.userOrders).
		Handle("", "pedidos/{id}", o.orderDetail).
		Handle("", "chats", o.chatList).
		Handle("", "chat", o.createChat).
		Handle("POST", "chat/{id}/mensajes", o.sendMessage).
		Handle("GET", "chat/{id}/mensajes", o.chatMessages).
		Handle("", "chat/{id}/mensajes/marcar-leidos", o.markRead).
		Handle("", "reputacion", o.rate).
		Handle("", "reputacion/usuario/{id}", o.userReputation).
		Handle("", "reputacion/mis-calificaciones", o.myRatings).
		Handle("", "reputacion/puede-calificar/{pedido}/{usuario}", o.canRate).
		Handle("", "reputacion/pendientes", o.pending).
		Handle("", "auth/login", o.login).
		Handle("", "usuarios/login", o.login)
}

func (o *Offline) productList(gateway.Request, []string) (any, error) {
	return products.ListResponse{Products: o.ds.Products, Pagination: o.ds.ProductsPagination}, nil
}

// productDetail answers the first product for unknown ids.
func (o *Offline) productDetail(_ gateway.Request, params []string) (any, error) {
	p, ok := o.ds.Product(param(params, 0))
	if !ok && len(o.ds.Products) > 0 {
		p = o.ds.Products[0]
	}
	return products.DetailResponse{Product: p}, nil
}

func (o *Offline) createOrder(req gateway.Request, _ []string) (any, error) {
	in := orders.CreateInput{
		BuyerID:  1,
		SellerID: 2,
		Total:    decimal.RequireFromString("1550.00"),
		AdKind:   "venta",
		AdID:     1,
	}
	decodeBody(req, &in)
	return orders.CreateResponse{
		Message: "Pedido creado exitosamente",
		Order: orders.Order{
			ID:        o.stamp.ID(1, 1000),
			BuyerID:   in.BuyerID,
			SellerID:  in.SellerID,
			Total:     in.Total,
			Status:    orders.StatusPending,
			OrderedAt: o.stamp.now(),
			AdKind:    in.AdKind,
			AdID:      in.AdID,
		},
	}, nil
}

func (o *Offline) userOrders(gateway.Request, []string) (any, error) {
	return orders.RecordList{
		Success: true,
		Data:    o.ds.Orders,
		Pagination: orders.Paging{
			CurrentPage:  1,
			TotalPages:   1,
			TotalItems:   len(o.ds.Orders),
			ItemsPerPage: 10,
		},
	}, nil
}

func (o *Offline) orderDetail(_ gateway.Request, params []string) (any, error) {
	r, ok := o.ds.Order(param(params, 0))
	if !ok && len(o.ds.Orders) > 0 {
		r = o.ds.Orders[0]
	}
	order := r.Order()
	order.OrderedAt = r.Date
	return map[string]orders.Order{"pedido": order}, nil
}

func (o *Offline) chatList(gateway.Request, []string) (any, error) {
	return chat.ListResponse{Success: true, Data: o.ds.Conversations()}, nil
}

func (o *Offline) createChat(req gateway.Request, _ []string) (any, error) {
	body := struct {
		Recipient int64 `json:"id_usuario_destinatario"`
	}{Recipient: 2}
	decodeBody(req, &body)
	return chat.CreateResponse{
		Success: true,
		Message: "Chat creado exitosamente",
		Data: chat.Chat{
			ID:        o.stamp.ID(3, 1000),
			User1ID:   1,
			User2ID:   body.Recipient,
			Type:      "privado",
			CreatedAt: o.stamp.now(),
			Active:    true,
			User1:     o.summary(1),
			User2:     o.summary(body.Recipient),
		},
	}, nil
}

func (o *Offline) sendMessage(req gateway.Request, params []string) (any, error) {
	body := struct {
		Content string `json:"contenido"`
		Kind    string `json:"tipo_mensaje"`
	}{}
	decodeBody(req, &body)
	if strings.TrimSpace(body.Content) == "" {
		body.Content = "Mensaje de prueba enviado desde la aplicación"
	}
	if body.Kind == "" {
		body.Kind = chat.KindText
	}
	return chat.SendResponse{
		Success: true,
		Message: "Mensaje enviado exitosamente",
		Data: chat.Message{
			ID:       o.stamp.ID(10, 1000),
			ChatID:   param(params, 0),
			SenderID: 1,
			Content:  body.Content,
			Kind:     body.Kind,
			SentAt:   o.stamp.now(),
			Sender:   o.summary(1),
		},
	}, nil
}

// chatMessages answers an empty page for chats the demo does not know.
func (o *Offline) chatMessages(_ gateway.Request, params []string) (any, error) {
	msgs := o.ds.ChatMessages(param(params, 0))
	total := len(msgs)
	return chat.MessagesResponse{
		Success: true,
		Data: chat.MessagesPage{
			Messages:   msgs,
			Pagination: chat.Pagination{Total: total, Page: 1, Pages: 1},
		},
	}, nil
}

func (o *Offline) markRead(gateway.Request, []string) (any, error) {
	return map[string]any{"success": true, "message": "Mensajes marcados como leídos"}, nil
}

func (o *Offline) rate(req gateway.Request, _ []string) (any, error) {
	in := reputation.RateInput{
		RatedID: 2,
		Score:   5,
		Comment: "Excelente vendedora, producto de muy buena calidad y entrega puntual. Muy recomendada!",
		OrderID: 1,
	}
	decodeBody(req, &in)
	rater := o.summary(1)
	return reputation.RateResponse{
		Message: "Calificación registrada exitosamente",
		Rating: reputation.Rating{
			ID:      o.stamp.ID(1, 1000),
			RaterID: 1,
			RatedID: in.RatedID,
			Score:   in.Score,
			Comment: in.Comment,
			RatedAt: o.stamp.now(),
			OrderID: in.OrderID,
			Rater:   &rater,
		},
	}, nil
}

// userReputation shows the showcase figures under the requested user. Ids
// without a demo account borrow the second account's name.
func (o *Offline) userReputation(_ gateway.Request, params []string) (any, error) {
	id := param(params, 0)
	who := o.summary(id)
	if _, ok := o.ds.Account(id); !ok {
		who = o.summary(2)
		who.ID = id
	}
	recent := make([]reputation.Rating, len(o.ds.Reputation.Recent))
	for i, r := range o.ds.Reputation.Recent {
		r.RatedID = id
		recent[i] = r
	}
	return reputation.UserReputation{User: who, Stats: o.ds.Reputation.Stats, Recent: recent}, nil
}

func (o *Offline) myRatings(gateway.Request, []string) (any, error) {
	return map[string][]reputation.Rating{"calificaciones": o.ds.RatingsFor(o.ds.Login.User.ID)}, nil
}

func (o *Offline) canRate(gateway.Request, []string) (any, error) {
	return reputation.Eligibility{CanRate: true}, nil
}

func (o *Offline) pending(gateway.Request, []string) (any, error) {
	return map[string][]reputation.PendingRating{"pedidos_pendientes": o.ds.Pending}, nil
}

func (o *Offline) login(gateway.Request, []string) (any, error) {
	return o.ds.Login, nil
}

func (o *Offline) summary(id int64) user.Summary {
	a, ok := o.ds.Account(id)
	if !ok {
		return user.Summary{ID: id}
	}
	s := a.Summary()
	s.Name = a.FullName()
	s.LastName = ""
	return s
}

func param(params []string, i int) int64 {
	if i >= len(params) {
		return 0
	}
	n, _ := strconv.ParseInt(params[i], 10, 64)
	return n
}

// decodeBody copies the fields of the outgoing body into v. Fields the body
// lacks keep their defaults.
func decodeBody(req gateway.Request, v any) {
	if req.Body == nil {
		return
	}
	raw, err := json.Marshal(req.Body)
	if err != nil {
		return
	}
	_ = json.Unmarshal(raw, v)
}
