// Package fixtures holds the demo marketplace: the payloads the gateway
// serves when the backend cannot be reached, and the seed data of the
// stand-in backend.
package fixtures

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sudo-init-do/efresco/internal/ads"
	"github.com/sudo-init-do/efresco/internal/chat"
	"github.com/sudo-init-do/efresco/internal/orders"
	"github.com/sudo-init-do/efresco/internal/products"
	"github.com/sudo-init-do/efresco/internal/reputation"
	"github.com/sudo-init-do/efresco/internal/user"
)

//go:embed demo.json
var demoJSON []byte

// DemoPassword is the password of every seeded account.
const DemoPassword = "efresco123"

// Account is a seeded user with its plain-text password.
type Account struct {
	user.User
	Password string `json:"password"`
}

// Showcase is the canned reputation shown for any user offline.
type Showcase struct {
	Stats  reputation.Stats    `json:"estadisticas"`
	Recent []reputation.Rating `json:"calificaciones_recientes"`
}

// Login is the offline sign-in answer.
type Login struct {
	Message string    `json:"mensaje"`
	Token   string    `json:"token"`
	User    user.User `json:"usuario"`
}

// Dataset is the whole demo marketplace.
type Dataset struct {
	Users              []Account                  `json:"usuarios"`
	Products           []products.Product         `json:"productos"`
	ProductsPagination products.Pagination        `json:"paginacion_productos"`
	SaleAds            []ads.Sale                 `json:"anuncios_venta"`
	PurchaseAds        []ads.Purchase             `json:"anuncios_compra"`
	Orders             []orders.Record            `json:"pedidos"`
	Chats              []chat.Chat                `json:"chats"`
	Messages           []chat.Message             `json:"mensajes"`
	Ratings            []reputation.Rating        `json:"calificaciones"`
	Reputation         Showcase                   `json:"reputacion_demo"`
	Pending            []reputation.PendingRating `json:"pendientes"`
	Login              Login                      `json:"login_demo"`
}

// Load decodes a fresh copy of the dataset; callers may mutate it.
func Load() (*Dataset, error) {
	var ds Dataset
	if err := json.Unmarshal(demoJSON, &ds); err != nil {
		return nil, fmt.Errorf("decode demo dataset: %w", err)
	}
	return &ds, nil
}

// MustLoad is Load for package initialisation and tests.
func MustLoad() *Dataset {
	ds, err := Load()
	if err != nil {
		panic(err)
	}
	return ds
}

func (ds *Dataset) Product(id int64) (products.Product, bool) {
	for _, p := range ds.Products {
		if p.Key() == id {
			return p, true
		}
	}
	return products.Product{}, false
}

func (ds *Dataset) Account(id int64) (Account, bool) {
	for _, a := range ds.Users {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

func (ds *Dataset) Order(id int64) (orders.Record, bool) {
	for _, o := range ds.Orders {
		if o.ID == id {
			return o, true
		}
	}
	return orders.Record{}, false
}

// ChatMessages returns the messages of one conversation in sending order.
func (ds *Dataset) ChatMessages(chatID int64) []chat.Message {
	out := []chat.Message{}
	for _, m := range ds.Messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

// Chat returns the conversation with its last message attached.
func (ds *Dataset) Chat(id int64) (chat.Chat, bool) {
	for _, c := range ds.Chats {
		if c.ID != id {
			continue
		}
		if msgs := ds.ChatMessages(id); len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			c.LastMessage = &last
		}
		return c, true
	}
	return chat.Chat{}, false
}

// Conversations returns every chat with its last message attached.
func (ds *Dataset) Conversations() []chat.Chat {
	out := make([]chat.Chat, 0, len(ds.Chats))
	for _, c := range ds.Chats {
		full, _ := ds.Chat(c.ID)
		out = append(out, full)
	}
	return out
}

// RatingsFor returns the ratings a user received.
func (ds *Dataset) RatingsFor(userID int64) []reputation.Rating {
	out := []reputation.Rating{}
	for _, r := range ds.Ratings {
		if r.RatedID == userID {
			out = append(out, r)
		}
	}
	return out
}

// Stamp is the source of generated ids and timestamps.
type Stamp struct {
	Now func() time.Time
	// ID returns a number in [lo, lo+n).
	ID func(lo, n int64) int64
}

// DefaultStamp uses the wall clock and a random id.
func DefaultStamp() Stamp {
	return Stamp{
		Now: time.Now,
		ID:  func(lo, n int64) int64 { return lo + rand.Int64N(n) },
	}
}

func (s Stamp) now() string { return s.Now().UTC().Format(time.RFC3339) }
