package devserver

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/efresco/internal/ads"
	"github.com/sudo-init-do/efresco/internal/chat"
	"github.com/sudo-init-do/efresco/internal/fixtures"
	"github.com/sudo-init-do/efresco/internal/orders"
	"github.com/sudo-init-do/efresco/internal/products"
	"github.com/sudo-init-do/efresco/internal/reputation"
	"github.com/sudo-init-do/efresco/internal/user"
)

type account struct {
	user.User
	hash []byte
}

func (a *account) active() bool { return a.Active == nil || *a.Active }

type favorite struct {
	ID        int64
	UserID    int64
	Kind      string
	ProductID int64
	AdID      int64
	AddedAt   string
}

// store is the whole marketplace in memory. Handlers hold mu while they
// read or change it.
type store struct {
	mu sync.RWMutex

	users     map[int64]*account
	products  []products.Product
	sales     []ads.Sale
	purchases []ads.Purchase
	orders    []orders.Record
	chats     []chat.Chat
	messages  []chat.Message
	ratings   []reputation.Rating
	favorites []favorite

	ids  map[string]int64
	now  func() time.Time
	cost int
}

func newStore(ds *fixtures.Dataset, cost int, now func() time.Time) (*store, error) {
	st := &store{
		users: map[int64]*account{},
		ids:   map[string]int64{},
		now:   now,
		cost:  cost,
	}
	for _, a := range ds.Users {
		hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), cost)
		if err != nil {
			return nil, fmt.Errorf("hash password of %s: %w", a.Email, err)
		}
		acc := &account{User: a.User, hash: hash}
		st.users[a.ID] = acc
		st.seen("user", a.ID)
	}
	for _, p := range ds.Products {
		p.ID, p.LegacyID = p.Key(), p.Key()
		st.products = append(st.products, p)
		st.seen("product", p.ID)
	}
	for _, s := range ds.SaleAds {
		if p, ok := st.product(s.Product.Key()); ok {
			s.Product = *p
		}
		st.sales = append(st.sales, s)
		st.seen("sale", s.ID)
	}
	for _, pa := range ds.PurchaseAds {
		if pa.Product != nil {
			if p, ok := st.product(pa.Product.Key()); ok {
				cp := *p
				pa.Product = &cp
			}
		}
		st.purchases = append(st.purchases, pa)
		st.seen("purchase", pa.ID)
	}
	for _, o := range ds.Orders {
		st.orders = append(st.orders, o)
		st.seen("order", o.ID)
	}
	for _, c := range ds.Chats {
		st.chats = append(st.chats, c)
		st.seen("chat", c.ID)
	}
	for _, m := range ds.Messages {
		st.messages = append(st.messages, m)
		st.seen("message", m.ID)
	}
	for _, r := range ds.Ratings {
		st.ratings = append(st.ratings, r)
		st.seen("rating", r.ID)
	}
	return st, nil
}

func (st *store) seen(kind string, id int64) {
	if id > st.ids[kind] {
		st.ids[kind] = id
	}
}

func (st *store) nextID(kind string) int64 {
	st.ids[kind]++
	return st.ids[kind]
}

func (st *store) timestamp() string { return st.now().UTC().Format(time.RFC3339) }

func (st *store) userByEmail(email string) (*account, bool) {
	for _, a := range st.users {
		if strings.EqualFold(a.Email, email) {
			return a, true
		}
	}
	return nil, false
}

func (st *store) summary(id int64) user.Summary {
	a, ok := st.users[id]
	if !ok {
		return user.Summary{ID: id}
	}
	s := a.Summary()
	s.Name = a.FullName()
	s.LastName = ""
	return s
}

func (st *store) contact(id int64) ads.Contact {
	a, ok := st.users[id]
	if !ok {
		return ads.Contact{ID: id}
	}
	return ads.Contact{ID: id, Name: a.FullName(), Phone: a.Phone}
}

func (st *store) party(id int64) orders.Party {
	a, ok := st.users[id]
	if !ok {
		return orders.Party{ID: id}
	}
	return orders.Party{ID: id, Name: a.FullName(), Phone: a.Phone}
}

func (st *store) product(id int64) (*products.Product, bool) {
	for i := range st.products {
		if st.products[i].Key() == id {
			return &st.products[i], true
		}
	}
	return nil, false
}

func (st *store) sale(id int64) (*ads.Sale, bool) {
	for i := range st.sales {
		if st.sales[i].ID == id {
			return &st.sales[i], true
		}
	}
	return nil, false
}

func (st *store) purchase(id int64) (*ads.Purchase, bool) {
	for i := range st.purchases {
		if st.purchases[i].ID == id {
			return &st.purchases[i], true
		}
	}
	return nil, false
}

func (st *store) order(id int64) (*orders.Record, bool) {
	for i := range st.orders {
		if st.orders[i].ID == id {
			return &st.orders[i], true
		}
	}
	return nil, false
}

func (st *store) chat(id int64) (*chat.Chat, bool) {
	for i := range st.chats {
		if st.chats[i].ID == id {
			return &st.chats[i], true
		}
	}
	return nil, false
}

// withLastMessage copies c and attaches its newest message.
func (st *store) withLastMessage(c chat.Chat) chat.Chat {
	for i := len(st.messages) - 1; i >= 0; i-- {
		if st.messages[i].ChatID == c.ID {
			m := st.messages[i]
			c.LastMessage = &m
			break
		}
	}
	return c
}

func remove[T any](items []T, match func(T) bool) ([]T, bool) {
	for i, it := range items {
		if match(it) {
			return append(items[:i], items[i+1:]...), true
		}
	}
	return items, false
}
