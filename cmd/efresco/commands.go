package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sudo-init-do/efresco/internal/ads"
	"github.com/sudo-init-do/efresco/internal/auth"
	"github.com/sudo-init-do/efresco/internal/chat"
	"github.com/sudo-init-do/efresco/internal/favorites"
	"github.com/sudo-init-do/efresco/internal/orders"
	"github.com/sudo-init-do/efresco/internal/reputation"
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"login", "sign in and keep the session", cmdLogin},
		{"logout", "forget the stored session", cmdLogout},
		{"whoami", "show the signed-in account", cmdWhoami},
		{"products", "browse the product catalog", cmdProducts},
		{"product", "show one product", cmdProduct},
		{"ads", "browse sale or purchase listings", cmdAds},
		{"ad-create", "publish a sale listing", cmdAdCreate},
		{"orders", "list your orders", cmdOrders},
		{"order-create", "order from a listing", cmdOrderCreate},
		{"order-cancel", "cancel an order", cmdOrderCancel},
		{"chats", "list your conversations", cmdChats},
		{"chat", "follow a conversation until interrupted", cmdChat},
		{"send", "send a chat message", cmdSend},
		{"reputation", "show a user's ratings", cmdReputation},
		{"rate", "rate the other party of an order", cmdRate},
		{"favorites", "list your favorites", cmdFavorites},
		{"fav-toggle", "add or remove a favorite", cmdFavToggle},
		{"admin-dashboard", "marketplace figures for administrators", cmdAdminDashboard},
	}
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
}

func (a *app) offlineNote(offline bool) {
	if offline {
		fmt.Fprintln(a.out, "(demo data: the backend could not be reached)")
	}
}

func parseDecimal(name, v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("-%s: %w", name, err)
	}
	return d, nil
}

func cmdLogin(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	_ = fs.Parse(args)

	res, err := a.auth.Login(ctx, auth.Credentials{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	a.toasts.Success("Bienvenido", res.Message)
	fmt.Fprintf(a.out, "%s (%s)\n", res.User.FullName(), strings.Join(res.User.Roles, ", "))
	fmt.Fprintf(a.out, "next: %s\n", res.Destination)
	a.offlineNote(res.Offline)
	return nil
}

func cmdLogout(_ context.Context, a *app, fs *flag.FlagSet, args []string) error {
	_ = fs.Parse(args)
	if err := a.auth.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "signed out")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	refresh := fs.Bool("refresh", false, "fetch the profile from the backend")
	_ = fs.Parse(args)

	u := a.auth.CurrentUser()
	if *refresh {
		fresh, err := a.auth.Profile(ctx)
		if err != nil {
			return err
		}
		u = fresh
	}
	if u == nil {
		return errors.New("not logged in")
	}
	fmt.Fprintf(a.out, "#%d %s <%s>\nroles: %s\nverified: %t\nphoto: %s\n",
		u.ID, u.FullName(), u.Email, strings.Join(u.Roles, ", "), u.Verified, u.Photo(a.api.Origin()))
	return nil
}

func cmdProducts(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	search := fs.String("search", "", "search term")
	page := fs.Int("page", 1, "page number")
	_ = fs.Parse(args)

	list, err := a.products.Search(ctx, *search, *page)
	if err != nil {
		return err
	}
	w := a.table()
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tUNIT")
	for _, p := range list.Products {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.Key(), p.Name, p.Price.StringFixed(2), p.Unit)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	pg := list.Pagination
	fmt.Fprintf(a.out, "page %d of %d, %d products\n", pg.Page, pg.Pages, pg.Total)
	return nil
}

func cmdProduct(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	id := fs.Int64("id", 0, "product id")
	_ = fs.Parse(args)

	p, err := a.products.Get(ctx, *id)
	if err != nil {
		return err
	}
	cats := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		cats = append(cats, c.Name)
	}
	fmt.Fprintf(a.out, "%s\n%s\nBs. %s / %s\ncategories: %s\nimage: %s\n",
		p.Name, p.Description, p.Price.StringFixed(2), p.Unit, strings.Join(cats, ", "), p.Image(a.api.Origin()))
	return nil
}

func cmdAds(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	kind := fs.String("kind", ads.KindSale, "venta or compra")
	search := fs.String("search", "", "search term")
	location := fs.String("location", "", "location filter")
	product := fs.Int64("product", 0, "product id filter")
	page := fs.Int("page", 1, "page number")
	_ = fs.Parse(args)

	q := ads.Query{Search: *search, Location: *location, ProductID: *product, Page: *page}
	w := a.table()
	switch *kind {
	case ads.KindSale:
		list, err := a.ads.ListSale(ctx, q)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "ID\tPRODUCT\tQTY\tPRICE\tLOCATION\tSELLER")
		for _, ad := range list.Ads {
			fmt.Fprintf(w, "%d\t%s\t%s %s\t%s\t%s\t%s\n", ad.ID, ad.Product.Name, ad.Quantity, ad.Unit, ad.Price.StringFixed(2), ad.Location, ad.Seller.Name)
		}
	case ads.KindPurchase:
		list, err := a.ads.ListPurchase(ctx, q)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "ID\tPRODUCT\tQTY\tOFFER\tBUYER\tCONTACT")
		for _, ad := range list.Ads {
			name := ""
			if ad.Product != nil {
				name = ad.Product.Name
			}
			fmt.Fprintf(w, "%d\t%s\t%s %s\t%s\t%s\t%s\n", ad.ID, name, ad.Quantity, ad.Unit, ad.OfferPrice.StringFixed(2), ad.Buyer.Name, ads.WhatsAppLink(ad))
		}
	default:
		return fmt.Errorf("unknown listing kind %q", *kind)
	}
	return w.Flush()
}

func cmdAdCreate(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	product := fs.Int64("product", 0, "product id")
	qty := fs.String("qty", "", "quantity")
	unit := fs.String("unit", "kg", "unit")
	price := fs.String("price", "", "price per unit")
	desc := fs.String("desc", "", "description")
	location := fs.String("location", "", "where the produce is")
	_ = fs.Parse(args)

	q, err := parseDecimal("qty", *qty)
	if err != nil {
		return err
	}
	p, err := parseDecimal("price", *price)
	if err != nil {
		return err
	}
	res, err := a.ads.CreateSale(ctx, ads.SaleInput{
		ProductID: *product, Quantity: q, Unit: *unit, Price: p, Description: *desc, Location: *location,
	})
	if err != nil {
		return err
	}
	a.toasts.Success("Anuncio publicado", res.Message)
	fmt.Fprintf(a.out, "listing #%d\n", res.Ad.ID)
	return nil
}

func cmdOrders(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	as := fs.String("as", orders.AsAny, "todos, comprador or vendedor")
	page := fs.Int("page", 1, "page number")
	_ = fs.Parse(args)

	res, err := a.orders.Mine(ctx, *as, *page, 0)
	if err != nil {
		return err
	}
	w := a.table()
	fmt.Fprintln(w, "ID\tPRODUCT\tTOTAL\tSTATUS\tBUYER\tSELLER")
	for _, o := range res.Orders {
		product := ""
		if o.Ad != nil {
			product = o.Ad.Product.Name
		}
		buyer, seller := "", ""
		if o.Buyer != nil {
			buyer = o.Buyer.Name
		}
		if o.Seller != nil {
			seller = o.Seller.Name
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", o.ID, product, o.Total.StringFixed(2), orders.StatusDescription(o.Status), buyer, seller)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	pg := res.Pagination
	fmt.Fprintf(a.out, "page %d of %d, %d orders\n", pg.CurrentPage, pg.TotalPages, pg.TotalItems)
	return nil
}

func cmdOrderCreate(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	ad := fs.Int64("ad", 0, "listing id")
	kind := fs.String("kind", ads.KindSale, "venta or compra")
	seller := fs.Int64("seller", 0, "seller user id")
	total := fs.String("total", "", "order total")
	_ = fs.Parse(args)

	me, err := a.session.UserID()
	if err != nil {
		return err
	}
	t, err := parseDecimal("total", *total)
	if err != nil {
		return err
	}
	res, err := a.orders.Create(ctx, orders.CreateInput{BuyerID: me, SellerID: *seller, Total: t, AdKind: *kind, AdID: *ad})
	if err != nil {
		return err
	}
	a.toasts.Success("Pedido creado", res.Message)
	fmt.Fprintf(a.out, "order #%d, %s\n", res.Order.ID, orders.StatusDescription(res.Order.Status))
	return nil
}

func cmdOrderCancel(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	id := fs.Int64("id", 0, "order id")
	_ = fs.Parse(args)

	if _, err := a.orders.Cancel(ctx, *id); err != nil {
		return err
	}
	a.toasts.Success("Pedido cancelado", fmt.Sprintf("El pedido #%d fue cancelado", *id))
	fmt.Fprintf(a.out, "order %d cancelled\n", *id)
	return nil
}

func cmdChats(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	_ = fs.Parse(args)
	me, err := a.session.UserID()
	if err != nil {
		return err
	}
	list, err := a.chat.List(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	w := a.table()
	fmt.Fprintln(w, "ID\tWITH\tLAST MESSAGE\tWHEN")
	for _, c := range list {
		last, when := "", ""
		if c.LastMessage != nil {
			last, when = c.LastMessage.Content, chat.RelativeTime(c.LastMessage.SentAt, now)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, chat.OtherParticipant(c, me).Name, last, when)
	}
	return w.Flush()
}

func (a *app) printMessage(m chat.Message, me int64) {
	who := m.Sender.Name
	if chat.IsOwn(m, me) {
		who = "you"
	}
	fmt.Fprintf(a.out, "[%s] %s: %s\n", chat.RelativeTime(m.SentAt, time.Now()), who, m.Content)
}

func cmdChat(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	id := fs.Int64("id", 0, "chat id")
	_ = fs.Parse(args)

	me, err := a.session.UserID()
	if err != nil {
		return err
	}
	list, err := a.chat.List(ctx)
	if err != nil {
		return err
	}
	var open *chat.Chat
	for i := range list {
		if list[i].ID == *id {
			open = &list[i]
		}
	}
	if open == nil {
		return fmt.Errorf("chat %d not found", *id)
	}

	page, err := a.chat.Messages(ctx, open.ID, 1)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "chat with %s (ctrl-c to leave)\n", chat.OtherParticipant(*open, me).Name)
	var last int64
	for _, m := range page.Messages {
		a.printMessage(m, me)
		last = max(last, m.ID)
	}
	if err := a.chat.MarkRead(ctx, open.ID); err != nil {
		a.log.Warn("mark chat read failed", zap.Int64("chat", open.ID), zap.Error(err))
	}

	poller := chat.NewPoller(a.chat, a.cfg.Chat.PollInterval, a.log)
	poller.Open(ctx, *open)
	defer poller.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-poller.Updates():
			for _, m := range snap.Messages {
				if m.ID > last {
					a.printMessage(m, me)
					last = m.ID
				}
			}
		}
	}
}

func cmdSend(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	id := fs.Int64("chat", 0, "chat id")
	text := fs.String("text", "", "message")
	_ = fs.Parse(args)

	m, err := a.chat.Send(ctx, *id, *text, chat.KindText)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "sent #%d\n", m.ID)
	return nil
}

func cmdReputation(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	id := fs.Int64("user", 0, "user id, defaults to you")
	_ = fs.Parse(args)

	if *id == 0 {
		me, err := a.session.UserID()
		if err != nil {
			return err
		}
		*id = me
	}
	rep, err := a.reputation.User(ctx, *id)
	if err != nil {
		return err
	}
	st := rep.Stats
	fmt.Fprintf(a.out, "%s: %.1f (%s), %d ratings\n", rep.User.Name, st.Average, reputation.Label(st.Average), st.Total)
	for _, b := range reputation.Breakdown(st) {
		fmt.Fprintf(a.out, "  %d★ %3d%% (%d)\n", b.Stars, b.Percent, b.Count)
	}
	now := time.Now()
	for _, r := range rep.Recent {
		who := ""
		if r.Rater != nil {
			who = r.Rater.Name
		}
		fmt.Fprintf(a.out, "%s %s, %s: %s\n", reputation.Stars(r.Score), who, reputation.Age(r.RatedAt, now), r.Comment)
	}
	return nil
}

func cmdRate(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	order := fs.Int64("order", 0, "order id")
	user := fs.Int64("user", 0, "user being rated")
	score := fs.Int("score", 0, "1 to 5")
	comment := fs.String("comment", "", "at least 10 characters")
	pending := fs.Bool("pending", false, "list orders still waiting for your rating")
	_ = fs.Parse(args)

	if *pending {
		list, err := a.reputation.Pending(ctx)
		if err != nil {
			return err
		}
		w := a.table()
		fmt.Fprintln(w, "ORDER\tUSER\tPRODUCT")
		for _, p := range list {
			fmt.Fprintf(w, "%d\t%s (#%d)\t%s\n", p.OrderID, p.User.Name, p.User.ID, p.Product)
		}
		return w.Flush()
	}

	el, err := a.reputation.CanRate(ctx, *order, *user)
	if err != nil {
		return err
	}
	if !el.CanRate {
		return fmt.Errorf("cannot rate: %s", el.Reason)
	}
	res, err := a.reputation.Rate(ctx, reputation.RateInput{RatedID: *user, Score: *score, Comment: *comment, OrderID: *order})
	if err != nil {
		return err
	}
	a.toasts.Success("Calificación enviada", res.Message)
	return nil
}

func cmdFavorites(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	_ = fs.Parse(args)
	list, err := a.favorites.List(ctx)
	if err != nil {
		return err
	}
	w := a.table()
	fmt.Fprintln(w, "ID\tKIND\tITEM")
	for _, f := range list.Favorites {
		item := ""
		switch {
		case f.Product != nil:
			item = fmt.Sprintf("%s (product #%d)", f.Product.Name, f.Product.Key())
		case f.SaleAd != nil:
			item = fmt.Sprintf("%s (listing #%d)", f.SaleAd.Product.Name, f.SaleAd.ID)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", f.ID, f.Kind, item)
	}
	return w.Flush()
}

func cmdFavToggle(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	product := fs.Int64("product", 0, "product id")
	ad := fs.Int64("ad", 0, "sale listing id")
	_ = fs.Parse(args)

	var (
		res *favorites.Toggled
		err error
	)
	switch {
	case *product > 0 && *ad == 0:
		res, err = a.favorites.ToggleProduct(ctx, *product)
	case *ad > 0 && *product == 0:
		res, err = a.favorites.ToggleSaleAd(ctx, *ad)
	default:
		return errors.New("give exactly one of -product or -ad")
	}
	if err != nil {
		return err
	}
	a.toasts.Success("Favoritos", res.Message)
	return nil
}

func cmdAdminDashboard(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	_ = fs.Parse(args)
	if !a.session.IsAdmin() {
		return errors.New("administrators only")
	}
	d := a.admin.Dashboard(ctx)
	us := a.admin.UserStats(ctx)
	ps := a.admin.ProductStats(ctx)
	ss := a.admin.SalesStats(ctx)
	ords := a.admin.OrderStats(ctx)

	w := a.table()
	fmt.Fprintf(w, "users\t%d\tproducers\t%d\tverified\t%d\tactive\t%d\n", d.Users, d.Producers, us.Verified, us.Active)
	fmt.Fprintf(w, "products\t%d\tavailable\t%d\tsold out\t%d\tpending\t%d\n", ps.Total, ps.Available, ps.SoldOut, ps.Pending)
	fmt.Fprintf(w, "sales today\t%d\tweek\t%d\tmonth\t%d\tavg\tBs. %d\n", ss.Today, ss.Week, ss.Month, ss.AverageSale)
	fmt.Fprintf(w, "orders\t%d\tpending\t%d\tin progress\t%d\tcompleted\t%d\n", ords.Total, ords.Pending, ords.InProgress, ords.Completed)
	if err := w.Flush(); err != nil {
		return err
	}
	a.offlineNote(d.Fallback || us.Fallback || ps.Fallback || ss.Fallback || ords.Fallback)
	return nil
}
