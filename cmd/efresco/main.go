// Command efresco is a terminal client for the eFresco produce marketplace.
//
//	efresco login -email juan@efresco.bo -password efresco123
//	efresco products -search papa
//	efresco chat -id 1
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sudo-init-do/efresco/internal/admin"
	"github.com/sudo-init-do/efresco/internal/ads"
	"github.com/sudo-init-do/efresco/internal/auth"
	"github.com/sudo-init-do/efresco/internal/chat"
	"github.com/sudo-init-do/efresco/internal/config"
	"github.com/sudo-init-do/efresco/internal/favorites"
	"github.com/sudo-init-do/efresco/internal/fixtures"
	"github.com/sudo-init-do/efresco/internal/gateway"
	"github.com/sudo-init-do/efresco/internal/logger"
	"github.com/sudo-init-do/efresco/internal/notify"
	"github.com/sudo-init-do/efresco/internal/orders"
	"github.com/sudo-init-do/efresco/internal/products"
	"github.com/sudo-init-do/efresco/internal/reputation"
	"github.com/sudo-init-do/efresco/internal/session"
	"github.com/sudo-init-do/efresco/internal/validation"
)

// app is everything a subcommand needs.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	out     io.Writer
	session *session.Store
	toasts  *notify.Center
	api     *gateway.Client

	auth       *auth.Service
	products   *products.Service
	ads        *ads.Service
	orders     *orders.Service
	chat       *chat.Service
	reputation *reputation.Service
	favorites  *favorites.Service
	admin      *admin.Service
}

func newApp(cfg *config.Config, log *zap.Logger, reg prometheus.Registerer, out io.Writer) (*app, error) {
	store, err := session.Open(cfg.Session.Path)
	if err != nil {
		return nil, err
	}
	if store.Token() != "" && store.Expired(time.Now()) {
		log.Info("stored session expired, signing out")
		if err := store.Clear(); err != nil {
			return nil, err
		}
	}

	toasts := notify.NewCenter(log.Named("toast"))
	api := gateway.New(cfg.API,
		gateway.WithTokenSource(store),
		gateway.WithFallbacks(fixtures.Fallbacks()),
		gateway.WithMetrics(gateway.NewMetrics(reg)),
		gateway.WithNotifier(toasts),
		gateway.WithLogger(log.Named("gateway")),
	)

	return &app{
		cfg:        cfg,
		log:        log,
		out:        out,
		session:    store,
		toasts:     toasts,
		api:        api,
		auth:       auth.NewService(api, store, log),
		products:   products.NewService(api, log),
		ads:        ads.NewService(api, log),
		orders:     orders.NewService(api, store, log),
		chat:       chat.NewService(api, log),
		reputation: reputation.NewService(api, log),
		favorites:  favorites.NewService(api, log),
		admin:      admin.NewService(api, log),
	}, nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: efresco <command> [flags]")
	fmt.Fprintln(os.Stderr)
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-16s %s\n", c.name, c.summary)
	}
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, ok := lookup(os.Args[1])
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	gateway.UseNumericMoney()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Must(cfg.Log)
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, reg, log)
	}

	a, err := newApp(cfg, log, reg, os.Stdout)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.execute(ctx, cmd, os.Args[2:]); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		if !a.report(cmd.name, err) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", cmd.name, err)
		}
		os.Exit(1)
	}
}

func (a *app) execute(ctx context.Context, cmd command, args []string) error {
	fs := flag.NewFlagSet(cmd.name, flag.ExitOnError)
	return cmd.run(ctx, a, fs, args)
}

// report raises an error toast for failures the backend answered or that
// request validation rejected. It returns false for anything else, such as
// a backend that stayed unreachable with no demo data.
func (a *app) report(title string, err error) bool {
	var (
		apiErr  *gateway.APIError
		invalid *validation.Error
	)
	switch {
	case errors.As(err, &apiErr) && !gateway.Asleep(err):
		msg := apiErr.Message()
		if msg == "" {
			msg = http.StatusText(apiErr.Status)
		}
		a.toasts.Error(title, msg)
	case errors.As(err, &invalid):
		a.toasts.Error(title, invalid.Error())
	default:
		return false
	}
	return true
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Warn("metrics listener stopped", zap.Error(err))
	}
}
