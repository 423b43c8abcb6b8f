package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/example/caprieux-storefront/internal/auth"
	"github.com/example/caprieux-storefront/internal/client"
	"github.com/example/caprieux-storefront/internal/command"
	"github.com/example/caprieux-storefront/internal/config"
	"github.com/example/caprieux-storefront/internal/domain/cart"
	"github.com/example/caprieux-storefront/internal/domain/checkout"
	"github.com/example/caprieux-storefront/internal/domain/session"
	"github.com/example/caprieux-storefront/internal/logging"
	"github.com/example/caprieux-storefront/internal/query"
	"github.com/example/caprieux-storefront/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app is the wired storefront: stores, backend client and use cases.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	registry  *prometheus.Registry
	metrics   *telemetry.BusinessMetrics
	cart      *cart.Store
	session   *session.Store
	backend   *client.Client
	commands  *command.Handler
	queries   *query.Handler
	navigator *browserNavigator

	in  io.Reader
	out io.Writer

	closers []io.Closer
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(out)
		return 0
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(errOut, "unknown command %q\n\n", args[0])
		usage(errOut)
		return 2
	}

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 1
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(errOut, "logger: %v\n", err)
		return 1
	}
	defer logger.Sync()
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	a, err := newApp(ctx, cfg, logger, in, out)
	if err != nil {
		logger.Error("failed to start", zap.Error(err))
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer a.close()

	if err := cmd.run(ctx, a, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		logger.Debug("command failed", zap.String("command", args[0]), zap.Error(err))
		fmt.Fprintln(errOut, cmd.message(err))
		return 1
	}
	return 0
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, in io.Reader, out io.Writer) (*app, error) {
	a := &app{cfg: cfg, logger: logger, in: in, out: out}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = telemetry.NewBusinessMetrics(a.registry, telemetry.DefaultNamespace)

	state, err := openStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, state.closer)

	journal, journalCloser, err := openJournal(ctx, cfg, state.db, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, journalCloser)

	a.cart, err = cart.Open(ctx, state.kv, cart.WithJournal(journal), cart.WithLogger(logger))
	if err != nil {
		a.close()
		return nil, err
	}
	a.session, err = session.Open(ctx, state.kv,
		session.WithDecoder(auth.NewDecoder(cfg.JWTSecret)),
		session.WithJournal(journal),
		session.WithLogger(logger),
	)
	if err != nil {
		a.close()
		return nil, err
	}
	a.metrics.SetCart(a.cart.Subtotal(), a.cart.ItemCount())

	a.backend, err = client.New(cfg.APIBaseURL,
		client.WithTimeout(cfg.HTTPTimeout),
		client.WithTokenSource(a.session),
		client.WithMetrics(a.metrics),
		client.WithLogger(logger),
	)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("API_BASE_URL: %w", err)
	}

	policy := checkout.Policy{
		FreeShippingThreshold: cfg.Shipping.FreeShippingThreshold,
		FlatShippingFee:       cfg.Shipping.FlatShippingFee,
	}
	a.navigator = &browserNavigator{out: out}
	initiator := checkout.NewInitiator(a.backend, a.navigator, a.cart,
		checkout.WithInitiatorJournal(journal),
		checkout.WithInitiatorLogger(logger),
	)
	reconciler := checkout.NewReconciler(a.backend, a.cart,
		checkout.WithReconcilerJournal(journal),
		checkout.WithReconcilerLogger(logger),
	)
	a.commands = command.NewHandler(a.backend, a.cart, a.session, initiator, reconciler,
		command.WithMetrics(a.metrics),
		command.WithLogger(logger),
	)
	a.queries = query.NewHandler(a.backend, a.backend, a.cart, a.session,
		query.WithPolicy(policy),
		query.WithLogger(logger),
	)
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
