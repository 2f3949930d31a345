package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/muhammadahmed9211/clinic-saas/internal/api"
	"github.com/muhammadahmed9211/clinic-saas/internal/app"
	"github.com/muhammadahmed9211/clinic-saas/internal/auth"
	"github.com/muhammadahmed9211/clinic-saas/internal/config"
	"github.com/muhammadahmed9211/clinic-saas/internal/identity"
	"github.com/muhammadahmed9211/clinic-saas/internal/log"
	"github.com/muhammadahmed9211/clinic-saas/internal/metrics"
	"github.com/muhammadahmed9211/clinic-saas/internal/models"
	"github.com/muhammadahmed9211/clinic-saas/internal/notify"
	"github.com/muhammadahmed9211/clinic-saas/internal/session"
	"github.com/muhammadahmed9211/clinic-saas/internal/storage"
)

type command struct {
	usage string
	run   func(ctx context.Context, rt *runtime, args []string) error
}

var commands = map[string]command{
	"login":           {"login -email E -password P", cmdLogin},
	"register":        {"register -name N -email E -phone P -password P -confirm P", cmdRegister},
	"logout":          {"logout", cmdLogout},
	"whoami":          {"whoami", cmdWhoami},
	"reset-password":  {"reset-password -email E", cmdResetPassword},
	"recover":         {"recover -link URL | -access-token T [-refresh-token R]", cmdRecover},
	"update-password": {"update-password -password P -confirm P", cmdUpdatePassword},
	"profile":         {"profile -name N -phone P", cmdProfile},
	"doctors":         {"doctors", cmdDoctors},
	"slots":           {"slots -doctor ID -date YYYY-MM-DD", cmdSlots},
	"book":            {"book -doctor ID -date YYYY-MM-DD -slot SLOT", cmdBook},
	"appointments":    {"appointments", cmdAppointments},
	"cancel":          {"cancel -id APPOINTMENT", cmdCancel},
	"reschedule":      {"reschedule -id APPOINTMENT -date YYYY-MM-DD -slot SLOT", cmdReschedule},
	"pay":             {"pay -id APPOINTMENT -gateway easypaisa|jazzcash|card [-wait=false]", cmdPay},
	"payments":        {"payments", cmdPayments},
	"payment-status":  {"payment-status -txn TRANSACTION", cmdPaymentStatus},
	"dashboard":       {"dashboard", cmdDashboard},
}

// runtime is the wired client for one command invocation.
type runtime struct {
	cfg       *config.AppConfig
	log       zerolog.Logger
	out       io.Writer
	store     storage.Store
	gateway   *auth.Gateway
	refresher *auth.Refresher
	metrics   *metrics.Metrics
	app       *app.App
	stopNotes func()
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}

	// A missing .env is normal; values may come from the environment or clinicbook.yaml.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	logger := log.New(cfg.Environment, cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := wire(ctx, cfg, logger, os.Stdout)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start client")
		os.Exit(1)
	}

	err = cmd.run(ctx, rt, os.Args[2:])
	rt.close()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: clinicbook <command> [flags]")
	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
}

func wire(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger, out io.Writer) (*runtime, error) {
	store, err := storage.Open(ctx, cfg.Storage, cfg.Redis)
	if err != nil {
		return nil, err
	}

	idp, err := identity.New(identity.Config{URL: cfg.Identity.URL, AnonKey: cfg.Identity.AnonKey})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	gateway := auth.NewGateway(idp, store, cfg.AppOrigin, logger)

	m := metrics.New()
	backend, err := api.New(api.Config{
		Endpoint:  cfg.Backend.Endpoint,
		RateLimit: cfg.Backend.RateLimit,
		Burst:     cfg.Backend.Burst,
	}, gateway, logger, m)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	sess := session.New(gateway, logger)
	sess.Initialize(ctx)

	notes := notify.NewCenter()
	rt := &runtime{
		cfg:     cfg,
		log:     logger,
		out:     out,
		store:   store,
		gateway: gateway,
		metrics: m,
		app: app.New(app.Deps{
			Session:    sess,
			Account:    gateway,
			Backend:    backend,
			Notes:      notes,
			SuccessURL: cfg.Payment.SuccessURL,
			CancelURL:  cfg.Payment.CancelURL,
			Log:        logger,
		}),
		stopNotes: printNotifications(notes, os.Stderr),
	}

	if cfg.Identity.AutoRefresh {
		rt.refresher = auth.NewRefresher(gateway, cfg.Identity.RefreshInterval, cfg.Identity.RefreshMargin, logger)
		if err := rt.refresher.Start(); err != nil {
			logger.Warn().Err(err).Msg("session refresher disabled")
			rt.refresher = nil
		}
	}
	return rt, nil
}

func (rt *runtime) close() {
	if rt.refresher != nil {
		rt.refresher.Stop()
	}
	rt.stopNotes()
	rt.app.Session.Close()
	if err := rt.store.Close(); err != nil {
		rt.log.Error().Err(err).Msg("storage close error")
	}
}

// printNotifications writes each notification once, when it first appears.
func printNotifications(notes *notify.Center, w io.Writer) func() {
	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	return notes.Subscribe(func(list []models.Notification) {
		mu.Lock()
		defer mu.Unlock()
		for _, n := range list {
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			fmt.Fprintf(w, "[%s] %s\n", n.Type, n.Message)
		}
	})
}
