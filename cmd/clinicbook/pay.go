package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/muhammadahmed9211/clinic-saas/internal/handlers"
	"github.com/muhammadahmed9211/clinic-saas/internal/payment"
	"github.com/muhammadahmed9211/clinic-saas/internal/server"
)

// cmdPay starts a gateway session and, unless -wait=false, listens on the callback
// address until the gateway redirects back to the success or cancel route.
func cmdPay(ctx context.Context, rt *runtime, args []string) error {
	var (
		gateway string
		wait    = true
	)
	appt, err := appointmentFlag(ctx, rt, "pay", args, func(fs *flag.FlagSet) {
		fs.StringVar(&gateway, "gateway", "", "easypaisa, jazzcash or card")
		fs.BoolVar(&wait, "wait", true, "wait for the gateway to redirect back")
	})
	if err != nil {
		return err
	}

	var (
		landings = handlers.NewLandings()
		srv      *server.CallbackServer
	)
	if wait {
		srv = server.NewCallbackServer(rt.cfg, rt.log, handlers.NewHandlerSet(rt.log, rt.cfg, rt.store, rt.metrics, landings))
		ln, err := srv.Listen()
		if err != nil {
			return fmt.Errorf("start callback listener: %w", err)
		}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				rt.log.Error().Err(err).Msg("callback listener failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				rt.log.Error().Err(err).Msg("callback listener shutdown failed")
			}
		}()
	}

	res, ok := rt.app.Payments.Pay(ctx, appt, gateway)
	if !ok {
		return errReported
	}
	fmt.Fprintf(rt.out, "order:       %s\namount:      %s\ntransaction: %s\n\nopen to pay: %s\n",
		payment.OrderID(appt.ID), payment.FormatAmount(appt.Fee), res.TransactionID, res.RedirectURL)

	if !wait {
		return nil
	}

	fmt.Fprintln(rt.out, "\nwaiting for the gateway to return (Ctrl-C to stop)...")
	landing, err := landings.Wait(ctx)
	if err != nil {
		return err
	}
	if landing.Result == handlers.ResultCancel {
		fmt.Fprintln(rt.out, "payment cancelled; no charge was made")
		return nil
	}

	txn := landing.TransactionID
	if txn == "" {
		txn = res.TransactionID
	}
	status := rt.app.Payments.Status(ctx, txn)
	if !status.Success {
		return errReported
	}
	fmt.Fprintf(rt.out, "payment %s: %s\n", txn, status.Status)
	return nil
}
