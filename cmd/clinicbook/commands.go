package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"text/tabwriter"

	"github.com/muhammadahmed9211/clinic-saas/internal/app"
	"github.com/muhammadahmed9211/clinic-saas/internal/auth"
	"github.com/muhammadahmed9211/clinic-saas/internal/models"
	"github.com/muhammadahmed9211/clinic-saas/internal/payment"
	"github.com/muhammadahmed9211/clinic-saas/internal/validate"
)

// errReported means the failure already reached the user as a notification.
var errReported = errors.New("command failed")

func parse(name string, args []string, define func(fs *flag.FlagSet)) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	define(fs)
	return fs.Parse(args)
}

func reported(ok bool) error {
	if !ok {
		return errReported
	}
	return nil
}

func cmdLogin(ctx context.Context, rt *runtime, args []string) error {
	var form validate.LoginForm
	if err := parse("login", args, func(fs *flag.FlagSet) {
		fs.StringVar(&form.Email, "email", "", "account email")
		fs.StringVar(&form.Password, "password", "", "account password")
	}); err != nil {
		return err
	}
	if !rt.app.Auth.Login(ctx, form) {
		return errReported
	}
	fmt.Fprintf(rt.out, "signed in as %s\n", rt.app.Session.Get().User.Email)
	return nil
}

func cmdRegister(ctx context.Context, rt *runtime, args []string) error {
	var form validate.RegisterForm
	if err := parse("register", args, func(fs *flag.FlagSet) {
		fs.StringVar(&form.Name, "name", "", "full name")
		fs.StringVar(&form.Email, "email", "", "account email")
		fs.StringVar(&form.Phone, "phone", "", "phone number")
		fs.StringVar(&form.Password, "password", "", "password, at least 6 characters")
		fs.StringVar(&form.ConfirmPassword, "confirm", "", "repeat the password")
	}); err != nil {
		return err
	}
	return reported(rt.app.Auth.Register(ctx, form))
}

func cmdLogout(ctx context.Context, rt *runtime, _ []string) error {
	rt.app.Auth.Logout(ctx)
	return nil
}

func cmdWhoami(_ context.Context, rt *runtime, _ []string) error {
	user := rt.app.Session.Get().User
	if user == nil {
		fmt.Fprintln(rt.out, "not signed in")
		return nil
	}
	fmt.Fprintf(rt.out, "%s <%s>\nrole:  %s\nphone: %s\nid:    %s\n",
		user.UserMetadata.Name, user.Email, user.Role(), user.UserMetadata.Phone, user.ID)
	return nil
}

func cmdResetPassword(ctx context.Context, rt *runtime, args []string) error {
	var email string
	if err := parse("reset-password", args, func(fs *flag.FlagSet) {
		fs.StringVar(&email, "email", "", "account email")
	}); err != nil {
		return err
	}
	return reported(rt.app.Auth.ResetPassword(ctx, email))
}

// cmdRecover accepts either the link from the reset email or its tokens. The provider
// puts them in the fragment: #access_token=...&refresh_token=...&type=recovery.
func cmdRecover(ctx context.Context, rt *runtime, args []string) error {
	var link, accessToken, refreshToken string
	if err := parse("recover", args, func(fs *flag.FlagSet) {
		fs.StringVar(&link, "link", "", "recovery link from the reset email")
		fs.StringVar(&accessToken, "access-token", "", "access_token from the recovery link")
		fs.StringVar(&refreshToken, "refresh-token", "", "refresh_token from the recovery link")
	}); err != nil {
		return err
	}
	if link != "" {
		var err error
		if accessToken, refreshToken, err = recoveryTokens(link); err != nil {
			return err
		}
	}
	if !rt.app.Auth.Recover(ctx, accessToken, refreshToken) {
		return errReported
	}
	fmt.Fprintln(rt.out, "recovered; set a new password with update-password")
	return nil
}

func recoveryTokens(link string) (accessToken, refreshToken string, err error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", "", fmt.Errorf("parse recovery link: %w", err)
	}
	params, err := url.ParseQuery(u.Fragment)
	if err != nil || params.Get("access_token") == "" {
		// some providers send the tokens as query parameters instead
		params = u.Query()
	}
	if params.Get("access_token") == "" {
		return "", "", errors.New("recovery link carries no access_token")
	}
	return params.Get("access_token"), params.Get("refresh_token"), nil
}

func cmdUpdatePassword(ctx context.Context, rt *runtime, args []string) error {
	var form validate.PasswordForm
	if err := parse("update-password", args, func(fs *flag.FlagSet) {
		fs.StringVar(&form.Password, "password", "", "new password")
		fs.StringVar(&form.ConfirmPassword, "confirm", "", "repeat the new password")
	}); err != nil {
		return err
	}
	return reported(rt.app.Auth.UpdatePassword(ctx, form))
}

func cmdProfile(ctx context.Context, rt *runtime, args []string) error {
	var name, phone string
	if err := parse("profile", args, func(fs *flag.FlagSet) {
		fs.StringVar(&name, "name", "", "full name")
		fs.StringVar(&phone, "phone", "", "phone number")
	}); err != nil {
		return err
	}
	return reported(rt.app.Profile.Update(ctx, name, phone))
}

func cmdDoctors(ctx context.Context, rt *runtime, _ []string) error {
	doctors := rt.app.Appointments.Doctors(ctx)
	tw := table(rt.out, "ID", "NAME", "SPECIALIZATION")
	for _, d := range doctors {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.ID, d.Name, d.Specialization)
	}
	return tw.Flush()
}

func cmdSlots(ctx context.Context, rt *runtime, args []string) error {
	var doctorID, date string
	if err := parse("slots", args, func(fs *flag.FlagSet) {
		fs.StringVar(&doctorID, "doctor", "", "doctor id")
		fs.StringVar(&date, "date", "", "date as YYYY-MM-DD")
	}); err != nil {
		return err
	}
	slots, ok := rt.app.Appointments.Slots(ctx, doctorID, date)
	if !ok {
		return errors.New("no slots available")
	}
	for _, s := range slots {
		fmt.Fprintln(rt.out, s)
	}
	return nil
}

func cmdBook(ctx context.Context, rt *runtime, args []string) error {
	var form validate.BookingForm
	if err := parse("book", args, func(fs *flag.FlagSet) {
		fs.StringVar(&form.DoctorID, "doctor", "", "doctor id")
		fs.StringVar(&form.Date, "date", "", "date as YYYY-MM-DD")
		fs.StringVar(&form.TimeSlot, "slot", "", "time slot")
	}); err != nil {
		return err
	}
	return reported(rt.app.Appointments.Book(ctx, form))
}

func cmdAppointments(ctx context.Context, rt *runtime, _ []string) error {
	appts := rt.app.Appointments.List(ctx)
	tw := table(rt.out, "ID", "DOCTOR", "DATE", "SLOT", "STATUS", "FEE")
	for _, a := range appts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, orID(a.DoctorName, a.DoctorID), a.Date, a.TimeSlot, a.Status, payment.FormatAmount(a.Fee))
	}
	return tw.Flush()
}

func cmdCancel(ctx context.Context, rt *runtime, args []string) error {
	appt, err := appointmentFlag(ctx, rt, "cancel", args, nil)
	if err != nil {
		return err
	}
	if !rt.app.Appointments.CanCancel(appt) {
		return fmt.Errorf("appointment %s is %s and cannot be cancelled", appt.ID, appt.Status)
	}
	return reported(rt.app.Appointments.Cancel(ctx, appt))
}

func cmdReschedule(ctx context.Context, rt *runtime, args []string) error {
	var date, slot string
	appt, err := appointmentFlag(ctx, rt, "reschedule", args, func(fs *flag.FlagSet) {
		fs.StringVar(&date, "date", "", "new date as YYYY-MM-DD")
		fs.StringVar(&slot, "slot", "", "new time slot")
	})
	if err != nil {
		return err
	}
	return reported(rt.app.Appointments.Reschedule(ctx, appt, date, slot))
}

func cmdPayments(ctx context.Context, rt *runtime, _ []string) error {
	payments := rt.app.Payments.History(ctx)
	sum := app.Summarize(payments)
	fmt.Fprintf(rt.out, "total paid: %s  pending: %d  transactions: %d\n\n",
		payment.FormatAmount(sum.TotalPaid), sum.Pending, sum.Transactions)

	tw := table(rt.out, "ORDER", "GATEWAY", "AMOUNT", "STATUS", "TRANSACTION", "DATE")
	for _, p := range payments {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.OrderID, payment.GatewayName(string(p.Gateway)), payment.FormatAmount(p.Amount),
			p.Status, p.TransactionID, p.CreatedAt)
	}
	return tw.Flush()
}

func cmdPaymentStatus(ctx context.Context, rt *runtime, args []string) error {
	var txn string
	if err := parse("payment-status", args, func(fs *flag.FlagSet) {
		fs.StringVar(&txn, "txn", "", "transaction id")
	}); err != nil {
		return err
	}
	if txn == "" {
		return errors.New("-txn is required")
	}
	res := rt.app.Payments.Status(ctx, txn)
	if !res.Success {
		return errReported
	}
	fmt.Fprintf(rt.out, "%s: %s\n", txn, res.Status)
	return nil
}

func cmdDashboard(ctx context.Context, rt *runtime, _ []string) error {
	overview, ok := rt.app.Dashboard.Load(ctx)
	if !ok {
		return errReported
	}
	s := overview.Stats
	fmt.Fprintf(rt.out, "appointments: %d  upcoming: %d  completed: %d  paid: %s\n\n",
		s.TotalAppointments, s.UpcomingAppointments, s.CompletedAppointments, payment.FormatAmount(s.TotalPaid))

	tw := table(rt.out, "DATE", "SLOT", "DOCTOR", "STATUS")
	for _, a := range overview.Recent {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Date, a.TimeSlot, orID(a.DoctorName, a.DoctorID), a.Status)
	}
	return tw.Flush()
}

// appointmentFlag parses -id plus any extra flags and resolves the appointment
// from the signed-in user's list.
func appointmentFlag(ctx context.Context, rt *runtime, name string, args []string, extra func(fs *flag.FlagSet)) (models.Appointment, error) {
	var id string
	if err := parse(name, args, func(fs *flag.FlagSet) {
		fs.StringVar(&id, "id", "", "appointment id")
		if extra != nil {
			extra(fs)
		}
	}); err != nil {
		return models.Appointment{}, err
	}
	if id == "" {
		return models.Appointment{}, errors.New("-id is required")
	}
	if rt.app.Session.Get().User == nil {
		return models.Appointment{}, auth.ErrNoSession
	}
	for _, a := range rt.app.Appointments.List(ctx) {
		if a.ID == id {
			return a, nil
		}
	}
	return models.Appointment{}, fmt.Errorf("appointment %s not found", id)
}

func table(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, h := range headers {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, h)
	}
	fmt.Fprintln(tw)
	return tw
}

func orID(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
