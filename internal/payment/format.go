package payment

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/muhammadahmed9211/clinic-saas/internal/models"
)

var (
	pkr     = currency.MustParseISO("PKR")
	printer = message.NewPrinter(language.MustParse("en-PK"))
)

// FormatAmount renders amount as PKR with grouping and two decimals, e.g. "PKR 1,500.00".
// The sign leads the currency code, as in "-PKR 1,500.00".
func FormatAmount(amount float64) string {
	if amount < 0 {
		return "-" + FormatAmount(-amount)
	}
	return pkr.String() + " " + printer.Sprintf("%.2f", amount)
}

var gatewayNames = map[models.Gateway]string{
	models.GatewayEasyPaisa: "EasyPaisa",
	models.GatewayJazzCash:  "JazzCash",
	models.GatewayCard:      "Credit/Debit Card",
}

// GatewayName returns the display name, or the input unchanged when unknown.
func GatewayName(gateway string) string {
	if name, ok := gatewayNames[models.Gateway(gateway)]; ok {
		return name
	}
	return gateway
}

var statusColors = map[models.PaymentStatus]string{
	models.PaymentPending:  "warning",
	models.PaymentPaid:     "success",
	models.PaymentFailed:   "danger",
	models.PaymentRefunded: "info",
}

// StatusColor maps a payment status to a badge color, defaulting to "info".
func StatusColor(status string) string {
	if color, ok := statusColors[models.PaymentStatus(status)]; ok {
		return color
	}
	return "info"
}
