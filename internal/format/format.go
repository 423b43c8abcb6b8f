package format

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Vietnam is the storefront's display zone. A fixed offset keeps the
// output independent of the host's tzdata.
var Vietnam = time.FixedZone("ICT", 7*60*60)

var printer = message.NewPrinter(language.Vietnamese)

// VND formats an amount the way vi-VN prices are shown.
// Example: VND(350000) => "350.000 ₫"
func VND(amount int64) string {
	return printer.Sprintf("%d ₫", amount)
}

// Number groups digits with the Vietnamese separator.
func Number(n int64) string {
	return printer.Sprintf("%d", n)
}

// DateTime renders t in Vietnam time as "15:04:05 2/1/2006", the vi-VN
// locale string layout.
func DateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(Vietnam).Format("15:04:05 2/1/2006")
}

// Date is the ISO calendar date of t in UTC.
func Date(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// Days renders a rental period.
func Days(n int) string {
	return fmt.Sprintf("%d ngày", n)
}
