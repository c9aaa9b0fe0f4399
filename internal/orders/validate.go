package orders

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/xelth-com/orderbot/internal/fields"
)

// MinCookieLength is the shortest string accepted as a session cookie
const MinCookieLength = 20

var spcSTPattern = regexp.MustCompile(`(?i)(?:^|;\s*)SPC_ST=([^;]{15,})`)

// IsProbablyCookie is the pre-flight check applied to every submitted line
// before any network call: long enough and carrying an SPC_ST token.
func IsProbablyCookie(s string) bool {
	t := strings.TrimSpace(s)
	if utf8.RuneCountInString(t) < MinCookieLength {
		return false
	}
	return spcSTPattern.MatchString(t)
}

// IsRealOrder reports whether a raw order carries an id, a tracking code or a
// named first product. Expired cookies come back as structurally valid
// placeholders that have none of these.
func IsRealOrder(order fields.Record) bool {
	if FieldOrderID.Text(order).OK() || FieldTracking.Text(order).OK() {
		return true
	}
	products := FieldProducts.List(order).Or(nil)
	if len(products) == 0 {
		return false
	}
	first, ok := fields.AsRecord(products[0])
	if !ok {
		return false
	}
	return FieldProductName.Text(first).OK()
}

// CountRealOrders counts real orders across every account of a batch
func CountRealOrders(batch Batch) int {
	total := 0
	for _, acc := range batch.Accounts {
		for _, od := range acc.Orders {
			if IsRealOrder(od) {
				total++
			}
		}
	}
	return total
}
