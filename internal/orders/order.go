// Package orders fetches order batches for session cookies and turns the raw
// per-account order records into ResolvedOrder values.
package orders

import (
	"strings"
	"time"

	"github.com/xelth-com/orderbot/internal/delivery"
	"github.com/xelth-com/orderbot/internal/fields"
	"github.com/xelth-com/orderbot/internal/format"
)

// Logical order fields and the upstream keys each may arrive under
var (
	FieldAccounts = fields.NewField("accounts", "allOrderDetails")
	FieldCookie   = fields.NewField("cookie", "cookie")
	FieldOrders   = fields.NewField("orders", "orderDetails")

	FieldOrderID   = fields.NewField("order_id", "order_id", "orderid", "id")
	FieldStatus    = fields.NewField("status", "tracking_info_description", "status_description", "status", "order_status")
	FieldTracking  = fields.NewField("tracking", "tracking_number", "tracking_no", "tracking")
	FieldCreatedAt = fields.NewField("created_at", "create_time", "order_time", "ctime", "created_at")
	FieldTotal     = fields.NewField("total", "order_price", "total_price", "final_total")

	FieldAddress   = fields.NewField("address", "address")
	FieldRecipient = fields.NewField("recipient", "shipping_name", "name", "receiver_name")
	FieldPhone     = fields.NewField("phone", "shipping_phone", "phone", "receiver_phone")
	FieldFullAddr  = fields.NewField("full_address", "shipping_address", "address", "full_address")

	FieldShipping   = fields.NewField("shipping", "shipping")
	FieldCarrier    = fields.NewField("carrier", "shipping_carrier", "carrier")
	FieldCarrierTop = fields.NewField("carrier", "shipping_carrier")

	FieldProducts    = fields.NewField("products", "product_info", "products")
	FieldProductName = fields.NewField("product_name", "name", "product_name", "title")
	FieldVariation   = fields.NewField("variation", "model_name", "variation", "classification", "model")
)

// Product is one line item of an order
type Product struct {
	Name      string
	Variation string
}

// ResolvedOrder is the display view of one raw order record.
// It is rebuilt on every render and never stored.
type ResolvedOrder struct {
	OrderID       string
	StatusText    string
	TrackingID    string
	RecipientName string
	Phone         string
	AddressMain   string
	AddressCity   string
	CarrierName   string
	CreatedAt     string
	Total         string
	Products      []Product
}

// Account is one submitted cookie and the raw orders returned for it
type Account struct {
	Cookie string
	Orders []fields.Record
}

// Batch is a decoded order lookup response
type Batch struct {
	Accounts []Account
	Raw      fields.Record
}

// ParseBatch extracts the accounts from an order lookup response
func ParseBatch(payload fields.Record) Batch {
	list := FieldAccounts.List(payload).Or(nil)
	batch := Batch{Raw: payload, Accounts: make([]Account, 0, len(list))}

	for _, rec := range fields.Records(list) {
		batch.Accounts = append(batch.Accounts, Account{
			Cookie: FieldCookie.Text(rec).Or(""),
			Orders: fields.Records(FieldOrders.List(rec).Or(nil)),
		})
	}
	return batch
}

// Resolve builds the display view of a raw order.
// Product names and variations are kept whole; the renderer trims them.
func Resolve(order fields.Record, loc *time.Location) ResolvedOrder {
	addr := FieldAddress.Record(order).Or(fields.Record{})
	street, city := format.SplitAddress(FieldFullAddr.Text(addr).Or(""))

	shipping := FieldShipping.Record(order).Or(fields.Record{})
	carrierAPI := FieldCarrier.Text(shipping).Or(FieldCarrierTop.Text(order).Or(""))

	tracking := FieldTracking.Text(order).Or("")

	// Tracking prefixes are more reliable than the account API's carrier field
	carrier := delivery.DetectCarrier(tracking)
	if carrier == "" {
		carrier = carrierAPI
	}

	resolved := ResolvedOrder{
		OrderID:       FieldOrderID.Text(order).Or(""),
		StatusText:    FieldStatus.Text(order).Or(""),
		TrackingID:    tracking,
		RecipientName: FieldRecipient.Text(addr).Or(""),
		Phone:         FieldPhone.Text(addr).Or(""),
		AddressMain:   street,
		AddressCity:   city,
		CarrierName:   carrier,
	}

	if v, ok := FieldCreatedAt.Lookup(order).Get(); ok {
		resolved.CreatedAt = format.Timestamp(v, loc)
	}
	if v, ok := FieldTotal.Lookup(order).Get(); ok {
		resolved.Total = format.Currency(v)
	}

	for _, p := range productRecords(order) {
		resolved.Products = append(resolved.Products, Product{
			Name:      strings.TrimSpace(FieldProductName.Text(p).Or("")),
			Variation: strings.TrimSpace(FieldVariation.Text(p).Or("")),
		})
	}
	return resolved
}

func productRecords(order fields.Record) []fields.Record {
	return fields.Records(FieldProducts.List(order).Or(nil))
}
