package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/xelth-com/orderbot/internal/format"
	"github.com/xelth-com/orderbot/internal/orders"
)

const (
	productNameMax      = 160
	productVariationMax = 80
	fieldMax            = 300
	cookiePreviewLen    = 20

	Separator = "---------------------------------------"
	Footer    = "ℹ️ Tap vào MVD để copy nhanh."

	msgNoData   = "❌ Không có dữ liệu đơn hàng. (API trả rỗng)"
	msgNoOrders = "❌ Không có đơn hàng."
)

// Options controls order and tracking rendering
type Options struct {
	Escaper             format.Escaper
	Budget              int
	MaxOrdersPerAccount int
	MaxProductsPerOrder int
	MaxEvents           int
	Location            *time.Location

	// Off by default; the upstream values are often placeholders
	ShowOrderTime bool
	ShowTotal     bool
}

// DefaultOptions returns the stock limits with plain-text escaping
func DefaultOptions() Options {
	return Options{
		Escaper:             format.Plain{},
		Budget:              DefaultBudget,
		MaxOrdersPerAccount: 5,
		MaxProductsPerOrder: 5,
		MaxEvents:           10,
		Location:            time.Local,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Escaper == nil {
		o.Escaper = d.Escaper
	}
	if o.Budget <= 0 {
		o.Budget = d.Budget
	}
	if o.MaxOrdersPerAccount <= 0 {
		o.MaxOrdersPerAccount = d.MaxOrdersPerAccount
	}
	if o.MaxProductsPerOrder <= 0 {
		o.MaxProductsPerOrder = d.MaxProductsPerOrder
	}
	if o.MaxEvents <= 0 {
		o.MaxEvents = d.MaxEvents
	}
	if o.Location == nil {
		o.Location = d.Location
	}
	return o
}

func (o Options) lineAware() bool {
	return o.Escaper.Mode() == format.ModeHTML
}

// Orders renders a whole batch. Each account yields one or more messages; an
// account without orders yields a single short message and never blocks the
// others.
func Orders(batch orders.Batch, opts Options) []string {
	opts = opts.withDefaults()

	if len(batch.Accounts) == 0 {
		return []string{msgNoData}
	}

	var messages []string
	for _, acc := range batch.Accounts {
		if len(acc.Orders) == 0 {
			messages = append(messages, cookieLine(acc.Cookie, opts.Escaper)+"\n"+msgNoOrders)
			continue
		}
		messages = append(messages, Chunk(AccountText(acc, opts), opts.Budget, opts.lineAware())...)
	}
	return messages
}

// AccountText renders one account into a single unsplit text
func AccountText(acc orders.Account, opts Options) string {
	opts = opts.withDefaults()
	esc := opts.Escaper

	blocks := []string{
		cookieLine(acc.Cookie, esc) + "\n" + fmt.Sprintf("📦 Tổng đơn: %d", len(acc.Orders)),
	}

	shown := min(len(acc.Orders), opts.MaxOrdersPerAccount)
	for i := 0; i < shown; i++ {
		order := orders.Resolve(acc.Orders[i], opts.Location)
		blocks = append(blocks, OrderBlock(i+1, order, opts))
		if i < shown-1 {
			blocks = append(blocks, Separator)
		} else {
			blocks = append(blocks, "")
		}
	}

	if hidden := len(acc.Orders) - shown; hidden > 0 {
		blocks = append(blocks, fmt.Sprintf("… (ẩn %d đơn, tăng giới hạn nếu muốn)", hidden))
	}
	blocks = append(blocks, Footer)

	return Blocks(blocks)
}

// OrderBlock renders one order. Lines whose value is empty are left out.
func OrderBlock(idx int, o orders.ResolvedOrder, opts Options) string {
	opts = opts.withDefaults()
	esc := opts.Escaper

	lines := []string{fmt.Sprintf("📌 ĐƠN HÀNG %d :", idx)}
	if o.OrderID != "" {
		lines = append(lines, "🧾 Order ID: "+escapeField(esc, o.OrderID))
	}

	var info []string
	if o.RecipientName != "" {
		info = append(info, "👤 Người nhận: "+escapeField(esc, o.RecipientName))
	}
	if o.Phone != "" {
		info = append(info, "📞 SDT: "+escapeField(esc, o.Phone))
	}
	if o.AddressMain != "" {
		info = append(info, "📍 Địa chỉ: "+escapeField(esc, o.AddressMain))
	}
	if o.AddressCity != "" {
		info = append(info, escapeField(esc, format.CityLine(o.AddressCity)))
	}
	if len(info) > 0 {
		lines = append(lines, "ℹ️ THÔNG TIN")
		lines = append(lines, info...)
	}

	lines = append(lines, productLines(o.Products, opts)...)

	if o.CarrierName != "" {
		lines = append(lines, "\n🚚 Đơn vị vận chuyển: "+escapeField(esc, o.CarrierName))
	}
	if o.TrackingID != "" {
		lines = append(lines, "🧾 MVD: "+esc.Code(o.TrackingID))
	}
	if o.StatusText != "" {
		lines = append(lines, "📊 Trạng thái: "+escapeField(esc, o.StatusText))
	}
	if opts.ShowTotal && o.Total != "" {
		lines = append(lines, "💰 Tổng tiền: "+escapeField(esc, o.Total))
	}
	if opts.ShowOrderTime && o.CreatedAt != "" {
		lines = append(lines, "⏱ Thời gian đặt hàng: "+escapeField(esc, o.CreatedAt))
	}

	return strings.Join(lines, "\n")
}

// productLines renders up to MaxProductsPerOrder products followed by a single
// "+N" line when more exist. One product is shown inline.
func productLines(products []orders.Product, opts Options) []string {
	if len(products) == 0 {
		return nil
	}
	esc := opts.Escaper

	shown := min(len(products), opts.MaxProductsPerOrder)
	items := make([]string, 0, shown)
	for _, p := range products[:shown] {
		line := esc.Escape(format.SafeTrim(p.Name, productNameMax))
		if p.Variation != "" {
			line += " [" + esc.Escape(format.SafeTrim(p.Variation, productVariationMax)) + "]"
		}
		items = append(items, line)
	}

	var lines []string
	if len(products) == 1 {
		lines = append(lines, "\n🎁 Sản phẩm: "+items[0])
	} else {
		lines = append(lines, "\n🎁 Sản phẩm:")
		for i, item := range items {
			lines = append(lines, fmt.Sprintf("Sản phẩm %d : %s", i+1, item))
		}
	}
	if extra := len(products) - shown; extra > 0 {
		lines = append(lines, fmt.Sprintf("(… +%d sản phẩm khác)", extra))
	}
	return lines
}

// escapeField escapes one upstream value after trimming it to fieldMax runes
func escapeField(esc format.Escaper, s string) string {
	return esc.Escape(format.SafeTrim(s, fieldMax))
}

func cookieLine(cookie string, esc format.Escaper) string {
	return "🍪 Cookie: " + esc.Code(format.Preview(cookie, cookiePreviewLen)+"...")
}
