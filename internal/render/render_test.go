package render

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/orderbot/internal/delivery"
	"github.com/xelth-com/orderbot/internal/fields"
	"github.com/xelth-com/orderbot/internal/format"
	"github.com/xelth-com/orderbot/internal/orders"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Location = time.UTC
	return opts
}

func order(id, tracking string, products int) fields.Record {
	list := make([]any, products)
	for i := range list {
		list[i] = map[string]any{"name": fmt.Sprintf("Sản phẩm số %d", i+1), "model_name": "M"}
	}
	return fields.Record{
		"order_id":        id,
		"tracking_number": tracking,
		"status":          "Đang giao",
		"address": map[string]any{
			"shipping_name":    "Trần B",
			"shipping_phone":   "0901",
			"shipping_address": "1 Hai Bà Trưng, Quận 3, Hồ Chí Minh",
		},
		"product_info": list,
	}
}

func TestChunkConcatenationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("chunks rebuild the text and respect the budget", prop.ForAll(
		func(text string, budget int, lineAware bool) bool {
			chunks := Chunk(text, budget, lineAware)
			if strings.Join(chunks, "") != text {
				return false
			}
			for i, c := range chunks {
				n := utf8.RuneCountInString(c)
				if n > budget || n == 0 {
					return false
				}
				if !lineAware && i < len(chunks)-1 && n != budget {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.OneConstOf("a", "é", "\n", "🍪", "<b>")).Map(func(parts []string) string {
			return strings.Join(parts, "")
		}),
		gen.IntRange(1, 40),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestChunkLineAware(t *testing.T) {
	text := "aaaa\nbbbb\ncccc"
	assert.Equal(t, []string{"aaaa\nbbbb\n", "cccc"}, Chunk(text, 12, true))
	assert.Equal(t, []string{"aaaa\nbbbb\ncc", "cc"}, Chunk(text, 12, false))
	assert.Nil(t, Chunk("", 10, false))
}

// wholeMarkup reports whether every entity and tag in s is closed within s
func wholeMarkup(s string) bool {
	open := rune(0)
	for _, r := range s {
		switch {
		case open == 0 && (r == '&' || r == '<'):
			open = r
		case open == '&' && r == ';', open == '<' && r == '>':
			open = 0
		}
	}
	return open == 0
}

func TestChunkHTMLNeverSplitsEntities(t *testing.T) {
	esc := format.HTML{}
	line := esc.Escape(strings.Repeat("a&", 300)) + esc.Code("SPX\"1\"")

	for budget := 9; budget <= 41; budget++ {
		chunks := Chunk(line, budget, true)
		require.Equal(t, line, strings.Join(chunks, ""), "budget %d", budget)
		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), budget)
			assert.True(t, wholeMarkup(c), "budget %d: %q", budget, c)
		}
	}
}

func TestLongUpstreamValuesAreTrimmedInHTML(t *testing.T) {
	opts := testOptions()
	opts.Escaper = format.HTML{}
	opts.Budget = 500

	rec := order("1", "SPX123456", 1)
	rec["status"] = strings.Repeat("a&", 2000)
	rec["address"].(map[string]any)["shipping_name"] = strings.Repeat("<b>", 500)
	msgs := Orders(orders.Batch{Accounts: []orders.Account{{Cookie: "SPC_ST=abcdefghijklmnopqrstuvwxyz", Orders: []fields.Record{rec}}}}, opts)

	full := strings.Join(msgs, "")
	assert.Contains(t, full, "a&amp;"+format.Ellipsis)
	assert.NotContains(t, full, strings.Repeat("a&amp;", fieldMax))
	for _, m := range msgs {
		assert.LessOrEqual(t, utf8.RuneCountInString(m), opts.Budget)
		assert.True(t, wholeMarkup(m), "%q", m)
	}

	res := delivery.TrackingResult{OK: true, Carrier: "SPX", Code: "SPX1", CurrentStatus: strings.Repeat("x&", 1000)}
	for _, m := range Tracking(res, opts) {
		assert.True(t, wholeMarkup(m), "%q", m)
	}
}

func TestOrdersEmptyBatch(t *testing.T) {
	assert.Equal(t, []string{msgNoData}, Orders(orders.Batch{}, testOptions()))
}

func TestOrdersZeroOrderAccountDoesNotBlockOthers(t *testing.T) {
	batch := orders.Batch{Accounts: []orders.Account{
		{Cookie: "SPC_ST=empty-account-cookie-123"},
		{Cookie: "SPC_ST=full-account-cookie-12345", Orders: []fields.Record{order("1", "SPX123456", 1)}},
	}}

	msgs := Orders(batch, testOptions())
	require.Len(t, msgs, 2)
	assert.Equal(t, "🍪 Cookie: `SPC_ST=empty-account...`\n❌ Không có đơn hàng.", msgs[0])
	assert.Contains(t, msgs[1], "📦 Tổng đơn: 1")
}

func TestAccountTextLayout(t *testing.T) {
	acc := orders.Account{
		Cookie: "SPC_ST=abcdefghijklmnopqrstuvwxyz",
		Orders: []fields.Record{order("111", "SPXVN0001", 1), order("222", "GY9999", 2)},
	}
	text := AccountText(acc, testOptions())

	want := strings.Join([]string{
		"🍪 Cookie: `SPC_ST=abcdefghijklm...`",
		"📦 Tổng đơn: 2",
		"📌 ĐƠN HÀNG 1 :",
		"🧾 Order ID: 111",
		"ℹ️ THÔNG TIN",
		"👤 Người nhận: Trần B",
		"📞 SDT: 0901",
		"📍 Địa chỉ: 1 Hai Bà Trưng, Quận 3",
		"TP. Hồ Chí Minh",
		"",
		"🎁 Sản phẩm: Sản phẩm số 1 [M]",
		"",
		"🚚 Đơn vị vận chuyển: Shopee Express",
		"🧾 MVD: `SPXVN0001`",
		"📊 Trạng thái: Đang giao",
		Separator,
		"📌 ĐƠN HÀNG 2 :",
		"🧾 Order ID: 222",
		"ℹ️ THÔNG TIN",
		"👤 Người nhận: Trần B",
		"📞 SDT: 0901",
		"📍 Địa chỉ: 1 Hai Bà Trưng, Quận 3",
		"TP. Hồ Chí Minh",
		"",
		"🎁 Sản phẩm:",
		"Sản phẩm 1 : Sản phẩm số 1 [M]",
		"Sản phẩm 2 : Sản phẩm số 2 [M]",
		"",
		"🚚 Đơn vị vận chuyển: Giao Hàng Nhanh",
		"🧾 MVD: `GY9999`",
		"📊 Trạng thái: Đang giao",
		"",
		Footer,
	}, "\n")
	assert.Equal(t, want, text)
}

func TestEmptyFieldsAreOmitted(t *testing.T) {
	block := OrderBlock(1, orders.ResolvedOrder{StatusText: "Chờ lấy hàng"}, testOptions())
	assert.Equal(t, "📌 ĐƠN HÀNG 1 :\n📊 Trạng thái: Chờ lấy hàng", block)
}

func TestHiddenOrdersSummary(t *testing.T) {
	var recs []fields.Record
	for i := 0; i < 7; i++ {
		recs = append(recs, order(fmt.Sprint(i), "", 1))
	}
	text := AccountText(orders.Account{Cookie: "c", Orders: recs}, testOptions())

	assert.Equal(t, 5, strings.Count(text, "📌 ĐƠN HÀNG"))
	assert.Equal(t, 4, strings.Count(text, Separator))
	assert.Contains(t, text, "… (ẩn 2 đơn, tăng giới hạn nếu muốn)")
	assert.True(t, strings.HasSuffix(text, Footer))
}

func TestProductCap(t *testing.T) {
	for n := 1; n <= 9; n++ {
		block := OrderBlock(1, orders.Resolve(order("1", "", n), time.UTC), testOptions())

		listed := strings.Count(block, "Sản phẩm số ")
		summaries := strings.Count(block, "sản phẩm khác)")
		assert.Equal(t, min(n, 5), listed, "n=%d", n)
		if n > 5 {
			assert.Equal(t, 1, summaries, "n=%d", n)
			assert.Contains(t, block, fmt.Sprintf("(… +%d sản phẩm khác)", n-5))
		} else {
			assert.Zero(t, summaries, "n=%d", n)
		}
	}
}

func TestLongAccountIsSplitWithoutLoss(t *testing.T) {
	var recs []fields.Record
	for i := 0; i < 5; i++ {
		rec := order(fmt.Sprint(i), "SPX123456", 5)
		for _, p := range rec["product_info"].([]any) {
			p.(map[string]any)["name"] = strings.Repeat("Tên rất dài ", 40)
		}
		recs = append(recs, rec)
	}
	acc := orders.Account{Cookie: "SPC_ST=abcdefghijklmnopqrstuvwxyz", Orders: recs}
	opts := testOptions()

	full := AccountText(acc, opts)
	msgs := Orders(orders.Batch{Accounts: []orders.Account{acc}}, opts)

	require.Greater(t, len(msgs), 1)
	for _, m := range msgs {
		assert.LessOrEqual(t, utf8.RuneCountInString(m), DefaultBudget)
	}
	assert.Equal(t, full, strings.Join(msgs, ""))
	assert.Contains(t, full, "…")
}

func TestUpstreamTextIsEscaped(t *testing.T) {
	opts := testOptions()
	opts.Escaper = format.HTML{}

	rec := order("<b>1</b>", "SPX<script>", 1)
	rec["address"].(map[string]any)["shipping_name"] = "A & B\nfake line"
	rec["product_info"] = []any{map[string]any{"name": "<i>x</i>", "model_name": "<u>"}}

	text := AccountText(orders.Account{Cookie: "SPC_ST=<evil>", Orders: []fields.Record{rec}}, opts)

	assert.NotContains(t, text, "<b>")
	assert.NotContains(t, text, "<script>")
	assert.NotContains(t, text, "<i>")
	assert.NotContains(t, text, "<evil>")
	assert.Contains(t, text, "👤 Người nhận: A &amp; B fake line")
	assert.Contains(t, text, "<code>SPX&lt;script&gt;</code>")
}

func TestTrackingText(t *testing.T) {
	res := delivery.TrackingResult{
		OK:            true,
		Carrier:       "Giao Hàng Nhanh (GHN)",
		Code:          "GY1234",
		CurrentStatus: "Đang giao",
		FromAddress:   "HCM",
		ToAddress:     "HN",
		ToName:        "C",
		Link:          "https://donhang.ghn.vn/?order_code=GY1234",
	}
	for i := 0; i < 12; i++ {
		res.Events = append(res.Events, delivery.TrackingEvent{Time: fmt.Sprintf("t%d", i), Detail: "d"})
	}
	res.Events[1] = delivery.TrackingEvent{}

	text := TrackingText(res, testOptions())
	assert.Contains(t, text, "🧾 MVĐ: `GY1234`")
	assert.Contains(t, text, "📦 Tuyến: HCM ➜ HN")
	assert.Contains(t, text, "• t0 - d")
	assert.NotContains(t, text, "• \n")
	assert.NotContains(t, text, "t10")
	assert.Contains(t, text, "… +2 dòng khác (xem link)")
	assert.True(t, strings.HasSuffix(text, "🔗 https://donhang.ghn.vn/?order_code=GY1234"))
}

func TestFailureMessages(t *testing.T) {
	res := delivery.Failure(delivery.FailureTransport, "SPX", "SPX1", "Không gọi được API SPX.", "https://spx.vn/track?SPX1", "dial tcp: timeout")
	msg := TrackingFailure(res, format.Plain{})
	assert.Contains(t, msg, "Chi tiết: dial tcp: timeout")

	assert.Contains(t, InvalidCookies([]int{1, 2}), "- Dòng 1:")
	assert.Contains(t, InvalidCookies([]int{1, 2}), "- Dòng 2:")
	assert.Contains(t, TooManyCookies(10), "Tối đa 10 cookie")
}
