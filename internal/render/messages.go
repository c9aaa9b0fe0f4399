package render

import (
	"fmt"
	"strings"

	"github.com/xelth-com/orderbot/internal/delivery"
	"github.com/xelth-com/orderbot/internal/format"
)

// Chat controls
const (
	CheckButton      = "📦 Check MVĐ"
	ContinueButton   = "🔁 Bấm để tiếp tục check"
	CallbackContinue = "continue_check"
)

// Fixed replies
const (
	Welcome = "✅ Bot Check Đơn Shopee\n\nBấm nút bên dưới để bắt đầu."

	Prompt = "🍪 Gửi Cookie theo định dạng:\n" +
		"SPC_ST=....\n\n" +
		"📦 Hoặc gửi Mã vận đơn để xem hành trình:\n" +
		"- SPX / SPXVN... (Shopee Express)\n" +
		"- GY... (GHN)\n\n" +
		"💡 Cookie: tối đa 10 dòng (mỗi cookie 1 dòng)."

	ContinueAck      = "🔁 OK, gửi Cookie hoặc MVĐ để check tiếp nhé!"
	NothingSent      = "❌ Bạn chưa gửi gì cả. Gửi lại giúp mình nhé."
	CheckingTracking = "⏳ Đang check hành trình vận đơn..."
	CheckingOrders   = "⏳ Đang check đơn hàng..."

	Restarting = "⚠️ Bot đang khởi động lại, yêu cầu chưa được xử lý.\n" +
		"👉 Bạn gửi lại giúp mình sau ít phút nhé."

	CredentialFailure = "❌ Cookie sai / hết hạn hoặc không có dữ liệu đơn hợp lệ.\n" +
		"👉 Hãy lấy lại SPC_ST mới và thử lại."
)

// TooManyCookies is the reply for a batch above the limit
func TooManyCookies(limit int) string {
	return fmt.Sprintf("❌ Tối đa %d cookie. Bạn gửi lại giúp mình nhé (tối đa %d dòng).", limit, limit)
}

// InvalidCookies aggregates every rejected line (1-based) into one reply
func InvalidCookies(lines []int) string {
	var b strings.Builder
	b.WriteString("❌ Không nhận diện được MVĐ và Cookie cũng không hợp lệ.\n\n")
	b.WriteString("✅ Gửi:\n")
	b.WriteString("• Cookie: SPC_ST=....\n")
	b.WriteString("• Hoặc MVĐ: SPXVN... / SPX... / GY...\n\n")
	b.WriteString("Chi tiết lỗi cookie:")
	for _, n := range lines {
		fmt.Fprintf(&b, "\n- Dòng %d: sai định dạng (phải có SPC_ST=...)", n)
	}
	return b.String()
}

// TrackingFailure renders an ok=false tracking result with its diagnostic detail
func TrackingFailure(res delivery.TrackingResult, esc format.Escaper) string {
	lines := []string{"❌ Không lấy được hành trình vận đơn."}
	if res.CurrentStatus != "" {
		lines = append(lines, escapeField(esc, res.CurrentStatus))
	}
	lines = append(lines, "Chi tiết: "+esc.Escape(format.SafeTrim(res.Error, 500)))
	if res.Link != "" {
		lines = append(lines, "🔗 "+esc.Escape(res.Link))
	}
	return strings.Join(lines, "\n")
}

// LookupError renders a transport or upstream failure of the order lookup
func LookupError(detail string, esc format.Escaper) string {
	return "❌ Lỗi: " + esc.Escape(format.SafeTrim(detail, 1000))
}

// TrackingError renders an unexpected failure while checking a tracking code
func TrackingError(detail string, esc format.Escaper) string {
	return "❌ Lỗi check vận đơn: " + esc.Escape(format.SafeTrim(detail, 1000))
}
