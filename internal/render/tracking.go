package render

import (
	"fmt"
	"strings"

	"github.com/xelth-com/orderbot/internal/delivery"
)

// Tracking renders a successful tracking result, split to the message budget
func Tracking(res delivery.TrackingResult, opts Options) []string {
	opts = opts.withDefaults()
	return Chunk(TrackingText(res, opts), opts.Budget, opts.lineAware())
}

// TrackingText renders a tracking result as one text. Only the newest
// MaxEvents events are listed; the rest are summarised in one line.
func TrackingText(res delivery.TrackingResult, opts Options) string {
	opts = opts.withDefaults()
	esc := opts.Escaper

	var lines []string
	if res.Carrier != "" {
		lines = append(lines, "🚚 Đơn vị: "+escapeField(esc, res.Carrier))
	}
	if res.Code != "" {
		lines = append(lines, "🧾 MVĐ: "+esc.Code(res.Code))
	}
	if res.CurrentStatus != "" {
		lines = append(lines, "📌 Trạng thái: "+escapeField(esc, res.CurrentStatus))
	}
	if res.FromAddress != "" && res.ToAddress != "" {
		lines = append(lines, "📦 Tuyến: "+escapeField(esc, res.FromAddress)+" ➜ "+escapeField(esc, res.ToAddress))
	}
	if res.ToName != "" {
		lines = append(lines, "👤 Người nhận: "+escapeField(esc, res.ToName))
	}
	if res.LinkedCode != "" {
		lines = append(lines, "🔎 Mã liên kết: "+escapeField(esc, res.LinkedCode))
	}

	if len(res.Events) > 0 {
		lines = append(lines, "\n📍 Hành trình gần nhất:")
		shown := min(len(res.Events), opts.MaxEvents)
		for _, ev := range res.Events[:shown] {
			var parts []string
			for _, p := range []string{ev.Time, ev.Status, ev.Detail} {
				if p = strings.TrimSpace(p); p != "" {
					parts = append(parts, escapeField(esc, p))
				}
			}
			if len(parts) > 0 {
				lines = append(lines, "• "+strings.Join(parts, " - "))
			}
		}
		if extra := len(res.Events) - shown; extra > 0 {
			lines = append(lines, fmt.Sprintf("… +%d dòng khác (xem link)", extra))
		}
	}

	if res.Link != "" {
		lines = append(lines, "\n🔗 "+esc.Escape(res.Link))
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
