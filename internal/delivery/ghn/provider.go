// Package ghn tracks Giao Hàng Nhanh shipments through GHN's public tracking-logs API.
package ghn

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/xelth-com/orderbot/internal/delivery"
	"github.com/xelth-com/orderbot/internal/fields"
	"github.com/xelth-com/orderbot/internal/format"
	"github.com/xelth-com/orderbot/internal/transport"
)

const (
	DefaultURL = "https://fe-online-gateway.ghn.vn/order-tracking/public-api/client/tracking-logs"

	Label = "Giao Hàng Nhanh (GHN)"

	msgTransport = "Không gọi được API GHN."
	msgCode      = "GHN API trả lỗi (code != 200)."
	msgUnknown   = "Không rõ trạng thái"
)

var codePattern = regexp.MustCompile(`^GY[A-Z0-9]{4,}$`)

var (
	fieldData      = fields.NewField("data", "data")
	fieldOrderInfo = fields.NewField("order_info", "order_info")
	fieldLogs      = fields.NewField("tracking_logs", "tracking_logs")
	fieldStatus    = fields.NewField("status", "status_name", "status")
	fieldActionAt  = fields.NewField("action_at", "action_at")
	fieldLocation  = fields.NewField("location", "location")
	fieldAddress   = fields.NewField("address", "address")
	fieldFrom      = fields.NewField("from_address", "from_address")
	fieldTo        = fields.NewField("to_address", "to_address")
	fieldToName    = fields.NewField("to_name", "to_name")
)

// Config holds configuration for the GHN provider
type Config struct {
	URL      string        // Tracking-logs endpoint (defaults to DefaultURL)
	Timeout  time.Duration // Per-call timeout (default: 25s)
	Location *time.Location
	HTTP     *http.Client
}

// Provider implements delivery.ProviderInterface for Giao Hàng Nhanh
type Provider struct {
	config Config
	client *transport.Client
}

// NewProvider creates a new GHN tracking provider
func NewProvider(config Config) *Provider {
	if config.URL == "" {
		config.URL = DefaultURL
	}
	if config.Timeout == 0 {
		config.Timeout = 25 * time.Second
	}
	httpClient := config.HTTP
	if httpClient == nil {
		httpClient = transport.NewHTTPClient(config.Timeout)
	}

	return &Provider{
		config: config,
		client: transport.New(httpClient, map[string]string{
			"Origin":  "https://donhang.ghn.vn",
			"Referer": "https://donhang.ghn.vn/",
		}),
	}
}

// Code returns the provider code
func (p *Provider) Code() string {
	return "ghn"
}

// Name returns the provider name
func (p *Provider) Name() string {
	return delivery.CarrierGHN
}

// Matches reports whether code looks like a GHN order code
func (p *Provider) Matches(code string) bool {
	return codePattern.MatchString(delivery.NormalizeCode(code))
}

// Link returns the public GHN tracking page
func (p *Provider) Link(code string) string {
	return Link(code)
}

// Link builds https://donhang.ghn.vn/?order_code=<CODE>
func Link(code string) string {
	q := url.Values{}
	q.Set("order_code", strings.ToUpper(strings.TrimSpace(code)))
	return "https://donhang.ghn.vn/?" + q.Encode()
}

// Track fetches and normalizes the GHN tracking logs for code
func (p *Provider) Track(ctx context.Context, code string) delivery.TrackingResult {
	code = strings.ToUpper(strings.TrimSpace(code))

	body, err := p.client.PostJSON(ctx, p.config.URL, map[string]string{"order_code": code})
	if err != nil {
		return delivery.Failure(delivery.FailureTransport, Label, code, msgTransport, Link(code), err.Error())
	}

	payload, err := fields.Decode(body)
	if err != nil {
		return delivery.Failure(delivery.FailureTransport, Label, code, msgTransport, Link(code), err.Error())
	}

	return Normalize(payload, code, p.config.Location)
}

// Normalize maps a raw GHN response into a TrackingResult.
// The current status comes from the order, not from the newest log entry.
func Normalize(payload fields.Record, code string, loc *time.Location) delivery.TrackingResult {
	code = strings.ToUpper(strings.TrimSpace(code))
	link := Link(code)

	if c := fields.ToText(payload["code"]); c != "200" {
		msg := fields.NewField("message", "message", "msg").Text(payload).Or("")
		return delivery.Failure(delivery.FailureUpstream, Label, code, msgCode, link, strings.TrimSpace(fmt.Sprintf("code=%s %s", c, msg)))
	}

	data := fieldData.Record(payload).Or(fields.Record{})
	info := fieldOrderInfo.Record(data).Or(fields.Record{})
	logs := fields.Records(fieldLogs.List(data).Or(nil))

	events := make([]delivery.TrackingEvent, 0, len(logs))
	for _, lg := range logs {
		place := fieldLocation.Record(lg).Or(fields.Record{})
		ev := delivery.TrackingEvent{
			Time:   format.ISOZ(fieldActionAt.Lookup(lg).Or(nil), loc),
			Status: strings.TrimSpace(fieldStatus.Text(lg).Or("")),
			Detail: strings.TrimSpace(fieldAddress.Text(place).Or("")),
		}
		if !ev.IsEmpty() {
			events = append(events, ev)
		}
	}

	current := strings.TrimSpace(fieldStatus.Text(info).Or(""))
	if current == "" {
		current = msgUnknown
	}

	return delivery.TrackingResult{
		OK:            true,
		Carrier:       Label,
		Code:          code,
		CurrentStatus: current,
		Events:        events,
		Link:          link,
		FromAddress:   strings.TrimSpace(fieldFrom.Text(info).Or("")),
		ToAddress:     strings.TrimSpace(fieldTo.Text(info).Or("")),
		ToName:        strings.TrimSpace(fieldToName.Text(info).Or("")),
	}
}
