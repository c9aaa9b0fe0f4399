// Package spx tracks Shopee Express shipments through the public SPX order-info API.
package spx

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
	DefaultURL      = "https://spx.vn/shipment/order/open/order/get_order_info"
	DefaultLanguage = "vi"

	Label = "Shopee Express (SPX)"

	msgTransport = "Không gọi được API SPX."
	msgRetcode   = "Không lấy được tracking SPX (retcode != 0)."
	msgNoRecord  = "Đã lấy dữ liệu nhưng không có record."
)

var codePattern = regexp.MustCompile(`^(SPXVN|SPX)[A-Z0-9]{6,}$`)

var (
	fieldData    = fields.NewField("data", "data")
	fieldInfo    = fields.NewField("sls_tracking_info", "sls_tracking_info")
	fieldRecords = fields.NewField("records", "records")
	fieldSlsTN   = fields.NewField("sls_tn", "sls_tn")
	fieldTime    = fields.NewField("actual_time", "actual_time")
	fieldDetail  = fields.NewField("detail", "buyer_description", "description")
	fieldStatus  = fields.NewField("status", "tracking_name", "milestone_name")
)

// Config holds configuration for the SPX provider
type Config struct {
	URL      string        // Order-info endpoint (defaults to DefaultURL)
	Language string        // language_code query parameter (defaults to "vi")
	Timeout  time.Duration // Per-call timeout (default: 25s)
	Location *time.Location
	HTTP     *http.Client // Optional; built from Timeout when nil
}

// Provider implements delivery.ProviderInterface for Shopee Express
type Provider struct {
	config Config
	client *transport.Client
}

// NewProvider creates a new SPX tracking provider
func NewProvider(config Config) *Provider {
	if config.URL == "" {
		config.URL = DefaultURL
	}
	if config.Language == "" {
		config.Language = DefaultLanguage
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
		client: transport.New(httpClient, map[string]string{"Referer": "https://spx.vn/"}),
	}
}

// Code returns the provider code
func (p *Provider) Code() string {
	return "spx"
}

// Name returns the provider name
func (p *Provider) Name() string {
	return delivery.CarrierSPX
}

// Matches reports whether code looks like an SPX tracking number
func (p *Provider) Matches(code string) bool {
	return codePattern.MatchString(delivery.NormalizeCode(code))
}

// Link returns the public SPX tracking page; the code is the bare query string
func (p *Provider) Link(code string) string {
	return Link(code)
}

// Link builds https://spx.vn/track?<CODE>
func Link(code string) string {
	return "https://spx.vn/track?" + strings.ToUpper(strings.TrimSpace(code))
}

// Track fetches and normalizes the SPX tracking history for code
func (p *Provider) Track(ctx context.Context, code string) delivery.TrackingResult {
	code = strings.ToUpper(strings.TrimSpace(code))

	q := url.Values{}
	q.Set("spx_tn", code)
	q.Set("language_code", p.config.Language)

	body, err := p.client.Get(ctx, p.config.URL+"?"+q.Encode())
	if err != nil {
		return delivery.Failure(delivery.FailureTransport, Label, code, msgTransport, Link(code), err.Error())
	}

	payload, err := fields.Decode(body)
	if err != nil {
		return delivery.Failure(delivery.FailureTransport, Label, code, msgTransport, Link(code), err.Error())
	}

	return Normalize(payload, code, p.config.Location)
}

// Normalize maps a raw SPX response into a TrackingResult
func Normalize(payload fields.Record, code string, loc *time.Location) delivery.TrackingResult {
	code = strings.ToUpper(strings.TrimSpace(code))
	link := Link(code)

	if rc := fields.ToText(payload["retcode"]); rc != "0" {
		return delivery.Failure(delivery.FailureUpstream, Label, code, msgRetcode, link, describe(payload))
	}

	data := fieldData.Record(payload).Or(fields.Record{})
	info := fieldInfo.Record(data).Or(fields.Record{})
	records := fields.Records(fieldRecords.List(info).Or(nil))

	events := make([]delivery.TrackingEvent, 0, len(records))
	for _, rec := range records {
		ev := delivery.TrackingEvent{
			Time:   format.EpochMinutes(fieldTime.Lookup(rec).Or(nil), loc),
			Status: strings.TrimSpace(fieldStatus.Text(rec).Or("")),
			Detail: strings.TrimSpace(fieldDetail.Text(rec).Or("")),
		}
		if !ev.IsEmpty() {
			events = append(events, ev)
		}
	}

	current := msgNoRecord
	if len(events) > 0 {
		if s := firstNonEmpty(events[0].Detail, events[0].Status); s != "" {
			current = s
		}
	}

	return delivery.TrackingResult{
		OK:            true,
		Carrier:       Label,
		Code:          code,
		CurrentStatus: current,
		Events:        events,
		Link:          link,
		LinkedCode:    fieldSlsTN.Text(info).Or(""),
	}
}

func describe(payload fields.Record) string {
	msg := fields.NewField("message", "message", "msg").Text(payload).Or("")
	return strings.TrimSpace(fmt.Sprintf("retcode=%s %s", fields.ToText(payload["retcode"]), msg))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
