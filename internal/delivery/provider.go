package delivery

import (
	"context"
	"strings"
)

// Carrier labels as shown to the user
const (
	CarrierSPX = "Shopee Express"
	CarrierGHN = "Giao Hàng Nhanh"
)

// TrackingEvent is one step of a shipment's history
type TrackingEvent struct {
	Time   string `json:"time"`   // Already formatted for display
	Status string `json:"status"` // Status or milestone name
	Detail string `json:"detail"` // Description or location
}

// IsEmpty reports whether the event carries nothing worth showing
func (e TrackingEvent) IsEmpty() bool {
	return e.Time == "" && e.Status == "" && e.Detail == ""
}

// TrackingResult is the canonical result of a tracking lookup.
// OK=false is a normal outcome: CurrentStatus holds the failure message and
// Error the diagnostic detail.
type TrackingResult struct {
	OK            bool            `json:"ok"`
	Carrier       string          `json:"carrier"`
	Code          string          `json:"code"`
	CurrentStatus string          `json:"currentStatus"`
	Events        []TrackingEvent `json:"events"` // Newest first, as returned upstream
	Link          string          `json:"link"`

	FromAddress string `json:"fromAddress,omitempty"`
	ToAddress   string `json:"toAddress,omitempty"`
	ToName      string `json:"toName,omitempty"`
	LinkedCode  string `json:"linkedCode,omitempty"` // Provider-internal tracking number

	Error  string        `json:"error,omitempty"`
	Reason FailureReason `json:"reason,omitempty"`
}

// FailureReason tells why a lookup produced OK=false
type FailureReason string

const (
	// FailureTransport covers network errors, timeouts, non-2xx and unreadable bodies
	FailureTransport FailureReason = "transport"
	// FailureUpstream is an error code inside an otherwise successful response
	FailureUpstream FailureReason = "upstream"
)

// Failure builds the uniform failure result shared by all providers
func Failure(reason FailureReason, carrier, code, message, link string, err string) TrackingResult {
	return TrackingResult{
		OK:            false,
		Reason:        reason,
		Carrier:       carrier,
		Code:          code,
		CurrentStatus: message,
		Events:        []TrackingEvent{},
		Link:          link,
		Error:         err,
	}
}

// ProviderInterface defines the contract for all tracking providers
type ProviderInterface interface {
	// Code returns the unique code for this provider (e.g., "spx", "ghn")
	Code() string

	// Name returns the human-readable name of the provider
	Name() string

	// Matches reports whether a normalized tracking code belongs to this carrier
	Matches(code string) bool

	// Link returns the public tracking page for a code
	Link(code string) string

	// Track looks up a shipment. Upstream failures are reported in the result,
	// never as a panic or error.
	Track(ctx context.Context, code string) TrackingResult
}

// NormalizeCode uppercases a tracking code and removes spaces and tabs.
// Line breaks are kept so that several pasted codes never merge into one.
func NormalizeCode(code string) string {
	code = strings.TrimSpace(code)
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, code))
}

// prefixes are ordered longest first; the first match wins
var prefixes = []struct {
	prefix  string
	carrier string
}{
	{"SPXVN", CarrierSPX},
	{"SPX", CarrierSPX},
	{"GY", CarrierGHN},
}

// DetectCarrier infers the carrier label from a tracking code prefix.
// It returns "" when the prefix is unknown so callers can fall back to an
// API-supplied carrier name.
func DetectCarrier(trackingID string) string {
	t := strings.ToUpper(strings.TrimSpace(trackingID))
	if t == "" {
		return ""
	}
	for _, p := range prefixes {
		if strings.HasPrefix(t, p.prefix) {
			return p.carrier
		}
	}
	return ""
}
