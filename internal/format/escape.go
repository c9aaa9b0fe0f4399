package format

import (
	"fmt"
	"html"
	"strings"
	"unicode"
)

// Mode names a chat rendering mode
type Mode string

const (
	ModePlain Mode = "plain"
	ModeHTML  Mode = "html"
)

// Escaper makes untrusted text safe for one rendering mode.
// All upstream-originated values pass through the same Escaper before they are
// interpolated into a message.
type Escaper interface {
	Mode() Mode
	// Escape makes s safe to interpolate as ordinary text
	Escape(s string) string
	// Code renders s as a tap-to-copy code span
	Code(s string) string
}

// NewEscaper returns the escaper for a mode name
func NewEscaper(mode string) (Escaper, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(mode))) {
	case ModePlain, "":
		return Plain{}, nil
	case ModeHTML:
		return HTML{}, nil
	default:
		return nil, fmt.Errorf("unknown render mode %q", mode)
	}
}

// Plain is used when messages are sent without a parse mode.
// Line structure belongs to the renderer, so embedded line breaks and control
// characters in values are neutralised.
type Plain struct{}

func (Plain) Mode() Mode { return ModePlain }

func (Plain) Escape(s string) string {
	return singleLine(s)
}

func (Plain) Code(s string) string {
	return "`" + strings.ReplaceAll(singleLine(s), "`", "'") + "`"
}

// HTML targets the Telegram HTML parse mode
type HTML struct{}

func (HTML) Mode() Mode { return ModeHTML }

func (HTML) Escape(s string) string {
	return html.EscapeString(singleLine(s))
}

func (h HTML) Code(s string) string {
	return "<code>" + h.Escape(s) + "</code>"
}

func singleLine(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(' ')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
