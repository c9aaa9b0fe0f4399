package conversation

import (
	"strings"

	"github.com/xelth-com/orderbot/internal/delivery"
	"github.com/xelth-com/orderbot/internal/orders"
	"github.com/xelth-com/orderbot/internal/render"
)

// State is the per-session conversation state
type State int

const (
	Idle State = iota
	AwaitingInput
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting_input"
	default:
		return "idle"
	}
}

// ParseState is the inverse of String. Unknown values map to Idle.
func ParseState(s string) State {
	if s == AwaitingInput.String() {
		return AwaitingInput
	}
	return Idle
}

// InputKind tells which chat control produced an Input
type InputKind int

const (
	InputText InputKind = iota
	InputStart
	InputCheck
	InputContinue
)

// Input is one inbound update after the chat surface has decoded it
type Input struct {
	Kind InputKind
	Text string
}

// Text wraps free text. The check button arrives as plain text on some
// surfaces and is recognised here.
func Text(s string) Input {
	if strings.TrimSpace(s) == render.CheckButton {
		return Input{Kind: InputCheck}
	}
	return Input{Kind: InputText, Text: s}
}

// Keyboard selects the control attached to a reply
type Keyboard int

const (
	KeyboardNone Keyboard = iota
	KeyboardMain          // persistent "check" button
	KeyboardContinue      // inline "continue" button
)

// EffectKind enumerates what a transition asks the caller to do
type EffectKind int

const (
	EffectReply EffectKind = iota
	EffectTrack
	EffectOrders
)

// Effect is a side effect requested by Transition. Only the fields relevant to
// Kind are set.
type Effect struct {
	Kind     EffectKind
	Text     string
	Keyboard Keyboard

	Code     string // EffectTrack: normalized tracking code
	Provider string // EffectTrack: provider code in the registry

	Cookies []string // EffectOrders
}

// Reply builds a reply effect
func Reply(text string, kb Keyboard) Effect {
	return Effect{Kind: EffectReply, Text: text, Keyboard: kb}
}

// CarrierMatcher recognises tracking codes. *delivery.Registry satisfies it.
type CarrierMatcher interface {
	ForCode(code string) (delivery.ProviderInterface, string, bool)
}

// Machine holds the fixed inputs of the transition function
type Machine struct {
	Carriers   CarrierMatcher
	MaxCookies int
}

// Transition computes the next state and the effects of one input. It does no
// I/O; lookups are requested through EffectTrack and EffectOrders.
func (m Machine) Transition(state State, in Input) (State, []Effect) {
	switch in.Kind {
	case InputStart:
		return Idle, []Effect{Reply(render.Welcome, KeyboardMain)}
	case InputCheck:
		return AwaitingInput, []Effect{Reply(render.Prompt, KeyboardNone)}
	case InputContinue:
		return AwaitingInput, []Effect{
			Reply(render.ContinueAck, KeyboardNone),
			Reply(render.Prompt, KeyboardNone),
		}
	}

	if state != AwaitingInput {
		return Idle, []Effect{Reply(render.Welcome, KeyboardMain)}
	}
	return m.classify(in.Text)
}

func (m Machine) classify(text string) (State, []Effect) {
	text = strings.TrimSpace(text)
	if text == "" {
		return AwaitingInput, []Effect{Reply(render.NothingSent, KeyboardNone)}
	}

	lines := SplitLines(text)

	// A tracking code is always a single line
	if m.Carriers != nil && len(lines) == 1 {
		if p, code, ok := m.Carriers.ForCode(text); ok {
			return Idle, []Effect{
				Reply(render.CheckingTracking, KeyboardNone),
				{Kind: EffectTrack, Code: code, Provider: p.Code()},
			}
		}
	}

	limit := m.MaxCookies
	if limit <= 0 {
		limit = orders.MaxCookies
	}
	if len(lines) > limit {
		return AwaitingInput, []Effect{Reply(render.TooManyCookies(limit), KeyboardNone)}
	}

	var bad []int
	for i, line := range lines {
		if !orders.IsProbablyCookie(line) {
			bad = append(bad, i+1)
		}
	}
	if len(bad) > 0 {
		return AwaitingInput, []Effect{Reply(render.InvalidCookies(bad), KeyboardContinue)}
	}

	return Idle, []Effect{
		Reply(render.CheckingOrders, KeyboardNone),
		{Kind: EffectOrders, Cookies: lines},
	}
}

// SplitLines returns the trimmed non-empty lines of s
func SplitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
