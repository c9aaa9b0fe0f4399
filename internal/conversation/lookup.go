package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/xelth-com/orderbot/internal/delivery"
	"github.com/xelth-com/orderbot/internal/format"
	"github.com/xelth-com/orderbot/internal/orders"
	"github.com/xelth-com/orderbot/internal/render"
)

// ProviderSource resolves a provider by its registry code
type ProviderSource interface {
	Get(code string) (delivery.ProviderInterface, error)
}

// OrderFetcher performs the batch order lookup. *orders.Client satisfies it.
type OrderFetcher interface {
	Fetch(ctx context.Context, cookies []string) (orders.Batch, error)
}

// Outcome is the rendered result of one lookup. Messages is never empty;
// Err is a *Error when the lookup failed or came back empty.
type Outcome struct {
	Messages []string
	Err      error
}

// Kind reports the outcome classification
func (o Outcome) Kind() Kind {
	return KindOf(o.Err)
}

// Lookups runs tracking and order lookups and renders their results. It is
// shared by the chat dispatcher and the one-shot CLI commands.
type Lookups struct {
	Providers ProviderSource
	Orders    OrderFetcher
	Options   render.Options
}

// Track looks up one tracking code with the named provider
func (l Lookups) Track(ctx context.Context, provider, code string) Outcome {
	esc := l.escaper()

	p, err := l.Providers.Get(provider)
	if err != nil {
		return Outcome{
			Messages: []string{render.TrackingError(err.Error(), esc)},
			Err:      &Error{Kind: InputRejected, Err: err},
		}
	}

	res := p.Track(ctx, code)
	if !res.OK {
		return Outcome{
			Messages: []string{render.TrackingFailure(res, esc)},
			Err:      &Error{Kind: trackingKind(res), Detail: res.Error},
		}
	}

	out := Outcome{Messages: render.Tracking(res, l.Options)}
	if len(res.Events) == 0 {
		out.Err = &Error{Kind: EmptyResult, Detail: "no tracking events"}
	}
	return out
}

// LookupOrders fetches and renders a cookie batch. A batch without a single
// real order is reported as a credential failure even when the call succeeded.
func (l Lookups) LookupOrders(ctx context.Context, cookies []string) Outcome {
	esc := l.escaper()

	batch, err := l.Orders.Fetch(ctx, cookies)
	if err != nil {
		kind := TransportFailure
		if errors.Is(err, orders.ErrPayload) {
			kind = UpstreamLogicFailure
		}
		return Outcome{
			Messages: []string{render.LookupError(err.Error(), esc)},
			Err:      &Error{Kind: kind, Err: err},
		}
	}

	if n := orders.CountRealOrders(batch); n == 0 {
		return Outcome{
			Messages: []string{render.CredentialFailure},
			Err:      &Error{Kind: EmptyResult, Detail: fmt.Sprintf("%d accounts, 0 real orders", len(batch.Accounts))},
		}
	}

	return Outcome{Messages: render.Orders(batch, l.Options)}
}

func (l Lookups) escaper() format.Escaper {
	if l.Options.Escaper == nil {
		return format.Plain{}
	}
	return l.Options.Escaper
}
