package main

import (
	"fmt"

	"github.com/xelth-com/orderbot/internal/config"
	"github.com/xelth-com/orderbot/internal/conversation"
	"github.com/xelth-com/orderbot/internal/delivery"
	"github.com/xelth-com/orderbot/internal/delivery/ghn"
	"github.com/xelth-com/orderbot/internal/delivery/spx"
	"github.com/xelth-com/orderbot/internal/format"
	"github.com/xelth-com/orderbot/internal/orders"
	"github.com/xelth-com/orderbot/internal/render"
)

func renderOptions(cfg *config.Config) (render.Options, error) {
	esc, err := format.NewEscaper(cfg.RenderMode)
	if err != nil {
		return render.Options{}, err
	}
	return render.Options{
		Escaper:             esc,
		Budget:              cfg.Policy.MessageBudget,
		MaxOrdersPerAccount: cfg.Policy.MaxOrdersPerAccount,
		MaxProductsPerOrder: cfg.Policy.MaxProductsPerOrder,
		MaxEvents:           cfg.Policy.MaxTrackingEvents,
		Location:            cfg.Location(),
		ShowOrderTime:       cfg.Policy.ShowOrderTime,
		ShowTotal:           cfg.Policy.ShowTotal,
	}, nil
}

func newRegistry(cfg *config.Config) (*delivery.Registry, error) {
	reg := delivery.NewRegistry()
	providers := []delivery.ProviderInterface{
		spx.NewProvider(spx.Config{
			URL:      cfg.Upstream.SPXURL,
			Language: cfg.Upstream.SPXLanguage,
			Timeout:  cfg.Upstream.TrackingTimeout,
			Location: cfg.Location(),
		}),
		ghn.NewProvider(ghn.Config{
			URL:      cfg.Upstream.GHNURL,
			Timeout:  cfg.Upstream.TrackingTimeout,
			Location: cfg.Location(),
		}),
	}
	for _, p := range providers {
		if err := reg.Register(p); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", p.Name(), err)
		}
	}
	return reg, nil
}

func newLookups(cfg *config.Config) (conversation.Lookups, *delivery.Registry, error) {
	opts, err := renderOptions(cfg)
	if err != nil {
		return conversation.Lookups{}, nil, err
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		return conversation.Lookups{}, nil, err
	}
	return conversation.Lookups{
		Providers: reg,
		Orders: orders.NewClient(orders.Config{
			URL:     cfg.Upstream.OrderURL,
			Timeout: cfg.Upstream.HTTPTimeout,
		}),
		Options: opts,
	}, reg, nil
}
