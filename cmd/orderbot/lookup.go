package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xelth-com/orderbot/internal/conversation"
	"github.com/xelth-com/orderbot/internal/orders"
	"github.com/xelth-com/orderbot/internal/render"
	"github.com/xelth-com/orderbot/internal/utils"
)

var (
	cookieFile string
	tokenTTL   time.Duration
)

var trackCmd = &cobra.Command{
	Use:   "track <code>",
	Short: "Look up one SPX or GHN tracking code and print the result",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lookups, registry, err := newLookups(cfg)
		if err != nil {
			return err
		}
		p, code, ok := registry.ForCode(strings.Join(args, ""))
		if !ok {
			return fmt.Errorf("unrecognised tracking code %q", strings.Join(args, " "))
		}
		return printOutcome(cmd.OutOrStdout(), lookups.Track(cmd.Context(), p.Code(), code))
	},
}

var ordersCmd = &cobra.Command{
	Use:   "orders [cookie...]",
	Short: "Look up the orders of one or more SPC_ST cookies and print them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cookies, err := readCookies(args, cookieFile)
		if err != nil {
			return err
		}
		lookups, _, err := newLookups(cfg)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Upstream.HTTPTimeout+5*time.Second)
		defer cancel()
		return printOutcome(cmd.OutOrStdout(), lookups.LookupOrders(ctx, cookies))
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Issue a web chat token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.WebChatSecret == "" {
			return fmt.Errorf("WEBCHAT_SECRET is not set")
		}
		token, err := utils.GenerateWebChatToken(args[0], cfg.WebChatSecret, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	ordersCmd.Flags().StringVarP(&cookieFile, "file", "f", "", "Read cookies from a file, one per line")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", utils.WebChatTokenTTL, "Token lifetime")
}

// readCookies applies the same pre-flight checks as the chat
func readCookies(args []string, path string) ([]string, error) {
	cookies := append([]string(nil), args...)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read cookie file: %w", err)
		}
		cookies = append(cookies, conversation.SplitLines(string(data))...)
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("no cookies given")
	}
	if len(cookies) > cfg.Policy.MaxCookies {
		return nil, fmt.Errorf("at most %d cookies per lookup, got %d", cfg.Policy.MaxCookies, len(cookies))
	}
	for i, c := range cookies {
		if !orders.IsProbablyCookie(c) {
			return nil, fmt.Errorf("cookie %d is not a valid SPC_ST cookie", i+1)
		}
	}
	return cookies, nil
}

func printOutcome(w io.Writer, out conversation.Outcome) error {
	for i, msg := range out.Messages {
		if i > 0 {
			fmt.Fprintln(w, render.Separator)
		}
		fmt.Fprintln(w, msg)
	}
	switch out.Kind() {
	case conversation.TransportFailure, conversation.UpstreamLogicFailure:
		return out.Err
	}
	return nil
}
