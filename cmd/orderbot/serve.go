package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xelth-com/orderbot/internal/channels/telegram"
	"github.com/xelth-com/orderbot/internal/conversation"
	"github.com/xelth-com/orderbot/internal/handlers"
	"github.com/xelth-com/orderbot/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

var noTelegram bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot, the web chat and the keep-alive HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&noTelegram, "no-telegram", false, "Do not poll Telegram (HTTP and web chat only)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lookups, registry, err := newLookups(cfg)
	if err != nil {
		return err
	}

	// Session state: Redis when configured, memory otherwise
	var store conversation.SessionStore = conversation.NewMemoryStore()
	if cfg.RedisURL != "" {
		redisStore, err := conversation.OpenRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		store = redisStore
		logger.Info("Session state stored in Redis")
	}

	dispatcher := conversation.NewDispatcher(lookups, cfg.Workers, logger.Named("dispatcher"))
	defer dispatcher.Close()

	service := conversation.NewService(
		conversation.Machine{Carriers: registry, MaxCookies: cfg.Policy.MaxCookies},
		store,
		dispatcher,
		logger.Named("conversation"),
	)

	g, ctx := errgroup.WithContext(ctx)

	var hub *websocket.Hub
	if cfg.WebChatSecret != "" {
		hub = websocket.NewHub(logger.Named("webchat"))
		g.Go(func() error {
			hub.Run(ctx)
			return nil
		})
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Carriers:      registry,
		Hub:           hub,
		Chat:          service,
		WebChatSecret: cfg.WebChatSecret,
		Logger:        logger.Named("http"),
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("HTTP server starting", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if !noTelegram {
		api, err := telegram.Connect(cfg.TelegramToken)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		logger.Info("Telegram authorized", zap.String("bot", api.Self.UserName))
		bot := telegram.NewBot(api, service, telegram.Config{
			Mode:      lookups.Options.Escaper.Mode(),
			SendRate:  cfg.Send.Rate,
			SendBurst: cfg.Send.Burst,
		}, logger.Named("telegram"))
		g.Go(func() error {
			return bot.Run(ctx)
		})
	}

	err = g.Wait()
	logger.Info("Shutting down", zap.Error(err))
	return err
}
