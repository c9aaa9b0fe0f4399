// Package telegram connects the conversation service to the Telegram Bot API
// using long polling.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xelth-com/orderbot/internal/conversation"
	"github.com/xelth-com/orderbot/internal/format"
	"github.com/xelth-com/orderbot/internal/render"
	"github.com/xelth-com/orderbot/internal/utils"
)

// SessionPrefix namespaces Telegram chats in the conversation store
const SessionPrefix = "tg:"

const pollTimeout = 60 // seconds

// API is the part of *tgbotapi.BotAPI the bot uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Handler consumes chat inputs. *conversation.Service satisfies it.
type Handler interface {
	Handle(ctx context.Context, session string, in conversation.Input, r conversation.Replier) error
}

// Config holds configuration for the Telegram bot
type Config struct {
	Mode      format.Mode // ModeHTML sends with HTML parse mode
	SendRate  float64     // messages per second across all chats (default: 25)
	SendBurst int         // default: 5
}

// Bot polls updates and routes them to a Handler
type Bot struct {
	api     API
	handler Handler
	config  Config
	limiter *rate.Limiter
	seen    *utils.Deduplicator
	logger  *zap.Logger
}

// Connect authenticates against the Bot API
func Connect(token string) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	return api, nil
}

// NewBot creates a bot around an API client
func NewBot(api API, handler Handler, config Config, logger *zap.Logger) *Bot {
	if config.SendRate <= 0 {
		config.SendRate = 25
	}
	if config.SendBurst <= 0 {
		config.SendBurst = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		api:     api,
		handler: handler,
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.SendRate), config.SendBurst),
		seen:    utils.NewDeduplicator(10 * time.Minute),
		logger:  logger,
	}
}

// Run polls until ctx is done. Updates are handled one at a time; lookups
// run on the conversation dispatcher so a slow upstream never stalls polling.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.logger.Info("Telegram polling started")
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Telegram polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	// Updates are redelivered when the previous poller exited before acking
	if b.seen.IsDuplicate(strconv.Itoa(update.UpdateID)) {
		b.logger.Debug("Skipping duplicate update", zap.Int("update_id", update.UpdateID))
		return
	}

	if update.CallbackQuery != nil {
		// Stop the client spinner whatever the data is
		if _, err := b.api.Request(tgbotapi.NewCallback(update.CallbackQuery.ID, "")); err != nil {
			b.logger.Debug("Failed to answer callback", zap.Error(err))
		}
	}

	chatID, in, ok := Decode(update)
	if !ok {
		return
	}
	session := SessionPrefix + strconv.FormatInt(chatID, 10)
	r := &chatReplier{bot: b, chatID: chatID}
	if err := b.handler.Handle(ctx, session, in, r); err != nil {
		b.logger.Warn("Failed to deliver reply", zap.String("session", session), zap.Error(err))
	}
}

// Decode maps an update to its chat and conversation input. ok is false for
// updates the bot does not react to.
func Decode(update tgbotapi.Update) (chatID int64, in conversation.Input, ok bool) {
	if cq := update.CallbackQuery; cq != nil {
		if cq.Data != render.CallbackContinue || cq.Message == nil || cq.Message.Chat == nil {
			return 0, conversation.Input{}, false
		}
		return cq.Message.Chat.ID, conversation.Input{Kind: conversation.InputContinue}, true
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return 0, conversation.Input{}, false
	}
	if msg.IsCommand() {
		if msg.Command() == "start" {
			return msg.Chat.ID, conversation.Input{Kind: conversation.InputStart}, true
		}
		return 0, conversation.Input{}, false
	}
	if msg.Text == "" {
		return 0, conversation.Input{}, false
	}
	return msg.Chat.ID, conversation.Text(msg.Text), true
}

// BuildMessage converts a conversation message into a Bot API request
func BuildMessage(chatID int64, msg conversation.Message, mode format.Mode) tgbotapi.MessageConfig {
	out := tgbotapi.NewMessage(chatID, msg.Text)
	out.DisableWebPagePreview = true
	if mode == format.ModeHTML {
		out.ParseMode = tgbotapi.ModeHTML
	}

	switch msg.Keyboard {
	case conversation.KeyboardMain:
		kb := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(render.CheckButton)))
		kb.ResizeKeyboard = true
		out.ReplyMarkup = kb
	case conversation.KeyboardContinue:
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(render.ContinueButton, render.CallbackContinue),
		))
	}
	return out
}

// chatReplier sends to one chat through the shared rate limiter
type chatReplier struct {
	bot    *Bot
	chatID int64
}

func (r *chatReplier) Send(ctx context.Context, msg conversation.Message) error {
	if err := r.bot.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := r.bot.api.Send(BuildMessage(r.chatID, msg, r.bot.config.Mode)); err != nil {
		return fmt.Errorf("telegram send to %d: %w", r.chatID, err)
	}
	return nil
}
