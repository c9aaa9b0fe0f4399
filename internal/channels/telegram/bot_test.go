package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xelth-com/orderbot/internal/conversation"
	"github.com/xelth-com/orderbot/internal/format"
	"github.com/xelth-com/orderbot/internal/render"
)

type fakeAPI struct {
	mu        sync.Mutex
	sent      []tgbotapi.Chattable
	requests  []tgbotapi.Chattable
	updates   chan tgbotapi.Update
	stopCalls int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 8)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopCalls++
	f.mu.Unlock()
}

func (f *fakeAPI) sentMessages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		out = append(out, c.(tgbotapi.MessageConfig))
	}
	return out
}

type replyHandler struct {
	mu       sync.Mutex
	sessions []string
	inputs   []conversation.Input
}

func (h *replyHandler) Handle(ctx context.Context, session string, in conversation.Input, r conversation.Replier) error {
	h.mu.Lock()
	h.sessions = append(h.sessions, session)
	h.inputs = append(h.inputs, in)
	h.mu.Unlock()
	return r.Send(ctx, conversation.Message{Text: "ok", Keyboard: conversation.KeyboardContinue})
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: chatID}}
	if len(text) > 0 && text[0] == '/' {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	}
	return tgbotapi.Update{Message: msg}
}

func callbackUpdate(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    data,
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func TestDecode(t *testing.T) {
	chatID, in, ok := Decode(textUpdate(7, "/start"))
	require.True(t, ok)
	assert.Equal(t, int64(7), chatID)
	assert.Equal(t, conversation.InputStart, in.Kind)

	_, in, ok = Decode(textUpdate(7, render.CheckButton))
	require.True(t, ok)
	assert.Equal(t, conversation.InputCheck, in.Kind)

	_, in, ok = Decode(textUpdate(7, "SPC_ST=abc"))
	require.True(t, ok)
	assert.Equal(t, conversation.Input{Kind: conversation.InputText, Text: "SPC_ST=abc"}, in)

	_, in, ok = Decode(callbackUpdate(9, render.CallbackContinue))
	require.True(t, ok)
	assert.Equal(t, conversation.InputContinue, in.Kind)

	_, _, ok = Decode(callbackUpdate(9, "other"))
	assert.False(t, ok)
	_, _, ok = Decode(textUpdate(7, "/help"))
	assert.False(t, ok)
	_, _, ok = Decode(tgbotapi.Update{})
	assert.False(t, ok)
}

func TestBuildMessage(t *testing.T) {
	plain := BuildMessage(1, conversation.Message{Text: "a<b", Keyboard: conversation.KeyboardMain}, format.ModePlain)
	assert.Empty(t, plain.ParseMode)
	assert.True(t, plain.DisableWebPagePreview)
	kb, ok := plain.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, render.CheckButton, kb.Keyboard[0][0].Text)

	html := BuildMessage(1, conversation.Message{Text: "x", Keyboard: conversation.KeyboardContinue}, format.ModeHTML)
	assert.Equal(t, tgbotapi.ModeHTML, html.ParseMode)
	inline, ok := html.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.NotNil(t, inline.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, render.CallbackContinue, *inline.InlineKeyboard[0][0].CallbackData)

	none := BuildMessage(1, conversation.Message{Text: "x"}, format.ModePlain)
	assert.Nil(t, none.ReplyMarkup)
}

func TestRunRoutesUpdates(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := newFakeAPI()
	h := &replyHandler{}
	bot := NewBot(api, h, Config{SendRate: 1000, SendBurst: 10}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	start := textUpdate(42, "/start")
	start.UpdateID = 1
	cont := callbackUpdate(42, render.CallbackContinue)
	cont.UpdateID = 2
	api.updates <- start
	api.updates <- cont
	api.updates <- cont // redelivered

	require.Eventually(t, func() bool { return len(api.sentMessages()) == 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Len(t, api.sentMessages(), 2, "duplicate update ignored")
	h.mu.Lock()
	assert.Equal(t, []string{"tg:42", "tg:42"}, h.sessions)
	h.mu.Unlock()

	api.mu.Lock()
	assert.Len(t, api.requests, 1, "callback answered")
	assert.Equal(t, 1, api.stopCalls)
	api.mu.Unlock()

	for _, m := range api.sentMessages() {
		assert.Equal(t, int64(42), m.ChatID)
	}
}
