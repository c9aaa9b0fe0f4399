package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelth-com/orderbot/internal/conversation"
	"github.com/xelth-com/orderbot/internal/delivery"
	"github.com/xelth-com/orderbot/internal/delivery/ghn"
	"github.com/xelth-com/orderbot/internal/delivery/spx"
	"github.com/xelth-com/orderbot/internal/utils"
	"github.com/xelth-com/orderbot/internal/websocket"
)

type nopChat struct{}

func (nopChat) Handle(context.Context, string, conversation.Input, conversation.Replier) error {
	return nil
}

func carriers(t *testing.T) *delivery.Registry {
	t.Helper()
	reg := delivery.NewRegistry()
	require.NoError(t, reg.Register(spx.NewProvider(spx.Config{})))
	require.NoError(t, reg.Register(ghn.NewProvider(ghn.Config{})))
	return reg
}

func serve(r http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestKeepAliveRoutes(t *testing.T) {
	r := NewRouter(RouterConfig{})

	rec := serve(r, "GET", "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "orderbot is running", rec.Body.String())

	rec = serve(r, "GET", "/ping")
	assert.Equal(t, "pong", rec.Body.String())

	rec = serve(r, "GET", "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "startTime")
}

func TestTrackingQR(t *testing.T) {
	r := NewRouter(RouterConfig{Carriers: carriers(t)})

	rec := serve(r, "GET", "/track/spxvn0123456789/qr")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = serve(r, "GET", "/track/ABC123/qr")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebChatRouteRequiresToken(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := websocket.NewHub(nil)
	go hub.Run(ctx)

	r := NewRouter(RouterConfig{Hub: hub, Chat: nopChat{}, WebChatSecret: "s"})
	rec := serve(r, "GET", "/ws")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A valid token passes auth; a plain request then fails the upgrade
	token, err := utils.GenerateWebChatToken("alice", "s", time.Hour)
	require.NoError(t, err)
	rec = serve(r, "GET", "/ws?token="+token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebChatDisabledWithoutSecret(t *testing.T) {
	r := NewRouter(RouterConfig{Hub: websocket.NewHub(nil), Chat: nopChat{}})
	rec := serve(r, "GET", "/ws")
	assert.True(t, rec.Code == http.StatusNotFound || rec.Code == http.StatusMethodNotAllowed, strings.TrimSpace(rec.Body.String()))
}
