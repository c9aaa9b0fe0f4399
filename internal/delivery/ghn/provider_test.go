package ghn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xelth-com/orderbot/internal/delivery"
	"github.com/xelth-com/orderbot/internal/fields"
)

const samplePayload = `{
  "code": 200,
  "data": {
    "order_info": {
      "status_name": "Đang giao hàng",
      "from_address": "Quận 1, Hồ Chí Minh",
      "to_address": "Cầu Giấy, Hà Nội",
      "to_name": "Nguyễn Văn A"
    },
    "tracking_logs": [
      {"action_at": "2026-02-10T13:05:32.974Z", "status_name": "Đang giao hàng", "location": {"address": "Bưu cục Cầu Giấy"}},
      {"action_at": "bad", "status": "picked", "location": null},
      {}
    ]
  }
}`

func TestNormalize(t *testing.T) {
	payload, err := fields.Decode([]byte(samplePayload))
	require.NoError(t, err)

	got := Normalize(payload, "gy1234", time.UTC)

	assert.True(t, got.OK)
	assert.Equal(t, Label, got.Carrier)
	assert.Equal(t, "GY1234", got.Code)
	assert.Equal(t, "https://donhang.ghn.vn/?order_code=GY1234", got.Link)
	assert.Equal(t, "Đang giao hàng", got.CurrentStatus)
	assert.Equal(t, "Quận 1, Hồ Chí Minh", got.FromAddress)
	assert.Equal(t, "Cầu Giấy, Hà Nội", got.ToAddress)
	assert.Equal(t, "Nguyễn Văn A", got.ToName)
	assert.Equal(t, []delivery.TrackingEvent{
		{Time: "10/02/2026 13:05", Status: "Đang giao hàng", Detail: "Bưu cục Cầu Giấy"},
		{Time: "", Status: "picked", Detail: ""},
	}, got.Events)
}

func TestNormalizeStatusIndependentOfLogs(t *testing.T) {
	payload, err := fields.Decode([]byte(`{"code":200,"data":{"order_info":{},"tracking_logs":[{"status_name":"x"}]}}`))
	require.NoError(t, err)

	got := Normalize(payload, "GY1234", time.UTC)
	assert.True(t, got.OK)
	assert.Equal(t, msgUnknown, got.CurrentStatus)
}

func TestNormalizeLogicalFailure(t *testing.T) {
	payload, err := fields.Decode([]byte(`{"code": 400, "message": "order not found"}`))
	require.NoError(t, err)

	got := Normalize(payload, "GY1234", time.UTC)
	assert.False(t, got.OK)
	assert.Equal(t, msgCode, got.CurrentStatus)
	assert.Equal(t, "code=400 order not found", got.Error)
	assert.Equal(t, "https://donhang.ghn.vn/?order_code=GY1234", got.Link)
	assert.Empty(t, got.Events)
}

func TestTrackPostsOrderCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "GY1234", body["order_code"])
		w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	p := NewProvider(Config{URL: srv.URL, Location: time.UTC})
	got := p.Track(context.Background(), "gy1234")
	assert.True(t, got.OK)
	assert.Len(t, got.Events, 2)
}

func TestTrackBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>captcha</html>"))
	}))
	defer srv.Close()

	p := NewProvider(Config{URL: srv.URL})
	got := p.Track(context.Background(), "GY1234")
	assert.False(t, got.OK)
	assert.Equal(t, msgTransport, got.CurrentStatus)
	assert.NotEmpty(t, got.Error)
}

func TestMatches(t *testing.T) {
	p := NewProvider(Config{})
	assert.True(t, p.Matches("GY1234"))
	assert.True(t, p.Matches("gy ab12"))
	assert.False(t, p.Matches("GY12"))
	assert.False(t, p.Matches("SPX123456"))
}
