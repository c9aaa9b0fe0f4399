package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/xelth-com/orderbot/internal/buildinfo"
	"github.com/xelth-com/orderbot/internal/conversation"
	"github.com/xelth-com/orderbot/internal/middleware"
	"github.com/xelth-com/orderbot/internal/websocket"
)

// RouterConfig holds the collaborators the HTTP routes need
type RouterConfig struct {
	Carriers conversation.CarrierMatcher

	// Web chat is enabled when Hub, Chat and WebChatSecret are all set
	Hub           *websocket.Hub
	Chat          websocket.Handler
	WebChatSecret string

	Logger *zap.Logger
}

// Router wraps the mux router
type Router struct {
	*mux.Router
	config RouterConfig
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(config RouterConfig) *Router {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	r := &Router{
		Router: mux.NewRouter(),
		config: config,
	}

	// Keep-alive endpoints for the hosting platform
	r.HandleFunc("/", r.index).Methods("GET", "HEAD")
	r.HandleFunc("/ping", r.ping).Methods("GET", "HEAD")
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	r.HandleFunc("/track/{code}/qr", r.trackingQR).Methods("GET")

	if config.Hub != nil && config.Chat != nil && config.WebChatSecret != "" {
		ws := r.PathPrefix("/ws").Subrouter()
		ws.Use(middleware.WebChatAuth(config.WebChatSecret))
		ws.HandleFunc("", r.serveWebChat).Methods("GET")
	}

	return r
}

func (r *Router) index(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("orderbot is running"))
}

func (r *Router) ping(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("pong"))
}

// healthCheck returns the health status and build metadata
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	body := map[string]interface{}{
		"status":     "ok",
		"buildTime":  buildinfo.BuildTime,
		"commitTime": buildinfo.CommitTime,
		"commitHash": buildinfo.CommitHash,
		"startTime":  buildinfo.StartTime,
	}
	if r.config.Hub != nil {
		body["webchatClients"] = r.config.Hub.Count()
	}
	respondJSON(w, http.StatusOK, body)
}

// trackingQR renders the carrier tracking page of a code as a QR image
func (r *Router) trackingQR(w http.ResponseWriter, req *http.Request) {
	if r.config.Carriers == nil {
		respondError(w, http.StatusNotFound, "Tracking is not configured")
		return
	}
	p, code, ok := r.config.Carriers.ForCode(mux.Vars(req)["code"])
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown tracking code")
		return
	}

	png, err := qrcode.Encode(p.Link(code), qrcode.Medium, 256)
	if err != nil {
		r.config.Logger.Error("Failed to generate QR", zap.String("code", code), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to generate QR")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(png)
}

func (r *Router) serveWebChat(w http.ResponseWriter, req *http.Request) {
	subject, ok := middleware.SubjectFromContext(req.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Missing subject")
		return
	}
	websocket.ServeWs(r.config.Hub, r.config.Chat, subject, w, req)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
