package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bearsdotzone/social-media-api/internal/domain"
	"github.com/bearsdotzone/social-media-api/internal/service/account"
	"github.com/bearsdotzone/social-media-api/internal/service/message"
	"github.com/bearsdotzone/social-media-api/internal/ws"
)

const healthCheckTimeout = 2 * time.Second

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	accounts account.Service
	messages message.Service
	feed     *ws.Hub
	upgrader websocket.Upgrader
	dbHealth func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
}

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, accountSvc account.Service, messageSvc message.Service, feed *ws.Hub, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		logger:   logger,
		accounts: accountSvc,
		messages: messageSvc,
		feed:     feed,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		dbHealth: dbHealth,
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/register", r.audit("/register", r.handleRegister))
	r.mux.HandleFunc("/login", r.audit("/login", r.handleLogin))
	r.mux.HandleFunc("/messages", r.audit("/messages", r.handleMessages))
	r.mux.HandleFunc("/messages/", r.audit("/messages/{id}", r.handleMessageByID))
	r.mux.HandleFunc("/accounts/", r.audit("/accounts/{id}/messages", r.handleAccountMessages))
	r.mux.HandleFunc("/ws/messages", r.audit("/ws/messages", r.handleMessageFeed))
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var candidate domain.Account
	if err := json.NewDecoder(req.Body).Decode(&candidate); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := r.accounts.Register(req.Context(), candidate)
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var credentials domain.Account
	if err := json.NewDecoder(req.Body).Decode(&credentials); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	logged, err := r.accounts.Login(req.Context(), credentials)
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logged)
}

func (r *Router) handleMessages(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		messages, err := r.messages.ListAll(req.Context())
		if err != nil {
			r.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messages)
	case http.MethodPost:
		var candidate domain.Message
		if err := json.NewDecoder(req.Body).Decode(&candidate); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		created, err := r.messages.Create(req.Context(), candidate)
		if err != nil {
			r.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, created)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleMessageByID(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/messages/")
	if trimmed == "" || strings.Contains(trimmed, "/") {
		r.notFound(w)
		return
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	switch req.Method {
	case http.MethodGet:
		msg, err := r.messages.GetByID(req.Context(), id)
		if err != nil {
			r.writeServiceError(w, err)
			return
		}
		if msg == nil {
			writeEmpty(w)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	case http.MethodDelete:
		rows, err := r.messages.DeleteByID(req.Context(), id)
		if err != nil {
			r.writeServiceError(w, err)
			return
		}
		if rows == 0 {
			writeEmpty(w)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	case http.MethodPatch:
		var patch struct {
			MessageText string `json:"messageText"`
		}
		if err := json.NewDecoder(req.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		rows, err := r.messages.UpdateByID(req.Context(), id, patch.MessageText)
		if err != nil {
			r.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleAccountMessages(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/accounts/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[1] != "messages" || parts[0] == "" {
		r.notFound(w)
		return
	}
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	accountID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	messages, err := r.messages.ListByAccount(req.Context(), accountID)
	if err != nil {
		r.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (r *Router) handleMessageFeed(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	if r.feed == nil {
		writeError(w, http.StatusServiceUnavailable, "live feed not available")
		return
	}
	topic := ws.FirehoseTopic
	if raw := req.URL.Query().Get("account_id"); raw != "" {
		accountID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid account id")
			return
		}
		topic = ws.AccountTopic(accountID)
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.feed.Register(topic, client)
	go func() {
		defer func() {
			r.feed.Unregister(topic, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

// writeServiceError maps the error kind to a status code. Errors outside the
// taxonomy are unclassified persistence faults and surface as server errors.
func (r *Router) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrDuplicateUsername):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		r.logger.Error("unhandled service error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
