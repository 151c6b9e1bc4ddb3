package journey

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/heartnote/backend/internal/logger"
	"github.com/zhouzirui/heartnote/backend/internal/middleware"
	"github.com/zhouzirui/heartnote/backend/internal/realtime"
	journeyService "github.com/zhouzirui/heartnote/backend/internal/service/journey"
	"github.com/zhouzirui/heartnote/backend/internal/store"
	"github.com/zhouzirui/heartnote/backend/pkg/utils"
)

var errInvalidLimit = errors.New("invalid limit")

// Handler 旅程统计与分类列表的 HTTP 处理器
type Handler struct {
	engine    *journeyService.Engine
	hub       *realtime.Hub
	upgrader  websocket.Upgrader
	heartbeat time.Duration
}

// New 创建旅程处理器。hub 为 nil 时不注册实时推送路由。
func New(engine *journeyService.Engine, hub *realtime.Hub) *Handler {
	return &Handler{
		engine: engine,
		hub:    hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		heartbeat: 25 * time.Second,
	}
}

// RegisterRoutes 注册旅程相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/journey", h.handleOverview)
	r.Get("/journey/messages", h.handleListCategory)
	// Chat screens page through the same listing under their own prefix.
	r.Get("/chat/journey/messages", h.handleListCategory)

	if h.hub != nil {
		r.Get("/journey/live", h.handleLive)
		r.Get("/journey/events", h.handleEvents)
	}
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		limits journeyService.PreviewLimits
		err    error
	)
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"favoriteLimit", &limits.Favorites},
		{"chatLimit", &limits.Chats},
		{"messageLimit", &limits.Messages},
		{"vaultLimit", &limits.Vault},
	} {
		if *p.dst, err = parseLimit(q.Get(p.name), p.name); err != nil {
			respondError(w, err)
			return
		}
	}

	overview, err := h.engine.Overview(r.Context(), middleware.UserID(r.Context()), limits)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, overview)
}

func (h *Handler) handleListCategory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	category, err := journeyService.ParseCategory(q.Get("category"))
	if err != nil {
		respondError(w, err)
		return
	}
	limit, err := parseLimit(q.Get("limit"), "limit")
	if err != nil {
		respondError(w, err)
		return
	}

	page, err := h.engine.ListCategory(r.Context(), middleware.UserID(r.Context()), category, q.Get("cursor"), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, page)
}

type liveMessage struct {
	Type string                    `json:"type"`
	Data journeyService.Statistics `json:"data"`
}

// handleLive 通过 websocket 推送统计快照：连接时推送一次，之后收藏变化时重新计算推送。
func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("journey live upgrade failed", "user", userID, "error", err)
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(userID)
	defer sub.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Push-only feed; reading still drains control frames and notices the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func() error {
		stats, err := h.engine.ComputeStatistics(ctx, userID)
		if err != nil {
			return err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(liveMessage{Type: "statistics", Data: stats})
	}

	if err := send(); err != nil {
		logger.Warn("journey live initial push failed", "user", userID, "error", err)
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C:
			if !ok {
				return
			}
			if err := send(); err != nil {
				logger.Warn("journey live push failed", "user", userID, "error", err)
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// handleEvents is the Server-Sent Events variant of handleLive.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	userID := middleware.UserID(ctx)
	stats, err := h.engine.ComputeStatistics(ctx, userID)
	if err != nil {
		respondError(w, err)
		return
	}

	sub := h.hub.Subscribe(userID)
	defer sub.Close()

	utils.SetupSSEHeaders(w)
	if err := utils.WriteSSE(w, flusher, "statistics", stats); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C:
			if !ok {
				return
			}
			stats, err := h.engine.ComputeStatistics(ctx, userID)
			if err != nil {
				logger.Warn("journey events recompute failed", "user", userID, "error", err)
				return
			}
			if err := utils.WriteSSE(w, flusher, "statistics", stats); err != nil {
				return
			}
		case t := <-ticker.C:
			if err := utils.WriteSSE(w, flusher, "heartbeat", map[string]string{"time": t.UTC().Format(time.RFC3339)}); err != nil {
				return
			}
		}
	}
}

func parseLimit(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errInvalidLimit, name)
	}
	return n, nil
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, journeyService.ErrInvalidCategory),
		errors.Is(err, journeyService.ErrInvalidCursor),
		errors.Is(err, errInvalidLimit):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrChatNotFound), errors.Is(err, store.ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		logger.Warn("journey store unavailable", "error", err)
		message = "journey data is temporarily unavailable"
	case http.StatusInternalServerError:
		logger.Error("journey request failed", "error", err)
		message = "internal error"
	}
	utils.RespondError(w, status, message)
}
