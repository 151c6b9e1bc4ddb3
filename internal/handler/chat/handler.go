package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/heartnote/backend/internal/logger"
	"github.com/zhouzirui/heartnote/backend/internal/middleware"
	chatService "github.com/zhouzirui/heartnote/backend/internal/service/chat"
	"github.com/zhouzirui/heartnote/backend/internal/store"
	"github.com/zhouzirui/heartnote/backend/pkg/utils"
)

// Handler 日记会话的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建会话处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册会话与消息相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chats", h.handleCreateChat)
	r.Get("/chats", h.handleListChats)
	r.Get("/chats/{chatID}/messages", h.handleListMessages)
	r.Post("/chats/{chatID}/messages", h.handleSendMessage)
	r.Post("/messages/{messageID}/favorite", h.handleFavorite)
	r.Delete("/messages/{messageID}/favorite", h.handleUnfavorite)
}

// handleCreateChat 创建会话，名称可选
func (h *Handler) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	c, err := h.chatSvc.CreateChat(r.Context(), middleware.UserID(r.Context()), payload.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chatSvc.ListChats(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, chats)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chatSvc.LoadTranscript(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "chatID"))
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, msgs)
}

// handleSendMessage 保存用户消息；情绪标注、自动收藏与陪伴回复在服务层完成
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.chatSvc.SendMessage(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "chatID"), payload.Content)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, result)
}

type favoriteResponse struct {
	MessageID string `json:"messageId"`
	Favorited bool   `json:"favorited"`
	Changed   bool   `json:"changed"`
}

func (h *Handler) handleFavorite(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageID")
	created, err := h.chatSvc.Favorite(r.Context(), middleware.UserID(r.Context()), messageID)
	if err != nil {
		respondError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	utils.RespondJSON(w, status, favoriteResponse{MessageID: messageID, Favorited: true, Changed: created})
}

func (h *Handler) handleUnfavorite(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageID")
	removed, err := h.chatSvc.Unfavorite(r.Context(), middleware.UserID(r.Context()), messageID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, favoriteResponse{MessageID: messageID, Favorited: false, Changed: removed})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, chatService.ErrContentRequired),
		errors.Is(err, chatService.ErrContentTooLong),
		errors.Is(err, chatService.ErrNameTooLong),
		errors.Is(err, chatService.ErrAIMessageFavorite):
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
		logger.Warn("chat store unavailable", "error", err)
		message = "chat data is temporarily unavailable"
	case http.StatusInternalServerError:
		logger.Error("chat request failed", "error", err)
		message = "internal error"
	}
	utils.RespondError(w, status, message)
}
