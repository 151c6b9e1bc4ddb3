package utils

import (
	"encoding/json"
	"net/http"

	"github.com/zhouzirui/heartnote/backend/internal/logger"
)

// ErrorResponse 是所有错误响应的统一格式。
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("failed to encode response", "error", err)
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{Success: false, Message: message})
}
