package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/zhouzirui/heartnote/backend/pkg/utils"
)

// UserHeader carries the caller's user id. Authentication happens upstream.
const UserHeader = "X-User-ID"

type ctxKey struct{}

// Identity 从请求头（或 websocket 使用的 userId 查询参数）读取用户标识，缺失时返回 401。
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserHeader))
		if userID == "" {
			userID = strings.TrimSpace(r.URL.Query().Get("userId"))
		}
		if userID == "" {
			utils.RespondError(w, http.StatusUnauthorized, "missing "+UserHeader+" header")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// WithUserID stores userID in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the caller set by Identity.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
