package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/heartnote/backend/internal/handler/chat"
	"github.com/zhouzirui/heartnote/backend/internal/handler/journey"
	middlewarePkg "github.com/zhouzirui/heartnote/backend/internal/middleware"
	"github.com/zhouzirui/heartnote/backend/internal/realtime"
	chatService "github.com/zhouzirui/heartnote/backend/internal/service/chat"
	journeyService "github.com/zhouzirui/heartnote/backend/internal/service/journey"
	"github.com/zhouzirui/heartnote/backend/pkg/utils"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter wires HTTP routes to core services. hub may be nil, which disables the live feeds.
func NewRouter(db Pinger, chatSvc *chatService.Service, engine *journeyService.Engine, hub *realtime.Hub) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(middlewarePkg.Identity)

		chat.New(chatSvc).RegisterRoutes(api)
		journey.New(engine, hub).RegisterRoutes(api)
	})

	return r
}
