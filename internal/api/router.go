// Package api - HTTP интерфейс сервиса: маршруты chi, разбор запросов и
// перевод ошибок сервиса в статусы.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"

	"github.com/UkralStul/geoposts-service/internal/auth"
	"github.com/UkralStul/geoposts-service/internal/dataloader"
	"github.com/UkralStul/geoposts-service/internal/feed"
	"github.com/UkralStul/geoposts-service/internal/metrics"
	"github.com/UkralStul/geoposts-service/internal/service"
	"github.com/UkralStul/geoposts-service/internal/storage"
)

// Options - настройки HTTP слоя.
type Options struct {
	APIPrefix       string
	CORSOrigins     []string
	RateLimitReqs   int
	RateLimitWindow time.Duration
}

// Deps - зависимости обработчиков.
type Deps struct {
	Store    storage.Storage
	Posts    *service.Posts
	Comments *service.Comments
	Feed     *feed.CommentObserver
	Auth     *auth.Manager
}

// Handler обслуживает маршруты /posts.
type Handler struct {
	posts    *service.Posts
	comments *service.Comments
	feed     *feed.CommentObserver
	upgrader websocket.Upgrader
}

// NewRouter собирает все маршруты с middleware.
func NewRouter(deps Deps, opts Options) http.Handler {
	h := &Handler{
		posts:    deps.Posts,
		comments: deps.Comments,
		feed:     deps.Feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(opts.CORSOrigins),
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestContext)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware(opts.CORSOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusNotFound, ErrorBody{Error: ErrorDetail{Code: "not_found", Message: "route not found"}})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusMethodNotAllowed, ErrorBody{Error: ErrorDetail{Code: "method_not_allowed", Message: "method not allowed"}})
	})

	r.Get("/health", health)
	r.Handle("/metrics", promhttp.Handler())

	routes := func(r chi.Router) {
		r.Use(rateLimit(opts.RateLimitReqs, opts.RateLimitWindow))
		r.Use(auth.Middleware(deps.Auth, respondError))
		r.Use(dataloader.Middleware(deps.Store))

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", h.listNearbyPosts)
			r.Post("/", h.createPost)

			r.Route("/{postId}", func(r chi.Router) {
				r.Get("/", h.getPostDetail)
				r.Delete("/", h.deletePost)
				r.Patch("/", h.updatePost)

				r.Put("/likes/{userId}", h.likePost)
				r.Delete("/likes/{userId}", h.unlikePost)

				r.Post("/comments", h.addComment)
				r.Get("/comments/stream", h.streamComments)
				r.Put("/comments/{commentId}", h.updateComment)
				r.Delete("/comments/{commentId}", h.deleteComment)
				r.Put("/comments/{commentId}/likes/{userId}", h.likeComment)
				r.Delete("/comments/{commentId}/likes/{userId}", h.unlikeComment)
			})
		})
	}
	if opts.APIPrefix == "" || opts.APIPrefix == "/" {
		r.Group(routes)
	} else {
		r.Route(opts.APIPrefix, routes)
	}

	return r
}

// checkOrigin разрешает апгрейд с тех же origin, что и CORS. "*" пропускает все.
func checkOrigin(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || lo.Contains(origins, "*") {
			return true
		}
		return lo.Contains(origins, origin)
	}
}

func health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
