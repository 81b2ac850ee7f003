package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"clipshare/internal/handler"
	"clipshare/internal/httputil"
	"clipshare/internal/logging"
	authmw "clipshare/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler     *handler.AuthHandler
	UserHandler     *handler.UserHandler
	FollowHandler   *handler.FollowHandler
	FeedHandler     *handler.FeedHandler
	PostHandler     *handler.PostHandler
	CommentHandler  *handler.CommentHandler
	ReactionHandler *handler.ReactionHandler
	MediaHandler    *handler.MediaHandler

	JWTSecret          string
	CORSAllowedOrigins []string
	Logger             *zap.Logger
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(authmw.RequestLogger(logging.OrNop(cfg.Logger)))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	optional := authmw.OptionalAuthMiddleware(cfg.JWTSecret)

	// Public routes
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/refresh", cfg.AuthHandler.Refresh)
	})

	r.Group(func(r chi.Router) {
		r.Use(optional)

		// Static segments are registered before {id} so they never parse as an id.
		r.Get("/users/search", cfg.UserHandler.Search)
		r.Get("/users/{id}", cfg.UserHandler.GetProfile)
		r.Get("/users/{id}/followers", cfg.FollowHandler.GetFollowers)
		r.Get("/users/{id}/following", cfg.FollowHandler.GetFollowing)
		r.Get("/users/{id}/posts", cfg.PostHandler.GetUserPosts)

		r.Get("/posts", cfg.PostHandler.List)
		r.Get("/posts/shorts", cfg.PostHandler.Shorts)
		r.Get("/posts/search", cfg.PostHandler.Search)
		r.Get("/posts/{id}", cfg.PostHandler.GetByID)
		r.Get("/posts/{id}/comments", cfg.CommentHandler.List)

		r.Get("/comments/{id}/replies", cfg.CommentHandler.Replies)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		r.Get("/me", cfg.UserHandler.Me)
		r.Patch("/me", cfg.UserHandler.UpdateMe)

		r.Post("/auth/logout", cfg.AuthHandler.Logout)
		r.Post("/auth/logout-all", cfg.AuthHandler.LogoutAll)

		r.Post("/users/{id}/follow", cfg.FollowHandler.Follow)
		r.Delete("/users/{id}/follow", cfg.FollowHandler.Unfollow)
		r.Get("/users/{id}/follow-status", cfg.FollowHandler.Status)

		r.Get("/feed", cfg.FeedHandler.GetFeed)

		r.Post("/posts", cfg.PostHandler.Create)
		r.Delete("/posts/{id}", cfg.PostHandler.Delete)
		r.Post("/posts/{id}/like", cfg.ReactionHandler.LikePost)
		r.Post("/posts/{id}/dislike", cfg.ReactionHandler.DislikePost)
		r.Post("/posts/{id}/comments", cfg.CommentHandler.Create)

		r.Patch("/comments/{id}", cfg.CommentHandler.Update)
		r.Delete("/comments/{id}", cfg.CommentHandler.Delete)
		r.Post("/comments/{id}/like", cfg.ReactionHandler.LikeComment)
		r.Post("/comments/{id}/dislike", cfg.ReactionHandler.DislikeComment)

		r.Post("/media/posts/presign", cfg.MediaHandler.PresignPostUpload)
		r.Post("/media/posts/presign/batch", cfg.MediaHandler.PresignPostUploadBatch)
	})

	return r
}
