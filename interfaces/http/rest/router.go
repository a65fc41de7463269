package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"clipstream-backend/interfaces/http/rest/handlers"
	"clipstream-backend/interfaces/http/rest/middleware"
	"clipstream-backend/interfaces/websocket"
	"clipstream-backend/pkg/auth"
	"clipstream-backend/pkg/common"
	"clipstream-backend/pkg/observability"
)

// RouterConfig carries everything the router needs
type RouterConfig struct {
	Social       *handlers.SocialHandler
	Engagement   *handlers.EngagementHandler
	Chat         *handlers.ChatHandler
	JWTValidator *auth.JWTValidator
	WSServer     *websocket.Server     // nil in the Lambda deployment
	Tracer       *observability.Tracer // nil when tracing is disabled
	EnableCORS   bool
	Logger       *zap.Logger
}

// NewRouter assembles the HTTP routing tree
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	if cfg.Tracer != nil {
		r.Use(middleware.Trace(cfg.Tracer))
	}
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(chimiddleware.Recoverer)

	if cfg.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	if cfg.WSServer != nil {
		r.Get("/ws", cfg.WSServer.HandleWebSocket)
	}

	r.Route("/api", func(api chi.Router) {
		// Public reads
		api.Get("/videos", cfg.Engagement.ListVideos)
		api.Get("/videos/{videoID}", cfg.Engagement.GetVideo)
		api.Get("/users/{userID}", cfg.Social.GetProfile)
		api.Get("/users/{userID}/videos", cfg.Engagement.ListUserVideos)
		api.Get("/users/{userID}/followers", cfg.Social.GetFollowers)
		api.Get("/users/{userID}/following", cfg.Social.GetFollowing)
		api.Get("/users/{userID}/friends", cfg.Social.GetFriends)
		api.Post("/videos/{videoID}/view", cfg.Engagement.RecordView)

		// Authenticated mutations
		api.Group(func(private chi.Router) {
			private.Use(middleware.Authenticate(cfg.JWTValidator, cfg.Logger))

			private.Put("/users/me", cfg.Social.UpdateProfile)
			private.Get("/users/me/friend-requests", cfg.Social.GetPendingRequests)

			private.Post("/users/{userID}/follow", cfg.Social.Follow)
			private.Delete("/users/{userID}/follow", cfg.Social.Unfollow)
			private.Post("/users/{userID}/friend-request", cfg.Social.SendFriendRequest)
			private.Post("/users/{userID}/friend-request/accept", cfg.Social.AcceptFriendRequest)
			private.Post("/users/{userID}/friend-request/reject", cfg.Social.RejectFriendRequest)
			private.Post("/users/{userID}/notify", cfg.Chat.Notify)

			private.Post("/videos/{videoID}/like", cfg.Engagement.Like)
			private.Delete("/videos/{videoID}/like", cfg.Engagement.Unlike)
			private.Post("/videos/{videoID}/save", cfg.Engagement.Save)
			private.Delete("/videos/{videoID}/save", cfg.Engagement.Unsave)
			private.Post("/videos/{videoID}/share", cfg.Engagement.Share)
			private.Post("/videos/{videoID}/comments", cfg.Engagement.AddComment)
			private.Put("/videos/{videoID}/comments/{commentID}", cfg.Engagement.UpdateComment)
			private.Delete("/videos/{videoID}/comments/{commentID}", cfg.Engagement.DeleteComment)

			private.Post("/chat/{userID}/messages", cfg.Chat.SendMessage)
			private.Get("/chat/{userID}/messages", cfg.Chat.GetHistory)
		})
	})

	return r
}
