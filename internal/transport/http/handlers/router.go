package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vedran77/agora/internal/config"
	"github.com/vedran77/agora/internal/transport/http/middleware"
)

type RouterDeps struct {
	Users         *UserHandler
	Community     *CommunityHandler
	Notifications *NotificationHandler
	WebSocket     http.Handler
	Tokens        middleware.TokenParser
	Server        config.ServerConfig
	// MaxUploadBytes is the per-file upload cap; zero leaves bodies unbounded.
	MaxUploadBytes int64
}

// NewRouter wires every route and wraps the mux in the global middleware chain.
func NewRouter(d RouterDeps) http.Handler {
	auth := middleware.Auth(d.Tokens)
	streamAuth := middleware.Auth(d.Tokens, middleware.WithQueryToken())
	limit := middleware.RateLimit(d.Server.RateLimit, d.Server.RateWindow)
	protected := func(h http.HandlerFunc) http.Handler { return auth(h) }
	limited := func(h http.HandlerFunc) http.Handler { return limit(h) }
	upload := func(files int, h http.Handler) http.Handler { return limitBody(d.MaxUploadBytes, files, h) }

	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// User
	mux.Handle("POST /user/signup", upload(1, limited(d.Users.Signup)))
	mux.Handle("POST /user/login", limited(d.Users.Login))
	mux.Handle("POST /user/reissue", limited(d.Users.Reissue))
	mux.Handle("GET /user/nickname", limited(d.Users.CheckNickname))
	mux.Handle("GET /user/userId", limited(d.Users.CheckUserID))
	mux.Handle("GET /user", protected(d.Users.Detail))
	mux.Handle("PATCH /user", protected(d.Users.Delete))
	mux.Handle("GET /user/id", protected(d.Users.ID))
	mux.Handle("GET /user/profile", protected(d.Users.Profile))
	mux.Handle("PUT /user/profile", upload(1, protected(d.Users.UpdateProfile)))
	mux.Handle("PATCH /user/profile/image", protected(d.Users.SelectProfileImage))
	mux.Handle("PATCH /user/password", protected(d.Users.UpdatePassword))
	mux.Handle("GET /user/language", protected(d.Users.Language))
	mux.Handle("PATCH /user/language", protected(d.Users.UpdateLanguage))

	// Community - posts
	mux.Handle("GET /community/main", protected(d.Community.MainPage))
	mux.Handle("GET /community/posts", protected(d.Community.ListPosts))
	mux.Handle("GET /community/posts/search", protected(d.Community.SearchPosts))
	mux.Handle("POST /community/posts", protected(d.Community.CreatePost))
	mux.Handle("GET /community/posts/{id}", protected(d.Community.GetPost))
	mux.Handle("PUT /community/posts/{id}", protected(d.Community.UpdatePost))
	mux.Handle("DELETE /community/posts/{id}", protected(d.Community.DeletePost))
	mux.Handle("POST /community/images", upload(maxBoardImages, protected(d.Community.UploadImages)))

	// Community - comments
	mux.Handle("POST /community/posts/{id}/comments", protected(d.Community.CreateComment))
	mux.Handle("PUT /community/comments/{id}", protected(d.Community.UpdateComment))
	mux.Handle("DELETE /community/comments/{id}", protected(d.Community.DeleteComment))

	// Community - chat
	mux.Handle("POST /community/chatrooms", protected(d.Community.OpenRoom))
	mux.Handle("GET /community/chatrooms", protected(d.Community.ListRooms))
	mux.Handle("POST /community/chatrooms/{id}/messages", protected(d.Community.SendMessage))
	mux.Handle("GET /community/chatrooms/{id}/messages", protected(d.Community.RoomMessages))

	// Notifications
	mux.Handle("GET /notifications", protected(d.Notifications.List))
	mux.Handle("GET /notifications/stream", streamAuth(http.HandlerFunc(d.Notifications.Stream)))
	mux.Handle("GET /notifications/language/{userId}", protected(d.Users.PartnerLanguage))
	mux.Handle("POST /notifications/{id}", protected(d.Notifications.MarkAsRead))

	// WebSocket authenticates itself from ?token=
	if d.WebSocket != nil {
		mux.Handle("GET /ws", d.WebSocket)
	}

	var h http.Handler = middleware.Observe(mux)
	h = middleware.CORS(d.Server.CORSOrigins)(h)
	return middleware.Recover(h)
}
