package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"channelchat-backend/internal/blob"
	"channelchat-backend/internal/gateway"
	"channelchat-backend/internal/hub"
	"channelchat-backend/internal/ingest"
	"channelchat-backend/internal/membership"
	"channelchat-backend/internal/models"
	"channelchat-backend/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var (
	sugar     *zap.SugaredLogger
	cfg       *models.ConfigFile
	db        *sql.DB
	registry  *hub.Hub
	authority *membership.Authority
	messages  *store.MessageStore
	pipeline  *ingest.Pipeline
	files     *blob.DiskStore
	realtime  *gateway.Gateway

	validate = validator.New()
)

type Deps struct {
	Cfg       *models.ConfigFile
	Sugar     *zap.SugaredLogger
	DB        *sql.DB
	Registry  *hub.Hub
	Authority *membership.Authority
	Messages  *store.MessageStore
	Pipeline  *ingest.Pipeline
	Files     *blob.DiskStore
	Realtime  *gateway.Gateway
}

// Setup wires the router and serves until the listener fails.
func Setup(isHttps bool, deps Deps) error {
	sugar = deps.Sugar
	cfg = deps.Cfg
	db = deps.DB
	registry = deps.Registry
	authority = deps.Authority
	messages = deps.Messages
	pipeline = deps.Pipeline
	files = deps.Files
	realtime = deps.Realtime

	r := router()

	address := fmt.Sprintf("%s:%s", cfg.Address, cfg.Port)

	if isHttps {
		return http.ListenAndServeTLS(address, cfg.TlsCert, cfg.TlsKey, r)
	}
	return http.ListenAndServe(address, r)
}

func router() chi.Router {
	r := chi.NewRouter()

	if cfg.PrintHttpRequests {
		r.Use(middleware.Logger)
	}
	// r.Use(AllowCors)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(r chi.Router) {
			r.Post("/login", Login)
			r.Post("/register", Register)
			r.With(UserVerifier).Get("/isLoggedIn", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
		})

		api.Route("/users", func(r chi.Router) {
			r.Use(UserVerifier)
			r.Get("/me", GetCurrentUser)
			r.Patch("/me", UpdateCurrentUser)
			r.Get("/{userID}", GetUser)
		})

		api.Route("/channels", func(r chi.Router) {
			r.Use(UserVerifier)
			r.Post("/", CreateChannel)
			r.Get("/", GetChannelList)
			r.Get("/mine", GetMyChannels)
			r.Get("/{channelID}", GetChannel)
			r.Patch("/{channelID}", UpdateChannel)
			r.Delete("/{channelID}", DeleteChannel)
			r.Patch("/{channelID}/owner", TransferChannelOwner)
			r.Post("/{channelID}/join", JoinChannel)
			r.Delete("/{channelID}/leave", LeaveChannel)
			r.Get("/{channelID}/members", GetChannelMembers)
			r.Post("/{channelID}/messages", CreateMessage)
			r.Get("/{channelID}/messages", GetMessageList)
			r.Delete("/{channelID}/messages", DeleteChannelMessages)
		})

		api.Route("/messages", func(r chi.Router) {
			r.Use(UserVerifier)
			r.Get("/{messageID}", GetMessage)
			r.Patch("/{messageID}", UpdateMessage)
			r.Delete("/{messageID}", DeleteMessage)
			r.Get("/{messageID}/file", GetMessageFileURL)
		})

		api.With(UserVerifier).Post("/files", UploadFile)
	})

	// signed URLs carry their own authorization
	r.Get("/files/*", ServeFile)

	// the gateway authenticates the token query parameter itself
	r.Get("/ws/channels/{channelID}", HandleWebSocket)

	return r
}
