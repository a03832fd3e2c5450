package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/sideline-hq/sideline/handlers"
	"github.com/sideline-hq/sideline/middleware"
	"github.com/sideline-hq/sideline/models"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	User      *handlers.UserHandler
	Roster    *handlers.RosterHandler
	Group     *handlers.GroupHandler
	Chat      *handlers.ChatHandler
	Request   *handlers.RequestHandler
	Feedback  *handlers.FeedbackHandler
	WebSocket *handlers.WebSocketHandler
}

func SetupRoutes(h Handlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api/v1", func(r chi.Router) {
		// Публичные маршруты
		r.Post("/auth/register", h.Auth.Register)
		r.Post("/auth/login", h.Auth.Login)

		// Websocket аутентифицируется токеном в query-параметре.
		r.Get("/ws", h.WebSocket.Serve)

		// Всё остальное — за Bearer-токеном.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticator(jwtSecret))

			r.Put("/auth/email", h.Auth.ChangeEmail)
			r.Put("/auth/password", h.Auth.ChangePassword)

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", h.User.GetMe)
				r.Put("/me", h.User.UpdateProfile)
				r.Post("/me/photo", h.User.UploadPhoto)
				r.Get("/me/sports", h.User.ListSportDetails)
				r.Put("/me/sports", h.User.UpsertSportDetail)
				r.Get("/{userID}", h.User.GetByID)
			})

			r.Route("/rosters", func(r chi.Router) {
				r.Get("/", h.Roster.ListDiscoverable)
				r.Get("/mine", h.Roster.ListMine)
				r.Get("/{rosterID}", h.Roster.GetByID)
				r.Get("/{rosterID}/events", h.Roster.ListEvents)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(models.RoleManager))
					r.Post("/", h.Roster.Create)
					r.Put("/{rosterID}", h.Roster.Update)
					r.Post("/{rosterID}/players", h.Roster.AddPlayer)
					r.Post("/{rosterID}/chat/recreate", h.Roster.RecreateChat)
					r.Post("/{rosterID}/events", h.Roster.CreateEvent)
				})
				// Удаление: менеджер убирает любого, игрок — себя.
				r.Delete("/{rosterID}/players/{playerID}", h.Roster.RemovePlayer)
			})

			r.Route("/groups", func(r chi.Router) {
				r.Post("/", h.Group.Create)
				r.Get("/mine", h.Group.ListMine)
				r.Get("/public", h.Group.ListPublic)
				r.Get("/{groupID}", h.Group.GetByID)
				r.Post("/{groupID}/members", h.Group.AddMember)
				r.Delete("/{groupID}/members/{userID}", h.Group.RemoveMember)
				r.Post("/{groupID}/leave", h.Group.Leave)
				r.Post("/{groupID}/promote", h.Group.Promote)
				r.Post("/{groupID}/demote", h.Group.Demote)
				r.Post("/{groupID}/transfer-ownership", h.Group.TransferOwnership)
				r.Get("/{groupID}/posts", h.Group.ListPosts)
				r.Post("/{groupID}/posts", h.Group.CreatePost)
				r.Post("/{groupID}/posts/image", h.Group.UploadPostImage)
			})

			r.Route("/chats", func(r chi.Router) {
				r.Post("/", h.Chat.Create)
				r.Get("/", h.Chat.ListMine)
				r.Get("/{chatID}", h.Chat.GetByID)
				r.Get("/{chatID}/messages", h.Chat.ListMessages)
				r.Post("/{chatID}/messages", h.Chat.SendMessage)
				r.Post("/{chatID}/attachments", h.Chat.UploadAttachment)
				r.Post("/{chatID}/read", h.Chat.MarkRead)
				r.Post("/{chatID}/hide", h.Chat.Hide)
				r.Post("/{chatID}/unhide", h.Chat.Unhide)
				r.Post("/{chatID}/leave", h.Chat.Leave)
				r.Post("/{chatID}/clear-history", h.Chat.ClearHistory)
			})

			r.Route("/requests", func(r chi.Router) {
				r.Post("/", h.Request.Create)
				r.Get("/mine", h.Request.ListMine)
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(models.RoleManager))
					r.Get("/incoming", h.Request.ListIncoming)
					r.Post("/{requestID}/approve", h.Request.Approve)
					r.Post("/{requestID}/deny", h.Request.Deny)
				})
			})

			r.Route("/feedback", func(r chi.Router) {
				r.Post("/", h.Feedback.Create)
				r.Get("/", h.Feedback.List)
				r.Post("/{feedbackID}/vote", h.Feedback.ToggleVote)
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(models.RoleDeveloper))
					r.Put("/{feedbackID}/status", h.Feedback.UpdateStatus)
					r.Post("/{feedbackID}/notes", h.Feedback.AddDeveloperNote)
				})
			})
		})
	})

	return r
}
