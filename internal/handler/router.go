package handler

import (
	"net/http"
	"time"

	"github.com/dangerclosesec/huddle/internal/auth"
	"github.com/dangerclosesec/huddle/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Handlers groups everything mounted under /api.
type Handlers struct {
	Users         *UserHandler
	Teams         *TeamHandler
	Invitations   *InvitationHandler
	Topics        *TopicHandler
	Discussions   *DiscussionHandler
	Posts         *PostHandler
	Notifications *NotificationHandler
	Realtime      *RealtimeHandler
}

// Mount registers the API routes. requestTimeout bounds every route except
// the websocket, which lives as long as the connection.
func (h *Handlers) Mount(r chi.Router, tokens *auth.TokenManager, requestTimeout time.Duration) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/realtime/ws", h.Realtime.Serve)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(requestTimeout))
			r.Use(chimw.AllowContentType("application/json"))
			r.Use(middleware.AuthMiddleware(tokens))
			r.Use(middleware.SocketID)

			r.Get("/users/me", h.Users.Me)
			r.Post("/realtime/ticket", h.Realtime.Ticket)

			r.Route("/teams", func(r chi.Router) {
				r.Post("/add", h.Teams.Add)
				r.Post("/update", h.Teams.Update)
				r.Get("/list", h.Teams.List)
				r.Get("/members", h.Teams.Members)
				r.Post("/remove-member", h.Teams.RemoveMember)
				r.Post("/invite-member", h.Teams.InviteMember)
				r.Get("/invitations", h.Teams.Invitations)
				r.Get("/audit", h.Teams.AuditLogs)
			})

			r.Route("/invitations", func(r chi.Router) {
				r.Post("/accept", h.Invitations.Accept)
				r.Get("/team-by-token", h.Invitations.TeamByToken)
			})

			r.Route("/topics", func(r chi.Router) {
				r.Post("/add", h.Topics.Add)
				r.Post("/edit", h.Topics.Edit)
				r.Post("/delete", h.Topics.Delete)
				r.Get("/list", h.Topics.List)
			})

			r.Route("/discussions", func(r chi.Router) {
				r.Post("/add", h.Discussions.Add)
				r.Post("/edit", h.Discussions.Edit)
				r.Post("/delete", h.Discussions.Delete)
				r.Post("/toggle-pin", h.Discussions.TogglePin)
				r.Get("/list", h.Discussions.List)
			})

			r.Route("/posts", func(r chi.Router) {
				r.Post("/add", h.Posts.Add)
				r.Post("/edit", h.Posts.Edit)
				r.Post("/delete", h.Posts.Delete)
				r.Get("/list", h.Posts.List)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/list", h.Notifications.List)
				r.Post("/delete", h.Notifications.Delete)
			})
		})
	})
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
