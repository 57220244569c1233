package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"geomeet.io/geo-meet/internal/auth"
	"geomeet.io/geo-meet/internal/logging"
)

func NewRouter(apiHandler *APIHandler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger(logrus.StandardLogger()))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", auth.UserIDHeader},
	}).Handler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Group(func(r chi.Router) {
			r.Use(apiHandler.ActorMiddleware)

			r.Get("/profile", apiHandler.GetProfileHandler)
			r.Post("/profile", apiHandler.UpsertProfileHandler)

			r.Get("/match", apiHandler.MatchHandler)
			r.Get("/search", apiHandler.SearchHandler)

			r.Get("/meetup", apiHandler.ListMeetupsHandler)
			r.Post("/meetup", apiHandler.CreateMeetupHandler)
			r.Put("/meetup", apiHandler.AdvanceMeetupHandler)

			r.Get("/message", apiHandler.ListMessagesHandler)
			r.Post("/message", apiHandler.SendMessageHandler)
		})
	})

	return r
}
