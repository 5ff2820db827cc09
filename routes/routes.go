package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/tabletourney/tournament-system/handlers"
	"github.com/tabletourney/tournament-system/middleware"
	"github.com/tabletourney/tournament-system/models"
)

// SetupRoutes mounts the full HTTP surface. Mutating tournament routes are
// restricted to authenticated organizers; reads and the websocket feed are
// public so players can follow allocations without an account.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	tournamentHandler *handlers.TournamentHandler,
	roundHandler *handlers.RoundHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.List)
		r.Get("/{tournamentID}", tournamentHandler.GetByID)
		r.Get("/{tournamentID}/players", tournamentHandler.ListPlayers)
		r.Get("/{tournamentID}/players/{playerID}/history", roundHandler.GetPlayerHistory)
		r.Get("/{tournamentID}/rounds/{roundNumber}/allocations", roundHandler.GetAllocations)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.Authorize(string(models.RoleOrganizer)))

			r.Post("/", tournamentHandler.Create)
			r.Put("/{tournamentID}", tournamentHandler.Update)
			r.Delete("/{tournamentID}", tournamentHandler.Delete)
			r.Put("/{tournamentID}/tables", tournamentHandler.ReplaceTables)
			r.Post("/{tournamentID}/logo", tournamentHandler.UploadLogo)

			r.Post("/{tournamentID}/rounds/{roundNumber}/import", roundHandler.ImportRound)
			r.Post("/{tournamentID}/rounds/{roundNumber}/allocations", roundHandler.GenerateAllocations)
			r.Post("/{tournamentID}/rounds/{roundNumber}/publish", roundHandler.PublishRound)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
