package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pitchside/season-engine/handlers"
	"github.com/pitchside/season-engine/middleware"
)

// SetupRoutes wires the operator HTTP surface. Admin routes sit behind JWT
// auth with the operator role; status reads, the result webhook and the
// websocket stream are open.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	seasonHandler *handlers.SeasonHandler,
	tournamentHandler *handlers.TournamentHandler,
	matchHandler *handlers.MatchHandler,
	adminHandler *handlers.AdminHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Post("/auth/login", authHandler.Login)

	router.Get("/season", seasonHandler.Status)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/{tournamentID}/status", tournamentHandler.Status)
		r.Post("/{tournamentID}/entries", tournamentHandler.RegisterEntry)
	})

	// Completion webhook from the match execution service.
	router.Post("/matches/{matchID}/result", matchHandler.Complete)

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)

	router.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate([]byte(jwtSecret)))
		r.Use(middleware.Authorize("operator"))

		r.Post("/triggers/{kind}", adminHandler.RunTrigger)
		r.Post("/tick", adminHandler.Tick)
		r.Post("/tournaments/{tournamentID}/advance", adminHandler.AdvanceTournament)
	})
}
