package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /{$}", handler.Root)
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerFeedRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/sports", handler.ListSports)
	mux.HandleFunc("GET /v1/sports/{sportID}", handler.GetSportSummary)
	mux.HandleFunc("GET /v1/projections", handler.ListProjections)
	mux.HandleFunc("GET /v1/players", handler.ListPlayers)
	mux.HandleFunc("GET /v1/players/{name}", handler.FindPlayerByName)
	mux.HandleFunc("GET /v1/games", handler.ListGames)
	mux.HandleFunc("GET /v1/games/{gameID}", handler.FindGameByID)
}

func registerInternalRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/refresh", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RefreshAll)))
	mux.Handle("POST /v1/internal/refresh/{sportID}", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RefreshSport)))
	// QStash callback; each run enqueues the next one.
	mux.Handle("POST /v1/internal/jobs/refresh-all", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRefreshAllJob)))
}
