package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPlayerRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/players", handler.ListPlayers)
	mux.HandleFunc("GET /v1/players/{playerID}", handler.GetPlayer)
	mux.HandleFunc("GET /v1/summary", handler.GetSummary)
	mux.HandleFunc("GET /v1/filters", handler.GetFilters)
}

func registerRefreshRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/refresh", handler.GetRefreshState)
	mux.HandleFunc("POST /v1/refresh", handler.RunRefresh)
}

// Prediction requests are forwarded to the regression model one feature set at a time.
func registerPredictionRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/predictions", handler.Predict)
	mux.HandleFunc("POST /v1/predictions/batch", handler.PredictBatch)
}
