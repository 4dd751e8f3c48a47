package handlers

import (
	"net/http"

	"salesapi/metrics"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter registers every route. Everything except /login, /healthz and
// /metrics goes through JWTMiddleware.
func NewRouter(h Handler, m *metrics.Metrics, logger *zap.Logger, corsOrigins []string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := mux.NewRouter()
	observe := Observe(logger, m)
	r.Use(RequestID, observe)
	// Router middleware only wraps matched routes.
	r.NotFoundHandler = RequestID(observe(http.HandlerFunc(notFound)))
	r.MethodNotAllowedHandler = RequestID(observe(http.HandlerFunc(methodNotAllowed)))

	r.HandleFunc("/login", h.LoginHandler).Methods("POST")
	r.HandleFunc("/sales", h.JWTMiddleware(h.ListSalesHandler)).Methods("GET")
	r.HandleFunc("/sales", h.JWTMiddleware(h.CreateSaleHandler)).Methods("POST")
	r.HandleFunc("/sales/{id}", h.JWTMiddleware(h.UpdateSaleHandler)).Methods("PUT")
	r.HandleFunc("/sales/{id}", h.JWTMiddleware(h.DeleteSaleHandler)).Methods("DELETE")
	r.HandleFunc("/predict", h.JWTMiddleware(h.PredictHandler)).Methods("GET")

	r.HandleFunc("/healthz", h.HealthHandler).Methods("GET")
	r.Handle("/metrics", m.Handler()).Methods("GET")

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(corsOrigins),
		gorillahandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillahandlers.AllowedHeaders([]string{"Authorization", "Content-Type", RequestIDHeader}),
		gorillahandlers.ExposedHeaders([]string{RequestIDHeader}),
	)
	return cors(r)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, http.StatusNotFound, "Not found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
