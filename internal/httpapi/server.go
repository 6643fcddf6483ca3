package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/marketbasket/pricewatch/internal/catalog"
	apimw "github.com/marketbasket/pricewatch/internal/httpapi/middleware"
	"github.com/marketbasket/pricewatch/internal/repo"
)

type Server struct {
	Logger   *zap.Logger
	Triggers repo.TriggerStore
	Terms    repo.SearchTermStore
	Catalog  catalog.Catalog

	// MaxLookups bounds concurrent catalog lookups when listing triggers.
	MaxLookups    int
	LookupTimeout time.Duration
}

func NewServer(l *zap.Logger, ts repo.TriggerStore, terms repo.SearchTermStore, cat catalog.Catalog) *Server {
	return &Server{
		Logger:        l,
		Triggers:      ts,
		Terms:         terms,
		Catalog:       cat,
		MaxLookups:    4,
		LookupTimeout: 5 * time.Second,
	}
}

// Router wires routes. v == nil disables auth; empty origins allow any origin.
func (s *Server) Router(v *apimw.Verifier, origins []string, publicRPM, publicBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLog)
	r.Use(chimw.Recoverer)

	if len(origins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(publicRPM, publicBurst))

		r.Group(func(r chi.Router) {
			r.Use(apimw.Optional(v))
			r.Get("/price-triggers/", s.handleListTriggers)
			r.Get("/item-prices/", s.handleItemPrices)
			r.Get("/recommendations/", s.handleRecommendations)
		})

		r.Group(func(r chi.Router) {
			r.Use(apimw.Required(v))
			r.Post("/price-triggers/", s.handleCreateTrigger)
			r.Delete("/price-triggers/{id}", s.handleDeleteTrigger)
			r.Post("/search-terms/", s.handleRecordTerm)
		})
	})

	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.Logger.Info("http_request",
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
