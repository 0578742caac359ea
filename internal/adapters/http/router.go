package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/hanoigo/assistant/internal/core/domain"
	"github.com/hanoigo/assistant/internal/core/ports"
	"github.com/hanoigo/assistant/internal/observability/metrics"
)

const serviceName = "assistant-api"

// Router exposes the assist pipeline plus a thin venue surface. Reindexing is
// asynchronous: the handler only publishes the event, the worker does the
// embedding.
type Router struct {
	assist  ports.AssistService
	catalog ports.CatalogStore
	queue   ports.MessageQueue
	cache   ports.Cache
	metrics *metrics.HTTPServerMetrics

	rateLimitRPS   float64
	rateLimitBurst int
	maxInFlight    int
}

type RouterConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
}

func NewRouter(
	assist ports.AssistService,
	catalog ports.CatalogStore,
	queue ports.MessageQueue,
	cache ports.Cache,
	m *metrics.HTTPServerMetrics,
	cfg RouterConfig,
) *Router {
	return &Router{
		assist:         assist,
		catalog:        catalog,
		queue:          queue,
		cache:          cache,
		metrics:        m,
		rateLimitRPS:   cfg.RateLimitRPS,
		rateLimitBurst: cfg.RateLimitBurst,
		maxInFlight:    cfg.MaxInFlight,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/api/v1/assist", rt.handleAssist)
	mux.HandleFunc("/api/v1/venues/", rt.handleVenue)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.maxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.maxInFlight, 100*time.Millisecond)
	}
	if rt.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if rt.cache != nil {
		if err := rt.cache.HealthCheck(r.Context()); err != nil {
			status["cache"] = "degraded"
		} else {
			status["cache"] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, status)
}

type assistRequest struct {
	Query       string              `json:"query"`
	Coordinates *domain.Coordinates `json:"coordinates,omitempty"`
	AnswerText  string              `json:"answer_text,omitempty"`
	Limit       int                 `json:"limit,omitempty"`
}

type assistResponse struct {
	Candidates []domain.CandidateResult `json:"candidates"`
	Count      int                      `json:"count"`
}

func (rt *Router) handleAssist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req assistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	start := time.Now()
	candidates, err := rt.assist.Assist(r.Context(), ports.AssistRequest{
		Query:       req.Query,
		Coordinates: req.Coordinates,
		AnswerText:  req.AnswerText,
		Limit:       req.Limit,
	})
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordAssistObservation(serviceName, "/api/v1/assist", len(candidates), time.Since(start))
		for _, c := range candidates {
			rt.metrics.RecordStrategyHit(serviceName, c.Strategy)
		}
	}

	writeJSON(w, http.StatusOK, assistResponse{Candidates: candidates, Count: len(candidates)})
}

func (rt *Router) handleVenue(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/venues/")
	if id, ok := strings.CutSuffix(rest, "/reindex"); ok {
		rt.reindexVenue(w, r, id)
		return
	}
	rt.getVenueByID(w, r, rest)
}

func (rt *Router) getVenueByID(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "venue id is required"})
		return
	}

	venue, err := rt.catalog.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, venue)
}

func (rt *Router) reindexVenue(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "venue id is required"})
		return
	}

	// Existence check first so a bad id comes back 404, not a silent queue
	// publish for a venue the worker will never find.
	if _, err := rt.catalog.GetByID(r.Context(), id); err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if err := rt.queue.PublishVenueIngested(r.Context(), id); err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"venue_id": id, "status": "queued"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
