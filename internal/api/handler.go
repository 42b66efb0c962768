package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/nidhogg/praximous/internal/audit"
	"github.com/nidhogg/praximous/internal/dispatch"
	"github.com/nidhogg/praximous/internal/provider"
	"github.com/nidhogg/praximous/internal/skill"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	dispatcher *dispatch.Dispatcher
	skills     *skill.Registry
	providers  *provider.Registry
	sink       *audit.Sink
	reload     func() error // re-reads provider config and swaps the pool
	logger     *zap.Logger
}

// NewHandler creates a new API handler. reload may be nil to disable the
// provider reload endpoint.
func NewHandler(
	dispatcher *dispatch.Dispatcher,
	skills *skill.Registry,
	providers *provider.Registry,
	sink *audit.Sink,
	reload func() error,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		skills:     skills,
		providers:  providers,
		sink:       sink,
		reload:     reload,
		logger:     logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/api/health", h.healthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/process", h.processTask)

		r.Get("/analytics", h.getAnalytics)
		r.Get("/analytics/charts/tasks-over-time", h.chartTasksOverTime)
		r.Get("/analytics/charts/requests-per-provider", h.chartRequestsPerProvider)
		r.Get("/analytics/charts/average-latency-per-provider", h.chartAvgLatency)

		r.Get("/skills", h.listSkills)
		r.Get("/skills/{name}/capabilities", h.getSkillCapabilities)

		r.Get("/system-status", h.systemStatus)
		r.Post("/providers/reload", h.reloadProviders)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "praximous"})
}

// processTask accepts {task_type, operation?, prompt?, provider_name?, ...}
// and returns the dispatch envelope. Extra fields become skill parameters.
func (h *Handler) processTask(w http.ResponseWriter, r *http.Request) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	req := &dispatch.Request{Params: raw}
	if v, ok := raw["task_type"].(string); ok {
		req.TaskType = v
	}
	if v, ok := raw["operation"].(string); ok {
		req.Operation = v
	}
	if v, ok := raw["prompt"].(string); ok {
		req.Prompt = v
	}
	if v, ok := raw["provider_name"].(string); ok {
		req.ProviderName = v
	}
	delete(raw, "task_type")
	delete(raw, "operation")
	delete(raw, "prompt")
	delete(raw, "provider_name")

	if req.TaskType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "task_type is required"})
		return
	}

	resp := h.dispatcher.Process(r.Context(), req)
	writeJSON(w, statusFor(resp), resp)
}

func statusFor(resp *dispatch.Response) int {
	switch resp.Error {
	case "":
		return http.StatusOK
	case dispatch.ErrKindSkillNotFound:
		return http.StatusNotFound
	case skill.ErrKindValidation:
		return http.StatusBadRequest
	case dispatch.ErrKindAllProvidersFailed, dispatch.ErrKindProviderError:
		return http.StatusServiceUnavailable
	case dispatch.ErrKindInternal:
		return http.StatusInternalServerError
	default:
		// Skill-specific failure kinds still produce a well-formed 200
		// envelope with success=false.
		return http.StatusOK
	}
}

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// analyticsResponse matches the shape the dashboard consumes.
type analyticsResponse struct {
	TotalMatches int            `json:"total_matches"`
	Limit        int            `json:"limit"`
	Offset       int            `json:"offset"`
	Data         []audit.Record `json:"data"`
}

func (h *Handler) getAnalytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := intQuery(q.Get("limit"), 50)
	if limit < 1 {
		limit = 1
	}
	if limit > 500 {
		limit = 500
	}
	offset := intQuery(q.Get("offset"), 0)

	opts := audit.QueryOptions{
		TaskType:  q.Get("task_type"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
		Limit:     limit,
		Offset:    offset,
	}

	var ok bool
	if opts.StartDate, ok = dateQuery(q.Get("start_date")); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start_date must be YYYY-MM-DD"})
		return
	}
	if opts.EndDate, ok = dateQuery(q.Get("end_date")); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end_date must be YYYY-MM-DD"})
		return
	}

	result, err := h.sink.Query(r.Context(), opts)
	if err != nil {
		if errors.Is(err, audit.ErrInvalidSortColumn) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Error("analytics query failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not retrieve analytics data"})
		return
	}

	writeJSON(w, http.StatusOK, analyticsResponse{
		TotalMatches: result.TotalMatches,
		Limit:        limit,
		Offset:       offset,
		Data:         result.Records,
	})
}

func intQuery(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func dateQuery(s string) (string, bool) {
	if s == "" {
		return "", true
	}
	if !dateRe.MatchString(s) {
		return "", false
	}
	return s, true
}

func (h *Handler) rangeFilter(w http.ResponseWriter, r *http.Request) (audit.RangeFilter, bool) {
	q := r.URL.Query()
	var rf audit.RangeFilter
	var ok bool
	if rf.StartDate, ok = dateQuery(q.Get("start_date")); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start_date must be YYYY-MM-DD"})
		return rf, false
	}
	if rf.EndDate, ok = dateQuery(q.Get("end_date")); !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end_date must be YYYY-MM-DD"})
		return rf, false
	}
	return rf, true
}

func (h *Handler) chartTasksOverTime(w http.ResponseWriter, r *http.Request) {
	rf, ok := h.rangeFilter(w, r)
	if !ok {
		return
	}
	granularity := r.URL.Query().Get("granularity")
	if granularity == "" {
		granularity = "day"
	}

	data, err := h.sink.TasksOverTime(r.Context(), granularity, rf)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if data == nil {
		data = []audit.TimeBucket{}
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *Handler) chartRequestsPerProvider(w http.ResponseWriter, r *http.Request) {
	rf, ok := h.rangeFilter(w, r)
	if !ok {
		return
	}
	data, err := h.sink.RequestsPerProvider(r.Context(), rf)
	if err != nil {
		h.logger.Error("requests per provider failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not retrieve chart data"})
		return
	}
	if data == nil {
		data = []audit.ProviderCount{}
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *Handler) chartAvgLatency(w http.ResponseWriter, r *http.Request) {
	rf, ok := h.rangeFilter(w, r)
	if !ok {
		return
	}
	data, err := h.sink.AvgLatencyPerProvider(r.Context(), rf)
	if err != nil {
		h.logger.Error("avg latency per provider failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not retrieve chart data"})
		return
	}
	if data == nil {
		data = []audit.ProviderLatency{}
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *Handler) listSkills(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.skills.ListCapabilities())
}

func (h *Handler) getSkillCapabilities(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s, err := h.skills.Resolve(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "skill '" + name + "' not found"})
		return
	}
	writeJSON(w, http.StatusOK, s.Capabilities())
}

func (h *Handler) systemStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"providers_status": h.providers.Statuses(),
	})
}

func (h *Handler) reloadProviders(w http.ResponseWriter, r *http.Request) {
	if h.reload == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "reload not configured"})
		return
	}
	if err := h.reload(); err != nil {
		h.logger.Error("provider reload failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "providers reloaded"})
}
