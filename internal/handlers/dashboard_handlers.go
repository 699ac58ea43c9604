package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"ev-dashboard/internal/models"
	"ev-dashboard/internal/services"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

const maxPageLimit = 1000

// DashboardHandler handles dashboard API endpoints
type DashboardHandler struct {
	dashboard *services.DashboardService
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
	pageSize  int
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(
	dashboard *services.DashboardService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
	pageSize int,
) *DashboardHandler {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &DashboardHandler{
		dashboard: dashboard,
		logger:    logger,
		metrics:   metricsCollector,
		pageSize:  pageSize,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// ChartSet holds the four dashboard charts
type ChartSet struct {
	Makes    []models.ChartPoint `json:"makes"`
	Types    []models.ChartPoint `json:"types"`
	Counties []models.ChartPoint `json:"counties"`
	Years    []models.ChartPoint `json:"years"`
}

// DashboardResponse is the full dashboard view
type DashboardResponse struct {
	Status     services.Status        `json:"status"`
	Filter     models.FilterState     `json:"filter"`
	Statistics *models.Statistics     `json:"statistics"`
	Charts     ChartSet               `json:"charts"`
	Options    services.FilterOptions `json:"filter_options"`
	Vehicles   services.Page          `json:"vehicles"`
}

// StatisticsResponse is the statistics of a filtered subset
type StatisticsResponse struct {
	Filter     models.FilterState `json:"filter"`
	Statistics *models.Statistics `json:"statistics"`
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/api/dashboard", time.Now())

	state, status, err := h.dashboard.Snapshot()
	if err != nil {
		h.handleServiceError(w, r, "/api/dashboard", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/dashboard", r.Method, "200")
	h.sendJSON(w, h.buildDashboard(state, status), http.StatusOK)
}

// SetFilter handles PUT /api/dashboard/filter
func (h *DashboardHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observe("/api/dashboard/filter", time.Now())

	var filter models.FilterState
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&filter); err != nil {
		h.metrics.RecordAPIError("bad_request", "/api/dashboard/filter")
		h.sendError(w, r, "invalid filter body, expected {\"county\", \"make\", \"year\"}", http.StatusBadRequest)
		return
	}

	if _, err := h.dashboard.SetFilter(ctx, filter); err != nil {
		h.handleServiceError(w, r, "/api/dashboard/filter", err)
		return
	}

	state, status, err := h.dashboard.Snapshot()
	if err != nil {
		h.handleServiceError(w, r, "/api/dashboard/filter", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/dashboard/filter", r.Method, "200")
	h.sendJSON(w, h.buildDashboard(state, status), http.StatusOK)
}

// GetVehicles handles GET /api/vehicles
func (h *DashboardHandler) GetVehicles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observe("/api/vehicles", time.Now())

	page, limit := h.pagination(r)

	state, err := h.dashboard.Query(ctx, filterFromQuery(r))
	if err != nil {
		h.handleServiceError(w, r, "/api/vehicles", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/vehicles", r.Method, "200")
	h.sendJSON(w, services.Paginate(state.Filtered, page, limit), http.StatusOK)
}

// GetStatistics handles GET /api/stats
func (h *DashboardHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observe("/api/stats", time.Now())

	state, err := h.dashboard.Query(ctx, filterFromQuery(r))
	if err != nil {
		h.handleServiceError(w, r, "/api/stats", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/stats", r.Method, "200")
	h.sendJSON(w, StatisticsResponse{Filter: state.Filter, Statistics: state.Statistics}, http.StatusOK)
}

// GetChart handles GET /api/charts/{dimension}
func (h *DashboardHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observe("/api/charts", time.Now())

	dim, err := services.ParseDimension(mux.Vars(r)["dimension"])
	if err != nil {
		h.handleServiceError(w, r, "/api/charts", err)
		return
	}

	limit := services.DefaultChartLimit(dim)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 0 {
			h.metrics.RecordAPIError("bad_request", "/api/charts")
			h.sendError(w, r, "invalid limit, expected a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = l
	}

	state, err := h.dashboard.Query(ctx, filterFromQuery(r))
	if err != nil {
		h.handleServiceError(w, r, "/api/charts", err)
		return
	}

	points := services.ChartData(services.Distribution(state.Statistics, dim), dim, limit)

	h.metrics.RecordAPIRequest("/api/charts", r.Method, "200")
	if r.URL.Query().Get("format") == "series" {
		h.sendJSON(w, services.ToSeries(points), http.StatusOK)
		return
	}
	h.sendJSON(w, points, http.StatusOK)
}

// GetFilterOptions handles GET /api/filters
func (h *DashboardHandler) GetFilterOptions(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/api/filters", time.Now())

	state, _, err := h.dashboard.Snapshot()
	if err != nil {
		h.handleServiceError(w, r, "/api/filters", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/filters", r.Method, "200")
	h.sendJSON(w, services.BuildFilterOptions(state.FullStatistics), http.StatusOK)
}

// ReloadDataset handles POST /api/dataset/reload
func (h *DashboardHandler) ReloadDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observe("/api/dataset/reload", time.Now())

	if err := h.dashboard.Load(ctx); err != nil {
		h.logger.Error(ctx, "[API_RELOAD_ERROR] Dataset reload failed", logging.Fields{}, err)
		h.metrics.RecordAPIError("load_error", "/api/dataset/reload")
		h.sendError(w, r, err.Error(), http.StatusBadGateway)
		return
	}

	h.metrics.RecordAPIRequest("/api/dataset/reload", r.Method, "200")
	h.sendJSON(w, h.dashboard.Status(), http.StatusOK)
}

// HealthCheck handles GET /health
func (h *DashboardHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := h.dashboard.Status()

	body := map[string]interface{}{
		"status":    "healthy",
		"dataset":   status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if status.State == services.StatusError {
		body["status"] = "degraded"
	}
	if err := h.dashboard.CheckSource(ctx); err != nil {
		h.logger.Warn(ctx, "[HEALTH_SOURCE_DOWN] Dataset source check failed", logging.Fields{
			"error": err.Error(),
		})
		body["status"] = "degraded"
		body["source_error"] = err.Error()
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{
		"dataset_state": status.State,
	})
	h.sendJSON(w, body, http.StatusOK)
}

func (h *DashboardHandler) buildDashboard(state *services.DashboardState, status services.Status) DashboardResponse {
	stats := state.Statistics
	return DashboardResponse{
		Status:     status,
		Filter:     state.Filter,
		Statistics: stats,
		Charts: ChartSet{
			Makes:    services.ChartData(stats.MakeDistribution, services.DimensionMake, services.DefaultChartLimit(services.DimensionMake)),
			Types:    services.ChartData(stats.TypeDistribution, services.DimensionType, services.DefaultChartLimit(services.DimensionType)),
			Counties: services.ChartData(stats.CountyDistribution, services.DimensionCounty, services.DefaultChartLimit(services.DimensionCounty)),
			Years:    services.ChartData(stats.YearDistribution, services.DimensionYear, services.DefaultChartLimit(services.DimensionYear)),
		},
		Options:  services.BuildFilterOptions(state.FullStatistics),
		Vehicles: services.Paginate(state.Filtered, 1, h.pageSize),
	}
}

func (h *DashboardHandler) pagination(r *http.Request) (int, int) {
	page := 1
	limit := h.pageSize

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= maxPageLimit {
		limit = l
	}

	return page, limit
}

func filterFromQuery(r *http.Request) models.FilterState {
	q := r.URL.Query()
	return models.FilterState{
		County: q.Get("county"),
		Make:   q.Get("make"),
		Year:   q.Get("year"),
	}
}

// handleServiceError maps service errors to HTTP statuses
func (h *DashboardHandler) handleServiceError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		h.metrics.RecordAPIError("bad_request", endpoint)
		h.sendError(w, r, verr.Message, http.StatusBadRequest)
	case errors.Is(err, services.ErrNotReady):
		h.metrics.RecordAPIError("not_ready", endpoint)
		h.sendError(w, r, err.Error(), http.StatusServiceUnavailable)
	default:
		h.logger.Error(r.Context(), "[API_ERROR] Request failed", logging.Fields{
			"endpoint": endpoint,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, "internal error", http.StatusInternalServerError)
	}
}

func (h *DashboardHandler) observe(endpoint string, start time.Time) {
	h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// sendJSON sends a JSON response
func (h *DashboardHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *DashboardHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(routeTemplate(r), r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// routeTemplate keeps metric labels bounded for parameterized routes
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// requestID tags every request context with an ID for log correlation
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// RegisterRoutes registers all dashboard API routes
func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	router.Use(requestID)

	router.HandleFunc("/api/dashboard", h.GetDashboard).Methods("GET")
	router.HandleFunc("/api/dashboard/filter", h.SetFilter).Methods("PUT")
	router.HandleFunc("/api/vehicles", h.GetVehicles).Methods("GET")
	router.HandleFunc("/api/stats", h.GetStatistics).Methods("GET")
	router.HandleFunc("/api/charts/{dimension}", h.GetChart).Methods("GET")
	router.HandleFunc("/api/filters", h.GetFilterOptions).Methods("GET")
	router.HandleFunc("/api/dataset/reload", h.ReloadDataset).Methods("POST")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
