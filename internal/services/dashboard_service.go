package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ev-dashboard/internal/models"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

// Load status of the dashboard
const (
	StatusLoading = "loading"
	StatusReady   = "ready"
	StatusError   = "error"
)

// ErrNotReady is returned while no dataset has been loaded successfully
var ErrNotReady = errors.New("dataset not loaded")

// DashboardState is the derived view of a record sequence under a filter
type DashboardState struct {
	Records        []models.VehicleRecord
	Filter         models.FilterState
	Filtered       []models.VehicleRecord
	Statistics     *models.Statistics
	FullStatistics *models.Statistics
}

// Recompute derives the full dashboard state from records and filter.
// It is pure: every load or filter change calls it from scratch.
func Recompute(records []models.VehicleRecord, filter models.FilterState) *DashboardState {
	filter = filter.Normalized()
	filtered := ApplyFilter(records, filter)

	full := CalculateStatistics(records)
	stats := full
	if !filter.IsEmpty() {
		stats = CalculateStatistics(filtered)
	}

	return &DashboardState{
		Records:        records,
		Filter:         filter,
		Filtered:       filtered,
		Statistics:     stats,
		FullStatistics: full,
	}
}

// Page is one table page of records
type Page struct {
	Records    []models.VehicleRecord `json:"records"`
	Total      int                    `json:"total"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	TotalPages int                    `json:"total_pages"`
	Notice     string                 `json:"notice,omitempty"`
}

// Paginate slices records into a page. Out-of-range pages are empty.
// The notice mirrors the dashboard table ("Showing first N of M vehicles").
func Paginate(records []models.VehicleRecord, page, limit int) Page {
	if limit <= 0 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}

	total := len(records)
	start := total
	if page-1 <= total/limit {
		start = min((page-1)*limit, total)
	}
	end := total
	if limit < total-start {
		end = start + limit
	}

	p := Page{
		Records:    records[start:end],
		Total:      total,
		Page:       page,
		Limit:      limit,
	}
	if total > 0 {
		p.TotalPages = (total-1)/limit + 1
	}

	if total > limit && end > start {
		if page == 1 {
			p.Notice = fmt.Sprintf("Showing first %d of %d vehicles", end-start, total)
		} else {
			p.Notice = fmt.Sprintf("Showing %d-%d of %d vehicles", start+1, end, total)
		}
	}

	return p
}

// Status describes the dataset load state
type Status struct {
	State    string    `json:"state"`
	LoadID   string    `json:"load_id,omitempty"`
	Source   string    `json:"source,omitempty"`
	Records  int       `json:"records"`
	LoadedAt time.Time `json:"loaded_at,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// DashboardService holds the application state: the loaded records, the
// current filter and the statistics derived from them
type DashboardService struct {
	ingestion *IngestionService
	stats     *StatisticsService
	source    Source
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector

	// loadMu serializes Load so an older load never replaces a newer one
	loadMu sync.Mutex

	mu      sync.RWMutex
	state   *DashboardState
	status  Status
	lastErr error
}

// NewDashboardService creates a dashboard in the loading state
func NewDashboardService(ingestion *IngestionService, stats *StatisticsService, source Source, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *DashboardService {
	return &DashboardService{
		ingestion: ingestion,
		stats:     stats,
		source:    source,
		logger:    logger,
		metrics:   metricsCollector,
		status:    Status{State: StatusLoading},
	}
}

// Load (re)loads the dataset and recomputes state with the current filter.
// On failure the dashboard enters the error state and keeps no stale data.
func (s *DashboardService) Load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	result, err := s.ingestion.Load(ctx, s.source)
	if err != nil {
		s.mu.Lock()
		s.state = nil
		s.lastErr = err
		s.status = Status{State: StatusError, Source: s.source.Location(), Error: err.Error()}
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filter := models.NewFilterState()
	if s.state != nil {
		filter = s.state.Filter
	}

	s.state = s.stats.Compute(logging.WithLoadID(ctx, result.LoadID), result.Records, filter, "load")
	s.lastErr = nil
	s.status = Status{
		State:    StatusReady,
		LoadID:   result.LoadID,
		Source:   result.Source,
		Records:  len(result.Records),
		LoadedAt: result.LoadedAt,
	}
	s.metrics.FilteredRecords.Set(float64(len(s.state.Filtered)))

	return nil
}

// SetFilter replaces the current filter and recomputes state
func (s *DashboardService) SetFilter(ctx context.Context, filter models.FilterState) (*DashboardState, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return nil, s.notReadyErr()
	}

	s.state = s.stats.Compute(ctx, s.state.Records, filter, "filter")
	s.metrics.FilteredRecords.Set(float64(len(s.state.Filtered)))

	s.logger.Info(ctx, "[DASHBOARD_FILTER] Filter changed", logging.Fields{
		"county":         s.state.Filter.County,
		"make":           s.state.Filter.Make,
		"year":           s.state.Filter.Year,
		"filtered_count": len(s.state.Filtered),
	})

	return s.state, nil
}

// Snapshot returns the current state. States are never mutated after
// construction, so the pointer is safe to share.
func (s *DashboardService) Snapshot() (*DashboardState, Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return nil, s.status, s.notReadyErr()
	}
	return s.state, s.status, nil
}

// Query computes the state for filter without touching the current filter
func (s *DashboardService) Query(ctx context.Context, filter models.FilterState) (*DashboardState, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	state := s.state
	notReady := s.notReadyErr()
	s.mu.RUnlock()

	if state == nil {
		return nil, notReady
	}

	return s.stats.Compute(ctx, state.Records, filter, "query"), nil
}

// Status returns the current load status
func (s *DashboardService) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// CheckSource probes the configured dataset source
func (s *DashboardService) CheckSource(ctx context.Context) error {
	return s.ingestion.CheckSource(ctx, s.source)
}

// notReadyErr wraps the last load error, if any; callers hold s.mu
func (s *DashboardService) notReadyErr() error {
	if s.lastErr != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, s.lastErr)
	}
	return ErrNotReady
}
