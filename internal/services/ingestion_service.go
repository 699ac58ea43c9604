package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"ev-dashboard/internal/config"
	"ev-dashboard/internal/models"
	"ev-dashboard/internal/parser"
	"ev-dashboard/internal/repository"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

// Source describes where a dataset is loaded from
type Source struct {
	Kind       string
	Path       string
	URL        string
	Table      string
	ParserMode string
	DedupVIN   bool
}

// SourceFromConfig builds a Source from dataset configuration
func SourceFromConfig(cfg config.DatasetConfig) Source {
	return Source{
		Kind:       cfg.Source,
		Path:       cfg.Path,
		URL:        cfg.URL,
		Table:      cfg.Table,
		ParserMode: cfg.ParserMode,
		DedupVIN:   cfg.DedupVIN,
	}
}

// Location returns the path, URL or "postgres:<table>" the source reads
func (s Source) Location() string {
	switch s.Kind {
	case config.SourceURL:
		return s.URL
	case config.SourcePostgres:
		return "postgres:" + s.Table
	default:
		return s.Path
	}
}

// LoadError represents a failure to retrieve or parse a dataset
type LoadError struct {
	Source string
	Stage  string
	Err    error
	// Transient is set for network and database failures worth retrying
	Transient bool
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load dataset from %s at %s stage: %v", e.Source, e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether retrying the load may succeed
func (e *LoadError) IsTransient() bool {
	return e.Transient
}

// IngestionResult contains the output of one dataset load
type IngestionResult struct {
	LoadID   string
	Source   string
	Headers  []string
	Records  []models.VehicleRecord
	RawRows  int
	Dropped  int
	Summary  models.NormalizeSummary
	Duration time.Duration
	LoadedAt time.Time
}

// IngestionService retrieves and normalizes registration datasets
type IngestionService struct {
	client  *http.Client
	repo    repository.VehicleSourceRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewIngestionService creates a new ingestion service. repo may be nil
// when the postgres source is not configured.
func NewIngestionService(client *http.Client, repo repository.VehicleSourceRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	if client == nil {
		client = http.DefaultClient
	}
	return &IngestionService{
		client:  client,
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Load retrieves, parses and normalizes the dataset described by src
func (s *IngestionService) Load(ctx context.Context, src Source) (*IngestionResult, error) {
	startTime := time.Now()
	loadID := uuid.NewString()
	ctx = logging.WithLoadID(ctx, loadID)

	s.logger.Info(ctx, "[INGEST_START] Starting dataset load", logging.Fields{
		"source_kind": src.Kind,
		"source":      src.Location(),
		"parser_mode": src.ParserMode,
		"dedup_vin":   src.DedupVIN,
		"stage":       "INITIALIZATION",
	})

	parsed, err := s.retrieve(ctx, src)
	if err != nil {
		s.metrics.RecordIngestionError(loadErrorType(err))
		s.logger.Error(ctx, "[INGEST_ERROR] Dataset load failed", logging.Fields{
			"source_kind": src.Kind,
			"source":      src.Location(),
		}, err)
		return nil, err
	}

	normalizer := models.NewNormalizer(parsed.Headers, models.NormalizerOptions{DedupVIN: src.DedupVIN})
	records, summary := normalizer.Normalize(parsed.Records)

	result := &IngestionResult{
		LoadID:   loadID,
		Source:   src.Location(),
		Headers:  parsed.Headers,
		Records:  records,
		RawRows:  parsed.Rows,
		Dropped:  parsed.Dropped,
		Summary:  summary,
		Duration: time.Since(startTime),
		LoadedAt: time.Now().UTC(),
	}

	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())
	s.metrics.RecordIngestedRows(len(records), parsed.Dropped, summary.DuplicatesDropped)
	s.metrics.RecordNormalizationDefaults(summary.RangeDefaulted, summary.YearMissing)
	s.metrics.DatasetRecords.Set(float64(len(records)))

	if summary.DuplicatesDropped > 0 {
		s.logger.Warn(ctx, "[INGEST_DUPLICATES] Duplicate VINs dropped", logging.Fields{
			"duplicates": summary.DuplicatesDropped,
		})
	}

	s.logger.Info(ctx, "[INGEST_COMPLETE] Dataset load completed", logging.Fields{
		"source":          result.Source,
		"raw_rows":        result.RawRows,
		"dropped_rows":    result.Dropped,
		"records":         len(records),
		"range_defaulted": summary.RangeDefaulted,
		"year_missing":    summary.YearMissing,
		"duration_ms":     result.Duration.Milliseconds(),
		"stage":           "COMPLETE",
	})

	return result, nil
}

// retrieve reads the source into raw records
func (s *IngestionService) retrieve(ctx context.Context, src Source) (*parser.ParseResult, error) {
	switch src.Kind {
	case config.SourceFile, "":
		file, err := os.Open(src.Path)
		if err != nil {
			return nil, &LoadError{Source: src.Path, Stage: "open", Err: err}
		}
		defer file.Close()
		return parse(file, src)

	case config.SourceURL:
		return s.fetch(ctx, src)

	case config.SourcePostgres:
		if s.repo == nil {
			return nil, errPostgresNotConfigured(src)
		}
		parsed, err := s.repo.LoadRawRecords(ctx)
		if err != nil {
			return nil, &LoadError{Source: src.Location(), Stage: "query", Err: err, Transient: true}
		}
		return parsed, nil
	}

	return nil, &LoadError{Source: src.Location(), Stage: "open", Err: fmt.Errorf("unknown source kind %q", src.Kind)}
}

// CheckSource probes the live dependency behind src. File and URL sources
// are only touched by Load, so they always report healthy here.
func (s *IngestionService) CheckSource(ctx context.Context, src Source) error {
	if src.Kind != config.SourcePostgres {
		return nil
	}
	if s.repo == nil {
		return errPostgresNotConfigured(src)
	}
	if err := s.repo.HealthCheck(ctx); err != nil {
		return &LoadError{Source: src.Location(), Stage: "health", Err: err, Transient: true}
	}
	return nil
}

func errPostgresNotConfigured(src Source) error {
	return &LoadError{Source: src.Location(), Stage: "open", Err: errors.New("postgres source not configured")}
}

// fetch performs a single GET; there is no retry
func (s *IngestionService) fetch(ctx context.Context, src Source) (*parser.ParseResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, &LoadError{Source: src.URL, Stage: "request", Err: err}
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &LoadError{Source: src.URL, Stage: "fetch", Err: err, Transient: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &LoadError{
			Source:    src.URL,
			Stage:     "fetch",
			Err:       fmt.Errorf("unexpected status %d", resp.StatusCode),
			Transient: resp.StatusCode >= 500,
		}
	}

	return parse(resp.Body, src)
}

// parse dispatches on the configured parser mode
func parse(r io.Reader, src Source) (*parser.ParseResult, error) {
	if src.ParserMode == config.ParserLegacy {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, &LoadError{Source: src.Location(), Stage: "read", Err: err}
		}
		return parser.ParseText(string(data)), nil
	}

	parsed, err := parser.ParseReader(r)
	if err != nil {
		return nil, &LoadError{Source: src.Location(), Stage: "parse", Err: err}
	}
	return parsed, nil
}

func loadErrorType(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Stage + "_error"
	}
	return "unknown_error"
}
