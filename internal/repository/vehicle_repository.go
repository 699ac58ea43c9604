package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ev-dashboard/internal/config"
	"ev-dashboard/internal/parser"
	"ev-dashboard/pkg/database"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

// VehicleSourceRepository reads registration rows from a postgres table.
// It is a read-only source: rows come back in the same shape as parsed CSV.
type VehicleSourceRepository interface {
	LoadRawRecords(ctx context.Context) (*parser.ParseResult, error)
	CountRows(ctx context.Context) (int, error)
	HealthCheck(ctx context.Context) error
}

// vehicleSourceRepository implements VehicleSourceRepository
type vehicleSourceRepository struct {
	db      *database.PostgresDB
	table   string
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewVehicleSourceRepository creates a repository reading from table
func NewVehicleSourceRepository(db *database.PostgresDB, table string, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (VehicleSourceRepository, error) {
	if !config.ValidTableName(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}

	return &vehicleSourceRepository{
		db:      db,
		table:   table,
		logger:  logger,
		metrics: metricsCollector,
	}, nil
}

// LoadRawRecords reads every row of the table. Column names become headers;
// values are stringified and rows without a VIN are dropped.
func (r *vehicleSourceRepository) LoadRawRecords(ctx context.Context) (*parser.ParseResult, error) {
	timer := time.Now()

	query := fmt.Sprintf("SELECT * FROM %s", r.table)
	rows, err := r.db.QueryContext(ctx, "load_raw_records", query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", r.table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := parser.NewResult(columns)
	for rows.Next() {
		row := make(map[string]interface{}, len(columns))
		if err := rows.MapScan(row); err != nil {
			r.metrics.RecordDBError("scan_error")
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result.Add(rowValues(columns, row))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_LOAD_RAW] Source rows loaded", logging.Fields{
		"table":       r.table,
		"rows":        result.Rows,
		"kept":        len(result.Records),
		"dropped":     result.Dropped,
		"duration_ms": time.Since(timer).Milliseconds(),
	})

	return result, nil
}

// CountRows returns the number of rows in the source table
func (r *vehicleSourceRepository) CountRows(ctx context.Context) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", r.table)
	if err := r.db.GetContext(ctx, "count_rows", &count, query); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return count, nil
}

// HealthCheck performs a repository health check
func (r *vehicleSourceRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// rowValues orders a scanned row by columns and renders each value as text
func rowValues(columns []string, row map[string]interface{}) []string {
	values := make([]string, len(columns))
	for i, col := range columns {
		values[i] = strings.TrimSpace(stringify(row[col]))
	}
	return values
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}
