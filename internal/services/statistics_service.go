package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"ev-dashboard/internal/models"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

// Dimension names a distribution of Statistics
type Dimension string

const (
	DimensionMake   Dimension = "make"
	DimensionType   Dimension = "type"
	DimensionCounty Dimension = "county"
	DimensionYear   Dimension = "year"
)

// Default chart sizes used by the dashboard; 0 keeps every entry
var defaultChartLimits = map[Dimension]int{
	DimensionMake:   6,
	DimensionType:   0,
	DimensionCounty: 8,
	DimensionYear:   0,
}

// ParseDimension validates a dimension name
func ParseDimension(s string) (Dimension, error) {
	switch d := Dimension(s); d {
	case DimensionMake, DimensionType, DimensionCounty, DimensionYear:
		return d, nil
	}
	return "", &models.ValidationError{
		Field:   "dimension",
		Value:   s,
		Message: "invalid dimension, expected make, type, county or year",
	}
}

// DefaultChartLimit returns the dashboard's top-N size for d
func DefaultChartLimit(d Dimension) int {
	return defaultChartLimits[d]
}

// CalculateStatistics aggregates records in a single pass. It has no hidden
// state and is safe on any subsequence, including an empty one.
func CalculateStatistics(records []models.VehicleRecord) *models.Statistics {
	stats := &models.Statistics{
		MakeDistribution:   models.Distribution{},
		TypeDistribution:   models.Distribution{},
		CountyDistribution: models.Distribution{},
		YearDistribution:   models.Distribution{},
	}

	totalRange := 0
	for _, rec := range records {
		stats.MakeDistribution[rec.Make]++
		stats.TypeDistribution[rec.ElectricVehicleType]++
		stats.CountyDistribution[rec.County]++
		if rec.Year != nil {
			stats.YearDistribution[strconv.Itoa(*rec.Year)]++
		}
		totalRange += rec.ElectricRange
	}

	stats.TotalVehicles = len(records)
	stats.UniqueMakes = len(stats.MakeDistribution)
	stats.UniqueCounties = len(stats.CountyDistribution)
	if stats.TotalVehicles > 0 {
		stats.AvgRange = float64(totalRange) / float64(stats.TotalVehicles)
	}

	return stats
}

// Distribution returns the distribution of stats for d
func Distribution(stats *models.Statistics, d Dimension) models.Distribution {
	if stats == nil {
		return models.Distribution{}
	}
	switch d {
	case DimensionMake:
		return stats.MakeDistribution
	case DimensionType:
		return stats.TypeDistribution
	case DimensionCounty:
		return stats.CountyDistribution
	case DimensionYear:
		return stats.YearDistribution
	}
	return models.Distribution{}
}

// ChartData turns a distribution into chart points. Years are ordered
// numerically, everything else by count descending then name. A positive
// limit keeps only the first limit points.
func ChartData(dist models.Distribution, d Dimension, limit int) []models.ChartPoint {
	points := make([]models.ChartPoint, 0, len(dist))
	for name, value := range dist {
		points = append(points, models.ChartPoint{Name: name, Value: value})
	}

	if d == DimensionYear {
		sort.Slice(points, func(i, j int) bool {
			yi, erri := strconv.Atoi(points[i].Name)
			yj, errj := strconv.Atoi(points[j].Name)
			if erri != nil || errj != nil || yi == yj {
				return points[i].Name < points[j].Name
			}
			return yi < yj
		})
	} else {
		sort.Slice(points, func(i, j int) bool {
			if points[i].Value != points[j].Value {
				return points[i].Value > points[j].Value
			}
			return points[i].Name < points[j].Name
		})
	}

	if limit > 0 && len(points) > limit {
		points = points[:limit]
	}
	return points
}

// ToSeries converts chart points to the {labels, values} shape
func ToSeries(points []models.ChartPoint) models.ChartSeries {
	series := models.ChartSeries{
		Labels: make([]string, len(points)),
		Values: make([]int, len(points)),
	}
	for i, p := range points {
		series.Labels[i] = p.Name
		series.Values[i] = p.Value
	}
	return series
}

// FilterOptions lists the selectable values of each filter dropdown
type FilterOptions struct {
	Counties []string `json:"counties"`
	Makes    []string `json:"makes"`
	Years    []string `json:"years"`
}

// BuildFilterOptions returns the sorted keys of the county, make and year
// distributions
func BuildFilterOptions(stats *models.Statistics) FilterOptions {
	return FilterOptions{
		Counties: sortedKeys(Distribution(stats, DimensionCounty)),
		Makes:    sortedKeys(Distribution(stats, DimensionMake)),
		Years:    sortedKeys(Distribution(stats, DimensionYear)),
	}
}

func sortedKeys(d models.Distribution) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StatisticsService recomputes dashboard state and records its cost
type StatisticsService struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewStatisticsService creates a new statistics service
func NewStatisticsService(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *StatisticsService {
	return &StatisticsService{
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Compute filters records and aggregates both the full and the filtered set
func (s *StatisticsService) Compute(ctx context.Context, records []models.VehicleRecord, filter models.FilterState, trigger string) *DashboardState {
	timer := s.metrics.NewTimer(s.metrics.RecomputeDuration.WithLabelValues(trigger))
	state := Recompute(records, filter)
	duration := timer.ObserveDuration()

	s.logger.Debug(ctx, "[STATS_RECOMPUTE] Statistics recomputed", logging.Fields{
		"trigger":        trigger,
		"total_records":  len(records),
		"filtered_count": len(state.Filtered),
		"filter":         fmt.Sprintf("%+v", state.Filter),
		"duration_ms":    duration.Milliseconds(),
	})

	return state
}
