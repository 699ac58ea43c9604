package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Canonical CSV column names consumed by the normalizer
const (
	ColumnVIN                 = "VIN"
	ColumnCounty              = "County"
	ColumnCity                = "City"
	ColumnState               = "State"
	ColumnModelYear           = "Model Year"
	ColumnMake                = "Make"
	ColumnModel               = "Model"
	ColumnElectricVehicleType = "Electric Vehicle Type"
	ColumnElectricRange       = "Electric Range"
)

// FilterAll disables a FilterState field
const FilterAll = "all"

// RawRecord maps a CSV header to its trimmed value for one data line.
// A null value (missing or empty field) is represented by an absent key.
type RawRecord map[string]string

// Get returns the value stored under column and whether it was present
func (r RawRecord) Get(column string) (string, bool) {
	v, ok := r[column]
	return v, ok
}

// VehicleRecord is a normalized registration record. Identity is VIN.
// Year is nil when the model year column could not be parsed.
type VehicleRecord struct {
	VIN                 string `json:"vin" db:"vin"`
	Make                string `json:"make" db:"make"`
	Model               string `json:"model" db:"model"`
	Year                *int   `json:"year" db:"model_year"`
	ElectricVehicleType string `json:"electric_vehicle_type" db:"electric_vehicle_type"`
	ElectricRange       int    `json:"electric_range" db:"electric_range"`
	County              string `json:"county" db:"county"`
	City                string `json:"city" db:"city"`
	State               string `json:"state" db:"state"`
}

// Location renders "City, County" the way the vehicle table shows it
func (v VehicleRecord) Location() string {
	return fmt.Sprintf("%s, %s", v.City, v.County)
}

// Distribution maps a category value to its occurrence count
type Distribution map[string]int

// Total returns the sum of all counts
func (d Distribution) Total() int {
	total := 0
	for _, n := range d {
		total += n
	}
	return total
}

// Statistics is an aggregate snapshot derived from a sequence of VehicleRecord
type Statistics struct {
	TotalVehicles      int          `json:"total_vehicles"`
	UniqueMakes        int          `json:"unique_makes"`
	UniqueCounties     int          `json:"unique_counties"`
	AvgRange           float64      `json:"avg_range"`
	MakeDistribution   Distribution `json:"make_distribution"`
	TypeDistribution   Distribution `json:"type_distribution"`
	CountyDistribution Distribution `json:"county_distribution"`
	YearDistribution   Distribution `json:"year_distribution"`
}

// ChartPoint is a single {name, value} entry of a chart series
type ChartPoint struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// ChartSeries is the {labels, values} chart shape
type ChartSeries struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
}

// FilterState is the current filter selection. Each field is either
// FilterAll (or empty) for no constraint, or a value to match exactly.
type FilterState struct {
	County string `json:"county"`
	Make   string `json:"make"`
	Year   string `json:"year"`
}

// NewFilterState returns a filter with every field set to FilterAll
func NewFilterState() FilterState {
	return FilterState{County: FilterAll, Make: FilterAll, Year: FilterAll}
}

// IsAll reports whether a filter field places no constraint
func IsAll(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || strings.EqualFold(v, FilterAll)
}

// IsEmpty reports whether no field of the filter is constrained
func (f FilterState) IsEmpty() bool {
	return IsAll(f.County) && IsAll(f.Make) && IsAll(f.Year)
}

// Normalized returns a copy with unconstrained fields set to FilterAll
// and constrained fields trimmed
func (f FilterState) Normalized() FilterState {
	norm := func(v string) string {
		if IsAll(v) {
			return FilterAll
		}
		return strings.TrimSpace(v)
	}
	return FilterState{County: norm(f.County), Make: norm(f.Make), Year: norm(f.Year)}
}

// Validate rejects a year selection that is not an integer
func (f FilterState) Validate() error {
	if IsAll(f.Year) {
		return nil
	}
	if _, err := strconv.Atoi(strings.TrimSpace(f.Year)); err != nil {
		return &ValidationError{
			Field:   "year",
			Value:   f.Year,
			Message: "invalid year, expected an integer or \"all\"",
		}
	}
	return nil
}

// ValidationError represents a request validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
