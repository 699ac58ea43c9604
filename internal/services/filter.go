package services

import (
	"strconv"
	"strings"

	"ev-dashboard/internal/models"
)

// ApplyFilter returns the records matching every constrained field of
// filter by exact equality. Year is compared as an integer; a year that
// does not parse matches nothing. An unconstrained filter returns records
// unchanged.
func ApplyFilter(records []models.VehicleRecord, filter models.FilterState) []models.VehicleRecord {
	if filter.IsEmpty() {
		return records
	}

	county, byCounty := constraint(filter.County)
	makeName, byMake := constraint(filter.Make)

	var year int
	yearStr, byYear := constraint(filter.Year)
	if byYear {
		y, err := strconv.Atoi(yearStr)
		if err != nil {
			return []models.VehicleRecord{}
		}
		year = y
	}

	result := make([]models.VehicleRecord, 0, len(records))
	for _, rec := range records {
		if byCounty && rec.County != county {
			continue
		}
		if byMake && rec.Make != makeName {
			continue
		}
		if byYear && (rec.Year == nil || *rec.Year != year) {
			continue
		}
		result = append(result, rec)
	}

	return result
}

func constraint(value string) (string, bool) {
	if models.IsAll(value) {
		return "", false
	}
	return strings.TrimSpace(value), true
}
