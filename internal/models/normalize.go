package models

import (
	"strconv"
	"strings"
)

// NormalizerOptions configures record normalization
type NormalizerOptions struct {
	// DedupVIN drops every record whose VIN was already seen (first-seen wins)
	DedupVIN bool
}

// NormalizeSummary reports how many fields fell back to their defaults
type NormalizeSummary struct {
	Records           int `json:"records"`
	RangeDefaulted    int `json:"range_defaulted"`
	YearMissing       int `json:"year_missing"`
	DuplicatesDropped int `json:"duplicates_dropped"`
}

// Normalizer maps RawRecord values into VehicleRecord using the canonical
// column mapping. Columns are resolved against the actual header once.
type Normalizer struct {
	columns map[string]string
	opts    NormalizerOptions
}

var canonicalColumns = []string{
	ColumnVIN,
	ColumnCounty,
	ColumnCity,
	ColumnState,
	ColumnModelYear,
	ColumnMake,
	ColumnModel,
	ColumnElectricVehicleType,
	ColumnElectricRange,
}

// NewNormalizer resolves canonical columns against headers once
func NewNormalizer(headers []string, opts NormalizerOptions) *Normalizer {
	columns := make(map[string]string, len(canonicalColumns))
	for _, canonical := range canonicalColumns {
		columns[canonical] = ResolveColumn(headers, canonical)
	}
	return &Normalizer{columns: columns, opts: opts}
}

// ResolveColumn finds the header holding canonical. An exact match wins;
// otherwise headers are compared ignoring case, spaces and underscores.
// When nothing matches, canonical itself is returned.
func ResolveColumn(headers []string, canonical string) string {
	want := foldColumn(canonical)
	match := ""
	for _, h := range headers {
		if h == canonical {
			return h
		}
		if match == "" && foldColumn(h) == want {
			match = h
		}
	}
	if match == "" {
		return canonical
	}
	return match
}

// Normalize converts raws in order. Without DedupVIN every raw record
// yields exactly one VehicleRecord.
func (n *Normalizer) Normalize(raws []RawRecord) ([]VehicleRecord, NormalizeSummary) {
	summary := NormalizeSummary{}
	records := make([]VehicleRecord, 0, len(raws))

	var seen map[string]struct{}
	if n.opts.DedupVIN {
		seen = make(map[string]struct{}, len(raws))
	}

	for _, raw := range raws {
		rec := n.ToVehicle(raw)

		if seen != nil {
			if _, dup := seen[rec.VIN]; dup {
				summary.DuplicatesDropped++
				continue
			}
			seen[rec.VIN] = struct{}{}
		}

		if rec.Year == nil {
			summary.YearMissing++
		}
		if _, ok := parseInt(n.value(raw, ColumnElectricRange)); !ok {
			summary.RangeDefaulted++
		}
		records = append(records, rec)
	}

	summary.Records = len(records)
	return records, summary
}

// ToVehicle converts a single raw record. An unparsable model year becomes
// nil, an unparsable electric range becomes 0.
func (n *Normalizer) ToVehicle(raw RawRecord) VehicleRecord {
	rec := VehicleRecord{
		VIN:                 n.value(raw, ColumnVIN),
		Make:                n.value(raw, ColumnMake),
		Model:               n.value(raw, ColumnModel),
		ElectricVehicleType: n.value(raw, ColumnElectricVehicleType),
		County:              n.value(raw, ColumnCounty),
		City:                n.value(raw, ColumnCity),
		State:               n.value(raw, ColumnState),
	}

	if year, ok := parseInt(n.value(raw, ColumnModelYear)); ok {
		rec.Year = &year
	}

	if rng, ok := parseInt(n.value(raw, ColumnElectricRange)); ok {
		rec.ElectricRange = rng
	}

	return rec
}

func (n *Normalizer) value(raw RawRecord, canonical string) string {
	v, _ := raw.Get(n.columns[canonical])
	return v
}

func parseInt(s string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return v, true
}

func foldColumn(s string) string {
	r := strings.NewReplacer(" ", "", "_", "", "\t", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(s)))
}
