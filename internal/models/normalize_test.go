package models

import (
	"testing"
)

// TestNormalizer_ToVehicle tests field mapping and numeric coercion
func TestNormalizer_ToVehicle(t *testing.T) {
	headers := []string{"VIN", "County", "City", "State", "Model Year", "Make", "Model", "Electric Vehicle Type", "Electric Range"}

	tests := []struct {
		name        string
		headers     []string
		record      RawRecord
		checkValues func(*testing.T, VehicleRecord)
	}{
		{
			name:    "valid record with all values",
			headers: headers,
			record: RawRecord{
				"VIN":                   "5YJ3E1EA7K",
				"County":                "King",
				"City":                  "Seattle",
				"State":                 "WA",
				"Model Year":            "2020",
				"Make":                  "TESLA",
				"Model":                 "MODEL 3",
				"Electric Vehicle Type": "Battery Electric Vehicle (BEV)",
				"Electric Range":        "308",
			},
			checkValues: func(t *testing.T, v VehicleRecord) {
				if v.VIN != "5YJ3E1EA7K" {
					t.Errorf("VIN = %v, want %v", v.VIN, "5YJ3E1EA7K")
				}
				if v.Make != "TESLA" || v.Model != "MODEL 3" {
					t.Errorf("Make/Model = %v/%v, want TESLA/MODEL 3", v.Make, v.Model)
				}
				if v.Year == nil {
					t.Error("Year should not be nil")
				} else if *v.Year != 2020 {
					t.Errorf("Year = %v, want %v", *v.Year, 2020)
				}
				if v.ElectricRange != 308 {
					t.Errorf("ElectricRange = %v, want %v", v.ElectricRange, 308)
				}
				if v.Location() != "Seattle, King" {
					t.Errorf("Location() = %v, want %v", v.Location(), "Seattle, King")
				}
			},
		},
		{
			name:    "non-numeric electric range defaults to zero",
			headers: headers,
			record:  RawRecord{"VIN": "A1", "Model Year": "2019", "Electric Range": "unknown"},
			checkValues: func(t *testing.T, v VehicleRecord) {
				if v.ElectricRange != 0 {
					t.Errorf("ElectricRange = %v, want 0", v.ElectricRange)
				}
				if v.Year == nil || *v.Year != 2019 {
					t.Errorf("Year = %v, want 2019", v.Year)
				}
			},
		},
		{
			name:    "non-numeric model year is nil, not zero",
			headers: headers,
			record:  RawRecord{"VIN": "A1", "Model Year": "n/a", "Electric Range": "150"},
			checkValues: func(t *testing.T, v VehicleRecord) {
				if v.Year != nil {
					t.Errorf("Year = %v, want nil", *v.Year)
				}
				if v.ElectricRange != 150 {
					t.Errorf("ElectricRange = %v, want 150", v.ElectricRange)
				}
			},
		},
		{
			name:    "absent numeric columns",
			headers: headers,
			record:  RawRecord{"VIN": "A1"},
			checkValues: func(t *testing.T, v VehicleRecord) {
				if v.Year != nil {
					t.Error("Year should be nil when absent")
				}
				if v.ElectricRange != 0 {
					t.Errorf("ElectricRange = %v, want 0", v.ElectricRange)
				}
				if v.Make != "" {
					t.Errorf("Make = %q, want empty", v.Make)
				}
			},
		},
		{
			name:    "compact header names resolve to canonical columns",
			headers: []string{"VIN", "County", "Make", "Model", "ModelYear", "ElectricVehicleType", "ElectricRange"},
			record: RawRecord{
				"VIN":                 "A1",
				"County":              "King",
				"Make":                "TESLA",
				"Model":               "MODEL3",
				"ModelYear":           "2020",
				"ElectricVehicleType": "BEV",
				"ElectricRange":       "250",
			},
			checkValues: func(t *testing.T, v VehicleRecord) {
				if v.Year == nil || *v.Year != 2020 {
					t.Errorf("Year = %v, want 2020", v.Year)
				}
				if v.ElectricVehicleType != "BEV" {
					t.Errorf("ElectricVehicleType = %v, want BEV", v.ElectricVehicleType)
				}
				if v.ElectricRange != 250 {
					t.Errorf("ElectricRange = %v, want 250", v.ElectricRange)
				}
			},
		},
		{
			name:    "snake case header names resolve to canonical columns",
			headers: []string{"vin", "model_year", "electric_range"},
			record:  RawRecord{"vin": "A1", "model_year": "2018", "electric_range": "84"},
			checkValues: func(t *testing.T, v VehicleRecord) {
				if v.VIN != "A1" {
					t.Errorf("VIN = %v, want A1", v.VIN)
				}
				if v.Year == nil || *v.Year != 2018 {
					t.Errorf("Year = %v, want 2018", v.Year)
				}
				if v.ElectricRange != 84 {
					t.Errorf("ElectricRange = %v, want 84", v.ElectricRange)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNormalizer(tt.headers, NormalizerOptions{})
			tt.checkValues(t, n.ToVehicle(tt.record))
		})
	}
}

// TestNormalizer_Normalize tests ordering, the 1:1 contract and the summary
func TestNormalizer_Normalize(t *testing.T) {
	headers := []string{"VIN", "Model Year", "Electric Range"}
	raws := []RawRecord{
		{"VIN": "A1", "Model Year": "2020", "Electric Range": "250"},
		{"VIN": "A2", "Model Year": "bad", "Electric Range": "150"},
		{"VIN": "A1", "Model Year": "2021", "Electric Range": "x"},
	}

	t.Run("one record per raw record, in order", func(t *testing.T) {
		records, summary := NewNormalizer(headers, NormalizerOptions{}).Normalize(raws)
		if len(records) != len(raws) {
			t.Fatalf("len(records) = %d, want %d", len(records), len(raws))
		}
		for i, want := range []string{"A1", "A2", "A1"} {
			if records[i].VIN != want {
				t.Errorf("records[%d].VIN = %v, want %v", i, records[i].VIN, want)
			}
		}
		if summary.Records != 3 || summary.YearMissing != 1 || summary.RangeDefaulted != 1 || summary.DuplicatesDropped != 0 {
			t.Errorf("summary = %+v", summary)
		}
	})

	t.Run("dedup keeps the first-seen VIN", func(t *testing.T) {
		records, summary := NewNormalizer(headers, NormalizerOptions{DedupVIN: true}).Normalize(raws)
		if len(records) != 2 {
			t.Fatalf("len(records) = %d, want 2", len(records))
		}
		if records[0].Year == nil || *records[0].Year != 2020 {
			t.Errorf("first-seen record not kept: %+v", records[0])
		}
		if summary.DuplicatesDropped != 1 {
			t.Errorf("DuplicatesDropped = %d, want 1", summary.DuplicatesDropped)
		}
		if summary.RangeDefaulted != 0 {
			t.Errorf("RangeDefaulted = %d, want 0", summary.RangeDefaulted)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		records, summary := NewNormalizer(nil, NormalizerOptions{}).Normalize(nil)
		if len(records) != 0 || summary.Records != 0 {
			t.Errorf("expected empty output, got %d records", len(records))
		}
	})
}

// TestFilterState tests filter normalization and validation
func TestFilterState(t *testing.T) {
	if !NewFilterState().IsEmpty() {
		t.Error("NewFilterState() should be empty")
	}
	if !(FilterState{}).IsEmpty() {
		t.Error("zero FilterState should be empty")
	}
	if (FilterState{County: "King"}).IsEmpty() {
		t.Error("county filter should not be empty")
	}

	norm := FilterState{County: " King ", Make: "", Year: "ALL"}.Normalized()
	if norm.County != "King" || norm.Make != FilterAll || norm.Year != FilterAll {
		t.Errorf("Normalized() = %+v", norm)
	}

	if err := (FilterState{Year: "2020"}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	err := FilterState{Year: "twenty"}.Validate()
	if err == nil {
		t.Fatal("Validate() should reject a non-integer year")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if verr.Field != "year" || verr.IsTransient() {
		t.Errorf("unexpected validation error: %+v", verr)
	}
}

// TestDistribution_Total tests count summation
func TestDistribution_Total(t *testing.T) {
	d := Distribution{"TESLA": 3, "NISSAN": 2}
	if d.Total() != 5 {
		t.Errorf("Total() = %d, want 5", d.Total())
	}
	if (Distribution{}).Total() != 0 {
		t.Error("empty distribution should total 0")
	}
}

func TestResolveColumn(t *testing.T) {
	tests := []struct {
		headers   []string
		canonical string
		want      string
	}{
		{[]string{"VIN", "vin"}, "VIN", "VIN"},
		{[]string{"vin"}, "VIN", "vin"},
		{[]string{"Model_Year", "ModelYear"}, "Model Year", "Model_Year"},
		{[]string{"Make"}, "Electric Range", "Electric Range"},
		{nil, "VIN", "VIN"},
	}

	for _, tt := range tests {
		if got := ResolveColumn(tt.headers, tt.canonical); got != tt.want {
			t.Errorf("ResolveColumn(%v, %q) = %q, want %q", tt.headers, tt.canonical, got, tt.want)
		}
	}
}
