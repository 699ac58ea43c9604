package services

import (
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"ev-dashboard/internal/models"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

const exampleCSV = "VIN,County,Make,Model,ModelYear,ElectricVehicleType,ElectricRange\n" +
	"A1,King,TESLA,MODEL3,2020,BEV,250\n" +
	"A2,King,NISSAN,LEAF,2019,BEV,150\n" +
	",,,,,,\n"

func newTestDeps(t *testing.T) (*logging.StructuredLogger, *metrics.Collector) {
	t.Helper()

	logger := logging.NewStructuredLogger("ev-test", "test", logging.DebugLevel)
	logger.SetOutput(io.Discard)
	return logger, metrics.NewCollector("ev_test", prometheus.NewRegistry())
}

func intPtr(v int) *int {
	return &v
}

func sampleRecords() []models.VehicleRecord {
	return []models.VehicleRecord{
		{VIN: "V1", Make: "TESLA", Model: "MODEL 3", Year: intPtr(2020), ElectricVehicleType: "BEV", ElectricRange: 308, County: "King", City: "Seattle", State: "WA"},
		{VIN: "V2", Make: "TESLA", Model: "MODEL Y", Year: intPtr(2021), ElectricVehicleType: "BEV", ElectricRange: 0, County: "King", City: "Bellevue", State: "WA"},
		{VIN: "V3", Make: "NISSAN", Model: "LEAF", Year: intPtr(2020), ElectricVehicleType: "BEV", ElectricRange: 150, County: "Snohomish", City: "Everett", State: "WA"},
		{VIN: "V4", Make: "TOYOTA", Model: "PRIUS PRIME", Year: nil, ElectricVehicleType: "PHEV", ElectricRange: 25, County: "Pierce", City: "Tacoma", State: "WA"},
		{VIN: "V5", Make: "TESLA", Model: "MODEL S", Year: intPtr(2020), ElectricVehicleType: "BEV", ElectricRange: 337, County: "Snohomish", City: "Lynnwood", State: "WA"},
	}
}
