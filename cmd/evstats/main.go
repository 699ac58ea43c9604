package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"ev-dashboard/internal/config"
	"ev-dashboard/internal/models"
	"ev-dashboard/internal/services"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Parse command-line flags, defaulting to the configured dataset
	file := flag.String("file", cfg.Dataset.Path, "Registration CSV file")
	url := flag.String("url", "", "Fetch the CSV from this URL instead of -file")
	legacy := flag.Bool("legacy", cfg.Dataset.ParserMode == config.ParserLegacy, "Use the plain comma-split parser")
	dedup := flag.Bool("dedup", cfg.Dataset.DedupVIN, "Drop records with a repeated VIN")
	county := flag.String("county", models.FilterAll, "County filter")
	makeName := flag.String("make", models.FilterAll, "Make filter")
	year := flag.String("year", models.FilterAll, "Model year filter")
	rows := flag.Int("rows", 10, "Number of vehicle rows to print")
	flag.Parse()

	logger := logging.NewStructuredLogger("ev-stats", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	logger.SetOutput(os.Stderr)
	metricsCollector := metrics.NewCollector("ev_stats", prometheus.NewRegistry())

	src := services.Source{Kind: config.SourceFile, Path: *file, ParserMode: config.ParserCSV, DedupVIN: *dedup}
	if *url != "" {
		src.Kind = config.SourceURL
		src.URL = *url
	}
	if *legacy {
		src.ParserMode = config.ParserLegacy
	}

	filter := models.FilterState{County: *county, Make: *makeName, Year: *year}
	if err := filter.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid filter: %v\n", err)
		os.Exit(2)
	}

	ctx := context.Background()
	ingestionService := services.NewIngestionService(nil, nil, logger, metricsCollector)
	result, err := ingestionService.Load(ctx, src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load failed: %v\n", err)
		os.Exit(1)
	}

	state := services.Recompute(result.Records, filter)
	stats := state.Statistics

	fmt.Println(strings.Repeat("=", 64))
	fmt.Println("DATASET")
	fmt.Println(strings.Repeat("=", 64))
	fmt.Printf("Source:             %s\n", result.Source)
	fmt.Printf("Data lines:         %d\n", result.RawRows)
	fmt.Printf("Dropped (no VIN):   %d\n", result.Dropped)
	fmt.Printf("Duplicates dropped: %d\n", result.Summary.DuplicatesDropped)
	fmt.Printf("Records:            %d\n", len(result.Records))
	fmt.Printf("Range defaulted:    %d\n", result.Summary.RangeDefaulted)
	fmt.Printf("Year missing:       %d\n", result.Summary.YearMissing)
	fmt.Printf("Load time:          %v\n", result.Duration)

	fmt.Println()
	fmt.Println(strings.Repeat("=", 64))
	fmt.Printf("STATISTICS (county=%s make=%s year=%s)\n", state.Filter.County, state.Filter.Make, state.Filter.Year)
	fmt.Println(strings.Repeat("=", 64))
	fmt.Printf("Total vehicles:     %d\n", stats.TotalVehicles)
	fmt.Printf("Unique makes:       %d\n", stats.UniqueMakes)
	fmt.Printf("Unique counties:    %d\n", stats.UniqueCounties)
	fmt.Printf("Average range:      %.1f mi\n", stats.AvgRange)

	for _, dim := range []services.Dimension{
		services.DimensionMake,
		services.DimensionType,
		services.DimensionCounty,
		services.DimensionYear,
	} {
		dist := services.Distribution(stats, dim)
		printChart(dim, services.ChartData(dist, dim, services.DefaultChartLimit(dim)), dist.Total())
	}

	page := services.Paginate(state.Filtered, 1, *rows)
	fmt.Println()
	fmt.Println(strings.Repeat("=", 64))
	fmt.Println("VEHICLES")
	fmt.Println(strings.Repeat("=", 64))
	for _, v := range page.Records {
		modelYear := "-"
		if v.Year != nil {
			modelYear = fmt.Sprintf("%d", *v.Year)
		}
		fmt.Printf("%-12s %-12s %-16s %-5s %-45s %4d  %s\n",
			v.VIN, v.Make, v.Model, modelYear, v.ElectricVehicleType, v.ElectricRange, v.Location())
	}
	if page.Notice != "" {
		fmt.Println(page.Notice)
	}
}

// printChart lists points with their share of the whole distribution
func printChart(dim services.Dimension, points []models.ChartPoint, total int) {
	fmt.Printf("\n  By %s (%d counted):\n", dim, total)
	if len(points) == 0 {
		fmt.Println("    (none)")
		return
	}
	for _, p := range points {
		fmt.Printf("    %-40s %6d  %5.1f%%\n", p.Name, p.Value, 100*float64(p.Value)/float64(total))
	}
}
