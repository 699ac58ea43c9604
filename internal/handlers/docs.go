package handlers

import (
	"encoding/json"
	"net/http"
)

func queryParam(name, description, typ string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    false,
		"schema":      map[string]string{"type": typ},
	}
}

var filterParams = []map[string]interface{}{
	queryParam("county", "Filter by county (exact match, \"all\" for none)", "string"),
	queryParam("make", "Filter by make (exact match, \"all\" for none)", "string"),
	queryParam("year", "Filter by model year (integer, \"all\" for none)", "string"),
}

func jsonResponse(description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": schema,
			},
		},
	}
}

var (
	vehicleSchema = map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"vin":                   map[string]string{"type": "string"},
			"make":                  map[string]string{"type": "string"},
			"model":                 map[string]string{"type": "string"},
			"year":                  map[string]interface{}{"type": "integer", "nullable": true},
			"electric_vehicle_type": map[string]string{"type": "string"},
			"electric_range":        map[string]string{"type": "integer"},
			"county":                map[string]string{"type": "string"},
			"city":                  map[string]string{"type": "string"},
			"state":                 map[string]string{"type": "string"},
		},
	}

	distributionSchema = map[string]interface{}{
		"type":                 "object",
		"additionalProperties": map[string]string{"type": "integer"},
	}

	statisticsSchema = map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"total_vehicles":      map[string]string{"type": "integer"},
			"unique_makes":        map[string]string{"type": "integer"},
			"unique_counties":     map[string]string{"type": "integer"},
			"avg_range":           map[string]string{"type": "number"},
			"make_distribution":   distributionSchema,
			"type_distribution":   distributionSchema,
			"county_distribution": distributionSchema,
			"year_distribution":   distributionSchema,
		},
	}

	chartSchema = map[string]interface{}{
		"type": "array",
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name":  map[string]string{"type": "string"},
				"value": map[string]string{"type": "integer"},
			},
		},
	}

	pageSchema = map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"records":     map[string]interface{}{"type": "array", "items": vehicleSchema},
			"total":       map[string]string{"type": "integer"},
			"page":        map[string]string{"type": "integer"},
			"limit":       map[string]string{"type": "integer"},
			"total_pages": map[string]string{"type": "integer"},
			"notice":      map[string]string{"type": "string"},
		},
	}

	statusSchema = map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"state":     map[string]interface{}{"type": "string", "enum": []string{"loading", "ready", "error"}},
			"load_id":   map[string]string{"type": "string"},
			"source":    map[string]string{"type": "string"},
			"records":   map[string]string{"type": "integer"},
			"loaded_at": map[string]string{"type": "string", "format": "date-time"},
			"error":     map[string]string{"type": "string"},
		},
	}

	errorSchema = map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"error":   map[string]string{"type": "string"},
			"message": map[string]string{"type": "string"},
			"code":    map[string]string{"type": "integer"},
		},
	}
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the EV Dashboard API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	notReady := jsonResponse("Dataset not loaded", errorSchema)
	badRequest := jsonResponse("Invalid filter or parameter", errorSchema)

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "EV Registration Dashboard API",
			"description": "Statistics and filtered views over electric vehicle registration datasets",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/dashboard": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get the dashboard",
					"description": "Current filter, statistics, charts, filter options and the first page of vehicles",
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", map[string]interface{}{"type": "object"}),
						"503": notReady,
					},
				},
			},
			"/api/dashboard/filter": map[string]interface{}{
				"put": map[string]interface{}{
					"summary":     "Change the dashboard filter",
					"description": "Replaces the current filter and recomputes statistics",
					"requestBody": map[string]interface{}{
						"required": true,
						"content": map[string]interface{}{
							"application/json": map[string]interface{}{
								"schema": map[string]interface{}{
									"type": "object",
									"properties": map[string]interface{}{
										"county": map[string]string{"type": "string"},
										"make":   map[string]string{"type": "string"},
										"year":   map[string]string{"type": "string"},
									},
								},
							},
						},
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Updated dashboard", map[string]interface{}{"type": "object"}),
						"400": badRequest,
						"503": notReady,
					},
				},
			},
			"/api/vehicles": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List vehicles",
					"description": "Filtered vehicle records with pagination",
					"parameters": append(append([]map[string]interface{}{}, filterParams...),
						queryParam("page", "Page number (default: 1)", "integer"),
						queryParam("limit", "Records per page (default: 10)", "integer"),
					),
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", pageSchema),
						"400": badRequest,
						"503": notReady,
					},
				},
			},
			"/api/stats": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get statistics",
					"description": "Aggregate statistics of the filtered subset",
					"parameters":  filterParams,
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"filter":     map[string]string{"type": "object"},
								"statistics": statisticsSchema,
							},
						}),
						"400": badRequest,
						"503": notReady,
					},
				},
			},
			"/api/charts/{dimension}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get chart data",
					"description": "Top-N chart series for a distribution",
					"parameters": append([]map[string]interface{}{
						{
							"name":     "dimension",
							"in":       "path",
							"required": true,
							"schema":   map[string]interface{}{"type": "string", "enum": []string{"make", "type", "county", "year"}},
						},
						queryParam("limit", "Number of entries (0 for all)", "integer"),
						queryParam("format", "points (default) or series", "string"),
					}, filterParams...),
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", chartSchema),
						"400": badRequest,
						"503": notReady,
					},
				},
			},
			"/api/filters": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get filter options",
					"description": "Sorted counties, makes and years of the full dataset",
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", map[string]interface{}{"type": "object"}),
						"503": notReady,
					},
				},
			},
			"/api/dataset/reload": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Reload the dataset",
					"description": "Re-reads the configured source and recomputes statistics with the current filter",
					"responses": map[string]interface{}{
						"200": jsonResponse("Reload succeeded", statusSchema),
						"502": jsonResponse("Reload failed", errorSchema),
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check if the API is running and report dataset state",
					"responses": map[string]interface{}{
						"200": jsonResponse("API is healthy", map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"status":  map[string]string{"type": "string"},
								"dataset": statusSchema,
							},
						}),
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
