package config

import "time"

// Application constants
const (
	// Application Info
	AppName    = "scorecli"
	AppVersion = "1.0.0"

	// Rate Limiting
	DefaultRateLimit = 20 // requests per second
	DefaultBurstSize = 40

	// File Paths (relative to the base directory)
	DefaultDataDir    = "data"
	DefaultReportsDir = "data/reports"
	DefaultLogsDir    = "logs"
	DefaultFileMap    = "stock_file_map.json"

	// Operation Timeouts
	DefaultHTTPTimeout      = 30 * time.Second
	DefaultOperationTimeout = 2 * time.Hour

	// API Endpoints
	APIBasePath     = "/api"
	HealthEndpoint  = "/api/health"
	VersionEndpoint = "/api/version"
	MetricsEndpoint = "/metrics"
)
