// Package config provides centralized configuration management for scorecli.
// It handles loading configuration from multiple sources, validation, and
// path resolution.
//
// # Configuration Sources
//
// Configuration is layered, later sources winning:
//
//	1. Default values (Default())
//	2. A YAML file (scorecli.yaml, config.yaml or configs/config.yaml)
//	3. Environment variables prefixed SCORE_
//
// Commands load a .env file into the environment before calling Load.
//
// # Environment Variables
//
//	SCORE_LOGGING_LEVEL=debug
//	SCORE_PATHS_DATA_DIR=/srv/scores
//	SCORE_ENGINE_WORKERS=4
//	SCORE_ENGINE_RETRY_EMPTY=false
//	SCORE_SERVER_PORT=8080
//	SCORE_TELEMETRY_TRACE_EXPORTER=stdout
//
// # Metrics
//
// The metrics list is YAML only:
//
//	metrics:
//	  - kind: s
//	    window: 20
//	  - kind: std
//	    window_std: 20
//	    window_mean: 20
//
// An empty list selects the default set (s20, s60, s120, z20, z60, z120, gap,
// std, quant).
//
// # File Map
//
// LoadFileMap reads the JSON object mapping a category to its workbook. The
// category prefix KR_ selects the Korean market.
package config
