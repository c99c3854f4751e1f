package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"scorecli/pkg/contracts"
)

// HealthService provides health check functionality
type HealthService struct {
	dataDir   string
	files     map[string]string
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a health service over the data directory and the
// configured category files.
func NewHealthService(dataDir string, files map[string]string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		dataDir:   dataDir,
		files:     files,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   contracts.Version,
	}
	hs.logger.DebugContext(ctx, "health check", slog.String("uptime", time.Since(hs.startTime).String()))
	return status
}

// ReadinessCheck reports not_ready while the data directory is unusable or
// no category files are configured.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services: map[string]ServiceHealth{
			"data":  hs.checkDataHealth(),
			"files": hs.checkFilesHealth(),
		},
	}

	for name, sh := range status.Services {
		if sh.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "service not ready",
				slog.String("name", name),
				slog.String("message", sh.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":      info.Version,
		"stage":        info.Stage,
		"build_time":   info.BuildTime,
		"git_commit":   info.GitCommit,
		"go_version":   info.GoVersion,
		"os":           info.OS,
		"arch":         info.Architecture,
		"sheet_format": info.SheetFormat,
		"api_version":  info.APIVersion,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
	}
}

func (hs *HealthService) checkDataHealth() ServiceHealth {
	if hs.dataDir == "" {
		return ServiceHealth{Status: "ready", Message: "no data directory configured"}
	}
	info, err := os.Stat(hs.dataDir)
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("data directory: %v", err)}
	}
	if !info.IsDir() {
		return ServiceHealth{Status: "not_ready", Message: "data path is not a directory"}
	}
	return ServiceHealth{Status: "ready", Uptime: time.Since(hs.startTime).String()}
}

func (hs *HealthService) checkFilesHealth() ServiceHealth {
	if len(hs.files) == 0 {
		return ServiceHealth{Status: "not_ready", Message: "no category files configured"}
	}
	return ServiceHealth{Status: "ready", Message: fmt.Sprintf("%d categories", len(hs.files))}
}
