package app

import (
	"context"
	"fmt"
	"time"

	"nilscript/internal/shared/util"
)

type HealthStatus struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	HeapAllocMB uint64            `json:"heap_alloc_mb"`
	Components  map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:      "up",
		Timestamp:   time.Now().UTC(),
		HeapAllocMB: util.HeapAllocMB(),
		Components:  make(map[string]string),
	}

	last, err := s.app.LastBuild()
	switch {
	case err != nil:
		status.Status = "degraded"
		status.Components["build"] = fmt.Sprintf("error: %v", err)
	case last == nil:
		status.Components["build"] = "pending"
	case last.Result.Failed():
		status.Status = "degraded"
		status.Components["build"] = fmt.Sprintf("failing (%d errors, %d files)", len(last.Result.Errors), last.Files)
	default:
		status.Components["build"] = fmt.Sprintf("ok (%d files, %d warnings)", last.Files, len(last.Result.Warnings))
	}

	if s.app.Store() != nil {
		status.Components["symbol_store"] = "ok"
	} else if s.app.Config.DB.Enabled {
		status.Status = "degraded"
		status.Components["symbol_store"] = "missing but enabled in config"
	}

	return status
}
