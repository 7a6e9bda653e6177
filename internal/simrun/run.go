// Package simrun persists completed simulation runs and makes them
// queryable by id, the durable counterpart to the original tool's
// timestamped-file-only history.
package simrun

import (
	"time"

	"github.com/google/uuid"

	"github.com/ubi-africa/ridesim/internal/simcore"
	"github.com/ubi-africa/ridesim/internal/simreport"
)

// Run is one complete execution of the tick loop for a given configuration
// and seed (§3.1 Supplemented data).
type Run struct {
	ID         uuid.UUID               `json:"id"`
	Config     simcore.SimulatorConfig `json:"config"`
	Seed       int64                   `json:"seed"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Metrics    simreport.MetricsReport `json:"metrics"`
}

// FromResult builds a persistable Run from a simcore.RunResult and its
// computed metrics report.
func FromResult(config simcore.SimulatorConfig, result simcore.RunResult, metrics simreport.MetricsReport) Run {
	return Run{
		ID:         result.ID,
		Config:     config,
		Seed:       result.Seed,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Metrics:    metrics,
	}
}
