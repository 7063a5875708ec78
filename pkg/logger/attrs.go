package logger

import "log/slog"

// Attribute keys shared by pipeline records so a JSON log can be filtered
// per run and per stage.
const (
	StageKey = "stage"
	RunKey   = "run_id"
)

// ForStage returns l with the stage attribute bound.
func ForStage(l *slog.Logger, stage string) *slog.Logger {
	return l.With(StageKey, stage)
}

// ForRun returns l with the index run ID bound.
func ForRun(l *slog.Logger, runID string) *slog.Logger {
	return l.With(RunKey, runID)
}
