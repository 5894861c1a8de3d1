package model

type ProgressPhase string

const (
	ProgressIdle      ProgressPhase = "idle"
	ProgressRunning   ProgressPhase = "running"
	ProgressCompleted ProgressPhase = "completed"
)

type ProgressState struct {
	Phase ProgressPhase `json:"phase"`
	Value int           `json:"value"`
}
