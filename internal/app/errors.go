package app

import "errors"

var (
	ErrNoSources          = errors.New("no sources to submit")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrSubmitterClosed    = errors.New("submitter is closed")
	ErrDiscarded          = errors.New("response discarded after teardown")

	ErrEmptyQuery         = errors.New("query is empty")
	ErrQueryInFlight      = errors.New("a query is already in flight")
	ErrOrchestratorClosed = errors.New("chat orchestrator is closed")

	ErrFlowStarted = errors.New("notebook flow already started")
)
