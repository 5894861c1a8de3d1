package app

import (
	"context"
	"errors"
	"sync"

	"gopherai-notebook/internal/logger"
	"gopherai-notebook/internal/model"
)

const flowModule = "notebook_flow"

type FlowPhase string

const (
	FlowCollecting FlowPhase = "collecting"
	FlowSubmitting FlowPhase = "submitting"
	FlowCompleted  FlowPhase = "completed"
	FlowCancelled  FlowPhase = "cancelled"
)

type FlowStatus struct {
	ID       string                  `json:"id"`
	Phase    FlowPhase               `json:"phase"`
	Progress model.ProgressState     `json:"progress"`
	Notebook *model.Notebook         `json:"notebook,omitempty"`
	Result   *model.SubmissionResult `json:"result,omitempty"`
}

// NotebookFlow is one isolated notebook creation attempt. Every flow owns its
// own collector, progress reporter and submitter.
type NotebookFlow struct {
	id        string
	collector *SourceCollector
	progress  *ProgressReporter
	submitter *SessionSubmitter
	registry  *NotebookRegistry
	logger    logger.Logger

	mu       sync.Mutex
	phase    FlowPhase
	notebook *model.Notebook
	result   *model.SubmissionResult
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewNotebookFlow(
	id string,
	client SubmissionClient,
	registry *NotebookRegistry,
	log logger.Logger,
	progressOpts ...ProgressOption,
) *NotebookFlow {
	if log == nil {
		log = logger.NewNop()
	}
	progress := NewProgressReporter(progressOpts...)
	return &NotebookFlow{
		id:        id,
		collector: NewSourceCollector(),
		progress:  progress,
		submitter: NewSessionSubmitter(client, progress, log),
		registry:  registry,
		logger:    log,
		phase:     FlowCollecting,
		done:      make(chan struct{}),
	}
}

func (f *NotebookFlow) ID() string {
	return f.id
}

func (f *NotebookFlow) Collector() *SourceCollector {
	return f.collector
}

func (f *NotebookFlow) Progress() *ProgressReporter {
	return f.progress
}

// Done is closed once the flow reaches a terminal phase.
func (f *NotebookFlow) Done() <-chan struct{} {
	return f.done
}

// Start submits the collected sources in the background and registers the
// resulting notebook. The flow outlives ctx's cancellation; use Cancel to
// abandon it.
func (f *NotebookFlow) Start(ctx context.Context, title string) error {
	if f.collector.IsEmpty() {
		return ErrNoSources
	}
	f.mu.Lock()
	if f.phase != FlowCollecting {
		f.mu.Unlock()
		return ErrFlowStarted
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f.phase = FlowSubmitting
	f.cancel = cancel
	f.mu.Unlock()

	go f.run(runCtx, title)
	return nil
}

// Run is the blocking form of Start.
func (f *NotebookFlow) Run(ctx context.Context, title string) (FlowStatus, error) {
	if err := f.Start(ctx, title); err != nil {
		return f.Status(), err
	}
	select {
	case <-f.done:
		return f.Status(), nil
	case <-ctx.Done():
		f.Cancel()
		return f.Status(), ctx.Err()
	}
}

func (f *NotebookFlow) run(ctx context.Context, title string) {
	result, err := f.submitter.Submit(ctx, f.collector)
	if err != nil {
		if !errors.Is(err, ErrDiscarded) && !errors.Is(err, ErrSubmitterClosed) {
			f.logger.Error(flowModule, "submission rejected", map[string]interface{}{
				"flow_id": f.id,
				"error":   err,
			})
		}
		f.finish(FlowCancelled, nil, nil)
		return
	}

	notebook := f.registry.Create(ctx, title, result)
	if !f.finish(FlowCompleted, &notebook, result) {
		f.logger.Debug(flowModule, "dropped notebook of cancelled flow", map[string]interface{}{
			"flow_id":     f.id,
			"notebook_id": notebook.ID,
		})
		return
	}
	f.logger.Info(flowModule, "notebook ready", map[string]interface{}{
		"flow_id":      f.id,
		"notebook_id":  notebook.ID,
		"source_count": notebook.SourceCount,
		"local":        notebook.Local,
	})
}

// finish moves the flow to a terminal phase once. It reports false when the
// flow had already ended, e.g. because it was cancelled.
func (f *NotebookFlow) finish(phase FlowPhase, notebook *model.Notebook, result *model.SubmissionResult) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase == FlowCompleted || f.phase == FlowCancelled {
		return false
	}
	f.phase = phase
	f.notebook = notebook
	f.result = result
	if f.cancel != nil {
		f.cancel()
	}
	close(f.done)
	return true
}

func (f *NotebookFlow) Status() FlowStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FlowStatus{
		ID:       f.id,
		Phase:    f.phase,
		Progress: f.progress.State(),
		Notebook: f.notebook,
		Result:   f.result,
	}
}

// Cancel tears the flow down and moves it to FlowCancelled at once. Work
// still in flight is abandoned and its outcome discarded.
func (f *NotebookFlow) Cancel() {
	f.submitter.Close()
	f.finish(FlowCancelled, nil, nil)
}
