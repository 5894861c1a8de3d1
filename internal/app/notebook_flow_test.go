package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-notebook/internal/model"
)

func TestNotebookFlowRunCompletes(t *testing.T) {
	fake := &fakeIngest{createResult: &model.SubmissionResult{
		SessionID:           "sess-flow",
		SuccessfulDocuments: []model.DocumentRef{{Path: "plain_text"}},
	}}
	registry := NewNotebookRegistry(fake, nil)
	flow := NewNotebookFlow("flow-1", fake, registry, nil, WithTickInterval(time.Millisecond))
	flow.Collector().Add(model.NewTextSource("content"))

	status, err := flow.Run(context.Background(), "My notebook")
	require.NoError(t, err)
	assert.Equal(t, FlowCompleted, status.Phase)
	require.NotNil(t, status.Notebook)
	assert.Equal(t, "sess-flow", status.Notebook.ID)
	assert.Equal(t, "My notebook", status.Notebook.Title)
	assert.Equal(t, 1, status.Notebook.SourceCount)
	assert.Equal(t, 100, status.Progress.Value)

	_, err = flow.Run(context.Background(), "again")
	assert.Error(t, err)
}

func TestNotebookFlowDegradesToLocalNotebook(t *testing.T) {
	fake := &fakeIngest{createErr: errors.New("offline")}
	flow := NewNotebookFlow("flow-2", fake, NewNotebookRegistry(fake, nil), nil)
	flow.Collector().Add(model.NewURLSource("https://a.example"))

	status, err := flow.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, FlowCompleted, status.Phase)
	require.NotNil(t, status.Notebook)
	assert.True(t, status.Notebook.Local)
	require.NotNil(t, status.Result)
	require.Len(t, status.Result.FailedDocuments, 1)
}

func TestNotebookFlowRequiresSources(t *testing.T) {
	fake := &fakeIngest{}
	flow := NewNotebookFlow("flow-3", fake, NewNotebookRegistry(fake, nil), nil)

	assert.ErrorIs(t, flow.Start(context.Background(), "x"), ErrNoSources)
	assert.Equal(t, FlowCollecting, flow.Status().Phase)
}

func TestNotebookFlowCancelWhileSubmitting(t *testing.T) {
	fake := newBlockingIngest()
	fake.createResult = &model.SubmissionResult{SessionID: "never"}
	flow := NewNotebookFlow("flow-4", fake, NewNotebookRegistry(fake, nil), nil)
	flow.Collector().Add(model.NewTextSource("x"))

	require.NoError(t, flow.Start(context.Background(), "t"))
	<-fake.started
	flow.Cancel()
	close(fake.release)

	select {
	case <-flow.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("flow did not finish")
	}
	status := flow.Status()
	assert.Equal(t, FlowCancelled, status.Phase)
	assert.Nil(t, status.Notebook)
}

func TestNotebookFlowCancelWhileRegistering(t *testing.T) {
	fake := &fakeIngest{
		createResult: &model.SubmissionResult{SessionID: "sess-late"},
		infoStarted:  make(chan struct{}, 1),
		infoRelease:  make(chan struct{}),
		infoDone:     make(chan error, 1),
	}
	flow := NewNotebookFlow("flow-6", fake, NewNotebookRegistry(fake, nil), nil)
	flow.Collector().Add(model.NewTextSource("x"))

	require.NoError(t, flow.Start(context.Background(), "t"))
	select {
	case <-fake.infoStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("registry never asked for session info")
	}
	flow.Cancel()

	select {
	case <-flow.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("flow did not finish")
	}
	select {
	case err := <-fake.infoDone:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("session info call was not cancelled")
	}
	require.Never(t, func() bool {
		return flow.Status().Phase != FlowCancelled
	}, 100*time.Millisecond, 5*time.Millisecond)
	status := flow.Status()
	assert.Nil(t, status.Notebook)
	assert.Nil(t, status.Result)
}

func TestNotebookFlowCancelBeforeStart(t *testing.T) {
	fake := &fakeIngest{}
	flow := NewNotebookFlow("flow-5", fake, NewNotebookRegistry(fake, nil), nil)
	flow.Cancel()

	<-flow.Done()
	assert.Equal(t, FlowCancelled, flow.Status().Phase)
}

func TestNotebookFlowsAreIsolated(t *testing.T) {
	fake := &fakeIngest{createResult: &model.SubmissionResult{SessionID: "s"}}
	registry := NewNotebookRegistry(fake, nil)
	a := NewNotebookFlow("a", fake, registry, nil)
	b := NewNotebookFlow("b", fake, registry, nil)

	a.Collector().Add(model.NewTextSource("only in a"))
	assert.True(t, b.Collector().IsEmpty())

	a.Cancel()
	assert.Equal(t, FlowCollecting, b.Status().Phase)
}
