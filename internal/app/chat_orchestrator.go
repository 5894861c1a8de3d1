package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"gopherai-notebook/internal/logger"
	"gopherai-notebook/internal/model"
)

const (
	chatModule         = "chat_orchestrator"
	NoResponseText     = "No response received"
	persistTimeout     = 3 * time.Second
	failedAnswerPrefix = "Error: "
)

type ChatOption func(*ChatOrchestrator)

func WithTranscriptStore(store TranscriptStore) ChatOption {
	return func(o *ChatOrchestrator) { o.store = store }
}

func WithTurnPublisher(publisher TurnPublisher) ChatOption {
	return func(o *ChatOrchestrator) { o.publisher = publisher }
}

func WithClock(now func() time.Time) ChatOption {
	return func(o *ChatOrchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// ChatOrchestrator owns the transcript of one notebook. Each turn appends a
// user message and a pending assistant placeholder; the placeholder is later
// overwritten at its index with the answer or an error message.
type ChatOrchestrator struct {
	sessionID string
	client    Querier
	store     TranscriptStore
	publisher TurnPublisher
	logger    logger.Logger
	now       func() time.Time

	mu       sync.Mutex
	messages []model.Message
	inFlight bool
	closed   bool
	epoch    uint64
	lastErr  string
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewChatOrchestrator(sessionID string, client Querier, log logger.Logger, opts ...ChatOption) *ChatOrchestrator {
	if log == nil {
		log = logger.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	o := &ChatOrchestrator{
		sessionID: sessionID,
		client:    client,
		logger:    log,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *ChatOrchestrator) SessionID() string {
	return o.sessionID
}

// Restore loads the last saved transcript when nothing has been said yet.
// Entries saved while pending are restored as resolved with NoResponseText.
func (o *ChatOrchestrator) Restore(ctx context.Context) error {
	if o.store == nil {
		return nil
	}
	messages, ok, err := o.store.LoadTranscript(ctx, o.sessionID)
	if err != nil || !ok {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.messages) > 0 || o.closed {
		return nil
	}
	for i := range messages {
		if messages[i].Pending {
			messages[i].Pending = false
			messages[i].Content = NoResponseText
		}
	}
	o.messages = messages
	return nil
}

// SubmitQuery starts one turn. Validation failures return synchronously and
// leave the transcript untouched. The returned channel receives the resolved
// assistant message, or is closed empty if the orchestrator is torn down first.
func (o *ChatOrchestrator) SubmitQuery(text string) (<-chan model.Message, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrOrchestratorClosed
	}
	if o.inFlight {
		o.mu.Unlock()
		return nil, ErrQueryInFlight
	}
	askedAt := o.now()
	o.messages = append(o.messages,
		model.Message{Role: model.RoleUser, Content: query, Timestamp: askedAt},
		model.Message{Role: model.RoleAssistant, Timestamp: askedAt, Pending: true},
	)
	index := len(o.messages) - 1
	epoch := o.epoch
	ctx := o.ctx
	o.inFlight = true
	o.mu.Unlock()

	done := make(chan model.Message, 1)
	go o.resolve(ctx, epoch, index, query, askedAt, done)
	return done, nil
}

// Ask is the blocking form of SubmitQuery.
func (o *ChatOrchestrator) Ask(ctx context.Context, text string) (model.Message, error) {
	done, err := o.SubmitQuery(text)
	if err != nil {
		return model.Message{}, err
	}
	select {
	case msg, ok := <-done:
		if !ok {
			return model.Message{}, ErrDiscarded
		}
		return msg, nil
	case <-ctx.Done():
		return model.Message{}, ctx.Err()
	}
}

func (o *ChatOrchestrator) resolve(ctx context.Context, epoch uint64, index int, query string, askedAt time.Time, done chan<- model.Message) {
	defer close(done)

	answer, err := o.client.Query(ctx, o.sessionID, query)

	o.mu.Lock()
	if o.epoch != epoch {
		o.mu.Unlock()
		o.logger.Debug(chatModule, "dropped stale query response", map[string]interface{}{
			"session_id": o.sessionID,
		})
		return
	}

	resolved := model.Message{Role: model.RoleAssistant, Timestamp: o.now()}
	switch {
	case err != nil:
		resolved.Content = failedAnswerPrefix + err.Error()
		o.lastErr = err.Error()
	case answer == nil || answer.Answer == nil || strings.TrimSpace(*answer.Answer) == "":
		resolved.Content = NoResponseText
	default:
		resolved.Content = *answer.Answer
	}
	o.messages[index] = resolved
	o.inFlight = false
	snapshot := copyMessages(o.messages)
	o.mu.Unlock()

	if err != nil {
		o.logger.Warn(chatModule, "query failed", map[string]interface{}{
			"session_id": o.sessionID,
			"error":      err.Error(),
		})
	}
	o.persist(snapshot, model.Turn{
		NotebookID: o.sessionID,
		Query:      query,
		Answer:     resolved.Content,
		Failed:     err != nil,
		AskedAt:    askedAt,
		ResolvedAt: resolved.Timestamp,
	})
	done <- resolved
}

func (o *ChatOrchestrator) persist(snapshot []model.Message, turn model.Turn) {
	if o.store == nil && o.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if o.store != nil {
		if err := o.store.SaveTranscript(ctx, o.sessionID, snapshot); err != nil {
			o.logger.Warn(chatModule, "save transcript failed", map[string]interface{}{
				"session_id": o.sessionID,
				"error":      err.Error(),
			})
		}
	}
	if o.publisher != nil {
		if err := o.publisher.Publish(ctx, turn); err != nil {
			o.logger.Warn(chatModule, "publish turn failed", map[string]interface{}{
				"session_id": o.sessionID,
				"error":      err.Error(),
			})
		}
	}
}

// Snapshot returns a copy of the transcript in append order.
func (o *ChatOrchestrator) Snapshot() []model.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return copyMessages(o.messages)
}

// Busy reports whether a query is awaiting its answer.
func (o *ChatOrchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight
}

// LastError is the raw text of the most recent failed query, kept until
// dismissed.
func (o *ChatOrchestrator) LastError() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

func (o *ChatOrchestrator) DismissError() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastErr = ""
}

// Close cancels the outstanding query, if any. Its response, should one still
// arrive, is discarded.
func (o *ChatOrchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	o.epoch++
	o.inFlight = false
	o.cancel()
}

func copyMessages(messages []model.Message) []model.Message {
	out := make([]model.Message, len(messages))
	copy(out, messages)
	return out
}
