package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"gopherai-notebook/internal/logger"
	"gopherai-notebook/internal/model"
	"gopherai-notebook/internal/platform/rabbitmq"
)

const workerModule = "turn_archive_worker"

type TurnSink interface {
	Create(ctx context.Context, turn *model.Turn) error
}

// TurnArchiveWorker drains the turn queue into the archive database.
type TurnArchiveWorker struct {
	conn      *amqp.Connection
	sink      TurnSink
	queueName string
	logger    logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTurnArchiveWorker(conn *amqp.Connection, sink TurnSink, queueName string, log logger.Logger) *TurnArchiveWorker {
	if log == nil {
		log = logger.NewNop()
	}
	return &TurnArchiveWorker{
		conn:      conn,
		sink:      sink,
		queueName: queueName,
		logger:    log,
	}
}

func (w *TurnArchiveWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					w.logger.Error(workerModule, "archive turn failed", map[string]interface{}{
						"error": err,
					})
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.logger.Info(workerModule, "worker started", map[string]interface{}{
		"queue": w.queueName,
	})
	return nil
}

func (w *TurnArchiveWorker) handle(ctx context.Context, body []byte) error {
	var turn model.Turn
	if err := json.Unmarshal(body, &turn); err != nil {
		return fmt.Errorf("decode turn failed: %w", err)
	}
	if turn.NotebookID == "" {
		return fmt.Errorf("decode turn failed: missing notebook_id")
	}
	// The archive assigns its own primary key.
	turn.ID = 0
	return w.sink.Create(ctx, &turn)
}

func (w *TurnArchiveWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
