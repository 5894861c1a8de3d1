package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"gopherai-notebook/internal/app"
	"gopherai-notebook/internal/cache"
	"gopherai-notebook/internal/config"
	"gopherai-notebook/internal/ingest"
	"gopherai-notebook/internal/logger"
	mysqlClient "gopherai-notebook/internal/platform/mysql"
	rabbitmqClient "gopherai-notebook/internal/platform/rabbitmq"
	redisClient "gopherai-notebook/internal/platform/redis"
	"gopherai-notebook/internal/repository"
	"gopherai-notebook/internal/worker"
)

const bootstrapModule = "bootstrap"

// App holds everything the gateway and the CLI share. Redis, RabbitMQ and
// MySQL are optional and stay nil unless enabled in config.
type App struct {
	Config   *config.Config
	Logger   *logger.ZapLogger
	Ingest   *ingest.Client
	Registry *app.NotebookRegistry

	Transcripts cache.Store
	Publisher   app.TurnPublisher
	Turns       *repository.TurnRepository

	MySQL      *gorm.DB
	Redis      *redis.Client
	MQConn     *amqp.Connection
	TurnWorker *worker.TurnArchiveWorker

	StartedAt time.Time
}

// NewCore builds the ingestion client and registry only. Logs go to the log
// file so they do not interleave with interactive output.
func NewCore(cfg *config.Config) *App {
	log := logger.NewFileLogger(cfg.Log.File, cfg.Log.Level)
	return newCore(cfg, log)
}

func newCore(cfg *config.Config, log *logger.ZapLogger) *App {
	client := ingest.NewClient(cfg.Ingest.BaseURL, time.Duration(cfg.Ingest.TimeoutSeconds)*time.Second)
	return &App{
		Config:      cfg,
		Logger:      log,
		Ingest:      client,
		Registry:    app.NewNotebookRegistry(client, log),
		Transcripts: cache.NewMemoryTranscriptCache(time.Duration(cfg.Redis.TranscriptTTLSeconds) * time.Second),
		StartedAt:   time.Now(),
	}
}

// New builds the gateway: the core plus whichever infrastructure is enabled.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	a := newCore(cfg, logger.NewZapLogger(cfg.Log.File, cfg.IsProduction(), cfg.Log.Level))
	if err := a.attachInfra(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Logger.Info(bootstrapModule, "app ready", map[string]interface{}{
		"ingest_url": cfg.Ingest.BaseURL,
		"redis":      a.Redis != nil,
		"rabbitmq":   a.MQConn != nil,
		"mysql":      a.MySQL != nil,
	})
	return a, nil
}

func (a *App) attachInfra(ctx context.Context) error {
	cfg := a.Config

	if cfg.Redis.Enabled {
		redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		a.Redis = redisCli
		a.Transcripts = cache.NewTranscriptCache(redisCli, time.Duration(cfg.Redis.TranscriptTTLSeconds)*time.Second)
	}

	if cfg.MySQL.Enabled {
		mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
		if err != nil {
			return err
		}
		a.MySQL = mysqlDB
		a.Turns = repository.NewTurnRepository(mysqlDB)
	}

	if cfg.RabbitMQ.Enabled && !cfg.TurnArchiveEnabled() {
		a.Logger.Warn(bootstrapModule, "rabbitmq enabled without mysql, turn archive disabled", map[string]interface{}{
			"queue": cfg.RabbitMQ.TurnQueue,
		})
	}

	if cfg.TurnArchiveEnabled() {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.TurnQueue)
		if err != nil {
			return err
		}
		a.MQConn = mqConn
		a.TurnWorker = worker.NewTurnArchiveWorker(mqConn, a.Turns, cfg.RabbitMQ.TurnQueue, a.Logger)
		if err := a.TurnWorker.Start(ctx); err != nil {
			return fmt.Errorf("start turn worker failed: %w", err)
		}
		a.Publisher = rabbitmqClient.NewTurnPublisher(mqConn, cfg.RabbitMQ.TurnQueue)
	}
	return nil
}

// ProgressOptions maps the progress section of the config.
func (a *App) ProgressOptions() []app.ProgressOption {
	return []app.ProgressOption{
		app.WithTickInterval(time.Duration(a.Config.Progress.TickMillis) * time.Millisecond),
		app.WithProgressCap(a.Config.Progress.Cap),
	}
}

// NewFlow starts a fresh notebook creation flow with the configured chunk
// hints and progress settings.
func (a *App) NewFlow(id string) *app.NotebookFlow {
	flow := app.NewNotebookFlow(id, a.Ingest, a.Registry, a.Logger, a.ProgressOptions()...)
	flow.Collector().SetChunkHints(a.Config.Ingest.ChunkSize, a.Config.Ingest.ChunkOverlap)
	return flow
}

// NewChat builds the orchestrator for one notebook, wired to the transcript
// store and the turn archive when available.
func (a *App) NewChat(notebookID string) *app.ChatOrchestrator {
	opts := []app.ChatOption{app.WithTranscriptStore(a.Transcripts)}
	if a.Publisher != nil {
		opts = append(opts, app.WithTurnPublisher(a.Publisher))
	}
	return app.NewChatOrchestrator(notebookID, a.Ingest, a.Logger, opts...)
}

func (a *App) Close() error {
	var closeErr error
	if a.TurnWorker != nil {
		a.TurnWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
