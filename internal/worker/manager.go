package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"clipshare/internal/logging"
	"clipshare/internal/queue"
)

const (
	DefaultWorkerCount   = 2
	DefaultBatchSize     = 10
	DefaultBlockTimeout  = 5 * time.Second
	DefaultSweepInterval = 15 * time.Minute

	maxPendingBatches = 100
)

// Sweeper runs the periodic full-table repairs.
type Sweeper interface {
	SweepOrphans(ctx context.Context, limit int) (int, error)
	ReconcileRoots(ctx context.Context, batch int) (int, error)
}

// TokenPurger removes long-expired refresh tokens during the sweep.
type TokenPurger interface {
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

// Manager runs the stream consumers and the sweep ticker.
type Manager struct {
	consumer queue.Consumer // nil without Redis
	handler  *Handler
	sweeper  Sweeper
	purger   TokenPurger // optional
	logger   *zap.Logger

	workerCount   int
	batchSize     int64
	blockTime     time.Duration
	sweepInterval time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

type ManagerConfig struct {
	WorkerCount   int
	BatchSize     int64
	BlockTimeout  time.Duration
	SweepInterval time.Duration
}

func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		WorkerCount:   DefaultWorkerCount,
		BatchSize:     DefaultBatchSize,
		BlockTimeout:  DefaultBlockTimeout,
		SweepInterval: DefaultSweepInterval,
	}
}

// NewManager accepts a nil consumer, in which case only the sweep runs.
func NewManager(consumer queue.Consumer, handler *Handler, sweeper Sweeper, purger TokenPurger, cfg ManagerConfig, logger *zap.Logger) *Manager {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = DefaultBlockTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	return &Manager{
		consumer:      consumer,
		handler:       handler,
		sweeper:       sweeper,
		purger:        purger,
		logger:        logging.OrNop(logger).Named("worker_manager"),
		workerCount:   cfg.WorkerCount,
		batchSize:     cfg.BatchSize,
		blockTime:     cfg.BlockTimeout,
		sweepInterval: cfg.SweepInterval,
	}
}

// Start launches the goroutines and returns. Stop waits for them.
func (m *Manager) Start(ctx context.Context) error {
	ctx, m.cancel = context.WithCancel(ctx)

	if m.consumer != nil {
		if err := m.consumer.EnsureGroup(ctx, queue.StreamIntegrity, queue.ConsumerGroupIntegrity); err != nil {
			m.cancel()
			return err
		}
		for i := 1; i <= m.workerCount; i++ {
			m.wg.Add(1)
			go m.runWorker(ctx, i)
		}
	}

	m.wg.Add(1)
	go m.runSweeper(ctx)

	m.logger.Info("workers started",
		zap.Bool("stream", m.consumer != nil),
		zap.Int("consumers", m.consumerCount()),
		zap.Duration("sweep_interval", m.sweepInterval),
	)
	return nil
}

func (m *Manager) consumerCount() int {
	if m.consumer == nil {
		return 0
	}
	return m.workerCount
}

// Stop cancels the workers and blocks until they exit.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.logger.Info("workers stopped")
}

// RunSweeps performs one full repair round.
func (m *Manager) RunSweeps(ctx context.Context) error {
	swept, err := m.sweeper.SweepOrphans(ctx, 0)
	if err != nil {
		return fmt.Errorf("sweep orphans: %w", err)
	}
	fixed, err := m.sweeper.ReconcileRoots(ctx, 0)
	if err != nil {
		return fmt.Errorf("reconcile roots: %w", err)
	}

	var purged int64
	if m.purger != nil {
		if purged, err = m.purger.PurgeExpiredTokens(ctx); err != nil {
			return fmt.Errorf("purge expired tokens: %w", err)
		}
	}

	m.logger.Info("sweep finished",
		zap.Int("orphans_removed", swept),
		zap.Int("roots_fixed", fixed),
		zap.Int64("tokens_purged", purged),
	)
	return nil
}

func (m *Manager) runSweeper(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.RunSweeps(ctx); err != nil && ctx.Err() == nil {
				m.logger.Error("sweep failed", zap.Error(err))
			}
		}
	}
}

func (m *Manager) runWorker(ctx context.Context, workerID int) {
	defer m.wg.Done()

	name := consumerName(workerID)
	log := m.logger.With(zap.String("consumer", name))

	m.processPending(ctx, name, log)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		messages, err := m.consumer.Read(ctx, queue.StreamIntegrity, queue.ConsumerGroupIntegrity, name, m.batchSize, m.blockTime)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("read failed", zap.Error(err))
			sleepCtx(ctx, time.Second)
			continue
		}
		m.handleMessages(ctx, messages, log)
	}
}

// processPending drains messages delivered to this consumer before a crash.
// The batch cap stops a failing ack from spinning forever.
func (m *Manager) processPending(ctx context.Context, name string, log *zap.Logger) {
	for i := 0; i < maxPendingBatches; i++ {
		messages, err := m.consumer.ReadPending(ctx, queue.StreamIntegrity, queue.ConsumerGroupIntegrity, name, m.batchSize)
		if err != nil {
			log.Warn("read pending failed", zap.Error(err))
			return
		}
		if len(messages) == 0 {
			return
		}
		m.handleMessages(ctx, messages, log)
	}
}

// handleMessages acks every message, failed or not. A failed repair is
// picked up again by the next sweep.
func (m *Manager) handleMessages(ctx context.Context, messages []queue.Message, log *zap.Logger) {
	for _, msg := range messages {
		if err := m.handler.HandleEvent(ctx, msg.Event); err != nil {
			log.Error("handle event failed", zap.String("msg_id", msg.ID), zap.Error(err))
		}
		if err := m.consumer.Ack(ctx, queue.StreamIntegrity, queue.ConsumerGroupIntegrity, msg.ID); err != nil {
			log.Warn("ack failed", zap.String("msg_id", msg.ID), zap.Error(err))
		}
	}
}

func consumerName(workerID int) string {
	return fmt.Sprintf("worker-%d", workerID)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
