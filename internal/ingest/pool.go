// Package ingest runs the document ingestion pipeline on a bounded worker
// pool: extract, chunk, embed, persist.
package ingest

import (
	"sync"
	"time"

	"github.com/soares-ari/helpdesk-ai/pkg/logger"
)

// PoolConfig sizes the ingestion worker pool.
type PoolConfig struct {
	Workers       int
	QueueCapacity int
}

// DefaultPoolConfig returns the default pool sizing.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:       5,
		QueueCapacity: 100,
	}
}

// Pool is a fixed-size worker pool with a bounded queue. When the queue is
// full the submitting goroutine runs the task itself, so upload handlers
// slow down instead of dropping work.
type Pool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	logger *logger.Logger
}

// NewPool starts the workers. Zero config values fall back to defaults.
func NewPool(cfg PoolConfig, log *logger.Logger) *Pool {
	def := DefaultPoolConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = def.QueueCapacity
	}

	p := &Pool{
		tasks:  make(chan func(), cfg.QueueCapacity),
		logger: log.WithComponent("ingest_pool"),
	}

	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}

	p.logger.Info("ingestion pool started",
		"workers", cfg.Workers,
		"queue_capacity", cfg.QueueCapacity,
	)

	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Submit enqueues a task. If the queue is full, or the pool has been shut
// down, the task runs on the calling goroutine.
func (p *Pool) Submit(task func()) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		task()
		return
	}

	select {
	case p.tasks <- task:
		p.mu.RUnlock()
	default:
		p.mu.RUnlock()
		p.logger.Warn("ingestion queue full, running task on caller")
		task()
	}
}

// Shutdown stops accepting work and waits up to grace for in-flight tasks.
// It returns false if the grace period expired with tasks still running.
func (p *Pool) Shutdown(grace time.Duration) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return true
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("ingestion pool drained")
		return true
	case <-time.After(grace):
		p.logger.Warn("ingestion pool shutdown timed out", "grace", grace)
		return false
	}
}
