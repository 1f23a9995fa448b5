// Package worker provides an asynchronous worker pool for running documents
// through the ingestion pipeline off the caller's hot path.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/engram/pkg/graph"
	"github.com/papercomputeco/engram/pkg/ingest"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Processor runs a single document through the pipeline. Satisfied by
// *ingest.Assembler.
type Processor interface {
	ProcessDocument(ctx context.Context, doc *graph.Document) (*ingest.Result, error)
}

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Document *graph.Document
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Processor runs the ingestion pipeline for each job.
	Processor Processor

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided logger.
	Logger *slog.Logger
}

// Pool processes ingestion jobs asynchronously via a worker pool.
type Pool struct {
	processor Processor
	queue     chan Job
	wg        sync.WaitGroup
	logger    *slog.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Processor == nil {
		return nil, fmt.Errorf("a processor is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	wp := &Pool{
		processor: c.Processor,
		queue:     make(chan Job, c.QueueSize),
		logger:    logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job
// being dropped.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"document_id", job.Document.ID,
			"container", job.Document.ContainerTag,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"document_id", job.Document.ID,
			"container", job.Document.ContainerTag,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the
// jobs queue.
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("ingest worker stopped", "worker_id", id)
}

func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	result, err := p.processor.ProcessDocument(ctx, job.Document)
	if err != nil {
		p.logger.Error("async ingestion failed",
			"document_id", job.Document.ID,
			"error", err,
		)
		return
	}

	p.logger.Info("document processed",
		"document_id", result.DocumentID,
		"chunks", result.ChunkCount,
	)
}
