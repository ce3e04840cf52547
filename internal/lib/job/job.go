package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/logger/sl"
)

type Job interface {
	Execute(ctx context.Context) error
}

type JobQueue chan Job

// WorkerPool runs queued jobs on a fixed number of goroutines.
type WorkerPool struct {
	queue   JobQueue
	workers []Worker
	log     *slog.Logger
	wg      sync.WaitGroup
	pending sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

func NewWorkerPool(size int, queueSize int, log *slog.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}

	queue := make(JobQueue, queueSize)

	p := &WorkerPool{
		queue: queue,
		log:   log,
	}

	p.workers = make([]Worker, size)
	for i := 0; i < size; i++ {
		p.workers[i] = NewWorker(i, queue, log)
	}

	return p
}

func (p *WorkerPool) Start(ctx context.Context) {
	for i := range p.workers {
		p.wg.Add(1)

		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(&p.workers[i])
	}
}

// Dispatch queues job after delay. It returns false if the pool is stopped.
func (p *WorkerPool) Dispatch(job Job, delay time.Duration) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false
	}

	p.pending.Add(1)

	go func() {
		defer p.pending.Done()

		if delay > 0 {
			<-time.After(delay)
		}

		p.queue <- job
	}()

	return true
}

// Stop refuses new jobs, lets queued ones finish and waits for the workers.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()

		return
	}
	p.closed = true
	p.mu.Unlock()

	p.pending.Wait()
	close(p.queue)
	p.wg.Wait()
}

type Worker struct {
	id       int
	jobQueue JobQueue
	log      *slog.Logger
}

func NewWorker(id int, jobQueue JobQueue, log *slog.Logger) Worker {
	return Worker{id: id, jobQueue: jobQueue, log: log}
}

func (w *Worker) Run(ctx context.Context) {
	for job := range w.jobQueue {
		if err := job.Execute(ctx); err != nil {
			w.log.Error("job failed", slog.Int("worker", w.id), sl.Err(err))
		}
	}
}
