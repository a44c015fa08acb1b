// Package workers bounds how many image transforms run at once.
package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// ErrQueueFull is returned when no queue slot is free.
	ErrQueueFull = errors.New("transform queue is full")
	// ErrStopped is returned after Stop has been called.
	ErrStopped = errors.New("transform pool is stopped")
)

// TransformJob is one unit of work. done receives exactly one value.
type TransformJob struct {
	Ctx  context.Context
	Run  func(ctx context.Context) error
	done chan error
}

// TransformPool runs submitted jobs on a fixed number of goroutines.
type TransformPool struct {
	JobQueue chan TransformJob
	Wg       sync.WaitGroup
	StopChan chan struct{}

	stopOnce sync.Once
	log      *logrus.Entry
}

func NewTransformPool(queueSize, numWorkers int) *TransformPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	pool := &TransformPool{
		JobQueue: make(chan TransformJob, queueSize),
		StopChan: make(chan struct{}),
		log:      logrus.WithField("component", "workers"),
	}
	pool.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go pool.worker(i)
	}
	pool.log.Infof("Started %d transform worker(s) with queue size %d", numWorkers, queueSize)
	return pool
}

func (p *TransformPool) worker(id int) {
	defer p.Wg.Done()

	p.log.Debugf("Transform worker %d started", id)
	for {
		select {
		case job := <-p.JobQueue:
			job.done <- p.run(id, job)
		case <-p.StopChan:
			p.log.Debugf("Transform worker %d stopping: Stop signal received", id)
			return
		}
	}
}

func (p *TransformPool) run(id int, job TransformJob) (err error) {
	// the submitter may have given up while the job was queued
	if err := job.Ctx.Err(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorf("Transform worker %d: recovered from panic: %v", id, r)
			err = fmt.Errorf("transform panicked: %v", r)
		}
	}()
	return job.Run(job.Ctx)
}

// Submit queues run and waits for it to finish. It returns ErrQueueFull
// without waiting when the queue has no free slot, and ctx.Err() when the
// caller's context ends first.
func (p *TransformPool) Submit(ctx context.Context, run func(ctx context.Context) error) error {
	select {
	case <-p.StopChan:
		return ErrStopped
	default:
	}

	job := TransformJob{Ctx: ctx, Run: run, done: make(chan error, 1)}
	select {
	case p.JobQueue <- job:
	default:
		p.log.Warn("Transform job queue full, rejecting job")
		return ErrQueueFull
	}

	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-p.StopChan:
		return ErrStopped
	}
}

// Stop signals the workers and waits for in-flight jobs to return.
func (p *TransformPool) Stop() {
	p.stopOnce.Do(func() {
		p.log.Info("Stopping transform workers...")
		close(p.StopChan)
		p.Wg.Wait()
		p.log.Info("All transform workers stopped")
	})
}
