// Package taskpool drives the kernel-shim adapter's handler work: one
// cooperative executor accepts filesystem operations and runs them in
// a bounded pool of goroutines, so slow RPCs or disk I/O on one handle
// never block unrelated requests.
package taskpool

import (
	"github.com/alitto/pond"
)

// Pool bounds how many filesystem handler tasks run concurrently.
type Pool struct {
	wp *pond.WorkerPool
}

// New builds a pool capped at maxWorkers concurrent tasks with up to
// queueSize pending beyond that before Submit blocks.
func New(maxWorkers, queueSize int) *Pool {
	return &Pool{wp: pond.New(maxWorkers, queueSize, pond.MinWorkers(1))}
}

// Submit runs fn on the pool, blocking if every worker is busy and the
// queue is full.
func (p *Pool) Submit(fn func()) {
	p.wp.Submit(fn)
}

// Running reports the number of tasks currently executing.
func (p *Pool) Running() int {
	return int(p.wp.RunningWorkers())
}

// StopAndWait drains the queue and waits for in-flight tasks to finish.
// Called on the adapter's shutdown path, after close_all_files.
func (p *Pool) StopAndWait() {
	p.wp.StopAndWait()
}
