// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Worker pool runs handles off the connection goroutines.

package hemi

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Submitter runs tasks asynchronously.
type Submitter interface {
	Submit(task func()) error
}

// workerPool is a fixed number of workers fed by a bounded queue. Submit never blocks.
type workerPool struct {
	// Assocs
	logger zerolog.Logger
	// States
	tasks  chan func()
	lock   sync.RWMutex // guards closed against sends on a closed channel
	closed bool
	exited sync.WaitGroup
}

func newWorkerPool(workers int, queue int, logger zerolog.Logger) *workerPool {
	p := &workerPool{
		logger: logger,
		tasks:  make(chan func(), queue),
	}
	p.exited.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *workerPool) work() { // runner
	defer p.exited.Done()
	for task := range p.tasks {
		p.run(task)
	}
}
func (p *workerPool) run(task func()) {
	defer func() {
		if x := recover(); x != nil { // tasks are expected to recover by themselves
			p.logger.Error().Interface("panic", x).Msg("worker task panicked")
		}
	}()
	task()
}

// Submit queues a task. It returns ErrPoolSaturated if all workers are busy and the queue is full,
// and ErrPoolClosed after Close.
func (p *workerPool) Submit(task func()) error {
	p.lock.RLock()
	defer p.lock.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolSaturated
	}
}

// Close stops accepting tasks and waits for queued tasks to finish, or for ctx to expire.
func (p *workerPool) Close(ctx context.Context) error {
	p.lock.Lock()
	if p.closed {
		p.lock.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.lock.Unlock()

	drained := make(chan struct{})
	go func() {
		p.exited.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
