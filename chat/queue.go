// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// ReplyJob is one queued outbound message.
type ReplyJob struct {
	Content         string
	ClientMessageID string
}

// ReplyHandler processes one job. It must not return an error: the
// queue has nowhere to send it. Panics are recovered and logged.
type ReplyHandler func(ctx context.Context, job ReplyJob)

// ReplyQueue runs jobs one at a time, in submission order, on a single
// worker goroutine. Enqueue never blocks; the backlog is unbounded.
type ReplyQueue struct {
	handle ReplyHandler
	logger *slog.Logger
	ctx    context.Context

	mu     sync.Mutex
	jobs   []ReplyJob
	closed bool
	// idle is closed whenever the queue is empty and no job is
	// running. Enqueue replaces it with an open channel.
	idle       chan struct{}
	idleClosed bool

	wake chan struct{}
	done chan struct{}
}

// NewReplyQueue starts the worker. It exits when ctx ends or Close is
// called; ctx is also passed to every job.
func NewReplyQueue(ctx context.Context, handle ReplyHandler, logger *slog.Logger) *ReplyQueue {
	if logger == nil {
		logger = slog.Default()
	}
	idle := make(chan struct{})
	close(idle)
	queue := &ReplyQueue{
		handle:     handle,
		logger:     logger,
		ctx:        ctx,
		idle:       idle,
		idleClosed: true,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	go queue.run()
	return queue
}

// Enqueue appends a job and reports whether it was accepted. Jobs are
// refused after Close.
func (q *ReplyQueue) Enqueue(job ReplyJob) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.jobs = append(q.jobs, job)
	if q.idleClosed {
		q.idle = make(chan struct{})
		q.idleClosed = false
	}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Len returns the number of jobs waiting, not counting a running one.
func (q *ReplyQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Flush waits until every accepted job has finished, or ctx ends.
func (q *ReplyQueue) Flush(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("chat: waiting for reply queue: %w", ctx.Err())
	}
}

// Close refuses new jobs, discards the backlog, and waits for the
// running job (if any) to return. Cancel the queue's context first to
// cut a running job short.
func (q *ReplyQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.jobs = nil
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
	<-q.done
}

func (q *ReplyQueue) run() {
	defer close(q.done)
	defer q.markIdle()
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return
		}
		if len(q.jobs) == 0 {
			q.markIdleLocked()
			q.mu.Unlock()
			select {
			case <-q.wake:
				continue
			case <-q.ctx.Done():
				return
			}
		}
		job := q.jobs[0]
		q.jobs[0] = ReplyJob{}
		q.jobs = q.jobs[1:]
		q.mu.Unlock()

		q.runJob(job)
	}
}

func (q *ReplyQueue) runJob(job ReplyJob) {
	defer func() {
		if recovered := recover(); recovered != nil {
			q.logger.Error("reply job panicked",
				"client_message_id", job.ClientMessageID,
				"panic", recovered,
				"stack", string(debug.Stack()),
			)
		}
	}()
	q.handle(q.ctx, job)
}

// markIdle runs when the worker exits. The queue refuses work from
// then on.
func (q *ReplyQueue) markIdle() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.jobs = nil
	q.markIdleLocked()
}

func (q *ReplyQueue) markIdleLocked() {
	if !q.idleClosed {
		close(q.idle)
		q.idleClosed = true
	}
}
