// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"sync"
	"time"

	"github.com/talia-ai/webchat/lib/clock"
)

// DefaultHistoryInterval is the time between history polls.
const DefaultHistoryInterval = 4 * time.Second

// Poller calls a tick function on a fixed interval while started.
type Poller struct {
	clock    clock.Clock
	interval time.Duration
	tick     func()

	mu         sync.Mutex
	ticker     *clock.Ticker
	stop       chan struct{}
	generation uint64
	loops      sync.WaitGroup
}

// NewPoller returns a stopped poller. tick runs on the poller's
// goroutine and must not block; the engine launches each sync on its
// own goroutine so an overlapping sync is skipped rather than queued.
// A non-positive interval means DefaultHistoryInterval.
func NewPoller(clk clock.Clock, interval time.Duration, tick func()) *Poller {
	if clk == nil {
		clk = clock.Real()
	}
	if interval <= 0 {
		interval = DefaultHistoryInterval
	}
	return &Poller{clock: clk, interval: interval, tick: tick}
}

// Start begins polling, restarting the interval if already running.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	ticker := p.clock.NewTicker(p.interval)
	stop := make(chan struct{})
	p.ticker = ticker
	p.stop = stop
	p.loops.Add(1)
	go p.loop(ticker, stop)
}

// Stop ends polling. A tick function already running is not
// interrupted.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Running reports whether the poller is started.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ticker != nil
}

// Generation counts Stop calls that stopped a running poller. A sync
// compares it before and after its fetch to detect a pause.
func (p *Poller) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

// Wait blocks until every polling goroutine has exited. Call after Stop.
func (p *Poller) Wait() {
	p.loops.Wait()
}

func (p *Poller) stopLocked() {
	if p.ticker == nil {
		return
	}
	p.ticker.Stop()
	close(p.stop)
	p.ticker = nil
	p.stop = nil
	p.generation++
}

func (p *Poller) loop(ticker *clock.Ticker, stop <-chan struct{}) {
	defer p.loops.Done()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			p.tick()
		}
	}
}
