package gateway

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Champion2005/amicooked/pkg/logger"
)

const capSweepEvery = 24 * time.Hour

// Sweeper periodically closes idle sessions and, once a day, re-applies
// plan memory caps. One sweep runs at a time; a slow sweep skips ticks
// instead of stacking.
type Sweeper struct {
	gw       *Gateway
	interval time.Duration

	mu           sync.Mutex
	stopChan     chan struct{}
	lastCapSweep time.Time

	processing atomic.Bool
}

func NewSweeper(gw *Gateway, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		gw:       gw,
		interval: interval,
		stopChan: nil, // not started
	}
}

func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running() {
		return nil
	}

	s.stopChan = make(chan struct{})
	s.lastCapSweep = time.Now()
	go s.runLoop()

	logger.InfoC("sweeper", fmt.Sprintf("Started, interval %s", s.interval))
	return nil
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running() {
		return
	}

	close(s.stopChan)
}

func (s *Sweeper) running() bool {
	if s.stopChan == nil {
		return false
	}
	select {
	case <-s.stopChan:
		return false
	default:
		return true
	}
}

func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running()
}

func (s *Sweeper) runLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	if !s.processing.CompareAndSwap(false, true) {
		logger.DebugC("sweeper", "Skipping: previous sweep still running")
		return
	}
	defer s.processing.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	if closed := s.gw.CloseIdle(ctx); closed > 0 {
		logger.InfoC("sweeper", fmt.Sprintf("Closed %d idle sessions", closed))
	}

	if s.capSweepDue() {
		if dropped := s.gw.TrimMemoryCaps(ctx); dropped > 0 {
			logger.InfoC("sweeper", fmt.Sprintf("Cap sweep evicted %d memories", dropped))
		}
	}
}

func (s *Sweeper) capSweepDue() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.lastCapSweep) < capSweepEvery {
		return false
	}
	s.lastCapSweep = time.Now()
	return true
}
