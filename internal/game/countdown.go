package game

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Countdown delivers a pulse every interval until it is stopped or its
// parent context ends.
type Countdown struct {
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	stopped atomic.Bool
}

func StartCountdown(ctx context.Context, interval time.Duration, pulse func()) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	c := &Countdown{cancel: cancel, done: make(chan struct{})}
	go c.loop(ctx, interval, pulse)
	return c
}

func (c *Countdown) loop(ctx context.Context, interval time.Duration, pulse func()) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.stopped.Store(true)
			return
		case <-ticker.C:
			if c.stopped.Load() {
				return
			}
			if pulse != nil {
				pulse()
			}
		}
	}
}

// Stop cancels the countdown. It reports true only for the call that
// actually stopped it. No new pulse starts once Stop has returned; a pulse
// already running may still finish, so owners also drop ticks from a
// countdown they no longer hold.
func (c *Countdown) Stop() bool {
	if c == nil {
		return false
	}
	first := false
	c.once.Do(func() {
		first = true
		c.stopped.Store(true)
		c.cancel()
	})
	return first
}

// Wait blocks until the pulse goroutine has exited. Do not call it from
// inside a pulse.
func (c *Countdown) Wait() {
	if c == nil {
		return
	}
	<-c.done
}

func (c *Countdown) Stopped() bool {
	return c == nil || c.stopped.Load()
}

func (c *Countdown) Done() <-chan struct{} {
	return c.done
}
