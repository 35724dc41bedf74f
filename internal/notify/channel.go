package notify

import (
	"context"
	"sync"
	"time"

	"github.com/ghalamif/simtemp/internal/domain"
	"github.com/ghalamif/simtemp/internal/ports"
)

// Channel carries the two readiness conditions: an edge-triggered new-sample
// notification consumed by the first observer, and a level-valued alert that
// is recomputed every cycle. The combined mask is synthesized only on query.
type Channel struct {
	mu      sync.Mutex
	pending bool
	alert   bool
	seq     uint64
	last    domain.ReadinessMask
	wake    chan struct{}
	closed  bool
}

func NewChannel() *Channel {
	return &Channel{wake: make(chan struct{})}
}

// Publish records one cycle and wakes every blocked waiter.
func (c *Channel) Publish(alert bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.seq++
	c.pending = true
	c.alert = alert
	c.last = domain.NewSample
	if alert {
		c.last |= domain.ThresholdAlert
	}
	close(c.wake)
	c.wake = make(chan struct{})
	c.mu.Unlock()
}

// Flags reports the status bits without consuming NEW_SAMPLE.
func (c *Channel) Flags() domain.ReadinessMask {
	c.mu.Lock()
	defer c.mu.Unlock()
	var m domain.ReadinessMask
	if c.pending {
		m |= domain.NewSample
	}
	if c.alert {
		m |= domain.ThresholdAlert
	}
	return m
}

// Seq is the number of cycles published so far.
func (c *Channel) Seq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

func (c *Channel) Poll(mask domain.ReadinessMask) domain.ReadinessMask {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consumeLocked(mask)
}

func (c *Channel) Wait(ctx context.Context, mask domain.ReadinessMask) (domain.ReadinessMask, error) {
	mask &= domain.AllEvents
	if mask == 0 {
		return 0, nil
	}

	c.mu.Lock()
	if r := c.consumeLocked(mask); r != 0 {
		c.mu.Unlock()
		return r, nil
	}
	if c.closed {
		c.mu.Unlock()
		return 0, domain.ErrAlreadyCancelled
	}
	seen := c.seq
	wake := c.wake
	c.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-wake:
		}

		c.mu.Lock()
		if c.seq != seen {
			// A waiter blocked across a publish observes that cycle's mask,
			// even if another waiter consumed NEW_SAMPLE first.
			if r := c.last & mask; r != 0 {
				if r.Has(domain.NewSample) {
					c.pending = false
				}
				c.mu.Unlock()
				return r, nil
			}
			seen = c.seq
		}
		if c.closed {
			c.mu.Unlock()
			return 0, domain.ErrAlreadyCancelled
		}
		wake = c.wake
		c.mu.Unlock()
	}
}

// Close releases every blocked waiter with ErrAlreadyCancelled. Later
// publishes are ignored; Poll and Flags keep reporting the last state.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.wake)
}

// WaitTimeout returns an empty mask when timeout elapses first. A negative
// timeout waits indefinitely; zero polls.
func (c *Channel) WaitTimeout(mask domain.ReadinessMask, timeout time.Duration) domain.ReadinessMask {
	if timeout == 0 {
		return c.Poll(mask)
	}
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	r, _ := c.Wait(ctx, mask)
	return r
}

func (c *Channel) consumeLocked(mask domain.ReadinessMask) domain.ReadinessMask {
	var r domain.ReadinessMask
	if mask.Has(domain.ThresholdAlert) && c.alert {
		r |= domain.ThresholdAlert
	}
	if mask.Has(domain.NewSample) && c.pending {
		c.pending = false
		r |= domain.NewSample
	}
	return r
}

var _ ports.Events = (*Channel)(nil)
