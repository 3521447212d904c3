package profile

import (
	"context"
	"sync"
)

// Controller lets an operator pause, resume and cancel a running batch. The
// batch only observes it between rows, so a row that has started always
// finishes. Safe for concurrent use.
type Controller struct {
	mu     sync.Mutex
	paused bool
	// resume is closed whenever the batch may proceed.
	resume chan struct{}

	cancelled  chan struct{}
	cancelOnce sync.Once
}

func NewController() *Controller {
	c := &Controller{
		resume:    make(chan struct{}),
		cancelled: make(chan struct{}),
	}
	close(c.resume)
	return c
}

func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return
	}
	c.paused = true
	c.resume = make(chan struct{})
}

func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return
	}
	c.paused = false
	close(c.resume)
}

func (c *Controller) Cancel() {
	c.cancelOnce.Do(func() { close(c.cancelled) })
}

func (c *Controller) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *Controller) Cancelled() bool {
	select {
	case <-c.cancelled:
		return true
	default:
		return false
	}
}

// Wait blocks while the batch is paused. It returns ErrOperationCancelled
// once the controller is cancelled or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	if c.Cancelled() || ctx.Err() != nil {
		return ErrOperationCancelled
	}

	c.mu.Lock()
	resume := c.resume
	c.mu.Unlock()

	select {
	case <-resume:
	case <-c.cancelled:
		return ErrOperationCancelled
	case <-ctx.Done():
		return ErrOperationCancelled
	}

	if c.Cancelled() {
		return ErrOperationCancelled
	}
	return nil
}
