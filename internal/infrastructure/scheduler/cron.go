package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/stugorf/hdc-digest/internal/ports"
)

// CronScheduler fires a job at every time matched by a cron expression.
// Jobs run on a single goroutine, so a slow run delays the next one instead
// of overlapping it.
type CronScheduler struct {
	expr     *cronexpr.Expression
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler parses expression (5-field cron or @daily style) evaluated in loc.
func NewCronScheduler(expression string, loc *time.Location, log *slog.Logger) (*CronScheduler, error) {
	expr, err := cronexpr.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", expression, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CronScheduler{expr: expr, location: loc, now: time.Now, logger: log}, nil
}

// Next returns the first fire time strictly after t.
func (c *CronScheduler) Next(t time.Time) time.Time {
	return c.expr.Next(t.In(c.location))
}

// Start launches the scheduling loop. Calling Start twice is a no-op.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return nil
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	go c.loop(ctx, job, c.stop, c.done)
	return nil
}

func (c *CronScheduler) loop(ctx context.Context, job func(time.Time), stop, done chan struct{}) {
	defer close(done)
	for {
		next := c.Next(c.now())
		if next.IsZero() {
			c.info("cron expression has no future fire times")
			return
		}
		c.info("next digest run scheduled", "at", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case t := <-timer.C:
			job(t)
		case <-ctx.Done():
			timer.Stop()
			return
		case <-stop:
			timer.Stop()
			return
		}
	}
}

// Stop halts the loop and waits for an in-flight job to finish or ctx to expire.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronScheduler) info(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}
