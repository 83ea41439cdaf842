package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestNewCronSchedulerRejectsBadExpression(t *testing.T) {
	t.Parallel()

	if _, err := NewCronScheduler("not a cron", time.UTC, nil); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestCronSchedulerNext(t *testing.T) {
	t.Parallel()

	sched, err := NewCronScheduler("0 6 * * *", time.UTC, nil)
	if err != nil {
		t.Fatalf("NewCronScheduler: %v", err)
	}

	from := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	want := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	if got := sched.Next(from); !got.Equal(want) {
		t.Fatalf("Next = %v, want %v", got, want)
	}
}

func TestCronSchedulerRunsJob(t *testing.T) {
	t.Parallel()

	sched, err := NewCronScheduler("* * * * * * *", time.UTC, nil)
	if err != nil {
		t.Fatalf("NewCronScheduler: %v", err)
	}

	fired := make(chan time.Time, 4)
	if err := sched.Start(context.Background(), func(t time.Time) { fired <- t }); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatalf("job did not fire")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sched.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := sched.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
