package cmd

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/vbauerster/mpb/v8"

	"github.com/brettz9/sundriven/internal/scheduler"
)

func TestCountdown_FinishesWhenDeadlinesPass(t *testing.T) {
	now := time.Now()
	sts := []scheduler.Status{
		{Name: "walk", State: scheduler.StateArmed, ArmedAt: now.Add(-time.Minute), Deadline: now.Add(-time.Second)},
		{Name: "tea", State: scheduler.StateArmed, Deadline: now.Add(-time.Millisecond)},
		{Name: "late", State: scheduler.StateResolving},
	}
	done := make(chan struct{})
	go func() {
		countdown(context.Background(), mpb.New(mpb.WithOutput(io.Discard)), sts, func() time.Time { return now })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("countdown did not finish")
	}
}

func TestCountdown_StopsOnCancel(t *testing.T) {
	now := time.Now()
	sts := []scheduler.Status{
		{Name: "walk", State: scheduler.StateArmed, ArmedAt: now, Deadline: now.Add(time.Hour)},
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		countdown(ctx, mpb.New(mpb.WithOutput(io.Discard)), sts, time.Now)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("countdown ignored cancellation")
	}
}
