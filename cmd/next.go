package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"

	"github.com/brettz9/sundriven/cmd/common"
	"github.com/brettz9/sundriven/internal/scheduler"
)

const countdownRefresh = 200 * time.Millisecond

var (
	watchNext bool
	nextLimit int

	nextFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "watch, w",
			Usage:       "draw a countdown for every armed reminder",
			Destination: &watchNext,
		},
		cli.IntFlag{
			Name:        "limit, n",
			Usage:       "show at most this many reminders (0 for all)",
			Destination: &nextLimit,
		},
	}
)

func next(ctx *cli.Context) error {
	client := getClient(ctx, "next", nil)
	if client == nil {
		return nil
	}
	defer client.Close()

	sts, err := client.Status(context.Background())
	if err != nil {
		common.PrintRuntimeErr(ctx, "next", "get_status", err)
		return nil
	}
	if nextLimit > 0 && len(sts) > nextLimit {
		sts = sts[:nextLimit]
	}
	if len(sts) == 0 {
		fmt.Println("sundriven: no reminders are scheduled")
		return nil
	}
	if !watchNext {
		fmt.Println(statusTable(sts, time.Now()))
		return nil
	}

	sctx, cancel := setupShutdownHandler()
	defer cancel()
	countdown(sctx, mpb.New(mpb.WithWidth(48), mpb.WithRefreshRate(countdownRefresh)), sts, time.Now)
	return nil
}

// countdown draws one bar per armed reminder and advances them until
// every deadline has passed or ctx is done.
func countdown(ctx context.Context, p *mpb.Progress, sts []scheduler.Status, now func() time.Time) {
	type row struct {
		bar      *mpb.Bar
		armedAt  time.Time
		deadline time.Time
	}
	var rows []row
	for _, st := range sts {
		if st.State != scheduler.StateArmed {
			continue
		}
		armedAt := st.ArmedAt
		if armedAt.IsZero() {
			armedAt = now()
		}
		rows = append(rows, row{
			bar:      common.InitCountdownBar(p, st.Name, armedAt, st.Deadline.Local()),
			armedAt:  armedAt,
			deadline: st.Deadline,
		})
	}

	ticker := time.NewTicker(countdownRefresh)
	defer ticker.Stop()
	for {
		done := true
		t := now()
		for _, r := range rows {
			if r.bar.Completed() {
				continue
			}
			if !t.Before(r.deadline) {
				r.bar.SetCurrent(r.deadline.Sub(r.armedAt).Milliseconds())
				if !r.bar.Completed() {
					r.bar.SetTotal(-1, true)
				}
				continue
			}
			r.bar.SetCurrent(t.Sub(r.armedAt).Milliseconds())
			done = false
		}
		if done {
			break
		}
		select {
		case <-ctx.Done():
			for _, r := range rows {
				r.bar.Abort(false)
			}
			p.Wait()
			return
		case <-ticker.C:
		}
	}
	p.Wait()
}
