package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/brettz9/sundriven/cmd/common"
	"github.com/brettz9/sundriven/internal/scheduler"
	"github.com/brettz9/sundriven/internal/server"
	"github.com/brettz9/sundriven/pkg/sundcli"
)

// watchPing is how often watch checks that the daemon is still there.
const watchPing = 10 * time.Second

var (
	titleColor = color.New(color.FgGreen, color.Bold)
	alertColor = color.New(color.FgRed, color.Bold)
	eventColor = color.New(color.FgHiBlack)
)

// pushPrinter writes server pushes as single lines.
type pushPrinter struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

func (p *pushPrinter) print(method string, params json.RawMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	stamp := p.now().Format("15:04:05")
	switch method {
	case server.PushNotificationShow:
		var n server.ShowNotification
		if json.Unmarshal(params, &n) != nil {
			return
		}
		fmt.Fprintf(p.w, "%s %s %s\n", stamp, titleColor.Sprint(n.Title), n.Body)
	case server.PushAlert:
		var a server.AlertNotification
		if json.Unmarshal(params, &a) != nil {
			return
		}
		fmt.Fprintf(p.w, "%s %s %s\n", stamp, alertColor.Sprint("alert"), a.Message)
	case server.PushReminderEvent:
		var ev scheduler.Event
		if json.Unmarshal(params, &ev) != nil {
			return
		}
		line := fmt.Sprintf("%s %s", ev.Type, ev.Name)
		if !ev.Deadline.IsZero() {
			line += " for " + ev.Deadline.Local().Format(time.DateTime)
		}
		if ev.Message != "" {
			line += ": " + ev.Message
		}
		fmt.Fprintf(p.w, "%s %s\n", stamp, eventColor.Sprint(line))
	case server.PushDeviceVibrate:
		// nothing to show in a terminal
	}
}

func watch(ctx *cli.Context) error {
	p := &pushPrinter{w: color.Output, now: time.Now}
	client := getClient(ctx, "watch", &sundcli.Options{OnPush: p.print})
	if client == nil {
		return nil
	}
	defer client.Close()

	fmt.Fprintln(os.Stderr, "Watching for notifications, press Ctrl+C to stop")
	sctx, cancel := setupShutdownHandler()
	defer cancel()

	ticker := time.NewTicker(watchPing)
	defer ticker.Stop()
	for {
		select {
		case <-sctx.Done():
			return nil
		case <-ticker.C:
			if _, err := client.Version(context.Background()); err != nil {
				common.PrintRuntimeErr(ctx, "watch", "connection", err)
				return nil
			}
		}
	}
}
