package server

import (
	"context"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"

	"github.com/brettz9/sundriven/internal/notify"
	"github.com/brettz9/sundriven/internal/scheduler"
	"github.com/brettz9/sundriven/pkg/logger"
)

// Push methods sent to websocket clients.
const (
	PushNotificationShow = "notification.show"
	PushDeviceVibrate    = "device.vibrate"
	PushAlert            = "alert"
	PushReminderEvent    = "reminder.event"
)

// RPCNotifier maintains a set of connected jrpc2 WebSocket servers
// and broadcasts push notifications to all of them.
type RPCNotifier struct {
	mu      sync.RWMutex
	servers map[*jrpc2.Server]struct{}
	log     logger.Logger
}

func NewRPCNotifier(l logger.Logger) *RPCNotifier {
	return &RPCNotifier{
		servers: make(map[*jrpc2.Server]struct{}),
		log:     logger.OrNop(l),
	}
}

func (n *RPCNotifier) Register(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.servers[srv] = struct{}{}
}

func (n *RPCNotifier) Unregister(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.servers, srv)
}

// Broadcast pushes method to every registered server and reports how many
// accepted it. Servers that fail are dropped from the set.
func (n *RPCNotifier) Broadcast(method string, params any) int {
	n.mu.RLock()
	servers := make([]*jrpc2.Server, 0, len(n.servers))
	for srv := range n.servers {
		servers = append(servers, srv)
	}
	n.mu.RUnlock()

	var failed []*jrpc2.Server
	for _, srv := range servers {
		if err := srv.Notify(context.Background(), method, params); err != nil {
			n.log.Warning("server: push %s failed: %v", method, err)
			failed = append(failed, srv)
		}
	}

	if len(failed) > 0 {
		n.mu.Lock()
		for _, srv := range failed {
			delete(n.servers, srv)
		}
		n.mu.Unlock()
	}
	return len(servers) - len(failed)
}

// Count returns the number of registered servers.
func (n *RPCNotifier) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.servers)
}

// ShowNotification is the payload of notification.show.
type ShowNotification struct {
	Title              string `json:"title"`
	Body               string `json:"body"`
	Lang               string `json:"lang"`
	RequireInteraction bool   `json:"requireInteraction"`
}

// VibrateNotification is the payload of device.vibrate.
type VibrateNotification struct {
	Ms int64 `json:"ms"`
}

// AlertNotification is the payload of alert.
type AlertNotification struct {
	Message string `json:"message"`
}

// PushNotifier presents notifications, vibrations and alerts on the
// connected websocket clients.
type PushNotifier struct {
	n *RPCNotifier
}

func NewPushNotifier(n *RPCNotifier) *PushNotifier {
	return &PushNotifier{n: n}
}

// Show never fails: a notification with no client attached is only logged
// by the other notifiers.
func (p *PushNotifier) Show(title string, opts notify.Options) error {
	p.n.Broadcast(PushNotificationShow, &ShowNotification{
		Title:              title,
		Body:               opts.Body,
		Lang:               opts.Lang,
		RequireInteraction: opts.RequireInteraction,
	})
	return nil
}

func (p *PushNotifier) Vibrate(d time.Duration) error {
	p.n.Broadcast(PushDeviceVibrate, &VibrateNotification{Ms: d.Milliseconds()})
	return nil
}

func (p *PushNotifier) Alert(message string) {
	p.n.Broadcast(PushAlert, &AlertNotification{Message: message})
}

var (
	_ notify.Notifier = (*PushNotifier)(nil)
	_ notify.Vibrator = (*PushNotifier)(nil)
	_ notify.Alerter  = (*PushNotifier)(nil)
)

// ForwardEvents relays scheduler events as reminder.event pushes until
// events is closed or ctx is done.
func (n *RPCNotifier) ForwardEvents(ctx context.Context, events <-chan scheduler.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			n.Broadcast(PushReminderEvent, ev)
		}
	}
}
