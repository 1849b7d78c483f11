// Package sundcli is the client side of the sundriven daemon's JSON-RPC
// websocket endpoint.
package sundcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"

	"github.com/brettz9/sundriven/internal/wsrpc"
)

// ErrInvalidURL is returned when the daemon base URL cannot be parsed.
var ErrInvalidURL = errors.New("invalid daemon url")

// PushHandler receives server pushes such as notification.show and
// reminder.event.
type PushHandler func(method string, params json.RawMessage)

type Options struct {
	// OnPush is called for every server push. Pushes are dropped when nil.
	OnPush PushHandler
}

type Client struct {
	rpc *jrpc2.Client
}

// Dial connects to the daemon at baseURL (http or https) and
// authenticates with token.
func Dial(ctx context.Context, baseURL, token string, opts *Options) (*Client, error) {
	target, err := WebSocketURL(baseURL, token)
	if err != nil {
		return nil, err
	}
	conn, _, err := cws.Dial(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("error connecting to daemon: %w", err)
	}
	var copts *jrpc2.ClientOptions
	if opts != nil && opts.OnPush != nil {
		onPush := opts.OnPush
		copts = &jrpc2.ClientOptions{
			OnNotify: func(req *jrpc2.Request) {
				var params json.RawMessage
				_ = req.UnmarshalParams(&params)
				onPush(req.Method(), params)
			},
		}
	}
	// the channel outlives the dial context
	ch := wsrpc.New(context.Background(), conn)
	return &Client{rpc: jrpc2.NewClient(ch, copts)}, nil
}

// WebSocketURL turns the daemon base URL into the websocket endpoint with
// the token in the query string.
func WebSocketURL(baseURL, token string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/jsonrpc/ws"
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) Close() error {
	return c.rpc.Close()
}

func call[T any](ctx context.Context, c *Client, method string, params any) (*T, error) {
	var out T
	if err := c.rpc.CallResult(ctx, method, params, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return &out, nil
}
