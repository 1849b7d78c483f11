package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"

	"github.com/brettz9/sundriven/internal/wsrpc"
	"github.com/brettz9/sundriven/pkg/logger"
)

// WebServer serves the JSON-RPC endpoints:
//
//	POST /jsonrpc     request/response over HTTP
//	GET  /jsonrpc/ws  websocket with server push
//	GET  /healthz     liveness, no auth
type WebServer struct {
	l        logger.Logger
	rpc      *RPCServer
	notifier *RPCNotifier
	server   *http.Server
	mu       sync.Mutex

	// base parents every request context; cancelling it ends websocket
	// sessions, which http.Server.Shutdown does not track.
	base       context.Context
	cancelBase context.CancelFunc
}

func NewWebServer(l logger.Logger, rpc *RPCServer, notifier *RPCNotifier) *WebServer {
	if notifier == nil {
		notifier = NewRPCNotifier(l)
	}
	base, cancel := context.WithCancel(context.Background())
	return &WebServer{l: logger.OrNop(l), rpc: rpc, notifier: notifier, base: base, cancelBase: cancel}
}

// Notifier returns the broadcaster websocket clients register with.
func (s *WebServer) Notifier() *RPCNotifier {
	return s.notifier
}

func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /jsonrpc", requireToken(s.rpc.secret, s.rpc.bridge))
	mux.Handle("GET /jsonrpc/ws", requireToken(s.rpc.secret, http.HandlerFunc(s.serveWebSocket)))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "version": s.rpc.version})
	})
	return mux
}

// serveWebSocket runs a push-enabled jrpc2 server for one connection until
// the client goes away.
func (s *WebServer) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := cws.Accept(w, r, nil)
	if err != nil {
		s.l.Warning("server: websocket accept: %v", err)
		return
	}
	srv := jrpc2.NewServer(s.rpc.Methods(), &jrpc2.ServerOptions{AllowPush: true})
	srv.Start(wsrpc.New(r.Context(), conn))
	s.notifier.Register(srv)
	defer s.notifier.Unregister(srv)
	if err := srv.Wait(); err != nil {
		var ce cws.CloseError
		if !errors.As(err, &ce) && !errors.Is(err, context.Canceled) {
			s.l.Warning("server: websocket session ended: %v", err)
		}
	}
}

// Serve accepts connections on ln until Shutdown.
func (s *WebServer) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.server = &http.Server{
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return s.base },
	}
	srv := s.server
	s.mu.Unlock()

	s.l.Info("server: listening on %s", ln.Addr())
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil // Expected during shutdown
	}
	return err
}

// Shutdown gracefully stops the web server.
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelBase()
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	s.rpc.Close()
	return err
}
