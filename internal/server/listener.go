package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
)

// ConnectionHandler is called for each new telnet connection.
// The handler is responsible for running the connection and closing it.
type ConnectionHandler func(ctx context.Context, tc *TelnetConn)

// Listener accepts incoming telnet connections.
type Listener struct {
	addr    string
	handler ConnectionHandler
	log     *zap.Logger

	mu sync.Mutex
	ln net.Listener
}

// NewListener creates a new TCP listener for telnet connections.
func NewListener(port int, handler ConnectionHandler, logger *zap.Logger) *Listener {
	return &Listener{
		addr:    fmt.Sprintf(":%d", port),
		handler: handler,
		log:     logger.Named("telnet"),
	}
}

// Addr returns the bound address once listening, or the configured one.
func (l *Listener) Addr() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln != nil {
		return l.ln.Addr().String()
	}
	return l.addr
}

// ListenAndServe accepts connections until ctx is cancelled. Handlers
// receive ctx and should return when it is done.
func (l *Listener) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", l.addr, err)
	}
	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()

	l.log.Info("telnet server listening", zap.String("addr", ln.Addr().String()))

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			l.log.Warn("accept failed", zap.Error(err))
			continue
		}

		tc := NewTelnetConn(conn)
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.handler(ctx, tc)
		}()
	}
}
