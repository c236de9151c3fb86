package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrConnectionNotFound indicates no live connection for the adapter name.
var ErrConnectionNotFound = errors.New("transport connection not found")

// Registry owns the live transport connections, keyed by adapter name.
// It is built at startup from the configured adapters and torn down at
// shutdown; nothing else holds connection state.
type Registry struct {
	logger *slog.Logger

	mu    sync.RWMutex
	conns map[string]Connection
}

// NewRegistry creates an empty connection registry.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		logger: log.With(slog.String("service", "transport")),
		conns:  make(map[string]Connection),
	}
}

// StartAll connects every adapter and records the live connections.
// Failure of any adapter tears down the ones already started.
func (r *Registry) StartAll(ctx context.Context, adapters []Adapter, handler InboundHandler) error {
	for _, adapter := range adapters {
		conn, err := adapter.Connect(ctx, handler)
		if err != nil {
			r.StopAll(ctx)
			return fmt.Errorf("connect %s: %w", adapter.Name(), err)
		}
		r.mu.Lock()
		r.conns[adapter.Name()] = conn
		r.mu.Unlock()
		r.logger.Info("transport connected", slog.String("adapter", adapter.Name()))
	}
	return nil
}

// Get returns the live connection for the named adapter.
func (r *Registry) Get(name string) (Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, name)
	}
	return conn, nil
}

// Names returns the adapter names with a registered connection.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.conns))
	for name := range r.conns {
		names = append(names, name)
	}
	return names
}

// Running reports how many registered connections are still live.
func (r *Registry) Running() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, conn := range r.conns {
		if conn.Running() {
			n++
		}
	}
	return n
}

// StopAll stops every connection. Stop errors are logged, not returned:
// shutdown keeps going.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, conn := range r.conns {
		if err := conn.Stop(ctx); err != nil && !errors.Is(err, ErrStopNotSupported) {
			r.logger.Warn("transport stop failed",
				slog.String("adapter", name),
				slog.Any("error", err))
		}
		delete(r.conns, name)
	}
}
