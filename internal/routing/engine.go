package routing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"otb/internal/logging"
	"otb/internal/services"
)

// Engine serializes requests to a lazily created Transport.
type Engine struct {
	open   func() (Transport, error)
	logger *slog.Logger

	mu        sync.Mutex
	transport Transport
	openErr   error
	opened    bool
	requests  int
}

// NewEngine returns an Engine that calls open once, on first use. A failed
// open is remembered and returned to every later request.
func NewEngine(open func() (Transport, error), logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{open: open, logger: logging.NewComponentLogger(logger, "routing")}
}

// NewHTTPEngine returns an Engine backed by an HTTP transport.
func NewHTTPEngine(endpoint string, timeout time.Duration, logger *slog.Logger) *Engine {
	return NewEngine(func() (Transport, error) {
		return NewHTTPTransport(endpoint, timeout), nil
	}, logger)
}

// Route sends request to the routing engine and returns its response text.
func (e *Engine) Route(ctx context.Context, request string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	transport, err := e.handle()
	if err != nil {
		return "", err
	}
	e.requests++
	start := time.Now()
	response, err := transport.RoundTrip(ctx, request)
	if err != nil {
		logging.WarnWithContext(ctx, e.logger, "route request failed", "route_failed",
			logging.String(logging.FieldErrorHint, "check that the routing engine is running"),
			logging.Error(err),
		)
		return "", err
	}
	e.logger.DebugContext(ctx, "route request complete",
		logging.Int("request_bytes", len(request)),
		logging.Int("response_bytes", len(response)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return response, nil
}

// Requests reports how many requests reached the transport.
func (e *Engine) Requests() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requests
}

func (e *Engine) handle() (Transport, error) {
	if e.opened {
		return e.transport, e.openErr
	}
	e.opened = true
	if e.open == nil {
		e.openErr = services.Wrap(services.ErrConfiguration, "routing", "open", "no transport configured", nil)
		return nil, e.openErr
	}
	transport, err := e.open()
	if err == nil && transport == nil {
		err = services.Wrap(services.ErrConfiguration, "routing", "open", "transport constructor returned nil", nil)
	}
	if err != nil {
		e.openErr = err
		return nil, err
	}
	e.transport = transport
	e.logger.Debug("routing engine opened")
	return transport, nil
}
