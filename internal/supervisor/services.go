package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
)

// HTTPServer is satisfied by *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

type HTTPService struct {
	name            string
	server          HTTPServer
	shutdownTimeout time.Duration
}

func NewHTTPService(name string, server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{name: name, server: server, shutdownTimeout: shutdownTimeout}
}

func (s *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%s failed: %w", s.name, err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s shutdown: %w", s.name, err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (s *HTTPService) String() string { return s.name }

// TriggerSubscriber is satisfied by the NATS trigger queue.
type TriggerSubscriber interface {
	SubscribeTriggers(ctx context.Context, handler func(context.Context, domain.Trigger) error) error
}

type TriggerConsumer struct {
	subscriber TriggerSubscriber
	handler    func(context.Context, domain.Trigger) error
}

func NewTriggerConsumer(subscriber TriggerSubscriber, handler func(context.Context, domain.Trigger) error) *TriggerConsumer {
	return &TriggerConsumer{subscriber: subscriber, handler: handler}
}

func (c *TriggerConsumer) Serve(ctx context.Context) error {
	slog.Info("trigger_consumer_started")
	if err := c.subscriber.SubscribeTriggers(ctx, c.handler); err != nil {
		return fmt.Errorf("trigger consumer: %w", err)
	}
	return ctx.Err()
}

func (c *TriggerConsumer) String() string { return "trigger-consumer" }

// Ticker calls fn every interval. Errors are logged and the loop keeps going.
type Ticker struct {
	name     string
	interval time.Duration
	fn       func(context.Context) error
}

func NewTicker(name string, interval time.Duration, fn func(context.Context) error) *Ticker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Ticker{name: name, interval: interval, fn: fn}
}

func (t *Ticker) Serve(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.run(ctx)
		}
	}
}

func (t *Ticker) run(ctx context.Context) {
	if err := t.fn(ctx); err != nil && ctx.Err() == nil {
		slog.Warn("periodic_task_failed", "task", t.name, "error", err.Error())
	}
}

func (t *Ticker) String() string { return t.name }
