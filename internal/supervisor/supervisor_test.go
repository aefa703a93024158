package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
)

type fakeServer struct {
	listenErr error
	started   chan struct{}
	stop      chan struct{}
	shutdowns atomic.Int32
}

func newFakeServer() *fakeServer {
	return &fakeServer{started: make(chan struct{}, 1), stop: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	f.started <- struct{}{}
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	close(f.stop)
	return nil
}

type fakeSubscriber struct {
	triggers []domain.Trigger
}

func (f *fakeSubscriber) SubscribeTriggers(ctx context.Context, handler func(context.Context, domain.Trigger) error) error {
	for _, trigger := range f.triggers {
		_ = handler(ctx, trigger)
	}
	<-ctx.Done()
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultTreeConfigApplied(t *testing.T) {
	tree := NewTree("test", quietLogger(), TreeConfig{})
	if tree.config != DefaultTreeConfig() {
		t.Fatalf("expected defaults, got %+v", tree.config)
	}
}

func TestHTTPServiceShutsDownOnCancel(t *testing.T) {
	server := newFakeServer()
	svc := NewHTTPService("api", server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-server.started
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("service did not stop")
	}
	if server.shutdowns.Load() != 1 {
		t.Fatalf("expected one shutdown call")
	}
}

func TestHTTPServiceReportsListenFailure(t *testing.T) {
	server := newFakeServer()
	server.listenErr = errors.New("address in use")
	svc := NewHTTPService("api", server, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, server.listenErr) {
		t.Fatalf("expected listen error, got %v", err)
	}
}

func TestTickerRunsUntilCanceled(t *testing.T) {
	var calls atomic.Int32
	ticker := NewTicker("reconcile", 5*time.Millisecond, func(context.Context) error {
		if calls.Add(1) == 1 {
			return errors.New("database locked")
		}
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	if err := ticker.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if calls.Load() < 2 {
		t.Fatalf("ticker should keep running after an error, calls=%d", calls.Load())
	}
}

func TestTreeRunsServices(t *testing.T) {
	tree := NewTree("test", quietLogger(), TreeConfig{ShutdownTimeout: time.Second})

	handled := make(chan domain.Trigger, 1)
	sub := &fakeSubscriber{triggers: []domain.Trigger{{UserID: "u1", Event: domain.EventDocumentCreated}}}
	tree.AddBackground(NewTriggerConsumer(sub, func(_ context.Context, trigger domain.Trigger) error {
		handled <- trigger
		return nil
	}))
	server := newFakeServer()
	tree.AddAPI(NewHTTPService("api", server, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	select {
	case trigger := <-handled:
		if trigger.UserID != "u1" {
			t.Fatalf("unexpected trigger %+v", trigger)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("trigger was not consumed")
	}
	<-server.started

	cancel()
	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatalf("tree did not stop")
	}
	if server.shutdowns.Load() != 1 {
		t.Fatalf("api service should be shut down with the tree")
	}
}
