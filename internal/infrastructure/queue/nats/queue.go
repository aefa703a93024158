// Package nats carries generation triggers between the API and the workers.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
	"github.com/sebmendo1/MeetMemento-sub000/internal/infrastructure/resilience"
)

const OperationPublishTrigger = "nats.publish_trigger"

type Options struct {
	QueueGroup           string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

type Queue struct {
	conn       *nats.Conn
	subject    string
	queueGroup string
	executor   *resilience.Executor
}

func New(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	group := strings.TrimSpace(options.QueueGroup)
	if group == "" {
		group = "generation-workers"
	}

	conn, err := nats.Connect(
		url,
		nats.Name("meetmemento-generation"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", errString(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:       conn,
		subject:    subject,
		queueGroup: group,
		executor:   options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishTrigger(ctx context.Context, trigger domain.Trigger) error {
	payload, err := encodeTrigger(trigger)
	if err != nil {
		return err
	}
	call := func(context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, OperationPublishTrigger, call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}

// SubscribeTriggers consumes triggers as one member of the queue group until ctx is
// done, then drains the subscription. Handler errors are logged and the message is
// dropped; the reconciler recovers anything left in flight.
func (q *Queue) SubscribeTriggers(ctx context.Context, handler func(context.Context, domain.Trigger) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, q.queueGroup, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		trigger, err := decodeTrigger(msg.Data)
		if err != nil {
			slog.Warn("trigger_decode_failed", "subject", msg.Subject, "error", err.Error())
			return
		}
		if err := handler(ctx, trigger); err != nil {
			slog.Error("trigger_handler_failed",
				"user_id", trigger.UserID,
				"event", string(trigger.Event),
				"error", err.Error(),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeTrigger(trigger domain.Trigger) ([]byte, error) {
	if strings.TrimSpace(trigger.UserID) == "" || !trigger.Event.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "encode trigger", fmt.Errorf("user=%q event=%q", trigger.UserID, trigger.Event))
	}
	payload, err := json.Marshal(trigger)
	if err != nil {
		return nil, fmt.Errorf("marshal trigger: %w", err)
	}
	return payload, nil
}

func decodeTrigger(data []byte) (domain.Trigger, error) {
	var trigger domain.Trigger
	if err := json.Unmarshal(data, &trigger); err != nil {
		return domain.Trigger{}, fmt.Errorf("unmarshal trigger: %w", err)
	}
	if strings.TrimSpace(trigger.UserID) == "" || !trigger.Event.Valid() {
		return domain.Trigger{}, domain.WrapError(domain.ErrInvalidInput, "decode trigger", fmt.Errorf("user=%q event=%q", trigger.UserID, trigger.Event))
	}
	return trigger, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
