package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	// StreamName is the JetStream stream holding every modgen event.
	StreamName = "MODGEN"

	SubjectAll             = "modgen.>"
	SubjectBundleGenerated = "modgen.bundle.generated"
	SubjectBatchCompleted  = "modgen.batch.completed"
	SubjectPing            = "modgen.ping"
)

// Publisher emits domain events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
	Healthy() bool
	Close()
}

// NATS publishes through JetStream when available and falls back to core NATS.
type NATS struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *zap.Logger
}

// Connect dials url and ensures the MODGEN stream exists. A missing JetStream
// is not fatal; events then go out on plain subjects.
func Connect(url string, logger *zap.Logger) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("modgen"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	b := &NATS{conn: nc, logger: logger}

	js, err := nc.JetStream()
	if err != nil {
		logger.Warn("jetstream unavailable, using core nats", zap.Error(err))
		return b, nil
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectAll},
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		logger.Warn("could not provision stream", zap.String("stream", StreamName), zap.Error(err))
		return b, nil
	}
	b.js = js

	logger.Info("nats event bus ready", zap.String("url", url), zap.Bool("jetstream", true))
	return b, nil
}

func (b *NATS) Publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", subject, err)
	}
	if b.js != nil {
		_, err = b.js.Publish(subject, data, nats.Context(ctx))
	} else {
		err = b.conn.Publish(subject, data)
	}
	if err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (b *NATS) Healthy() bool {
	return b.conn != nil && b.conn.IsConnected()
}

func (b *NATS) Close() {
	if b.conn != nil {
		b.conn.Drain()
	}
}

// Subscribe attaches handler to subject on the core connection.
func (b *NATS) Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	if b.conn == nil {
		return nil, nats.ErrConnectionClosed
	}
	return b.conn.Subscribe(subject, handler)
}

// Echo publishes a Ping and waits until a subscription on SubjectAll sees
// it come back, returning the round trip time.
func (b *NATS) Echo(ctx context.Context) (time.Duration, error) {
	token := nats.NewInbox()
	seen := make(chan struct{}, 1)
	sub, err := b.Subscribe(SubjectAll, func(m *nats.Msg) {
		var p Ping
		if m.Subject == SubjectPing && json.Unmarshal(m.Data, &p) == nil && p.Token == token {
			select {
			case seen <- struct{}{}:
			default:
			}
		}
	})
	if err != nil {
		return 0, fmt.Errorf("subscribe %s: %w", SubjectAll, err)
	}
	defer sub.Unsubscribe()

	start := time.Now()
	if err := b.Publish(ctx, SubjectPing, Ping{Token: token, Sent: start.UTC()}); err != nil {
		return 0, err
	}
	select {
	case <-seen:
		return time.Since(start), nil
	case <-ctx.Done():
		return 0, fmt.Errorf("wait for %s: %w", SubjectPing, ctx.Err())
	}
}

// Noop drops every event. Used when NATS_URL is empty.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }
func (Noop) Healthy() bool                              { return true }
func (Noop) Close()                                     {}
