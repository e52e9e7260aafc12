package eventbus

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

var (
	_ Publisher = (*NATS)(nil)
	_ Publisher = (*Recorder)(nil)
	_ Publisher = Noop{}
)

func TestRecorderKeepsOrder(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()
	r.Publish(ctx, SubjectBundleGenerated, BundleGenerated{ModID: 2, ResultID: 4097})
	r.Publish(ctx, SubjectBatchCompleted, BatchCompleted{Generated: 1})

	events := r.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Subject != SubjectBundleGenerated || events[1].Subject != SubjectBatchCompleted {
		t.Fatalf("unexpected subjects %q %q", events[0].Subject, events[1].Subject)
	}
	if got := events[0].Payload.(BundleGenerated).ResultID; got != 4097 {
		t.Fatalf("expected result id 4097, got %d", got)
	}

	events[0].Subject = "changed"
	if r.Events()[0].Subject != SubjectBundleGenerated {
		t.Fatalf("Events must return a copy")
	}
}

func TestConnectUnreachable(t *testing.T) {
	if _, err := Connect("nats://127.0.0.1:1", zap.NewNop()); err == nil {
		t.Fatalf("expected connect error for unreachable server")
	}
}

func TestEchoWithoutConnection(t *testing.T) {
	b := &NATS{logger: zap.NewNop()}
	if _, err := b.Subscribe(SubjectAll, func(*nats.Msg) {}); !errors.Is(err, nats.ErrConnectionClosed) {
		t.Fatalf("Subscribe() error = %v, want ErrConnectionClosed", err)
	}
	if _, err := b.Echo(context.Background()); !errors.Is(err, nats.ErrConnectionClosed) {
		t.Fatalf("Echo() error = %v, want ErrConnectionClosed", err)
	}
}
