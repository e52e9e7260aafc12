package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestFutureWait(t *testing.T) {
	f := Go(func() (int, error) { return 42, nil })
	v, err := f.Wait(context.Background())
	if err != nil || v != 42 {
		t.Errorf("expected 42, got %d, %v", v, err)
	}
}

func TestFuturePanicBecomesError(t *testing.T) {
	f := Go(func() (int, error) { panic("boom") })
	if _, err := f.Wait(context.Background()); err == nil {
		t.Error("expected error from panic")
	}
}

func TestFutureWaitContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	f := Go(func() (int, error) {
		<-release
		return 1, nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := f.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline, got %v", err)
	}
}

func TestFutureThen(t *testing.T) {
	got := make(chan string, 1)
	Go(func() (string, error) { return "done", nil }).Then(func(s string, err error) {
		got <- s
	})
	select {
	case s := <-got:
		if s != "done" {
			t.Errorf("unexpected value %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("callback not delivered")
	}
}

func waitFor[T, P any](t *testing.T, jobs *Jobs[T, P], id string) Job[T, P] {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := jobs.Get(id)
		if err != nil {
			t.Fatal(err)
		}
		if job.FinishedAt != nil {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return Job[T, P]{}
}

func TestJobsLifecycle(t *testing.T) {
	jobs := NewJobs[string, int](1, time.Minute, zap.NewNop())
	defer jobs.Close()

	id, err := jobs.Submit(func(ctx context.Context, report func(int)) (string, error) {
		report(1)
		report(2)
		return "ok", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	job := waitFor(t, jobs, id)
	if job.Status != StatusSucceeded || job.Result == nil || *job.Result != "ok" {
		t.Errorf("unexpected job %+v", job)
	}
	if job.Progress == nil || *job.Progress != 2 {
		t.Errorf("expected last progress 2, got %v", job.Progress)
	}

	failID, _ := jobs.Submit(func(ctx context.Context, report func(int)) (string, error) {
		return "", errors.New("nope")
	})
	failed := waitFor(t, jobs, failID)
	if failed.Status != StatusFailed || failed.Error != "nope" {
		t.Errorf("unexpected failed job %+v", failed)
	}

	if _, err := jobs.Get("missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestJobsSubmitAfterClose(t *testing.T) {
	jobs := NewJobs[int, int](1, 0, zap.NewNop())
	jobs.Close()
	if _, err := jobs.Submit(func(context.Context, func(int)) (int, error) { return 0, nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
