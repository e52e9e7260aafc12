package eventbus

import (
	"context"
	"sync"
	"time"
)

// BundleGenerated is published once per successfully synthesized creature.
type BundleGenerated struct {
	ModID     int64     `json:"mod_id"`
	ResultID  int64     `json:"result_id"`
	CopyID    int       `json:"copy_id"`
	Name      string    `json:"name"`
	Author    string    `json:"author"`
	LinkKey   string    `json:"link_key"`
	Files     []string  `json:"files"`
	Timestamp time.Time `json:"timestamp"`
}

// BatchCompleted summarizes a batch run.
type BatchCompleted struct {
	Author      string        `json:"author"`
	Generated   int           `json:"generated"`
	Failed      int           `json:"failed"`
	NextIDAfter int64         `json:"next_id_after"`
	Duration    time.Duration `json:"duration_ns"`
	Timestamp   time.Time     `json:"timestamp"`
}

// Ping is published by connection checks.
type Ping struct {
	Token string    `json:"token"`
	Sent  time.Time `json:"sent"`
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

type Recorded struct {
	Subject string
	Payload any
}

func (r *Recorder) Publish(_ context.Context, subject string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Subject: subject, Payload: payload})
	return nil
}

func (r *Recorder) Healthy() bool { return true }
func (r *Recorder) Close()        {}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.events...)
}
