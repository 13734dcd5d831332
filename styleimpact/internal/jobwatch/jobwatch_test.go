package jobwatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/styleimpact/dbopen"
	"github.com/hazyhaar/styleimpact/styleimpact/internal/config"
)

func job(id string) config.JobConfig {
	return config.JobConfig{
		ID:          id,
		HTML:        `<div class="box"></div>`,
		Stylesheets: map[string]string{"a.css": ".box{color:red}"},
		Sources:     []string{"a.css"},
		Scope:       "*",
	}
}

type recorder struct {
	mu   sync.Mutex
	runs [][]string
}

func (r *recorder) action(_ context.Context, jobs []config.JobConfig) error {
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	r.mu.Lock()
	r.runs = append(r.runs, ids)
	r.mu.Unlock()
	return nil
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.runs...)
}

func TestRunFiresOnStartAndChange(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(config.Schema))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := config.SaveJob(ctx, db, job("a")); err != nil {
		t.Fatal(err)
	}

	var rec recorder
	w := New(db, Options{Interval: 20 * time.Millisecond})
	go w.Run(ctx, rec.action)

	time.Sleep(60 * time.Millisecond)
	if got := len(rec.snapshot()); got != 1 {
		t.Fatalf("runs after start: got %d, want 1", got)
	}

	if err := config.SaveJob(ctx, db, job("b")); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	runs := rec.snapshot()
	if len(runs) != 2 {
		t.Fatalf("runs after save: got %d, want 2", len(runs))
	}
	if got := runs[1]; len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("second run jobs: got %v, want [a b]", got)
	}

	time.Sleep(80 * time.Millisecond)
	if got := len(rec.snapshot()); got != 2 {
		t.Fatalf("runs without change: got %d, want 2", got)
	}
}

func TestDisableTriggersRun(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(config.Schema))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config.SaveJob(ctx, db, job("a"))
	config.SaveJob(ctx, db, job("b"))

	var rec recorder
	w := New(db, Options{Interval: 20 * time.Millisecond})
	go w.Run(ctx, rec.action)
	time.Sleep(60 * time.Millisecond)

	time.Sleep(2 * time.Millisecond)
	if err := config.DisableJob(ctx, db, "a"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	runs := rec.snapshot()
	if len(runs) != 2 {
		t.Fatalf("runs: got %d, want 2", len(runs))
	}
	if got := runs[1]; len(got) != 1 || got[0] != "b" {
		t.Fatalf("jobs after disable: got %v, want [b]", got)
	}
}

func TestDebounce(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(config.Schema))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rec recorder
	w := New(db, Options{Interval: 20 * time.Millisecond, Debounce: 100 * time.Millisecond})
	go w.Run(ctx, rec.action)
	time.Sleep(50 * time.Millisecond)

	for _, id := range []string{"a", "b", "c"} {
		config.SaveJob(ctx, db, job(id))
		time.Sleep(25 * time.Millisecond)
	}
	if got := len(rec.snapshot()); got != 1 {
		t.Fatalf("runs during debounce: got %d, want 1", got)
	}

	time.Sleep(250 * time.Millisecond)
	runs := rec.snapshot()
	if len(runs) != 2 {
		t.Fatalf("runs after debounce: got %d, want 2", len(runs))
	}
	if got := len(runs[1]); got != 3 {
		t.Fatalf("debounced run jobs: got %d, want 3", got)
	}
}

func TestFailedRunIsRetried(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(config.Schema))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	w := New(db, Options{Interval: 20 * time.Millisecond})
	go w.Run(ctx, func(context.Context, []config.JobConfig) error {
		if calls.Add(1) == 2 {
			return errors.New("chrome went away")
		}
		return nil
	})
	time.Sleep(50 * time.Millisecond)

	config.SaveJob(ctx, db, job("a"))
	time.Sleep(120 * time.Millisecond)

	if got := calls.Load(); got < 3 {
		t.Fatalf("calls: got %d, want at least 3 (start, failure, retry)", got)
	}
	v, err := LastUpdate(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if w.Version() != v {
		t.Fatalf("version: got %d, want %d", w.Version(), v)
	}
	if s := w.Stats(); s.Errors == 0 || s.Runs < 2 {
		t.Fatalf("stats: %+v", s)
	}
}

func TestEvery(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(config.Schema))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rec recorder
	w := New(db, Options{Interval: time.Hour, Every: 30 * time.Millisecond})
	go w.Run(ctx, rec.action)
	time.Sleep(110 * time.Millisecond)

	if got := len(rec.snapshot()); got < 3 {
		t.Fatalf("periodic runs: got %d, want at least 3", got)
	}
}

func TestLastUpdateEmpty(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(config.Schema))
	v, err := LastUpdate(context.Background(), db)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0 {
		t.Fatalf("got %d, want 0", v)
	}
}
