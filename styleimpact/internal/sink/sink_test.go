package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/styleimpact/report"
)

func sampleResult() *report.Result {
	r := report.NewSquashed()
	r.AddSquashed(".box", report.ElementRef{Handle: 1, Path: "div.box"}, ".box { width: 100px; }",
		report.Changes{"width": {"auto", "100px"}})
	return &report.Result{RunID: "run-1", JobID: "job-1", Sources: []string{"main.css"}, Report: r, Timestamp: 1}
}

func TestStdoutJSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf)
	ctx := context.Background()
	if err := s.Send(ctx, sampleResult()); err != nil {
		t.Fatal(err)
	}
	if err := s.SendFailure(ctx, report.Failure{RunID: "run-2", JobID: "job-1", Error: "boom"}); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != "result" {
		t.Errorf("type: got %q, want result", env.Type)
	}
	res, err := report.UnmarshalResult(env.Data)
	if err != nil {
		t.Fatal(err)
	}
	if res.Report.Squashed[".box"].Changes["width"].After() != "100px" {
		t.Errorf("decoded report: got %+v", res.Report)
	}
	if !strings.Contains(lines[1], `"type":"failure"`) {
		t.Errorf("second line: got %s", lines[1])
	}
}

type failing struct{ Callback }

func (failing) Send(context.Context, *report.Result) error { return errors.New("down") }

func TestRouterFanOut(t *testing.T) {
	var got atomic.Int32
	cb := NewCallback(func(context.Context, *report.Result) error {
		got.Add(1)
		return nil
	}, nil)

	r := NewRouter(nil, &failing{}, cb)
	r.Add(cb)
	if r.Len() != 3 {
		t.Fatalf("Len: got %d, want 3", r.Len())
	}
	err := r.Send(context.Background(), sampleResult())
	if err == nil || err.Error() != "down" {
		t.Errorf("err: got %v, want down", err)
	}
	if got.Load() != 2 {
		t.Errorf("delivered: got %d, want 2", got.Load())
	}
	if err := r.SendFailure(context.Background(), report.Failure{}); err != nil {
		t.Errorf("SendFailure with nil handlers: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Error(err)
	}
}

func TestWebhookRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !bytes.Contains(body, []byte(`"type":"result"`)) {
			t.Errorf("body: %s", body)
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond))
	if err := w.Send(context.Background(), sampleResult()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls: got %d, want 3", calls.Load())
	}
}

func TestWebhookExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithWebhookRetries(1), WithWebhookBackoff(time.Millisecond))
	err := w.SendFailure(context.Background(), report.Failure{JobID: "x"})
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Errorf("err: got %v", err)
	}
}
