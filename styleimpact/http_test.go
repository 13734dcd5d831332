package styleimpact

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := NewService(nil, nil, NewCallbackSink(nil, nil))
	srv := httptest.NewServer(svc.Handler("test"))
	t.Cleanup(func() {
		srv.Close()
		svc.Close()
	})
	return srv
}

func postJSON(t *testing.T, url string, body any) (*http.Response, []byte) {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestHTTP_Health(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestHTTP_Diff(t *testing.T) {
	srv := testServer(t)
	resp, body := postJSON(t, srv.URL+"/api/diff", offlineArgs(map[string]any{"rule_properties_only": true}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d: %s", resp.StatusCode, body)
	}
	var out DiffResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if got := out.Report.Squashed[".box"].Changes.Properties(); len(got) != 1 || got[0] != "color" {
		t.Errorf("properties: got %v", got)
	}
}

func TestHTTP_CounterCSS(t *testing.T) {
	srv := testServer(t)
	resp, body := postJSON(t, srv.URL+"/api/counter-css", offlineArgs(nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), `color: black;`) {
		t.Errorf("body: %s", body)
	}
}

func TestHTTP_Toggle(t *testing.T) {
	srv := testServer(t)
	resp, body := postJSON(t, srv.URL+"/api/toggle", offlineArgs(nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), `"theme.css":true`) {
		t.Errorf("body: %s", body)
	}
}

func TestHTTP_RunJob(t *testing.T) {
	srv := testServer(t)
	resp, body := postJSON(t, srv.URL+"/api/jobs/run", offlineArgs(map[string]any{"id": "http-job"}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), `"job_id":"http-job"`) {
		t.Errorf("body: %s", body)
	}
}

func TestHTTP_Errors(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Post(srv.URL+"/api/diff", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad json: got %d, want 400", resp.StatusCode)
	}

	resp, body := postJSON(t, srv.URL+"/api/diff", map[string]any{"html": "<p></p>"})
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "no sources") {
		t.Errorf("no sources: got %d %s", resp.StatusCode, body)
	}

	resp, _ = postJSON(t, srv.URL+"/api/diff", map[string]any{"sources": []string{"a.css"}})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("no target: got %d, want 422", resp.StatusCode)
	}
}
