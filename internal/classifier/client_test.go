package classifier

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestClassifySendsMultipartAndDecodesResponse(t *testing.T) {
	payload := []byte("\x89PNG fake image bytes")

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/predict" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("expected multipart field file: %v", err)
			writeJSON(w, http.StatusBadRequest, `{"detail":"no file"}`)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != string(payload) {
			t.Errorf("unexpected payload %q", data)
		}
		if header.Filename != "cat.png" {
			t.Errorf("unexpected filename %q", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("unexpected part content type %q", ct)
		}
		writeJSON(w, http.StatusOK, `{"label":"REAL","index":1,"confidence":97,"probabilities":[0.03,0.97],"filename":"cat.png"}`)
	})

	client := New(server.URL, nil, zap.NewNop())
	resp, err := client.Classify(context.Background(), NewRequest("cat.png", "image/png", payload))
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if resp.Label != LabelReal {
		t.Fatalf("unexpected label %q", resp.Label)
	}
	if resp.Confidence != 97 {
		t.Fatalf("unexpected confidence %v", resp.Confidence)
	}
	if len(resp.Probabilities) != 2 || resp.Probabilities[0] != 0.03 || resp.Probabilities[1] != 0.97 {
		t.Fatalf("unexpected probabilities %v", resp.Probabilities)
	}
}

func TestClassifyServiceRejectedCarriesDetail(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"detail":"model unavailable"}`)
	})

	client := New(server.URL, nil, zap.NewNop())
	_, err := client.Classify(context.Background(), NewRequest("a.png", "image/png", []byte("x")))
	if !errors.Is(err, ErrServiceRejected) {
		t.Fatalf("expected ErrServiceRejected, got %v", err)
	}

	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if cerr.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", cerr.Status)
	}
	if got := UserMessage(err); got != "model unavailable" {
		t.Fatalf("unexpected user message %q", got)
	}
}

func TestClassifyServiceRejectedWithoutDetailFallsBack(t *testing.T) {
	cases := map[string]string{
		"empty body":      ``,
		"plain text":      `internal error`,
		"validation list": `{"detail":[{"loc":["body","file"],"msg":"field required"}]}`,
		"missing detail":  `{"error":"nope"}`,
		"blank detail":    `{"detail":"   "}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusBadRequest, body)
			})
			client := New(server.URL, nil, zap.NewNop())
			_, err := client.Classify(context.Background(), NewRequest("a.png", "image/png", []byte("x")))
			if KindOf(err) != KindServiceRejected {
				t.Fatalf("expected service rejected, got %v", err)
			}
			if got := UserMessage(err); got != "Prediction failed" {
				t.Fatalf("unexpected user message %q", got)
			}
		})
	}
}

func TestClassifyUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := New(url, nil, zap.NewNop())
	_, err := client.Classify(context.Background(), NewRequest("a.png", "image/png", []byte("x")))
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
	if got := UserMessage(err); got != "Failed to connect to server" {
		t.Fatalf("unexpected user message %q", got)
	}
}

func TestClassifyMalformedResponses(t *testing.T) {
	cases := map[string]string{
		"invalid json":          `{"label":`,
		"missing label":         `{"confidence":50,"probabilities":[0.5,0.5]}`,
		"missing probabilities": `{"label":"REAL","confidence":50}`,
		"missing confidence":    `{"label":"REAL","probabilities":[0.5,0.5]}`,
		"sum too small":         `{"label":"FAKE","confidence":50,"probabilities":[0.2,0.3]}`,
		"sum too large":         `{"label":"FAKE","confidence":50,"probabilities":[0.9,0.9]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, body)
			})
			client := New(server.URL, nil, zap.NewNop())
			_, err := client.Classify(context.Background(), NewRequest("a.png", "image/png", []byte("x")))
			if !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestClassifyDoesNotCache(t *testing.T) {
	var hits atomic.Int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, `{"label":"FAKE","confidence":99.5,"probabilities":[0.995,0.005]}`)
	})

	client := New(server.URL+"/", nil, zap.NewNop())
	req := NewRequest("a.png", "image/png", []byte("same"))
	for i := 0; i < 2; i++ {
		if _, err := client.Classify(context.Background(), req); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("expected 2 requests, got %d", got)
	}
}

func TestNewRequestCopiesData(t *testing.T) {
	data := []byte("abc")
	req := NewRequest("a.png", "image/png", data)
	data[0] = 'z'
	if string(req.data) != "abc" {
		t.Fatalf("request shares caller buffer: %q", req.data)
	}
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			writeJSON(w, http.StatusNotFound, `{"detail":"Not Found"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"status":"ok","model_loaded":true}`)
	})

	health, err := New(server.URL, nil, zap.NewNop()).Health(context.Background())
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if health.Status != "ok" || !health.ModelLoaded {
		t.Fatalf("unexpected health %+v", health)
	}
}

func TestParseLabel(t *testing.T) {
	cases := []struct {
		raw  string
		want Label
		ok   bool
	}{
		{"REAL", LabelReal, true},
		{"FAKE", LabelFake, true},
		{"AI", LabelFake, true},
		{" real ", LabelReal, true},
		{"MAYBE", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseLabel(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseLabel(%q) = %q, %v; want %q, %v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}
