package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type staticToken string

func (s staticToken) Get() (string, bool) {
	if s == "" {
		return "", false
	}
	return string(s), true
}

func TestNewDefaultsBaseURL(t *testing.T) {
	c := New("", nil)
	if c.BaseURL != "http://localhost:5000/api" {
		t.Errorf("BaseURL: got %q", c.BaseURL)
	}
	if c.HTTP.Timeout != DefaultTimeout {
		t.Errorf("Timeout: got %v, want %v", c.HTTP.Timeout, DefaultTimeout)
	}

	c = New("http://example.com/api/", nil, WithTimeout(2*time.Second))
	if c.BaseURL != "http://example.com/api" {
		t.Errorf("trailing slash not trimmed: %q", c.BaseURL)
	}
	if c.HTTP.Timeout != 2*time.Second {
		t.Errorf("WithTimeout: got %v", c.HTTP.Timeout)
	}
}

func TestTimeoutDoesNotModifySharedClient(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}

	c := New("", nil, WithHTTPClient(shared), WithTimeout(2*time.Second))
	if c.HTTP.Timeout != 2*time.Second {
		t.Errorf("Timeout: got %v", c.HTTP.Timeout)
	}
	if shared.Timeout != time.Minute {
		t.Errorf("shared client modified: %v", shared.Timeout)
	}

	// Option order does not matter.
	c = New("", nil, WithTimeout(time.Second), WithHTTPClient(shared))
	if c.HTTP.Timeout != time.Second || shared.Timeout != time.Minute {
		t.Errorf("got %v, shared %v", c.HTTP.Timeout, shared.Timeout)
	}

	c = New("", nil, WithHTTPClient(nil), WithTimeout(time.Second))
	if c.HTTP == nil || c.HTTP.Timeout != time.Second {
		t.Errorf("nil client: got %+v", c.HTTP)
	}
}

// countingTransport counts round trips.
type countingTransport struct {
	n int
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.n++
	return http.DefaultTransport.RoundTrip(r)
}

func TestWithHTTPClientIsUsed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"OK"}`))
	}))
	defer srv.Close()

	tr := &countingTransport{}
	c := New(srv.URL, nil, WithHTTPClient(&http.Client{Transport: tr}), WithTimeout(time.Second))
	if err := c.Get(context.Background(), "/health", nil, nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tr.n != 1 {
		t.Errorf("round trips: got %d, want 1", tr.n)
	}
}

func TestSendHeadersAndBody(t *testing.T) {
	var gotHeaders http.Header
	var gotBody map[string]string
	var gotPath, gotMethod string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header
		gotPath = r.URL.RequestURI()
		gotMethod = r.Method
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/api", staticToken("T1"))
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.Post(context.Background(), "/auth/login", map[string]string{"email": "a@b.com"}, &out); err != nil {
		t.Fatalf("Post: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method: got %s", gotMethod)
	}
	if gotPath != "/api/auth/login" {
		t.Errorf("path: got %s", gotPath)
	}
	if ct := gotHeaders.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	if auth := gotHeaders.Get("Authorization"); auth != "Bearer T1" {
		t.Errorf("Authorization: got %q", auth)
	}
	if gotHeaders.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if gotBody["email"] != "a@b.com" {
		t.Errorf("body: got %v", gotBody)
	}
	if !out.OK {
		t.Error("response not decoded")
	}
}

func TestSendWithoutToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	for _, tokens := range []TokenSource{nil, staticToken("")} {
		if err := New(srv.URL, tokens).Get(context.Background(), "/health", nil, nil); err != nil {
			t.Fatalf("Get: %v", err)
		}
		if auth != "" {
			t.Errorf("Authorization should be absent, got %q", auth)
		}
	}
}

func TestHeaderOverride(t *testing.T) {
	var gotCT, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("stored"))
	err := c.Get(context.Background(), "/tasks", nil, nil,
		WithHeader("Content-Type", "text/plain"),
		WithHeader("Authorization", "Bearer override"),
	)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotCT != "text/plain" {
		t.Errorf("Content-Type override: got %q", gotCT)
	}
	if gotAuth != "Bearer override" {
		t.Errorf("Authorization override: got %q", gotAuth)
	}
}

func TestGetEncodesQuery(t *testing.T) {
	var gotURI string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.URL.RequestURI()
		w.Write([]byte(`{"tasks":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	if err := c.Get(context.Background(), "/tasks", Query{{"status", "pending"}, {"priority", "high"}}, nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotURI != "/tasks?status=pending&priority=high" {
		t.Errorf("URI: got %q", gotURI)
	}
}

func TestRequestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		sentinel error
	}{
		{"backend message", 401, `{"message":"invalid credentials"}`, "invalid credentials", ErrUnauthorized},
		{"no message field", 500, `{"error":"boom"}`, "HTTP error! status: 500", nil},
		{"empty body", 403, ``, "HTTP error! status: 403", ErrForbidden},
		{"array body", 400, `["bad"]`, "HTTP error! status: 400", nil},
		{"not found", 404, `{"message":"Task not found"}`, "Task not found", ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := New(srv.URL, nil).Get(context.Background(), "/x", nil, nil)
			var reqErr *RequestError
			if !errors.As(err, &reqErr) {
				t.Fatalf("expected *RequestError, got %T (%v)", err, err)
			}
			if reqErr.StatusCode != tt.status {
				t.Errorf("StatusCode: got %d, want %d", reqErr.StatusCode, tt.status)
			}
			if reqErr.Message != tt.wantMsg {
				t.Errorf("Message: got %q, want %q", reqErr.Message, tt.wantMsg)
			}
			if Message(err) != tt.wantMsg {
				t.Errorf("Message(err): got %q", Message(err))
			}
			if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v) = false", tt.sentinel)
			}
		})
	}
}

func TestTransportErrors(t *testing.T) {
	t.Run("malformed JSON on success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>oops</html>`))
		}))
		defer srv.Close()

		err := New(srv.URL, nil).Get(context.Background(), "/x", nil, nil)
		var tErr *TransportError
		if !errors.As(err, &tErr) {
			t.Fatalf("expected *TransportError, got %T (%v)", err, err)
		}
	})

	t.Run("malformed JSON on failure status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`Bad Gateway`))
		}))
		defer srv.Close()

		err := New(srv.URL, nil).Get(context.Background(), "/x", nil, nil)
		var tErr *TransportError
		if !errors.As(err, &tErr) {
			t.Fatalf("expected *TransportError, got %T (%v)", err, err)
		}
	})

	t.Run("result type mismatch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"tasks":"not-a-list"}`))
		}))
		defer srv.Close()

		var out struct {
			Tasks []string `json:"tasks"`
		}
		err := New(srv.URL, nil).Get(context.Background(), "/x", nil, &out)
		var tErr *TransportError
		if !errors.As(err, &tErr) {
			t.Fatalf("expected *TransportError, got %T (%v)", err, err)
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		err := New(url, nil).Get(context.Background(), "/health", nil, nil)
		var tErr *TransportError
		if !errors.As(err, &tErr) {
			t.Fatalf("expected *TransportError, got %T (%v)", err, err)
		}
		if errors.Is(err, ErrUnauthorized) {
			t.Error("transport error must not match request sentinels")
		}
	})
}

func TestEmptySuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var out map[string]any
	if err := New(srv.URL, nil).Delete(context.Background(), "/tasks/1", &out); err != nil {
		t.Fatalf("Delete with empty body: %v", err)
	}
	if out != nil {
		t.Errorf("result should be untouched, got %v", out)
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(srv.URL, nil, WithTimeout(50*time.Millisecond))
	err := c.Get(context.Background(), "/slow", nil, nil)
	var tErr *TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected *TransportError on timeout, got %T (%v)", err, err)
	}
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(srv.URL, nil).Get(ctx, "/tasks", nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
	if !strings.Contains(err.Error(), "GET /tasks") {
		t.Errorf("error should name the request: %v", err)
	}
}

func TestMethodWrappers(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	c := New(srv.URL, nil)
	c.Get(ctx, "/a", nil, nil)
	c.Post(ctx, "/a", map[string]int{}, nil)
	c.Put(ctx, "/a", map[string]int{}, nil)
	c.Patch(ctx, "/a", map[string]int{}, nil)
	c.Delete(ctx, "/a", nil)

	want := []string{"GET", "POST", "PUT", "PATCH", "DELETE"}
	if strings.Join(methods, ",") != strings.Join(want, ",") {
		t.Errorf("methods: got %v, want %v", methods, want)
	}
}
