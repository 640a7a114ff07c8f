package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type countingTransport struct {
	calls int
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls++
	return http.DefaultTransport.RoundTrip(r)
}

func TestClient_WrapsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	inner := &countingTransport{}
	c := New(Config{Name: "test", Transport: inner})

	if c.Name() != "test" {
		t.Errorf("Name() = %q, want test", c.Name())
	}

	for _, path := range []string{"/", "/missing"} {
		resp, err := c.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
	}

	if inner.calls != 2 {
		t.Errorf("expected 2 round trips through the inner transport, got %d", inner.calls)
	}
}

func TestClient_PropagatesTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(Config{Name: "closed"})
	if _, err := c.Get(url); err == nil {
		t.Error("expected an error calling a closed server")
	}
}
