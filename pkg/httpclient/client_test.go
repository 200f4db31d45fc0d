package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client, err := New(Config{Timeout: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	if _, err := client.Do(context.Background(), req); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestClient_Redirects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/1":
			http.Redirect(w, r, "/2", http.StatusFound)
		case "/2":
			http.Redirect(w, r, "/3", http.StatusFound)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer ts.Close()

	client, err := New(Config{MaxRedirects: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/1", nil)
	if _, err := client.Do(context.Background(), req); err == nil {
		t.Fatal("expected redirect limit error")
	}

	noRedirects, _ := New(Config{MaxRedirects: -1})
	req2, _ := http.NewRequest(http.MethodGet, ts.URL+"/1", nil)
	resp, err := noRedirects.Do(context.Background(), req2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Errorf("expected 302 StatusFound, got %d", resp.StatusCode)
	}
}

func TestClient_Cookies(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/set" {
			http.SetCookie(w, &http.Cookie{Name: "consent", Value: "yes"})
			return
		}
		if c, err := r.Cookie("consent"); err != nil || c.Value != "yes" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client, err := New(Config{UseCookieJar: true, MaxRedirects: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req1, _ := http.NewRequest(http.MethodGet, ts.URL+"/set", nil)
	resp1, err := client.Do(context.Background(), req1)
	if err != nil {
		t.Fatalf("unexpected error on /set: %v", err)
	}
	resp1.Body.Close()

	req2, _ := http.NewRequest(http.MethodGet, ts.URL+"/check", nil)
	resp2, err := client.Do(context.Background(), req2)
	if err != nil {
		t.Fatalf("unexpected error on /check: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Errorf("expected 200 OK from /check, got %d", resp2.StatusCode)
	}
}

func TestClient_DefaultHeaders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("OpenAI-Project"); got != "proj_1" {
			t.Errorf("expected OpenAI-Project header proj_1, got %q", got)
		}
		if got := r.Header.Get("X-Override"); got != "caller" {
			t.Errorf("expected caller value to win, got %q", got)
		}
		if _, ok := r.Header["Openai-Organization"]; ok {
			t.Errorf("empty default header should not be sent")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	client, err := New(Config{Headers: map[string]string{
		"OpenAI-Project":      "proj_1",
		"OpenAI-Organization": "",
		"X-Override":          "default",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	req.Header.Set("X-Override", "caller")
	resp, err := client.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
}

func TestClient_Context(t *testing.T) {
	client, _ := New(Config{})

	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)

	//nolint:staticcheck // nil context is the case under test
	_, err := client.Do(nil, req)
	if err == nil || err.Error() != "httpclient: context cannot be nil" {
		t.Errorf("expected nil context error, got %v", err)
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(1 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	req2, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err = client.Do(ctx, req2); err == nil {
		t.Fatal("expected cancellation error")
	}
}
