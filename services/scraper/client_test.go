package scraper

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"dramastream/services/fingerprint"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testOptions() ClientOptions {
	return ClientOptions{
		MinInterval:  0,
		WarmupMin:    0,
		WarmupMax:    0,
		RequestDelay: time.Millisecond,
		MaxRetries:   3,
		Timeout:      5 * time.Second,
	}
}

func newTestClient(opts ClientOptions, rt roundTripFunc) *Client {
	httpc := &http.Client{Transport: rt}
	return NewClient(fingerprint.NewProvider(1), opts, httpc)
}

func htmlResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
	}
}

func TestFetchWarmsUpAndCarriesReferer(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []string
		referers []string
	)
	client := newTestClient(testOptions(), func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		requests = append(requests, req.URL.String())
		referers = append(referers, req.Header.Get("Referer"))
		mu.Unlock()
		return htmlResponse(http.StatusOK, "<html><body>ok</body></html>"), nil
	})

	if _, err := client.Fetch(context.Background(), "https://example.test/drama/page/1", KindHTML); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if _, err := client.Fetch(context.Background(), "https://example.test/drama/page/2", KindHTML); err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if len(requests) != 3 {
		t.Fatalf("expected warm-up plus two fetches, got requests %v", requests)
	}
	if requests[0] != "https://example.test/" {
		t.Errorf("expected warm-up to hit the root path, got %s", requests[0])
	}
	if referers[1] != "https://example.test/" {
		t.Errorf("expected first real request to carry root referer, got %q", referers[1])
	}
	if referers[2] != "https://example.test/drama/page/1" {
		t.Errorf("expected second request to carry previous page as referer, got %q", referers[2])
	}
	if referers[0] == "" {
		t.Error("expected warm-up to carry a search-engine referer")
	}
}

func TestFetchAppliesFingerprintHeaders(t *testing.T) {
	var got *http.Request
	client := newTestClient(testOptions(), func(req *http.Request) (*http.Response, error) {
		got = req
		return htmlResponse(http.StatusOK, "<html></html>"), nil
	})

	if _, err := client.Fetch(context.Background(), "https://example.test/list", KindHTML); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	fp := client.Fingerprint()
	if got.Header.Get("User-Agent") != fp.UserAgent {
		t.Errorf("user agent mismatch: %q vs %q", got.Header.Get("User-Agent"), fp.UserAgent)
	}
	for k, v := range fp.Headers {
		if got.Header.Get(k) != v {
			t.Errorf("header %s: got %q want %q", k, got.Header.Get(k), v)
		}
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var (
		mu       sync.Mutex
		attempts int
	)
	client := newTestClient(testOptions(), func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == "/" {
			return htmlResponse(http.StatusOK, "<html></html>"), nil
		}
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 3 {
			return htmlResponse(http.StatusBadGateway, "bad gateway"), nil
		}
		return htmlResponse(http.StatusOK, "<html><body>recovered</body></html>"), nil
	})

	body, err := client.Fetch(context.Background(), "https://example.test/list", KindHTML)
	if err != nil {
		t.Fatalf("expected recovery within retry budget, got %v", err)
	}
	if !strings.Contains(string(body), "recovered") {
		t.Errorf("unexpected body %q", body)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	var (
		mu       sync.Mutex
		attempts int
	)
	client := newTestClient(testOptions(), func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == "/" {
			return htmlResponse(http.StatusOK, "<html></html>"), nil
		}
		mu.Lock()
		attempts++
		mu.Unlock()
		return htmlResponse(http.StatusNotFound, "gone"), nil
	})

	_, err := client.Fetch(context.Background(), "https://example.test/missing", KindHTML)
	if !errors.Is(err, ErrHTTPStatus) {
		t.Fatalf("expected status error, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("404 should not be retried, got %d attempts", attempts)
	}
}

func TestFetchRejectsWrongContentType(t *testing.T) {
	client := newTestClient(testOptions(), func(req *http.Request) (*http.Response, error) {
		return htmlResponse(http.StatusOK, "<html><body>captcha wall</body></html>"), nil
	})

	_, err := client.Fetch(context.Background(), "https://example.test/api/list", KindJSON)
	if !errors.Is(err, ErrUnexpectedContentType) {
		t.Fatalf("expected content type error, got %v", err)
	}
}

func TestFetchAcceptsSniffedJSON(t *testing.T) {
	client := newTestClient(testOptions(), func(req *http.Request) (*http.Response, error) {
		// Header lies, body is JSON; the sniffer should accept it.
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"data":[]}`)),
			Header:     http.Header{"Content-Type": []string{"text/plain"}},
		}, nil
	})

	if _, err := client.Fetch(context.Background(), "https://example.test/api/list", KindJSON); err != nil {
		t.Fatalf("expected sniffed JSON to pass, got %v", err)
	}
}

func TestFetchPacesRequestsPerHost(t *testing.T) {
	const interval = 40 * time.Millisecond
	opts := testOptions()
	opts.MinInterval = interval

	client := newTestClient(opts, func(req *http.Request) (*http.Response, error) {
		return htmlResponse(http.StatusOK, "<html></html>"), nil
	})

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.Fetch(context.Background(), "https://example.test/list", KindHTML); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 2*interval {
		t.Errorf("3 fetches finished in %v, expected at least %v of spacing", elapsed, 2*interval)
	}
}

func TestFetchMapsTransportErrors(t *testing.T) {
	client := newTestClient(testOptions(), func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == "/" {
			return htmlResponse(http.StatusOK, "<html></html>"), nil
		}
		return nil, errors.New("connection reset")
	})

	_, err := client.Fetch(context.Background(), "https://example.test/list", KindHTML)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}
