package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/time/rate"

	"dramastream/services/fingerprint"
)

// ContentKind declares what a fetch is expected to return.
type ContentKind int

const (
	KindHTML ContentKind = iota
	KindJSON
)

// ClientOptions tunes pacing and retry behaviour. Tests zero the delays to
// keep runs fast.
type ClientOptions struct {
	MinInterval  time.Duration // minimum spacing between requests to one host
	WarmupMin    time.Duration // lower bound of the randomized post-warmup delay
	WarmupMax    time.Duration // upper bound of the randomized post-warmup delay
	RequestDelay time.Duration // base delay for linear retry backoff
	MaxRetries   uint
	Timeout      time.Duration
}

// DefaultClientOptions returns the pacing used against live sources.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		MinInterval:  500 * time.Millisecond,
		WarmupMin:    1 * time.Second,
		WarmupMax:    3 * time.Second,
		RequestDelay: 750 * time.Millisecond,
		MaxRetries:   3,
		Timeout:      15 * time.Second,
	}
}

// Client performs paced, retried HTTP fetches under a browser fingerprint.
// It keeps cookie continuity per host (warm-up request to the root path
// before the first real request) and enforces a minimum inter-request
// interval per host.
type Client struct {
	httpc *http.Client
	fp    fingerprint.Fingerprint
	fps   *fingerprint.Provider
	opts  ClientOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	warmed   map[string]bool
	lastURL  map[string]string
	rnd      *rand.Rand
}

// NewClient creates a stealth client with a fresh fingerprint for this run.
func NewClient(provider *fingerprint.Provider, opts ClientOptions, httpc *http.Client) *Client {
	if httpc == nil {
		jar, _ := cookiejar.New(nil)
		httpc = &http.Client{Timeout: opts.Timeout, Jar: jar}
	} else if httpc.Jar == nil {
		jar, _ := cookiejar.New(nil)
		httpc.Jar = jar
	}
	return &Client{
		httpc:    httpc,
		fp:       provider.Generate(),
		fps:      provider,
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
		warmed:   make(map[string]bool),
		lastURL:  make(map[string]string),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Fingerprint exposes the identity used by this client.
func (c *Client) Fingerprint() fingerprint.Fingerprint { return c.fp }

func (c *Client) limiterFor(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	lim, ok := c.limiters[host]
	if !ok {
		interval := c.opts.MinInterval
		if interval <= 0 {
			interval = time.Nanosecond
		}
		lim = rate.NewLimiter(rate.Every(interval), 1)
		c.limiters[host] = lim
	}
	return lim
}

// warmUp issues a request to the host's root path to acquire cookies, then
// waits a randomized delay so the follow-up request does not arrive
// suspiciously fast.
func (c *Client) warmUp(ctx context.Context, u *url.URL) {
	root := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, root.String(), nil)
	if err != nil {
		return
	}
	c.applyHeaders(req, c.fps.WarmupReferer())

	resp, err := c.httpc.Do(req)
	if err != nil {
		// Warm-up is best effort; the real request carries its own retries.
		log.Printf("[scraper] warm-up for %s failed: %v", u.Host, err)
		return
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()

	c.mu.Lock()
	c.lastURL[u.Host] = root.String()
	span := c.opts.WarmupMax - c.opts.WarmupMin
	delay := c.opts.WarmupMin
	if span > 0 {
		delay += time.Duration(c.rnd.Int63n(int64(span)))
	}
	c.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	}
}

func (c *Client) applyHeaders(req *http.Request, referer string) {
	req.Header.Set("User-Agent", c.fp.UserAgent)
	for k, v := range c.fp.Headers {
		req.Header.Set(k, v)
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
}

// Fetch retrieves one URL, honoring per-host pacing, cookie continuity and
// the retry budget. Failures map onto the package error taxonomy: ErrNetwork
// for transport problems, ErrHTTPStatus for non-2xx responses and
// ErrUnexpectedContentType when the body does not match the declared kind.
func (c *Client) Fetch(ctx context.Context, rawURL string, kind ContentKind) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	host := strings.ToLower(u.Host)

	if err := c.limiterFor(host).Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	c.mu.Lock()
	needWarmup := !c.warmed[host]
	if needWarmup {
		c.warmed[host] = true
	}
	referer := c.lastURL[host]
	c.mu.Unlock()

	if needWarmup {
		c.warmUp(ctx, u)
		c.mu.Lock()
		referer = c.lastURL[host]
		c.mu.Unlock()
	}

	var body []byte
	var contentType string

	attempts := c.opts.MaxRetries
	if attempts == 0 {
		attempts = 1
	}

	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			c.applyHeaders(req, referer)
			if kind == KindJSON {
				req.Header.Set("Accept", "application/json, text/plain, */*")
				req.Header.Set("X-Requested-With", "XMLHttpRequest")
			}

			resp, err := c.httpc.Do(req)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrNetwork, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				return &StatusError{Code: resp.StatusCode, URL: rawURL}
			}

			body, err = io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("%w: read body: %v", ErrNetwork, err)
			}
			contentType = resp.Header.Get("Content-Type")
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.DelayType(func(n uint, err error, cfg *retry.Config) time.Duration {
			// Linear backoff: delay, 2*delay, 3*delay.
			return time.Duration(n+1) * c.opts.RequestDelay
		}),
		retry.RetryIf(func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				// Client errors other than 429 will not heal on retry.
				return se.Code == http.StatusTooManyRequests || se.Code >= 500
			}
			return true
		}),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("[scraper] retrying %s (attempt %d): %v", rawURL, n+1, err)
		}),
	)
	if err != nil {
		return nil, err
	}

	if err := checkContentType(kind, contentType, body); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.lastURL[host] = rawURL
	c.mu.Unlock()

	return body, nil
}

// checkContentType validates the response against the expected kind. When
// the header is missing or generic the body itself is sniffed.
func checkContentType(kind ContentKind, header string, body []byte) error {
	header = strings.ToLower(header)
	switch kind {
	case KindHTML:
		if strings.Contains(header, "text/html") || strings.Contains(header, "application/xhtml") {
			return nil
		}
	case KindJSON:
		if strings.Contains(header, "json") {
			return nil
		}
	}

	detected := mimetype.Detect(body)
	switch kind {
	case KindHTML:
		if detected.Is("text/html") {
			return nil
		}
	case KindJSON:
		if detected.Is("application/json") || looksLikeJSON(body) {
			return nil
		}
	}
	return fmt.Errorf("%w: got %q (sniffed %s)", ErrUnexpectedContentType, header, detected.String())
}

func looksLikeJSON(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}
