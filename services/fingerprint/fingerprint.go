package fingerprint

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Fingerprint is a consistent browser identity used for one scraping run.
// The header set always matches the chosen user agent (platform hints,
// sec-ch-ua values), so sources see a coherent client.
type Fingerprint struct {
	UserAgent string
	Headers   map[string]string
	SessionID string
}

type agentProfile struct {
	userAgent string
	platform  string // sec-ch-ua-platform value
	mobile    bool
	brand     string // sec-ch-ua value, empty for non-Chromium agents
}

// Fixed rotation pool. Versions are bumped manually when sources start
// rejecting older agents.
var agentPool = []agentProfile{
	{
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		platform:  "Windows",
		brand:     `"Not/A)Brand";v="8", "Chromium";v="126", "Google Chrome";v="126"`,
	},
	{
		userAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		platform:  "macOS",
		brand:     `"Not/A)Brand";v="8", "Chromium";v="126", "Google Chrome";v="126"`,
	},
	{
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
		platform:  "Linux",
		brand:     `"Not/A)Brand";v="8", "Chromium";v="125", "Google Chrome";v="125"`,
	},
	{
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
		platform:  "Windows",
	},
	{
		userAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		platform:  "macOS",
	},
	{
		userAgent: "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Mobile Safari/537.36",
		platform:  "Android",
		mobile:    true,
		brand:     `"Not/A)Brand";v="8", "Chromium";v="126", "Google Chrome";v="126"`,
	},
}

var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-US,en;q=0.9,ko;q=0.8",
	"en-GB,en;q=0.9",
}

// Provider generates randomized browser fingerprints from the fixed pool.
type Provider struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewProvider creates a provider seeded from the given source. A zero seed
// selects a time-based seed.
func NewProvider(seed int64) *Provider {
	if seed == 0 {
		seed = rand.Int63()
	}
	return &Provider{rnd: rand.New(rand.NewSource(seed))}
}

// Generate returns a new fingerprint with an agent drawn from the rotation
// pool and a header set internally consistent with that agent.
func (p *Provider) Generate() Fingerprint {
	p.mu.Lock()
	profile := agentPool[p.rnd.Intn(len(agentPool))]
	lang := acceptLanguages[p.rnd.Intn(len(acceptLanguages))]
	p.mu.Unlock()

	headers := map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           lang,
		"Accept-Encoding":           "gzip, deflate, br",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
	}

	// Client hints are a Chromium feature; sending them from a Firefox or
	// Safari agent is itself a bot tell.
	if profile.brand != "" {
		headers["Sec-CH-UA"] = profile.brand
		headers["Sec-CH-UA-Platform"] = fmt.Sprintf("%q", profile.platform)
		if profile.mobile {
			headers["Sec-CH-UA-Mobile"] = "?1"
		} else {
			headers["Sec-CH-UA-Mobile"] = "?0"
		}
	}

	return Fingerprint{
		UserAgent: profile.userAgent,
		Headers:   headers,
		SessionID: uuid.NewString(),
	}
}

var searchReferers = []string{
	"https://www.google.com/",
	"https://www.bing.com/",
	"https://duckduckgo.com/",
}

// WarmupReferer returns a plausible referer for the first request to a host,
// as if the visitor arrived from a search engine.
func (p *Provider) WarmupReferer() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return searchReferers[p.rnd.Intn(len(searchReferers))]
}

// Matches reports whether the header set is consistent with the user agent.
// Used by tests and by the client's sanity logging.
func (f Fingerprint) Matches() bool {
	isChromium := strings.Contains(f.UserAgent, "Chrome/")
	_, hasHints := f.Headers["Sec-CH-UA"]
	return isChromium == hasHints
}
