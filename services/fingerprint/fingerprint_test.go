package fingerprint

import (
	"strings"
	"testing"
)

func TestGenerateProducesConsistentIdentity(t *testing.T) {
	p := NewProvider(42)
	for i := 0; i < 50; i++ {
		fp := p.Generate()
		if fp.UserAgent == "" {
			t.Fatal("empty user agent")
		}
		if fp.SessionID == "" {
			t.Fatal("empty session id")
		}
		if !fp.Matches() {
			t.Fatalf("client hints inconsistent with agent %q: %v", fp.UserAgent, fp.Headers)
		}
		if fp.Headers["Accept-Language"] == "" {
			t.Fatal("missing Accept-Language")
		}
	}
}

func TestGenerateDistinctSessions(t *testing.T) {
	p := NewProvider(1)
	a := p.Generate()
	b := p.Generate()
	if a.SessionID == b.SessionID {
		t.Error("session ids must be unique per fingerprint")
	}
}

func TestNonChromiumAgentsOmitClientHints(t *testing.T) {
	p := NewProvider(7)
	sawNonChromium := false
	for i := 0; i < 100; i++ {
		fp := p.Generate()
		if !strings.Contains(fp.UserAgent, "Chrome/") {
			sawNonChromium = true
			if _, ok := fp.Headers["Sec-CH-UA"]; ok {
				t.Fatalf("Firefox/Safari agent carries Chromium hints: %q", fp.UserAgent)
			}
		}
	}
	if !sawNonChromium {
		t.Skip("rotation never picked a non-Chromium agent with this seed")
	}
}

func TestWarmupRefererIsSearchEngine(t *testing.T) {
	p := NewProvider(3)
	ref := p.WarmupReferer()
	if !strings.HasPrefix(ref, "https://") {
		t.Errorf("unexpected referer %q", ref)
	}
}
