package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server  ServerSettings  `json:"server"`
	Cache   CacheSettings   `json:"cache"`
	Scraper ScraperSettings `json:"scraper"`
	Sources []SourceConfig  `json:"sources"`
	Log     LogConfig       `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// CacheSettings selects the result cache store. "memory" keeps entries
// in-process; "sqlite" persists them across restarts.
type CacheSettings struct {
	Directory        string `json:"directory"`
	Store            string `json:"store"` // memory | sqlite
	ResultTTLMinutes int    `json:"resultTtlMinutes"`
}

// ScraperSettings tunes stealth client pacing. Values are milliseconds so
// the settings file stays integer-only.
type ScraperSettings struct {
	MinIntervalMS        int `json:"minIntervalMs"`
	WarmupMinMS          int `json:"warmupMinMs"`
	WarmupMaxMS          int `json:"warmupMaxMs"`
	RequestDelayMS       int `json:"requestDelayMs"`
	MaxRetries           int `json:"maxRetries"`
	SourceTimeoutSeconds int `json:"sourceTimeoutSeconds"`
	MaxConcurrent        int `json:"maxConcurrent"` // bound for cross-category prefetch
}

// SourceConfig describes one external source for one content category.
// Immutable after load; the aggregator tries sources in ascending Priority.
type SourceConfig struct {
	Name            string            `json:"name"`
	BaseURL         string            `json:"baseUrl"`
	Category        string            `json:"category"` // drama | movie | anime | kshow
	Priority        int               `json:"priority"`
	Kind            string            `json:"kind"`      // html | json
	Endpoints       map[string]string `json:"endpoints"` // popular, search, detail
	DataPath        string            `json:"dataPath,omitempty"` // JSON sources: field holding the item array
	Specialty       string            `json:"specialty,omitempty"` // origin this source is known for
	CacheTTLMinutes int               `json:"cacheTtlMinutes"`
	RateLimitMS     int               `json:"rateLimitMs"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	File       string `json:"file"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// Manager loads and persists settings.
type Manager struct {
	mu   sync.Mutex
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// DefaultSettings returns the configuration written on first start.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{Host: "0.0.0.0", Port: 8480},
		Cache: CacheSettings{
			Directory:        "cache",
			Store:            "memory",
			ResultTTLMinutes: 30,
		},
		Scraper: ScraperSettings{
			MinIntervalMS:        500,
			WarmupMinMS:          1000,
			WarmupMaxMS:          3000,
			RequestDelayMS:       750,
			MaxRetries:           3,
			SourceTimeoutSeconds: 20,
			MaxConcurrent:        4,
		},
		Sources: defaultSources(),
		Log: LogConfig{
			File:       filepath.Join("cache", "logs", "dramastream.log"),
			MaxSize:    20,
			MaxAge:     14,
			MaxBackups: 3,
			Compress:   true,
		},
	}
}

func defaultSources() []SourceConfig {
	return []SourceConfig{
		{
			Name: "kisskh", BaseURL: "https://kisskh.co", Category: "drama", Priority: 1,
			Kind: "json", DataPath: "data", Specialty: "kr",
			Endpoints: map[string]string{
				"popular": "/api/DramaList/List?page={page}&type=1",
				"search":  "/api/DramaList/Search?q={query}",
				"detail":  "/api/DramaList/Drama/{id}",
			},
			CacheTTLMinutes: 30, RateLimitMS: 500,
		},
		{
			Name: "dramaday", BaseURL: "https://dramaday.me", Category: "drama", Priority: 2,
			Kind: "html", Specialty: "kr",
			Endpoints: map[string]string{
				"popular": "/drama/page/{page}/",
				"search":  "/?s={query}",
				"detail":  "/{id}/",
			},
			CacheTTLMinutes: 60, RateLimitMS: 800,
		},
		{
			Name: "myasiantv", BaseURL: "https://myasiantv.ac", Category: "drama", Priority: 3,
			Kind: "html",
			Endpoints: map[string]string{
				"popular": "/drama/popular/page/{page}",
				"search":  "/search?q={query}",
				"detail":  "/drama/{id}",
			},
			CacheTTLMinutes: 60, RateLimitMS: 800,
		},
		{
			Name: "kisskh-movies", BaseURL: "https://kisskh.co", Category: "movie", Priority: 1,
			Kind: "json", DataPath: "data",
			Endpoints: map[string]string{
				"popular": "/api/DramaList/List?page={page}&type=2",
				"search":  "/api/DramaList/Search?q={query}&type=2",
				"detail":  "/api/DramaList/Drama/{id}",
			},
			CacheTTLMinutes: 60, RateLimitMS: 500,
		},
		{
			Name: "animeowl", BaseURL: "https://animeowl.live", Category: "anime", Priority: 1,
			Kind: "html", Specialty: "jp",
			Endpoints: map[string]string{
				"popular": "/popular?page={page}",
				"search":  "/search?query={query}",
				"detail":  "/anime/{id}",
			},
			CacheTTLMinutes: 45, RateLimitMS: 700,
		},
		{
			Name: "kshow-online", BaseURL: "https://kshow.online", Category: "kshow", Priority: 1,
			Kind: "html", Specialty: "kr",
			Endpoints: map[string]string{
				"popular": "/popular/page/{page}",
				"search":  "/?s={query}",
				"detail":  "/show/{id}",
			},
			CacheTTLMinutes: 60, RateLimitMS: 800,
		},
	}
}

// Load reads settings from disk or creates defaults if missing.
func (m *Manager) Load() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.saveLocked(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		return Settings{}, err
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, err
	}
	applyDefaults(&s)
	return s, nil
}

// Save persists settings atomically via a temp file rename.
func (m *Manager) Save(s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(s)
}

func (m *Manager) saveLocked(s Settings) error {
	dir := filepath.Dir(m.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, m.path)
}

// applyDefaults fills zero values on hand-edited settings files so the rest
// of the code never has to guard against them.
func applyDefaults(s *Settings) {
	d := DefaultSettings()
	if s.Server.Port == 0 {
		s.Server.Port = d.Server.Port
	}
	if s.Server.Host == "" {
		s.Server.Host = d.Server.Host
	}
	if s.Cache.Directory == "" {
		s.Cache.Directory = d.Cache.Directory
	}
	if s.Cache.Store == "" {
		s.Cache.Store = d.Cache.Store
	}
	if s.Cache.ResultTTLMinutes <= 0 {
		s.Cache.ResultTTLMinutes = d.Cache.ResultTTLMinutes
	}
	if s.Scraper.MinIntervalMS <= 0 {
		s.Scraper.MinIntervalMS = d.Scraper.MinIntervalMS
	}
	if s.Scraper.WarmupMinMS <= 0 {
		s.Scraper.WarmupMinMS = d.Scraper.WarmupMinMS
	}
	if s.Scraper.WarmupMaxMS < s.Scraper.WarmupMinMS {
		s.Scraper.WarmupMaxMS = s.Scraper.WarmupMinMS + 1000
	}
	if s.Scraper.RequestDelayMS <= 0 {
		s.Scraper.RequestDelayMS = d.Scraper.RequestDelayMS
	}
	if s.Scraper.MaxRetries <= 0 {
		s.Scraper.MaxRetries = d.Scraper.MaxRetries
	}
	if s.Scraper.SourceTimeoutSeconds <= 0 {
		s.Scraper.SourceTimeoutSeconds = d.Scraper.SourceTimeoutSeconds
	}
	if s.Scraper.MaxConcurrent <= 0 {
		s.Scraper.MaxConcurrent = d.Scraper.MaxConcurrent
	}
	if len(s.Sources) == 0 {
		s.Sources = d.Sources
	}
}

// SourcesByCategory groups the configured sources by category, each group
// sorted by ascending priority.
func SourcesByCategory(sources []SourceConfig) map[string][]SourceConfig {
	grouped := make(map[string][]SourceConfig)
	for _, src := range sources {
		grouped[src.Category] = append(grouped[src.Category], src)
	}
	for cat := range grouped {
		list := grouped[cat]
		sort.Slice(list, func(i, j int) bool { return list[i].Priority < list[j].Priority })
		grouped[cat] = list
	}
	return grouped
}

// TTL returns the source cache TTL as a duration, falling back to the
// global default when unset.
func (s SourceConfig) TTL(defaultMinutes int) time.Duration {
	minutes := s.CacheTTLMinutes
	if minutes <= 0 {
		minutes = defaultMinutes
	}
	return time.Duration(minutes) * time.Minute
}
