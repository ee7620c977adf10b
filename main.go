package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"gopkg.in/natefinch/lumberjack.v2"

	"dramastream/api"
	"dramastream/config"
	"dramastream/handlers"
	"dramastream/services/aggregator"
	"dramastream/services/fingerprint"
	"dramastream/services/scraper"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	warm := flag.Bool("warm", true, "prefetch every category on startup")
	flag.Parse()

	fmt.Println("🚀 dramastream Backend Starting...")

	// Determine config path (env or default)
	configPath := os.Getenv("DRAMASTREAM_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	// Init config manager and load settings (creates defaults if missing)
	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			multiWriter := io.MultiWriter(os.Stdout, fileWriter)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	// Result cache: in-process by default, sqlite when configured
	var cache aggregator.Cache
	switch settings.Cache.Store {
	case "sqlite":
		if err := os.MkdirAll(settings.Cache.Directory, 0755); err != nil {
			log.Fatalf("failed to create cache directory: %v", err)
		}
		cache, err = aggregator.NewSQLiteCache(settings.Cache.Directory)
		if err != nil {
			log.Fatalf("failed to open sqlite cache: %v", err)
		}
		fmt.Printf("✅ SQLite result cache at %s\n", settings.Cache.Directory)
	default:
		cache = aggregator.NewMemoryCache()
	}

	// Stealth client: one fingerprint per process lifetime
	provider := fingerprint.NewProvider(time.Now().UnixNano())
	clientOpts := scraper.ClientOptions{
		MinInterval:  time.Duration(settings.Scraper.MinIntervalMS) * time.Millisecond,
		WarmupMin:    time.Duration(settings.Scraper.WarmupMinMS) * time.Millisecond,
		WarmupMax:    time.Duration(settings.Scraper.WarmupMaxMS) * time.Millisecond,
		RequestDelay: time.Duration(settings.Scraper.RequestDelayMS) * time.Millisecond,
		MaxRetries:   uint(settings.Scraper.MaxRetries),
		Timeout:      time.Duration(settings.Scraper.SourceTimeoutSeconds) * time.Second,
	}
	client := scraper.NewClient(provider, clientOpts, nil)
	detector := scraper.NewDetector()

	aggOpts := aggregator.Options{
		ResultTTL:     time.Duration(settings.Cache.ResultTTLMinutes) * time.Minute,
		SourceTimeout: time.Duration(settings.Scraper.SourceTimeoutSeconds) * time.Second,
		MaxConcurrent: settings.Scraper.MaxConcurrent,
	}
	aggSvc := aggregator.NewService(client, detector, cache, settings.Sources, aggOpts)

	catalogHandler := handlers.NewCatalogHandler(aggSvc)

	r := mux.NewRouter()
	api.Register(r, catalogHandler)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Setup graceful shutdown
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	warmCtx, warmCancel := context.WithCancel(context.Background())
	defer warmCancel()
	if *warm {
		go aggSvc.WarmCategories(warmCtx)
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("🛑 Shutdown signal received, cleaning up...")
	warmCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
