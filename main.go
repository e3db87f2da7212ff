package main

import (
	"context"
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/pricefolio/src/catalog"
	"github.com/username/pricefolio/src/config"
	"github.com/username/pricefolio/src/database"
	"github.com/username/pricefolio/src/handlers"
	"github.com/username/pricefolio/src/logger"
	"github.com/username/pricefolio/src/pricing"
	"github.com/username/pricefolio/src/services"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Pricefolio backend server starting...")

	logger.L.Info("Initializing diagnostics database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing result cache...")
	resultCache := cache.New(config.Cfg.CacheExpiration, config.Cfg.CacheCleanup)
	logger.L.Info("Result cache initialized.")

	logger.L.Info("Initializing services and handlers...")
	loader := catalog.NewLoader(config.Cfg.CatalogRoot, config.Cfg.MaxParallelLoads, config.Cfg.LoadTimeout)
	engine := pricing.NewEngine(config.Cfg.DefaultCurrency)
	pricingService := services.NewPricingService(loader, engine, resultCache)

	logger.L.Info("Loading catalogs...", "root", config.Cfg.CatalogRoot)
	if err := pricingService.Reload(context.Background()); err != nil {
		// A missing or empty catalog root is not fatal: the reload endpoint
		// can retry once data arrives.
		logger.L.Error("Initial catalog load failed", "error", err)
	} else {
		snap := pricingService.Snapshot()
		logger.L.Info("Catalogs loaded", "seriesCount", snap.SeriesCount(), "warningCount", len(snap.Warnings()))
	}

	priceHandler := handlers.NewPriceHandler(pricingService)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("POST /api/price/calculate", priceHandler.HandleCalculatePrice)
	apiRouter.HandleFunc("POST /api/price/export", priceHandler.HandleExportPrice)
	apiRouter.HandleFunc("POST /api/catalog/reload", priceHandler.HandleReloadCatalog)
	apiRouter.HandleFunc("GET /api/warnings", priceHandler.HandleGetWarnings)

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "Pricefolio backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
