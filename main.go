package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/username/cardstock/backend/src/config"
	"github.com/username/cardstock/backend/src/database"
	"github.com/username/cardstock/backend/src/handlers"
	"github.com/username/cardstock/backend/src/ledger"
	"github.com/username/cardstock/backend/src/logger"
	"github.com/username/cardstock/backend/src/rates"
	"github.com/username/cardstock/backend/src/services"
	"github.com/username/cardstock/backend/src/sync"
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
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
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
	logger.L.Info("Cardstock backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing exchange-rate gateway...")
	rateGateway := rates.NewGateway(
		config.Cfg.ExchangeRatePrimaryURL,
		config.Cfg.ExchangeRateFallbackURL,
		config.Cfg.HTTPClientTimeout,
		config.Cfg.ExchangeRateCacheTTL,
	)

	syncClient := sync.NewClient(config.Cfg.SheetWebAppURL, config.Cfg.HTTPClientTimeout)
	pusher := sync.NewPusher(syncClient, config.Cfg.SyncDebounce, config.Cfg.SyncPushTimeout)

	var syncer ledger.Syncer
	if syncClient.Configured() {
		syncer = pusher
		logger.L.Info("Remote sheet sync enabled", "debounce", config.Cfg.SyncDebounce)
	}

	book := ledger.New(database.BlobStore{}, syncer)
	if err := book.LoadLocal(); err != nil {
		logger.L.Error("Failed to load local dataset", "error", err)
		stdlog.Fatalf("Failed to load local dataset: %v", err)
	}

	logger.L.Info("Initializing services and handlers...")
	importService := services.NewImportService(book)
	exportService := services.NewExportService(book)

	ledgerHandler := handlers.NewLedgerHandler(book)
	codeHandler := handlers.NewCodeHandler(book)
	uploadHandler := handlers.NewUploadHandler(importService)
	exportHandler := handlers.NewExportHandler(exportService, rateGateway)
	syncHandler := handlers.NewSyncHandler(book, syncClient, pusher)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("GET /api/summary", ledgerHandler.HandleGetSummary)
	apiRouter.HandleFunc("GET /api/stock", ledgerHandler.HandleGetStock)

	apiRouter.HandleFunc("GET /api/purchases", ledgerHandler.HandleGetPurchases)
	apiRouter.HandleFunc("POST /api/purchases", ledgerHandler.HandleAddPurchase)
	apiRouter.HandleFunc("PUT /api/purchases/{id}", ledgerHandler.HandleUpdatePurchase)
	apiRouter.HandleFunc("DELETE /api/purchases/{id}", ledgerHandler.HandleDeletePurchase)
	apiRouter.HandleFunc("DELETE /api/purchases", ledgerHandler.HandleDeleteAllPurchases)

	apiRouter.HandleFunc("GET /api/sales", ledgerHandler.HandleGetSales)
	apiRouter.HandleFunc("POST /api/sales", ledgerHandler.HandleAddSale)
	apiRouter.HandleFunc("PUT /api/sales/{id}", ledgerHandler.HandleUpdateSale)
	apiRouter.HandleFunc("DELETE /api/sales/{id}", ledgerHandler.HandleDeleteSale)
	apiRouter.HandleFunc("DELETE /api/sales", ledgerHandler.HandleDeleteAllSales)
	apiRouter.HandleFunc("GET /api/sales/daily-count", ledgerHandler.HandleDailySalesCount)

	apiRouter.HandleFunc("GET /api/codes", codeHandler.HandleGetCodes)
	apiRouter.HandleFunc("POST /api/codes", codeHandler.HandleAddCode)
	apiRouter.HandleFunc("POST /api/codes/{id}/image-ready", codeHandler.HandleMarkImageReady)
	apiRouter.HandleFunc("POST /api/codes/{id}/delivered", codeHandler.HandleMarkDelivered)
	apiRouter.HandleFunc("DELETE /api/codes/{id}", codeHandler.HandleDeleteCode)

	apiRouter.HandleFunc("GET /api/prices", ledgerHandler.HandleGetPrices)
	apiRouter.HandleFunc("PUT /api/prices", ledgerHandler.HandleUpdatePrices)

	apiRouter.HandleFunc("POST /api/import/sales/preview", uploadHandler.HandlePreviewMarketplaceSales)
	apiRouter.HandleFunc("POST /api/import/sales", uploadHandler.HandleImportMarketplaceSales)
	apiRouter.HandleFunc("POST /api/import/purchases/preview", uploadHandler.HandlePreviewPurchases)
	apiRouter.HandleFunc("POST /api/import/purchases", uploadHandler.HandleImportPurchases)
	apiRouter.HandleFunc("POST /api/import/backup", uploadHandler.HandleImportBackup)

	apiRouter.HandleFunc("GET /api/export/csv", exportHandler.HandleExportCSV)
	apiRouter.HandleFunc("GET /api/exchange-rate", exportHandler.HandleGetExchangeRate)

	apiRouter.HandleFunc("POST /api/sync/test", syncHandler.HandleTestConnection)
	apiRouter.HandleFunc("POST /api/sync/pull", syncHandler.HandlePull)
	apiRouter.HandleFunc("POST /api/sync/push", syncHandler.HandlePush)
	apiRouter.HandleFunc("POST /api/sync/migrate", syncHandler.HandleMigrate)
	apiRouter.HandleFunc("GET /api/sync/status", syncHandler.HandleStatus)

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "Cardstock backend is running"})
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
