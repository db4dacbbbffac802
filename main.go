package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/taxinator/src/config"
	"github.com/username/taxinator/src/database"
	"github.com/username/taxinator/src/handlers"
	"github.com/username/taxinator/src/logger"
	"github.com/username/taxinator/src/models"
	"github.com/username/taxinator/src/processors"
	"github.com/username/taxinator/src/registry"
	"github.com/username/taxinator/src/security"
	"github.com/username/taxinator/src/services"
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
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-User-Role, X-Requested-With")
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
	logger.L.Info("Taxinator middleware server starting...")

	logger.L.Info("Loading vendor template registry...", "catalogPath", config.Cfg.TemplateCatalogPath)
	templates, err := registry.Load(config.Cfg.TemplateCatalogPath)
	if err != nil {
		logger.L.Error("Failed to load vendor template registry", "error", err)
		stdlog.Fatalf("Failed to load vendor template registry: %v", err)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)

	tolerance, err := decimal.NewFromString(config.Cfg.ReconcileTolerance)
	if err != nil {
		logger.L.Error("Invalid RECONCILE_TOLERANCE, using 0.01", "configured", config.Cfg.ReconcileTolerance, "error", err)
		tolerance = decimal.RequireFromString("0.01")
	}

	logger.L.Info("Initializing engines and services...")
	viewCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	normalizer := processors.NewNormalizationEngine()
	validator := processors.NewValidationEngine()
	reconciler := processors.NewReconciliationEngine(tolerance)
	transformer := processors.NewTransformationEngine()
	aiTranslator := processors.NewAITranslator(config.Cfg.GeminiAPIKey, config.Cfg.AITranslateModel)
	exporter := processors.NewExportEngine(config.Cfg.ExportSigningKey)
	notifier := services.NewNotifier()

	producers := map[string]processors.PayloadProducer{
		models.ProducerTemplate: transformer,
		models.ProducerAI:       aiTranslator,
	}

	jobService, err := services.NewJobService(
		templates, normalizer, validator, reconciler,
		producers, exporter, notifier,
		services.NewSQLiteJobStore(), viewCache,
		config.Cfg.ExportFromNeedsReview,
	)
	if err != nil {
		logger.L.Error("Failed to initialize job service", "error", err)
		stdlog.Fatalf("Failed to initialize job service: %v", err)
	}

	jobHandler := handlers.NewJobHandler(jobService)
	templateHandler := handlers.NewTemplateHandler(templates)
	aiHandler := handlers.NewAIHandler(aiTranslator)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("GET /api/health", handlers.HandleHealth)
	apiRouter.HandleFunc("GET /api/roles", handlers.HandleListRoles)
	apiRouter.HandleFunc("GET /api/playbooks/sample-ingestion", handlers.HandleSampleIngestion)

	apiRouter.HandleFunc("GET /api/templates",
		handlers.RequireCapability(security.CapRead, templateHandler.HandleListTemplates))

	apiRouter.HandleFunc("POST /api/jobs/start",
		handlers.RequireCapability(security.CapStartJob, jobHandler.HandleStartJob))
	apiRouter.HandleFunc("POST /api/ingest/costbasis",
		handlers.RequireCapability(security.CapIngest, jobHandler.HandleIngestCostBasis))
	apiRouter.HandleFunc("POST /api/ingest/personal-info",
		handlers.RequireCapability(security.CapIngestIdentity, jobHandler.HandleIngestIdentity))
	apiRouter.HandleFunc("POST /api/ingestions",
		handlers.RequireCapability(security.CapLegacyIngest, jobHandler.HandleLegacyIngestion))

	apiRouter.HandleFunc("GET /api/jobs",
		handlers.RequireCapability(security.CapRead, jobHandler.HandleListJobs))
	apiRouter.HandleFunc("GET /api/jobs/{id}",
		handlers.RequireCapability(security.CapRead, jobHandler.HandleGetJob))
	apiRouter.HandleFunc("GET /api/jobs/{id}/output",
		handlers.RequireCapability(security.CapRead, jobHandler.HandleGetOutput))

	apiRouter.HandleFunc("POST /api/jobs/{id}/transform",
		handlers.RequireCapability(security.CapTransform, jobHandler.HandleTransform))
	// Legacy alias kept for older downstream integrations.
	apiRouter.HandleFunc("POST /api/jobs/{id}/translate",
		handlers.RequireCapability(security.CapTransform, jobHandler.HandleTransform))
	apiRouter.HandleFunc("POST /api/jobs/{id}/reconcile",
		handlers.RequireCapability(security.CapReconcile, jobHandler.HandleReconcile))
	apiRouter.HandleFunc("POST /api/jobs/{id}/export",
		handlers.RequireCapability(security.CapExport, jobHandler.HandleExport))

	apiRouter.HandleFunc("POST /api/ai/translate",
		handlers.RequireCapability(security.CapAITranslate, aiHandler.HandleTranslate))
	apiRouter.HandleFunc("POST /api/admin/reset",
		handlers.RequireCapability(security.CapAdmin, jobHandler.HandleReset))

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "Taxinator middleware is running"})
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
