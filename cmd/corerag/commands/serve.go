package commands

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/jharjadi/pro-rag/core-api-go/internal/config"
	"github.com/jharjadi/pro-rag/core-api-go/internal/crypto"
	"github.com/jharjadi/pro-rag/core-api-go/internal/db"
	"github.com/jharjadi/pro-rag/core-api-go/internal/handler"
	authmw "github.com/jharjadi/pro-rag/core-api-go/internal/middleware"
	"github.com/jharjadi/pro-rag/core-api-go/internal/objectstore"
	"github.com/jharjadi/pro-rag/core-api-go/internal/service"
)

// NewServeCmd constructs `corerag serve`, the HTTP API (query pipeline
// + document/upload/job management).
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := db.StartupChecks(ctx, pool); err != nil {
		return fmt.Errorf("startup checks: %w", err)
	}

	store, err := objectstore.NewGateway(ctx, objectstore.Config{
		Endpoint:     cfg.ObjectStoreEndpoint,
		AccessKey:    cfg.ObjectStoreAccessKey,
		SecretKey:    cfg.ObjectStoreSecret,
		Bucket:       cfg.ObjectStoreBucket,
		Region:       cfg.ObjectStoreRegion,
		UsePathStyle: cfg.ObjectStoreEndpoint != "",
	})
	if err != nil {
		return fmt.Errorf("build object store gateway: %w", err)
	}

	retrievalSvc := service.NewRetrievalService(pool)
	rerankerSvc := service.NewRerankerService(
		cfg.CohereAPIKey,
		cfg.CohereRerankerModel,
		cfg.RerankTimeout(),
		cfg.RerankMaxDocs,
		cfg.RerankFailOpen,
	)
	llmSvc := service.NewLLMService(
		cfg.LLMProvider,
		cfg.LLMModel,
		cfg.AnthropicAPIKey,
		cfg.LLMMaxTokens,
	)
	embedSvc := service.NewEmbedService(cfg.EmbedEndpoint)
	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.JWTExpiryHours)

	var encryptionBox *crypto.Box
	if cfg.EncryptionKeyBase64 != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.EncryptionKeyBase64)
		if err != nil {
			return fmt.Errorf("decode ENCRYPTION_KEY: %w", err)
		}
		encryptionBox, err = crypto.NewBox(key)
		if err != nil {
			return fmt.Errorf("build encryption box: %w", err)
		}
	}

	queryHandler := handler.NewQueryHandler(cfg, retrievalSvc, rerankerSvc, llmSvc, embedSvc)
	authHandler := handler.NewAuthHandler(pool, authSvc)
	documentHandler := handler.NewDocumentHandler(pool)
	jobHandler := handler.NewJobHandler(pool)
	uploadHandler := handler.NewUploadHandler(cfg, pool, store)
	tenantHandler := handler.NewTenantHandler(pool, encryptionBox)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"unhealthy","error":"%s"}`, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"ok"}`)
	})

	r.Post("/v1/auth/login", authHandler.Login)

	authEnabled := os.Getenv("AUTH_ENABLED") == "true"
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(authSvc, authEnabled))

		r.Post("/v1/query", queryHandler.Handle)

		r.Post("/v1/documents:init-upload", uploadHandler.InitUpload)
		r.Post("/v1/documents:complete-upload", uploadHandler.CompleteUpload)

		r.Get("/v1/documents", documentHandler.List)
		r.Get("/v1/documents/{id}", documentHandler.Get)
		r.Patch("/v1/documents/{id}", documentHandler.Patch)
		r.Delete("/v1/documents/{id}", documentHandler.Delete)
		r.Get("/v1/documents/{id}/chunks", documentHandler.ListChunks)
		r.Get("/v1/documents/{id}/pages", documentHandler.ListPages)

		r.Get("/v1/jobs/{id}", jobHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireRole("admin"))
			r.Post("/v1/tenants", tenantHandler.Create)
			r.Put("/v1/tenants/{id}/object-store-credentials", tenantHandler.SetCredentials)
		})
	})

	webDir := os.Getenv("WEB_DIR")
	if webDir == "" {
		webDir = "/web"
	}
	if info, err := os.Stat(webDir); err == nil && info.IsDir() {
		slog.Info("serving web UI", "dir", webDir)
		fs := http.FileServer(http.Dir(webDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/" {
				http.ServeFile(w, r, webDir+"/index.html")
				return
			}
			fs.ServeHTTP(w, r)
		})
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("starting server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-shutdownCtx.Done()
	slog.Info("shutting down server...")

	cancelCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(cancelCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
