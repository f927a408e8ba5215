package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claimsight-ai/platform/pkg/classifier"
	"github.com/claimsight-ai/platform/pkg/common/config"
	"github.com/claimsight-ai/platform/pkg/common/database"
	"github.com/claimsight-ai/platform/pkg/common/httpclient"
	"github.com/claimsight-ai/platform/pkg/common/kafka"
	"github.com/claimsight-ai/platform/pkg/common/logger"
	"github.com/claimsight-ai/platform/pkg/common/middleware"
	"github.com/claimsight-ai/platform/pkg/decision"
	"github.com/claimsight-ai/platform/pkg/embedding"
	"github.com/claimsight-ai/platform/pkg/lookup"
	"github.com/claimsight-ai/platform/pkg/observability/metrics"
	"github.com/claimsight-ai/platform/pkg/policy"
	"github.com/claimsight-ai/platform/pkg/retrieval"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init()
	metrics.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	policyRepo := policy.NewRepository(db)
	if err := policyRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate policy tables")
	}
	decisionRepo := decision.NewRepository(db)
	if err := decisionRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate decision tables")
	}

	embedder, err := embedding.NewHTTPProvider(embedding.Config{
		BaseURL:   cfg.EmbeddingBaseURL,
		APIKey:    cfg.EmbeddingAPIKey,
		Model:     cfg.EmbeddingModel,
		Dimension: cfg.EmbeddingDimension,
		Client:    httpclient.New(cfg.EmbeddingTimeout),
	})
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to configure embedding provider")
	}

	corpusProducer := kafka.NewProducer(cfg.CorpusTopic)
	defer corpusProducer.Close()
	decisionProducer := kafka.NewProducer(cfg.DecisionTopic)
	defer decisionProducer.Close()

	index := policy.NewIndex(cfg.EmbeddingDimension)
	chunker := policy.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	policySvc := policy.NewService(policyRepo, index, embedder, chunker, corpusProducer)

	if err := index.Load(cfg.IndexPath); errors.Is(err, policy.ErrIndexLoad) {
		logger.Log.WithError(err).Warn("persisted index unusable, rebuilding from corpus")
		if rebuildErr := policySvc.RebuildFromCorpus(context.Background()); rebuildErr != nil {
			logger.Log.WithError(rebuildErr).Fatal("failed to rebuild policy index")
		}
	}
	logger.Log.WithField("chunks", index.Size()).Info("policy index ready")

	lookupCache := lookup.NewCache(database.GetRedis(), cfg.LookupCacheTTL)
	lookupClient := lookup.NewClient(lookup.Config{
		BaseURL:      cfg.LookupBaseURL,
		Timeout:      cfg.LookupTimeout,
		MaxResults:   cfg.LookupMaxResults,
		ClientID:     cfg.LookupClientID,
		ClientSecret: cfg.LookupClientSecret,
		TokenURL:     cfg.LookupTokenURL,
	}, lookupCache)

	retriever := retrieval.NewRetriever(embedder, index, lookupClient, retrieval.Config{
		TopK:             cfg.RetrievalTopK,
		RemoteMaxResults: cfg.LookupMaxResults,
		Budget:           cfg.RetrievalBudget,
		MaxCandidates:    cfg.RetrievalMaxCandidates,
	})

	checklists, err := decision.LoadChecklists(cfg.ChecklistPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load criteria checklists")
	}
	engine := decision.NewEngine(checklists, decision.Thresholds{
		Approved:    cfg.ApprovedThreshold,
		Conditional: cfg.ConditionalThreshold,
	})

	svc := decision.NewService(classifier.New(), retriever, engine, decisionRepo, decisionProducer)

	decisionHandler := decision.NewHTTPHandler(svc, decisionRepo, cfg.MaxRequestBody)
	policyHandler := policy.NewHTTPHandler(policySvc, cfg.IndexPath, cfg.MaxRequestBody)

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.ObserveIndexCounts(index.Size(), len(index.Documents()))
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	decisionHandler.Register(api)
	policyHandler.Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Decision Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Decision Service...")

	if err := index.Persist(cfg.IndexPath); err != nil {
		logger.Log.WithError(err).Warn("failed to persist policy index on shutdown")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Decision Service stopped")
}
