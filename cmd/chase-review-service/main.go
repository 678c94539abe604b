package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/medreview-ai/platform/pkg/annotation"
	"github.com/medreview-ai/platform/pkg/chase"
	"github.com/medreview-ai/platform/pkg/common/config"
	"github.com/medreview-ai/platform/pkg/common/database"
	"github.com/medreview-ai/platform/pkg/common/kafka"
	"github.com/medreview-ai/platform/pkg/common/logger"
	"github.com/medreview-ai/platform/pkg/common/models"
	"github.com/medreview-ai/platform/pkg/highlight"
	"github.com/medreview-ai/platform/pkg/nlp"
	"github.com/medreview-ai/platform/pkg/reconcile"
	"github.com/medreview-ai/platform/pkg/review"
	"github.com/medreview-ai/platform/pkg/workflow"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	chaseRepo := chase.NewRepository(db)
	nlpRepo := nlp.NewRepository(db)
	decisionStore := reconcile.NewStore(db)
	annotationStore := annotation.NewStore(db)
	if err := chaseRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate chase tables")
	}
	if err := nlpRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate nlp request tables")
	}
	if err := decisionStore.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate decision tables")
	}
	if err := annotationStore.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate annotation tables")
	}

	catalog, err := workflow.Load(cfg.WorkflowCatalogPath)
	if err != nil {
		logger.Log.WithError(err).Warn("falling back to default workflow catalog")
		catalog = workflow.DefaultCatalog()
	}

	locker := annotation.NewRedisLocker(database.GetRedis(), cfg.AnnotationLockTTL)

	producer := kafka.NewProducer(cfg.ReviewEventTopic)
	defer producer.Close()

	var source nlp.Source = nlp.NewRequestLogSource(nlpRepo)
	if cfg.NlpProviderBaseURL != "" {
		source = nlp.NewHTTPSource(
			cfg.NlpProviderBaseURL,
			cfg.NlpProviderTokenURL,
			cfg.NlpProviderClientID,
			cfg.NlpProviderClientSecret,
			cfg.NlpProviderTimeout,
		)
	}

	reconciler := reconcile.NewService(source, decisionStore, chaseRepo, chaseRepo, producer)
	highlights := highlight.NewService(source)
	syncer := annotation.NewSyncer(annotationStore, chaseRepo, chaseRepo, locker, catalog, producer)
	service := review.NewService(reconciler, highlights, syncer, chaseRepo)
	handler := review.NewHandler(service)

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	handler.Register(api)

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	consumer := kafka.NewConsumer(cfg.ChaseMoveTopic, cfg.KafkaGroupID)
	defer consumer.Close()
	go func() {
		if err := consumer.Consume(consumerCtx, workflowEventHandler(syncer)); err != nil && err != context.Canceled {
			logger.Log.WithError(err).Error("workflow event consumer stopped")
		}
	}()

	address := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithField("addr", address).Info("Chase review service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start chase review service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down chase review service...")
	stopConsumer()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Chase review service forced to shutdown")
	}
	database.ClosePostgres()
	database.CloseRedis()
	logger.Log.Info("Chase review service stopped")
}

// workflowEventHandler reacts to bulk chase workflow moves: chases landing at
// or below the abstraction threshold lose their NLP annotations.
func workflowEventHandler(syncer *annotation.Syncer) kafka.EventHandler {
	return func(ctx context.Context, event models.Event) error {
		if event.Type != "chase-moveback" {
			return nil
		}

		raw, err := json.Marshal(event.Data["changes"])
		if err != nil {
			return err
		}
		var changes []models.BulkChaseStatusChange
		if err := json.Unmarshal(raw, &changes); err != nil {
			logger.Log.WithError(err).WithField("event_id", event.ID).Error("malformed chase-moveback event")
			return nil
		}
		if len(changes) == 0 {
			return nil
		}
		return syncer.PurgeOnBulkRegress(ctx, changes)
	}
}
