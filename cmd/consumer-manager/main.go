// cmd/consumer-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"agrisure-workers/internal/clients"
	"agrisure-workers/internal/common/auth"
	"agrisure-workers/internal/common/aws"
	"agrisure-workers/internal/common/config"
	"agrisure-workers/internal/common/database"
	"agrisure-workers/internal/common/kafka"
	"agrisure-workers/internal/common/logger"
	"agrisure-workers/internal/common/observability"
	"agrisure-workers/internal/dispatch"
	"agrisure-workers/internal/document"
	"agrisure-workers/internal/events"
	"agrisure-workers/internal/notify"
	"agrisure-workers/internal/verification"
	"agrisure-workers/internal/workflow"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting consumer manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("consumer-manager")
	defer obs.Shutdown()

	tracing := observability.NewTracing("consumer-manager", os.Getenv("JAEGER_ENDPOINT"))
	defer tracing.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init External Service Clients ---
	tokens := auth.NewKeycloakClient(
		cfg.Auth.Keycloak.URL,
		cfg.Auth.Keycloak.Realm,
		cfg.Auth.Keycloak.ClientID,
		cfg.Auth.Keycloak.ClientSecret,
	)

	collabTimeout := time.Duration(cfg.Collaborators.Timeout) * time.Millisecond
	appsClient := clients.NewApplicationsClient(cfg.Collaborators.ApplicationsBaseURL, collabTimeout)
	usersClient := clients.NewUsersClient(
		cfg.Collaborators.UsersBaseURL,
		collabTimeout,
		redis.GetClient(),
		time.Duration(cfg.Collaborators.CacheTTL)*time.Second,
		log,
	)

	var notifier notify.Notifier = notify.NoOpNotifier{}
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		notifier = notify.NewAWSNotifier(sesClient, snsClient, cfg.Notifications, log)
	}

	zapLog.Info("All external service clients initialized")

	producer := kafka.NewProducer(cfg.Kafka)
	defer producer.Close()

	// --- Build Handlers ---
	historyStore := workflow.NewPostgresHistoryStore(pg.DB)
	guard := workflow.NewIdempotencyGuard()
	verificationStore := verification.NewPostgresStore(pg.DB)
	allocator := verification.NewAllocator(verificationStore, log)

	workflowHandler := workflow.NewHandler(
		historyStore, appsClient, usersClient, tokens, producer,
		esClient, cfg.Database.Elasticsearch.Index, notifier, log,
	)
	verificationHandler := verification.NewHandler(
		verificationStore, allocator, guard, producer, log,
	)
	documentHandler := document.NewHandler(historyStore, log)

	// --- Routing Table ---
	// One dispatcher per topic so each consumer's timeout applies to its own
	// handlers only.
	consumerTimeout := func(name string) time.Duration {
		return time.Duration(cfg.Consumers[name].Timeout) * time.Millisecond
	}

	intakeDispatcher := dispatch.New(consumerTimeout("intake"), log)
	intakeDispatcher.Register(kafka.TopicApplicationEvents, events.TypeApplicationSubmitted, verificationHandler.HandleSubmission)

	workflowDispatcher := dispatch.New(consumerTimeout("workflow"), log)
	for _, eventType := range []string{
		events.TypeApplicationSubmitted,
		events.TypeApplicationCancelled,
		events.TypeMAReviewStarted, events.TypeMAApproved, events.TypeMARejected,
		events.TypeAEWReviewStarted, events.TypeAEWApproved, events.TypeAEWRejected,
	} {
		workflowDispatcher.Register(kafka.TopicWorkflowEvents, eventType, workflowHandler.HandleWorkflowEvent)
	}

	lifecycleDispatcher := dispatch.New(consumerTimeout("lifecycle"), log)
	for _, eventType := range []string{
		events.TypeApplicationSubmitted,
		events.TypeApplicationCancelled,
		events.TypeMAReviewStarted, events.TypeMAApproved, events.TypeMARejected,
		events.TypeAEWReviewStarted, events.TypeAEWApproved, events.TypeAEWRejected,
		events.TypeUnderwriterReviewStarted, events.TypeUnderwriterApproved, events.TypeUnderwriterRejected,
		events.TypePolicyIssued,
		events.TypeAdjusterReviewStarted, events.TypeAdjusterApproved, events.TypeAdjusterRejected,
		events.TypeClaimApproved,
	} {
		lifecycleDispatcher.Register(kafka.TopicApplicationLifecycle, eventType, workflowHandler.HandleLifecycleEvent)
	}

	insuranceDispatcher := dispatch.New(consumerTimeout("insurance"), log)
	for _, eventType := range []string{
		events.TypeUnderwriterReviewStarted, events.TypeUnderwriterApproved, events.TypeUnderwriterRejected,
		events.TypePolicyIssued,
		events.TypeAdjusterReviewStarted, events.TypeAdjusterApproved, events.TypeAdjusterRejected,
		events.TypeClaimApproved,
	} {
		insuranceDispatcher.Register(kafka.TopicInsuranceEvents, eventType, workflowHandler.HandleWorkflowEvent)
	}

	verificationDispatcher := dispatch.New(consumerTimeout("verification"), log)
	verificationDispatcher.Register(kafka.TopicVerificationEvents, events.TypeVerificationCompleted, verificationHandler.HandleResult)
	verificationDispatcher.Register(kafka.TopicVerificationEvents, events.TypeVerificationRejected, verificationHandler.HandleResult)

	documentDispatcher := dispatch.New(consumerTimeout("document"), log)
	documentDispatcher.Register(kafka.TopicDocumentEvents, events.TypeDocumentAttached, documentHandler.HandleDocumentEvent)
	documentDispatcher.Register(kafka.TopicDocumentEvents, events.TypeDocumentVerified, documentHandler.HandleDocumentEvent)

	// The backlog re-drive reuses the intake path: a re-queued submission is
	// just the original envelope on another topic. No handler timeout here;
	// the handler blocks on the pacing tick before each attempt.
	backlogDispatcher := dispatch.New(0, log)
	backlogDispatcher.Register(kafka.TopicVerificationBacklog, events.TypeApplicationSubmitted, verificationHandler.HandleBacklog)

	// --- Start Consumers ---
	type topicRoute struct {
		name       string
		topic      string
		dispatcher *dispatch.Dispatcher
	}
	routes := []topicRoute{
		{"intake", kafka.TopicApplicationEvents, intakeDispatcher},
		{"workflow", kafka.TopicWorkflowEvents, workflowDispatcher},
		{"lifecycle", kafka.TopicApplicationLifecycle, lifecycleDispatcher},
		{"insurance", kafka.TopicInsuranceEvents, insuranceDispatcher},
		{"verification", kafka.TopicVerificationEvents, verificationDispatcher},
		{"document", kafka.TopicDocumentEvents, documentDispatcher},
		{"intake", kafka.TopicVerificationBacklog, backlogDispatcher},
	}

	var consumers []*kafka.Consumer
	for _, r := range routes {
		ccfg, ok := cfg.Consumers[r.name]
		if !ok || !ccfg.Enabled {
			zapLog.Info("consumer disabled", zap.String("name", r.name), zap.String("topic", r.topic))
			continue
		}
		d := r.dispatcher
		c := kafka.NewConsumer(cfg.Kafka, ccfg, r.topic, producer, d.Dispatch, log)
		consumers = append(consumers, c)
		go func(topic string) {
			if err := c.Run(ctx); err != nil && ctx.Err() == nil {
				zapLog.Error("consumer stopped", zap.String("topic", topic), zap.Error(err))
			}
		}(r.topic)
		zapLog.Info("consumer started",
			zap.String("name", r.name),
			zap.String("topic", r.topic),
			zap.Int("maxRetries", ccfg.MaxRetries),
			zap.Int("timeout_ms", ccfg.Timeout),
		)
	}

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening", zap.String("addr", cfg.App.MetricsAddr))
		if err := http.ListenAndServe(cfg.App.MetricsAddr, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping consumers...")
	cancel()

	for _, c := range consumers {
		if err := c.Close(); err != nil {
			zapLog.Error("Error closing consumer", zap.Error(err))
		}
	}

	zapLog.Info("Consumer manager stopped gracefully")
}
