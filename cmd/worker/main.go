// The worker consumes docking jobs from Kafka: receptor preparations
// and batch processes.  One worker process runs both consumers plus a
// health/metrics endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/plasmodock/plasmodock/internal/application/batch"
	"github.com/plasmodock/plasmodock/internal/application/preparation"
	"github.com/plasmodock/plasmodock/internal/config"
	"github.com/plasmodock/plasmodock/internal/infrastructure/database/postgres"
	"github.com/plasmodock/plasmodock/internal/infrastructure/database/postgres/repositories"
	redisclient "github.com/plasmodock/plasmodock/internal/infrastructure/database/redis"
	"github.com/plasmodock/plasmodock/internal/infrastructure/messaging/kafka"
	"github.com/plasmodock/plasmodock/internal/infrastructure/monitoring/logging"
	"github.com/plasmodock/plasmodock/internal/infrastructure/monitoring/metrics"
	minestorage "github.com/plasmodock/plasmodock/internal/infrastructure/storage/minio"
	"github.com/plasmodock/plasmodock/internal/infrastructure/toolexec"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("worker exited with error", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	// The docking toolchain is validated eagerly: a worker without its
	// tools would fail every job it picks up.
	if err := cfg.Toolchain.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := postgres.RunMigrations(cfg.Database, logger); err != nil {
		return err
	}

	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	rds, err := redisclient.NewClient(cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer rds.Close()

	var store batch.ArtifactStore
	if cfg.MinIO.Enabled {
		s, err := minestorage.NewArtifactStore(ctx, cfg.MinIO, logger)
		if err != nil {
			return err
		}
		store = s
	}

	collector := metrics.NewCollector()
	locker := redisclient.NewJobLocker(rds, cfg.Worker.JobLockTTL, logger)
	runner := toolexec.NewExecRunner(logger)

	macroRepo := repositories.NewMacromoleculeRepository(pool, logger)
	procRepo := repositories.NewProcessRepository(pool, logger)

	pipeline := preparation.NewPipeline(cfg.Toolchain, runner, macroRepo, preparation.Timeouts{
		Prepare: cfg.Docking.PrepareTimeout,
		Docking: cfg.Docking.DockingTimeout,
	}, logger)

	splitter := batch.NewSplitter(cfg.Toolchain.OpenBabel, runner, cfg.Docking.SplitTimeout, logger)
	orchestrator := batch.NewOrchestrator(
		cfg.Toolchain, runner, splitter,
		procRepo, macroRepo,
		store, collector,
		cfg.Docking.DockingTimeout, logger,
	)

	handlers := map[string]kafka.Handler{
		kafka.TopicReceptorPrepare: prepareHandler(pipeline, locker, collector, logger),
		kafka.TopicProcessRun:      processHandler(orchestrator, locker, collector, logger),
	}

	healthSrv := startHealthServer(cfg.Worker.HealthPort, collector, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		healthSrv.Shutdown(shutdownCtx)
	}()

	concurrency := cfg.Worker.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var wg sync.WaitGroup
	for topic, handler := range handlers {
		// Consumers in the same group share the topic's partitions, so
		// concurrency scales by running more of them.
		for i := 0; i < concurrency; i++ {
			consumer := kafka.NewConsumer(cfg.Kafka, cfg.Worker, topic, handler, logger)
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer consumer.Close()
				if err := consumer.Run(ctx); err != nil {
					logger.Error("consumer stopped", logging.Err(err))
					stop()
				}
			}()
		}
	}

	logger.Info("worker started",
		logging.Int("concurrency", concurrency),
		logging.Int("health_port", cfg.Worker.HealthPort),
	)

	<-ctx.Done()
	logger.Info("shutting down, waiting for in-flight jobs")
	wg.Wait()
	logger.Info("worker stopped")
	return nil
}

// prepareHandler runs one receptor preparation per message.  Jobs bound
// to a catalog record take the per-job lock so redeliveries do not
// prepare the same receptor twice concurrently.
func prepareHandler(pipeline *preparation.Pipeline, locker *redisclient.JobLocker, collector *metrics.Collector, logger logging.Logger) kafka.Handler {
	return func(ctx context.Context, msg kafkago.Message) error {
		job, err := kafka.DecodeReceptorPreparationJob(msg.Value)
		if err != nil {
			return err
		}

		if job.MacromoleculeID != uuid.Nil {
			lock, acquired, err := locker.Acquire(ctx, job.MacromoleculeID)
			if err != nil {
				return err
			}
			if !acquired {
				logger.Warn("duplicate preparation delivery dropped",
					logging.String("macromolecule_id", job.MacromoleculeID.String()))
				return nil
			}
			defer lock.Release(context.WithoutCancel(ctx))
		}

		collector.JobStarted(metrics.JobPreparation)
		start := time.Now()
		_, err = pipeline.Prepare(ctx, preparation.Job{
			Workdir:          job.Workdir,
			ReceptorFilename: job.ReceptorFilename,
			GridSize:         job.GridSize,
			GridCenter:       job.GridCenter,
			LigandFilename:   job.LigandFilename,
			MacromoleculeID:  job.MacromoleculeID,
		})
		collector.JobFinished(metrics.JobPreparation, err == nil, time.Since(start))
		return err
	}
}

// processHandler runs one batch process per message.
func processHandler(orchestrator *batch.Orchestrator, locker *redisclient.JobLocker, collector *metrics.Collector, logger logging.Logger) kafka.Handler {
	return func(ctx context.Context, msg kafkago.Message) error {
		job, err := kafka.DecodeBatchProcessJob(msg.Value)
		if err != nil {
			return err
		}

		lock, acquired, err := locker.Acquire(ctx, job.ProcessID)
		if err != nil {
			return err
		}
		if !acquired {
			logger.Warn("duplicate process delivery dropped",
				logging.String("process_id", job.ProcessID.String()))
			return nil
		}
		defer lock.Release(context.WithoutCancel(ctx))

		collector.JobStarted(metrics.JobBatch)
		start := time.Now()
		_, err = orchestrator.Run(ctx, job.ProcessID)
		collector.JobFinished(metrics.JobBatch, err == nil, time.Since(start))
		return err
	}
}

func startHealthServer(port int, collector *metrics.Collector, logger logging.Logger) *http.Server {
	if port == 0 {
		port = 8081
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		logger.Info("health server listening", logging.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server error", logging.Err(err))
		}
	}()
	return srv
}
