// Package main wires together the report discovery service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcppubsub "cloud.google.com/go/pubsub"
	gcpstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/aipdigest/reportcrawl/internal/api"
	"github.com/aipdigest/reportcrawl/internal/classify"
	"github.com/aipdigest/reportcrawl/internal/classify/gemini"
	"github.com/aipdigest/reportcrawl/internal/classify/openai"
	"github.com/aipdigest/reportcrawl/internal/clock/system"
	"github.com/aipdigest/reportcrawl/internal/config"
	"github.com/aipdigest/reportcrawl/internal/digest"
	collyfetcher "github.com/aipdigest/reportcrawl/internal/fetcher/colly"
	headlessfetcher "github.com/aipdigest/reportcrawl/internal/fetcher/headless"
	"github.com/aipdigest/reportcrawl/internal/fetcher/headless/detector"
	"github.com/aipdigest/reportcrawl/internal/id/uuid"
	"github.com/aipdigest/reportcrawl/internal/linkrank"
	"github.com/aipdigest/reportcrawl/internal/logging"
	"github.com/aipdigest/reportcrawl/internal/metrics"
	"github.com/aipdigest/reportcrawl/internal/pipeline"
	"github.com/aipdigest/reportcrawl/internal/pubdate"
	memorypublisher "github.com/aipdigest/reportcrawl/internal/publisher/memory"
	pubsubpublisher "github.com/aipdigest/reportcrawl/internal/publisher/pubsub"
	"github.com/aipdigest/reportcrawl/internal/report"
	"github.com/aipdigest/reportcrawl/internal/search"
	"github.com/aipdigest/reportcrawl/internal/storage/gcs"
	"github.com/aipdigest/reportcrawl/internal/storage/local"
	memorystorage "github.com/aipdigest/reportcrawl/internal/storage/memory"
	"github.com/aipdigest/reportcrawl/internal/storage/postgres"
	"github.com/aipdigest/reportcrawl/internal/verify"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	runOnce := flag.Bool("once", false, "Run one discovery pass and exit instead of serving")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	clock := system.New()
	idGen := uuid.New()

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Pipeline.UserAgent,
		RespectRobots: cfg.Pipeline.RespectRobots,
		Timeout:       cfg.HTTPTimeout(),
	})

	var headless report.Fetcher
	var promoter *detector.Heuristic
	if cfg.Headless.Enabled {
		hf, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Pipeline.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			logger.Warn("headless fetcher init failed", zap.Error(err))
		} else {
			headless = hf
			promoter = detector.NewHeuristic(cfg.Headless.PromotionThresh)
			defer hf.Close()
		}
	}

	store, err := buildStore(ctx, cfg, clock)
	if err != nil {
		logger.Fatal("candidate store init failed", zap.Error(err))
	}

	blobs, err := buildBlobStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("blob store init failed", zap.Error(err))
	}

	publisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}

	var searcher report.Searcher
	if cfg.Search.APIKey != "" {
		searcher, err = search.New(search.Config{
			APIKey:  cfg.Search.APIKey,
			Timeout: cfg.HTTPTimeout(),
		})
		if err != nil {
			logger.Fatal("search client init failed", zap.Error(err))
		}
	}

	providers := buildProviders(cfg, logger)
	classifier := classify.New(
		classify.Policy(cfg.Pipeline.ClassifierPolicy),
		logger.Named("classify"),
		providers...,
	)

	admissionTopic := cfg.Pipeline.AdmissionTopic
	if cfg.PubSub.Enabled {
		admissionTopic = cfg.PubSub.TopicName
	}

	pipe, err := pipeline.New(pipeline.Config{
		WindowDays:       cfg.Pipeline.WindowDays,
		ResultsPerQuery:  cfg.Pipeline.ResultsPerQuery,
		MaxChildLinks:    cfg.Pipeline.MaxChildLinks,
		ExcerptMaxChars:  cfg.Pipeline.ExcerptMaxChars,
		DocumentMaxPages: cfg.Pipeline.DocumentMaxPages,
		Concurrency:      cfg.Pipeline.Concurrency,
		ArchivePrefix:    cfg.Storage.Prefix,
		AdmissionTopic:   admissionTopic,
		AdmitUnknown:     !cfg.Pipeline.SkipUnknown,
	}, pipeline.Deps{
		Fetcher:    fetcher,
		Headless:   headless,
		Promoter:   promoter,
		Ranker:     linkrank.New(fetcher, linkrank.Config{}),
		Resolver:   pubdate.NewResolver(clock),
		Classifier: classifier,
		Store:      store,
		Blobs:      blobs,
		Publisher:  publisher,
		Searcher:   searcher,
		Clock:      clock,
		IDs:        idGen,
		Logger:     logger.Named("pipeline"),
	})
	if err != nil {
		logger.Fatal("pipeline init failed", zap.Error(err))
	}

	if *runOnce {
		runDiscovery(ctx, cfg, pipe, logger)
		runPostPasses(ctx, cfg, store, fetcher, providers, clock, logger)
		return
	}

	apiServer := api.NewServer(store, clock, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		runDiscovery(ctx, cfg, pipe, logger)
		runPostPasses(ctx, cfg, store, fetcher, providers, clock, logger)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func runDiscovery(ctx context.Context, cfg config.Config, pipe *pipeline.Pipeline, logger *zap.Logger) {
	if len(cfg.Pipeline.Queries) > 0 {
		if cfg.Search.APIKey == "" {
			logger.Warn("queries configured but search.api_key is empty, skipping query mode")
		} else if _, err := pipe.RunQueries(ctx, cfg.Pipeline.Queries); err != nil {
			logger.Error("query discovery failed", zap.Error(err))
		}
	}
	if len(cfg.Pipeline.Seeds) > 0 {
		if _, err := pipe.RunSeeds(ctx, cfg.Pipeline.Seeds); err != nil {
			logger.Error("seed discovery failed", zap.Error(err))
		}
	}
}

// runPostPasses verifies fresh admissions and, when configured, sends the
// digest of verified records.
func runPostPasses(
	ctx context.Context,
	cfg config.Config,
	store report.CandidateStore,
	fetcher report.Fetcher,
	providers []report.TopicalClassifier,
	clock report.Clock,
	logger *zap.Logger,
) {
	if ctx.Err() != nil {
		return
	}
	if len(providers) > 0 {
		v, err := verify.New(verify.Config{ExcerptMaxChars: cfg.Pipeline.ExcerptMaxChars}, verify.Deps{
			Store:      store,
			Fetcher:    fetcher,
			Classifier: providers[0],
			Clock:      clock,
			Logger:     logger.Named("verify"),
		})
		if err != nil {
			logger.Error("verifier init failed", zap.Error(err))
		} else if _, err := v.Run(ctx); err != nil {
			logger.Error("verification pass failed", zap.Error(err))
		}
	}

	if !cfg.Digest.Enabled {
		return
	}
	sender, err := digest.NewSMTPSender(digest.SMTPConfig{
		Host:     cfg.Digest.SMTPHost,
		Port:     cfg.Digest.SMTPPort,
		Username: cfg.Digest.Username,
		Password: cfg.Digest.Password,
		From:     cfg.Digest.From,
		To:       cfg.Digest.To,
	})
	if err != nil {
		logger.Error("smtp sender init failed", zap.Error(err))
		return
	}
	d, err := digest.New(digest.Config{LookbackDays: cfg.Pipeline.WindowDays}, digest.Deps{
		Store:  store,
		Sender: sender,
		Clock:  clock,
		Logger: logger.Named("digest"),
	})
	if err != nil {
		logger.Error("digest init failed", zap.Error(err))
		return
	}
	if _, err := d.Run(ctx); err != nil {
		logger.Error("digest run failed", zap.Error(err))
	}
}

func buildStore(ctx context.Context, cfg config.Config, clock report.Clock) (report.CandidateStore, error) {
	if cfg.DB.DSN == "" {
		return memorystorage.NewCandidateStore(cfg.Pipeline.WindowDays, clock), nil
	}
	return postgres.NewCandidateStore(ctx, postgres.CandidateStoreConfig{
		DSN:        cfg.DB.DSN,
		Table:      cfg.DB.Table,
		WindowDays: cfg.Pipeline.WindowDays,
		MaxConns:   cfg.DB.MaxConns,
		MinConns:   cfg.DB.MinConns,
	}, clock)
}

func buildBlobStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (report.BlobStore, error) {
	switch cfg.Storage.Provider {
	case "local":
		return local.New(local.Config{BaseDir: cfg.Storage.BaseDir})
	case "gcs":
		client, err := gcpstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket})
	default:
		logger.Info("using in-memory blob store")
		return memorystorage.NewBlobStore(), nil
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (report.Publisher, error) {
	if !cfg.PubSub.Enabled {
		return memorypublisher.New(), nil
	}
	client, err := gcppubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	return pubsubpublisher.New(client)
}

func buildProviders(cfg config.Config, logger *zap.Logger) []report.TopicalClassifier {
	var providers []report.TopicalClassifier
	if key := cfg.Classifiers.Gemini.APIKey; key != "" {
		c, err := gemini.New(gemini.Config{
			APIKey:  key,
			Model:   cfg.Classifiers.Gemini.Model,
			Timeout: cfg.HTTPTimeout(),
		})
		if err != nil {
			logger.Warn("gemini classifier init failed", zap.Error(err))
		} else {
			providers = append(providers, c)
		}
	}
	if key := cfg.Classifiers.OpenAI.APIKey; key != "" {
		c, err := openai.New(openai.Config{
			APIKey:  key,
			Model:   cfg.Classifiers.OpenAI.Model,
			Timeout: cfg.HTTPTimeout(),
		})
		if err != nil {
			logger.Warn("openai classifier init failed", zap.Error(err))
		} else {
			providers = append(providers, c)
		}
	}
	return providers
}
