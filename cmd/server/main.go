package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xaenox/billing-assistant/internal/bot"
	"github.com/xaenox/billing-assistant/internal/chat"
	"github.com/xaenox/billing-assistant/internal/classifier"
	"github.com/xaenox/billing-assistant/internal/engine"
	"github.com/xaenox/billing-assistant/internal/gateway"
	"github.com/xaenox/billing-assistant/internal/models"
	"github.com/xaenox/billing-assistant/internal/normalize"
	"github.com/xaenox/billing-assistant/internal/prompts"
	"github.com/xaenox/billing-assistant/internal/router"
	"github.com/xaenox/billing-assistant/internal/server"
	"github.com/xaenox/billing-assistant/internal/storage"
	"github.com/xaenox/billing-assistant/pkg/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// A missing .env is fine, the environment may already carry everything
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", zap.Error(err))
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", *configPath))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		dbConfig := storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}
		store, err = storage.NewPostgresStorage(ctx, dbConfig, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	profile := models.Profile(cfg.Classifier.Profile)
	composer, err := prompts.NewComposer(profile, cfg.Prompts.Overrides)
	if err != nil {
		logger.Fatal("Failed to load prompts", zap.Error(err))
	}

	aiEngine := engine.NewClient(engine.Options{
		URL:             cfg.Engine.URL,
		Authorization:   cfg.Engine.Authorization,
		AppID:           cfg.Engine.AppID,
		SourceService:   cfg.Engine.SourceService,
		TableName:       cfg.Engine.TableName,
		EmbeddingColumn: cfg.Engine.EmbeddingColumn,
		ContentColumn:   cfg.Engine.ContentColumn,
		TopK:            cfg.Engine.TopK,
		Timeout:         cfg.Engine.Timeout,
	}, logger)

	// Initialize classifier, keyword rules back up the remote one
	fallback := classifier.NewKeywordClassifier(profile)
	var clf classifier.Classifier
	switch cfg.Classifier.Backend {
	case "engine":
		clf = classifier.NewEngineClassifier(aiEngine, fallback, logger)
	default:
		clf = classifier.NewGPTClassifier(classifier.GPTConfig{
			APIKey:      cfg.OpenAI.APIKey,
			BaseURL:     cfg.OpenAI.BaseURL,
			Model:       cfg.OpenAI.Model,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Temperature: cfg.OpenAI.Temperature,
		}, fallback, logger)
	}

	svc := chat.NewService(clf, router.New(newGateway(cfg, logger), composer, logger), aiEngine, store, chat.Options{
		SystemPrompt: composer.SystemPrompt(),
		MemoryLimit:  cfg.Chat.MemoryLimit,
		MailAppID:    cfg.Chat.MailAppID,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.New(cfg.Server, svc, logger).Run(gctx)
	})

	if cfg.Telegram.Token != "" {
		b, err := bot.New(cfg.Telegram.Token, svc, logger)
		if err != nil {
			logger.Fatal("Failed to create bot", zap.Error(err))
		}
		g.Go(func() error {
			return b.Start(gctx)
		})
	} else {
		logger.Info("Telegram token not configured, bot disabled")
	}

	if err := g.Wait(); err != nil {
		logger.Fatal("Service error", zap.Error(err))
	}
}

// newGateway wires the backend destinations behind one outbound rate limiter.
func newGateway(cfg *config.Config, logger *zap.Logger) *gateway.Gateway {
	httpClient := &http.Client{Timeout: cfg.Gateway.Timeout}
	limiter := rate.NewLimiter(rate.Limit(cfg.Gateway.RequestsPerSecond), cfg.Gateway.Burst)

	client := func(name string, dest config.Destination) *gateway.Client {
		return gateway.NewClient(gateway.Destination{
			Name:          name,
			URL:           dest.URL,
			Authorization: dest.Authorization,
		}, httpClient, limiter, logger)
	}

	return gateway.New(
		client("documents", cfg.Gateway.Documents),
		client("analytics", cfg.Gateway.Analytics),
		client("procurement", cfg.Gateway.Procurement),
		gateway.Options{
			SystemAlias:      cfg.Gateway.SystemAlias,
			ProcurementAlias: cfg.Gateway.ProcurementAlias,
			SAPClient:        cfg.Gateway.SAPClient,
			LinkBaseURL:      cfg.Gateway.LinkBaseURL,
			AnalyticsPath:    cfg.Analytics.Path,
			Sectors: normalize.Sectors{
				Default:     cfg.Analytics.DefaultClient,
				Aerospace:   cfg.Analytics.AerospaceClient,
				Electronics: cfg.Analytics.ElectronicsClient,
			},
		},
		logger,
	)
}
