package bootstrap

import (
	"log"

	"design-sandbox-be/internal/config"
	"design-sandbox-be/internal/controller"
	"design-sandbox-be/internal/handler"
	"design-sandbox-be/internal/pkg/logger"
	"design-sandbox-be/internal/repository/unitofwork"
	"design-sandbox-be/internal/service"
	"design-sandbox-be/internal/websocket"
	"design-sandbox-be/pkg/embedding"
	"design-sandbox-be/pkg/llm/factory"

	pktNats "design-sandbox-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ItemController       controller.IItemController
	EnrichmentController controller.IEnrichmentController

	// WebSockets & Notification
	NotifyHandler *handler.NotifyHandler
	WebSocketHub  *websocket.Hub

	// Shared infrastructure, exposed for main.go and tests
	PubSub *gochannel.GoChannel
	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GeminiApiKey)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.GeminiApiKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	wsHub := websocket.NewHub(sysLogger)
	go wsHub.Run()

	// 5. Services
	itemService := service.NewItemService(uowFactory, natsPub, cfg.App.UploadDir, cfg.App.BaseURL)
	enrichmentService := service.NewEnrichmentService(uowFactory, embeddingProvider, llmProvider, natsPub)
	searchService := service.NewSearchService(uowFactory, enrichmentService)

	// 6. Handlers & Controllers
	notifyHandler := handler.NewNotifyHandler(pubSub, natsSub, wsHub, sysLogger)

	return &Container{
		ItemController:       controller.NewItemController(itemService, searchService),
		EnrichmentController: controller.NewEnrichmentController(enrichmentService),
		NotifyHandler:        notifyHandler,
		WebSocketHub:         wsHub,
		PubSub:               pubSub,
		Logger:               sysLogger,
	}
}
