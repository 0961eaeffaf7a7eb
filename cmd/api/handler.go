package api

import (
	"log"

	authUsecase "ga03-kanban/internal/auth/usecase"
	kanbanDelivery "ga03-kanban/internal/kanban/delivery"
	kanbanRepo "ga03-kanban/internal/kanban/repository"
	kanbanUsecase "ga03-kanban/internal/kanban/usecase"
	"ga03-kanban/internal/search"
	"ga03-kanban/pkg/ai"
	"ga03-kanban/pkg/chroma"
	"ga03-kanban/pkg/config"
	"ga03-kanban/pkg/sse"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authUsecase     authUsecase.AuthUsecase
	sseManager      *sse.Manager
	config          *config.Config
	kanbanHandler   *kanbanDelivery.KanbanHandler
	searchHandler   *kanbanDelivery.SearchHandler
	settingsHandler *settingsHandler
	summaryWorker   *kanbanUsecase.SummaryWorkerService
}

func NewHandler(authUc authUsecase.AuthUsecase, boards *kanbanUsecase.Sessions, mailbox *Mailbox, syncHistory kanbanRepo.SyncHistoryRepository, sseManager *sse.Manager, cfg *config.Config) *Handler {
	// Initialize AI service for card summaries
	aiService, err := ai.NewSummarizerService(ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:  cfg.GeminiApiKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
		BedrockRegion: cfg.BedrockRegion,
		BedrockModel:  cfg.BedrockModel,
	})
	if err != nil {
		log.Printf("Warning: Failed to initialize AI service: %v", err)
	} else {
		log.Printf("AI service initialized with provider: %s", cfg.AIProvider)
	}

	// Initialize SummaryWorkerService for background AI summaries
	var summaryQueue kanbanDelivery.SummaryQueue
	var summaryWorker *kanbanUsecase.SummaryWorkerService
	if aiService != nil {
		summaryWorker = kanbanUsecase.NewSummaryWorkerService(aiService, boards, cfg.SummaryWorkers)
		summaryWorker.Start()
		summaryQueue = summaryWorker
		log.Println("Summary worker service started")
	}

	// Initialize Chroma client for semantic search
	var vectors search.VectorStore
	if cfg.ChromaAPIKey != "" {
		chromaClient, err := chroma.NewChromaClient(cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize Chroma client: %v. Semantic search will not be available.", err)
		} else {
			vectors = chromaClient
			log.Println("Chroma client initialized successfully")
		}
	} else {
		log.Println("Warning: CHROMA_API_KEY not set. Semantic search will not be available.")
	}

	var semantic search.SemanticSearcher
	if vectors != nil {
		semantic = search.NewSemanticSource(vectors, syncHistory, boards)
	}
	searchService := search.NewService(search.NewFuzzySource(boards), semantic, cfg.SearchLimit, cfg.SemanticMinScore)

	// The mailbox is optional; a nil *Mailbox must not reach the handler as a non-nil interface
	var box kanbanDelivery.Mailbox
	if mailbox != nil {
		box = mailbox
	}

	return &Handler{
		authUsecase:   authUc,
		sseManager:    sseManager,
		config:        cfg,
		kanbanHandler: kanbanDelivery.NewKanbanHandler(boards, summaryQueue, box),
		searchHandler: kanbanDelivery.NewSearchHandler(searchService),
		settingsHandler: &settingsHandler{
			cfg:    cfg,
			status: func(c *gin.Context) search.Status { return searchService.Status(c.Request.Context()) },
		},
		summaryWorker: summaryWorker,
	}
}

// Stop drains the background summary workers
func (h *Handler) Stop() {
	if h.summaryWorker != nil {
		h.summaryWorker.Stop()
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Setup routes
	SetupRoutes(r, h)

	return r.Run(addr)
}
