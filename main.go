package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	api "ga03-kanban/cmd/api"
	authdomain "ga03-kanban/internal/auth/domain"
	authRepo "ga03-kanban/internal/auth/repository"
	authUsecase "ga03-kanban/internal/auth/usecase"
	kanbandomain "ga03-kanban/internal/kanban/domain"
	kanbanRepo "ga03-kanban/internal/kanban/repository"
	"ga03-kanban/internal/kanban/registry"
	"ga03-kanban/internal/kanban/scheduler"
	kanbanUsecase "ga03-kanban/internal/kanban/usecase"
	"ga03-kanban/pkg/config"
	"ga03-kanban/pkg/database"
	"ga03-kanban/pkg/gmail"
	"ga03-kanban/pkg/sse"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	models := []interface{}{&authdomain.User{}, &kanbandomain.SyncHistory{}}
	if cfg.BoardBackend != "sqlite" {
		models = append(models, &kanbandomain.Column{}, &kanbandomain.BoardEmail{})
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	syncHistoryRepo := kanbanRepo.NewSyncHistoryRepository(db)

	var openBoard func(userID string) kanbanRepo.BoardAPI
	var holdIndex kanbanRepo.HoldIndex
	closeStore := func() {}
	switch cfg.BoardBackend {
	case "sqlite":
		store, err := kanbanRepo.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			log.Fatal("Failed to open SQLite board store:", err)
		}
		closeStore = func() {
			if err := store.Close(); err != nil {
				log.Printf("Failed to close SQLite board store: %v", err)
			}
		}
		openBoard = store.Board
		holdIndex = store
		log.Printf("Board backend: sqlite (%s)", cfg.SQLitePath)
	default:
		openBoard = func(userID string) kanbanRepo.BoardAPI {
			return kanbanRepo.NewBoardRepository(db, userID)
		}
		holdIndex = kanbanRepo.NewHoldIndex(db)
		log.Println("Board backend: postgres")
	}

	// Initialize SSE Manager
	sseManager := sse.NewManager()
	go sseManager.Run()

	// Initialize use cases (dependency injection)
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepo, cfg)
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)
	mailbox := api.NewMailbox(userRepo, gmailService, authUsecaseInstance)

	opts := kanbanUsecase.Options{
		DefaultSnooze: cfg.DefaultSnooze,
		Events:        sseManager,
	}
	if cfg.ColumnsFile != "" {
		tmpl, err := registry.LoadTemplate(cfg.ColumnsFile)
		if err != nil {
			log.Fatal("Failed to load column template:", err)
		}
		opts.Template = tmpl.Build
		log.Printf("Loaded column template with %d columns from %s", len(tmpl.Columns), cfg.ColumnsFile)
	}

	boards := kanbanUsecase.NewSessions(func(ctx context.Context, userID string) (kanbanRepo.BoardAPI, kanbanRepo.LabelAPI, error) {
		client, err := mailbox.Client(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		if client == nil {
			log.Printf("[Sessions] %s has no mailbox connected, label sync disabled", userID)
			return openBoard(userID), nil, nil
		}
		return openBoard(userID), client, nil
	}, opts)

	// One snooze scheduler per open board
	snoozeManager := scheduler.NewManager(sseManager, cfg.SnoozePollInterval)
	boards.OnOpen(func(b *kanbanUsecase.Board) { snoozeManager.Attach(b) })
	boards.OnClose(snoozeManager.Detach)

	// Release holds of boards nobody has opened since the last restart
	if n := boards.OpenWithHolds(context.Background(), holdIndex); n > 0 {
		log.Printf("Opened %d boards with pending snooze holds", n)
	}

	// Release sessions nobody has used for a while
	janitor := scheduler.NewSessionJanitor(boards, cfg.SessionIdle, func(userID string) bool {
		return sseManager.Connected(userID) > 0
	})
	janitor.Start()

	// Initialize HTTP handler
	handler := api.NewHandler(authUsecaseInstance, boards, mailbox, syncHistoryRepo, sseManager, cfg)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")
		janitor.Stop()
		snoozeManager.StopAll()
		handler.Stop()
		sseManager.Stop()
		closeStore()
		os.Exit(0)
	}()

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
