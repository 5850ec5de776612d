package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"brand-archetype-api/auth"
	"brand-archetype-api/catalog"
	"brand-archetype-api/db"
	"brand-archetype-api/flow"
	"brand-archetype-api/handlers"
	"brand-archetype-api/jobs"
	"brand-archetype-api/models"
	"brand-archetype-api/utils"
)

func main() {
	// Set up logging with timestamps
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	utils.LogStartup("Brand Archetype API starting...")

	if err := godotenv.Load(); err != nil {
		utils.LogStartup("No .env file found, using environment as-is")
	}

	port := utils.GetEnvOrDefault("PORT", "8044")
	dbPath := utils.GetEnvOrDefault("DB_PATH", "./archetype.db")
	redisURL := utils.GetEnvOrDefault("REDIS_URL", "redis://localhost:6379")
	utils.LogStartup("Config: port=%s db=%s redis=%s", port, dbPath, redisURL)

	// Initialize database
	database, err := db.InitDB(dbPath)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize database: %v", err)
	}

	// Load the question catalog
	cat, err := catalog.Load()
	if err != nil {
		log.Fatalf("[FATAL] Failed to load question catalog: %v", err)
	}

	// Flow timing is env-tunable so staging can run with short delays
	flowConfig := flow.Config{
		AutoAdvanceDelay:   utils.GetEnvMillis("AUTO_ADVANCE_DELAY_MS", flow.DefaultConfig().AutoAdvanceDelay),
		MinProcessingDelay: utils.GetEnvMillis("MIN_PROCESSING_DELAY_MS", flow.DefaultConfig().MinProcessingDelay),
	}
	flowManager := flow.NewManager(cat, flowConfig, database)

	sessionStore := auth.NewSessionStore()
	emailConfig := auth.LoadEmailConfig()
	emailService := auth.NewEmailService(emailConfig)

	jobManager := jobs.NewJobManager(redisURL)
	jobManager.RegisterHandlers(emailService)
	go func() {
		if err := jobManager.Start(); err != nil {
			utils.LogError("Job queue worker stopped: %v", err)
		}
	}()

	ensureAdminUser(database)

	// Set up graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		utils.LogShutdown("Received shutdown signal")
		jobManager.Stop()
		if err := database.Close(); err != nil {
			utils.LogError("Error closing database: %v", err)
		} else {
			utils.LogShutdown("Database connection closed successfully")
		}
		os.Exit(0)
	}()

	// Setup API routes
	utils.LogStartup("Setting up API routes...")
	router := handlers.NewRouter(database, sessionStore, cat, flowManager, emailService, jobManager)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	utils.LogStartup("Server ready to accept connections at http://localhost:%s", port)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("[FATAL] Server failed to start: %v", err)
	}
}

// ensureAdminUser bootstraps an admin account on an empty install.
func ensureAdminUser(database *db.DB) {
	users, err := database.GetAllUsers()
	if err != nil {
		utils.LogError("Failed to check for existing users: %v", err)
		return
	}
	if len(users) > 0 {
		return
	}

	password := utils.GetEnvOrDefault("ADMIN_PASSWORD", "")
	if password == "" {
		utils.LogStartup("No users and no ADMIN_PASSWORD set, skipping admin bootstrap")
		return
	}

	admin, err := database.CreateUser(models.UserRequest{
		Username: utils.GetEnvOrDefault("ADMIN_USERNAME", "admin"),
		Email:    utils.GetEnvOrDefault("ADMIN_EMAIL", "admin@brandarchetype.local"),
		Password: password,
		Role:     "admin",
	})
	if err != nil {
		utils.LogError("Failed to bootstrap admin user: %v", err)
		return
	}
	utils.LogStartup("Bootstrapped admin user %s (ID %d)", admin.Username, admin.ID)
}
