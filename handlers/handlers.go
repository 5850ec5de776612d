package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"brand-archetype-api/auth"
	"brand-archetype-api/catalog"
	"brand-archetype-api/db"
	"brand-archetype-api/flow"
	"brand-archetype-api/jobs"
	"brand-archetype-api/utils"
)

// API wrapper to hold all handlers
type API struct {
	authHandlers       *AuthHandlers
	assessmentHandlers *AssessmentHandlers
	catalogHandlers    *CatalogHandlers
	jobManager         *jobs.JobManager
}

func NewAPI(database *db.DB, sessionStore *auth.SessionStore, cat *catalog.Catalog, flowManager *flow.Manager,
	emailService *auth.EmailService, jobManager *jobs.JobManager) *API {
	return &API{
		authHandlers:       NewAuthHandlers(database, sessionStore, emailService, jobManager),
		assessmentHandlers: NewAssessmentHandlers(database, sessionStore, cat, flowManager, emailService, jobManager),
		catalogHandlers:    NewCatalogHandlers(cat),
		jobManager:         jobManager,
	}
}

func NewRouter(database *db.DB, sessionStore *auth.SessionStore, cat *catalog.Catalog, flowManager *flow.Manager,
	emailService *auth.EmailService, jobManager *jobs.JobManager) http.Handler {
	api := NewAPI(database, sessionStore, cat, flowManager, emailService, jobManager)

	mux := http.NewServeMux()

	// Health check (no auth required)
	mux.HandleFunc("/health", healthCheck)

	// Auth endpoints (handle their own auth as needed)
	mux.HandleFunc("/auth/", api.authHandlers.HandleAuth)

	// Catalog routes with auth
	mux.HandleFunc("/questions", authMiddleware(api.catalogHandlers.GetQuestions, sessionStore))
	mux.HandleFunc("/archetypes", authMiddleware(api.catalogHandlers.GetArchetypes, sessionStore))

	// Assessment routes with auth
	mux.HandleFunc("/assessments", authMiddleware(api.assessmentHandlers.HandleAssessments, sessionStore))
	mux.HandleFunc("/assessments/", authMiddleware(api.assessmentHandlers.HandleAssessmentPath, sessionStore))

	// Invite routes (admin)
	mux.HandleFunc("/invites", authMiddleware(api.authHandlers.HandleInvites, sessionStore))

	// User management routes (admin)
	mux.HandleFunc("/users", authMiddlewareWithRoleCheck([]string{"admin"}, sessionStore)(api.authHandlers.HandleUsers))
	mux.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/users/")
		id, err := strconv.Atoi(path)
		if err != nil {
			utils.LogHTTP("Invalid user ID: %s", path)
			http.Error(w, "Invalid user ID", http.StatusBadRequest)
			return
		}
		authMiddlewareWithRoleCheck([]string{"admin"}, sessionStore)(func(w http.ResponseWriter, r *http.Request) {
			api.authHandlers.HandleUserByID(w, r, id)
		})(w, r)
	})

	return corsMiddleware(loggingMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
