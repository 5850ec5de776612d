package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"brand-archetype-api/auth"
	"brand-archetype-api/db"
	"brand-archetype-api/jobs"
	"brand-archetype-api/models"
	"brand-archetype-api/utils"
)

type AuthHandlers struct {
	db           *db.DB
	sessionStore *auth.SessionStore
	emailService *auth.EmailService
	jobManager   *jobs.JobManager
}

func NewAuthHandlers(database *db.DB, sessionStore *auth.SessionStore, emailService *auth.EmailService, jobManager *jobs.JobManager) *AuthHandlers {
	return &AuthHandlers{
		db:           database,
		sessionStore: sessionStore,
		emailService: emailService,
		jobManager:   jobManager,
	}
}

func (ah *AuthHandlers) HandleAuth(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/auth/")
	utils.LogHTTP("%s /auth/%s", r.Method, path)

	switch path {
	case "register":
		ah.register(w, r)
	case "login":
		ah.login(w, r)
	case "logout":
		ah.logout(w, r)
	case "me":
		ah.me(w, r)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

type registerRequest struct {
	models.UserRequest
	InviteToken string `json:"invite_token,omitempty"`
}

func (ah *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.LogHTTP("Invalid JSON in register request: %v", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	// An invite token pins the email and may grant a role.
	var invite *models.Invite
	if req.InviteToken != "" {
		var err error
		invite, err = ah.db.GetInviteByToken(req.InviteToken)
		if err != nil {
			http.Error(w, "Invalid or expired invite", http.StatusBadRequest)
			return
		}
		req.Email = invite.Email
		if invite.Role != "" {
			req.Role = invite.Role
		}
	} else {
		// Self-registration never grants elevated roles.
		req.Role = "user"
	}

	user, err := ah.db.CreateUser(req.UserRequest)
	if err != nil {
		utils.LogError("Failed to create user: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if invite != nil {
		if err := ah.db.MarkInviteUsed(invite.ID); err != nil {
			utils.LogError("Failed to mark invite %d used: %v", invite.ID, err)
		}
	}

	session := ah.sessionStore.CreateSession(user)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"user":    user,
		"session": session,
	})
}

func (ah *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.LogHTTP("Invalid JSON in login request: %v", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	user, err := ah.db.AuthenticateUser(req.Username, req.Password)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	session := ah.sessionStore.CreateSession(user)
	utils.LogHTTP("User %s logged in", user.Username)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"user":    user,
		"session": session,
	})
}

func (ah *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := extractSessionFromRequest(r)
	if sessionID != "" {
		ah.sessionStore.DeleteSession(sessionID)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (ah *AuthHandlers) me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session := getSessionFromRequest(r, ah.sessionStore)
	if session == nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	user, err := ah.db.GetUserByID(session.UserID)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// User management (admin)
func (ah *AuthHandlers) HandleUsers(w http.ResponseWriter, r *http.Request) {
	utils.LogHTTP("%s /users", r.Method)
	switch r.Method {
	case http.MethodGet:
		ah.listUsers(w, r)
	case http.MethodPost:
		ah.createUser(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (ah *AuthHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := ah.db.GetAllUsers()
	if err != nil {
		http.Error(w, "Failed to fetch users", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"users": users,
		"count": len(users),
	})
}

func (ah *AuthHandlers) createUser(w http.ResponseWriter, r *http.Request) {
	var req models.UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	user, err := ah.db.CreateUser(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

func (ah *AuthHandlers) HandleUserByID(w http.ResponseWriter, r *http.Request, id int) {
	utils.LogHTTP("%s /users/%d", r.Method, id)
	switch r.Method {
	case http.MethodGet:
		user, err := ah.db.GetUserByID(id)
		if err != nil {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(user)

	case http.MethodPut:
		var req models.UserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		user, err := ah.db.UpdateUser(id, req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(user)

	case http.MethodDelete:
		if err := ah.db.DeleteUser(id); err != nil {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		ah.sessionStore.DeleteUserSessions(id)
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Invites (admin)
func (ah *AuthHandlers) HandleInvites(w http.ResponseWriter, r *http.Request) {
	utils.LogHTTP("%s /invites", r.Method)
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session := getSessionFromRequest(r, ah.sessionStore)
	if session == nil || !session.CanSendInvites() {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	var req models.InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Email) == "" {
		http.Error(w, "Email is required", http.StatusBadRequest)
		return
	}

	invite, err := ah.db.CreateInvite(req.Email, req.Role, session.UserID)
	if err != nil {
		http.Error(w, "Failed to create invite", http.StatusInternalServerError)
		return
	}

	subject, body := ah.emailService.BuildInviteEmail(invite, session.Username)
	if ah.jobManager != nil {
		if err := ah.jobManager.QueueInviteEmail(invite.Email, subject, body, session.UserID, invite.Token); err != nil {
			utils.LogError("Failed to queue invite email for %s: %v", invite.Email, err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(invite)
}
