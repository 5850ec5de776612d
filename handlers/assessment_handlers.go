package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"brand-archetype-api/auth"
	"brand-archetype-api/catalog"
	"brand-archetype-api/db"
	"brand-archetype-api/flow"
	"brand-archetype-api/jobs"
	"brand-archetype-api/models"
	"brand-archetype-api/utils"
)

type AssessmentHandlers struct {
	db           *db.DB
	sessionStore *auth.SessionStore
	catalog      *catalog.Catalog
	flowManager  *flow.Manager
	emailService *auth.EmailService
	jobManager   *jobs.JobManager
}

func NewAssessmentHandlers(database *db.DB, sessionStore *auth.SessionStore, cat *catalog.Catalog,
	flowManager *flow.Manager, emailService *auth.EmailService, jobManager *jobs.JobManager) *AssessmentHandlers {
	return &AssessmentHandlers{
		db:           database,
		sessionStore: sessionStore,
		catalog:      cat,
		flowManager:  flowManager,
		emailService: emailService,
		jobManager:   jobManager,
	}
}

// assessmentState is the flow snapshot handed to the presentation layer.
type assessmentState struct {
	AssessmentID    string                   `json:"assessment_id"`
	State           flow.State               `json:"state"`
	CurrentIndex    int                      `json:"current_index"`
	CurrentSection  models.Section           `json:"current_section"`
	CurrentQuestion *models.Question         `json:"current_question,omitempty"`
	CanGoNext       bool                     `json:"can_go_next"`
	CanGoPrevious   bool                     `json:"can_go_previous"`
	SectionProgress []models.SectionProgress `json:"section_progress"`
	TotalQuestions  int                      `json:"total_questions"`
}

func (h *AssessmentHandlers) stateOf(assessmentID string, ctrl *flow.Controller) assessmentState {
	return assessmentState{
		AssessmentID:    assessmentID,
		State:           ctrl.State(),
		CurrentIndex:    ctrl.CurrentIndex(),
		CurrentSection:  ctrl.CurrentSection(),
		CurrentQuestion: ctrl.CurrentQuestion(),
		CanGoNext:       ctrl.CanGoNext(),
		CanGoPrevious:   ctrl.CanGoPrevious(),
		SectionProgress: ctrl.SectionProgress(),
		TotalQuestions:  h.catalog.Len(),
	}
}

func (h *AssessmentHandlers) HandleAssessments(w http.ResponseWriter, r *http.Request) {
	utils.LogHTTP("%s /assessments", r.Method)
	switch r.Method {
	case http.MethodPost:
		h.startAssessment(w, r)
	case http.MethodGet:
		h.listAssessments(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type startRequest struct {
	// Resume an earlier run by its identifier; empty starts a new one.
	AssessmentID string `json:"assessment_id,omitempty"`
}

func (h *AssessmentHandlers) startAssessment(w http.ResponseWriter, r *http.Request) {
	session := getSessionFromRequest(r, h.sessionStore)
	if session == nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req startRequest
	if r.Body != nil {
		// Body is optional; ignore decode errors for an empty body.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	var assessment *models.Assessment
	if req.AssessmentID != "" {
		existing, err := h.db.GetAssessment(req.AssessmentID)
		if err != nil {
			http.Error(w, "Assessment not found", http.StatusNotFound)
			return
		}
		if !session.CanViewAssessment(existing) {
			http.Error(w, "Insufficient permissions", http.StatusForbidden)
			return
		}
		if existing.Status != models.AssessmentInProgress {
			http.Error(w, "Assessment is not resumable", http.StatusConflict)
			return
		}
		assessment = existing
	} else {
		id := uuid.NewString()
		created, err := h.db.CreateAssessment(id, session.UserID)
		if err != nil {
			http.Error(w, "Failed to create assessment", http.StatusInternalServerError)
			return
		}
		assessment = created
	}

	ctrl := h.flowManager.Start(assessment.ID)
	h.wireCompletion(ctrl, assessment.ID, session.UserID)

	utils.LogHTTP("Assessment %s started for user %d (resumed at index %d)",
		assessment.ID, session.UserID, ctrl.CurrentIndex())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(h.stateOf(assessment.ID, ctrl))
}

// wireCompletion attaches the downstream side effects of scoring: persist
// the result, flip the assessment status, and queue the notification
// email. All of it is fire-and-forget from the flow's perspective.
func (h *AssessmentHandlers) wireCompletion(ctrl *flow.Controller, assessmentID string, userID int) {
	ctrl.SetCompletionCallback(func(result models.AssessmentResult) {
		if err := h.db.SaveResult(assessmentID, &result); err != nil {
			utils.LogError("Failed to persist result for %s: %v", assessmentID, err)
		}
		if err := h.db.SetAssessmentStatus(assessmentID, models.AssessmentCompleted); err != nil {
			utils.LogError("Failed to mark assessment %s completed: %v", assessmentID, err)
		}

		// The result is persisted; the live controller has nothing left to do.
		h.flowManager.Remove(assessmentID)

		user, err := h.db.GetUserByID(userID)
		if err != nil {
			utils.LogError("Failed to load user %d for result email: %v", userID, err)
			return
		}

		subject, body := h.emailService.BuildResultEmail(user, &result)
		if h.jobManager != nil {
			if err := h.jobManager.QueueResultEmail(user.Email, subject, body, assessmentID); err != nil {
				utils.LogError("Failed to queue result email for %s: %v", user.Email, err)
			}
		}
	})
}

func (h *AssessmentHandlers) listAssessments(w http.ResponseWriter, r *http.Request) {
	session := getSessionFromRequest(r, h.sessionStore)
	if session == nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	assessments, err := h.db.GetAssessmentsByUser(session.UserID)
	if err != nil {
		http.Error(w, "Failed to fetch assessments", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"assessments": assessments,
		"count":       len(assessments),
	})
}

// HandleAssessmentPath routes /assessments/{id} and its sub-resources.
func (h *AssessmentHandlers) HandleAssessmentPath(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/assessments/")
	parts := strings.Split(path, "/")

	assessmentID := parts[0]
	if assessmentID == "" {
		http.Error(w, "Missing assessment ID", http.StatusBadRequest)
		return
	}

	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}
	utils.LogHTTP("%s /assessments/%s/%s", r.Method, assessmentID, action)

	session := getSessionFromRequest(r, h.sessionStore)
	if session == nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	assessment, err := h.db.GetAssessment(assessmentID)
	if err != nil {
		http.Error(w, "Assessment not found", http.StatusNotFound)
		return
	}
	if !session.CanViewAssessment(assessment) {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	switch action {
	case "":
		h.getState(w, r, assessment)
	case "answers":
		h.recordAnswer(w, r, assessment, session)
	case "next":
		h.advance(w, r, assessment)
	case "previous":
		h.retreat(w, r, assessment)
	case "save":
		h.save(w, r, assessment)
	case "result":
		h.getResult(w, r, assessment)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// liveController returns the in-memory controller, rebuilding it from the
// persisted snapshot when the process restarted mid-assessment.
func (h *AssessmentHandlers) liveController(assessment *models.Assessment) *flow.Controller {
	if ctrl, ok := h.flowManager.Get(assessment.ID); ok {
		return ctrl
	}
	ctrl := h.flowManager.Start(assessment.ID)
	h.wireCompletion(ctrl, assessment.ID, assessment.UserID)
	return ctrl
}

func (h *AssessmentHandlers) getState(w http.ResponseWriter, r *http.Request, assessment *models.Assessment) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctrl := h.liveController(assessment)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.stateOf(assessment.ID, ctrl))
}

func (h *AssessmentHandlers) recordAnswer(w http.ResponseWriter, r *http.Request, assessment *models.Assessment, session *models.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.LogHTTP("Invalid JSON in answer request: %v", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	question, ok := h.catalog.ByID(req.QuestionID)
	if !ok {
		http.Error(w, "Unknown question", http.StatusBadRequest)
		return
	}

	response, err := models.NormalizeAnswer(question, req)
	if err != nil {
		if errors.Is(err, models.ErrUnknownFormat) {
			// Catalog/schema mismatch, not user error.
			utils.LogError("Unrenderable question %s: %v", question.ID, err)
			http.Error(w, "Question format not supported", http.StatusInternalServerError)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctrl := h.liveController(assessment)
	if err := ctrl.RecordResponse(response); err != nil {
		if errors.Is(err, flow.ErrNotAnswering) {
			http.Error(w, "Assessment already submitted", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	utils.LogHTTP("Answer recorded for %s question %s (user %d)", assessment.ID, question.ID, session.UserID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.stateOf(assessment.ID, ctrl))
}

func (h *AssessmentHandlers) advance(w http.ResponseWriter, r *http.Request, assessment *models.Assessment) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctrl := h.liveController(assessment)
	moved := ctrl.Advance()

	state := h.stateOf(assessment.ID, ctrl)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"moved": moved,
		"state": state,
	})
}

func (h *AssessmentHandlers) retreat(w http.ResponseWriter, r *http.Request, assessment *models.Assessment) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctrl := h.liveController(assessment)
	moved := ctrl.Retreat()

	state := h.stateOf(assessment.ID, ctrl)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"moved": moved,
		"state": state,
	})
}

func (h *AssessmentHandlers) save(w http.ResponseWriter, r *http.Request, assessment *models.Assessment) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctrl := h.liveController(assessment)
	if err := ctrl.Save(); err != nil {
		http.Error(w, "Failed to save progress", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.stateOf(assessment.ID, ctrl))
}

func (h *AssessmentHandlers) getResult(w http.ResponseWriter, r *http.Request, assessment *models.Assessment) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Prefer the live controller's result; fall back to the persisted one
	// for assessments completed before a restart.
	if ctrl, ok := h.flowManager.Get(assessment.ID); ok {
		if result := ctrl.Result(); result != nil {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(result)
			return
		}
	}

	result, err := h.db.GetResult(assessment.ID)
	if err != nil {
		http.Error(w, "Result not available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
