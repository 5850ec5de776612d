package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"brand-archetype-api/models"
	"brand-archetype-api/utils"
)

func (db *DB) CreateAssessment(id string, userID int) (*models.Assessment, error) {
	utils.LogDB("Creating assessment %s for user %d", id, userID)

	_, err := db.Exec(`
		INSERT INTO assessments (id, user_id, status) VALUES (?, ?, ?)
	`, id, userID, models.AssessmentInProgress)

	if err != nil {
		utils.LogError("CreateAssessment(%s) failed: %v", id, err)
		return nil, err
	}

	return db.GetAssessment(id)
}

func (db *DB) GetAssessment(id string) (*models.Assessment, error) {
	utils.LogDB("Getting assessment %s", id)

	var a models.Assessment
	err := db.QueryRow(`
		SELECT id, user_id, status, started_at, completed_at
		FROM assessments WHERE id = ?
	`, id).Scan(&a.ID, &a.UserID, &a.Status, &a.StartedAt, &a.CompletedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			utils.LogDB("Assessment %s not found", id)
		} else {
			utils.LogError("GetAssessment(%s) failed: %v", id, err)
		}
		return nil, err
	}

	return &a, nil
}

func (db *DB) GetAssessmentsByUser(userID int) ([]models.Assessment, error) {
	utils.LogDB("Getting assessments for user %d", userID)
	start := time.Now()

	rows, err := db.Query(`
		SELECT id, user_id, status, started_at, completed_at
		FROM assessments WHERE user_id = ? ORDER BY started_at DESC
	`, userID)
	if err != nil {
		utils.LogError("GetAssessmentsByUser(%d) failed: %v", userID, err)
		return nil, err
	}
	defer rows.Close()

	var assessments []models.Assessment
	for rows.Next() {
		var a models.Assessment
		if err := rows.Scan(&a.ID, &a.UserID, &a.Status, &a.StartedAt, &a.CompletedAt); err != nil {
			utils.LogError("Failed to scan assessment row: %v", err)
			return nil, err
		}
		assessments = append(assessments, a)
	}

	duration := time.Since(start)
	utils.LogDB("GetAssessmentsByUser(%d) completed: %d assessments in %v", userID, len(assessments), duration)
	return assessments, nil
}

func (db *DB) SetAssessmentStatus(id string, status models.AssessmentStatus) error {
	utils.LogDB("Setting assessment %s status to %s", id, status)

	query := "UPDATE assessments SET status = ? WHERE id = ?"
	if status == models.AssessmentCompleted {
		query = "UPDATE assessments SET status = ?, completed_at = CURRENT_TIMESTAMP WHERE id = ?"
	}

	result, err := db.Exec(query, status, id)
	if err != nil {
		utils.LogError("SetAssessmentStatus(%s, %s) failed: %v", id, status, err)
		return err
	}

	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		utils.LogDB("SetAssessmentStatus(%s): no rows affected", id)
		return sql.ErrNoRows
	}

	return nil
}

// SaveSnapshot upserts the in-flight progress snapshot for an assessment.
// Implements the flow.PersistenceAdapter contract.
func (db *DB) SaveSnapshot(snapshot models.ProgressSnapshot) error {
	utils.LogDB("Saving snapshot for %s (index %d, %d responses)",
		snapshot.AssessmentID, snapshot.CurrentQuestionIndex, len(snapshot.Responses))
	start := time.Now()

	responsesJSON, err := json.Marshal(snapshot.Responses)
	if err != nil {
		utils.LogError("Failed to marshal responses for %s: %v", snapshot.AssessmentID, err)
		return err
	}

	_, err = db.Exec(`
		INSERT INTO assessment_snapshots (assessment_id, responses, current_question_index, saved_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(assessment_id) DO UPDATE SET
			responses = excluded.responses,
			current_question_index = excluded.current_question_index,
			saved_at = CURRENT_TIMESTAMP
	`, snapshot.AssessmentID, string(responsesJSON), snapshot.CurrentQuestionIndex)

	if err != nil {
		duration := time.Since(start)
		utils.LogError("SaveSnapshot(%s) failed: %v (%v)", snapshot.AssessmentID, err, duration)
		return err
	}

	duration := time.Since(start)
	utils.LogDB("Snapshot saved for %s in %v", snapshot.AssessmentID, duration)
	return nil
}

// LoadSnapshot returns the saved snapshot for an assessment, (nil, nil)
// when none exists. A snapshot whose responses column fails to decode is
// treated as absent rather than fatal: the session starts fresh.
func (db *DB) LoadSnapshot(assessmentID string) (*models.ProgressSnapshot, error) {
	utils.LogDB("Loading snapshot for %s", assessmentID)

	var snapshot models.ProgressSnapshot
	var responsesJSON string

	err := db.QueryRow(`
		SELECT assessment_id, responses, current_question_index, saved_at
		FROM assessment_snapshots WHERE assessment_id = ?
	`, assessmentID).Scan(&snapshot.AssessmentID, &responsesJSON,
		&snapshot.CurrentQuestionIndex, &snapshot.SavedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			utils.LogDB("No snapshot for %s", assessmentID)
			return nil, nil
		}
		utils.LogError("LoadSnapshot(%s) failed: %v", assessmentID, err)
		return nil, err
	}

	if err := json.Unmarshal([]byte(responsesJSON), &snapshot.Responses); err != nil {
		utils.LogError("Snapshot for %s is malformed, discarding: %v", assessmentID, err)
		return nil, nil
	}

	utils.LogDB("Snapshot loaded for %s: index %d, %d responses",
		assessmentID, snapshot.CurrentQuestionIndex, len(snapshot.Responses))
	return &snapshot, nil
}

// ClearSnapshot removes the snapshot after completion or abandonment.
func (db *DB) ClearSnapshot(assessmentID string) error {
	utils.LogDB("Clearing snapshot for %s", assessmentID)

	_, err := db.Exec("DELETE FROM assessment_snapshots WHERE assessment_id = ?", assessmentID)
	if err != nil {
		utils.LogError("ClearSnapshot(%s) failed: %v", assessmentID, err)
	}
	return err
}

func (db *DB) SaveResult(assessmentID string, result *models.AssessmentResult) error {
	utils.LogDB("Saving result for %s (primary %s)", assessmentID, result.Primary.Archetype)
	start := time.Now()

	scoresJSON, err := json.Marshal(result.AllScores)
	if err != nil {
		utils.LogError("Failed to marshal scores for %s: %v", assessmentID, err)
		return err
	}

	_, err = db.Exec(`
		INSERT INTO assessment_results (assessment_id, primary_archetype, secondary_archetype, scores, confidence)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(assessment_id) DO UPDATE SET
			primary_archetype = excluded.primary_archetype,
			secondary_archetype = excluded.secondary_archetype,
			scores = excluded.scores,
			confidence = excluded.confidence
	`, assessmentID, result.Primary.Archetype, result.Secondary.Archetype,
		string(scoresJSON), result.Confidence)

	if err != nil {
		duration := time.Since(start)
		utils.LogError("SaveResult(%s) failed: %v (%v)", assessmentID, err, duration)
		return err
	}

	duration := time.Since(start)
	utils.LogDB("Result saved for %s in %v", assessmentID, duration)
	return nil
}

func (db *DB) GetResult(assessmentID string) (*models.AssessmentResult, error) {
	utils.LogDB("Getting result for %s", assessmentID)

	var primaryName, secondaryName, scoresJSON string
	var confidence float64

	err := db.QueryRow(`
		SELECT primary_archetype, secondary_archetype, scores, confidence
		FROM assessment_results WHERE assessment_id = ?
	`, assessmentID).Scan(&primaryName, &secondaryName, &scoresJSON, &confidence)

	if err != nil {
		if err == sql.ErrNoRows {
			utils.LogDB("No result for %s", assessmentID)
		} else {
			utils.LogError("GetResult(%s) failed: %v", assessmentID, err)
		}
		return nil, err
	}

	var scores []models.ArchetypeScore
	if err := json.Unmarshal([]byte(scoresJSON), &scores); err != nil {
		utils.LogError("Result scores for %s are malformed: %v", assessmentID, err)
		return nil, err
	}

	result := &models.AssessmentResult{
		AllScores:  scores,
		Confidence: confidence,
	}
	for _, s := range scores {
		if s.Archetype == primaryName {
			result.Primary = s
		}
		if s.Archetype == secondaryName {
			result.Secondary = s
		}
	}

	return result, nil
}
