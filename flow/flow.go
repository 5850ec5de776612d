// Package flow drives one assessment session: it walks the catalog in
// section order, holds the response store, decides navigation legality,
// schedules auto-advance, and hands the completed response set to the
// scoring engine. All state mutation happens under one lock, triggered by
// one event at a time; the auto-advance and completion timers are the only
// deferred work and both re-check state before acting.
package flow

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"brand-archetype-api/catalog"
	"brand-archetype-api/models"
	"brand-archetype-api/scoring"
	"brand-archetype-api/utils"
)

var (
	// ErrUnknownQuestion marks a response whose question id is not in the
	// catalog. This is a programmer/catalog error, not user input.
	ErrUnknownQuestion = errors.New("response references a question not in the catalog")

	// ErrNotAnswering rejects answers and navigation once submission has
	// started or the assessment has completed.
	ErrNotAnswering = errors.New("assessment is no longer accepting answers")
)

// PersistenceAdapter is the external progress store, keyed by assessment
// identifier. Load returns (nil, nil) when no snapshot exists.
type PersistenceAdapter interface {
	SaveSnapshot(snapshot models.ProgressSnapshot) error
	LoadSnapshot(assessmentID string) (*models.ProgressSnapshot, error)
	ClearSnapshot(assessmentID string) error
}

// ProgressFunc is notified with the full updated response store and current
// index after every recorded answer.
type ProgressFunc func(snapshot models.ProgressSnapshot)

// ResultFunc receives the assessment result once scoring finishes.
type ResultFunc func(result models.AssessmentResult)

// State is the controller's lifecycle phase.
type State string

const (
	StateAnswering  State = "answering"
	StateSubmitting State = "submitting"
	StateCompleted  State = "completed"
)

// Config carries the controller's timing knobs. Tests inject short delays.
type Config struct {
	AutoAdvanceDelay   time.Duration
	MinProcessingDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		AutoAdvanceDelay:   800 * time.Millisecond,
		MinProcessingDelay: 1000 * time.Millisecond,
	}
}

// Controller is the per-assessment flow state machine.
type Controller struct {
	mu sync.Mutex

	assessmentID string
	cat          *catalog.Catalog
	cfg          Config
	store        PersistenceAdapter // optional; nil disables external saves

	responses    map[string]models.Response
	currentIndex int
	state        State
	result       *models.AssessmentResult

	onProgress ProgressFunc
	onComplete ResultFunc

	autoTimer *time.Timer
	timerSeq  uint64
}

// NewController builds a fresh session. store may be nil when the session
// has nothing to persist to (no assessment identifier means no snapshots).
func NewController(assessmentID string, cat *catalog.Catalog, cfg Config, store PersistenceAdapter) *Controller {
	return &Controller{
		assessmentID: assessmentID,
		cat:          cat,
		cfg:          cfg,
		store:        store,
		responses:    make(map[string]models.Response),
		state:        StateAnswering,
	}
}

// SetProgressCallback registers the owning session's progress listener.
func (c *Controller) SetProgressCallback(fn ProgressFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onProgress = fn
}

// SetCompletionCallback registers the result listener.
func (c *Controller) SetCompletionCallback(fn ResultFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onComplete = fn
}

// Resume restores a saved snapshot. A malformed snapshot (bad index,
// unknown question, invalid value) is discarded and the session starts
// fresh rather than failing.
func (c *Controller) Resume(snapshot *models.ProgressSnapshot) {
	if snapshot == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if snapshot.CurrentQuestionIndex < 0 || snapshot.CurrentQuestionIndex >= c.cat.Len() {
		utils.LogFlow("Discarding snapshot for %s: index %d out of range", c.assessmentID, snapshot.CurrentQuestionIndex)
		return
	}

	restored := make(map[string]models.Response, len(snapshot.Responses))
	for _, resp := range snapshot.Responses {
		q, ok := c.cat.ByID(resp.QuestionID)
		if !ok {
			utils.LogFlow("Discarding snapshot for %s: unknown question %s", c.assessmentID, resp.QuestionID)
			return
		}
		if err := models.ValidateAnswerValue(q, resp.Value); err != nil {
			utils.LogFlow("Discarding snapshot for %s: %v", c.assessmentID, err)
			return
		}
		restored[resp.QuestionID] = resp
	}

	c.responses = restored
	c.currentIndex = snapshot.CurrentQuestionIndex
	utils.LogFlow("Resumed assessment %s at index %d with %d responses",
		c.assessmentID, c.currentIndex, len(c.responses))
}

// RecordResponse inserts or replaces the response for its question id,
// fires the progress notification, saves a snapshot when a store is
// attached, and schedules auto-advance for single-click formats.
func (c *Controller) RecordResponse(resp models.Response) error {
	c.mu.Lock()

	if c.state != StateAnswering {
		c.mu.Unlock()
		return ErrNotAnswering
	}

	q, ok := c.cat.ByID(resp.QuestionID)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, resp.QuestionID)
	}
	if err := models.ValidateAnswerValue(q, resp.Value); err != nil {
		c.mu.Unlock()
		return err
	}

	c.responses[resp.QuestionID] = resp

	// Only an answer to the question on screen arms the timer.
	if autoAdvances(q.Format) && c.cat.IndexOf(q.ID) == c.currentIndex {
		c.scheduleAutoAdvance(q.ID)
	}

	snapshot := c.snapshotLocked()
	onProgress := c.onProgress
	store := c.store
	c.mu.Unlock()

	if onProgress != nil {
		onProgress(snapshot)
	}

	// Fire-and-forget: the in-memory session stays authoritative even when
	// the external save fails.
	if store != nil {
		go func() {
			if err := store.SaveSnapshot(snapshot); err != nil {
				utils.LogError("Failed to save progress for %s: %v", snapshot.AssessmentID, err)
			}
		}()
	}

	return nil
}

// Advance moves forward one question when the current one is answered; at
// the last question it triggers completion instead. Illegal requests are
// no-ops and return false.
func (c *Controller) Advance() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.advanceLocked()
}

func (c *Controller) advanceLocked() bool {
	if c.state != StateAnswering || !c.canGoNextLocked() {
		return false
	}

	c.cancelAutoAdvanceLocked()

	if c.currentIndex == c.cat.Len()-1 {
		c.beginCompletionLocked()
		return true
	}

	c.currentIndex++
	utils.LogFlow("Assessment %s advanced to index %d", c.assessmentID, c.currentIndex)
	return true
}

// Retreat moves back one question. No answer requirement; a no-op at the
// first question or once submission has started.
func (c *Controller) Retreat() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAnswering || c.currentIndex == 0 {
		return false
	}

	c.cancelAutoAdvanceLocked()
	c.currentIndex--
	utils.LogFlow("Assessment %s retreated to index %d", c.assessmentID, c.currentIndex)
	return true
}

// Save writes an explicit snapshot (the "save and exit" path).
func (c *Controller) Save() error {
	c.mu.Lock()
	snapshot := c.snapshotLocked()
	store := c.store
	c.mu.Unlock()

	if store == nil {
		return nil
	}
	if err := store.SaveSnapshot(snapshot); err != nil {
		utils.LogError("Explicit save failed for %s: %v", snapshot.AssessmentID, err)
		return err
	}
	utils.LogFlow("Saved assessment %s at index %d (%d responses)",
		snapshot.AssessmentID, snapshot.CurrentQuestionIndex, len(snapshot.Responses))
	return nil
}

func (c *Controller) CanGoNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateAnswering && c.canGoNextLocked()
}

func (c *Controller) CanGoPrevious() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateAnswering && c.currentIndex > 0
}

func (c *Controller) canGoNextLocked() bool {
	q, ok := c.cat.QuestionAt(c.currentIndex)
	if !ok {
		return false
	}
	resp, answered := c.responses[q.ID]
	return answered && !resp.Value.IsEmpty()
}

func (c *Controller) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentIndex
}

// CurrentQuestion returns the question at the current position.
func (c *Controller) CurrentQuestion() *models.Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, _ := c.cat.QuestionAt(c.currentIndex)
	return q
}

// CurrentSection is derived from the index against section boundaries,
// never stored independently.
func (c *Controller) CurrentSection() models.Section {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cat.SectionAt(c.currentIndex)
}

// SectionProgress reports (answered, total) for each of the three sections.
func (c *Controller) SectionProgress() []models.SectionProgress {
	c.mu.Lock()
	defer c.mu.Unlock()

	answered := make(map[models.Section]int, 3)
	for _, q := range c.cat.Questions() {
		if resp, ok := c.responses[q.ID]; ok && !resp.Value.IsEmpty() {
			answered[q.Section]++
		}
	}

	progress := make([]models.SectionProgress, 0, 3)
	for _, section := range models.SectionOrder() {
		progress = append(progress, models.SectionProgress{
			Section:  section,
			Answered: answered[section],
			Total:    c.cat.Total(section),
		})
	}
	return progress
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Result returns the scored result, or nil until completion finishes.
func (c *Controller) Result() *models.AssessmentResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Responses returns the response store in catalog order.
func (c *Controller) Responses() []models.Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.responsesLocked()
}

func (c *Controller) responsesLocked() []models.Response {
	out := make([]models.Response, 0, len(c.responses))
	for _, q := range c.cat.Questions() {
		if resp, ok := c.responses[q.ID]; ok {
			out = append(out, resp)
		}
	}
	return out
}

func (c *Controller) snapshotLocked() models.ProgressSnapshot {
	return models.ProgressSnapshot{
		AssessmentID:         c.assessmentID,
		Responses:            c.responsesLocked(),
		CurrentQuestionIndex: c.currentIndex,
		SavedAt:              time.Now().UTC(),
	}
}

// autoAdvances reports whether a format advances automatically after a
// short delay once answered.
func autoAdvances(format models.QuestionFormat) bool {
	return format == models.FormatForcedChoice || format == models.FormatWordChoice
}

// scheduleAutoAdvance arms the debounced auto-advance timer. Only the most
// recent schedule fires: re-answering or navigating bumps the sequence
// number, and the stale callback bails out.
func (c *Controller) scheduleAutoAdvance(questionID string) {
	c.cancelAutoAdvanceLocked()

	c.timerSeq++
	seq := c.timerSeq

	c.autoTimer = time.AfterFunc(c.cfg.AutoAdvanceDelay, func() {
		c.fireAutoAdvance(seq, questionID)
	})
}

func (c *Controller) fireAutoAdvance(seq uint64, questionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.timerSeq || c.state != StateAnswering {
		return
	}
	current, ok := c.cat.QuestionAt(c.currentIndex)
	if !ok || current.ID != questionID {
		return
	}

	utils.LogFlow("Auto-advancing assessment %s from %s", c.assessmentID, questionID)
	c.advanceLocked()
}

func (c *Controller) cancelAutoAdvanceLocked() {
	c.timerSeq++
	if c.autoTimer != nil {
		c.autoTimer.Stop()
		c.autoTimer = nil
	}
}

// beginCompletionLocked enters the submitting state. The minimum processing
// delay keeps the transition from feeling instant; the state guard makes
// repeated completion triggers no-ops while submission is in flight.
func (c *Controller) beginCompletionLocked() {
	c.state = StateSubmitting
	utils.LogFlow("Assessment %s submitting, scoring in %v", c.assessmentID, c.cfg.MinProcessingDelay)

	time.AfterFunc(c.cfg.MinProcessingDelay, c.finalize)
}

func (c *Controller) finalize() {
	c.mu.Lock()

	if c.state != StateSubmitting {
		c.mu.Unlock()
		return
	}

	result, err := scoring.Score(c.responsesLocked(), c.cat)
	if err != nil {
		// Only invariant violations reach here; reopen the session so the
		// user is not stranded.
		utils.LogError("Scoring failed for %s: %v", c.assessmentID, err)
		c.state = StateAnswering
		c.mu.Unlock()
		return
	}

	c.state = StateCompleted
	c.result = result
	onComplete := c.onComplete
	store := c.store
	assessmentID := c.assessmentID
	c.mu.Unlock()

	if store != nil {
		if err := store.ClearSnapshot(assessmentID); err != nil {
			utils.LogError("Failed to clear snapshot for %s: %v", assessmentID, err)
		}
	}

	utils.LogFlow("Assessment %s completed: primary=%s confidence=%.1f",
		assessmentID, result.Primary.Archetype, result.Confidence)

	if onComplete != nil {
		onComplete(*result)
	}
}
