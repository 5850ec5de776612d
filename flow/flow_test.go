package flow

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-archetype-api/catalog"
	"brand-archetype-api/models"
)

// testCatalog builds a 3 broad + 2 clarifier + 1 validator catalog covering
// the format variety the controller cares about.
func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	cat, err := catalog.New([]models.Question{
		{
			ID: "b1", Section: models.SectionBroad, Format: models.FormatForcedChoice,
			Prompt: "First instinct?",
			Options: []models.Option{
				{Label: "Lead the charge", Weights: map[string]float64{"Hero": 2}},
				{Label: "Study the map", Weights: map[string]float64{"Sage": 2}},
			},
		},
		{
			ID: "b2", Section: models.SectionBroad, Format: models.FormatSlider,
			Prompt: "Tradition or novelty?",
			Options: []models.Option{
				{Label: "Tradition", Weights: map[string]float64{"Ruler": 2}},
				{Label: "Novelty", Weights: map[string]float64{"Explorer": 2}},
			},
		},
		{
			ID: "b3", Section: models.SectionBroad, Format: models.FormatWordChoice,
			Prompt: "One word.",
			Options: []models.Option{
				{Label: "Bold", Weights: map[string]float64{"Hero": 2}},
				{Label: "Wise", Weights: map[string]float64{"Sage": 2}},
			},
		},
		{
			ID: "c1", Section: models.SectionClarifier, Format: models.FormatScenario,
			Prompt: "A rival attacks. You:",
			Options: []models.Option{
				{Label: "Break their rules", Weights: map[string]float64{"Outlaw": 2}},
				{Label: "Shield your people", Weights: map[string]float64{"Caregiver": 2}},
			},
		},
		{
			ID: "c2", Section: models.SectionClarifier, Format: models.FormatRanking,
			Prompt: "Rank these.",
			Options: []models.Option{
				{Label: "Freedom", Weights: map[string]float64{"Explorer": 2}},
				{Label: "Order", Weights: map[string]float64{"Ruler": 2}},
			},
		},
		{
			ID: "v1", Section: models.SectionValidator, Format: models.FormatWordChoiceMulti,
			Prompt: "All that resonate.",
			Options: []models.Option{
				{Label: "Warm", Weights: map[string]float64{"Lover": 1}},
				{Label: "Sharp", Weights: map[string]float64{"Sage": 1}},
			},
		},
	})
	require.NoError(t, err)
	return cat
}

// slowConfig keeps the timers from firing during navigation-only tests.
func slowConfig() Config {
	return Config{
		AutoAdvanceDelay:   time.Hour,
		MinProcessingDelay: 10 * time.Millisecond,
	}
}

func fastConfig() Config {
	return Config{
		AutoAdvanceDelay:   20 * time.Millisecond,
		MinProcessingDelay: 10 * time.Millisecond,
	}
}

// answerFor produces a valid answer for any test question.
func answerFor(q *models.Question) models.AnswerValue {
	switch q.Format {
	case models.FormatSlider:
		return models.AnswerValue{Scale: 5}
	case models.FormatWordChoiceMulti:
		return models.AnswerValue{Options: []string{q.Options[0].Label}}
	case models.FormatRanking:
		labels := make([]string, len(q.Options))
		for i, opt := range q.Options {
			labels[i] = opt.Label
		}
		return models.AnswerValue{Options: labels}
	default:
		return models.AnswerValue{Option: q.Options[0].Label}
	}
}

func respond(t *testing.T, ctrl *Controller, q *models.Question) {
	t.Helper()
	require.NotNil(t, q)
	err := ctrl.RecordResponse(models.Response{
		QuestionID: q.ID,
		Value:      answerFor(q),
		AnsweredAt: time.Now().UTC(),
	})
	require.NoError(t, err)
}

// fakeStore is an in-memory persistence adapter with injectable failures.
type fakeStore struct {
	mu        sync.Mutex
	snapshots map[string]models.ProgressSnapshot
	saveErr   error
	loadErr   error
	cleared   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{snapshots: make(map[string]models.ProgressSnapshot)}
}

func (f *fakeStore) SaveSnapshot(snapshot models.ProgressSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.snapshots[snapshot.AssessmentID] = snapshot
	return nil
}

func (f *fakeStore) LoadSnapshot(assessmentID string) (*models.ProgressSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	snapshot, ok := f.snapshots[assessmentID]
	if !ok {
		return nil, nil
	}
	return &snapshot, nil
}

func (f *fakeStore) ClearSnapshot(assessmentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.snapshots, assessmentID)
	f.cleared = append(f.cleared, assessmentID)
	return nil
}

func (f *fakeStore) clearedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cleared...)
}

func TestRecordResponseIdempotent(t *testing.T) {
	cat := testCatalog(t)
	ctrl := NewController("a-1", cat, slowConfig(), nil)

	q, _ := cat.QuestionAt(0)
	value := answerFor(q)

	for i := 0; i < 2; i++ {
		err := ctrl.RecordResponse(models.Response{QuestionID: q.ID, Value: value, AnsweredAt: time.Now().UTC()})
		require.NoError(t, err)
	}

	responses := ctrl.Responses()
	require.Len(t, responses, 1)
	assert.Equal(t, q.ID, responses[0].QuestionID)
	assert.True(t, responses[0].Value.Equal(value))
}

func TestRecordResponseUnknownQuestion(t *testing.T) {
	ctrl := NewController("a-1", testCatalog(t), slowConfig(), nil)

	err := ctrl.RecordResponse(models.Response{
		QuestionID: "nope",
		Value:      models.AnswerValue{Option: "x"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownQuestion))
}

func TestAdvanceRequiresAnswer(t *testing.T) {
	cat := testCatalog(t)
	ctrl := NewController("a-1", cat, slowConfig(), nil)

	assert.False(t, ctrl.CanGoNext())
	assert.False(t, ctrl.Advance())
	assert.Equal(t, 0, ctrl.CurrentIndex())

	q, _ := cat.QuestionAt(0)
	respond(t, ctrl, q)

	assert.True(t, ctrl.CanGoNext())
	assert.True(t, ctrl.Advance())
	assert.Equal(t, 1, ctrl.CurrentIndex())
}

func TestRetreatAtStartIsNoOp(t *testing.T) {
	ctrl := NewController("a-1", testCatalog(t), slowConfig(), nil)

	assert.False(t, ctrl.CanGoPrevious())
	assert.False(t, ctrl.Retreat())
	assert.Equal(t, 0, ctrl.CurrentIndex())
}

func TestRetreatNeedsNoAnswer(t *testing.T) {
	cat := testCatalog(t)
	ctrl := NewController("a-1", cat, slowConfig(), nil)

	q, _ := cat.QuestionAt(0)
	respond(t, ctrl, q)
	require.True(t, ctrl.Advance())

	// No answer at index 1, retreating is still legal.
	assert.True(t, ctrl.Retreat())
	assert.Equal(t, 0, ctrl.CurrentIndex())
}

func TestSectionProgressScenario(t *testing.T) {
	cat := testCatalog(t)
	ctrl := NewController("a-1", cat, slowConfig(), nil)

	// Answer the first four questions in order.
	for i := 0; i < 4; i++ {
		q, _ := cat.QuestionAt(i)
		respond(t, ctrl, q)
		if i < 3 {
			require.True(t, ctrl.Advance())
		}
	}

	progress := ctrl.SectionProgress()
	require.Len(t, progress, 3)
	assert.Equal(t, models.SectionProgress{Section: models.SectionBroad, Answered: 3, Total: 3}, progress[0])
	assert.Equal(t, models.SectionProgress{Section: models.SectionClarifier, Answered: 1, Total: 2}, progress[1])
	assert.Equal(t, models.SectionProgress{Section: models.SectionValidator, Answered: 0, Total: 1}, progress[2])

	assert.Equal(t, models.SectionClarifier, ctrl.CurrentSection())
}

func TestAutoAdvanceForcedChoice(t *testing.T) {
	cat := testCatalog(t)
	ctrl := NewController("a-1", cat, fastConfig(), nil)

	q, _ := cat.QuestionAt(0) // forced_choice
	respond(t, ctrl, q)

	require.Eventually(t, func() bool {
		return ctrl.CurrentIndex() == 1
	}, time.Second, 5*time.Millisecond, "forced choice should auto-advance")
}

func TestNoAutoAdvanceForSlider(t *testing.T) {
	cat := testCatalog(t)
	ctrl := NewController("a-1", cat, fastConfig(), nil)

	q0, _ := cat.QuestionAt(0)
	respond(t, ctrl, q0)
	require.Eventually(t, func() bool { return ctrl.CurrentIndex() == 1 }, time.Second, 5*time.Millisecond)

	q1, _ := cat.QuestionAt(1) // slider
	respond(t, ctrl, q1)

	time.Sleep(4 * fastConfig().AutoAdvanceDelay)
	assert.Equal(t, 1, ctrl.CurrentIndex(), "slider answers never auto-advance")
}

func TestNoAutoAdvanceForNonCurrentQuestion(t *testing.T) {
	cat := testCatalog(t)
	ctrl := NewController("a-1", cat, fastConfig(), nil)

	// b3 is a word choice, but the controller still sits on b1.
	q, _ := cat.QuestionAt(2)
	respond(t, ctrl, q)

	time.Sleep(4 * fastConfig().AutoAdvanceDelay)
	assert.Equal(t, 0, ctrl.CurrentIndex(), "only the on-screen question arms the timer")
}

func TestAutoAdvanceDebounced(t *testing.T) {
	cat := testCatalog(t)
	ctrl := NewController("a-1", cat, fastConfig(), nil)

	q, _ := cat.QuestionAt(0)

	// Re-answer quickly: only the latest schedule may fire, once.
	respond(t, ctrl, q)
	respond(t, ctrl, q)
	respond(t, ctrl, q)

	require.Eventually(t, func() bool {
		return ctrl.CurrentIndex() == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(4 * fastConfig().AutoAdvanceDelay)
	assert.Equal(t, 1, ctrl.CurrentIndex(), "debounced timer must fire exactly once")
}

func TestManualAdvanceCancelsAutoAdvance(t *testing.T) {
	cat := testCatalog(t)
	ctrl := NewController("a-1", cat, fastConfig(), nil)

	q, _ := cat.QuestionAt(0)
	respond(t, ctrl, q)
	require.True(t, ctrl.Advance())

	time.Sleep(4 * fastConfig().AutoAdvanceDelay)
	assert.Equal(t, 1, ctrl.CurrentIndex(), "manual advance must cancel the pending timer")
}

func completeAll(t *testing.T, ctrl *Controller, cat *catalog.Catalog) {
	t.Helper()
	for i := 0; i < cat.Len(); i++ {
		q, _ := cat.QuestionAt(i)
		respond(t, ctrl, q)
		require.True(t, ctrl.Advance())
	}
}

func TestCompletionOnFinalAdvance(t *testing.T) {
	cat := testCatalog(t)
	store := newFakeStore()
	// A longer processing delay leaves room to observe the submitting state.
	cfg := Config{AutoAdvanceDelay: time.Hour, MinProcessingDelay: 150 * time.Millisecond}
	ctrl := NewController("a-1", cat, cfg, store)

	var mu sync.Mutex
	var received *models.AssessmentResult
	ctrl.SetCompletionCallback(func(result models.AssessmentResult) {
		mu.Lock()
		defer mu.Unlock()
		received = &result
	})

	completeAll(t, ctrl, cat)

	// Submitting state blocks everything until scoring lands.
	assert.Equal(t, StateSubmitting, ctrl.State())
	assert.Nil(t, ctrl.Result())
	assert.False(t, ctrl.Advance())
	assert.False(t, ctrl.Retreat())
	assert.False(t, ctrl.CanGoNext())

	q, _ := cat.QuestionAt(0)
	err := ctrl.RecordResponse(models.Response{QuestionID: q.ID, Value: answerFor(q)})
	assert.True(t, errors.Is(err, ErrNotAnswering))

	require.Eventually(t, func() bool {
		return ctrl.State() == StateCompleted
	}, time.Second, 5*time.Millisecond)

	result := ctrl.Result()
	require.NotNil(t, result)
	assert.NotEmpty(t, result.Primary.Archetype)
	assert.Len(t, result.AllScores, 12)

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, received, "completion callback must fire")
	assert.Equal(t, result.Primary.Archetype, received.Primary.Archetype)

	assert.Contains(t, store.clearedIDs(), "a-1", "completion must clear the snapshot")
}

func TestAdvancePastEndStaysInRange(t *testing.T) {
	cat := testCatalog(t)
	ctrl := NewController("a-1", cat, slowConfig(), nil)

	completeAll(t, ctrl, cat)

	// Never an out-of-range index, even while submitting.
	assert.Equal(t, cat.Len()-1, ctrl.CurrentIndex())
	assert.False(t, ctrl.Advance())
	assert.Equal(t, cat.Len()-1, ctrl.CurrentIndex())
}

func TestSaveAndResume(t *testing.T) {
	cat := testCatalog(t)
	store := newFakeStore()
	ctrl := NewController("a-1", cat, slowConfig(), store)

	for i := 0; i < 4; i++ {
		q, _ := cat.QuestionAt(i)
		respond(t, ctrl, q)
		require.True(t, ctrl.Advance())
	}
	require.Equal(t, 4, ctrl.CurrentIndex())
	require.NoError(t, ctrl.Save())

	snapshot, err := store.LoadSnapshot("a-1")
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	resumed := NewController("a-1", cat, slowConfig(), store)
	resumed.Resume(snapshot)

	assert.Equal(t, 4, resumed.CurrentIndex())
	assert.Len(t, resumed.Responses(), 4)
	assert.Equal(t, models.SectionClarifier, resumed.CurrentSection())
}

func TestMalformedSnapshotDiscarded(t *testing.T) {
	cat := testCatalog(t)

	tests := []struct {
		name     string
		snapshot *models.ProgressSnapshot
	}{
		{
			name: "index out of range",
			snapshot: &models.ProgressSnapshot{
				AssessmentID:         "a-1",
				CurrentQuestionIndex: 99,
			},
		},
		{
			name: "unknown question",
			snapshot: &models.ProgressSnapshot{
				AssessmentID: "a-1",
				Responses: []models.Response{
					{QuestionID: "ghost", Value: models.AnswerValue{Option: "x"}},
				},
				CurrentQuestionIndex: 1,
			},
		},
		{
			name: "invalid value shape",
			snapshot: &models.ProgressSnapshot{
				AssessmentID: "a-1",
				Responses: []models.Response{
					{QuestionID: "b2", Value: models.AnswerValue{Scale: 42}},
				},
				CurrentQuestionIndex: 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewController("a-1", cat, slowConfig(), nil)
			ctrl.Resume(tt.snapshot)

			assert.Equal(t, 0, ctrl.CurrentIndex())
			assert.Empty(t, ctrl.Responses())
			assert.Equal(t, StateAnswering, ctrl.State())
		})
	}
}

func TestPersistenceFailureDoesNotInterrupt(t *testing.T) {
	cat := testCatalog(t)
	store := newFakeStore()
	store.saveErr = fmt.Errorf("disk on fire")
	ctrl := NewController("a-1", cat, slowConfig(), store)

	q, _ := cat.QuestionAt(0)
	respond(t, ctrl, q) // save fails in the background, answer still lands

	assert.Len(t, ctrl.Responses(), 1)
	assert.True(t, ctrl.Advance())
}

func TestProgressCallbackFiresWithoutStore(t *testing.T) {
	cat := testCatalog(t)
	ctrl := NewController("a-1", cat, slowConfig(), nil)

	var mu sync.Mutex
	var got *models.ProgressSnapshot
	ctrl.SetProgressCallback(func(snapshot models.ProgressSnapshot) {
		mu.Lock()
		defer mu.Unlock()
		got = &snapshot
	})

	q, _ := cat.QuestionAt(0)
	respond(t, ctrl, q)

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, got, "progress notification fires even with no adapter")
	assert.Equal(t, "a-1", got.AssessmentID)
	assert.Len(t, got.Responses, 1)
	assert.Equal(t, 0, got.CurrentQuestionIndex)
}

func TestManagerResumesFromStore(t *testing.T) {
	cat := testCatalog(t)
	store := newFakeStore()

	first := NewController("a-1", cat, slowConfig(), store)
	q, _ := cat.QuestionAt(0)
	respond(t, first, q)
	require.True(t, first.Advance())
	require.NoError(t, first.Save())

	mgr := NewManager(cat, slowConfig(), store)
	ctrl := mgr.Start("a-1")
	assert.Equal(t, 1, ctrl.CurrentIndex())
	assert.Len(t, ctrl.Responses(), 1)

	again := mgr.Start("a-1")
	assert.Same(t, ctrl, again, "Start must return the live controller")

	mgr.Remove("a-1")
	_, ok := mgr.Get("a-1")
	assert.False(t, ok)
}

func TestManagerLoadFailureStartsFresh(t *testing.T) {
	cat := testCatalog(t)
	store := newFakeStore()
	store.loadErr = fmt.Errorf("backend down")

	mgr := NewManager(cat, slowConfig(), store)
	ctrl := mgr.Start("a-1")

	assert.Equal(t, 0, ctrl.CurrentIndex())
	assert.Empty(t, ctrl.Responses())
}
