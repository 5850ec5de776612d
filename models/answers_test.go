package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sliderQuestion() *Question {
	return &Question{
		ID: "q-slider", Section: SectionBroad, Format: FormatSlider,
		Options: []Option{
			{Label: "Low", Weights: map[string]float64{"Ruler": 1}},
			{Label: "High", Weights: map[string]float64{"Explorer": 1}},
		},
	}
}

func choiceQuestion(format QuestionFormat) *Question {
	return &Question{
		ID: "q-choice", Section: SectionBroad, Format: format,
		Options: []Option{
			{Label: "Alpha", Weights: map[string]float64{"Hero": 1}},
			{Label: "Beta", Weights: map[string]float64{"Sage": 1}},
			{Label: "Gamma", Weights: map[string]float64{"Jester": 1}},
		},
	}
}

func intPtr(v int) *int { return &v }

func TestNormalizeSliderAnswer(t *testing.T) {
	q := sliderQuestion()

	resp, err := NormalizeAnswer(q, AnswerRequest{QuestionID: q.ID, Scale: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, q.ID, resp.QuestionID)
	assert.Equal(t, 5, resp.Value.Scale)
	assert.False(t, resp.AnsweredAt.IsZero())

	_, err = NormalizeAnswer(q, AnswerRequest{QuestionID: q.ID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a scale value")

	for _, bad := range []int{0, 8, -3} {
		_, err := NormalizeAnswer(q, AnswerRequest{QuestionID: q.ID, Scale: intPtr(bad)})
		require.Error(t, err, "scale %d must be rejected", bad)
		assert.Contains(t, err.Error(), "out of range")
	}
}

func TestNormalizeSingleChoiceAnswer(t *testing.T) {
	for _, format := range []QuestionFormat{
		FormatForcedChoice, FormatScenario, FormatImageChoice, FormatWordChoice, FormatStoryCompletion,
	} {
		t.Run(string(format), func(t *testing.T) {
			q := choiceQuestion(format)

			resp, err := NormalizeAnswer(q, AnswerRequest{QuestionID: q.ID, Option: "Beta"})
			require.NoError(t, err)
			assert.Equal(t, "Beta", resp.Value.Option)

			_, err = NormalizeAnswer(q, AnswerRequest{QuestionID: q.ID, Option: "Delta"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "not one of the choices")

			_, err = NormalizeAnswer(q, AnswerRequest{QuestionID: q.ID})
			require.Error(t, err, "empty option is not a valid single choice")
		})
	}
}

func TestNormalizeMultiSelectAnswer(t *testing.T) {
	q := choiceQuestion(FormatWordChoiceMulti)

	resp, err := NormalizeAnswer(q, AnswerRequest{QuestionID: q.ID, Options: []string{"Alpha", "Gamma"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Gamma"}, resp.Value.Options)

	_, err = NormalizeAnswer(q, AnswerRequest{QuestionID: q.ID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one option")

	_, err = NormalizeAnswer(q, AnswerRequest{QuestionID: q.ID, Options: []string{"Alpha", "Alpha"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "selected twice")

	_, err = NormalizeAnswer(q, AnswerRequest{QuestionID: q.ID, Options: []string{"Alpha", "Delta"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not one of the choices")
}

func TestNormalizeRankingAnswer(t *testing.T) {
	q := choiceQuestion(FormatRanking)

	resp, err := NormalizeAnswer(q, AnswerRequest{QuestionID: q.ID, Options: []string{"Gamma", "Alpha", "Beta"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Gamma", "Alpha", "Beta"}, resp.Value.Options, "ranking keeps submission order")

	// A ranking must be a full permutation of the options.
	_, err = NormalizeAnswer(q, AnswerRequest{QuestionID: q.ID, Options: []string{"Gamma", "Alpha"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must order all 3 options")

	_, err = NormalizeAnswer(q, AnswerRequest{QuestionID: q.ID, Options: []string{"Gamma", "Alpha", "Alpha"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ranked twice")

	_, err = NormalizeAnswer(q, AnswerRequest{QuestionID: q.ID, Options: []string{"Gamma", "Alpha", "Delta"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not one of the choices")
}

func TestUnknownFormatSurfaces(t *testing.T) {
	q := choiceQuestion("essay")

	_, err := NormalizeAnswer(q, AnswerRequest{QuestionID: q.ID, Option: "Alpha"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownFormat))

	err = ValidateAnswerValue(q, AnswerValue{Option: "Alpha"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestNormalizeCopiesOptionSlice(t *testing.T) {
	q := choiceQuestion(FormatWordChoiceMulti)

	submitted := []string{"Alpha", "Beta"}
	resp, err := NormalizeAnswer(q, AnswerRequest{QuestionID: q.ID, Options: submitted})
	require.NoError(t, err)

	submitted[0] = "mutated"
	assert.Equal(t, "Alpha", resp.Value.Options[0])
}

func TestAnswerValueIsEmpty(t *testing.T) {
	assert.True(t, AnswerValue{}.IsEmpty())
	assert.False(t, AnswerValue{Scale: 3}.IsEmpty())
	assert.False(t, AnswerValue{Option: "Alpha"}.IsEmpty())
	assert.False(t, AnswerValue{Options: []string{"Alpha"}}.IsEmpty())
}

func TestAnswerValueEqual(t *testing.T) {
	a := AnswerValue{Options: []string{"Alpha", "Beta"}}

	assert.True(t, a.Equal(AnswerValue{Options: []string{"Alpha", "Beta"}}))
	assert.False(t, a.Equal(AnswerValue{Options: []string{"Beta", "Alpha"}}), "order matters")
	assert.False(t, a.Equal(AnswerValue{Options: []string{"Alpha"}}))
	assert.True(t, AnswerValue{Scale: 4}.Equal(AnswerValue{Scale: 4}))
	assert.False(t, AnswerValue{Scale: 4}.Equal(AnswerValue{Scale: 5}))
	assert.False(t, AnswerValue{Option: "Alpha"}.Equal(AnswerValue{Option: "Beta"}))
}

func TestTaxonomyOrderIsStable(t *testing.T) {
	taxonomy := Taxonomy()
	require.Len(t, taxonomy, 12)

	assert.Equal(t, "Innocent", taxonomy[0].Name)
	assert.Equal(t, "Ruler", taxonomy[11].Name)

	for i, a := range taxonomy {
		assert.Equal(t, i, TaxonomyIndex(a.Name))
		assert.True(t, IsArchetype(a.Name))
		assert.NotEmpty(t, a.Color)
		assert.NotEmpty(t, a.Traits)
	}
	assert.False(t, IsArchetype("Wizard"))
	assert.Equal(t, -1, TaxonomyIndex("Wizard"))
}
