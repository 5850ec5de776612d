// Package scoring converts a completed response set into a ranked,
// confidence-scored archetype result. Score is a pure function of its
// inputs: no clock, no randomness, identical inputs give identical output.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"brand-archetype-api/catalog"
	"brand-archetype-api/models"
	"brand-archetype-api/utils"
)

// Confidence blends two signals: how much of the catalog was answered and
// how far the top archetype sits above the mean of the rest. Both weights
// are non-negative, so confidence is monotone in each signal.
const (
	completionWeight = 0.6
	separationWeight = 0.4

	// A lead of this many percentage points over the mean of the other
	// archetypes saturates the separation signal.
	separationCeiling = 25.0
)

// Score accumulates per-archetype raw scores over every response, ranks
// them, and derives a confidence. A response referencing a question id
// absent from the catalog is an invariant violation and returns an error.
func Score(responses []models.Response, cat *catalog.Catalog) (*models.AssessmentResult, error) {
	raw := make(map[string]float64, 12)

	answered := 0
	for _, resp := range responses {
		q, ok := cat.ByID(resp.QuestionID)
		if !ok {
			return nil, fmt.Errorf("response references unknown question %q", resp.QuestionID)
		}
		if resp.Value.IsEmpty() {
			continue
		}
		if err := accumulate(raw, q, resp.Value); err != nil {
			return nil, err
		}
		answered++
	}

	scores := rankScores(raw)
	confidence := confidenceScore(scores, answered, cat.Len())

	result := &models.AssessmentResult{
		Primary:    scores[0],
		Secondary:  scores[1],
		AllScores:  scores,
		Confidence: confidence,
	}

	utils.LogScore("Scored %d/%d responses: primary=%s (%.1f%%), secondary=%s (%.1f%%), confidence=%.1f",
		answered, cat.Len(), result.Primary.Archetype, result.Primary.Percentage,
		result.Secondary.Archetype, result.Secondary.Percentage, confidence)

	return result, nil
}

func accumulate(raw map[string]float64, q *models.Question, value models.AnswerValue) error {
	switch q.Format {
	case models.FormatSlider:
		// Interpolate between the two pole options by scale position.
		t := float64(value.Scale-models.SliderMin) / float64(models.SliderMax-models.SliderMin)
		addWeights(raw, q.Options[0].Weights, 1-t)
		addWeights(raw, q.Options[1].Weights, t)

	case models.FormatForcedChoice, models.FormatScenario, models.FormatImageChoice,
		models.FormatWordChoice, models.FormatStoryCompletion:
		opt := q.OptionByLabel(value.Option)
		if opt == nil {
			return fmt.Errorf("question %s: answer option %q not in catalog", q.ID, value.Option)
		}
		addWeights(raw, opt.Weights, 1)

	case models.FormatWordChoiceMulti:
		for _, label := range value.Options {
			opt := q.OptionByLabel(label)
			if opt == nil {
				return fmt.Errorf("question %s: answer option %q not in catalog", q.ID, label)
			}
			addWeights(raw, opt.Weights, 1)
		}

	case models.FormatRanking:
		// Weight decays monotonically from top rank to bottom: position i
		// of n contributes factor (n-i)/n.
		n := len(value.Options)
		for i, label := range value.Options {
			opt := q.OptionByLabel(label)
			if opt == nil {
				return fmt.Errorf("question %s: answer option %q not in catalog", q.ID, label)
			}
			addWeights(raw, opt.Weights, float64(n-i)/float64(n))
		}

	default:
		return fmt.Errorf("%w: %s (question %s)", models.ErrUnknownFormat, q.Format, q.ID)
	}
	return nil
}

func addWeights(raw map[string]float64, weights map[string]float64, factor float64) {
	for archetype, weight := range weights {
		raw[archetype] += weight * factor
	}
}

// rankScores normalizes raw scores to percentages summing to 100 and sorts
// highest first. Building the slice in taxonomy order and sorting stably
// means equal raw scores keep taxonomy order.
func rankScores(raw map[string]float64) []models.ArchetypeScore {
	taxonomy := models.Taxonomy()

	total := 0.0
	for _, a := range taxonomy {
		total += raw[a.Name]
	}

	scores := make([]models.ArchetypeScore, 0, len(taxonomy))
	for _, a := range taxonomy {
		pct := 100.0 / float64(len(taxonomy))
		if total > 0 {
			pct = raw[a.Name] / total * 100
		}
		scores = append(scores, models.ArchetypeScore{
			Archetype:   a.Name,
			RawScore:    round2(raw[a.Name]),
			Percentage:  round2(pct),
			Color:       a.Color,
			Description: a.Description,
			Traits:      a.Traits,
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Percentage > scores[j].Percentage
	})

	return scores
}

func confidenceScore(scores []models.ArchetypeScore, answered, totalQuestions int) float64 {
	completion := 0.0
	if totalQuestions > 0 {
		completion = float64(answered) / float64(totalQuestions)
	}

	restMean := 0.0
	for _, s := range scores[1:] {
		restMean += s.Percentage
	}
	restMean /= float64(len(scores) - 1)

	separation := scores[0].Percentage - restMean
	if separation < 0 {
		separation = 0
	}
	sepSignal := math.Min(separation/separationCeiling, 1)

	confidence := 100 * (completionWeight*completion + separationWeight*sepSignal)
	return round2(math.Min(math.Max(confidence, 0), 100))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
