package models

import (
	"fmt"
	"time"
)

// ErrUnknownFormat marks a catalog/schema mismatch: the question carries a
// format no widget knows how to collect. Surfaced, never skipped silently.
var ErrUnknownFormat = fmt.Errorf("unknown question format")

// NormalizeAnswer converts a raw widget answer into the common Response
// shape, validating it against the question's format and options. This is
// the single entry point for the answer-collection contract: every
// format-specific widget funnels through here.
func NormalizeAnswer(q *Question, req AnswerRequest) (Response, error) {
	value, err := normalizeValue(q, req)
	if err != nil {
		return Response{}, err
	}

	return Response{
		QuestionID: q.ID,
		Value:      value,
		AnsweredAt: time.Now().UTC(),
	}, nil
}

// ValidateAnswerValue checks an already-normalized value against the
// question's format. Used when replaying persisted responses.
func ValidateAnswerValue(q *Question, v AnswerValue) error {
	switch q.Format {
	case FormatSlider:
		if v.Scale < SliderMin || v.Scale > SliderMax {
			return fmt.Errorf("question %s: slider value %d out of range %d-%d", q.ID, v.Scale, SliderMin, SliderMax)
		}
	case FormatForcedChoice, FormatScenario, FormatImageChoice, FormatWordChoice, FormatStoryCompletion:
		if q.OptionByLabel(v.Option) == nil {
			return fmt.Errorf("question %s: option %q is not one of the choices", q.ID, v.Option)
		}
	case FormatWordChoiceMulti:
		if len(v.Options) == 0 {
			return fmt.Errorf("question %s: at least one option required", q.ID)
		}
		seen := make(map[string]bool, len(v.Options))
		for _, label := range v.Options {
			if q.OptionByLabel(label) == nil {
				return fmt.Errorf("question %s: option %q is not one of the choices", q.ID, label)
			}
			if seen[label] {
				return fmt.Errorf("question %s: option %q selected twice", q.ID, label)
			}
			seen[label] = true
		}
	case FormatRanking:
		if len(v.Options) != len(q.Options) {
			return fmt.Errorf("question %s: ranking must order all %d options, got %d", q.ID, len(q.Options), len(v.Options))
		}
		seen := make(map[string]bool, len(v.Options))
		for _, label := range v.Options {
			if q.OptionByLabel(label) == nil {
				return fmt.Errorf("question %s: option %q is not one of the choices", q.ID, label)
			}
			if seen[label] {
				return fmt.Errorf("question %s: option %q ranked twice", q.ID, label)
			}
			seen[label] = true
		}
	default:
		return fmt.Errorf("%w: %s (question %s)", ErrUnknownFormat, q.Format, q.ID)
	}
	return nil
}

func normalizeValue(q *Question, req AnswerRequest) (AnswerValue, error) {
	var value AnswerValue

	switch q.Format {
	case FormatSlider:
		if req.Scale == nil {
			return value, fmt.Errorf("question %s: slider answer requires a scale value", q.ID)
		}
		value.Scale = *req.Scale
	case FormatForcedChoice, FormatScenario, FormatImageChoice, FormatWordChoice, FormatStoryCompletion:
		value.Option = req.Option
	case FormatWordChoiceMulti, FormatRanking:
		value.Options = append([]string(nil), req.Options...)
	default:
		return value, fmt.Errorf("%w: %s (question %s)", ErrUnknownFormat, q.Format, q.ID)
	}

	if err := ValidateAnswerValue(q, value); err != nil {
		return AnswerValue{}, err
	}
	return value, nil
}
