package models

import "time"

// Section identifies one of the three ordered assessment sections.
type Section string

const (
	SectionBroad     Section = "broad"
	SectionClarifier Section = "clarifier"
	SectionValidator Section = "validator"
)

// SectionOrder returns the sections in assessment order.
func SectionOrder() []Section {
	return []Section{SectionBroad, SectionClarifier, SectionValidator}
}

func IsSection(s Section) bool {
	return s == SectionBroad || s == SectionClarifier || s == SectionValidator
}

// QuestionFormat identifies the input widget a question renders with.
type QuestionFormat string

const (
	FormatSlider          QuestionFormat = "slider"
	FormatForcedChoice    QuestionFormat = "forced_choice"
	FormatScenario        QuestionFormat = "scenario_decision"
	FormatImageChoice     QuestionFormat = "image_choice"
	FormatWordChoice      QuestionFormat = "word_choice"
	FormatWordChoiceMulti QuestionFormat = "word_choice_multi"
	FormatRanking         QuestionFormat = "ranking"
	FormatStoryCompletion QuestionFormat = "story_completion"
)

func IsFormat(f QuestionFormat) bool {
	switch f {
	case FormatSlider, FormatForcedChoice, FormatScenario, FormatImageChoice,
		FormatWordChoice, FormatWordChoiceMulti, FormatRanking, FormatStoryCompletion:
		return true
	}
	return false
}

// Slider answers run on a fixed 1-7 scale.
const (
	SliderMin = 1
	SliderMax = 7
)

// Option is one selectable choice on a question. Weights map archetype
// names to the contribution picking this option adds to that archetype.
type Option struct {
	Label    string             `json:"label" yaml:"label"`
	AssetKey string             `json:"asset_key,omitempty" yaml:"asset_key,omitempty"`
	Weights  map[string]float64 `json:"weights" yaml:"weights"`
}

// Question is one catalog entry. Immutable after catalog load.
type Question struct {
	ID      string         `json:"id" yaml:"id"`
	Section Section        `json:"section" yaml:"section"`
	Format  QuestionFormat `json:"format" yaml:"format"`
	Prompt  string         `json:"prompt" yaml:"prompt"`
	Options []Option       `json:"options" yaml:"options"`
}

// OptionByLabel finds an option on the question, or nil.
func (q *Question) OptionByLabel(label string) *Option {
	for i := range q.Options {
		if q.Options[i].Label == label {
			return &q.Options[i]
		}
	}
	return nil
}

// AnswerValue is the common shape every widget normalizes into. Exactly one
// field is populated, depending on the question format: Scale for sliders,
// Option for single-choice formats, Options for multi-select and ranking
// (order meaningful for ranking only).
type AnswerValue struct {
	Scale   int      `json:"scale,omitempty"`
	Option  string   `json:"option,omitempty"`
	Options []string `json:"options,omitempty"`
}

func (v AnswerValue) IsEmpty() bool {
	return v.Scale == 0 && v.Option == "" && len(v.Options) == 0
}

func (v AnswerValue) Equal(other AnswerValue) bool {
	if v.Scale != other.Scale || v.Option != other.Option || len(v.Options) != len(other.Options) {
		return false
	}
	for i := range v.Options {
		if v.Options[i] != other.Options[i] {
			return false
		}
	}
	return true
}

// Response is a user's latest answer to one question. At most one Response
// exists per question ID; re-answering replaces the prior entry.
type Response struct {
	QuestionID string      `json:"question_id"`
	Value      AnswerValue `json:"value"`
	AnsweredAt time.Time   `json:"answered_at"`
}

// AnswerRequest is the raw wire answer a widget submits before
// normalization.
type AnswerRequest struct {
	QuestionID string   `json:"question_id"`
	Scale      *int     `json:"scale,omitempty"`
	Option     string   `json:"option,omitempty"`
	Options    []string `json:"options,omitempty"`
}
