// Package catalog owns the static question bank: an embedded YAML document
// parsed once at startup into an immutable, ordered catalog. The linear
// question order is always broad, then clarifier, then validator, with each
// section keeping its order from the source file.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"brand-archetype-api/models"
	"brand-archetype-api/utils"
)

//go:embed questions.yaml
var questionsYAML []byte

type catalogFile struct {
	Questions []models.Question `yaml:"questions"`
}

// Catalog is the ordered, validated question list.
type Catalog struct {
	questions []models.Question
	byID      map[string]int
	totals    map[models.Section]int
}

// Load parses and validates the embedded question bank.
func Load() (*Catalog, error) {
	utils.LogStartup("Loading question catalog (%d bytes embedded)", len(questionsYAML))

	var file catalogFile
	if err := yaml.Unmarshal(questionsYAML, &file); err != nil {
		return nil, fmt.Errorf("failed to parse question catalog: %w", err)
	}

	cat, err := New(file.Questions)
	if err != nil {
		return nil, err
	}

	utils.LogStartup("Catalog loaded: %d questions (broad %d, clarifier %d, validator %d)",
		cat.Len(), cat.Total(models.SectionBroad), cat.Total(models.SectionClarifier), cat.Total(models.SectionValidator))
	return cat, nil
}

// New builds a catalog from a question list, validating every entry and
// rebuilding the linear order as broad ++ clarifier ++ validator.
func New(questions []models.Question) (*Catalog, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	bySection := make(map[models.Section][]models.Question)
	seen := make(map[string]bool, len(questions))

	for i, q := range questions {
		if q.ID == "" {
			return nil, fmt.Errorf("catalog entry %d has no id", i)
		}
		if seen[q.ID] {
			return nil, fmt.Errorf("duplicate question id: %s", q.ID)
		}
		seen[q.ID] = true

		if !models.IsSection(q.Section) {
			return nil, fmt.Errorf("question %s: unknown section %q", q.ID, q.Section)
		}
		if !models.IsFormat(q.Format) {
			return nil, fmt.Errorf("question %s: unknown format %q", q.ID, q.Format)
		}
		if err := validateOptions(&q); err != nil {
			return nil, err
		}

		bySection[q.Section] = append(bySection[q.Section], q)
	}

	cat := &Catalog{
		byID:   make(map[string]int, len(questions)),
		totals: make(map[models.Section]int, 3),
	}

	for _, section := range models.SectionOrder() {
		if len(bySection[section]) == 0 {
			return nil, fmt.Errorf("section %s has no questions", section)
		}
		cat.totals[section] = len(bySection[section])
		cat.questions = append(cat.questions, bySection[section]...)
	}

	for i := range cat.questions {
		cat.byID[cat.questions[i].ID] = i
	}

	return cat, nil
}

func validateOptions(q *models.Question) error {
	minOptions := 2
	if q.Format == models.FormatSlider {
		// Sliders interpolate between exactly two weighted poles.
		if len(q.Options) != 2 {
			return fmt.Errorf("question %s: slider needs exactly 2 pole options, has %d", q.ID, len(q.Options))
		}
		minOptions = 2
	}
	if len(q.Options) < minOptions {
		return fmt.Errorf("question %s: needs at least %d options, has %d", q.ID, minOptions, len(q.Options))
	}

	labels := make(map[string]bool, len(q.Options))
	for _, opt := range q.Options {
		if opt.Label == "" {
			return fmt.Errorf("question %s: option with empty label", q.ID)
		}
		if labels[opt.Label] {
			return fmt.Errorf("question %s: duplicate option label %q", q.ID, opt.Label)
		}
		labels[opt.Label] = true

		if q.Format == models.FormatImageChoice && opt.AssetKey == "" {
			return fmt.Errorf("question %s: image option %q has no asset key", q.ID, opt.Label)
		}

		for name, weight := range opt.Weights {
			if !models.IsArchetype(name) {
				return fmt.Errorf("question %s: option %q weights unknown archetype %q", q.ID, opt.Label, name)
			}
			if weight < 0 {
				return fmt.Errorf("question %s: option %q has negative weight for %s", q.ID, opt.Label, name)
			}
		}
	}
	return nil
}

// Len is the total number of questions across all sections.
func (c *Catalog) Len() int {
	return len(c.questions)
}

// QuestionAt returns the question at a linear position.
func (c *Catalog) QuestionAt(index int) (*models.Question, bool) {
	if index < 0 || index >= len(c.questions) {
		return nil, false
	}
	return &c.questions[index], true
}

// ByID looks a question up by identifier.
func (c *Catalog) ByID(id string) (*models.Question, bool) {
	index, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return &c.questions[index], true
}

// IndexOf returns the linear position of a question id, or -1.
func (c *Catalog) IndexOf(id string) int {
	index, ok := c.byID[id]
	if !ok {
		return -1
	}
	return index
}

// SectionAt derives the section a linear position falls in from the
// section boundary counts.
func (c *Catalog) SectionAt(index int) models.Section {
	for _, section := range models.SectionOrder() {
		if index < c.totals[section] {
			return section
		}
		index -= c.totals[section]
	}
	return models.SectionValidator
}

// Total is the question count of one section.
func (c *Catalog) Total(section models.Section) int {
	return c.totals[section]
}

// Questions returns a copy of the full ordered list.
func (c *Catalog) Questions() []models.Question {
	out := make([]models.Question, len(c.questions))
	copy(out, c.questions)
	return out
}
