package models

// Archetype is one entry in the fixed brand-archetype taxonomy.
type Archetype struct {
	Name        string   `json:"name"`
	Color       string   `json:"color"`
	Description string   `json:"description"`
	Traits      []string `json:"traits"`
}

// taxonomy is the fixed archetype list. Its order is load-bearing: scoring
// ties are broken by position in this slice.
var taxonomy = []Archetype{
	{
		Name:        "Innocent",
		Color:       "#F9E79F",
		Description: "Optimistic and honest, the Innocent brand promises simplicity and does things the right way.",
		Traits:      []string{"optimistic", "honest", "pure", "trustworthy"},
	},
	{
		Name:        "Explorer",
		Color:       "#82E0AA",
		Description: "Restless and independent, the Explorer brand helps people experience the new and the unknown.",
		Traits:      []string{"adventurous", "independent", "pioneering", "restless"},
	},
	{
		Name:        "Sage",
		Color:       "#85C1E9",
		Description: "Driven by knowledge and truth, the Sage brand helps people understand their world.",
		Traits:      []string{"wise", "knowledgeable", "analytical", "thoughtful"},
	},
	{
		Name:        "Hero",
		Color:       "#E59866",
		Description: "Courageous and determined, the Hero brand rises to the challenge and inspires mastery.",
		Traits:      []string{"courageous", "determined", "inspiring", "disciplined"},
	},
	{
		Name:        "Outlaw",
		Color:       "#839192",
		Description: "Disruptive and rebellious, the Outlaw brand breaks the rules to change what is not working.",
		Traits:      []string{"rebellious", "disruptive", "liberating", "bold"},
	},
	{
		Name:        "Magician",
		Color:       "#BB8FCE",
		Description: "Visionary and transformative, the Magician brand makes dreams come true.",
		Traits:      []string{"visionary", "transformative", "charismatic", "imaginative"},
	},
	{
		Name:        "Everyman",
		Color:       "#AEB6BF",
		Description: "Down to earth and relatable, the Everyman brand belongs and connects with everyone.",
		Traits:      []string{"relatable", "friendly", "humble", "authentic"},
	},
	{
		Name:        "Lover",
		Color:       "#F1948A",
		Description: "Passionate and intimate, the Lover brand creates relationships and evokes desire.",
		Traits:      []string{"passionate", "intimate", "warm", "sensual"},
	},
	{
		Name:        "Jester",
		Color:       "#F8C471",
		Description: "Playful and spontaneous, the Jester brand brings joy and lives in the moment.",
		Traits:      []string{"playful", "humorous", "spontaneous", "lighthearted"},
	},
	{
		Name:        "Caregiver",
		Color:       "#A3E4D7",
		Description: "Compassionate and generous, the Caregiver brand protects and cares for others.",
		Traits:      []string{"compassionate", "nurturing", "generous", "protective"},
	},
	{
		Name:        "Creator",
		Color:       "#D7BDE2",
		Description: "Imaginative and expressive, the Creator brand crafts things of enduring value.",
		Traits:      []string{"creative", "imaginative", "expressive", "perfectionist"},
	},
	{
		Name:        "Ruler",
		Color:       "#D5DBDB",
		Description: "Confident and responsible, the Ruler brand creates order and leads with authority.",
		Traits:      []string{"confident", "authoritative", "responsible", "organized"},
	},
}

// Taxonomy returns a copy of the archetype list in canonical order.
func Taxonomy() []Archetype {
	out := make([]Archetype, len(taxonomy))
	copy(out, taxonomy)
	return out
}

// TaxonomyIndex returns the canonical position of an archetype name, or -1.
func TaxonomyIndex(name string) int {
	for i, a := range taxonomy {
		if a.Name == name {
			return i
		}
	}
	return -1
}

func IsArchetype(name string) bool {
	return TaxonomyIndex(name) >= 0
}
