package handlers

import (
	"encoding/json"
	"net/http"

	"brand-archetype-api/catalog"
	"brand-archetype-api/models"
	"brand-archetype-api/utils"
)

type CatalogHandlers struct {
	catalog *catalog.Catalog
}

func NewCatalogHandlers(cat *catalog.Catalog) *CatalogHandlers {
	return &CatalogHandlers{catalog: cat}
}

func (ch *CatalogHandlers) GetQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	utils.LogHTTP("GET /questions")
	questions := ch.catalog.Questions()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"questions": questions,
		"count":     len(questions),
	})
}

func (ch *CatalogHandlers) GetArchetypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	utils.LogHTTP("GET /archetypes")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"archetypes": models.Taxonomy(),
	})
}
