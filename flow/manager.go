package flow

import (
	"sync"

	"brand-archetype-api/catalog"
	"brand-archetype-api/utils"
)

// Manager holds the live controllers, one per in-flight assessment.
type Manager struct {
	mu          sync.RWMutex
	controllers map[string]*Controller

	cat   *catalog.Catalog
	cfg   Config
	store PersistenceAdapter
}

func NewManager(cat *catalog.Catalog, cfg Config, store PersistenceAdapter) *Manager {
	return &Manager{
		controllers: make(map[string]*Controller),
		cat:         cat,
		cfg:         cfg,
		store:       store,
	}
}

// Start returns the controller for an assessment, creating it if needed.
// A saved snapshot, when present and well-formed, is restored; load
// failures and malformed snapshots fall back to a fresh session.
func (m *Manager) Start(assessmentID string) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ctrl, exists := m.controllers[assessmentID]; exists {
		return ctrl
	}

	ctrl := NewController(assessmentID, m.cat, m.cfg, m.store)

	if m.store != nil {
		snapshot, err := m.store.LoadSnapshot(assessmentID)
		if err != nil {
			utils.LogError("Failed to load snapshot for %s, starting fresh: %v", assessmentID, err)
		} else if snapshot != nil {
			ctrl.Resume(snapshot)
		}
	}

	m.controllers[assessmentID] = ctrl
	return ctrl
}

// Get returns a live controller without creating one.
func (m *Manager) Get(assessmentID string) (*Controller, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ctrl, exists := m.controllers[assessmentID]
	return ctrl, exists
}

// Remove drops a controller from the registry (completion or abandonment).
func (m *Manager) Remove(assessmentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.controllers, assessmentID)
}

// Active reports how many controllers are live.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.controllers)
}
