package systems

// SystemInfo describes a pipeline phase for UI display.
type SystemInfo struct {
	ID          string // Internal identifier (used for perf tracking)
	Name        string // Display name
	Description string // What this system does
	Category    string // Grouping (e.g., "physics", "perception")
}

// SystemRegistry holds metadata about all systems.
// This centralizes system naming so the UI and perf tracker stay in sync.
type SystemRegistry struct {
	systems []SystemInfo
	byID    map[string]SystemInfo
}

// NewSystemRegistry creates a registry with all known systems.
func NewSystemRegistry() *SystemRegistry {
	reg := &SystemRegistry{
		byID: make(map[string]SystemInfo),
	}
	reg.registerDefaults()
	return reg
}

// registerDefaults adds the tick pipeline in execution order.
// Update this when adding new systems.
func (r *SystemRegistry) registerDefaults() {
	r.Register(SystemInfo{ID: "control", Name: "Control", Description: "Applies controller input to agents", Category: "input"})

	// Physics
	r.Register(SystemInfo{ID: "gravity", Name: "Gravity", Description: "Pulls movable bodies down", Category: "physics"})
	r.Register(SystemInfo{ID: "move", Name: "Move", Description: "Integrates positions from velocity", Category: "physics"})
	r.Register(SystemInfo{ID: "snapshot", Name: "Snapshot", Description: "Collects static obstacle shapes", Category: "internal"})
	r.Register(SystemInfo{ID: "resolve", Name: "Resolve", Description: "Pushes bodies out of static obstacles", Category: "physics"})
	r.Register(SystemInfo{ID: "bounds", Name: "Bounds", Description: "Freezes bodies that leave the world", Category: "physics"})

	// Perception
	r.Register(SystemInfo{ID: "facing", Name: "Facing", Description: "Turns agents and mirrors their eyes", Category: "perception"})
	r.Register(SystemInfo{ID: "perceive", Name: "Perceive", Description: "Range-finds every sensor", Category: "perception"})

	r.Register(SystemInfo{ID: "telemetry", Name: "Telemetry", Description: "Records stats and streams readouts", Category: "internal"})
}

// Register adds a system to the registry.
func (r *SystemRegistry) Register(info SystemInfo) {
	r.systems = append(r.systems, info)
	r.byID[info.ID] = info
}

// Get returns system info by ID.
func (r *SystemRegistry) Get(id string) (SystemInfo, bool) {
	info, ok := r.byID[id]
	return info, ok
}

// GetName returns the display name for a system ID.
// Falls back to the ID itself if not found.
func (r *SystemRegistry) GetName(id string) string {
	if info, ok := r.byID[id]; ok {
		return info.Name
	}
	return id
}

// All returns all registered systems.
func (r *SystemRegistry) All() []SystemInfo {
	return r.systems
}

// ByCategory returns systems filtered by category.
func (r *SystemRegistry) ByCategory(category string) []SystemInfo {
	var result []SystemInfo
	for _, info := range r.systems {
		if info.Category == category {
			result = append(result, info)
		}
	}
	return result
}

// Categories returns all unique categories.
func (r *SystemRegistry) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, info := range r.systems {
		if !seen[info.Category] {
			seen[info.Category] = true
			cats = append(cats, info.Category)
		}
	}
	return cats
}

// IDs returns all system IDs in registration order.
func (r *SystemRegistry) IDs() []string {
	ids := make([]string, len(r.systems))
	for i, info := range r.systems {
		ids[i] = info.ID
	}
	return ids
}
