package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/pupil/components"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds a complete scene: level geometry plus every agent's body state.
type Snapshot struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`
	Tick    int32 `json:"tick"`

	Obstacles []ObstacleState `json:"obstacles"`
	Agents    []AgentState    `json:"agents"`
}

// ObstacleState is a static rectangle centered at (X, Y).
type ObstacleState struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	W       float64 `json:"w"`
	H       float64 `json:"h"`
	Seeable bool    `json:"seeable"`
}

// AgentState holds one agent's state.
type AgentState struct {
	ID uint32 `json:"id"`

	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
	VelX float64 `json:"vel_x"`
	VelY float64 `json:"vel_y"`

	Facing     components.Dir `json:"facing"`
	Inert      bool           `json:"inert"`
	Controller string         `json:"controller"`

	Sensors []SensorState        `json:"sensors"`
	Senses  []components.Reading `json:"senses,omitempty"`
}

// SensorState is a sensor wedge relative to its agent, as authored (facing right).
type SensorState struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Angle  float64 `json:"angle"`
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("snapshot_%d.json", snapshot.Tick))

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
