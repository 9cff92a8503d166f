package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/pupil/components"
)

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	snapshot := &Snapshot{
		Version: SnapshotVersion,
		Seed:    42,
		Tick:    1000,
		Obstacles: []ObstacleState{
			{X: 0, Y: -200, W: 1000, H: 100, Seeable: true},
			{X: 250, Y: -125, W: 50, H: 50},
		},
		Agents: []AgentState{
			{
				ID:         1,
				X:          -100,
				Y:          -130,
				W:          20,
				H:          40,
				VelX:       12.5,
				VelY:       -3,
				Facing:     components.DirLeft,
				Controller: "sense",
				Sensors: []SensorState{
					{X: 10, Y: 5, Length: 100, Width: 10},
				},
				Senses: []components.Reading{components.Hit(0.5)},
			},
			{ID: 2, Inert: true},
		},
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Snapshot file not created at %s", path)
	}
	if want := filepath.Join(tmpDir, "snapshot_1000.json"); path != want {
		t.Errorf("Path mismatch: got %s, want %s", path, want)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	if loaded.Seed != snapshot.Seed {
		t.Errorf("Seed mismatch: got %d, want %d", loaded.Seed, snapshot.Seed)
	}
	if loaded.Tick != snapshot.Tick {
		t.Errorf("Tick mismatch: got %d, want %d", loaded.Tick, snapshot.Tick)
	}
	if len(loaded.Obstacles) != 2 || !loaded.Obstacles[0].Seeable || loaded.Obstacles[1].Seeable {
		t.Errorf("Obstacles mismatch: %+v", loaded.Obstacles)
	}
	if len(loaded.Agents) != 2 {
		t.Fatalf("Agents count mismatch: got %d, want 2", len(loaded.Agents))
	}

	a := loaded.Agents[0]
	if a.Facing != components.DirLeft || a.Controller != "sense" || a.VelX != 12.5 {
		t.Errorf("Agent mismatch: %+v", a)
	}
	if len(a.Sensors) != 1 || a.Sensors[0].Length != 100 {
		t.Errorf("Sensors mismatch: %+v", a.Sensors)
	}
	if len(a.Senses) != 1 || a.Senses[0] != components.Hit(0.5) {
		t.Errorf("Senses mismatch: %+v", a.Senses)
	}
	if !loaded.Agents[1].Inert {
		t.Error("Inert flag not loaded")
	}
}

func TestLoadSnapshotRejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.json")
	if err := os.WriteFile(path, []byte(`{"version": 99}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Error("expected error for unknown version")
	}
}

func TestLoadSnapshotMissing(t *testing.T) {
	if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
