// Package telemetry provides windowed run statistics, timing, CSV output and
// scene snapshots.
package telemetry

// EventType identifies telemetry events.
type EventType uint8

const (
	EventContact EventType = iota
	EventBounce
	EventFreeze
	EventSpawn
	EventDespawn
	EventOrphanEye
)

var eventNames = [...]string{
	EventContact:   "contact",
	EventBounce:    "bounce",
	EventFreeze:    "freeze",
	EventSpawn:     "spawn",
	EventDespawn:   "despawn",
	EventOrphanEye: "orphan_eye",
}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// Event represents a single telemetry event.
type Event struct {
	Type     EventType
	Tick     int32
	EntityID uint32
}
