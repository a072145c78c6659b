package domain

import (
	"encoding/json"
	"fmt"
)

type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ValidOperations is the canonical set of outbox operations.
var ValidOperations = map[Operation]bool{
	OpInsert: true, OpUpdate: true, OpDelete: true,
}

// OutboxEntry is one pending remote-side effect of a local write.
type OutboxEntry struct {
	ID        string
	Table     Table
	Operation Operation
	// Payload is the full entity for insert/update and {"id": ...} for delete.
	Payload json.RawMessage
	// CreatedAt is a monotonic Unix-nanosecond stamp that orders draining.
	CreatedAt int64
	Retries   int
	LastError string
}

// DeletePayload is the minimal identifier object queued for deletes.
type DeletePayload struct {
	ID string `json:"id"`
}

// PayloadID extracts the "id" member of a JSON payload. It returns an empty
// string when the payload is not an object or has no id.
func PayloadID(payload json.RawMessage) string {
	var p DeletePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return ""
	}
	return p.ID
}

// NewEntity returns an empty typed entity for the given table.
func NewEntity(t Table) (Entity, error) {
	switch t {
	case TableUsers:
		return &User{}, nil
	case TableMacrocycles:
		return &Macrocycle{}, nil
	case TableMesocycles:
		return &Mesocycle{}, nil
	case TableMicrocycles:
		return &Microcycle{}, nil
	case TableSessions:
		return &Session{}, nil
	case TableAthleteProgress:
		return &AthleteProgress{}, nil
	case TableGroups:
		return &Group{}, nil
	case TableGroupMembers:
		return &GroupMember{}, nil
	case TableAttendance:
		return &Attendance{}, nil
	case TableExerciseLogs:
		return &ExerciseLog{}, nil
	case TablePlanningAssignments:
		return &PlanningAssignment{}, nil
	default:
		return nil, fmt.Errorf("%q: %w", string(t), ErrUnknownTable)
	}
}

// Decode parses raw JSON into the typed entity registered for t.
func Decode(t Table, raw json.RawMessage) (Entity, error) {
	e, err := NewEntity(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, fmt.Errorf("decoding %s record: %w", t, err)
	}
	return e, nil
}
