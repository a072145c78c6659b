package domain

import (
	"errors"
	"fmt"
)

// ErrUnknownTable is returned when a table name is not part of the syncable set.
var ErrUnknownTable = errors.New("unknown table")

// Table identifies one logical collection shared between the local store and
// the remote store. The set is closed: only the constants below are valid.
type Table string

const (
	TableUsers               Table = "users"
	TableMacrocycles         Table = "macrocycles"
	TableMesocycles          Table = "mesocycles"
	TableMicrocycles         Table = "microcycles"
	TableSessions            Table = "sessions"
	TableAthleteProgress     Table = "athlete_progress"
	TableGroups              Table = "groups"
	TableGroupMembers        Table = "group_members"
	TableAttendance          Table = "attendance"
	TableExerciseLogs        Table = "exercise_logs"
	TablePlanningAssignments Table = "planning_assignments"
)

// SyncTables is the fixed order in which tables are pulled from the remote.
var SyncTables = []Table{
	TableUsers,
	TableMacrocycles,
	TableMesocycles,
	TableMicrocycles,
	TableSessions,
	TableAthleteProgress,
	TableGroups,
	TableGroupMembers,
	TableAttendance,
	TableExerciseLogs,
	TablePlanningAssignments,
}

// tableIndexes lists the secondary attributes each table can be queried by.
var tableIndexes = map[Table][]string{
	TableUsers:               {"email", "role"},
	TableMacrocycles:         {"status", "created_by"},
	TableMesocycles:          {"macrocycle_id"},
	TableMicrocycles:         {"mesocycle_id"},
	TableSessions:            {"trainer_id", "macrocycle_id", "mesocycle_id", "microcycle_id", "date"},
	TableAthleteProgress:     {"user_id", "session_id"},
	TableGroups:              {"trainer_id"},
	TableGroupMembers:        {"group_id", "user_id"},
	TableAttendance:          {"session_id", "user_id"},
	TableExerciseLogs:        {"user_id", "microcycle"},
	TablePlanningAssignments: {"user_id", "macrocycle_id", "is_active"},
}

func (t Table) String() string { return string(t) }

// Valid reports whether t belongs to the syncable table set.
func (t Table) Valid() bool {
	_, ok := tableIndexes[t]
	return ok
}

// Indexes returns the indexed fields declared for t.
func (t Table) Indexes() []string {
	return tableIndexes[t]
}

// HasIndex reports whether field is a declared secondary index of t.
func (t Table) HasIndex(field string) bool {
	for _, f := range tableIndexes[t] {
		if f == field {
			return true
		}
	}
	return false
}

// ParseTable converts a raw name into a Table, rejecting names outside the set.
func ParseTable(name string) (Table, error) {
	t := Table(name)
	if !t.Valid() {
		return "", fmt.Errorf("%q: %w", name, ErrUnknownTable)
	}
	return t, nil
}
