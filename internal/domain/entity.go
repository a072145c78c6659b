package domain

import "time"

// TimestampLayout is the ISO-8601 form written to every updated_at field.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// DateLayout is used for calendar dates (start_date, end_date, date).
const DateLayout = "2006-01-02"

// Entity is the shape every synchronized record shares.
type Entity interface {
	EntityID() string
	EntityTable() Table
	// Stamp returns the updated_at timestamp exactly as stored.
	Stamp() string
	// Touch sets updated_at. Every local mutation calls it before writing.
	Touch(ts string)
}

// RoleBearer is implemented by entities that carry a role, which the conflict
// resolver consults before falling back to timestamps.
type RoleBearer interface {
	EntityRole() Role
}

// Now returns the current UTC time formatted with TimestampLayout.
func Now() string {
	return FormatTimestamp(time.Now())
}

// FormatTimestamp formats t in UTC with TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

type Role string

const (
	RoleTrainer      Role = "trainer"
	RoleAthlete      Role = "athlete"
	RoleNutritionist Role = "nutritionist"
	RoleAdmin        Role = "admin"
)

// ValidRoles is the canonical set of accepted user roles.
var ValidRoles = map[Role]bool{
	RoleTrainer: true, RoleAthlete: true, RoleNutritionist: true, RoleAdmin: true,
}

type PlanningStatus string

const (
	PlanningDraft     PlanningStatus = "draft"
	PlanningPublished PlanningStatus = "published"
	PlanningArchived  PlanningStatus = "archived"
)

// ValidPlanningStatuses is the canonical set of macro/meso/microcycle statuses.
var ValidPlanningStatuses = map[PlanningStatus]bool{
	PlanningDraft: true, PlanningPublished: true, PlanningArchived: true,
}

type SessionStatus string

const (
	SessionDraft     SessionStatus = "draft"
	SessionScheduled SessionStatus = "scheduled"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// ValidSessionStatuses is the canonical set of session plan statuses.
var ValidSessionStatuses = map[SessionStatus]bool{
	SessionDraft: true, SessionScheduled: true, SessionCompleted: true, SessionCancelled: true,
}

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
)

type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "low"
	EnergyMedium EnergyLevel = "medium"
	EnergyHigh   EnergyLevel = "high"
)
