package domain

import (
	"fmt"
	"time"
)

// Macrocycle is the root of a planning tree (a season or training year).
type Macrocycle struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Season    *string        `json:"season"`
	StartDate string         `json:"start_date"`
	EndDate   string         `json:"end_date"`
	Goal      *string        `json:"goal"`
	Notes     *string        `json:"notes"`
	Status    PlanningStatus `json:"status"`
	CreatedBy *string        `json:"created_by"`
	UpdatedAt string         `json:"updated_at"`
}

func (m *Macrocycle) EntityID() string { return m.ID }
func (m *Macrocycle) EntityTable() Table { return TableMacrocycles }
func (m *Macrocycle) Stamp() string { return m.UpdatedAt }
func (m *Macrocycle) Touch(ts string) { m.UpdatedAt = ts }

// Mesocycle is a training block inside a macrocycle.
type Mesocycle struct {
	ID           string         `json:"id"`
	MacrocycleID string         `json:"macrocycle_id"`
	Name         string         `json:"name"`
	StartDate    string         `json:"start_date"`
	EndDate      string         `json:"end_date"`
	Phase        *string        `json:"phase"`
	Focus        *string        `json:"focus"`
	Goal         *string        `json:"goal"`
	OrderIndex   int            `json:"order_index"`
	Status       PlanningStatus `json:"status"`
	UpdatedAt    string         `json:"updated_at"`
}

func (m *Mesocycle) EntityID() string { return m.ID }
func (m *Mesocycle) EntityTable() Table { return TableMesocycles }
func (m *Mesocycle) Stamp() string { return m.UpdatedAt }
func (m *Mesocycle) Touch(ts string) { m.UpdatedAt = ts }

// Microcycle is a single training week inside a mesocycle.
type Microcycle struct {
	ID          string         `json:"id"`
	MesocycleID string         `json:"mesocycle_id"`
	Name        string         `json:"name"`
	WeekNumber  int            `json:"week_number"`
	StartDate   *string        `json:"start_date"`
	EndDate     *string        `json:"end_date"`
	Focus       *string        `json:"focus"`
	Load        *string        `json:"load"`
	Status      PlanningStatus `json:"status"`
	UpdatedAt   string         `json:"updated_at"`
}

func (m *Microcycle) EntityID() string { return m.ID }
func (m *Microcycle) EntityTable() Table { return TableMicrocycles }
func (m *Microcycle) Stamp() string { return m.UpdatedAt }
func (m *Microcycle) Touch(ts string) { m.UpdatedAt = ts }

// Session is a planned training session. It may hang off any level of the
// hierarchy, so all three parent references are optional.
type Session struct {
	ID           string        `json:"id"`
	MacrocycleID *string       `json:"macrocycle_id"`
	MesocycleID  *string       `json:"mesocycle_id"`
	MicrocycleID *string       `json:"microcycle_id"`
	TrainerID    *string       `json:"trainer_id"`
	Name         *string       `json:"name"`
	Date         string        `json:"date"`
	SessionType  string        `json:"session_type"`
	OrderIndex   int           `json:"order_index"`
	Status       SessionStatus `json:"status"`
	Notes        *string       `json:"notes"`
	UpdatedAt    string        `json:"updated_at"`
}

func (s *Session) EntityID() string { return s.ID }
func (s *Session) EntityTable() Table { return TableSessions }
func (s *Session) Stamp() string { return s.UpdatedAt }
func (s *Session) Touch(ts string) { s.UpdatedAt = ts }

// PlanningAssignment binds a user to a macrocycle. At most one assignment per
// user is active at a time.
type PlanningAssignment struct {
	ID           string  `json:"id"`
	UserID       string  `json:"user_id"`
	MacrocycleID string  `json:"macrocycle_id"`
	IsActive     bool    `json:"is_active"`
	AssignedAt   string  `json:"assigned_at"`
	AssignedBy   *string `json:"assigned_by"`
	UpdatedAt    string  `json:"updated_at"`
}

func (a *PlanningAssignment) EntityID() string { return a.ID }
func (a *PlanningAssignment) EntityTable() Table { return TablePlanningAssignments }
func (a *PlanningAssignment) Stamp() string { return a.UpdatedAt }
func (a *PlanningAssignment) Touch(ts string) { a.UpdatedAt = ts }

// ValidateDateRange checks that start and end are calendar dates with end not
// before start. Empty values are rejected.
func ValidateDateRange(start, end string) error {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return fmt.Errorf("start_date: invalid date format %q (expected YYYY-MM-DD)", start)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return fmt.Errorf("end_date: invalid date format %q (expected YYYY-MM-DD)", end)
	}
	if e.Before(s) {
		return fmt.Errorf("end_date %q must not be before start_date %q", end, start)
	}
	return nil
}
