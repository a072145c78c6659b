package testutil

import (
	"fmt"
	"sync/atomic"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/google/uuid"
)

var testEmailCounter atomic.Int64

// Stamp is a fixed timestamp for fixtures that need deterministic ordering.
const Stamp = "2024-01-01T00:00:00.000Z"

// User options
type UserOption func(*domain.User)

func WithRole(r domain.Role) UserOption {
	return func(u *domain.User) {
		u.Role = r
	}
}

func WithUserStamp(ts string) UserOption {
	return func(u *domain.User) {
		u.UpdatedAt = ts
	}
}

func WithUserID(id string) UserOption {
	return func(u *domain.User) {
		u.ID = id
	}
}

func NewTestUser(name string, opts ...UserOption) *domain.User {
	n := testEmailCounter.Add(1)
	u := &domain.User{
		ID:        uuid.New().String(),
		Name:      name,
		Role:      domain.RoleAthlete,
		Email:     fmt.Sprintf("user%d@example.com", n),
		UpdatedAt: Stamp,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Macrocycle options
type MacrocycleOption func(*domain.Macrocycle)

func WithMacroDates(start, end string) MacrocycleOption {
	return func(m *domain.Macrocycle) {
		m.StartDate = start
		m.EndDate = end
	}
}

func WithMacroStatus(s domain.PlanningStatus) MacrocycleOption {
	return func(m *domain.Macrocycle) {
		m.Status = s
	}
}

func NewTestMacrocycle(name string, opts ...MacrocycleOption) *domain.Macrocycle {
	m := &domain.Macrocycle{
		ID:        uuid.New().String(),
		Name:      name,
		StartDate: "2024-01-01",
		EndDate:   "2024-12-31",
		Status:    domain.PlanningDraft,
		UpdatedAt: Stamp,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func NewTestMesocycle(macrocycleID, name string, order int) *domain.Mesocycle {
	return &domain.Mesocycle{
		ID:           uuid.New().String(),
		MacrocycleID: macrocycleID,
		Name:         name,
		StartDate:    "2024-01-01",
		EndDate:      "2024-03-31",
		OrderIndex:   order,
		Status:       domain.PlanningDraft,
		UpdatedAt:    Stamp,
	}
}

func NewTestMicrocycle(mesocycleID, name string, week int) *domain.Microcycle {
	return &domain.Microcycle{
		ID:          uuid.New().String(),
		MesocycleID: mesocycleID,
		Name:        name,
		WeekNumber:  week,
		Status:      domain.PlanningDraft,
		UpdatedAt:   Stamp,
	}
}

// Session options
type SessionOption func(*domain.Session)

func InMacrocycle(id string) SessionOption {
	return func(s *domain.Session) { s.MacrocycleID = &id }
}

func InMesocycle(id string) SessionOption {
	return func(s *domain.Session) { s.MesocycleID = &id }
}

func InMicrocycle(id string) SessionOption {
	return func(s *domain.Session) { s.MicrocycleID = &id }
}

func WithTrainer(id string) SessionOption {
	return func(s *domain.Session) { s.TrainerID = &id }
}

func NewTestSession(date string, opts ...SessionOption) *domain.Session {
	s := &domain.Session{
		ID:          uuid.New().String(),
		Date:        date,
		SessionType: "strength",
		Status:      domain.SessionScheduled,
		UpdatedAt:   Stamp,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func Ptr[T any](v T) *T { return &v }
