package service

import (
	"context"
	"errors"

	"github.com/alexanderramin/cadence/internal/domain"
)

// ErrInvalidInput marks validation failures of caller-supplied data.
var ErrInvalidInput = errors.New("invalid input")

type PlanningService interface {
	CreateMacrocycle(ctx context.Context, m *domain.Macrocycle) error
	UpdateMacrocycle(ctx context.Context, m *domain.Macrocycle) error
	GetMacrocycle(ctx context.Context, id string) (*domain.Macrocycle, error)
	ListMacrocycles(ctx context.Context) ([]*domain.Macrocycle, error)
	// DeleteMacrocycle removes the macrocycle and everything below it and
	// returns how many records were deleted.
	DeleteMacrocycle(ctx context.Context, id string) (int, error)

	CreateMesocycle(ctx context.Context, m *domain.Mesocycle) error
	UpdateMesocycle(ctx context.Context, m *domain.Mesocycle) error
	GetMesocycle(ctx context.Context, id string) (*domain.Mesocycle, error)
	ListMesocycles(ctx context.Context, macrocycleID string) ([]*domain.Mesocycle, error)
	DeleteMesocycle(ctx context.Context, id string) (int, error)

	CreateMicrocycle(ctx context.Context, m *domain.Microcycle) error
	UpdateMicrocycle(ctx context.Context, m *domain.Microcycle) error
	GetMicrocycle(ctx context.Context, id string) (*domain.Microcycle, error)
	ListMicrocycles(ctx context.Context, mesocycleID string) ([]*domain.Microcycle, error)
	DeleteMicrocycle(ctx context.Context, id string) (int, error)

	CreateSession(ctx context.Context, s *domain.Session) error
	UpdateSession(ctx context.Context, s *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	ListSessions(ctx context.Context, f SessionFilter) ([]*domain.Session, error)
	DeleteSession(ctx context.Context, id string) error

	// ImportTree writes a whole planning tree in one transaction.
	ImportTree(ctx context.Context, tree *PlanTree) (*ImportResult, error)
}

// PlanTree is a macrocycle with everything below it, ids already assigned.
type PlanTree struct {
	Macrocycle  *domain.Macrocycle
	Mesocycles  []*domain.Mesocycle
	Microcycles []*domain.Microcycle
	Sessions    []*domain.Session
}

type ImportResult struct {
	Macrocycle      *domain.Macrocycle
	MesocycleCount  int
	MicrocycleCount int
	SessionCount    int
}

// SessionFilter selects sessions by one indexed attribute. The first
// non-empty field wins; an empty filter lists every session.
type SessionFilter struct {
	MicrocycleID string
	MesocycleID  string
	MacrocycleID string
	TrainerID    string
	Date         string
}

type AssignmentService interface {
	// Assign links a user to a macrocycle. Assigning an existing pair
	// returns the existing assignment. activate makes it the user's only
	// active assignment.
	Assign(ctx context.Context, userID, macrocycleID string, assignedBy *string, activate bool) (*domain.PlanningAssignment, error)
	// SetActive leaves exactly one active assignment for the user: the one
	// for macrocycleID, created if missing.
	SetActive(ctx context.Context, userID, macrocycleID string) (*domain.PlanningAssignment, error)
	ActiveForUser(ctx context.Context, userID string) (*domain.PlanningAssignment, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.PlanningAssignment, error)
	ListByMacrocycle(ctx context.Context, macrocycleID string) ([]*domain.PlanningAssignment, error)
	Remove(ctx context.Context, id string) error
}

type UserService interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]*domain.User, error)
	SetRole(ctx context.Context, id string, role domain.Role) (*domain.User, error)
	// PendingIDs lists users with local changes not yet pushed.
	PendingIDs(ctx context.Context) ([]string, error)
}

type ProgressService interface {
	Record(ctx context.Context, p *domain.AthleteProgress) error
	ListByUser(ctx context.Context, userID string) ([]*domain.AthleteProgress, error)
	// MarkAttendance records the status of a user for a session, updating the
	// existing mark when there is one.
	MarkAttendance(ctx context.Context, sessionID, userID string, status domain.AttendanceStatus) (*domain.Attendance, error)
	ListAttendance(ctx context.Context, sessionID string) ([]*domain.Attendance, error)
	LogExercise(ctx context.Context, l *domain.ExerciseLog) error
	ListExerciseLogs(ctx context.Context, userID string) ([]*domain.ExerciseLog, error)
}

type GroupService interface {
	Create(ctx context.Context, g *domain.Group) error
	ListByTrainer(ctx context.Context, trainerID string) ([]*domain.Group, error)
	AddMember(ctx context.Context, groupID, userID string) (*domain.GroupMember, error)
	RemoveMember(ctx context.Context, groupID, userID string) error
	Members(ctx context.Context, groupID string) ([]*domain.GroupMember, error)
}
