package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/alexanderramin/cadence/internal/changefeed"
	"github.com/alexanderramin/cadence/internal/db"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/outbox"
	"github.com/alexanderramin/cadence/internal/store"
	"github.com/google/uuid"
)

type assignmentService struct {
	writer
}

func NewAssignmentService(s *store.Store, q *outbox.Queue, uow db.UnitOfWork, feed *changefeed.Feed) AssignmentService {
	return &assignmentService{writer: newWriter(s, q, uow, feed)}
}

func (s *assignmentService) Assign(ctx context.Context, userID, macrocycleID string, assignedBy *string, activate bool) (*domain.PlanningAssignment, error) {
	var result *domain.PlanningAssignment
	err := s.within(ctx, func(t *txn) error {
		if err := t.assignmentRefsExist(userID, macrocycleID); err != nil {
			return err
		}
		existing, err := t.userAssignments(userID)
		if err != nil {
			return err
		}
		for _, a := range existing {
			if a.MacrocycleID == macrocycleID {
				result = a
			}
		}
		if result == nil {
			result = newAssignment(userID, macrocycleID, assignedBy)
			result.IsActive = activate
			if err := t.put(domain.OpInsert, result); err != nil {
				return err
			}
		}
		if activate {
			return t.activate(existing, result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *assignmentService) SetActive(ctx context.Context, userID, macrocycleID string) (*domain.PlanningAssignment, error) {
	var result *domain.PlanningAssignment
	err := s.within(ctx, func(t *txn) error {
		if err := t.assignmentRefsExist(userID, macrocycleID); err != nil {
			return err
		}
		existing, err := t.userAssignments(userID)
		if err != nil {
			return err
		}
		for _, a := range existing {
			if a.MacrocycleID == macrocycleID {
				result = a
			}
		}
		if result == nil {
			result = newAssignment(userID, macrocycleID, nil)
			result.IsActive = true
			if err := t.put(domain.OpInsert, result); err != nil {
				return err
			}
		}
		return t.activate(existing, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// activate deactivates every other active assignment in others and marks
// target active. Only records whose flag changes are rewritten.
func (t *txn) activate(others []*domain.PlanningAssignment, target *domain.PlanningAssignment) error {
	for _, a := range others {
		if a.ID == target.ID || !a.IsActive {
			continue
		}
		a.IsActive = false
		if err := t.put(domain.OpUpdate, a); err != nil {
			return err
		}
	}
	if target.IsActive {
		return nil
	}
	target.IsActive = true
	return t.put(domain.OpUpdate, target)
}

func (s *assignmentService) ActiveForUser(ctx context.Context, userID string) (*domain.PlanningAssignment, error) {
	list, err := store.Query[*domain.PlanningAssignment](ctx, s.store, domain.TablePlanningAssignments, "user_id", userID)
	if err != nil {
		return nil, err
	}
	for _, a := range list {
		if a.IsActive {
			return a, nil
		}
	}
	return nil, fmt.Errorf("active assignment for user %s: %w", userID, store.ErrNotFound)
}

func (s *assignmentService) ListByUser(ctx context.Context, userID string) ([]*domain.PlanningAssignment, error) {
	list, err := store.Query[*domain.PlanningAssignment](ctx, s.store, domain.TablePlanningAssignments, "user_id", userID)
	if err != nil {
		return nil, err
	}
	sortAssignments(list)
	return list, nil
}

func (s *assignmentService) ListByMacrocycle(ctx context.Context, macrocycleID string) ([]*domain.PlanningAssignment, error) {
	list, err := store.Query[*domain.PlanningAssignment](ctx, s.store, domain.TablePlanningAssignments, "macrocycle_id", macrocycleID)
	if err != nil {
		return nil, err
	}
	sortAssignments(list)
	return list, nil
}

func (s *assignmentService) Remove(ctx context.Context, id string) error {
	return s.within(ctx, func(t *txn) error {
		if _, err := t.store.Get(t.ctx, domain.TablePlanningAssignments, id); err != nil {
			return err
		}
		return t.remove(domain.TablePlanningAssignments, id)
	})
}

func (t *txn) userAssignments(userID string) ([]*domain.PlanningAssignment, error) {
	return store.Query[*domain.PlanningAssignment](t.ctx, t.store, domain.TablePlanningAssignments, "user_id", userID)
}

func (t *txn) assignmentRefsExist(userID, macrocycleID string) error {
	if userID == "" || macrocycleID == "" {
		return invalid("user_id and macrocycle_id are required")
	}
	if err := t.mustExist(domain.TableUsers, userID); err != nil {
		return err
	}
	return t.mustExist(domain.TableMacrocycles, macrocycleID)
}

func newAssignment(userID, macrocycleID string, assignedBy *string) *domain.PlanningAssignment {
	return &domain.PlanningAssignment{
		ID:           uuid.New().String(),
		UserID:       userID,
		MacrocycleID: macrocycleID,
		AssignedAt:   domain.Now(),
		AssignedBy:   assignedBy,
	}
}

// sortAssignments puts the active assignment first, then newest first.
func sortAssignments(list []*domain.PlanningAssignment) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].IsActive != list[j].IsActive {
			return list[i].IsActive
		}
		return list[i].AssignedAt > list[j].AssignedAt
	})
}
