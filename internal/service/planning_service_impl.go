package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alexanderramin/cadence/internal/changefeed"
	"github.com/alexanderramin/cadence/internal/db"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/outbox"
	"github.com/alexanderramin/cadence/internal/store"
	"github.com/google/uuid"
)

const defaultSessionType = "training"

type planningService struct {
	writer
}

func NewPlanningService(s *store.Store, q *outbox.Queue, uow db.UnitOfWork, feed *changefeed.Feed) PlanningService {
	return &planningService{writer: newWriter(s, q, uow, feed)}
}

// Macrocycles

func (s *planningService) CreateMacrocycle(ctx context.Context, m *domain.Macrocycle) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = domain.PlanningDraft
	}
	if err := validateMacrocycle(m); err != nil {
		return err
	}
	return s.within(ctx, func(t *txn) error {
		if m.CreatedBy != nil {
			if err := t.mustExist(domain.TableUsers, *m.CreatedBy); err != nil {
				return err
			}
		}
		return t.put(domain.OpInsert, m)
	})
}

func (s *planningService) UpdateMacrocycle(ctx context.Context, m *domain.Macrocycle) error {
	if err := validateMacrocycle(m); err != nil {
		return err
	}
	return s.within(ctx, func(t *txn) error {
		if _, err := t.store.Get(t.ctx, domain.TableMacrocycles, m.ID); err != nil {
			return err
		}
		return t.put(domain.OpUpdate, m)
	})
}

func (s *planningService) GetMacrocycle(ctx context.Context, id string) (*domain.Macrocycle, error) {
	return store.Load[*domain.Macrocycle](ctx, s.store, domain.TableMacrocycles, id)
}

func (s *planningService) ListMacrocycles(ctx context.Context) ([]*domain.Macrocycle, error) {
	out, err := store.All[*domain.Macrocycle](ctx, s.store, domain.TableMacrocycles)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartDate != out[j].StartDate {
			return out[i].StartDate < out[j].StartDate
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// DeleteMacrocycle collects the whole subtree first and then deletes it
// bottom-up: sessions, microcycles, mesocycles, assignments, the macrocycle.
func (s *planningService) DeleteMacrocycle(ctx context.Context, id string) (int, error) {
	removed := 0
	err := s.within(ctx, func(t *txn) error {
		if _, err := t.store.Get(t.ctx, domain.TableMacrocycles, id); err != nil {
			return err
		}
		mesoIDs, err := t.ids(domain.TableMesocycles, "macrocycle_id", id)
		if err != nil {
			return err
		}
		var microIDs []string
		for _, mid := range mesoIDs {
			ids, err := t.ids(domain.TableMicrocycles, "mesocycle_id", mid)
			if err != nil {
				return err
			}
			microIDs = append(microIDs, ids...)
		}
		sessionIDs, err := t.sessionsUnder(microIDs, mesoIDs, []string{id})
		if err != nil {
			return err
		}
		assignmentIDs, err := t.ids(domain.TablePlanningAssignments, "macrocycle_id", id)
		if err != nil {
			return err
		}

		steps := []struct {
			table domain.Table
			ids   []string
		}{
			{domain.TableSessions, sessionIDs},
			{domain.TableMicrocycles, microIDs},
			{domain.TableMesocycles, mesoIDs},
			{domain.TablePlanningAssignments, assignmentIDs},
			{domain.TableMacrocycles, []string{id}},
		}
		for _, step := range steps {
			for _, rid := range step.ids {
				if err := t.remove(step.table, rid); err != nil {
					return err
				}
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Mesocycles

func (s *planningService) CreateMesocycle(ctx context.Context, m *domain.Mesocycle) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = domain.PlanningDraft
	}
	if err := validateMesocycle(m); err != nil {
		return err
	}
	return s.within(ctx, func(t *txn) error {
		if err := t.mustExist(domain.TableMacrocycles, m.MacrocycleID); err != nil {
			return err
		}
		return t.put(domain.OpInsert, m)
	})
}

func (s *planningService) UpdateMesocycle(ctx context.Context, m *domain.Mesocycle) error {
	if err := validateMesocycle(m); err != nil {
		return err
	}
	return s.within(ctx, func(t *txn) error {
		if _, err := t.store.Get(t.ctx, domain.TableMesocycles, m.ID); err != nil {
			return err
		}
		if err := t.mustExist(domain.TableMacrocycles, m.MacrocycleID); err != nil {
			return err
		}
		return t.put(domain.OpUpdate, m)
	})
}

func (s *planningService) GetMesocycle(ctx context.Context, id string) (*domain.Mesocycle, error) {
	return store.Load[*domain.Mesocycle](ctx, s.store, domain.TableMesocycles, id)
}

func (s *planningService) ListMesocycles(ctx context.Context, macrocycleID string) ([]*domain.Mesocycle, error) {
	out, err := store.Query[*domain.Mesocycle](ctx, s.store, domain.TableMesocycles, "macrocycle_id", macrocycleID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].StartDate < out[j].StartDate
	})
	return out, nil
}

func (s *planningService) DeleteMesocycle(ctx context.Context, id string) (int, error) {
	removed := 0
	err := s.within(ctx, func(t *txn) error {
		if _, err := t.store.Get(t.ctx, domain.TableMesocycles, id); err != nil {
			return err
		}
		microIDs, err := t.ids(domain.TableMicrocycles, "mesocycle_id", id)
		if err != nil {
			return err
		}
		sessionIDs, err := t.sessionsUnder(microIDs, []string{id}, nil)
		if err != nil {
			return err
		}
		for _, sid := range sessionIDs {
			if err := t.remove(domain.TableSessions, sid); err != nil {
				return err
			}
			removed++
		}
		for _, mid := range microIDs {
			if err := t.remove(domain.TableMicrocycles, mid); err != nil {
				return err
			}
			removed++
		}
		if err := t.remove(domain.TableMesocycles, id); err != nil {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Microcycles

func (s *planningService) CreateMicrocycle(ctx context.Context, m *domain.Microcycle) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = domain.PlanningDraft
	}
	if err := validateMicrocycle(m); err != nil {
		return err
	}
	return s.within(ctx, func(t *txn) error {
		if err := t.mustExist(domain.TableMesocycles, m.MesocycleID); err != nil {
			return err
		}
		return t.put(domain.OpInsert, m)
	})
}

func (s *planningService) UpdateMicrocycle(ctx context.Context, m *domain.Microcycle) error {
	if err := validateMicrocycle(m); err != nil {
		return err
	}
	return s.within(ctx, func(t *txn) error {
		if _, err := t.store.Get(t.ctx, domain.TableMicrocycles, m.ID); err != nil {
			return err
		}
		if err := t.mustExist(domain.TableMesocycles, m.MesocycleID); err != nil {
			return err
		}
		return t.put(domain.OpUpdate, m)
	})
}

func (s *planningService) GetMicrocycle(ctx context.Context, id string) (*domain.Microcycle, error) {
	return store.Load[*domain.Microcycle](ctx, s.store, domain.TableMicrocycles, id)
}

func (s *planningService) ListMicrocycles(ctx context.Context, mesocycleID string) ([]*domain.Microcycle, error) {
	out, err := store.Query[*domain.Microcycle](ctx, s.store, domain.TableMicrocycles, "mesocycle_id", mesocycleID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].WeekNumber < out[j].WeekNumber })
	return out, nil
}

func (s *planningService) DeleteMicrocycle(ctx context.Context, id string) (int, error) {
	removed := 0
	err := s.within(ctx, func(t *txn) error {
		if _, err := t.store.Get(t.ctx, domain.TableMicrocycles, id); err != nil {
			return err
		}
		sessionIDs, err := t.ids(domain.TableSessions, "microcycle_id", id)
		if err != nil {
			return err
		}
		for _, sid := range sessionIDs {
			if err := t.remove(domain.TableSessions, sid); err != nil {
				return err
			}
			removed++
		}
		if err := t.remove(domain.TableMicrocycles, id); err != nil {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Sessions

func (s *planningService) CreateSession(ctx context.Context, sess *domain.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	if sess.Status == "" {
		sess.Status = domain.SessionScheduled
	}
	if sess.SessionType == "" {
		sess.SessionType = defaultSessionType
	}
	if err := validateSession(sess); err != nil {
		return err
	}
	return s.within(ctx, func(t *txn) error {
		if err := t.sessionParentsExist(sess); err != nil {
			return err
		}
		return t.put(domain.OpInsert, sess)
	})
}

func (s *planningService) UpdateSession(ctx context.Context, sess *domain.Session) error {
	if err := validateSession(sess); err != nil {
		return err
	}
	return s.within(ctx, func(t *txn) error {
		if _, err := t.store.Get(t.ctx, domain.TableSessions, sess.ID); err != nil {
			return err
		}
		if err := t.sessionParentsExist(sess); err != nil {
			return err
		}
		return t.put(domain.OpUpdate, sess)
	})
}

func (s *planningService) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	return store.Load[*domain.Session](ctx, s.store, domain.TableSessions, id)
}

func (s *planningService) ListSessions(ctx context.Context, f SessionFilter) ([]*domain.Session, error) {
	var (
		out []*domain.Session
		err error
	)
	switch {
	case f.MicrocycleID != "":
		out, err = store.Query[*domain.Session](ctx, s.store, domain.TableSessions, "microcycle_id", f.MicrocycleID)
	case f.MesocycleID != "":
		out, err = store.Query[*domain.Session](ctx, s.store, domain.TableSessions, "mesocycle_id", f.MesocycleID)
	case f.MacrocycleID != "":
		out, err = store.Query[*domain.Session](ctx, s.store, domain.TableSessions, "macrocycle_id", f.MacrocycleID)
	case f.TrainerID != "":
		out, err = store.Query[*domain.Session](ctx, s.store, domain.TableSessions, "trainer_id", f.TrainerID)
	case f.Date != "":
		out, err = store.Query[*domain.Session](ctx, s.store, domain.TableSessions, "date", f.Date)
	default:
		out, err = store.All[*domain.Session](ctx, s.store, domain.TableSessions)
	}
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].OrderIndex < out[j].OrderIndex
	})
	return out, nil
}

func (s *planningService) DeleteSession(ctx context.Context, id string) error {
	return s.within(ctx, func(t *txn) error {
		if _, err := t.store.Get(t.ctx, domain.TableSessions, id); err != nil {
			return err
		}
		return t.remove(domain.TableSessions, id)
	})
}

// sessionsUnder returns the distinct ids of sessions attached to any of the
// given microcycles, mesocycles or macrocycles.
func (t *txn) sessionsUnder(microIDs, mesoIDs, macroIDs []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	collect := func(field string, parents []string) error {
		for _, pid := range parents {
			ids, err := t.ids(domain.TableSessions, field, pid)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if !seen[id] {
					seen[id] = true
					out = append(out, id)
				}
			}
		}
		return nil
	}
	if err := collect("microcycle_id", microIDs); err != nil {
		return nil, err
	}
	if err := collect("mesocycle_id", mesoIDs); err != nil {
		return nil, err
	}
	if err := collect("macrocycle_id", macroIDs); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *txn) sessionParentsExist(sess *domain.Session) error {
	refs := []struct {
		table domain.Table
		id    *string
	}{
		{domain.TableMacrocycles, sess.MacrocycleID},
		{domain.TableMesocycles, sess.MesocycleID},
		{domain.TableMicrocycles, sess.MicrocycleID},
		{domain.TableUsers, sess.TrainerID},
	}
	for _, r := range refs {
		if r.id == nil || *r.id == "" {
			continue
		}
		if err := t.mustExist(r.table, *r.id); err != nil {
			return err
		}
	}
	return nil
}

func validateMacrocycle(m *domain.Macrocycle) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return invalid("macrocycle name is required")
	}
	if err := domain.ValidateDateRange(m.StartDate, m.EndDate); err != nil {
		return invalid("macrocycle %q: %v", m.Name, err)
	}
	if !domain.ValidPlanningStatuses[m.Status] {
		return invalid("macrocycle status %q is invalid", m.Status)
	}
	return nil
}

func validateMesocycle(m *domain.Mesocycle) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return invalid("mesocycle name is required")
	}
	if m.MacrocycleID == "" {
		return invalid("mesocycle %q: macrocycle_id is required", m.Name)
	}
	if err := domain.ValidateDateRange(m.StartDate, m.EndDate); err != nil {
		return invalid("mesocycle %q: %v", m.Name, err)
	}
	if m.OrderIndex < 0 {
		return invalid("mesocycle %q: order_index must be >= 0", m.Name)
	}
	if !domain.ValidPlanningStatuses[m.Status] {
		return invalid("mesocycle status %q is invalid", m.Status)
	}
	return nil
}

func validateMicrocycle(m *domain.Microcycle) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return invalid("microcycle name is required")
	}
	if m.MesocycleID == "" {
		return invalid("microcycle %q: mesocycle_id is required", m.Name)
	}
	if m.WeekNumber < 1 {
		return invalid("microcycle %q: week_number must be >= 1", m.Name)
	}
	if m.StartDate != nil && m.EndDate != nil {
		if err := domain.ValidateDateRange(*m.StartDate, *m.EndDate); err != nil {
			return invalid("microcycle %q: %v", m.Name, err)
		}
	}
	if !domain.ValidPlanningStatuses[m.Status] {
		return invalid("microcycle status %q is invalid", m.Status)
	}
	return nil
}

func validateSession(s *domain.Session) error {
	if _, err := time.Parse(domain.DateLayout, s.Date); err != nil {
		return invalid("session date %q (expected YYYY-MM-DD)", s.Date)
	}
	if !domain.ValidSessionStatuses[s.Status] {
		return invalid("session status %q is invalid", s.Status)
	}
	if s.OrderIndex < 0 {
		return invalid("session order_index must be >= 0")
	}
	return nil
}

// ImportTree validates every record up front and then writes the tree
// top-down. Any failure rolls the whole import back.
func (s *planningService) ImportTree(ctx context.Context, tree *PlanTree) (*ImportResult, error) {
	if tree == nil || tree.Macrocycle == nil {
		return nil, invalid("import has no macrocycle")
	}
	m := tree.Macrocycle
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = domain.PlanningDraft
	}
	if err := validateMacrocycle(m); err != nil {
		return nil, err
	}
	for _, meso := range tree.Mesocycles {
		if meso.Status == "" {
			meso.Status = domain.PlanningDraft
		}
		if err := validateMesocycle(meso); err != nil {
			return nil, err
		}
	}
	for _, micro := range tree.Microcycles {
		if micro.Status == "" {
			micro.Status = domain.PlanningDraft
		}
		if err := validateMicrocycle(micro); err != nil {
			return nil, err
		}
	}
	for _, sess := range tree.Sessions {
		if sess.Status == "" {
			sess.Status = domain.SessionScheduled
		}
		if sess.SessionType == "" {
			sess.SessionType = defaultSessionType
		}
		if err := validateSession(sess); err != nil {
			return nil, err
		}
	}

	err := s.within(ctx, func(t *txn) error {
		if m.CreatedBy != nil {
			if err := t.mustExist(domain.TableUsers, *m.CreatedBy); err != nil {
				return err
			}
		}
		if err := t.put(domain.OpInsert, m); err != nil {
			return fmt.Errorf("creating macrocycle: %w", err)
		}
		for _, meso := range tree.Mesocycles {
			if err := t.mustExist(domain.TableMacrocycles, meso.MacrocycleID); err != nil {
				return err
			}
			if err := t.put(domain.OpInsert, meso); err != nil {
				return fmt.Errorf("creating mesocycle %q: %w", meso.Name, err)
			}
		}
		for _, micro := range tree.Microcycles {
			if err := t.mustExist(domain.TableMesocycles, micro.MesocycleID); err != nil {
				return err
			}
			if err := t.put(domain.OpInsert, micro); err != nil {
				return fmt.Errorf("creating microcycle %q: %w", micro.Name, err)
			}
		}
		for _, sess := range tree.Sessions {
			if err := t.sessionParentsExist(sess); err != nil {
				return err
			}
			if err := t.put(domain.OpInsert, sess); err != nil {
				return fmt.Errorf("creating session on %s: %w", sess.Date, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ImportResult{
		Macrocycle:      m,
		MesocycleCount:  len(tree.Mesocycles),
		MicrocycleCount: len(tree.Microcycles),
		SessionCount:    len(tree.Sessions),
	}, nil
}
