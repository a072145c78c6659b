package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/service"
	"github.com/google/uuid"
)

const defaultSessionType = "training"

// Convert transforms a validated PlanDocument into a planning tree with fresh
// ids. Call ValidatePlanDocument first; Convert assumes the document is valid.
func Convert(doc *PlanDocument) (*service.PlanTree, error) {
	macro := &domain.Macrocycle{
		ID:        uuid.New().String(),
		Name:      doc.Macrocycle.Name,
		Season:    doc.Macrocycle.Season,
		StartDate: doc.Macrocycle.StartDate,
		EndDate:   doc.Macrocycle.EndDate,
		Goal:      doc.Macrocycle.Goal,
		Notes:     doc.Macrocycle.Notes,
		Status:    domain.PlanningStatus(doc.Macrocycle.Status),
		CreatedBy: doc.Macrocycle.CreatedBy,
	}
	if macro.Status == "" {
		macro.Status = domain.PlanningDraft
	}
	tree := &service.PlanTree{Macrocycle: macro}

	mesoIDs := make(map[string]string) // ref -> UUID
	for _, m := range doc.Mesocycles {
		meso := &domain.Mesocycle{
			ID:           uuid.New().String(),
			MacrocycleID: macro.ID,
			Name:         m.Name,
			StartDate:    m.StartDate,
			EndDate:      m.EndDate,
			Phase:        m.Phase,
			Focus:        m.Focus,
			Goal:         m.Goal,
			OrderIndex:   m.Order,
			Status:       domain.PlanningDraft,
		}
		mesoIDs[m.Ref] = meso.ID
		tree.Mesocycles = append(tree.Mesocycles, meso)
	}

	microIDs := make(map[string]string)
	microParent := make(map[string]string) // micro ref -> meso UUID
	for _, m := range doc.Microcycles {
		mesoID, ok := mesoIDs[m.MesocycleRef]
		if !ok {
			return nil, fmt.Errorf("mesocycle_ref %q not found for microcycle %q", m.MesocycleRef, m.Ref)
		}
		micro := &domain.Microcycle{
			ID:          uuid.New().String(),
			MesocycleID: mesoID,
			Name:        m.Name,
			WeekNumber:  m.Week,
			StartDate:   m.StartDate,
			EndDate:     m.EndDate,
			Focus:       m.Focus,
			Load:        m.Load,
			Status:      domain.PlanningDraft,
		}
		microIDs[m.Ref] = micro.ID
		microParent[m.Ref] = mesoID
		tree.Microcycles = append(tree.Microcycles, micro)
	}

	for i, s := range doc.Sessions {
		// Every session carries the full chain of ancestors it has.
		macroID := macro.ID
		sess := &domain.Session{
			ID:           uuid.New().String(),
			MacrocycleID: &macroID,
			Name:         s.Name,
			Date:         s.Date,
			SessionType:  coalesce(s.Type, defaultsSessionType(doc.Defaults), defaultSessionType),
			OrderIndex:   s.Order,
			Status:       domain.SessionScheduled,
			TrainerID:    s.TrainerID,
			Notes:        s.Notes,
		}
		if sess.TrainerID == nil && doc.Defaults != nil {
			sess.TrainerID = doc.Defaults.TrainerID
		}
		if s.MicrocycleRef != "" {
			microID, ok := microIDs[s.MicrocycleRef]
			if !ok {
				return nil, fmt.Errorf("microcycle_ref %q not found for sessions[%d]", s.MicrocycleRef, i)
			}
			mesoID := microParent[s.MicrocycleRef]
			sess.MicrocycleID = &microID
			sess.MesocycleID = &mesoID
		} else if s.MesocycleRef != "" {
			mesoID, ok := mesoIDs[s.MesocycleRef]
			if !ok {
				return nil, fmt.Errorf("mesocycle_ref %q not found for sessions[%d]", s.MesocycleRef, i)
			}
			sess.MesocycleID = &mesoID
		}
		tree.Sessions = append(tree.Sessions, sess)
	}

	return tree, nil
}

// ValidationError carries every problem ValidatePlanDocument found.
type ValidationError struct {
	Errs []error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("plan has %d validation error(s): %v", len(e.Errs), errors.Join(e.Errs...))
}

func (e *ValidationError) Unwrap() error { return service.ErrInvalidInput }

// Import validates, converts and writes doc through the planning service in
// one transaction.
func Import(ctx context.Context, planning service.PlanningService, doc *PlanDocument) (*service.ImportResult, error) {
	if errs := ValidatePlanDocument(doc); len(errs) > 0 {
		return nil, &ValidationError{Errs: errs}
	}
	tree, err := Convert(doc)
	if err != nil {
		return nil, fmt.Errorf("converting plan: %w", err)
	}
	return planning.ImportTree(ctx, tree)
}

// ImportFile loads path and imports it.
func ImportFile(ctx context.Context, planning service.PlanningService, path string) (*service.ImportResult, error) {
	doc, err := LoadPlanDocument(path)
	if err != nil {
		return nil, err
	}
	return Import(ctx, planning, doc)
}

func defaultsSessionType(d *DefaultsImport) string {
	if d != nil {
		return d.SessionType
	}
	return ""
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
