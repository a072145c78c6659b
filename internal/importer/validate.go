package importer

import (
	"fmt"
	"time"

	"github.com/alexanderramin/cadence/internal/domain"
)

// ValidatePlanDocument checks the document before conversion and returns
// every problem found, not just the first.
func ValidatePlanDocument(doc *PlanDocument) []error {
	var errs []error

	errs = append(errs, validateMacrocycle(&doc.Macrocycle)...)

	mesoRefs := make(map[string]bool)
	errs = append(errs, validateMesocycles(doc.Mesocycles, mesoRefs)...)

	microRefs := make(map[string]bool)
	errs = append(errs, validateMicrocycles(doc.Microcycles, mesoRefs, microRefs)...)

	errs = append(errs, validateSessions(doc.Sessions, mesoRefs, microRefs)...)

	return errs
}

func validateMacrocycle(m *MacrocycleImport) []error {
	var errs []error

	if m.Name == "" {
		errs = append(errs, fmt.Errorf("macrocycle.name is required"))
	}
	errs = append(errs, validateRange("macrocycle", m.StartDate, m.EndDate)...)
	if m.Status != "" && !domain.ValidPlanningStatuses[domain.PlanningStatus(m.Status)] {
		errs = append(errs, fmt.Errorf("macrocycle.status: invalid value %q", m.Status))
	}

	return errs
}

func validateMesocycles(mesos []MesocycleImport, mesoRefs map[string]bool) []error {
	var errs []error

	for i, m := range mesos {
		prefix := fmt.Sprintf("mesocycles[%d]", i)

		if m.Ref == "" {
			errs = append(errs, fmt.Errorf("%s.ref is required", prefix))
		} else if mesoRefs[m.Ref] {
			errs = append(errs, fmt.Errorf("%s.ref: duplicate ref %q", prefix, m.Ref))
		} else {
			mesoRefs[m.Ref] = true
		}

		if m.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		if m.Order < 0 {
			errs = append(errs, fmt.Errorf("%s.order must be >= 0", prefix))
		}
		errs = append(errs, validateRange(prefix, m.StartDate, m.EndDate)...)
	}

	return errs
}

func validateMicrocycles(micros []MicrocycleImport, mesoRefs, microRefs map[string]bool) []error {
	var errs []error
	weeks := make(map[string]map[int]bool)

	for i, m := range micros {
		prefix := fmt.Sprintf("microcycles[%d]", i)

		if m.Ref == "" {
			errs = append(errs, fmt.Errorf("%s.ref is required", prefix))
		} else if microRefs[m.Ref] {
			errs = append(errs, fmt.Errorf("%s.ref: duplicate ref %q", prefix, m.Ref))
		} else {
			microRefs[m.Ref] = true
		}

		if m.MesocycleRef == "" {
			errs = append(errs, fmt.Errorf("%s.mesocycle_ref is required", prefix))
		} else if !mesoRefs[m.MesocycleRef] {
			errs = append(errs, fmt.Errorf("%s.mesocycle_ref: ref %q not found in mesocycles", prefix, m.MesocycleRef))
		}

		if m.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		if m.Week < 1 {
			errs = append(errs, fmt.Errorf("%s.week must be >= 1", prefix))
		} else if m.MesocycleRef != "" {
			if weeks[m.MesocycleRef] == nil {
				weeks[m.MesocycleRef] = make(map[int]bool)
			}
			if weeks[m.MesocycleRef][m.Week] {
				errs = append(errs, fmt.Errorf("%s.week: week %d already used in mesocycle %q", prefix, m.Week, m.MesocycleRef))
			}
			weeks[m.MesocycleRef][m.Week] = true
		}

		errs = append(errs, validateOptionalDate(prefix+".start_date", m.StartDate)...)
		errs = append(errs, validateOptionalDate(prefix+".end_date", m.EndDate)...)
		if m.StartDate != nil && m.EndDate != nil {
			start, startErr := time.Parse(domain.DateLayout, *m.StartDate)
			end, endErr := time.Parse(domain.DateLayout, *m.EndDate)
			if startErr == nil && endErr == nil && end.Before(start) {
				errs = append(errs, fmt.Errorf("%s.end_date %q must not be before start_date %q", prefix, *m.EndDate, *m.StartDate))
			}
		}
	}

	return errs
}

func validateSessions(sessions []SessionImport, mesoRefs, microRefs map[string]bool) []error {
	var errs []error

	for i, s := range sessions {
		prefix := fmt.Sprintf("sessions[%d]", i)

		if s.MicrocycleRef != "" && s.MesocycleRef != "" {
			errs = append(errs, fmt.Errorf("%s: set microcycle_ref or mesocycle_ref, not both", prefix))
		}
		if s.MicrocycleRef != "" && !microRefs[s.MicrocycleRef] {
			errs = append(errs, fmt.Errorf("%s.microcycle_ref: ref %q not found in microcycles", prefix, s.MicrocycleRef))
		}
		if s.MesocycleRef != "" && !mesoRefs[s.MesocycleRef] {
			errs = append(errs, fmt.Errorf("%s.mesocycle_ref: ref %q not found in mesocycles", prefix, s.MesocycleRef))
		}
		if s.Date == "" {
			errs = append(errs, fmt.Errorf("%s.date is required", prefix))
		} else if _, err := time.Parse(domain.DateLayout, s.Date); err != nil {
			errs = append(errs, fmt.Errorf("%s.date: invalid date format %q (expected YYYY-MM-DD)", prefix, s.Date))
		}
		if s.Order < 0 {
			errs = append(errs, fmt.Errorf("%s.order must be >= 0", prefix))
		}
	}

	return errs
}

func validateRange(prefix, start, end string) []error {
	var errs []error
	if start == "" {
		errs = append(errs, fmt.Errorf("%s.start_date is required", prefix))
	}
	if end == "" {
		errs = append(errs, fmt.Errorf("%s.end_date is required", prefix))
	}
	if len(errs) > 0 {
		return errs
	}
	if err := domain.ValidateDateRange(start, end); err != nil {
		return []error{fmt.Errorf("%s: %w", prefix, err)}
	}
	return nil
}

func validateOptionalDate(field string, dateStr *string) []error {
	if dateStr == nil || *dateStr == "" {
		return nil
	}
	if _, err := time.Parse(domain.DateLayout, *dateStr); err != nil {
		return []error{fmt.Errorf("%s: invalid date format %q (expected YYYY-MM-DD)", field, *dateStr)}
	}
	return nil
}
