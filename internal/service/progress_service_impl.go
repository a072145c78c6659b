package service

import (
	"context"
	"sort"
	"strings"

	"github.com/alexanderramin/cadence/internal/changefeed"
	"github.com/alexanderramin/cadence/internal/db"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/outbox"
	"github.com/alexanderramin/cadence/internal/store"
	"github.com/google/uuid"
)

type progressService struct {
	writer
}

func NewProgressService(s *store.Store, q *outbox.Queue, uow db.UnitOfWork, feed *changefeed.Feed) ProgressService {
	return &progressService{writer: newWriter(s, q, uow, feed)}
}

func (s *progressService) Record(ctx context.Context, p *domain.AthleteProgress) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.TrainingQuality < 1 || p.TrainingQuality > 10 {
		return invalid("training_quality must be between 1 and 10, got %d", p.TrainingQuality)
	}
	if p.RPE < 1 || p.RPE > 10 {
		return invalid("rpe must be between 1 and 10, got %d", p.RPE)
	}
	if p.DurationMin < 0 {
		return invalid("duration_min must be >= 0")
	}
	if p.EnergyLevel != nil {
		switch *p.EnergyLevel {
		case domain.EnergyLow, domain.EnergyMedium, domain.EnergyHigh:
		default:
			return invalid("energy_level %q is invalid", *p.EnergyLevel)
		}
	}
	return s.within(ctx, func(t *txn) error {
		if err := t.mustExist(domain.TableUsers, p.UserID); err != nil {
			return err
		}
		if err := t.mustExist(domain.TableSessions, p.SessionID); err != nil {
			return err
		}
		return t.put(domain.OpInsert, p)
	})
}

func (s *progressService) ListByUser(ctx context.Context, userID string) ([]*domain.AthleteProgress, error) {
	list, err := store.Query[*domain.AthleteProgress](ctx, s.store, domain.TableAthleteProgress, "user_id", userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].UpdatedAt > list[j].UpdatedAt })
	return list, nil
}

func (s *progressService) MarkAttendance(ctx context.Context, sessionID, userID string, status domain.AttendanceStatus) (*domain.Attendance, error) {
	if status != domain.AttendancePresent && status != domain.AttendanceAbsent {
		return nil, invalid("attendance status %q is invalid", status)
	}
	var mark *domain.Attendance
	err := s.within(ctx, func(t *txn) error {
		if err := t.mustExist(domain.TableSessions, sessionID); err != nil {
			return err
		}
		if err := t.mustExist(domain.TableUsers, userID); err != nil {
			return err
		}
		marks, err := store.Query[*domain.Attendance](t.ctx, t.store, domain.TableAttendance, "session_id", sessionID)
		if err != nil {
			return err
		}
		for _, a := range marks {
			if a.UserID == userID {
				mark = a
				break
			}
		}
		if mark == nil {
			mark = &domain.Attendance{ID: uuid.New().String(), SessionID: sessionID, UserID: userID, Status: status}
			return t.put(domain.OpInsert, mark)
		}
		if mark.Status == status {
			return nil
		}
		mark.Status = status
		return t.put(domain.OpUpdate, mark)
	})
	if err != nil {
		return nil, err
	}
	return mark, nil
}

func (s *progressService) ListAttendance(ctx context.Context, sessionID string) ([]*domain.Attendance, error) {
	list, err := store.Query[*domain.Attendance](ctx, s.store, domain.TableAttendance, "session_id", sessionID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].UserID < list[j].UserID })
	return list, nil
}

func (s *progressService) LogExercise(ctx context.Context, l *domain.ExerciseLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	l.ExerciseName = strings.TrimSpace(l.ExerciseName)
	if l.ExerciseName == "" {
		return invalid("exercise_name is required")
	}
	if l.PerformedAt == "" {
		l.PerformedAt = domain.Now()
	}
	return s.within(ctx, func(t *txn) error {
		if err := t.mustExist(domain.TableUsers, l.UserID); err != nil {
			return err
		}
		return t.put(domain.OpInsert, l)
	})
}

func (s *progressService) ListExerciseLogs(ctx context.Context, userID string) ([]*domain.ExerciseLog, error) {
	list, err := store.Query[*domain.ExerciseLog](ctx, s.store, domain.TableExerciseLogs, "user_id", userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].PerformedAt > list[j].PerformedAt })
	return list, nil
}
