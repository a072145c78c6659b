package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *services) mustSession(t *testing.T, date string) *domain.Session {
	t.Helper()
	sess := testutil.NewTestSession(date)
	require.NoError(t, s.planning.CreateSession(context.Background(), sess))
	return sess
}

func TestProgressService_Record(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	athlete := s.mustUser(t, "ana", domain.RoleAthlete)
	sess := s.mustSession(t, "2024-03-01")

	p := &domain.AthleteProgress{
		UserID: athlete.ID, SessionID: sess.ID,
		TrainingQuality: 8, RPE: 7, DurationMin: 60,
		EnergyLevel: testutil.Ptr(domain.EnergyHigh),
	}
	require.NoError(t, s.progress.Record(ctx, p))
	assert.NotEmpty(t, p.ID)

	list, err := s.progress.ListByUser(ctx, athlete.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 7, list[0].RPE)
	require.NotNil(t, list[0].EnergyLevel)
	assert.Equal(t, domain.EnergyHigh, *list[0].EnergyLevel)
}

func TestProgressService_RecordValidation(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	athlete := s.mustUser(t, "ana", domain.RoleAthlete)
	sess := s.mustSession(t, "2024-03-01")
	queued := len(s.drain(t))

	tests := []struct {
		name string
		p    domain.AthleteProgress
	}{
		{"quality too low", domain.AthleteProgress{UserID: athlete.ID, SessionID: sess.ID, TrainingQuality: 0, RPE: 5}},
		{"rpe too high", domain.AthleteProgress{UserID: athlete.ID, SessionID: sess.ID, TrainingQuality: 5, RPE: 11}},
		{"negative duration", domain.AthleteProgress{UserID: athlete.ID, SessionID: sess.ID, TrainingQuality: 5, RPE: 5, DurationMin: -1}},
		{"bad energy", domain.AthleteProgress{UserID: athlete.ID, SessionID: sess.ID, TrainingQuality: 5, RPE: 5, EnergyLevel: testutil.Ptr(domain.EnergyLevel("extreme"))}},
		{"unknown user", domain.AthleteProgress{UserID: "ghost", SessionID: sess.ID, TrainingQuality: 5, RPE: 5}},
		{"unknown session", domain.AthleteProgress{UserID: athlete.ID, SessionID: "ghost", TrainingQuality: 5, RPE: 5}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.p
			err := s.progress.Record(ctx, &p)
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
	assert.Len(t, s.drain(t), queued)
}

func TestProgressService_MarkAttendanceUpserts(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	ana := s.mustUser(t, "ana", domain.RoleAthlete)
	bruno := s.mustUser(t, "bruno", domain.RoleAthlete)
	sess := s.mustSession(t, "2024-03-01")

	first, err := s.progress.MarkAttendance(ctx, sess.ID, ana.ID, domain.AttendancePresent)
	require.NoError(t, err)
	second, err := s.progress.MarkAttendance(ctx, sess.ID, ana.ID, domain.AttendanceAbsent)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, domain.AttendanceAbsent, second.Status)

	_, err = s.progress.MarkAttendance(ctx, sess.ID, bruno.ID, domain.AttendancePresent)
	require.NoError(t, err)

	marks, err := s.progress.ListAttendance(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, marks, 2)

	_, err = s.progress.MarkAttendance(ctx, sess.ID, ana.ID, "late")
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = s.progress.MarkAttendance(ctx, "ghost", ana.ID, domain.AttendancePresent)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestProgressService_ExerciseLogs(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()
	ana := s.mustUser(t, "ana", domain.RoleAthlete)

	older := &domain.ExerciseLog{UserID: ana.ID, ExerciseName: "Squat", Microcycle: "W1", PerformedAt: "2024-03-01T10:00:00.000Z"}
	newer := &domain.ExerciseLog{UserID: ana.ID, ExerciseName: " Bench ", Microcycle: "W1", Reps: testutil.Ptr("5x5")}
	require.NoError(t, s.progress.LogExercise(ctx, older))
	require.NoError(t, s.progress.LogExercise(ctx, newer))
	assert.Equal(t, "Bench", newer.ExerciseName)
	assert.NotEmpty(t, newer.PerformedAt)

	logs, err := s.progress.ListExerciseLogs(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, newer.ID, logs[0].ID, "newest first")

	err = s.progress.LogExercise(ctx, &domain.ExerciseLog{UserID: ana.ID})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
