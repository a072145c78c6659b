package domain

// AthleteProgress is a per-session self report from an athlete.
type AthleteProgress struct {
	ID              string       `json:"id"`
	UserID          string       `json:"user_id"`
	SessionID       string       `json:"session_id"`
	WeightMorning   *float64     `json:"weight_morning,omitempty"`
	TrainingQuality int          `json:"training_quality"`
	RPE             int          `json:"rpe"`
	DurationMin     int          `json:"duration_min"`
	EnergyLevel     *EnergyLevel `json:"energy_level,omitempty"`
	Notes           *string      `json:"notes,omitempty"`
	UpdatedAt       string       `json:"updated_at"`
}

func (p *AthleteProgress) EntityID() string { return p.ID }
func (p *AthleteProgress) EntityTable() Table { return TableAthleteProgress }
func (p *AthleteProgress) Stamp() string { return p.UpdatedAt }
func (p *AthleteProgress) Touch(ts string) { p.UpdatedAt = ts }

type Group struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TrainerID string `json:"trainer_id"`
	Schedule  string `json:"schedule"`
	UpdatedAt string `json:"updated_at"`
}

func (g *Group) EntityID() string { return g.ID }
func (g *Group) EntityTable() Table { return TableGroups }
func (g *Group) Stamp() string { return g.UpdatedAt }
func (g *Group) Touch(ts string) { g.UpdatedAt = ts }

type GroupMember struct {
	ID        string `json:"id"`
	GroupID   string `json:"group_id"`
	UserID    string `json:"user_id"`
	Since     string `json:"since"`
	UpdatedAt string `json:"updated_at"`
}

func (m *GroupMember) EntityID() string { return m.ID }
func (m *GroupMember) EntityTable() Table { return TableGroupMembers }
func (m *GroupMember) Stamp() string { return m.UpdatedAt }
func (m *GroupMember) Touch(ts string) { m.UpdatedAt = ts }

type Attendance struct {
	ID        string           `json:"id"`
	SessionID string           `json:"session_id"`
	UserID    string           `json:"user_id"`
	Status    AttendanceStatus `json:"status"`
	UpdatedAt string           `json:"updated_at"`
}

func (a *Attendance) EntityID() string { return a.ID }
func (a *Attendance) EntityTable() Table { return TableAttendance }
func (a *Attendance) Stamp() string { return a.UpdatedAt }
func (a *Attendance) Touch(ts string) { a.UpdatedAt = ts }

// ExerciseLog records one performed exercise set during a training sheet.
type ExerciseLog struct {
	ID            string  `json:"id"`
	UserID        string  `json:"user_id"`
	TrainingSheet string  `json:"training_sheet"`
	ExerciseName  string  `json:"exercise_name"`
	Microcycle    string  `json:"microcycle"`
	Load          *string `json:"load,omitempty"`
	Reps          *string `json:"reps,omitempty"`
	RIR           *string `json:"rir,omitempty"`
	Notes         *string `json:"notes,omitempty"`
	PerformedAt   string  `json:"performed_at"`
	UpdatedAt     string  `json:"updated_at"`
}

func (l *ExerciseLog) EntityID() string { return l.ID }
func (l *ExerciseLog) EntityTable() Table { return TableExerciseLogs }
func (l *ExerciseLog) Stamp() string { return l.UpdatedAt }
func (l *ExerciseLog) Touch(ts string) { l.UpdatedAt = ts }
