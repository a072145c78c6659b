package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/alexanderramin/cadence/internal/changefeed"
	"github.com/alexanderramin/cadence/internal/db"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/outbox"
	"github.com/alexanderramin/cadence/internal/store"
	"github.com/alexanderramin/cadence/internal/testutil"
	"github.com/stretchr/testify/require"
)

type services struct {
	db          *sql.DB
	store       *store.Store
	queue       *outbox.Queue
	feed        *changefeed.Feed
	planning    PlanningService
	assignments AssignmentService
	users       UserService
	progress    ProgressService
	groups      GroupService
}

func setupServices(t *testing.T) *services {
	t.Helper()
	return setupServicesWithUoW(t, nil)
}

// setupServicesWithUoW builds every service over one database. A nil uow
// uses a real SQLite unit of work.
func setupServicesWithUoW(t *testing.T, uow func(*sql.DB) db.UnitOfWork) *services {
	t.Helper()
	database := testutil.NewTestDB(t)
	st := store.New(database)
	q := outbox.New(database)
	feed := changefeed.New()
	u := testutil.NewTestUoW(database)
	if uow != nil {
		u = uow(database)
	}
	return &services{
		db:          database,
		store:       st,
		queue:       q,
		feed:        feed,
		planning:    NewPlanningService(st, q, u, feed),
		assignments: NewAssignmentService(st, q, u, feed),
		users:       NewUserService(st, q, u, feed),
		progress:    NewProgressService(st, q, u, feed),
		groups:      NewGroupService(st, q, u, feed),
	}
}

func (s *services) drain(t *testing.T) []domain.OutboxEntry {
	t.Helper()
	entries, err := s.queue.Drain(context.Background())
	require.NoError(t, err)
	return entries
}

func (s *services) mustUser(t *testing.T, name string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{Name: name, Email: name + "@example.com", Role: role}
	require.NoError(t, s.users.Create(context.Background(), u))
	return u
}

func (s *services) mustMacrocycle(t *testing.T, name string) *domain.Macrocycle {
	t.Helper()
	m := testutil.NewTestMacrocycle(name)
	require.NoError(t, s.planning.CreateMacrocycle(context.Background(), m))
	return m
}

// changeRecorder collects feed changes from any goroutine.
type changeRecorder struct {
	mu      sync.Mutex
	changes []changefeed.Change
}

func (r *changeRecorder) handle(c changefeed.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *changeRecorder) all() []changefeed.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]changefeed.Change(nil), r.changes...)
}
