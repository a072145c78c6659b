package reconcile

import (
	"testing"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/store"
	"github.com/alexanderramin/cadence/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func group(id, stamp string) *domain.Group {
	return &domain.Group{ID: id, Name: "Sprinters", TrainerID: "t1", Schedule: "mon,wed", UpdatedAt: stamp}
}

func TestResolve_TieGoesToRemote(t *testing.T) {
	local := group("g1", "2024-01-01T00:00:00.000Z")
	remote := group("g1", "2024-01-01T00:00:00.000Z")
	remote.Name = "Remote"

	assert.Same(t, remote, Resolve(local, remote))
}

func TestResolve_TieBeatsTrainerOverride(t *testing.T) {
	local := testutil.NewTestUser("Ana", testutil.WithRole(domain.RoleTrainer), testutil.WithUserID("u1"))
	remote := testutil.NewTestUser("Ana", testutil.WithRole(domain.RoleAthlete), testutil.WithUserID("u1"))
	local.UpdatedAt, remote.UpdatedAt = testutil.Stamp, testutil.Stamp

	assert.Same(t, remote, Resolve(local, remote))
}

func TestResolve_TrainerOverride(t *testing.T) {
	local := &domain.User{ID: "u1", Role: domain.RoleTrainer, UpdatedAt: "2024-01-01T00:00:00Z"}
	remote := &domain.User{ID: "u1", Role: domain.RoleAthlete, UpdatedAt: "2024-06-01T00:00:00Z"}

	assert.Same(t, local, Resolve(local, remote))
}

func TestResolve_RemoteTrainerFollowsLWW(t *testing.T) {
	local := &domain.User{ID: "u1", Role: domain.RoleAthlete, UpdatedAt: "2024-06-01T00:00:00Z"}
	remote := &domain.User{ID: "u1", Role: domain.RoleTrainer, UpdatedAt: "2024-01-01T00:00:00Z"}
	assert.Same(t, local, Resolve(local, remote))

	remote.UpdatedAt = "2024-07-01T00:00:00Z"
	assert.Same(t, remote, Resolve(local, remote))
}

func TestResolve_LastWriterWins(t *testing.T) {
	a := group("g1", "2024-01-01")
	b := group("g1", "2024-02-01")

	assert.Same(t, b, Resolve(a, b))
	assert.Same(t, b, Resolve(b, a))
}

func TestResolve_ComparesInstantsAcrossOffsets(t *testing.T) {
	// 10:00+02:00 is 08:00Z, earlier than 09:00Z despite sorting later as text.
	local := group("g1", "2024-01-01T10:00:00+02:00")
	remote := group("g1", "2024-01-01T09:00:00Z")

	assert.Same(t, remote, Resolve(local, remote))
}

func TestResolve_PureAndTotal(t *testing.T) {
	stamps := []string{
		"2024-01-01T00:00:00.000Z",
		"2024-01-01T00:00:00.001Z",
		"2023-12-31T23:59:59Z",
		"2024-01-01",
		"garbage",
		"",
	}
	roles := []domain.Role{domain.RoleTrainer, domain.RoleAthlete, domain.RoleAdmin}

	for _, ls := range stamps {
		for _, rs := range stamps {
			for _, lr := range roles {
				for _, rr := range roles {
					local := &domain.User{ID: "u1", Name: "L", Role: lr, UpdatedAt: ls}
					remote := &domain.User{ID: "u1", Name: "R", Role: rr, UpdatedAt: rs}
					localCopy, remoteCopy := *local, *remote

					first := Resolve(local, remote)
					second := Resolve(local, remote)

					assert.True(t, first == local || first == remote)
					assert.Same(t, first, second)
					assert.Equal(t, localCopy, *local)
					assert.Equal(t, remoteCopy, *remote)
				}
			}
		}
	}
}

func TestResolveRecord_ReturnsWinnerBytes(t *testing.T) {
	local, err := store.RecordOf(group("g1", "2024-03-01T00:00:00.000Z"))
	require.NoError(t, err)
	remote, err := store.RecordFromJSON([]byte(`{"id":"g1","name":"Remote","trainer_id":"t1","schedule":"fri","updated_at":"2024-02-01T00:00:00.000Z","extra":true}`))
	require.NoError(t, err)

	got, side, err := ResolveRecord(domain.TableGroups, local, remote)
	require.NoError(t, err)
	assert.Equal(t, SideLocal, side)
	assert.Equal(t, local, got)

	remote.UpdatedAt = "2024-04-01T00:00:00.000Z"
	remote.Data = []byte(`{"id":"g1","name":"Remote","trainer_id":"t1","schedule":"fri","updated_at":"2024-04-01T00:00:00.000Z","extra":true}`)
	got, side, err = ResolveRecord(domain.TableGroups, local, remote)
	require.NoError(t, err)
	assert.Equal(t, SideRemote, side)
	assert.JSONEq(t, string(remote.Data), string(got.Data))
}

func TestResolveRecord_MalformedRemote(t *testing.T) {
	local, err := store.RecordOf(group("g1", testutil.Stamp))
	require.NoError(t, err)
	remote := store.Record{ID: "g1", Data: []byte(`{"id":"g1","name":42}`)}

	_, _, err = ResolveRecord(domain.TableGroups, local, remote)
	assert.Error(t, err)
}
