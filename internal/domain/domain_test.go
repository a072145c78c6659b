package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTable_KnownAndUnknown(t *testing.T) {
	for _, tbl := range SyncTables {
		got, err := ParseTable(string(tbl))
		require.NoError(t, err)
		assert.Equal(t, tbl, got)
	}

	_, err := ParseTable("outbox")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTable))
}

func TestSyncTables_EveryTableHasEntity(t *testing.T) {
	for _, tbl := range SyncTables {
		e, err := NewEntity(tbl)
		require.NoError(t, err, "table %s", tbl)
		assert.Equal(t, tbl, e.EntityTable())
	}
}

func TestTable_HasIndex(t *testing.T) {
	assert.True(t, TableUsers.HasIndex("email"))
	assert.True(t, TablePlanningAssignments.HasIndex("is_active"))
	assert.False(t, TableUsers.HasIndex("name"))
	assert.False(t, Table("bogus").HasIndex("id"))
}

func TestDecode_TypedUser(t *testing.T) {
	raw := json.RawMessage(`{"id":"u1","name":"Ana","role":"trainer","email":"ana@x.io","updated_at":"2024-01-01T00:00:00.000Z"}`)
	e, err := Decode(TableUsers, raw)
	require.NoError(t, err)

	u, ok := e.(*User)
	require.True(t, ok)
	assert.Equal(t, "u1", u.EntityID())
	assert.Equal(t, RoleTrainer, u.EntityRole())
	assert.Equal(t, "2024-01-01T00:00:00.000Z", u.Stamp())
}

func TestDecode_RejectsMalformed(t *testing.T) {
	_, err := Decode(TableSessions, json.RawMessage(`[1,2]`))
	require.Error(t, err)
}

func TestPayloadID(t *testing.T) {
	assert.Equal(t, "abc", PayloadID(json.RawMessage(`{"id":"abc"}`)))
	assert.Empty(t, PayloadID(json.RawMessage(`{}`)))
	assert.Empty(t, PayloadID(json.RawMessage(`"abc"`)))
}

func TestFormatTimestamp_MillisecondUTC(t *testing.T) {
	ts := time.Date(2024, 6, 1, 12, 30, 0, 0, time.FixedZone("x", 2*3600))
	assert.Equal(t, "2024-06-01T10:30:00.000Z", FormatTimestamp(ts))
}

func TestUser_NormalizeAndValidate(t *testing.T) {
	u := &User{Name: "  Ana  ", Email: " ANA@Example.COM ", Role: RoleAthlete}
	u.Normalize()
	assert.Equal(t, "Ana", u.Name)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.NoError(t, u.Validate())

	u.Role = "coach"
	assert.Error(t, u.Validate())
}

func TestValidateDateRange(t *testing.T) {
	assert.NoError(t, ValidateDateRange("2024-01-01", "2024-12-31"))
	assert.NoError(t, ValidateDateRange("2024-01-01", "2024-01-01"))
	assert.Error(t, ValidateDateRange("2024-02-01", "2024-01-01"))
	assert.Error(t, ValidateDateRange("01/02/2024", "2024-01-01"))
}
