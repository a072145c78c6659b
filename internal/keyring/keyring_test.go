package keyring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
)

func TestSetAndGetDSN(t *testing.T) {
	gokeyring.MockInit()

	dsn := "postgres://coach@localhost:5432/cadence?sslmode=disable"
	require.NoError(t, SetDSN(dsn))

	got, err := GetDSN()
	require.NoError(t, err)
	assert.Equal(t, dsn, got)
}

func TestSetDSN_Empty(t *testing.T) {
	gokeyring.MockInit()
	assert.Error(t, SetDSN(""))
}

func TestGetDSN_NotFound(t *testing.T) {
	gokeyring.MockInit()
	_ = DeleteDSN()

	_, err := GetDSN()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteDSN(t *testing.T) {
	gokeyring.MockInit()

	require.NoError(t, SetDSN("host=localhost dbname=cadence"))
	require.NoError(t, DeleteDSN())
	assert.ErrorIs(t, DeleteDSN(), ErrNotFound)
}

func TestUnavailableKeyring(t *testing.T) {
	gokeyring.MockInitWithError(errors.New("no dbus"))
	t.Cleanup(gokeyring.MockInit)

	_, err := GetDSN()
	assert.ErrorIs(t, err, ErrKeyringUnavailable)
	assert.False(t, IsAvailable())
}

func TestIsAvailable_Mock(t *testing.T) {
	gokeyring.MockInit()
	assert.True(t, IsAvailable())
}
