package version

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "versions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testVersion(machineID string, createdAt time.Time) Version {
	id := uuid.NewString()
	return Version{
		VersionID:     id,
		MachineID:     machineID,
		CreatedAt:     createdAt,
		IndexedAt:     createdAt.Add(-time.Hour),
		SchemaVersion: "1.0",
		StorageKey:    "indexes/" + machineID + "/" + id + ".json",
		ContentHash:   "deadbeef",
		TotalChunks:   10,
		TotalErrors:   3,
	}
}

func TestCreateDoesNotActivate(t *testing.T) {
	s := openTestStore(t)
	v := testVersion("printer-01", time.Now().UTC())
	require.NoError(t, s.Create(v))

	active, err := s.GetActive("printer-01")
	require.NoError(t, err)
	assert.Nil(t, active)

	got, err := s.Get(v.VersionID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, v.StorageKey, got.StorageKey)
}

func TestActivateIsExclusive(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()
	v1 := testVersion("printer-01", now)
	v2 := testVersion("printer-01", now.Add(time.Minute))
	other := testVersion("printer-02", now)
	require.NoError(t, s.Create(v1))
	require.NoError(t, s.Create(v2))
	require.NoError(t, s.Create(other))

	_, err := s.Activate(v1.VersionID)
	require.NoError(t, err)
	_, err = s.Activate(v2.VersionID)
	require.NoError(t, err)

	active, err := s.GetActive("printer-01")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, v2.VersionID, active.VersionID)

	old, err := s.Get(v1.VersionID)
	require.NoError(t, err)
	assert.False(t, old.IsActive)

	// Other machines are untouched.
	otherActive, err := s.GetActive("printer-02")
	require.NoError(t, err)
	assert.Nil(t, otherActive)
}

func TestActivateUnknownVersion(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Activate(uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteActivePromotesNewest(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()
	v1 := testVersion("printer-01", now)
	v2 := testVersion("printer-01", now.Add(time.Minute))
	v3 := testVersion("printer-01", now.Add(2*time.Minute))
	for _, v := range []Version{v1, v2, v3} {
		require.NoError(t, s.Create(v))
	}
	_, err := s.Activate(v3.VersionID)
	require.NoError(t, err)

	require.NoError(t, s.Delete(v3.VersionID))

	active, err := s.GetActive("printer-01")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, v2.VersionID, active.VersionID)
}

func TestDeleteInactiveLeavesActiveAlone(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()
	v1 := testVersion("printer-01", now)
	v2 := testVersion("printer-01", now.Add(time.Minute))
	require.NoError(t, s.Create(v1))
	require.NoError(t, s.Create(v2))
	_, err := s.Activate(v2.VersionID)
	require.NoError(t, err)

	require.NoError(t, s.Delete(v1.VersionID))

	active, err := s.GetActive("printer-01")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, v2.VersionID, active.VersionID)
}

func TestDeleteLastVersion(t *testing.T) {
	s := openTestStore(t)
	v := testVersion("printer-01", time.Now().UTC())
	require.NoError(t, s.Create(v))
	_, err := s.Activate(v.VersionID)
	require.NoError(t, err)

	require.NoError(t, s.Delete(v.VersionID))

	active, err := s.GetActive("printer-01")
	require.NoError(t, err)
	assert.Nil(t, active)

	assert.ErrorIs(t, s.Delete(v.VersionID), ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()
	v1 := testVersion("printer-01", now)
	v2 := testVersion("printer-01", now.Add(time.Minute))
	require.NoError(t, s.Create(v1))
	require.NoError(t, s.Create(v2))

	got, err := s.List("printer-01")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, v2.VersionID, got[0].VersionID)
	assert.Equal(t, v1.VersionID, got[1].VersionID)
}

func TestWritesNotifyOnChange(t *testing.T) {
	s := openTestStore(t)
	var notified []string
	s.OnChange(func(machineID string) { notified = append(notified, machineID) })

	v := testVersion("printer-01", time.Now().UTC())
	require.NoError(t, s.Create(v))
	_, err := s.Activate(v.VersionID)
	require.NoError(t, err)
	require.NoError(t, s.Delete(v.VersionID))

	assert.Equal(t, []string{"printer-01", "printer-01", "printer-01"}, notified)
}
