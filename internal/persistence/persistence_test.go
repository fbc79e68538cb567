package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schollz/keyboardia/internal/session"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	return store
}

func TestCreateThenLoadRoundTrips(t *testing.T) {
	store := newTestStore(t)
	sess := session.New()
	sess.Tracks = append(sess.Tracks, session.NewTrack("t1", "kick", "kick808"))
	sess.Tempo = 140

	rec, err := store.Create(sess, "my session")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "my session", rec.Name)

	loaded, loadedRec, err := store.Load(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 140, loaded.Tempo)
	require.Len(t, loaded.Tracks, 1)
	assert.Equal(t, "kick808", loaded.Tracks[0].SampleID)
	assert.Equal(t, CurrentVersion, loadedRec.State.Version)
	assert.False(t, loadedRec.LastAccessedAt.IsZero())
}

func TestSaveSkipsByteIdenticalPayload(t *testing.T) {
	store := newTestStore(t)
	sess := session.New()
	rec, err := store.Create(sess, "s")
	require.NoError(t, err)

	path := store.path(rec.ID)
	info1, err := os.Stat(path)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, store.Save(rec.ID, sess))

	info2, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info1.ModTime(), info2.ModTime(), "identical payload must not rewrite the file")
}

func TestSaveWritesOnChange(t *testing.T) {
	store := newTestStore(t)
	sess := session.New()
	rec, err := store.Create(sess, "s")
	require.NoError(t, err)

	sess.Tempo = 150
	require.NoError(t, store.Save(rec.ID, sess))

	loaded, _, err := store.Load(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 150, loaded.Tempo)
}

func TestRemixCopiesAndBumpsCount(t *testing.T) {
	store := newTestStore(t)
	sess := session.New()
	sess.Tracks = append(sess.Tracks, session.NewTrack("t1", "kick", "kick808"))
	rec, err := store.Create(sess, "original")
	require.NoError(t, err)

	remix, err := store.Remix(rec.ID)
	require.NoError(t, err)
	assert.NotEqual(t, rec.ID, remix.ID)
	assert.Equal(t, rec.ID, remix.RemixedFrom)
	assert.Equal(t, "original", remix.Name)

	_, srcRec, err := store.Load(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, srcRec.RemixCount)
}

func TestSetNameRenames(t *testing.T) {
	store := newTestStore(t)
	rec, err := store.Create(session.New(), "old")
	require.NoError(t, err)

	require.NoError(t, store.SetName(rec.ID, "new"))

	_, loadedRec, err := store.Load(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", loadedRec.Name)
}

func TestNormalizeExpandsSparseParameterLocks(t *testing.T) {
	legacy := map[string]any{
		"id":        "legacy-1",
		"createdAt": time.Now(),
		"state": map[string]any{
			"tempo":   120,
			"version": 1,
			"tracks": []map[string]any{
				{
					"id":        "t1",
					"sampleId":  "kick808",
					"steps":     []bool{true, false},
					"stepCount": 16,
					"parameterLocks": map[string]any{
						"3": map[string]any{"tie": true},
					},
				},
			},
		},
	}
	data, err := json.Marshal(legacy)
	require.NoError(t, err)

	rec, err := normalize(data)
	require.NoError(t, err)
	require.Len(t, rec.State.Tracks, 1)
	lock := rec.State.Tracks[0].ParameterLocks[3]
	require.NotNil(t, lock)
	assert.True(t, lock.Tie)
	assert.Equal(t, CurrentVersion, rec.State.Version)
}

func TestNormalizeAcceptsDenseParameterLocksArray(t *testing.T) {
	std := jsoniter.ConfigCompatibleWithStandardLibrary
	track := map[string]any{
		"id":             "t1",
		"sampleId":       "kick808",
		"stepCount":      16,
		"parameterLocks": make([]any, session.MaxSteps),
	}
	rec := map[string]any{
		"id":    "r1",
		"state": map[string]any{"tempo": 120, "tracks": []any{track}},
	}
	data, err := std.Marshal(rec)
	require.NoError(t, err)

	normalized, err := normalize(data)
	require.NoError(t, err)
	require.Len(t, normalized.State.Tracks, 1)
	assert.Nil(t, normalized.State.Tracks[0].ParameterLocks[0])
}

func TestDebouncedSaveEventuallyWrites(t *testing.T) {
	store := newTestStore(t)
	sess := session.New()
	rec, err := store.Create(sess, "s")
	require.NoError(t, err)

	sess.Tempo = 170
	store.DebouncedSave(rec.ID, sess)

	assert.Eventually(t, func() bool {
		loaded, _, err := store.Load(rec.ID)
		return err == nil && loaded.Tempo == 170
	}, 3*time.Second, 10*time.Millisecond)
}

func TestLoadMissingFileErrors(t *testing.T) {
	store := newTestStore(t)
	_, _, err := store.Load(filepath.Join("does-not-exist"))
	assert.Error(t, err)
}

func TestListReturnsEveryRecordID(t *testing.T) {
	store := newTestStore(t)
	rec1, err := store.Create(session.New(), "a")
	require.NoError(t, err)
	rec2, err := store.Create(session.New(), "b")
	require.NoError(t, err)

	ids, err := store.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{rec1.ID, rec2.ID}, ids)
}

func TestMigrateForceRewritesEvenWhenUnchanged(t *testing.T) {
	store := newTestStore(t)
	rec, err := store.Create(session.New(), "s")
	require.NoError(t, err)

	path := store.path(rec.ID)
	info1, err := os.Stat(path)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, store.Migrate(rec.ID))

	info2, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info2.ModTime().After(info1.ModTime()), "migrate must rewrite the file even without content changes")

	_, loadedRec, err := store.Load(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, loadedRec.State.Version)
}
