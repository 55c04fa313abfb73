package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bhandras/zenith/internal/seed"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zenith_seed.json")
	s := NewFileStore(path)

	in := seed.Record{
		"identity": map[string]any{"name": "ZENITH", "version": "2.0"},
		"runs":     map[string]any{"total": json.Number("12")},
		"commands": []any{"ping", "get_seed"},
	}
	require.NoError(t, s.Save(in))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "\n  \"commands\": [\n")
	require.Equal(t, byte('\n'), raw[len(raw)-1])

	out, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestFileStoreSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zenith_seed.json")
	s := NewFileStore(path)

	require.NoError(t, s.Save(seed.Record{"a": "a much longer value than the next one"}))
	require.NoError(t, s.Save(seed.Record{"b": true}))

	out, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, seed.Record{"b": true}, out)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStoreLoadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing", func(t *testing.T) {
		_, err := NewFileStore(filepath.Join(dir, "nope.json")).Load()
		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("unparseable", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
		_, err := NewFileStore(path).Load()
		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		require.Equal(t, path, loadErr.Path)
	})

	t.Run("not an object", func(t *testing.T) {
		path := filepath.Join(dir, "array.json")
		require.NoError(t, os.WriteFile(path, []byte("[1,2]"), 0o644))
		_, err := NewFileStore(path).Load()
		require.ErrorIs(t, err, seed.ErrNotObject)
	})
}

func TestFileStoreSaveError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "zenith_seed.json")

	err := NewFileStore(path).Save(seed.Record{"a": 1})
	var saveErr *SaveError
	require.ErrorAs(t, err, &saveErr)
}

type fakeJournal struct {
	appended [][]byte
	pruned   []int
	fail     error
}

func (f *fakeJournal) Append(ctx context.Context, at time.Time, body []byte) error {
	if f.fail != nil {
		return f.fail
	}
	f.appended = append(f.appended, body)
	return nil
}

func (f *fakeJournal) Prune(ctx context.Context, keep int) (int64, error) {
	f.pruned = append(f.pruned, keep)
	return 0, nil
}

type fakeStore struct {
	save func(seed.Record) error
}

func (f fakeStore) Load() (seed.Record, error) { return seed.Record{}, nil }

func (f fakeStore) Save(rec seed.Record) error { return f.save(rec) }

func TestJournaledAppendsAfterSave(t *testing.T) {
	j := &fakeJournal{}
	s := NewJournaled(NewFileStore(filepath.Join(t.TempDir(), "seed.json")), j, 3)

	require.NoError(t, s.Save(seed.Record{"a": 1}))
	require.Len(t, j.appended, 1)
	require.JSONEq(t, `{"a":1}`, string(j.appended[0]))
	require.Equal(t, []int{3}, j.pruned)
}

func TestJournaledSkipsFailedSaves(t *testing.T) {
	j := &fakeJournal{}
	boom := errors.New("disk full")
	s := NewJournaled(fakeStore{save: func(seed.Record) error { return boom }}, j, 3)

	require.ErrorIs(t, s.Save(seed.Record{"a": 1}), boom)
	require.Empty(t, j.appended)
}

func TestJournaledIgnoresJournalFailure(t *testing.T) {
	j := &fakeJournal{fail: errors.New("locked")}
	s := NewJournaled(fakeStore{save: func(seed.Record) error { return nil }}, j, 3)

	require.NoError(t, s.Save(seed.Record{"a": 1}))
	require.Empty(t, j.pruned)
}
