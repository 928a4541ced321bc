package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileCursor(t *testing.T) {
	ctx := context.Background()
	cursor := &FileCursor{Path: filepath.Join(t.TempDir(), "state", "cursor.json")}

	_, ok, err := cursor.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cursor.Save(ctx, 12))
	require.NoError(t, cursor.Save(ctx, 13))
	pos, ok, err := cursor.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(13), pos)

	_, err = os.Stat(cursor.Path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestFileCursorDisabled(t *testing.T) {
	ctx := context.Background()
	var cursor *FileCursor
	require.NoError(t, cursor.Save(ctx, 1))
	_, ok, err := cursor.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, (&FileCursor{}).Save(ctx, 1))
}

func TestFileCursorRejectsDirectory(t *testing.T) {
	_, _, err := (&FileCursor{Path: t.TempDir()}).Load(context.Background())
	require.Error(t, err)
}

func TestFileCursorRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, _, err := (&FileCursor{Path: path}).Load(context.Background())
	require.ErrorContains(t, err, "parse cursor")
}
