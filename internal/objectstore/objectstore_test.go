package objectstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thanos-io/objstore/providers/filesystem"

	"github.com/datagruntio/cleanroom/internal/objectstore"
)

func newTestStore(t *testing.T) *objectstore.Store {
	t.Helper()
	dir := t.TempDir()

	inbox, err := filesystem.NewBucket(filepath.Join(dir, "inbox"))
	require.NoError(t, err)
	staging, err := filesystem.NewBucket(filepath.Join(dir, "staging"))
	require.NoError(t, err)
	archive, err := filesystem.NewBucket(filepath.Join(dir, "archive"))
	require.NoError(t, err)

	return objectstore.NewStore(inbox, staging, archive)
}

func TestWriteReadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, objectstore.RoleInbox, "orders.csv", []byte("id,name\n1,Alice\n")))

	data, err := store.Read(ctx, objectstore.RoleInbox, "orders.csv")
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,Alice\n", string(data))
}

func TestExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ok, err := store.Exists(ctx, objectstore.RoleInbox, "missing.csv")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Write(ctx, objectstore.RoleInbox, "present.csv", []byte("data")))
	ok, err = store.Exists(ctx, objectstore.RoleInbox, "present.csv")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMoveDeletesSourceAndWritesDestination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, objectstore.RoleInbox, "orders.csv", []byte("payload")))
	require.NoError(t, store.Move(ctx, objectstore.RoleInbox, objectstore.RoleArchive, "orders.csv"))

	stillInInbox, err := store.Exists(ctx, objectstore.RoleInbox, "orders.csv")
	require.NoError(t, err)
	assert.False(t, stillInInbox, "source should be deleted after move")

	data, err := store.Read(ctx, objectstore.RoleArchive, "orders.csv")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestReadUnconfiguredRoleErrors(t *testing.T) {
	store := objectstore.NewStore(nil, nil, nil)
	_, err := store.Read(context.Background(), objectstore.Role("unknown"), "anything")
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Close())
}
